package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/utxocore/coin"
	"golang.org/x/term"
)

const (
	defaultCoin       = "bitcoin"
	defaultNetwork    = "mainnet"
	defaultDebugLevel = "info"
)

var (
	// errUnknownCoin is returned for a --coin value that names no entry.
	errUnknownCoin = errors.New("unknown coin")

	// errUnknownNetwork is returned for a --network value that names no
	// network of the coin.
	errUnknownNetwork = errors.New("unknown network")
)

// config holds the options shared by every command.
type config struct {
	Coin       string `long:"coin" description:"Chain to operate on {bitcoin, dogecoin}"`
	Network    string `long:"network" description:"Network of the chain {mainnet, testnet3, regtest, signet, simnet}"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`
}

// defaultConfig returns the configuration used when no option is given.
func defaultConfig() config {
	return config{
		Coin:       defaultCoin,
		Network:    defaultNetwork,
		DebugLevel: defaultDebugLevel,
	}
}

// netParams returns the chain parameters of a bitcoin network.
func netParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil

	case "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	case "simnet":
		return &chaincfg.SimNetParams, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownNetwork, network)
	}
}

// entry returns the coin entry the configuration selects.
func (c *config) entry() (coin.Entry, error) {
	switch strings.ToLower(c.Coin) {
	case "bitcoin", "btc":
		params, err := netParams(c.Network)
		if err != nil {
			return nil, err
		}

		return coin.NewBitcoin(params), nil

	case "dogecoin", "doge":
		if n := strings.ToLower(c.Network); n != "mainnet" && n != "" {
			return nil, fmt.Errorf("%w: dogecoin %q", errUnknownNetwork,
				c.Network)
		}

		return coin.NewDogecoin(), nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCoin, c.Coin)
	}
}

// readInput returns the contents of path, or of stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	// #nosec G304 -- the path is given by the operator.
	return os.ReadFile(path)
}

// readPrivKey loads a WIF encoded key for the entry's network. The key is
// read from keyFile when set, otherwise it is prompted for on the terminal.
func readPrivKey(e coin.Entry, keyFile string) (*btcec.PrivateKey, error) {
	var (
		raw []byte
		err error
	)
	if keyFile != "" {
		raw, err = readInput(keyFile)
	} else {
		raw, err = promptWIF(os.Stdin, os.Stderr)
	}
	if err != nil {
		return nil, err
	}

	return parseWIFBytes(e.Params(), raw)
}

// parseWIFBytes decodes a WIF key read into raw and wipes raw afterwards.
func parseWIFBytes(params *chaincfg.Params, raw []byte) (*btcec.PrivateKey,
	error) {

	defer clear(raw)

	return parseWIF(params, string(bytes.TrimSpace(raw)))
}

// parseWIF decodes a WIF string and checks it belongs to params.
func parseWIF(params *chaincfg.Params, encoded string) (*btcec.PrivateKey,
	error) {

	wif, err := btcutil.DecodeWIF(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	if !wif.IsForNet(params) {
		wif.PrivKey.Zero()
		return nil, fmt.Errorf("private key is not for %s", params.Name)
	}

	if !wif.CompressPubKey {
		wif.PrivKey.Zero()
		return nil, errors.New("uncompressed keys are not supported")
	}

	return wif.PrivKey, nil
}

// promptWIF reads a key without echo when in is a terminal, or a single line
// otherwise.
func promptWIF(in *os.File, prompt io.Writer) ([]byte, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			clear(line)
			return nil, err
		}

		return line, nil
	}

	fmt.Fprint(prompt, "Enter private key (WIF): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, err
	}

	return raw, nil
}
