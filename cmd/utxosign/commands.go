package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/utxocore/coin"
	"github.com/btcsuite/utxocore/compiler"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/legacy"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
)

// errMissingArg is returned when a command misses its positional argument.
var errMissingArg = errors.New("missing argument")

// requestOpts are the options of the commands that plan a request.
type requestOpts struct {
	Request   string `long:"request" required:"true" description:"Path of the JSON signing request, - for stdin"`
	ChangeKey string `long:"changekey" description:"Hex public key the default change script is derived from"`
}

// plan loads the request and plans it for the entry.
func (o *requestOpts) plan(e coin.Entry) (*utxo.SigningPlan, error) {
	raw, err := readInput(o.Request)
	if err != nil {
		return nil, err
	}

	parsed, err := coin.ParseRequest(raw)
	if err != nil {
		return nil, err
	}

	req, err := parsed.SigningRequest(e)
	if err != nil {
		return nil, err
	}

	var changeKey *btcec.PublicKey
	if o.ChangeKey != "" {
		keyBytes, err := hex.DecodeString(o.ChangeKey)
		if err != nil {
			return nil, fmt.Errorf("decode change key: %w", err)
		}

		changeKey, err = btcec.ParsePubKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse change key: %w", err)
		}
	}

	return coin.Plan(e, req, changeKey)
}

// planCommand prints the plan of a request.
type planCommand struct {
	cfg *config
	requestOpts
}

// Execute implements flags.Commander.
func (c *planCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	plan, err := c.plan(e)
	if err != nil {
		return err
	}

	return printJSON(newPlanView(plan))
}

// preimageCommand prints the digests an offline signer must sign, together
// with the PSBT carrying them.
type preimageCommand struct {
	cfg *config
	requestOpts
}

// Execute implements flags.Commander.
func (c *preimageCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	plan, err := c.plan(e)
	if err != nil {
		return err
	}

	pre, err := coin.PreimageHashes(e, plan)
	if err != nil {
		return err
	}

	packet, err := compiler.ToPsbt(plan)
	if err != nil {
		return err
	}

	encoded, err := packet.B64Encode()
	if err != nil {
		return err
	}

	return printJSON(newPreimageView(pre, encoded))
}

// compileCommand assembles a request signed offline through a PSBT.
type compileCommand struct {
	cfg *config
	requestOpts

	Psbt string `long:"psbt" required:"true" description:"Path of the signed base64 PSBT, - for stdin"`
}

// Execute implements flags.Commander.
func (c *compileCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	plan, err := c.plan(e)
	if err != nil {
		return err
	}

	raw, err := readInput(c.Psbt)
	if err != nil {
		return err
	}

	packet, err := psbt.NewFromRawBytes(
		strings.NewReader(strings.TrimSpace(string(raw))), true,
	)
	if err != nil {
		return fmt.Errorf("parse psbt: %w", err)
	}

	sigs, pubKeys, err := compiler.SignaturesFromPsbt(plan, packet)
	if err != nil {
		return err
	}

	out, err := coin.Compile(e, plan, sigs, pubKeys)
	if err != nil {
		return err
	}

	return printJSON(newSignedView(out))
}

// signCommand signs a request with a single key. Change goes back to the
// key's default change script unless the request overrides it.
type signCommand struct {
	cfg *config

	Request string `long:"request" required:"true" description:"Path of the JSON signing request, - for stdin"`
	KeyFile string `long:"keyfile" description:"Path of the WIF private key; prompted for when unset"`
}

// Execute implements flags.Commander.
func (c *signCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	raw, err := readInput(c.Request)
	if err != nil {
		return err
	}

	parsed, err := coin.ParseRequest(raw)
	if err != nil {
		return err
	}

	req, err := parsed.SigningRequest(e)
	if err != nil {
		return err
	}

	privKey, err := readPrivKey(e, c.KeyFile)
	if err != nil {
		return err
	}

	out, err := coin.Sign(e, req, privKey)
	if err != nil {
		return err
	}

	return printJSON(newSignedView(out))
}

// decodeCommand prints the structure of a raw transaction.
type decodeCommand struct {
	cfg *config
}

// Execute implements flags.Commander.
func (c *decodeCommand) Execute(args []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	if err := requireModule(e, coin.CapTxDecoding); err != nil {
		return err
	}

	raw, err := hexArg(args)
	if err != nil {
		return err
	}

	decoded, err := e.TransactionDecoder().DecodeTransaction(raw)
	if err != nil {
		return err
	}

	return printJSON(newDecodedView(decoded))
}

// txidCommand prints the id of a raw transaction.
type txidCommand struct{}

// Execute implements flags.Commander.
func (c *txidCommand) Execute(args []string) error {
	raw, err := hexArg(args)
	if err != nil {
		return err
	}

	hash, err := coin.TxHash(raw)
	if err != nil {
		return err
	}

	fmt.Println(hash)

	return nil
}

// addressCommand derives an address from a public key.
type addressCommand struct {
	cfg *config

	PubKey string `long:"pubkey" required:"true" description:"Hex compressed public key"`
	Kind   string `long:"kind" description:"Address kind {p2pkh, p2wpkh, p2tr}" default:"p2wpkh"`
}

// Execute implements flags.Commander.
func (c *addressCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	keyBytes, err := hex.DecodeString(c.PubKey)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}

	pubKey, err := btcec.ParsePubKey(keyBytes)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	var kind script.Kind
	switch strings.ToLower(c.Kind) {
	case "p2pkh":
		kind = script.KindP2PKH
	case "p2wpkh":
		kind = script.KindP2WPKH
	case "p2tr":
		kind = script.KindP2TR
	default:
		return fmt.Errorf("unknown address kind %q", c.Kind)
	}

	addr, err := e.DeriveAddress(pubKey, kind)
	if err != nil {
		return err
	}

	fmt.Println(addr.EncodeAddress())

	return nil
}

// signMessageCommand signs a message in the chain's signed message format.
type signMessageCommand struct {
	cfg *config

	Message string `long:"message" required:"true" description:"Message to sign"`
	KeyFile string `long:"keyfile" description:"Path of the WIF private key; prompted for when unset"`
}

// Execute implements flags.Commander.
func (c *signMessageCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	if err := requireModule(e, coin.CapMessageSigning); err != nil {
		return err
	}

	privKey, err := readPrivKey(e, c.KeyFile)
	if err != nil {
		return err
	}
	defer privKey.Zero()

	sig, err := e.MessageSigner().SignMessage(privKey, c.Message)
	if err != nil {
		return err
	}

	fmt.Println(sig)

	return nil
}

// verifyMessageCommand checks a signed message against an address.
type verifyMessageCommand struct {
	cfg *config

	Address   string `long:"address" required:"true" description:"Address the message was signed for"`
	Message   string `long:"message" required:"true" description:"Signed message"`
	Signature string `long:"signature" required:"true" description:"Base64 signature"`
}

// Execute implements flags.Commander.
func (c *verifyMessageCommand) Execute(_ []string) error {
	e, err := c.cfg.entry()
	if err != nil {
		return err
	}

	if err := requireModule(e, coin.CapMessageSigning); err != nil {
		return err
	}

	err = e.MessageSigner().VerifyMessage(c.Address, c.Message, c.Signature)
	if err != nil {
		return err
	}

	fmt.Println("valid")

	return nil
}

// buildSignCommand runs the single-input P2PKH shim on a TLV encoded
// signing input.
type buildSignCommand struct{}

// Execute implements flags.Commander.
func (c *buildSignCommand) Execute(args []string) error {
	input, err := hexArg(args)
	if err != nil {
		return err
	}

	signed, err := legacy.BuildAndSign(input)
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(signed))

	return nil
}

// requireModule fails with UnsupportedModule when the entry lacks the
// optional module c.
func requireModule(e coin.Entry, c coin.Capability) error {
	if !e.Supports(c) {
		return errcode.New(errcode.UnsupportedModule, "%s: %v", e.Name(),
			c)
	}

	return nil
}

// hexArg decodes the single hex positional argument, or stdin when it is
// "-".
func hexArg(args []string) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected one hex argument",
			errMissingArg)
	}

	arg := args[0]
	if arg == "-" {
		raw, err := readInput(arg)
		if err != nil {
			return nil, err
		}
		arg = string(raw)
	}

	return hex.DecodeString(strings.TrimSpace(arg))
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
