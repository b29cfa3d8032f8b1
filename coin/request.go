package coin

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrUnknownDescriptor is returned for a descriptor type the schema does not
// define.
var ErrUnknownDescriptor = errors.New("unknown descriptor type")

// Request is the JSON form of a signing request.
//
//	{
//	  "version": 2,
//	  "fee_rate": 10,
//	  "selector": "minimal",
//	  "inputs": [{
//	    "txid": "1e1c...e47b", "vout": 0, "amount": 5000000000,
//	    "spend": {"type": "p2wpkh", "pubkey": "0366...9536"}
//	  }],
//	  "outputs": [{"amount": 4999000000, "address": "bc1q..."}]
//	}
type Request struct {
	// Version is the transaction version. Zero defaults to 2.
	Version int32 `json:"version"`

	// LockTime is the transaction lock time.
	LockTime uint32 `json:"lock_time"`

	// FeeRate is the fee rate in sat/vbyte.
	FeeRate int64 `json:"fee_rate"`

	// Selector is "all", the default, or "minimal".
	Selector string `json:"selector,omitempty"`

	// DisableChange turns off the change output.
	DisableChange bool `json:"disable_change"`

	// ChangeAddress overrides the default change destination.
	ChangeAddress string `json:"change_address,omitempty"`

	// Inputs are the candidate inputs.
	Inputs []Input `json:"inputs"`

	// Outputs are the requested outputs.
	Outputs []Output `json:"outputs"`
}

// Input is the JSON form of a candidate input.
type Input struct {
	// TxID is the funding transaction id in display order.
	TxID string `json:"txid"`

	// Vout is the funding output index.
	Vout uint32 `json:"vout"`

	// Amount is the funding output value in satoshis.
	Amount int64 `json:"amount"`

	// Sequence defaults to the final sequence number when absent.
	Sequence *uint32 `json:"sequence,omitempty"`

	// SigHash is a flag name such as "all" or "single|anyonecanpay".
	// Empty defaults to "all".
	SigHash string `json:"sighash,omitempty"`

	// Spend describes how the funding output is spent.
	Spend Descriptor `json:"spend"`
}

// Output is the JSON form of an output. Exactly one of Address, Script or To
// must be set.
type Output struct {
	// Amount is the output value in satoshis.
	Amount int64 `json:"amount"`

	// Address pays to an address of the chain.
	Address string `json:"address,omitempty"`

	// Script pays to a raw hex encoded locking script.
	Script string `json:"script,omitempty"`

	// To pays to a script built from a descriptor.
	To *Descriptor `json:"to,omitempty"`
}

// Descriptor describes a script by type and parameters. Inputs accept p2pkh,
// p2wpkh, p2wsh, p2tr, p2tr_script, brc20 and ordinal. Outputs accept the
// same, where brc20 and ordinal pay to the inscription commitment, plus
// op_return.
type Descriptor struct {
	Type           string `json:"type"`
	PubKey         string `json:"pubkey,omitempty"`
	WitnessScript  string `json:"witness_script,omitempty"`
	LeafScript     string `json:"leaf_script,omitempty"`
	Ticker         string `json:"ticker,omitempty"`
	TransferAmount uint64 `json:"transfer_amount,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	Payload        string `json:"payload,omitempty"`
	Data           string `json:"data,omitempty"`
}

// ParseRequest decodes a JSON request.
func ParseRequest(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "json")
	}

	return &req, nil
}

// SigningRequest converts r into a signing request for entry e.
func (r *Request) SigningRequest(e Entry) (*utxo.SigningRequest, error) {
	req := &utxo.SigningRequest{
		Version:       r.Version,
		LockTime:      r.LockTime,
		FeeRate:       btcunit.NewSatPerVByte(btcutil.Amount(r.FeeRate)),
		DisableChange: r.DisableChange,
	}
	if req.Version == 0 {
		req.Version = 2
	}

	switch strings.ToLower(r.Selector) {
	case "", "all":
		req.Selector = utxo.SelectAll{}
	case "minimal":
		req.Selector = utxo.SelectMinimal{}
	default:
		return nil, errcode.New(errcode.InvalidInput,
			"unknown selector %q", r.Selector)
	}

	if r.ChangeAddress != "" {
		change, err := e.AddressScript(r.ChangeAddress)
		if err != nil {
			return nil, err
		}
		req.ChangeScript = fn.Some(change)
	}

	for i, in := range r.Inputs {
		txIn, err := in.txInput()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		req.Inputs = append(req.Inputs, txIn)
	}

	for i, out := range r.Outputs {
		txOut, err := out.txOutput(e)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		req.Outputs = append(req.Outputs, txOut)
	}

	return req, nil
}

// txInput converts the JSON input.
func (in *Input) txInput() (utxo.TxInput, error) {
	hash, err := chainhash.NewHashFromStr(in.TxID)
	if err != nil {
		return utxo.TxInput{}, errcode.Wrap(errcode.InvalidInput, err,
			"txid")
	}

	flag, err := ParseSigHashType(in.SigHash)
	if err != nil {
		return utxo.TxInput{}, err
	}

	spend, err := in.Spend.spendCondition()
	if err != nil {
		return utxo.TxInput{}, err
	}

	sequence := uint32(wire.MaxTxInSequenceNum)
	if in.Sequence != nil {
		sequence = *in.Sequence
	}

	return utxo.TxInput{
		OutPoint:    wire.OutPoint{Hash: *hash, Index: in.Vout},
		Amount:      btcutil.Amount(in.Amount),
		Sequence:    sequence,
		SigHashType: flag,
		Spend:       spend,
	}, nil
}

// txOutput converts the JSON output.
func (out *Output) txOutput(e Entry) (utxo.TxOutput, error) {
	var (
		s   script.Script
		err error
	)
	switch {
	case out.Address != "" && out.Script == "" && out.To == nil:
		s, err = e.AddressScript(out.Address)

	case out.Script != "" && out.Address == "" && out.To == nil:
		var raw []byte
		raw, err = decodeHex("script", out.Script)
		s = script.FromBytes(raw)

	case out.To != nil && out.Address == "" && out.Script == "":
		s, err = out.To.recipient()

	default:
		err = errcode.New(errcode.InvalidInput,
			"exactly one of address, script and to must be set")
	}
	if err != nil {
		return utxo.TxOutput{}, err
	}

	return utxo.TxOutput{Amount: btcutil.Amount(out.Amount), Script: s}, nil
}

// spendCondition builds the spend condition the descriptor describes.
func (d *Descriptor) spendCondition() (script.SpendCondition, error) {
	pubKey, err := d.pubKey()
	if err != nil {
		return nil, err
	}

	switch d.Type {
	case "p2pkh":
		return script.NewP2PKHSpend(pubKey)

	case "p2wpkh":
		return script.NewP2WPKHSpend(pubKey)

	case "p2wsh":
		var witnessScript []byte
		if d.WitnessScript != "" {
			witnessScript, err = decodeHex(
				"witness_script", d.WitnessScript,
			)
			if err != nil {
				return nil, err
			}
		}

		return script.NewP2WSHSpend(pubKey, witnessScript)

	case "p2tr":
		return script.NewP2TRKeySpend(pubKey)

	case "p2tr_script":
		leaf, err := decodeHex("leaf_script", d.LeafScript)
		if err != nil {
			return nil, err
		}

		return script.NewP2TRScriptSpend(pubKey, leaf)

	case "brc20", "ordinal":
		insc, err := d.inscription()
		if err != nil {
			return nil, err
		}

		return script.NewInscriptionSpend(pubKey, insc)

	default:
		return nil, errcode.Wrap(errcode.UnsupportedScriptVariant,
			ErrUnknownDescriptor, "spend %q", d.Type)
	}
}

// recipient builds the locking script the descriptor describes.
func (d *Descriptor) recipient() (script.Script, error) {
	if d.Type == "op_return" {
		data, err := decodeHex("data", d.Data)
		if err != nil {
			return script.Script{}, err
		}

		return script.NullData(data)
	}

	pubKey, err := d.pubKey()
	if err != nil {
		return script.Script{}, err
	}

	switch d.Type {
	case "p2pkh":
		return script.PayToPubKey(pubKey)

	case "p2wpkh":
		return script.PayToWitnessPubKey(pubKey)

	case "p2tr":
		return script.PayToTaprootKey(pubKey)

	case "p2wsh", "p2tr_script", "brc20", "ordinal":
		spend, err := d.spendCondition()
		if err != nil {
			return script.Script{}, err
		}

		return spend.PkScript(), nil

	default:
		return script.Script{}, errcode.Wrap(
			errcode.UnsupportedScriptVariant, ErrUnknownDescriptor,
			"recipient %q", d.Type,
		)
	}
}

// inscription builds the inscription of a brc20 or ordinal descriptor.
func (d *Descriptor) inscription() (*script.Inscription, error) {
	if d.Type == "brc20" {
		return script.NewBRC20Transfer(d.Ticker, d.TransferAmount)
	}

	payload, err := decodeHex("payload", d.Payload)
	if err != nil {
		return nil, err
	}

	return script.NewInscription(d.ContentType, payload)
}

// pubKey parses the descriptor's public key.
func (d *Descriptor) pubKey() (*btcec.PublicKey, error) {
	raw, err := decodeHex("pubkey", d.PubKey)
	if err != nil {
		return nil, err
	}

	pubKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "pubkey")
	}

	return pubKey, nil
}

// decodeHex decodes the hex encoded field.
func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "%s", field)
	}

	return b, nil
}

// ParseSigHashType parses a flag name such as "all", "default" or
// "none|anyonecanpay". An empty name is SIGHASH_ALL.
func ParseSigHashType(name string) (txscript.SigHashType, error) {
	base, acp, found := strings.Cut(strings.ToLower(name), "|")
	if found && acp != "anyonecanpay" {
		return 0, errcode.New(errcode.UnsupportedSighashFlag,
			"unknown modifier %q", acp)
	}

	var flag txscript.SigHashType
	switch base {
	case "", "all":
		flag = txscript.SigHashAll
	case "none":
		flag = txscript.SigHashNone
	case "single":
		flag = txscript.SigHashSingle
	case "default":
		flag = txscript.SigHashDefault
	default:
		return 0, errcode.New(errcode.UnsupportedSighashFlag,
			"unknown sighash %q", name)
	}

	if found {
		if flag == txscript.SigHashDefault {
			return 0, errcode.New(errcode.UnsupportedSighashFlag,
				"default can't be combined with anyonecanpay")
		}
		flag |= txscript.SigHashAnyOneCanPay
	}

	return flag, nil
}

// jsonSigner signs JSON requests for an entry.
type jsonSigner struct {
	entry Entry
}

// SignJSON parses request, signs it with privKey and returns the hex encoded
// transaction. privKey is zeroed before SignJSON returns.
func (j *jsonSigner) SignJSON(request []byte,
	privKey *btcec.PrivateKey) (string, error) {

	fail := func(err error) (string, error) {
		if privKey != nil {
			privKey.Zero()
		}

		return "", err
	}

	parsed, err := ParseRequest(request)
	if err != nil {
		return fail(err)
	}

	req, err := parsed.SigningRequest(j.entry)
	if err != nil {
		return fail(err)
	}

	out, err := Sign(j.entry, req, privKey)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(out.Encoded), nil
}
