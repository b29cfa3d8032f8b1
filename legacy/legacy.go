// Package legacy is a compatibility layer for callers of the older
// build-and-sign interface. Requests and results cross the boundary as owned
// byte slices holding TLV records, so no caller ever shares memory with the
// signing engine.
package legacy

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/coin"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/lightningnetwork/lnd/tlv"
)

const (
	outputValueType  tlv.Type = 0
	outputScriptType tlv.Type = 2

	inputPrivKeyType tlv.Type = 0
	inputTxIDType    tlv.Type = 2
	inputIndexType   tlv.Type = 4
	inputUTXOType    tlv.Type = 6
	inputSendType    tlv.Type = 8
)

// ErrScriptKeyMismatch is returned when the spent script is not the P2PKH
// script of the signing key.
var ErrScriptKeyMismatch = errors.New("utxo script does not match key")

// Output is a transaction output record.
type Output struct {
	// Value is the output amount.
	Value btcutil.Amount

	// Script is the locking script.
	Script script.Script
}

// Encode serializes the output as a TLV stream.
func (o *Output) Encode() ([]byte, error) {
	if o.Value < 0 {
		return nil, errcode.New(errcode.InvalidInput,
			"negative output value %v", o.Value)
	}

	value := uint64(o.Value)
	pkScript := o.Script.Bytes()

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(outputValueType, &value),
		tlv.MakePrimitiveRecord(outputScriptType, &pkScript),
	)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if err := stream.Encode(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// DecodeOutput parses an output record.
func DecodeOutput(b []byte) (*Output, error) {
	var (
		value    uint64
		pkScript []byte
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(outputValueType, &value),
		tlv.MakePrimitiveRecord(outputScriptType, &pkScript),
	)
	if err != nil {
		return nil, err
	}

	parsed, err := stream.DecodeWithParsedTypes(bytes.NewReader(b))
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "output")
	}

	if _, ok := parsed[outputValueType]; !ok {
		return nil, errcode.New(errcode.InvalidInput,
			"output: missing value")
	}

	if value > btcutil.MaxSatoshi {
		return nil, errcode.New(errcode.InvalidInput,
			"output: value %d out of range", value)
	}

	return &Output{
		Value:  btcutil.Amount(value),
		Script: script.FromBytes(pkScript),
	}, nil
}

// BuildP2PKHOutput returns the output record paying amount to the P2PKH
// script of the serialized public key.
func BuildP2PKHOutput(amount int64, pubKey []byte) ([]byte, error) {
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "pubkey")
	}

	pkScript, err := script.PayToPubKey(key)
	if err != nil {
		return nil, err
	}

	out := &Output{Value: btcutil.Amount(amount), Script: pkScript}

	return out.Encode()
}

// SigningInput is a single input, single output legacy signing request.
// Any value the inputs do not send is left to the miner.
type SigningInput struct {
	// PrivKey is the key controlling the spent output.
	PrivKey [32]byte

	// OutPoint is the spent output.
	OutPoint wire.OutPoint

	// UTXO is the spent output record, which must pay to the P2PKH
	// script of PrivKey.
	UTXO []byte

	// Send is the output record to create.
	Send []byte
}

// Encode serializes the signing input as a TLV stream.
func (s *SigningInput) Encode() ([]byte, error) {
	txid := [32]byte(s.OutPoint.Hash)
	index := s.OutPoint.Index

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(inputPrivKeyType, &s.PrivKey),
		tlv.MakePrimitiveRecord(inputTxIDType, &txid),
		tlv.MakePrimitiveRecord(inputIndexType, &index),
		tlv.MakePrimitiveRecord(inputUTXOType, &s.UTXO),
		tlv.MakePrimitiveRecord(inputSendType, &s.Send),
	)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if err := stream.Encode(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// decodeSigningInput parses a signing input record.
func decodeSigningInput(b []byte) (*SigningInput, error) {
	var (
		in    SigningInput
		txid  [32]byte
		index uint32
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(inputPrivKeyType, &in.PrivKey),
		tlv.MakePrimitiveRecord(inputTxIDType, &txid),
		tlv.MakePrimitiveRecord(inputIndexType, &index),
		tlv.MakePrimitiveRecord(inputUTXOType, &in.UTXO),
		tlv.MakePrimitiveRecord(inputSendType, &in.Send),
	)
	if err != nil {
		return nil, err
	}

	if err := stream.Decode(bytes.NewReader(b)); err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err,
			"signing input")
	}

	in.OutPoint = wire.OutPoint{Hash: chainhash.Hash(txid), Index: index}

	return &in, nil
}

// BuildAndSign decodes a signing input record, signs the transaction it
// describes on the Bitcoin main network and returns the serialized result.
// The private key is wiped from every copy made along the way.
func BuildAndSign(input []byte) ([]byte, error) {
	in, err := decodeSigningInput(input)
	if err != nil {
		return nil, err
	}

	privKey, pubKey := btcec.PrivKeyFromBytes(in.PrivKey[:])
	clear(in.PrivKey[:])

	req, err := signingRequest(in, pubKey)
	if err != nil {
		privKey.Zero()
		return nil, err
	}

	out, err := coin.Sign(
		coin.NewBitcoin(&chaincfg.MainNetParams), req, privKey,
	)
	if err != nil {
		return nil, err
	}

	return out.Encoded, nil
}

// signingRequest builds the request of a decoded signing input.
func signingRequest(in *SigningInput,
	pubKey *btcec.PublicKey) (*utxo.SigningRequest, error) {

	spent, err := DecodeOutput(in.UTXO)
	if err != nil {
		return nil, err
	}

	send, err := DecodeOutput(in.Send)
	if err != nil {
		return nil, err
	}

	spend, err := script.NewP2PKHSpend(pubKey)
	if err != nil {
		return nil, err
	}

	if !spend.PkScript().Equal(spent.Script) {
		return nil, errcode.Wrap(errcode.UnsupportedScriptVariant,
			ErrScriptKeyMismatch, "%v", spent.Script)
	}

	return &utxo.SigningRequest{
		Version: 2,
		Inputs: []utxo.TxInput{{
			OutPoint:    in.OutPoint,
			Amount:      spent.Value,
			Sequence:    wire.MaxTxInSequenceNum,
			SigHashType: txscript.SigHashAll,
			Spend:       spend,
		}},
		Outputs: []utxo.TxOutput{{
			Amount: send.Value,
			Script: send.Script,
		}},
		DisableChange: true,
	}, nil
}
