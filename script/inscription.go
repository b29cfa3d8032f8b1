// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/utxocore/errcode"
)

const (
	// ordProtocolTag identifies an ordinal envelope.
	ordProtocolTag = "ord"

	// contentTypeTag is the field tag preceding the content type.
	contentTypeTag = 0x01

	// BRC20ContentType is the content type of BRC-20 operations.
	BRC20ContentType = "text/plain;charset=utf-8"

	// BRC20TickerLen is the length of a BRC-20 ticker in bytes.
	BRC20TickerLen = 4
)

var (
	// errNotEnvelope is returned when a script is not an ordinal
	// envelope.
	errNotEnvelope = errors.New("not an inscription envelope")
)

// Inscription is a piece of content inscribed through an ordinal envelope.
// The envelope is revealed as the tapscript leaf of a script-path spend:
//
//	OP_FALSE OP_IF "ord" 0x01 <content type> OP_0 <payload chunks> OP_ENDIF
//
// Payload chunks are at most txscript.MaxScriptElementSize bytes each.
type Inscription struct {
	contentType string
	payload     []byte
}

// NewInscription creates an inscription of the given content.
func NewInscription(contentType string,
	payload []byte) (*Inscription, error) {

	if contentType == "" {
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"inscription: empty content type")
	}

	if len(contentType) > txscript.MaxScriptElementSize {
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"inscription: content type exceeds %d bytes",
			txscript.MaxScriptElementSize)
	}

	if len(payload) == 0 {
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"inscription: empty payload")
	}

	return &Inscription{
		contentType: contentType,
		payload:     bytes.Clone(payload),
	}, nil
}

// brc20Transfer is the JSON body of a BRC-20 transfer. Field order is part of
// the inscribed bytes.
type brc20Transfer struct {
	Protocol string `json:"p"`
	Op       string `json:"op"`
	Ticker   string `json:"tick"`
	Amount   string `json:"amt"`
}

// NewBRC20Transfer creates the inscription of a BRC-20 transfer of amount
// units of ticker.
func NewBRC20Transfer(ticker string, amount uint64) (*Inscription, error) {
	if len(ticker) != BRC20TickerLen {
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"brc20: ticker must be %d bytes, got %d",
			BRC20TickerLen, len(ticker))
	}

	if amount == 0 {
		return nil, errcode.New(errcode.InvalidInput,
			"brc20: zero transfer amount")
	}

	body, err := json.Marshal(brc20Transfer{
		Protocol: "brc-20",
		Op:       "transfer",
		Ticker:   ticker,
		Amount:   strconv.FormatUint(amount, 10),
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "brc20")
	}

	return NewInscription(BRC20ContentType, body)
}

// ContentType returns the content type of the inscription.
func (i *Inscription) ContentType() string {
	return i.contentType
}

// Payload returns a copy of the inscribed content.
func (i *Inscription) Payload() []byte {
	return bytes.Clone(i.payload)
}

// Envelope returns the tapscript leaf carrying the inscription.
func (i *Inscription) Envelope() Script {
	raw := []byte{txscript.OP_FALSE, txscript.OP_IF}
	raw = appendPush(raw, []byte(ordProtocolTag))
	raw = appendPush(raw, []byte{contentTypeTag})
	raw = appendPush(raw, []byte(i.contentType))
	raw = append(raw, txscript.OP_0)

	for rest := i.payload; len(rest) > 0; {
		n := min(len(rest), txscript.MaxScriptElementSize)
		raw = appendPush(raw, rest[:n])
		rest = rest[n:]
	}

	raw = append(raw, txscript.OP_ENDIF)

	return Script{kind: KindInscription, raw: raw}
}

// Commit commits the envelope to a taproot output whose internal key is the
// inscriber's key. Paying to the returned commitment's PkScript is the commit
// transaction; spending it through the leaf reveals the inscription.
func (i *Inscription) Commit(
	inscriber *btcec.PublicKey) (*TapCommitment, error) {

	return CommitLeaf(inscriber, i.Envelope().raw)
}

// ParseInscription recovers the inscription carried by an envelope leaf, e.g.
// one taken from the witness of a reveal transaction. Data following the
// closing OP_ENDIF is ignored.
func ParseInscription(leaf []byte) (*Inscription, error) {
	tok := txscript.MakeScriptTokenizer(0, leaf)

	// next advances the tokenizer and checks the opcode.
	next := func(op byte) bool {
		return tok.Next() && tok.Opcode() == op
	}

	if !next(txscript.OP_FALSE) || !next(txscript.OP_IF) {
		return nil, errNotEnvelope
	}

	if !tok.Next() || string(tok.Data()) != ordProtocolTag {
		return nil, errNotEnvelope
	}

	// The content type tag is pushed as data, though some inscribers use
	// OP_1 instead.
	if !tok.Next() {
		return nil, errNotEnvelope
	}
	isTag := tok.Opcode() == txscript.OP_1 ||
		bytes.Equal(tok.Data(), []byte{contentTypeTag})
	if !isTag {
		return nil, errNotEnvelope
	}

	if !tok.Next() || len(tok.Data()) == 0 {
		return nil, errNotEnvelope
	}
	contentType := string(tok.Data())

	if !next(txscript.OP_0) {
		return nil, errNotEnvelope
	}

	var payload []byte
	for {
		if !tok.Next() {
			return nil, errNotEnvelope
		}

		if tok.Opcode() == txscript.OP_ENDIF {
			break
		}

		if tok.Opcode() > txscript.OP_PUSHDATA4 {
			return nil, errNotEnvelope
		}

		payload = append(payload, tok.Data()...)
	}

	if len(payload) == 0 {
		return nil, errNotEnvelope
	}

	return &Inscription{contentType: contentType, payload: payload}, nil
}
