// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package script models the locking and unlocking scripts the signing engine
// understands. It recognizes standard output templates, builds them from keys
// and hashes, describes how each supported output is spent, and constructs the
// ordinal inscription envelopes carried by taproot script-path spends.
package script

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// p2pkhLen is the length of a P2PKH script.
	p2pkhLen = 25

	// p2wpkhLen is the length of a P2WPKH script.
	p2wpkhLen = 22

	// p2wshLen is the length of a P2WSH script.
	p2wshLen = 34

	// p2trLen is the length of a P2TR script.
	p2trLen = 34
)

// Kind is the template a script follows.
type Kind uint8

const (
	// KindUnknown is a script that matches none of the known templates.
	// Such scripts can still be paid to, e.g. when decoded from an
	// address, but can't be spent by the engine.
	KindUnknown Kind = iota

	// KindP2PKH is a pay-to-public-key-hash script.
	KindP2PKH

	// KindP2WPKH is a version 0 pay-to-witness-public-key-hash script.
	KindP2WPKH

	// KindP2WSH is a version 0 pay-to-witness-script-hash script.
	KindP2WSH

	// KindP2TR is a version 1 pay-to-taproot script.
	KindP2TR

	// KindOpReturn is a provably unspendable data carrier script.
	KindOpReturn

	// KindInscription is an ordinal inscription envelope, the tapscript
	// leaf revealed in the witness of a script-path spend.
	KindInscription
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindP2PKH:
		return "p2pkh"
	case KindP2WPKH:
		return "p2wpkh"
	case KindP2WSH:
		return "p2wsh"
	case KindP2TR:
		return "p2tr"
	case KindOpReturn:
		return "op_return"
	case KindInscription:
		return "inscription"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Script is an immutable byte sequence tagged with the template it follows.
// Values built by the constructors in this package always match their kind.
type Script struct {
	kind Kind
	raw  []byte
}

// FromBytes wraps raw script bytes, tagging them with the recognized kind or
// KindUnknown. The bytes are copied.
func FromBytes(raw []byte) Script {
	return Script{
		kind: Recognize(raw).UnwrapOr(KindUnknown),
		raw:  bytes.Clone(raw),
	}
}

// Kind returns the template of the script.
func (s Script) Kind() Kind {
	return s.kind
}

// Bytes returns a copy of the script bytes.
func (s Script) Bytes() []byte {
	return bytes.Clone(s.raw)
}

// Len returns the length of the script in bytes.
func (s Script) Len() int {
	return len(s.raw)
}

// IsEmpty returns true for the zero value.
func (s Script) IsEmpty() bool {
	return len(s.raw) == 0
}

// Equal reports whether both scripts have identical bytes.
func (s Script) Equal(other Script) bool {
	return bytes.Equal(s.raw, other.raw)
}

// String returns the kind and hex encoding of the script.
func (s Script) String() string {
	return fmt.Sprintf("%v(%s)", s.kind, hex.EncodeToString(s.raw))
}

// Recognize returns the template the given bytes follow, if any. The
// templates are disjoint, so at most one kind ever matches.
func Recognize(b []byte) fn.Option[Kind] {
	switch {
	case len(b) == p2pkhLen && b[0] == txscript.OP_DUP &&
		b[1] == txscript.OP_HASH160 && b[2] == txscript.OP_DATA_20 &&
		b[23] == txscript.OP_EQUALVERIFY && b[24] == txscript.OP_CHECKSIG:

		return fn.Some(KindP2PKH)

	case len(b) == p2wpkhLen && b[0] == txscript.OP_0 &&
		b[1] == txscript.OP_DATA_20:

		return fn.Some(KindP2WPKH)

	case len(b) == p2wshLen && b[0] == txscript.OP_0 &&
		b[1] == txscript.OP_DATA_32:

		return fn.Some(KindP2WSH)

	case len(b) == p2trLen && b[0] == txscript.OP_1 &&
		b[1] == txscript.OP_DATA_32:

		return fn.Some(KindP2TR)

	case len(b) > 0 && b[0] == txscript.OP_RETURN &&
		txscript.IsPushOnlyScript(b[1:]):

		return fn.Some(KindOpReturn)
	}

	if _, err := ParseInscription(b); err == nil {
		return fn.Some(KindInscription)
	}

	return fn.None[Kind]()
}

// PayToPubKeyHash builds a P2PKH script for the given 20-byte key hash.
func PayToPubKeyHash(pubKeyHash []byte) (Script, error) {
	if len(pubKeyHash) != 20 {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2pkh: key hash must be 20 bytes, got %d",
			len(pubKeyHash))
	}

	raw, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return Script{}, errcode.Wrap(errcode.UnsupportedScriptVariant,
			err, "p2pkh")
	}

	return Script{kind: KindP2PKH, raw: raw}, nil
}

// PayToPubKey builds a P2PKH script paying to the compressed form of the key.
func PayToPubKey(pubKey *btcec.PublicKey) (Script, error) {
	if pubKey == nil {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2pkh: nil public key")
	}

	return PayToPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()))
}

// PayToWitnessPubKeyHash builds a P2WPKH script for the given 20-byte key
// hash.
func PayToWitnessPubKeyHash(pubKeyHash []byte) (Script, error) {
	if len(pubKeyHash) != 20 {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2wpkh: key hash must be 20 bytes, got %d",
			len(pubKeyHash))
	}

	raw := make([]byte, 0, p2wpkhLen)
	raw = append(raw, txscript.OP_0, txscript.OP_DATA_20)
	raw = append(raw, pubKeyHash...)

	return Script{kind: KindP2WPKH, raw: raw}, nil
}

// PayToWitnessPubKey builds a P2WPKH script paying to the compressed form of
// the key.
func PayToWitnessPubKey(pubKey *btcec.PublicKey) (Script, error) {
	if pubKey == nil {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2wpkh: nil public key")
	}

	return PayToWitnessPubKeyHash(
		btcutil.Hash160(pubKey.SerializeCompressed()),
	)
}

// PayToWitnessScriptHash builds a P2WSH script committing to the SHA256 of
// the witness script.
func PayToWitnessScriptHash(witnessScript []byte) (Script, error) {
	if len(witnessScript) == 0 {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2wsh: empty witness script")
	}

	raw := make([]byte, 0, p2wshLen)
	raw = append(raw, txscript.OP_0, txscript.OP_DATA_32)
	raw = append(raw, chainhash.HashB(witnessScript)...)

	return Script{kind: KindP2WSH, raw: raw}, nil
}

// PayToTaprootKey builds a BIP-0086 P2TR script for the internal key, i.e.
// the output key commits to no script tree.
func PayToTaprootKey(internalKey *btcec.PublicKey) (Script, error) {
	if internalKey == nil {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2tr: nil internal key")
	}

	return PayToTaprootOutputKey(
		txscript.ComputeTaprootKeyNoScript(internalKey),
	)
}

// PayToTaprootOutputKey builds a P2TR script for an already tweaked output
// key.
func PayToTaprootOutputKey(outputKey *btcec.PublicKey) (Script, error) {
	if outputKey == nil {
		return Script{}, errcode.New(errcode.InvalidInput,
			"p2tr: nil output key")
	}

	raw, err := txscript.PayToTaprootScript(outputKey)
	if err != nil {
		return Script{}, errcode.Wrap(errcode.UnsupportedScriptVariant,
			err, "p2tr")
	}

	return Script{kind: KindP2TR, raw: raw}, nil
}

// NullData builds an OP_RETURN script carrying data. The payload is limited
// to the standard relay size.
func NullData(data []byte) (Script, error) {
	raw, err := txscript.NullDataScript(data)
	if err != nil {
		return Script{}, errcode.Wrap(errcode.UnsupportedScriptVariant,
			err, "op_return")
	}

	return Script{kind: KindOpReturn, raw: raw}, nil
}

// xOnly returns the BIP-0340 serialization of the key.
func xOnly(pubKey *btcec.PublicKey) []byte {
	return schnorr.SerializePubKey(pubKey)
}
