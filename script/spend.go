// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
)

// SpendCondition describes how an output controlled by a single key is
// spent. It is a sealed union: P2PKHSpend, P2WPKHSpend, P2WSHSpend,
// P2TRKeySpend and P2TRScriptSpend are its only members, so consumers can
// switch over it exhaustively.
type SpendCondition interface {
	// Kind returns the template of the output being spent.
	Kind() Kind

	// PkScript returns the output script being spent.
	PkScript() Script

	// PubKey returns the key whose private counterpart signs the input.
	// For key-path taproot spends this is the internal key, before
	// tweaking.
	PubKey() *btcec.PublicKey

	// Unlock assembles the scriptSig and witness for the input given its
	// serialized signature, sighash flag included where the algorithm
	// appends one.
	Unlock(sig []byte) ([]byte, wire.TxWitness, error)

	// isSpendCondition seals the interface.
	isSpendCondition()
}

// Compile-time checks to ensure every spend condition satisfies the
// interface.
var (
	_ SpendCondition = (*P2PKHSpend)(nil)
	_ SpendCondition = (*P2WPKHSpend)(nil)
	_ SpendCondition = (*P2WSHSpend)(nil)
	_ SpendCondition = (*P2TRKeySpend)(nil)
	_ SpendCondition = (*P2TRScriptSpend)(nil)
)

// P2PKHSpend spends a pay-to-public-key-hash output.
type P2PKHSpend struct {
	pubKey   *btcec.PublicKey
	pkScript Script
}

// NewP2PKHSpend returns the spend condition of a P2PKH output paying to the
// compressed key.
func NewP2PKHSpend(pubKey *btcec.PublicKey) (*P2PKHSpend, error) {
	pkScript, err := PayToPubKey(pubKey)
	if err != nil {
		return nil, err
	}

	return &P2PKHSpend{pubKey: pubKey, pkScript: pkScript}, nil
}

// Kind returns KindP2PKH.
func (s *P2PKHSpend) Kind() Kind { return KindP2PKH }

// PkScript returns the spent script.
func (s *P2PKHSpend) PkScript() Script { return s.pkScript }

// PubKey returns the signing key.
func (s *P2PKHSpend) PubKey() *btcec.PublicKey { return s.pubKey }

// Unlock builds the `<sig> <pubkey>` scriptSig.
func (s *P2PKHSpend) Unlock(sig []byte) ([]byte, wire.TxWitness, error) {
	sigScript, err := txscript.NewScriptBuilder().
		AddData(sig).
		AddData(s.pubKey.SerializeCompressed()).
		Script()
	if err != nil {
		return nil, nil, errcode.Wrap(errcode.UnsupportedScriptVariant,
			err, "p2pkh unlock")
	}

	return sigScript, nil, nil
}

func (s *P2PKHSpend) isSpendCondition() {}

// P2WPKHSpend spends a version 0 pay-to-witness-public-key-hash output.
type P2WPKHSpend struct {
	pubKey   *btcec.PublicKey
	pkScript Script
}

// NewP2WPKHSpend returns the spend condition of a P2WPKH output paying to the
// compressed key.
func NewP2WPKHSpend(pubKey *btcec.PublicKey) (*P2WPKHSpend, error) {
	pkScript, err := PayToWitnessPubKey(pubKey)
	if err != nil {
		return nil, err
	}

	return &P2WPKHSpend{pubKey: pubKey, pkScript: pkScript}, nil
}

// Kind returns KindP2WPKH.
func (s *P2WPKHSpend) Kind() Kind { return KindP2WPKH }

// PkScript returns the spent script.
func (s *P2WPKHSpend) PkScript() Script { return s.pkScript }

// PubKey returns the signing key.
func (s *P2WPKHSpend) PubKey() *btcec.PublicKey { return s.pubKey }

// Unlock builds the `<sig> <pubkey>` witness.
func (s *P2WPKHSpend) Unlock(sig []byte) ([]byte, wire.TxWitness, error) {
	return nil, wire.TxWitness{
		bytes.Clone(sig), s.pubKey.SerializeCompressed(),
	}, nil
}

func (s *P2WPKHSpend) isSpendCondition() {}

// P2WSHSpend spends a version 0 pay-to-witness-script-hash output whose
// witness script needs a single signature.
type P2WSHSpend struct {
	pubKey        *btcec.PublicKey
	witnessScript []byte
	pkScript      Script
}

// NewP2WSHSpend returns the spend condition of a P2WSH output. A nil witness
// script defaults to `<pubkey> OP_CHECKSIG`.
func NewP2WSHSpend(pubKey *btcec.PublicKey,
	witnessScript []byte) (*P2WSHSpend, error) {

	if pubKey == nil {
		return nil, errcode.New(errcode.InvalidInput,
			"p2wsh: nil public key")
	}

	if witnessScript == nil {
		var err error
		witnessScript, err = txscript.NewScriptBuilder().
			AddData(pubKey.SerializeCompressed()).
			AddOp(txscript.OP_CHECKSIG).
			Script()
		if err != nil {
			return nil, errcode.Wrap(
				errcode.UnsupportedScriptVariant, err,
				"p2wsh script",
			)
		}
	}

	pkScript, err := PayToWitnessScriptHash(witnessScript)
	if err != nil {
		return nil, err
	}

	return &P2WSHSpend{
		pubKey:        pubKey,
		witnessScript: bytes.Clone(witnessScript),
		pkScript:      pkScript,
	}, nil
}

// Kind returns KindP2WSH.
func (s *P2WSHSpend) Kind() Kind { return KindP2WSH }

// PkScript returns the spent script.
func (s *P2WSHSpend) PkScript() Script { return s.pkScript }

// PubKey returns the signing key.
func (s *P2WSHSpend) PubKey() *btcec.PublicKey { return s.pubKey }

// WitnessScript returns the script committed to by the output.
func (s *P2WSHSpend) WitnessScript() []byte {
	return bytes.Clone(s.witnessScript)
}

// Unlock builds the `<sig> <witness script>` witness.
func (s *P2WSHSpend) Unlock(sig []byte) ([]byte, wire.TxWitness, error) {
	return nil, wire.TxWitness{
		bytes.Clone(sig), bytes.Clone(s.witnessScript),
	}, nil
}

func (s *P2WSHSpend) isSpendCondition() {}

// P2TRKeySpend spends a BIP-0086 taproot output through the key path.
type P2TRKeySpend struct {
	internalKey *btcec.PublicKey
	outputKey   *btcec.PublicKey
	pkScript    Script
}

// NewP2TRKeySpend returns the key-path spend condition of the BIP-0086
// output of internalKey.
func NewP2TRKeySpend(internalKey *btcec.PublicKey) (*P2TRKeySpend, error) {
	if internalKey == nil {
		return nil, errcode.New(errcode.InvalidInput,
			"p2tr: nil internal key")
	}

	outputKey := txscript.ComputeTaprootKeyNoScript(internalKey)
	pkScript, err := PayToTaprootOutputKey(outputKey)
	if err != nil {
		return nil, err
	}

	return &P2TRKeySpend{
		internalKey: internalKey,
		outputKey:   outputKey,
		pkScript:    pkScript,
	}, nil
}

// Kind returns KindP2TR.
func (s *P2TRKeySpend) Kind() Kind { return KindP2TR }

// PkScript returns the spent script.
func (s *P2TRKeySpend) PkScript() Script { return s.pkScript }

// PubKey returns the internal key.
func (s *P2TRKeySpend) PubKey() *btcec.PublicKey { return s.internalKey }

// OutputKey returns the tweaked key signatures are verified against.
func (s *P2TRKeySpend) OutputKey() *btcec.PublicKey { return s.outputKey }

// Unlock builds the single-element `<sig>` witness.
func (s *P2TRKeySpend) Unlock(sig []byte) ([]byte, wire.TxWitness, error) {
	return nil, wire.TxWitness{bytes.Clone(sig)}, nil
}

func (s *P2TRKeySpend) isSpendCondition() {}

// P2TRScriptSpend spends a taproot output through its only leaf, signing
// with the untweaked internal key.
type P2TRScriptSpend struct {
	commit *TapCommitment
}

// NewP2TRScriptSpend returns the script-path spend condition of the output
// committing to leafScript under internalKey.
func NewP2TRScriptSpend(internalKey *btcec.PublicKey,
	leafScript []byte) (*P2TRScriptSpend, error) {

	commit, err := CommitLeaf(internalKey, leafScript)
	if err != nil {
		return nil, err
	}

	return &P2TRScriptSpend{commit: commit}, nil
}

// NewInscriptionSpend returns the spend condition revealing inscription from
// the commit output of inscriber.
func NewInscriptionSpend(inscriber *btcec.PublicKey,
	inscription *Inscription) (*P2TRScriptSpend, error) {

	if inscription == nil {
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"inscription spend: nil inscription")
	}

	commit, err := inscription.Commit(inscriber)
	if err != nil {
		return nil, err
	}

	return &P2TRScriptSpend{commit: commit}, nil
}

// Kind returns KindP2TR.
func (s *P2TRScriptSpend) Kind() Kind { return KindP2TR }

// PkScript returns the spent script.
func (s *P2TRScriptSpend) PkScript() Script { return s.commit.PkScript }

// PubKey returns the internal key.
func (s *P2TRScriptSpend) PubKey() *btcec.PublicKey {
	return s.commit.InternalKey
}

// Commitment returns the taproot commitment being spent.
func (s *P2TRScriptSpend) Commitment() *TapCommitment {
	return s.commit
}

// Unlock builds the `<sig> <leaf script> <control block>` witness.
func (s *P2TRScriptSpend) Unlock(sig []byte) ([]byte, wire.TxWitness, error) {
	return nil, wire.TxWitness{
		bytes.Clone(sig),
		bytes.Clone(s.commit.Leaf.Script),
		bytes.Clone(s.commit.ControlBlock),
	}, nil
}

func (s *P2TRScriptSpend) isSpendCondition() {}

// SamePubKey reports whether key matches the signing key of the spend
// condition. Taproot keys are compared in their x-only form.
func SamePubKey(spend SpendCondition, key *btcec.PublicKey) bool {
	if key == nil {
		return false
	}

	switch spend.(type) {
	case *P2TRKeySpend, *P2TRScriptSpend:
		return bytes.Equal(xOnly(spend.PubKey()), xOnly(key))

	default:
		return spend.PubKey().IsEqual(key)
	}
}
