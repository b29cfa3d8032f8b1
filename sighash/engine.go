// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sighash computes the digests each input of a transaction must sign.
// The algorithm is chosen per input from its spend condition, so a single
// transaction may mix legacy, segwit v0 and taproot inputs.
package sighash

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"golang.org/x/sync/errgroup"
)

// Input is the previous output spent by an input of the transaction.
type Input struct {
	// Amount is the value of the spent output. It must equal the amount
	// committed on chain or the digest will be invalid.
	Amount btcutil.Amount

	// Spend describes the spent output and how it is unlocked.
	Spend script.SpendCondition
}

// Digest is the digest of one input together with what it commits to.
type Digest struct {
	// InputIndex is the index of the signed input.
	InputIndex int

	// Hash is the 32-byte message to sign.
	Hash []byte

	// Algorithm is the algorithm that produced Hash.
	Algorithm Algorithm

	// Flag is the sighash flag committed to.
	Flag txscript.SigHashType

	// ScriptCode is the script committed to: the spent script for legacy
	// and taproot, the BIP-0143 script code for segwit v0.
	ScriptCode []byte

	// LeafHash is the tapscript leaf hash for script-path spends.
	LeafHash []byte
}

// Engine computes digests for a fixed transaction. The BIP-0143 and BIP-0341
// midstate hashes are computed once, when the engine is created. The
// transaction must not be modified while the engine is in use.
type Engine struct {
	tx      *wire.MsgTx
	inputs  []Input
	fetcher *txscript.MultiPrevOutFetcher
	hashes  *txscript.TxSigHashes
}

// NewEngine creates an engine for tx, whose inputs spend the given previous
// outputs in order.
func NewEngine(tx *wire.MsgTx, inputs []Input) (*Engine, error) {
	if tx == nil {
		return nil, errcode.New(errcode.InvalidInput, "sighash: nil tx")
	}

	if len(tx.TxIn) != len(inputs) {
		return nil, errcode.New(errcode.InvalidInput,
			"sighash: %d tx inputs but %d previous outputs",
			len(tx.TxIn), len(inputs))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range inputs {
		if in.Spend == nil {
			return nil, errcode.New(errcode.InvalidInput,
				"sighash: input %d has no spend condition", i)
		}

		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, wire.NewTxOut(
			int64(in.Amount), in.Spend.PkScript().Bytes(),
		))
	}

	return &Engine{
		tx:      tx,
		inputs:  inputs,
		fetcher: fetcher,
		hashes:  txscript.NewTxSigHashes(tx, fetcher),
	}, nil
}

// PrevOutFetcher returns the fetcher for the spent outputs.
func (e *Engine) PrevOutFetcher() txscript.PrevOutputFetcher {
	return e.fetcher
}

// SigHashes returns the cached midstate hashes.
func (e *Engine) SigHashes() *txscript.TxSigHashes {
	return e.hashes
}

// Digest computes the digest of input idx under flag.
func (e *Engine) Digest(idx int, flag txscript.SigHashType) (*Digest, error) {
	if idx < 0 || idx >= len(e.inputs) {
		return nil, errcode.New(errcode.InvalidInput,
			"sighash: input index %d out of range", idx)
	}

	in := e.inputs[idx]
	alg, err := AlgorithmFor(in.Spend)
	if err != nil {
		return nil, err
	}

	err = ValidateFlag(alg, flag, idx, len(e.tx.TxOut))
	if err != nil {
		return nil, err
	}

	digest := &Digest{
		InputIndex: idx,
		Algorithm:  alg,
		Flag:       flag,
	}

	pkScript := in.Spend.PkScript().Bytes()

	switch spend := in.Spend.(type) {
	case *script.P2PKHSpend:
		digest.ScriptCode = pkScript
		digest.Hash, err = txscript.CalcSignatureHash(
			pkScript, flag, e.tx, idx,
		)

	case *script.P2WPKHSpend:
		// The script code of a P2WPKH spend is the P2PKH script of
		// the same key hash.
		digest.ScriptCode, err = txscript.NewScriptBuilder().
			AddOp(txscript.OP_DUP).
			AddOp(txscript.OP_HASH160).
			AddData(pkScript[2:]).
			AddOp(txscript.OP_EQUALVERIFY).
			AddOp(txscript.OP_CHECKSIG).
			Script()
		if err != nil {
			break
		}

		digest.Hash, err = txscript.CalcWitnessSigHash(
			pkScript, e.hashes, flag, e.tx, idx, int64(in.Amount),
		)

	case *script.P2WSHSpend:
		digest.ScriptCode = spend.WitnessScript()
		digest.Hash, err = txscript.CalcWitnessSigHash(
			digest.ScriptCode, e.hashes, flag, e.tx, idx,
			int64(in.Amount),
		)

	case *script.P2TRKeySpend:
		digest.ScriptCode = pkScript
		digest.Hash, err = txscript.CalcTaprootSignatureHash(
			e.hashes, flag, e.tx, idx, e.fetcher,
		)

	case *script.P2TRScriptSpend:
		commit := spend.Commitment()
		digest.ScriptCode = pkScript
		digest.LeafHash = commit.LeafHash()
		digest.Hash, err = txscript.CalcTapscriptSignaturehash(
			e.hashes, flag, e.tx, idx, e.fetcher, commit.Leaf,
		)

	default:
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"sighash: unsupported spend condition %T", spend)
	}

	if err != nil {
		return nil, errcode.Wrap(errcode.SighashFailed, err,
			"input %d", idx)
	}

	return digest, nil
}

// Digests computes the digest of every input concurrently, input i under
// flags[i]. The result is in input order.
func (e *Engine) Digests(flags []txscript.SigHashType) ([]*Digest, error) {
	if len(flags) != len(e.inputs) {
		return nil, errcode.New(errcode.InvalidInput,
			"sighash: %d flags for %d inputs", len(flags),
			len(e.inputs))
	}

	digests := make([]*Digest, len(e.inputs))

	var g errgroup.Group
	for i := range e.inputs {
		g.Go(func() error {
			d, err := e.Digest(i, flags[i])
			if err != nil {
				return err
			}

			digests[i] = d

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debugf("Computed %d digests for tx %v", len(digests),
		e.tx.TxHash())

	return digests, nil
}

// Equal reports whether both digests commit to the same data.
func (d *Digest) Equal(other *Digest) bool {
	return d.InputIndex == other.InputIndex &&
		d.Algorithm == other.Algorithm && d.Flag == other.Flag &&
		bytes.Equal(d.Hash, other.Hash) &&
		bytes.Equal(d.ScriptCode, other.ScriptCode) &&
		bytes.Equal(d.LeafHash, other.LeafHash)
}
