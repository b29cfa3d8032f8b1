// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo holds the data model shared by the planner, compiler and
// signer: the signing request a caller describes, the plan derived from it,
// the preimages handed to an external signer and the final signed output.
//
// Values are never mutated once built. Every stage returns a new value and
// copies what it keeps from its input.
package utxo

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/sighash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// TxInput is a candidate input of a signing request.
type TxInput struct {
	// OutPoint is the spent output. The hash is in internal byte order,
	// the reverse of the displayed txid.
	OutPoint wire.OutPoint

	// Amount is the value of the spent output. It must equal the amount
	// committed on chain.
	Amount btcutil.Amount

	// Sequence is the input's sequence number.
	Sequence uint32

	// SigHashType is the flag the input is signed with.
	SigHashType txscript.SigHashType

	// Spend describes the spent output and how it is unlocked.
	Spend script.SpendCondition
}

// TxOutput is an output of a signing request.
type TxOutput struct {
	// Amount is the value of the output.
	Amount btcutil.Amount

	// Script is the locking script of the recipient.
	Script script.Script
}

// InputSelector decides which candidate inputs a plan spends. It is a sealed
// interface implemented by SelectAll and SelectMinimal.
type InputSelector interface {
	isInputSelector()
}

// SelectAll spends every candidate input in the caller's order.
type SelectAll struct{}

// isInputSelector seals the interface.
func (SelectAll) isInputSelector() {}

// SelectMinimal spends the fewest inputs covering the outputs and fee,
// picking the largest values first. Inputs of equal value are picked in the
// caller's order, and the selected inputs keep the caller's order in the
// plan.
type SelectMinimal struct{}

// isInputSelector seals the interface.
func (SelectMinimal) isInputSelector() {}

// Compile-time checks to ensure the selectors satisfy the interface.
var (
	_ InputSelector = SelectAll{}
	_ InputSelector = SelectMinimal{}
)

// SigningRequest is the chain-agnostic description of a transaction to
// build.
type SigningRequest struct {
	// Version is the transaction version.
	Version int32

	// LockTime is the transaction lock time.
	LockTime uint32

	// Inputs are the candidate inputs.
	Inputs []TxInput

	// Outputs are the requested outputs, in order.
	Outputs []TxOutput

	// FeeRate is the fee rate to pay.
	FeeRate btcunit.SatPerVByte

	// Selector is the input selection policy. Nil means SelectAll.
	Selector InputSelector

	// ChangeScript overrides the chain's default change destination.
	ChangeScript fn.Option[script.Script]

	// DisableChange skips the change output. The fee then absorbs any
	// excess value.
	DisableChange bool
}

// Preimage is the digest one input must sign, with enough context for an
// external signer to verify what it commits to.
type Preimage struct {
	sighash.Digest

	// Amount is the value of the spent output.
	Amount btcutil.Amount

	// PkScript is the spent output script.
	PkScript script.Script

	// PubKey is the key expected to sign. For key-path taproot inputs it
	// is the internal key and the signer applies the BIP-0086 tweak.
	PubKey *btcec.PublicKey
}

// PreSigningOutput is the result of the preimage phase.
type PreSigningOutput struct {
	// Preimages holds one entry per input, in input order.
	Preimages []*Preimage

	// WeightProjection is the projected weight of the signed transaction.
	WeightProjection btcunit.WeightUnit

	// FeeProjection is the fee paid at the projected weight.
	FeeProjection btcutil.Amount
}

// SigningOutput is a finalized transaction.
type SigningOutput struct {
	// Encoded is the transaction in its canonical wire encoding.
	Encoded []byte

	// Tx is the structured view of the transaction.
	Tx *wire.MsgTx

	// TxID is the transaction hash.
	TxID chainhash.Hash

	// WTxID is the witness transaction hash.
	WTxID chainhash.Hash

	// Weight is the realized weight.
	Weight btcunit.WeightUnit

	// Fee is the fee paid at the realized weight and plan fee rate.
	Fee btcutil.Amount
}
