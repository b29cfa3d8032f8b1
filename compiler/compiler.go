// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package compiler turns signing plans into signed transactions in two
// independent phases. PreimageHashes computes the digest of every input
// without touching key material. Compile takes the signatures produced over
// those digests, by this process or by an external signer, verifies them and
// assembles the final transaction.
package compiler

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/sighash"
	"github.com/btcsuite/utxocore/txcodec"
	"github.com/btcsuite/utxocore/utxo"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNilPlan is returned when a nil plan is compiled.
	ErrNilPlan = errors.New("nil signing plan")

	// ErrPubKeyMismatch is returned when a supplied public key is not the
	// key of the input's spend condition.
	ErrPubKeyMismatch = errors.New("public key does not match input")

	// ErrSigVerify is returned when a signature does not verify against
	// its digest.
	ErrSigVerify = errors.New("signature verification failed")

	// ErrHighS is returned for an ECDSA signature whose S value is above
	// half the curve order. Such signatures are valid but not relayed.
	ErrHighS = errors.New("signature has high S value")
)

// DefaultWeightTolerance is how far, in weight units, the realized weight may
// fall short of the projection before a warning is logged. ECDSA signatures
// are projected at their maximal low-S size, so a shorter R or S value makes
// the signed transaction slightly lighter than projected.
var DefaultWeightTolerance = btcunit.NewWeightUnit(2)

// Config tunes the compiler.
type Config struct {
	// WeightTolerance bounds the accepted gap between projected and
	// realized weight. A larger gap is logged, not rejected: the plan's
	// fee was fixed when the change amount was computed.
	WeightTolerance btcunit.WeightUnit
}

// DefaultConfig returns the default compiler configuration.
func DefaultConfig() Config {
	return Config{WeightTolerance: DefaultWeightTolerance}
}

// Compiler computes preimages and assembles signed transactions.
type Compiler struct {
	cfg Config
}

// New creates a compiler with the given configuration.
func New(cfg Config) *Compiler {
	return &Compiler{cfg: cfg}
}

// PreimageHashes computes the preimages of plan with the default
// configuration.
func PreimageHashes(plan *utxo.SigningPlan) (*utxo.PreSigningOutput, error) {
	return New(DefaultConfig()).PreimageHashes(plan)
}

// Compile assembles the signed transaction of plan with the default
// configuration.
func Compile(plan *utxo.SigningPlan, sigs [][]byte,
	pubKeys []*btcec.PublicKey) (*utxo.SigningOutput, error) {

	return New(DefaultConfig()).Compile(plan, sigs, pubKeys)
}

// PreimageHashes returns one preimage per input of plan, in input order,
// together with the plan's weight and fee projection.
func (c *Compiler) PreimageHashes(
	plan *utxo.SigningPlan) (*utxo.PreSigningOutput, error) {

	if plan == nil {
		return nil, errcode.Wrap(errcode.InvalidInput, ErrNilPlan,
			"preimage")
	}

	digests, err := digestsOf(plan)
	if err != nil {
		return nil, err
	}

	preimages := make([]*utxo.Preimage, len(digests))
	for i, d := range digests {
		in := plan.Inputs[i]
		preimages[i] = &utxo.Preimage{
			Digest:   *d,
			Amount:   in.Amount,
			PkScript: in.Spend.PkScript(),
			PubKey:   in.Spend.PubKey(),
		}
	}

	return &utxo.PreSigningOutput{
		Preimages:        preimages,
		WeightProjection: plan.Weight,
		FeeProjection:    plan.Fee,
	}, nil
}

// Compile verifies sigs against the plan's digests and assembles the signed
// transaction. sigs and pubKeys align 1:1 with the plan's inputs. ECDSA
// signatures are DER encoded and Schnorr signatures are 64 bytes, in both
// cases without the sighash byte, which is appended from the input's flag.
//
// A single invalid signature fails the whole call with InvalidSignature and
// no transaction is returned.
func (c *Compiler) Compile(plan *utxo.SigningPlan, sigs [][]byte,
	pubKeys []*btcec.PublicKey) (*utxo.SigningOutput, error) {

	if plan == nil {
		return nil, errcode.Wrap(errcode.InvalidInput, ErrNilPlan,
			"compile")
	}

	if len(sigs) != len(plan.Inputs) || len(pubKeys) != len(plan.Inputs) {
		return nil, errcode.New(errcode.SignaturesCountMismatch,
			"%d signatures and %d public keys for %d inputs",
			len(sigs), len(pubKeys), len(plan.Inputs))
	}

	digests, err := digestsOf(plan)
	if err != nil {
		return nil, err
	}

	// Verify every input concurrently, then attach the sighash byte.
	unlockSigs := make([][]byte, len(sigs))

	var g errgroup.Group
	for i := range plan.Inputs {
		g.Go(func() error {
			spend := plan.Inputs[i].Spend
			if !script.SamePubKey(spend, pubKeys[i]) {
				return errcode.Wrap(errcode.InvalidSignature,
					ErrPubKeyMismatch, "input %d", i)
			}

			err := verify(spend, digests[i], sigs[i])
			if err != nil {
				return errcode.Wrap(errcode.InvalidSignature,
					err, "input %d", i)
			}

			unlockSigs[i] = sighash.AppendFlag(
				digests[i].Algorithm, sigs[i], digests[i].Flag,
			)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tx, err := plan.Assemble(unlockSigs)
	if err != nil {
		return nil, err
	}

	encoded, err := txcodec.Encode(tx, true)
	if err != nil {
		return nil, err
	}

	weight := txcodec.Weight(tx)
	c.checkProjection(plan.Weight, weight)

	out := &utxo.SigningOutput{
		Encoded: encoded,
		Tx:      tx,
		TxID:    tx.TxHash(),
		WTxID:   tx.WitnessHash(),
		Weight:  weight,
		Fee:     plan.FeeRate.FeeForWeight(weight),
	}

	log.Infof("Compiled tx %v: weight=%v, fee=%v", out.TxID, out.Weight,
		out.Fee)

	return out, nil
}

// checkProjection logs when the realized weight strays from the projection
// by more than the configured tolerance.
func (c *Compiler) checkProjection(projected, realized btcunit.WeightUnit) {
	switch {
	case realized.Val() > projected.Val():
		log.Warnf("Realized weight %v exceeds projection %v", realized,
			projected)

	case projected.Val()-realized.Val() > c.cfg.WeightTolerance.Val():
		log.Warnf("Realized weight %v is below projection %v by more "+
			"than %v", realized, projected, c.cfg.WeightTolerance)
	}
}

// digestsOf computes the digest of every input of plan.
func digestsOf(plan *utxo.SigningPlan) ([]*sighash.Digest, error) {
	engine, err := sighash.NewEngine(
		plan.UnsignedTx(), plan.SighashInputs(),
	)
	if err != nil {
		return nil, err
	}

	return engine.Digests(plan.Flags())
}

// verify checks sig against the digest using the key implied by the spend
// condition.
func verify(spend script.SpendCondition, digest *sighash.Digest,
	sig []byte) error {

	switch spend := spend.(type) {
	case *script.P2PKHSpend, *script.P2WPKHSpend, *script.P2WSHSpend:
		parsed, err := ecdsa.ParseDERSignature(sig)
		if err != nil {
			return err
		}

		sVal := parsed.S()
		if sVal.IsOverHalfOrder() {
			return ErrHighS
		}

		if !parsed.Verify(digest.Hash, spend.PubKey()) {
			return ErrSigVerify
		}

	case *script.P2TRKeySpend:
		return verifySchnorr(sig, digest.Hash, spend.OutputKey())

	case *script.P2TRScriptSpend:
		return verifySchnorr(sig, digest.Hash, spend.PubKey())

	default:
		return errcode.New(errcode.UnsupportedScriptVariant,
			"unsupported spend condition %T", spend)
	}

	return nil
}

// verifySchnorr checks a 64-byte BIP-0340 signature.
func verifySchnorr(sig, hash []byte, pubKey *btcec.PublicKey) error {
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return err
	}

	if !parsed.Verify(hash, pubKey) {
		return ErrSigVerify
	}

	return nil
}
