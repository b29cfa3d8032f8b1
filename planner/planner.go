// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package planner turns a signing request into a signing plan: it selects the
// inputs to spend, attaches a change output and projects the weight and fee
// of the signed transaction before any signature exists.
//
// Weight is projected by assembling the transaction with placeholder
// signatures of the size the real ones are expected to have (see
// sighash.PlaceholderSignature) and measuring it with the codec, so the
// projection follows the exact same unlocking-data path as the final
// transaction.
package planner

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/sighash"
	"github.com/btcsuite/utxocore/txcodec"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrNilRequest is returned when a nil request is planned.
	ErrNilRequest = errors.New("nil signing request")

	// ErrUnsupportedSelector is returned when the request's selector is
	// not one of the known policies.
	ErrUnsupportedSelector = errors.New("unsupported input selector")

	// ErrFeeTooHigh is returned when the projected fee exceeds the
	// total money supply.
	ErrFeeTooHigh = errors.New("projected fee exceeds max money")
)

// DefaultDustRelayFee is the relay fee, in sat/kvB, used to decide whether a
// change output is dust.
var DefaultDustRelayFee = txrules.DefaultRelayFeePerKb

// Config tunes the planner.
type Config struct {
	// DustRelayFee is the relay fee, in sat/kvB, below which a change
	// output is considered dust and dropped.
	DustRelayFee btcutil.Amount
}

// DefaultConfig returns the default planner configuration.
func DefaultConfig() Config {
	return Config{DustRelayFee: DefaultDustRelayFee}
}

// Planner builds signing plans.
type Planner struct {
	cfg Config
}

// New creates a planner with the given configuration.
func New(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan builds a plan with the default configuration.
func Plan(req *utxo.SigningRequest,
	change fn.Option[script.Script]) (*utxo.SigningPlan, error) {

	return New(DefaultConfig()).Plan(req, change)
}

// Plan builds the signing plan of req. The change argument is the chain's
// default change script, used when change is enabled and the request carries
// no override.
//
// The returned plan satisfies `inputs >= outputs + fee`. When no selection
// can satisfy it, an error with code InsufficientFunds is returned and no
// plan is built.
func (p *Planner) Plan(req *utxo.SigningRequest,
	change fn.Option[script.Script]) (*utxo.SigningPlan, error) {

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Resolve the change destination before selecting, so a missing one
	// is reported regardless of the amounts involved.
	var changeScript fn.Option[script.Script]
	if !req.DisableChange {
		cs := req.ChangeScript.UnwrapOr(change.UnwrapOr(script.Script{}))
		if cs.IsEmpty() {
			return nil, errcode.New(errcode.NoChangeScript,
				"change enabled without change script")
		}
		changeScript = fn.Some(cs)
	}

	var (
		selected []utxo.TxInput
		err      error
	)
	switch req.Selector.(type) {
	case nil, utxo.SelectAll:
		selected = slices.Clone(req.Inputs)

	case utxo.SelectMinimal:
		selected, err = p.selectMinimal(req)
		if err != nil {
			return nil, err
		}

	default:
		return nil, errcode.Wrap(errcode.InvalidInput,
			ErrUnsupportedSelector, "%T", req.Selector)
	}

	plan, err := p.finalize(req, selected, changeScript)
	if err != nil {
		return nil, err
	}

	if err := plan.ValidateFlags(); err != nil {
		return nil, err
	}

	log.Debugf("Planned tx with %d/%d inputs, %d outputs (change=%d), "+
		"weight=%v, fee=%v at %v", len(plan.Inputs), len(req.Inputs),
		len(plan.Outputs), plan.ChangeIndex, plan.Weight, plan.Fee,
		plan.FeeRate)

	return plan, nil
}

// validateRequest checks the request for structural errors.
func validateRequest(req *utxo.SigningRequest) error {
	if req == nil {
		return errcode.Wrap(errcode.InvalidInput, ErrNilRequest, "plan")
	}

	if len(req.Inputs) == 0 {
		return errcode.New(errcode.NoInputs, "request has no inputs")
	}

	if len(req.Outputs) == 0 {
		return errcode.New(errcode.NoOutputs, "request has no outputs")
	}

	var inTotal, outTotal btcutil.Amount

	seen := fn.NewSet[wire.OutPoint]()
	for i, in := range req.Inputs {
		if in.Spend == nil {
			return errcode.New(errcode.InvalidInput,
				"input %d has no spend condition", i)
		}

		if in.Amount <= 0 || in.Amount > btcutil.MaxSatoshi {
			return errcode.New(errcode.InvalidInput,
				"input %d has invalid amount %v", i, in.Amount)
		}

		inTotal += in.Amount
		if inTotal > btcutil.MaxSatoshi {
			return errcode.New(errcode.InvalidInput,
				"inputs exceed %v", btcutil.Amount(
					btcutil.MaxSatoshi))
		}

		alg, err := sighash.AlgorithmFor(in.Spend)
		if err != nil {
			return err
		}

		// SINGLE is checked against the final layout once planned.
		err = sighash.ValidateFlag(alg, in.SigHashType, 0, 1)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		if seen.Contains(in.OutPoint) {
			return errcode.New(errcode.InvalidInput,
				"duplicated input %v", in.OutPoint)
		}
		seen.Add(in.OutPoint)
	}

	for i, out := range req.Outputs {
		if out.Script.IsEmpty() {
			return errcode.New(errcode.InvalidInput,
				"output %d has no script", i)
		}

		// Only data carriers may be worthless.
		if out.Amount < 0 || out.Amount > btcutil.MaxSatoshi ||
			(out.Amount == 0 &&
				out.Script.Kind() != script.KindOpReturn) {

			return errcode.New(errcode.InvalidInput,
				"output %d has invalid amount %v", i,
				out.Amount)
		}

		outTotal += out.Amount
		if outTotal > btcutil.MaxSatoshi {
			return errcode.New(errcode.InvalidInput,
				"outputs exceed %v", btcutil.Amount(
					btcutil.MaxSatoshi))
		}
	}

	return nil
}

// selectMinimal picks the largest inputs until they cover the outputs and
// the fee of a transaction without change. Inputs that cost more to spend
// than they are worth are skipped. The selection keeps the caller's order.
func (p *Planner) selectMinimal(
	req *utxo.SigningRequest) ([]utxo.TxInput, error) {

	order := make([]int, 0, len(req.Inputs))
	for i, in := range req.Inputs {
		if !inputYieldsPositively(in, req.FeeRate) {
			log.Debugf("Skipping input %v: not worth spending at %v",
				in.OutPoint, req.FeeRate)

			continue
		}

		order = append(order, i)
	}

	// Largest first. The stable sort keeps the caller's order between
	// inputs of equal value.
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(req.Inputs[b].Amount, req.Inputs[a].Amount)
	})

	var picked []int
	for _, idx := range order {
		picked = append(picked, idx)

		sorted := slices.Clone(picked)
		slices.Sort(sorted)

		selected := make([]utxo.TxInput, len(sorted))
		for i, j := range sorted {
			selected[i] = req.Inputs[j]
		}

		plan, err := p.project(req, selected, req.Outputs)
		if err != nil {
			return nil, err
		}

		if plan.InputAmount() >= plan.OutputAmount()+plan.Fee {
			return selected, nil
		}
	}

	return nil, insufficient(req.Inputs, req.Outputs)
}

// finalize builds the plan for the selected inputs, with a change output
// when enabled and not dust.
func (p *Planner) finalize(req *utxo.SigningRequest, inputs []utxo.TxInput,
	changeScript fn.Option[script.Script]) (*utxo.SigningPlan, error) {

	if changeScript.IsSome() {
		cs := changeScript.UnwrapOr(script.Script{})

		outputs := append(slices.Clone(req.Outputs), utxo.TxOutput{
			Script: cs,
		})
		plan, err := p.project(req, inputs, outputs)
		if err != nil {
			return nil, err
		}

		changeAmt := plan.InputAmount() - plan.OutputAmount() - plan.Fee
		isDust := txrules.IsDustOutput(
			wire.NewTxOut(int64(changeAmt), cs.Bytes()),
			p.cfg.DustRelayFee,
		)
		if changeAmt > 0 && !isDust {
			plan.Outputs[len(plan.Outputs)-1].Amount = changeAmt
			plan.ChangeIndex = len(plan.Outputs) - 1

			return plan, nil
		}

		log.Debugf("Dropping change output of %v", changeAmt)
	}

	plan, err := p.project(req, inputs, slices.Clone(req.Outputs))
	if err != nil {
		return nil, err
	}

	if plan.InputAmount() < plan.OutputAmount()+plan.Fee {
		return nil, insufficient(inputs, req.Outputs)
	}

	return plan, nil
}

// project builds a plan for the given inputs and outputs and projects its
// weight and fee.
func (p *Planner) project(req *utxo.SigningRequest, inputs []utxo.TxInput,
	outputs []utxo.TxOutput) (*utxo.SigningPlan, error) {

	plan := &utxo.SigningPlan{
		Version:     req.Version,
		LockTime:    req.LockTime,
		Inputs:      inputs,
		Outputs:     outputs,
		ChangeIndex: utxo.NoChange,
		FeeRate:     req.FeeRate,
	}

	weight, err := ProjectWeight(plan)
	if err != nil {
		return nil, err
	}

	fee := req.FeeRate.FeeForWeight(weight)
	if fee > btcutil.MaxSatoshi {
		return nil, errcode.Wrap(errcode.InvalidInput, ErrFeeTooHigh,
			"%v for %v at %v", fee, weight, req.FeeRate)
	}

	plan.Weight = weight
	plan.Fee = fee

	return plan, nil
}

// ProjectWeight returns the weight plan's transaction will have once signed,
// assuming signatures of the placeholder size.
func ProjectWeight(plan *utxo.SigningPlan) (btcunit.WeightUnit, error) {
	sigs, err := plan.Placeholders()
	if err != nil {
		return btcunit.WeightUnit{}, err
	}

	tx, err := plan.Assemble(sigs)
	if err != nil {
		return btcunit.WeightUnit{}, err
	}

	return txcodec.Weight(tx), nil
}

// inputYieldsPositively returns a boolean indicating whether the input is
// worth more than the fee needed to spend it at the given rate.
func inputYieldsPositively(in utxo.TxInput,
	feeRate btcunit.SatPerVByte) bool {

	inputSize := txsizes.GetMinInputVirtualSize(in.Spend.PkScript().Bytes())
	inputFee := feeRate.FeeForVByte(btcunit.NewVByte(uint64(inputSize)))

	return inputFee < in.Amount
}

// insufficient builds the InsufficientFunds error for the given amounts.
func insufficient(inputs []utxo.TxInput, outputs []utxo.TxOutput) error {
	var in, out btcutil.Amount
	for _, i := range inputs {
		in += i.Amount
	}
	for _, o := range outputs {
		out += o.Amount
	}

	return errcode.New(errcode.InsufficientFunds,
		"inputs of %v cannot pay outputs of %v plus fee", in, out)
}
