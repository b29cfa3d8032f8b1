package utxo

import (
	"bytes"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/sighash"
)

// NoChange is the change index of a plan without change output.
const NoChange = -1

// SigningPlan is the outcome of input selection. The invariant
// `InputAmount() >= OutputAmount() + Fee` always holds. With a change output
// the change absorbs the remainder, so the excess is zero up to the amount
// lost to rounding.
type SigningPlan struct {
	// Version is the transaction version.
	Version int32

	// LockTime is the transaction lock time.
	LockTime uint32

	// Inputs are the selected inputs in the caller's order.
	Inputs []TxInput

	// Outputs are the requested outputs followed by the change output,
	// if any.
	Outputs []TxOutput

	// ChangeIndex is the index of the change output in Outputs, or
	// NoChange.
	ChangeIndex int

	// Weight is the projected weight of the signed transaction.
	Weight btcunit.WeightUnit

	// Fee is the projected fee.
	Fee btcutil.Amount

	// FeeRate is the fee rate the plan was built for.
	FeeRate btcunit.SatPerVByte
}

// InputAmount returns the total value of the selected inputs.
func (p *SigningPlan) InputAmount() btcutil.Amount {
	var total btcutil.Amount
	for _, in := range p.Inputs {
		total += in.Amount
	}

	return total
}

// OutputAmount returns the total value of the outputs, change included.
func (p *SigningPlan) OutputAmount() btcutil.Amount {
	var total btcutil.Amount
	for _, out := range p.Outputs {
		total += out.Amount
	}

	return total
}

// HasChange returns true if the plan carries a change output.
func (p *SigningPlan) HasChange() bool {
	return p.ChangeIndex != NoChange
}

// UnsignedTx builds a fresh transaction from the plan with empty unlocking
// data.
func (p *SigningPlan) UnsignedTx() *wire.MsgTx {
	tx := wire.NewMsgTx(p.Version)
	tx.LockTime = p.LockTime

	for _, in := range p.Inputs {
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: in.OutPoint,
			Sequence:         in.Sequence,
		})
	}

	for _, out := range p.Outputs {
		tx.AddTxOut(wire.NewTxOut(int64(out.Amount), out.Script.Bytes()))
	}

	return tx
}

// SighashInputs returns the spent outputs in the form the sighash engine
// takes them.
func (p *SigningPlan) SighashInputs() []sighash.Input {
	inputs := make([]sighash.Input, len(p.Inputs))
	for i, in := range p.Inputs {
		inputs[i] = sighash.Input{Amount: in.Amount, Spend: in.Spend}
	}

	return inputs
}

// Flags returns the sighash flag of every input.
func (p *SigningPlan) Flags() []txscript.SigHashType {
	flags := make([]txscript.SigHashType, len(p.Inputs))
	for i, in := range p.Inputs {
		flags[i] = in.SigHashType
	}

	return flags
}

// ValidateFlags checks every input's sighash flag against its algorithm and
// the plan's outputs.
func (p *SigningPlan) ValidateFlags() error {
	for i, in := range p.Inputs {
		alg, err := sighash.AlgorithmFor(in.Spend)
		if err != nil {
			return err
		}

		err = sighash.ValidateFlag(
			alg, in.SigHashType, i, len(p.Outputs),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Placeholders returns stand-in signatures sized like the real ones, used to
// project the signed weight.
func (p *SigningPlan) Placeholders() ([][]byte, error) {
	sigs := make([][]byte, len(p.Inputs))
	for i, in := range p.Inputs {
		alg, err := sighash.AlgorithmFor(in.Spend)
		if err != nil {
			return nil, err
		}

		sigs[i] = sighash.PlaceholderSignature(alg, in.SigHashType)
	}

	return sigs, nil
}

// Assemble builds the transaction with each input unlocked by the matching
// signature. Signatures are in their on-chain form, sighash byte included
// where the algorithm appends one.
func (p *SigningPlan) Assemble(sigs [][]byte) (*wire.MsgTx, error) {
	if len(sigs) != len(p.Inputs) {
		return nil, errcode.New(errcode.SignaturesCountMismatch,
			"%d signatures for %d inputs", len(sigs),
			len(p.Inputs))
	}

	tx := p.UnsignedTx()
	for i, in := range p.Inputs {
		sigScript, witness, err := in.Spend.Unlock(sigs[i])
		if err != nil {
			return nil, err
		}

		tx.TxIn[i].SignatureScript = sigScript
		tx.TxIn[i].Witness = witness
	}

	return tx, nil
}

// Clone returns a deep copy of the plan's slices.
func (p *SigningPlan) Clone() *SigningPlan {
	cp := *p
	cp.Inputs = slices.Clone(p.Inputs)
	cp.Outputs = slices.Clone(p.Outputs)

	return &cp
}

// Equal reports whether both plans describe the same transaction.
func (p *SigningPlan) Equal(other *SigningPlan) bool {
	if p.Version != other.Version || p.LockTime != other.LockTime ||
		p.ChangeIndex != other.ChangeIndex ||
		p.Weight != other.Weight || p.Fee != other.Fee ||
		len(p.Inputs) != len(other.Inputs) ||
		len(p.Outputs) != len(other.Outputs) {

		return false
	}

	for i := range p.Inputs {
		a, b := p.Inputs[i], other.Inputs[i]
		if a.OutPoint != b.OutPoint || a.Amount != b.Amount ||
			a.Sequence != b.Sequence ||
			a.SigHashType != b.SigHashType ||
			!bytes.Equal(a.Spend.PkScript().Bytes(),
				b.Spend.PkScript().Bytes()) {

			return false
		}
	}

	for i := range p.Outputs {
		a, b := p.Outputs[i], other.Outputs[i]
		if a.Amount != b.Amount || !a.Script.Equal(b.Script) {
			return false
		}
	}

	return true
}
