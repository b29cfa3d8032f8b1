package btcunit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
)

// WeightUnit defines a unit to express the transaction size. One weight unit
// is 1/4_000_000 of the max block size. The tx weight is calculated using
// `Base tx size * 3 + Total tx size`.
//   - Base tx size is size of the transaction serialized without the witness
//     data.
//   - Total tx size is the transaction size in bytes serialized according
//     #BIP144.
type WeightUnit struct {
	wu uint64
}

// NewWeightUnit creates a new WeightUnit from a uint64 value.
func NewWeightUnit(val uint64) WeightUnit {
	return WeightUnit{wu: val}
}

// WeightFromSizes computes the weight of a transaction from its stripped
// (no witness) and total serialized sizes.
func WeightFromSizes(stripped, total int) WeightUnit {
	return WeightUnit{
		wu: uint64(stripped)*(blockchain.WitnessScaleFactor-1) +
			uint64(total),
	}
}

// Val returns the raw number of weight units.
func (w WeightUnit) Val() uint64 {
	return w.wu
}

// Add returns the sum of both weights.
func (w WeightUnit) Add(other WeightUnit) WeightUnit {
	return WeightUnit{wu: w.wu + other.wu}
}

// ToVB converts the weight to virtual bytes.
func (w WeightUnit) ToVB() VByte {
	return VByte{wu: w.wu}
}

// String returns the string representation of the weight unit.
func (w WeightUnit) String() string {
	return fmt.Sprintf("%d wu", w.wu)
}

// VByte defines a unit to express the transaction size. One virtual byte is
// four weight units, and a partial virtual byte always counts as a whole one:
// `vsize = ceil(weight / 4)`.
type VByte struct {
	// The internal size is recorded in weight units so that converting
	// back and forth never loses the remainder.
	wu uint64
}

// NewVByte creates a new VByte from a uint64 value.
func NewVByte(val uint64) VByte {
	return VByte{wu: val * blockchain.WitnessScaleFactor}
}

// Val returns the number of virtual bytes, rounded up.
func (v VByte) Val() uint64 {
	return (v.wu + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor
}

// ToWU converts the virtual size back to weight units.
func (v VByte) ToWU() WeightUnit {
	return WeightUnit{wu: v.wu}
}

// String returns the string representation of the virtual byte.
func (v VByte) String() string {
	return fmt.Sprintf("%d vb", v.Val())
}
