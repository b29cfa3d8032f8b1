// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides a set of types for dealing with transaction sizes
// and fee rates.
package btcunit

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000
)

// ZeroSatPerVByte is a fee rate of 0 sat/vb.
var ZeroSatPerVByte = NewSatPerVByte(0)

// SatPerVByte represents a fee rate in whole satoshis per virtual byte, the
// unit signing requests are expressed in. Fees are always charged on the
// rounded-up virtual size, so a transaction of weight w pays
// `ceil(w / 4) * rate`.
type SatPerVByte struct {
	sats btcutil.Amount
}

// NewSatPerVByte creates a new fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	if rate < 0 {
		rate = 0
	}

	return SatPerVByte{sats: rate}
}

// Val returns the rate in satoshis per virtual byte.
func (s SatPerVByte) Val() btcutil.Amount {
	return s.sats
}

// FeeForVByte calculates the fee for the given virtual size. A product that
// does not fit in an int64 saturates at math.MaxInt64, which callers must
// treat as unpayable.
func (s SatPerVByte) FeeForVByte(vb VByte) btcutil.Amount {
	size := safeUint64ToInt64(vb.Val())
	if s.sats != 0 && size > math.MaxInt64/int64(s.sats) {
		return btcutil.Amount(math.MaxInt64)
	}

	return s.sats * btcutil.Amount(size)
}

// FeeForWeight calculates the fee for the given weight. The weight is first
// rounded up to whole virtual bytes.
func (s SatPerVByte) FeeForWeight(weight WeightUnit) btcutil.Amount {
	return s.FeeForVByte(weight.ToVB())
}

// ToSatPerKVByte converts the rate to satoshis per kilo-virtual-byte, the
// unit used by the relay policy helpers.
func (s SatPerVByte) ToSatPerKVByte() btcutil.Amount {
	return s.FeeForVByte(NewVByte(kilo))
}

// IsZero returns true if the rate is 0 sat/vb.
func (s SatPerVByte) IsZero() bool {
	return s.sats == 0
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	return fmt.Sprintf("%d sat/vb", int64(s.sats))
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
// In practice the values being converted are transaction sizes, which are
// bounded by consensus rules.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		slog.Warn("Capping uint64 value to math.MaxInt64",
			slog.Uint64("old", u), slog.Int64("new", math.MaxInt64))

		return math.MaxInt64
	}

	return int64(u)
}
