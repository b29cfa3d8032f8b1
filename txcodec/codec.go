// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txcodec serializes transactions in the canonical wire format and
// measures their size, weight and virtual size.
package txcodec

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/pkg/btcunit"
)

// Encode serializes tx. With withWitness false, or when no input carries
// witness data, the result is the pre-segwit wire format.
func Encode(tx *wire.MsgTx, withWitness bool) ([]byte, error) {
	if tx == nil {
		return nil, errcode.New(errcode.InvalidInput, "encode: nil tx")
	}

	var buf bytes.Buffer
	if withWitness {
		buf.Grow(tx.SerializeSize())
		if err := tx.Serialize(&buf); err != nil {
			return nil, errcode.Wrap(errcode.MalformedTransaction,
				err, "encode")
		}

		return buf.Bytes(), nil
	}

	buf.Grow(tx.SerializeSizeStripped())
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return nil, errcode.Wrap(errcode.MalformedTransaction, err,
			"encode")
	}

	return buf.Bytes(), nil
}

// Decode parses a serialized transaction, with or without witness data. The
// whole buffer must be consumed.
func Decode(raw []byte) (*wire.MsgTx, error) {
	r := bytes.NewReader(raw)

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(r); err != nil {
		return nil, errcode.Wrap(errcode.MalformedTransaction, err,
			"decode")
	}

	if r.Len() != 0 {
		return nil, errcode.New(errcode.MalformedTransaction,
			"decode: %d trailing bytes", r.Len())
	}

	return tx, nil
}

// Weight returns the weight of tx, three times its stripped size plus its
// total size.
func Weight(tx *wire.MsgTx) btcunit.WeightUnit {
	return btcunit.WeightFromSizes(
		tx.SerializeSizeStripped(), tx.SerializeSize(),
	)
}

// VSize returns the virtual size of tx, its weight divided by four and
// rounded up.
func VSize(tx *wire.MsgTx) uint64 {
	return Weight(tx).ToVB().Val()
}
