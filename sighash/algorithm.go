package sighash

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
)

const (
	// ecdsaPlaceholderLen is the size assumed for a DER signature plus its
	// sighash byte when projecting weight. Low-S signatures with a high R
	// are 71 bytes, so this is exact for the common case and an
	// overestimate of at most two bytes otherwise.
	ecdsaPlaceholderLen = 72

	// placeholderByte fills placeholder signatures.
	placeholderByte = 0x30
)

// Algorithm is the signature hash algorithm an input is signed with.
type Algorithm uint8

const (
	// Legacy is the original algorithm re-serializing the transaction for
	// every input.
	Legacy Algorithm = iota

	// SegwitV0 is the BIP-0143 algorithm for version 0 witness programs.
	SegwitV0

	// Taproot is the BIP-0341 algorithm, with the BIP-0342 extension for
	// script-path spends.
	Taproot
)

// String returns the name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Legacy:
		return "legacy"
	case SegwitV0:
		return "segwit_v0"
	case Taproot:
		return "taproot"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Schnorr returns true if signatures for the algorithm are BIP-0340 Schnorr
// signatures rather than DER-encoded ECDSA.
func (a Algorithm) Schnorr() bool {
	return a == Taproot
}

// AlgorithmFor returns the algorithm implied by the spend condition.
func AlgorithmFor(spend script.SpendCondition) (Algorithm, error) {
	switch spend.(type) {
	case *script.P2PKHSpend:
		return Legacy, nil

	case *script.P2WPKHSpend, *script.P2WSHSpend:
		return SegwitV0, nil

	case *script.P2TRKeySpend, *script.P2TRScriptSpend:
		return Taproot, nil

	default:
		return 0, errcode.New(errcode.UnsupportedScriptVariant,
			"no sighash algorithm for %T", spend)
	}
}

// ValidateFlag checks that flag has a defined meaning for the algorithm when
// signing input idx of a transaction with numOutputs outputs.
func ValidateFlag(alg Algorithm, flag txscript.SigHashType, idx,
	numOutputs int) error {

	base := flag &^ txscript.SigHashAnyOneCanPay

	switch {
	// Only taproot knows the implicit ALL.
	case flag == txscript.SigHashDefault:
		if alg != Taproot {
			return errcode.New(errcode.UnsupportedSighashFlag,
				"%v does not support sighash default", alg)
		}

		return nil

	case base != txscript.SigHashAll && base != txscript.SigHashNone &&
		base != txscript.SigHashSingle:

		return errcode.New(errcode.UnsupportedSighashFlag,
			"unknown sighash flag 0x%02x", uint32(flag))
	}

	// SINGLE commits to the output at the same index. Legacy signing
	// would otherwise commit to a constant and segwit to nothing, both of
	// which are rejected.
	if base == txscript.SigHashSingle && idx >= numOutputs {
		return errcode.New(errcode.UnsupportedSighashFlag,
			"sighash single on input %d without matching output", idx)
	}

	return nil
}

// PlaceholderSignature returns a stand-in signature of the size a real one
// is projected to have, flag byte included.
func PlaceholderSignature(alg Algorithm, flag txscript.SigHashType) []byte {
	if !alg.Schnorr() {
		return bytes.Repeat([]byte{placeholderByte}, ecdsaPlaceholderLen)
	}

	size := schnorr.SignatureSize
	if flag != txscript.SigHashDefault {
		size++
	}

	return bytes.Repeat([]byte{placeholderByte}, size)
}

// AppendFlag appends the sighash byte to a raw signature, as it appears on
// chain. Schnorr signatures with the default flag carry no sighash byte.
func AppendFlag(alg Algorithm, sig []byte,
	flag txscript.SigHashType) []byte {

	out := bytes.Clone(sig)
	if alg.Schnorr() && flag == txscript.SigHashDefault {
		return out
	}

	return append(out, byte(flag))
}
