// Package signer signs a plan with a single private key held in process. It
// is a thin layer over the compiler: the preimages are computed and signed
// here, then handed to Compile exactly as an external signer's signatures
// would be.
package signer

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/utxocore/compiler"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/sighash"
	"github.com/btcsuite/utxocore/utxo"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrNilKey is returned when no private key is given.
var ErrNilKey = errors.New("nil private key")

// Signer signs plans through a compiler.
type Signer struct {
	compiler *compiler.Compiler
}

// New creates a signer compiling with c. A nil compiler uses the default
// configuration.
func New(c *compiler.Compiler) *Signer {
	if c == nil {
		c = compiler.New(compiler.DefaultConfig())
	}

	return &Signer{compiler: c}
}

// Sign signs every input of plan with privKey using the default compiler.
func Sign(plan *utxo.SigningPlan,
	privKey *btcec.PrivateKey) (*utxo.SigningOutput, error) {

	return New(nil).Sign(plan, privKey)
}

// Sign signs every input of plan with privKey and compiles the result.
// ECDSA signatures use RFC6979 nonces and Schnorr signatures use the
// BIP-0340 default nonce, so identical plans yield identical transactions.
//
// privKey, and any taproot-tweaked key derived from it, is zeroed before
// Sign returns, whether or not it succeeds. The caller must not reuse it.
func (s *Signer) Sign(plan *utxo.SigningPlan,
	privKey *btcec.PrivateKey) (*utxo.SigningOutput, error) {

	if privKey == nil {
		return nil, errcode.Wrap(errcode.InvalidInput, ErrNilKey, "sign")
	}
	defer privKey.Zero()

	pre, err := s.compiler.PreimageHashes(plan)
	if err != nil {
		return nil, err
	}

	pubKey := privKey.PubKey()
	sigs := make([][]byte, len(pre.Preimages))
	pubKeys := make([]*btcec.PublicKey, len(pre.Preimages))

	for i, p := range pre.Preimages {
		spend := plan.Inputs[i].Spend
		if !script.SamePubKey(spend, pubKey) {
			return nil, errcode.Wrap(errcode.InvalidSignature,
				compiler.ErrPubKeyMismatch, "input %d", i)
		}

		sig, err := signPreimage(privKey, spend, p)
		if err != nil {
			return nil, errcode.Wrap(errcode.SighashFailed, err,
				"input %d", i)
		}

		sigs[i] = sig
		pubKeys[i] = p.PubKey
	}

	log.Debugf("Signed %d inputs", len(sigs))

	return s.compiler.Compile(plan, sigs, pubKeys)
}

// tweakKeySpend returns the BIP 341 key-path signing key of privKey for an
// output without a script tree. The scratch scalar is wiped before returning.
func tweakKeySpend(privKey *btcec.PrivateKey) *btcec.PrivateKey {
	var scalar btcec.ModNScalar
	scalar.Set(&privKey.Key)
	defer scalar.Zero()

	pubKey := privKey.PubKey().SerializeCompressed()
	if pubKey[0] == secp.PubKeyFormatCompressedOdd {
		scalar.Negate()
	}

	tweakHash := chainhash.TaggedHash(chainhash.TagTapTweak, pubKey[1:])

	var tweak btcec.ModNScalar
	tweak.SetBytes((*[32]byte)(tweakHash))
	scalar.Add(&tweak)

	return btcec.PrivKeyFromScalar(&scalar)
}

// signPreimage produces the raw signature of a single preimage, without the
// sighash byte.
func signPreimage(privKey *btcec.PrivateKey, spend script.SpendCondition,
	p *utxo.Preimage) ([]byte, error) {

	switch p.Algorithm {
	case sighash.Legacy, sighash.SegwitV0:
		return ecdsa.Sign(privKey, p.Hash).Serialize(), nil

	case sighash.Taproot:
		signKey := privKey
		if _, ok := spend.(*script.P2TRKeySpend); ok {
			signKey = tweakKeySpend(privKey)
			defer signKey.Zero()
		}

		sig, err := schnorr.Sign(signKey, p.Hash)
		if err != nil {
			return nil, err
		}

		return sig.Serialize(), nil

	default:
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"unknown algorithm %v", p.Algorithm)
	}
}
