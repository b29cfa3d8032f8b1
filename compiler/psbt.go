package compiler

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
)

// ToPsbt exports plan as a BIP-0174 packet for an offline signer. Every input
// carries its spent output, sighash type and, where relevant, its witness
// script or taproot key and leaf.
func ToPsbt(plan *utxo.SigningPlan) (*psbt.Packet, error) {
	if plan == nil {
		return nil, errcode.Wrap(errcode.InvalidInput, ErrNilPlan, "psbt")
	}

	packet, err := psbt.NewFromUnsignedTx(plan.UnsignedTx())
	if err != nil {
		return nil, errcode.Wrap(errcode.MalformedTransaction, err,
			"psbt")
	}

	for i, in := range plan.Inputs {
		pIn := &packet.Inputs[i]
		pIn.WitnessUtxo = wire.NewTxOut(
			int64(in.Amount), in.Spend.PkScript().Bytes(),
		)
		pIn.SighashType = in.SigHashType

		switch spend := in.Spend.(type) {
		case *script.P2PKHSpend, *script.P2WPKHSpend:
			// The spent output is all a key hash signer needs.

		case *script.P2WSHSpend:
			pIn.WitnessScript = spend.WitnessScript()

		case *script.P2TRKeySpend:
			pIn.TaprootInternalKey = schnorr.SerializePubKey(
				spend.PubKey(),
			)

		case *script.P2TRScriptSpend:
			commit := spend.Commitment()
			pIn.TaprootInternalKey = schnorr.SerializePubKey(
				commit.InternalKey,
			)
			pIn.TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
				ControlBlock: bytes.Clone(commit.ControlBlock),
				Script:       bytes.Clone(commit.Leaf.Script),
				LeafVersion:  commit.Leaf.LeafVersion,
			}}

		default:
			return nil, errcode.New(errcode.UnsupportedScriptVariant,
				"psbt: unsupported spend condition %T", spend)
		}
	}

	return packet, nil
}

// SignaturesFromPsbt extracts the signatures and public keys of a packet
// signed offline, in the form Compile takes them. The packet must have been
// exported from the same plan.
func SignaturesFromPsbt(plan *utxo.SigningPlan,
	packet *psbt.Packet) ([][]byte, []*btcec.PublicKey, error) {

	if plan == nil || packet == nil {
		return nil, nil, errcode.New(errcode.InvalidInput,
			"psbt: nil plan or packet")
	}

	if packet.UnsignedTx.TxHash() != plan.UnsignedTx().TxHash() {
		return nil, nil, errcode.New(errcode.InvalidInput,
			"psbt: packet does not match plan")
	}

	sigs := make([][]byte, len(plan.Inputs))
	pubKeys := make([]*btcec.PublicKey, len(plan.Inputs))

	for i, in := range plan.Inputs {
		pIn := &packet.Inputs[i]
		pubKey := in.Spend.PubKey()

		var sig []byte
		switch spend := in.Spend.(type) {
		case *script.P2PKHSpend, *script.P2WPKHSpend, *script.P2WSHSpend:
			sig = partialSig(pIn, pubKey, in.SigHashType)

		case *script.P2TRKeySpend:
			sig = taprootSig(pIn.TaprootKeySpendSig, in.SigHashType)

		case *script.P2TRScriptSpend:
			leafHash := spend.Commitment().LeafHash()
			xOnly := schnorr.SerializePubKey(pubKey)

			for _, s := range pIn.TaprootScriptSpendSig {
				if bytes.Equal(s.XOnlyPubKey, xOnly) &&
					bytes.Equal(s.LeafHash, leafHash) &&
					s.SigHash == in.SigHashType {

					sig = bytes.Clone(s.Signature)
				}
			}

		default:
			return nil, nil, errcode.New(
				errcode.UnsupportedScriptVariant,
				"psbt: unsupported spend condition %T", spend,
			)
		}

		if sig == nil {
			return nil, nil, errcode.New(
				errcode.SignaturesCountMismatch,
				"psbt: input %d is not signed", i,
			)
		}

		sigs[i] = sig
		pubKeys[i] = pubKey
	}

	return sigs, pubKeys, nil
}

// partialSig returns the DER signature of pubKey with the expected flag, or
// nil.
func partialSig(pIn *psbt.PInput, pubKey *btcec.PublicKey,
	flag txscript.SigHashType) []byte {

	compressed := pubKey.SerializeCompressed()
	for _, ps := range pIn.PartialSigs {
		if !bytes.Equal(ps.PubKey, compressed) || len(ps.Signature) == 0 {
			continue
		}

		last := len(ps.Signature) - 1
		if txscript.SigHashType(ps.Signature[last]) != flag {
			continue
		}

		return bytes.Clone(ps.Signature[:last])
	}

	return nil
}

// taprootSig strips the optional sighash byte of a key-path signature,
// returning nil when it is absent or committed to another flag.
func taprootSig(sig []byte, flag txscript.SigHashType) []byte {
	switch {
	case len(sig) == schnorr.SignatureSize &&
		flag == txscript.SigHashDefault:

		return bytes.Clone(sig)

	case len(sig) == schnorr.SignatureSize+1 &&
		txscript.SigHashType(sig[schnorr.SignatureSize]) == flag:

		return bytes.Clone(sig[:schnorr.SignatureSize])

	default:
		return nil
	}
}
