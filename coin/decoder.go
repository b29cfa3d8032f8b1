package coin

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/txcodec"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// DecodedInput is an input of a decoded transaction.
type DecodedInput struct {
	// OutPoint is the spent output.
	OutPoint wire.OutPoint

	// Sequence is the input's sequence number.
	Sequence uint32

	// SignatureScript is the legacy unlocking script.
	SignatureScript []byte

	// Witness is the segwit unlocking data.
	Witness wire.TxWitness

	// Inscription is the inscription revealed by a script-path spend,
	// if any.
	Inscription fn.Option[*script.Inscription]
}

// DecodedOutput is an output of a decoded transaction.
type DecodedOutput struct {
	// Amount is the output value.
	Amount btcutil.Amount

	// Script is the locking script.
	Script script.Script

	// Address is the encoded address of the script on the decoding
	// chain, if it has one.
	Address fn.Option[string]
}

// DecodedTx is the structured view of a serialized transaction.
type DecodedTx struct {
	TxID     chainhash.Hash
	WTxID    chainhash.Hash
	Version  int32
	LockTime uint32
	Inputs   []DecodedInput
	Outputs  []DecodedOutput
	Weight   btcunit.WeightUnit
	VSize    uint64
}

// txDecoder decodes transactions for a chain.
type txDecoder struct {
	params *chaincfg.Params
}

// DecodeTransaction decodes raw and annotates outputs with their addresses
// and inputs with any revealed inscription.
func (d *txDecoder) DecodeTransaction(raw []byte) (*DecodedTx, error) {
	tx, err := txcodec.Decode(raw)
	if err != nil {
		return nil, err
	}

	decoded := &DecodedTx{
		TxID:     tx.TxHash(),
		WTxID:    tx.WitnessHash(),
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Inputs:   make([]DecodedInput, len(tx.TxIn)),
		Outputs:  make([]DecodedOutput, len(tx.TxOut)),
		Weight:   txcodec.Weight(tx),
		VSize:    txcodec.VSize(tx),
	}

	for i, in := range tx.TxIn {
		decoded.Inputs[i] = DecodedInput{
			OutPoint:        in.PreviousOutPoint,
			Sequence:        in.Sequence,
			SignatureScript: in.SignatureScript,
			Witness:         in.Witness,
			Inscription:     revealedInscription(in.Witness),
		}
	}

	for i, out := range tx.TxOut {
		decoded.Outputs[i] = DecodedOutput{
			Amount:  btcutil.Amount(out.Value),
			Script:  script.FromBytes(out.PkScript),
			Address: d.address(out.PkScript),
		}
	}

	log.Tracef("Decoded tx %v with %d inputs and %d outputs",
		decoded.TxID, len(decoded.Inputs), len(decoded.Outputs))

	return decoded, nil
}

// address returns the single address pkScript pays to, if any.
func (d *txDecoder) address(pkScript []byte) fn.Option[string] {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, d.params)
	if err != nil || len(addrs) != 1 {
		return fn.None[string]()
	}

	return fn.Some(addrs[0].EncodeAddress())
}

// revealedInscription parses the tapscript leaf of a script-path witness
// `<sig> <leaf> <control block>`.
func revealedInscription(witness wire.TxWitness) fn.Option[*script.Inscription] {
	if len(witness) != 3 {
		return fn.None[*script.Inscription]()
	}

	insc, err := script.ParseInscription(witness[1])
	if err != nil {
		return fn.None[*script.Inscription]()
	}

	return fn.Some(insc)
}
