package main

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/utxocore/coin"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
)

type planInputView struct {
	OutPoint string `json:"outpoint"`
	Amount   int64  `json:"amount"`
	Sequence uint32 `json:"sequence"`
	Kind     string `json:"kind"`
	SigHash  uint32 `json:"sighash"`
}

type outputView struct {
	Amount  int64  `json:"amount"`
	Script  string `json:"script"`
	Kind    string `json:"kind"`
	Address string `json:"address,omitempty"`
}

type planView struct {
	Inputs      []planInputView `json:"inputs"`
	Outputs     []outputView    `json:"outputs"`
	ChangeIndex int             `json:"change_index"`
	Weight      uint64          `json:"weight"`
	Fee         int64           `json:"fee"`
	FeeRate     int64           `json:"fee_rate"`
}

func newPlanView(plan *utxo.SigningPlan) *planView {
	view := &planView{
		ChangeIndex: plan.ChangeIndex,
		Weight:      plan.Weight.Val(),
		Fee:         int64(plan.Fee),
		FeeRate:     int64(plan.FeeRate.Val()),
	}

	for _, in := range plan.Inputs {
		view.Inputs = append(view.Inputs, planInputView{
			OutPoint: in.OutPoint.String(),
			Amount:   int64(in.Amount),
			Sequence: in.Sequence,
			Kind:     in.Spend.Kind().String(),
			SigHash:  uint32(in.SigHashType),
		})
	}

	for _, out := range plan.Outputs {
		view.Outputs = append(view.Outputs, outputView{
			Amount: int64(out.Amount),
			Script: hex.EncodeToString(out.Script.Bytes()),
			Kind:   out.Script.Kind().String(),
		})
	}

	return view
}

type preimageEntryView struct {
	Input     int    `json:"input"`
	Algorithm string `json:"algorithm"`
	SigHash   uint32 `json:"sighash"`
	Hash      string `json:"hash"`
	PubKey    string `json:"pubkey"`
	LeafHash  string `json:"leaf_hash,omitempty"`
}

type preimageView struct {
	Preimages        []preimageEntryView `json:"preimages"`
	WeightProjection uint64              `json:"weight_projection"`
	FeeProjection    int64               `json:"fee_projection"`
	Psbt             string              `json:"psbt"`
}

func newPreimageView(pre *utxo.PreSigningOutput,
	packet string) *preimageView {

	view := &preimageView{
		WeightProjection: pre.WeightProjection.Val(),
		FeeProjection:    int64(pre.FeeProjection),
		Psbt:             packet,
	}

	for _, p := range pre.Preimages {
		// Schnorr signers expect x-only keys.
		pubKey := p.PubKey.SerializeCompressed()
		if p.Algorithm.Schnorr() {
			pubKey = schnorr.SerializePubKey(p.PubKey)
		}

		view.Preimages = append(view.Preimages, preimageEntryView{
			Input:     p.InputIndex,
			Algorithm: p.Algorithm.String(),
			SigHash:   uint32(p.Flag),
			Hash:      hex.EncodeToString(p.Hash),
			PubKey:    hex.EncodeToString(pubKey),
			LeafHash:  hex.EncodeToString(p.LeafHash),
		})
	}

	return view
}

type signedView struct {
	Tx     string `json:"tx"`
	TxID   string `json:"txid"`
	WTxID  string `json:"wtxid"`
	Weight uint64 `json:"weight"`
	Fee    int64  `json:"fee"`
}

func newSignedView(out *utxo.SigningOutput) *signedView {
	return &signedView{
		Tx:     hex.EncodeToString(out.Encoded),
		TxID:   out.TxID.String(),
		WTxID:  out.WTxID.String(),
		Weight: out.Weight.Val(),
		Fee:    int64(out.Fee),
	}
}

type inscriptionView struct {
	ContentType string `json:"content_type"`
	Payload     string `json:"payload"`
}

type decodedInputView struct {
	OutPoint        string           `json:"outpoint"`
	Sequence        uint32           `json:"sequence"`
	SignatureScript string           `json:"script_sig,omitempty"`
	Witness         []string         `json:"witness,omitempty"`
	Inscription     *inscriptionView `json:"inscription,omitempty"`
}

type decodedView struct {
	TxID     string             `json:"txid"`
	WTxID    string             `json:"wtxid"`
	Version  int32              `json:"version"`
	LockTime uint32             `json:"lock_time"`
	Inputs   []decodedInputView `json:"inputs"`
	Outputs  []outputView       `json:"outputs"`
	Weight   uint64             `json:"weight"`
	VSize    uint64             `json:"vsize"`
}

func newDecodedView(tx *coin.DecodedTx) *decodedView {
	view := &decodedView{
		TxID:     tx.TxID.String(),
		WTxID:    tx.WTxID.String(),
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Weight:   tx.Weight.Val(),
		VSize:    tx.VSize,
	}

	for _, in := range tx.Inputs {
		inView := decodedInputView{
			OutPoint:        in.OutPoint.String(),
			Sequence:        in.Sequence,
			SignatureScript: hex.EncodeToString(in.SignatureScript),
		}
		for _, item := range in.Witness {
			inView.Witness = append(
				inView.Witness, hex.EncodeToString(item),
			)
		}

		in.Inscription.WhenSome(func(i *script.Inscription) {
			inView.Inscription = &inscriptionView{
				ContentType: i.ContentType(),
				Payload:     string(i.Payload()),
			}
		})

		view.Inputs = append(view.Inputs, inView)
	}

	for _, out := range tx.Outputs {
		view.Outputs = append(view.Outputs, outputView{
			Amount:  int64(out.Amount),
			Script:  hex.EncodeToString(out.Script.Bytes()),
			Kind:    out.Script.Kind().String(),
			Address: out.Address.UnwrapOr(""),
		})
	}

	return view
}
