package script

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/utxocore/errcode"
)

// TapCommitment is a taproot output committing to a single tapscript leaf.
type TapCommitment struct {
	// InternalKey is the untweaked key of the output.
	InternalKey *btcec.PublicKey

	// Leaf is the committed tapscript leaf.
	Leaf txscript.TapLeaf

	// ControlBlock is the serialized control block proving the leaf's
	// inclusion, revealed last in the witness of a script-path spend.
	ControlBlock []byte

	// OutputKey is the tweaked output key.
	OutputKey *btcec.PublicKey

	// PkScript is the P2TR script paying to OutputKey.
	PkScript Script
}

// CommitLeaf builds the taproot output for a tree made of the single leaf
// script under internalKey.
func CommitLeaf(internalKey *btcec.PublicKey,
	leafScript []byte) (*TapCommitment, error) {

	if internalKey == nil {
		return nil, errcode.New(errcode.InvalidInput,
			"tap commitment: nil internal key")
	}

	if len(leafScript) == 0 {
		return nil, errcode.New(errcode.UnsupportedScriptVariant,
			"tap commitment: empty leaf script")
	}

	leaf := txscript.NewBaseTapLeaf(bytes.Clone(leafScript))
	tree := txscript.AssembleTaprootScriptTree(leaf)
	rootHash := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, rootHash[:])

	ctrlBlock := tree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	ctrlBlockBytes, err := ctrlBlock.ToBytes()
	if err != nil {
		return nil, errcode.Wrap(errcode.UnsupportedScriptVariant, err,
			"tap commitment: control block")
	}

	pkScript, err := PayToTaprootOutputKey(outputKey)
	if err != nil {
		return nil, err
	}

	return &TapCommitment{
		InternalKey:  internalKey,
		Leaf:         leaf,
		ControlBlock: ctrlBlockBytes,
		OutputKey:    outputKey,
		PkScript:     pkScript,
	}, nil
}

// LeafHash returns the tagged hash of the committed leaf.
func (c *TapCommitment) LeafHash() []byte {
	h := c.Leaf.TapHash()
	return h[:]
}
