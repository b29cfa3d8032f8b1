package coin

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/utxocore/compiler"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/planner"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/signer"
	"github.com/btcsuite/utxocore/txcodec"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Plan checks req against the entry and plans it. When changeKey is not nil
// the entry derives the default change destination from it.
func Plan(e Entry, req *utxo.SigningRequest,
	changeKey *btcec.PublicKey) (*utxo.SigningPlan, error) {

	if err := checkRequest(e, req); err != nil {
		return nil, err
	}

	change := fn.None[script.Script]()
	if changeKey != nil {
		change = e.ChangeScript(changeKey)
	}

	plan, err := planner.Plan(req, change)
	if err != nil {
		return nil, err
	}

	log.Debugf("%s: planned %d inputs, fee %v", e.Name(), len(plan.Inputs),
		plan.Fee)

	return plan, nil
}

// PreimageHashes returns the digests an external signer must sign for plan.
func PreimageHashes(e Entry,
	plan *utxo.SigningPlan) (*utxo.PreSigningOutput, error) {

	if err := checkPlan(e, plan); err != nil {
		return nil, err
	}

	return compiler.PreimageHashes(plan)
}

// Compile assembles plan with signatures made over its preimages.
func Compile(e Entry, plan *utxo.SigningPlan, sigs [][]byte,
	pubKeys []*btcec.PublicKey) (*utxo.SigningOutput, error) {

	if err := checkPlan(e, plan); err != nil {
		return nil, err
	}

	return compiler.Compile(plan, sigs, pubKeys)
}

// Sign plans req with change back to privKey's default change script and
// signs it. privKey is zeroed before Sign returns.
func Sign(e Entry, req *utxo.SigningRequest,
	privKey *btcec.PrivateKey) (*utxo.SigningOutput, error) {

	if privKey == nil {
		return nil, errcode.Wrap(errcode.InvalidInput, signer.ErrNilKey,
			"%s", e.Name())
	}

	plan, err := Plan(e, req, privKey.PubKey())
	if err != nil {
		privKey.Zero()
		return nil, err
	}

	return signer.Sign(plan, privKey)
}

// TxHash returns the id of a serialized transaction.
func TxHash(raw []byte) (chainhash.Hash, error) {
	tx, err := txcodec.Decode(raw)
	if err != nil {
		return chainhash.Hash{}, err
	}

	return tx.TxHash(), nil
}

// checkRequest rejects requests using scripts the chain does not allow.
func checkRequest(e Entry, req *utxo.SigningRequest) error {
	if req == nil {
		return errcode.New(errcode.InvalidInput, "nil signing request")
	}

	for i, in := range req.Inputs {
		if in.Spend == nil {
			continue
		}

		if !e.SupportsKind(in.Spend.Kind()) {
			return errcode.New(errcode.UnsupportedScriptVariant,
				"%s: input %d spends unsupported %v", e.Name(),
				i, in.Spend.Kind())
		}
	}

	for i, out := range req.Outputs {
		if !e.SupportsKind(out.Script.Kind()) {
			return errcode.New(errcode.UnsupportedScriptVariant,
				"%s: output %d pays to unsupported %v", e.Name(),
				i, out.Script.Kind())
		}
	}

	return nil
}

// checkPlan applies checkRequest to a plan built elsewhere.
func checkPlan(e Entry, plan *utxo.SigningPlan) error {
	if plan == nil {
		return errcode.Wrap(errcode.InvalidInput, compiler.ErrNilPlan,
			"%s", e.Name())
	}

	return checkRequest(e, &utxo.SigningRequest{
		Inputs:  plan.Inputs,
		Outputs: plan.Outputs,
	})
}
