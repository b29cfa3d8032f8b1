package signer

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/pkg/btcunit"
	"github.com/btcsuite/utxocore/planner"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/sighash"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

const (
	// Keys of the published BRC-20 commit/reveal pair.
	inscriberPrivKey = "e253373989199da27c48680e3a3fc0f648d50f9a727ef17a7f" +
		"e6a4dc3b159129"
	inscriberPubKey = "030f209b6ada5edb42c77fd2bc64ad650ae38314c8f451f3e36d" +
		"80bc8e26f132cb"

	// brc20Commit is the published commit transaction.
	brc20Commit = "02000000000101089098890d2653567b9e8df2d1fbe5c3c8bf1910" +
		"ca7184e301db0ad3b495c88e0100000000ffffffff02581b00000000000022" +
		"5120e8b706a97732e705e22ae7710703e7f589ed13c636324461afa4430161" +
		"34cc051040000000000000160014e311b8d6ddff856ce8e9a4e03bc6d4fe50" +
		"50a83d02483045022100a44aa28446a9a886b378a4a65e32ad9a3108870bd7" +
		"25dc6105160bed4f317097022069e9de36422e4ce2e42b39884aa5f626f8f9" +
		"4194d1013007d5a1ea9220a06dce0121030f209b6ada5edb42c77fd2bc64ad" +
		"650ae38314c8f451f3e36d80bc8e26f132cb00000000"

	// brc20Reveal is the published reveal transaction. Its Schnorr
	// signature was made with auxiliary randomness and is not
	// reproducible.
	brc20Reveal = "02000000000101b11f1782607a1fe5f033ccf9dc17404db020a0de" +
		"dff94183596ee67ad4177d790000000000ffffffff01220200000000000016" +
		"0014e311b8d6ddff856ce8e9a4e03bc6d4fe5050a83d0340de6fd13e43700f" +
		"59876d305e5a4a5c41ad7ada10bc5a4e4bdd779eb0060c0a78ebae9c33daf7" +
		"7bb3725172edb5bd12e26f00c08f9263e480d53b93818138ad0b5b0063036f" +
		"7264010118746578742f706c61696e3b636861727365743d7574662d380037" +
		"7b2270223a226272632d3230222c226f70223a227472616e73666572222c22" +
		"7469636b223a226f616466222c22616d74223a223230227d6821c00f209b6a" +
		"da5edb42c77fd2bc64ad650ae38314c8f451f3e36d80bc8e26f132cb000000" +
		"00"

	// Keys of the fee projection vectors.
	feePrivKey = "57a64865bce5d4855e99b1cce13327c46171434f2d72eeaf9da53ee0" +
		"75e7f90a"
	feePubKey = "028d7dce6d72fb8f7af9566616c6436349c67ad379f2404dd66fe708" +
		"5fe0fba28f"
	feeBobPubKey = "025a0af1510f0f24d40dd00d7c0e51605ca504bbc177c3e19b065f" +
		"373a1efdd22f"
	feeTxID = "181c84965c9ea86a5fac32fdbd5f73a21a7a9e749fb6ab97e273af2329f6" +
		"b911"
)

// fromHex decodes a hex string or fails the test.
func fromHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

// privKeyFromHex parses a private key and checks it against its expected
// public key.
func privKeyFromHex(t *testing.T, priv,
	pub string) (*btcec.PrivateKey, *btcec.PublicKey) {

	t.Helper()

	privKey, pubKey := btcec.PrivKeyFromBytes(fromHex(t, priv))
	require.Equal(t, pub, hex.EncodeToString(pubKey.SerializeCompressed()))

	return privKey, pubKey
}

// outPoint builds an outpoint from a displayed txid.
func outPoint(t *testing.T, txid string, index uint32) wire.OutPoint {
	t.Helper()

	hash, err := chainhash.NewHashFromStr(txid)
	require.NoError(t, err)

	return wire.OutPoint{Hash: *hash, Index: index}
}

// requireZeroed asserts that a private key was wiped.
func requireZeroed(t *testing.T, privKey *btcec.PrivateKey) {
	t.Helper()

	require.Equal(t, make([]byte, btcec.PrivKeyBytesLen), privKey.Serialize())
}

// TestSignLegacyGolden signs a P2PKH spend and compares it with a published
// transaction.
func TestSignLegacyGolden(t *testing.T) {
	t.Parallel()

	const expected = "02000000017be4e642bb278018ab12277de9427773ad1c5f5b" +
		"1d164a157e0d99aa48dc1c1e000000006a473044022078eda020d4b86fcb3a" +
		"f78ef919912e6d79b81164dbbb0b0b96da6ac58a2de4b102201a5fd8d48734" +
		"d5a02371c4b5ee551a69dca3842edbf577d863cf8ae9fdbbd4590121036666" +
		"dd712e05a487916384bfcd5973eb53e8038eccbbf97f7eed775b87389536ff" +
		"ffffff01c0aff629010000001976a9145eaaa4f458f9158f86afcba08dd744" +
		"8d27045e3d88ac00000000"

	// Arrange: Alice sends 49.99 of her 50 BTC to bob, leaving the rest
	// as fee.
	privKey, alice := privKeyFromHex(t,
		"56429688a1a6b00b90ccd22a0de0a376b6569d8684022ae92229a28478bfb657",
		"036666dd712e05a487916384bfcd5973eb53e8038eccbbf97f7eed775b87389536",
	)
	bob, err := btcec.ParsePubKey(fromHex(t,
		"037ed9a436e11ec4947ac4b7823787e24ba73180f1edd2857bff19c9f4d62b65bf",
	))
	require.NoError(t, err)

	spend, err := script.NewP2PKHSpend(alice)
	require.NoError(t, err)
	out, err := script.PayToPubKey(bob)
	require.NoError(t, err)

	plan, err := planner.Plan(&utxo.SigningRequest{
		Version: 2,
		Inputs: []utxo.TxInput{{
			OutPoint: outPoint(t, "1e1cdc48aa990d7e154a161d5b5f1cad737"+
				"742e97d2712ab188027bb42e6e47b", 0),
			Amount:      50 * btcutil.SatoshiPerBitcoin,
			Sequence:    wire.MaxTxInSequenceNum,
			SigHashType: txscript.SigHashAll,
			Spend:       spend,
		}},
		Outputs:       []utxo.TxOutput{{Amount: 4_999_000_000, Script: out}},
		DisableChange: true,
	}, fn.None[script.Script]())
	require.NoError(t, err)

	// Act: Sign the plan.
	signed, err := Sign(plan, privKey)

	// Assert: The transaction matches and the key is wiped.
	require.NoError(t, err)
	require.Equal(t, expected, hex.EncodeToString(signed.Encoded))
	require.Equal(t, signed.Tx.TxHash(), signed.TxID)
	requireZeroed(t, privKey)
}

// TestSignBRC20CommitReveal signs both halves of a BRC-20 transfer and
// compares them with the published pair.
func TestSignBRC20CommitReveal(t *testing.T) {
	t.Parallel()

	insc, err := script.NewBRC20Transfer("oadf", 20)
	require.NoError(t, err)

	// Arrange: The commit spends a P2WPKH output into the inscription
	// commitment and a P2WPKH return output.
	privKey, alice := privKeyFromHex(t, inscriberPrivKey, inscriberPubKey)

	fund, err := script.NewP2WPKHSpend(alice)
	require.NoError(t, err)
	commit, err := insc.Commit(alice)
	require.NoError(t, err)
	back, err := script.PayToWitnessPubKey(alice)
	require.NoError(t, err)

	commitPlan, err := planner.Plan(&utxo.SigningRequest{
		Version: 2,
		Inputs: []utxo.TxInput{{
			OutPoint: outPoint(t, "8ec895b4d30adb01e38471ca1019bfc8c3e"+
				"5fbd1f28d9e7b5653260d89989008", 1),
			Amount:      26_400,
			Sequence:    wire.MaxTxInSequenceNum,
			SigHashType: txscript.SigHashAll,
			Spend:       fund,
		}},
		Outputs: []utxo.TxOutput{
			{Amount: 7_000, Script: commit.PkScript},
			{Amount: 16_400, Script: back},
		},
		DisableChange: true,
	}, fn.None[script.Script]())
	require.NoError(t, err)

	// Act: Sign the commit.
	signedCommit, err := Sign(commitPlan, privKey)

	// Assert: Byte-identical to the published commit.
	require.NoError(t, err)
	require.Equal(t, brc20Commit, hex.EncodeToString(signedCommit.Encoded))
	requireZeroed(t, privKey)

	// The published commit is 125 base bytes and 235 total bytes.
	require.Equal(t, uint64(610), signedCommit.Weight.Val())

	// Arrange: The reveal spends the commitment through its script path.
	privKey, _ = privKeyFromHex(t, inscriberPrivKey, inscriberPubKey)

	reveal, err := script.NewInscriptionSpend(alice, insc)
	require.NoError(t, err)
	require.True(t, reveal.PkScript().Equal(commit.PkScript))

	revealPlan, err := planner.Plan(&utxo.SigningRequest{
		Version: 2,
		Inputs: []utxo.TxInput{{
			OutPoint: wire.OutPoint{
				Hash:  signedCommit.TxID,
				Index: 0,
			},
			Amount:      7_000,
			Sequence:    wire.MaxTxInSequenceNum,
			SigHashType: txscript.SigHashDefault,
			Spend:       reveal,
		}},
		Outputs:       []utxo.TxOutput{{Amount: 546, Script: back}},
		DisableChange: true,
	}, fn.None[script.Script]())
	require.NoError(t, err)

	// Act: Sign the reveal.
	signedReveal, err := Sign(revealPlan, privKey)

	// Assert: Everything but the 64-byte signature matches, and the
	// witness parses back into the inscription.
	require.NoError(t, err)

	encoded := hex.EncodeToString(signedReveal.Encoded)
	require.Equal(t, brc20Reveal[:164], encoded[:164])
	require.Equal(t, brc20Reveal[292:], encoded[292:])

	witness := signedReveal.Tx.TxIn[0].Witness
	require.Len(t, witness, 3)
	require.Len(t, witness[0], 64)

	parsed, err := script.ParseInscription(witness[1])
	require.NoError(t, err)
	require.Equal(t, insc.Payload(), parsed.Payload())
	require.Equal(t, script.BRC20ContentType, parsed.ContentType())
}

// TestSignFeeProjection checks the projected and realized weight and fee of
// single input spends.
func TestSignFeeProjection(t *testing.T) {
	t.Parallel()

	const satPerVByte = 20

	testCases := []struct {
		name      string
		spend     func(*btcec.PublicKey) (script.SpendCondition, error)
		recipient func(*btcec.PublicKey) (script.Script, error)
		projected uint64
		realized  uint64
	}{{
		name: "p2pkh",
		spend: func(k *btcec.PublicKey) (script.SpendCondition, error) {
			return script.NewP2PKHSpend(k)
		},
		recipient: script.PayToPubKey,
		projected: 768,
		realized:  768,
	}, {
		name: "p2wpkh",
		spend: func(k *btcec.PublicKey) (script.SpendCondition, error) {
			return script.NewP2WPKHSpend(k)
		},
		recipient: script.PayToWitnessPubKey,
		projected: 438,
		realized:  438,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: Alice sends 1 of her 2 BTC to bob.
			privKey, alice := privKeyFromHex(t, feePrivKey, feePubKey)
			bob, err := btcec.ParsePubKey(fromHex(t, feeBobPubKey))
			require.NoError(t, err)

			spend, err := tc.spend(alice)
			require.NoError(t, err)
			out, err := tc.recipient(bob)
			require.NoError(t, err)

			rate := btcunit.NewSatPerVByte(satPerVByte)
			plan, err := planner.Plan(&utxo.SigningRequest{
				Version: 2,
				Inputs: []utxo.TxInput{{
					OutPoint:    outPoint(t, feeTxID, 0),
					Amount:      2 * btcutil.SatoshiPerBitcoin,
					Sequence:    wire.MaxTxInSequenceNum,
					SigHashType: txscript.SigHashAll,
					Spend:       spend,
				}},
				Outputs: []utxo.TxOutput{{
					Amount: btcutil.SatoshiPerBitcoin,
					Script: out,
				}},
				FeeRate:       rate,
				DisableChange: true,
			}, fn.None[script.Script]())
			require.NoError(t, err)

			// Act: Sign the plan.
			signed, err := Sign(plan, privKey)
			require.NoError(t, err)

			// Assert: Fee is ceil(weight/4) * rate on both sides.
			require.Equal(t, tc.projected, plan.Weight.Val())
			require.Equal(t, btcutil.Amount((tc.projected+3)/4*
				satPerVByte), plan.Fee)
			require.Equal(t, tc.realized, signed.Weight.Val())
			require.Equal(t, btcutil.Amount((tc.realized+3)/4*
				satPerVByte), signed.Fee)
		})
	}
}

// mixedRequest returns a request spending one output of every spend
// condition of pubKey.
func mixedRequest(t *testing.T, pubKey *btcec.PublicKey) *utxo.SigningRequest {
	t.Helper()

	p2pkh, err := script.NewP2PKHSpend(pubKey)
	require.NoError(t, err)
	p2wpkh, err := script.NewP2WPKHSpend(pubKey)
	require.NoError(t, err)
	p2wsh, err := script.NewP2WSHSpend(pubKey, nil)
	require.NoError(t, err)
	keySpend, err := script.NewP2TRKeySpend(pubKey)
	require.NoError(t, err)
	insc, err := script.NewInscription("image/png", []byte{0x89, 'P'})
	require.NoError(t, err)
	reveal, err := script.NewInscriptionSpend(pubKey, insc)
	require.NoError(t, err)

	spends := []script.SpendCondition{p2pkh, p2wpkh, p2wsh, keySpend, reveal}
	flags := []txscript.SigHashType{
		txscript.SigHashAll,
		txscript.SigHashAll | txscript.SigHashAnyOneCanPay,
		txscript.SigHashSingle,
		txscript.SigHashDefault,
		txscript.SigHashNone,
	}

	req := &utxo.SigningRequest{Version: 2, FeeRate: btcunit.NewSatPerVByte(5)}
	for i, spend := range spends {
		req.Inputs = append(req.Inputs, utxo.TxInput{
			OutPoint: wire.OutPoint{
				Hash:  chainhash.Hash{0xaa, byte(i)},
				Index: uint32(i),
			},
			Amount:      btcutil.Amount(10_000 * (i + 1)),
			Sequence:    wire.MaxTxInSequenceNum - uint32(i),
			SigHashType: flags[i],
			Spend:       spend,
		})
	}

	bob, err := script.PayToTaprootKey(pubKey)
	require.NoError(t, err)
	memo, err := script.NullData([]byte("utxocore"))
	require.NoError(t, err)

	req.Outputs = []utxo.TxOutput{
		{Amount: 50_000, Script: bob},
		{Amount: 0, Script: memo},
		{Amount: 40_000, Script: bob},
	}

	return req
}

// TestSignValidity checks every signed input against the script engine and
// that signing is deterministic.
func TestSignValidity(t *testing.T) {
	t.Parallel()

	seed := []byte("deterministic signing test key!!")
	_, pubKey := btcec.PrivKeyFromBytes(seed)

	change, err := script.PayToWitnessPubKey(pubKey)
	require.NoError(t, err)

	plan, err := planner.Plan(mixedRequest(t, pubKey), fn.Some(change))
	require.NoError(t, err)
	require.True(t, plan.HasChange())

	// Act: Sign the same plan twice with fresh copies of the key.
	privKey, _ := btcec.PrivKeyFromBytes(seed)
	first, err := Sign(plan, privKey)
	require.NoError(t, err)
	requireZeroed(t, privKey)

	privKey, _ = btcec.PrivKeyFromBytes(seed)
	second, err := Sign(plan.Clone(), privKey)
	require.NoError(t, err)

	// Assert: Identical output and every input verifies.
	require.Equal(t, first.Encoded, second.Encoded)
	require.Equal(t, plan.InputAmount()-plan.OutputAmount(), plan.Fee)

	engine, err := sighash.NewEngine(first.Tx, plan.SighashInputs())
	require.NoError(t, err)

	for i, in := range plan.Inputs {
		vm, err := txscript.NewEngine(
			in.Spend.PkScript().Bytes(), first.Tx, i,
			txscript.StandardVerifyFlags, nil, engine.SigHashes(),
			int64(in.Amount), engine.PrevOutFetcher(),
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}

// TestSignErrors checks that failures return no output and still wipe the
// key.
func TestSignErrors(t *testing.T) {
	t.Parallel()

	_, pubKey := btcec.PrivKeyFromBytes([]byte("signing key of the plan owner!!!"))
	change, err := script.PayToWitnessPubKey(pubKey)
	require.NoError(t, err)

	plan, err := planner.Plan(mixedRequest(t, pubKey), fn.Some(change))
	require.NoError(t, err)

	// A foreign key cannot sign.
	other, _ := btcec.PrivKeyFromBytes([]byte("somebody else's key entirely!!!!"))
	out, err := Sign(plan, other)
	require.Nil(t, out)
	require.Equal(t, errcode.InvalidSignature, errcode.CodeOf(err))
	requireZeroed(t, other)

	// A nil plan fails before signing.
	owner, _ := btcec.PrivKeyFromBytes([]byte("signing key of the plan owner!!!"))
	out, err = Sign(nil, owner)
	require.Nil(t, out)
	require.Error(t, err)
	requireZeroed(t, owner)

	// A nil key is rejected.
	_, err = Sign(plan, nil)
	require.ErrorIs(t, err, ErrNilKey)
}

// TestTweakKeySpend checks the key-path signing key matches BIP 341 for
// internal keys of either parity and leaves the internal key intact.
func TestTweakKeySpend(t *testing.T) {
	t.Parallel()

	seen := make(map[byte]bool)
	for seed := byte(1); seed <= 16; seed++ {
		// Arrange.
		keyBytes := make([]byte, btcec.PrivKeyBytesLen)
		keyBytes[31] = seed
		privKey, pubKey := btcec.PrivKeyFromBytes(keyBytes)
		seen[pubKey.SerializeCompressed()[0]] = true

		// Act.
		tweaked := tweakKeySpend(privKey)

		// Assert.
		want := txscript.TweakTaprootPrivKey(*privKey, nil)
		require.Equal(t, want.Serialize(), tweaked.Serialize(), "seed %d",
			seed)
		require.Equal(t,
			schnorr.SerializePubKey(
				txscript.ComputeTaprootKeyNoScript(pubKey),
			),
			schnorr.SerializePubKey(tweaked.PubKey()),
		)
		require.Equal(t, keyBytes, privKey.Serialize())
	}

	// Both parities were covered.
	require.True(t, seen[0x02])
	require.True(t, seen[0x03])
}
