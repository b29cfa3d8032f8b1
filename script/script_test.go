package script

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/stretchr/testify/require"
)

// hexBytes decodes a hex string or fails the test.
func hexBytes(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

// testPubKey parses a compressed public key or fails the test.
func testPubKey(t *testing.T, s string) *btcec.PublicKey {
	t.Helper()

	pubKey, err := btcec.ParsePubKey(hexBytes(t, s))
	require.NoError(t, err)

	return pubKey
}

const (
	bobPubKey   = "037ed9a436e11ec4947ac4b7823787e24ba73180f1edd2857bff19c9f4d62b65bf"
	alicePubKey = "030f209b6ada5edb42c77fd2bc64ad650ae38314c8f451f3e36d80bc8e26f132cb"
)

// TestBuilders checks every builder against its expected bytes and kind.
func TestBuilders(t *testing.T) {
	t.Parallel()

	bob := testPubKey(t, bobPubKey)
	alice := testPubKey(t, alicePubKey)

	p2pkh, err := PayToPubKey(bob)
	require.NoError(t, err)
	require.Equal(t, KindP2PKH, p2pkh.Kind())
	require.Equal(t,
		"76a9145eaaa4f458f9158f86afcba08dd7448d27045e3d88ac",
		hex.EncodeToString(p2pkh.Bytes()),
	)

	p2wpkh, err := PayToWitnessPubKey(alice)
	require.NoError(t, err)
	require.Equal(t, KindP2WPKH, p2wpkh.Kind())
	require.Equal(t,
		"0014e311b8d6ddff856ce8e9a4e03bc6d4fe5050a83d",
		hex.EncodeToString(p2wpkh.Bytes()),
	)

	p2wsh, err := PayToWitnessScriptHash([]byte{txscript.OP_TRUE})
	require.NoError(t, err)
	require.Equal(t, KindP2WSH, p2wsh.Kind())
	require.Equal(t, p2wshLen, p2wsh.Len())

	p2tr, err := PayToTaprootKey(alice)
	require.NoError(t, err)
	require.Equal(t, KindP2TR, p2tr.Kind())

	// The BIP-0086 script must match what btcutil derives for the same
	// key.
	addr, err := btcutil.NewAddressTaproot(
		xOnly(txscript.ComputeTaprootKeyNoScript(alice)),
		&chaincfg.MainNetParams,
	)
	require.NoError(t, err)
	expected, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	require.Equal(t, expected, p2tr.Bytes())

	nullData, err := NullData([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, KindOpReturn, nullData.Kind())
	require.Equal(t, "6a0568656c6c6f", hex.EncodeToString(nullData.Bytes()))
}

// TestBuilderErrors checks that malformed builder arguments are rejected.
func TestBuilderErrors(t *testing.T) {
	t.Parallel()

	_, err := PayToPubKeyHash(make([]byte, 19))
	require.ErrorIs(t, err, errcode.ErrInvalidInput)

	_, err = PayToWitnessPubKeyHash(nil)
	require.ErrorIs(t, err, errcode.ErrInvalidInput)

	_, err = PayToWitnessScriptHash(nil)
	require.ErrorIs(t, err, errcode.ErrInvalidInput)

	_, err = PayToTaprootKey(nil)
	require.ErrorIs(t, err, errcode.ErrInvalidInput)

	_, err = NullData(make([]byte, txscript.MaxDataCarrierSize+1))
	require.ErrorIs(t, err, errcode.ErrUnsupportedScriptVariant)
}

// TestRecognize checks that recognition agrees with the builders and that no
// two kinds match the same bytes.
func TestRecognize(t *testing.T) {
	t.Parallel()

	alice := testPubKey(t, alicePubKey)

	p2pkh, err := PayToPubKey(alice)
	require.NoError(t, err)
	p2wpkh, err := PayToWitnessPubKey(alice)
	require.NoError(t, err)
	p2wsh, err := PayToWitnessScriptHash([]byte{txscript.OP_TRUE})
	require.NoError(t, err)
	p2tr, err := PayToTaprootKey(alice)
	require.NoError(t, err)
	nullData, err := NullData([]byte{1, 2, 3})
	require.NoError(t, err)
	insc, err := NewBRC20Transfer("oadf", 20)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		script   Script
		expected Kind
	}{
		{name: "p2pkh", script: p2pkh, expected: KindP2PKH},
		{name: "p2wpkh", script: p2wpkh, expected: KindP2WPKH},
		{name: "p2wsh", script: p2wsh, expected: KindP2WSH},
		{name: "p2tr", script: p2tr, expected: KindP2TR},
		{name: "op_return", script: nullData, expected: KindOpReturn},
		{
			name:     "inscription",
			script:   insc.Envelope(),
			expected: KindInscription,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Act: Recognize the built bytes.
			kind := Recognize(tc.script.Bytes())

			// Assert: The kind matches the builder's tag.
			require.True(t, kind.IsSome())
			require.Equal(t, tc.expected, kind.UnwrapOr(KindUnknown))
			require.Equal(t, tc.expected, tc.script.Kind())
			require.Equal(t, tc.expected,
				FromBytes(tc.script.Bytes()).Kind())
		})
	}

	// Truncated and unknown scripts are not recognized.
	require.True(t, Recognize(p2pkh.Bytes()[:24]).IsNone())
	require.True(t, Recognize(nil).IsNone())
	require.True(t, Recognize([]byte{txscript.OP_TRUE}).IsNone())
	require.Equal(t, KindUnknown, FromBytes([]byte{0x51}).Kind())
}

// TestAppendPush checks the push-data encoding at each size boundary.
func TestAppendPush(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		size   int
		prefix []byte
	}{
		{name: "single byte", size: 1, prefix: []byte{0x01}},
		{name: "max direct", size: 75, prefix: []byte{75}},
		{
			name:   "pushdata1",
			size:   76,
			prefix: []byte{txscript.OP_PUSHDATA1, 76},
		},
		{
			name:   "pushdata2",
			size:   520,
			prefix: []byte{txscript.OP_PUSHDATA2, 0x08, 0x02},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data := bytes.Repeat([]byte{0x01}, tc.size)
			out := appendPush(nil, data)

			require.Equal(t, tc.prefix, out[:len(tc.prefix)])
			require.Equal(t, data, out[len(tc.prefix):])
		})
	}
}

// TestSpendConditions checks the spent scripts and unlocking data of every
// spend condition.
func TestSpendConditions(t *testing.T) {
	t.Parallel()

	alice := testPubKey(t, alicePubKey)
	sig := bytes.Repeat([]byte{0xaa}, 72)

	p2pkh, err := NewP2PKHSpend(alice)
	require.NoError(t, err)
	sigScript, witness, err := p2pkh.Unlock(sig)
	require.NoError(t, err)
	require.Nil(t, witness)
	require.Len(t, sigScript, 1+72+1+33)
	require.Equal(t, KindP2PKH, p2pkh.PkScript().Kind())

	p2wpkh, err := NewP2WPKHSpend(alice)
	require.NoError(t, err)
	sigScript, witness, err = p2wpkh.Unlock(sig)
	require.NoError(t, err)
	require.Nil(t, sigScript)
	require.Len(t, witness, 2)
	require.Equal(t, alice.SerializeCompressed(), witness[1])

	p2wsh, err := NewP2WSHSpend(alice, nil)
	require.NoError(t, err)
	_, witness, err = p2wsh.Unlock(sig)
	require.NoError(t, err)
	require.Equal(t, p2wsh.WitnessScript(), witness[1])
	require.Equal(t, KindP2WSH, p2wsh.Kind())

	keySpend, err := NewP2TRKeySpend(alice)
	require.NoError(t, err)
	_, witness, err = keySpend.Unlock(sig[:64])
	require.NoError(t, err)
	require.Len(t, witness, 1)
	require.True(t, SamePubKey(keySpend, alice))
	require.False(t, keySpend.OutputKey().IsEqual(alice))

	insc, err := NewBRC20Transfer("oadf", 20)
	require.NoError(t, err)
	scriptSpend, err := NewInscriptionSpend(alice, insc)
	require.NoError(t, err)
	_, witness, err = scriptSpend.Unlock(sig[:64])
	require.NoError(t, err)
	require.Len(t, witness, 3)
	require.Equal(t, insc.Envelope().Bytes(), witness[1])

	// Nil keys are rejected up front.
	_, err = NewP2PKHSpend(nil)
	require.ErrorIs(t, err, errcode.ErrInvalidInput)
	_, err = NewP2TRKeySpend(nil)
	require.ErrorIs(t, err, errcode.ErrInvalidInput)
	_, err = NewInscriptionSpend(alice, nil)
	require.ErrorIs(t, err, errcode.ErrUnsupportedScriptVariant)

	bob := testPubKey(t, bobPubKey)
	require.False(t, SamePubKey(p2wpkh, bob))
	require.False(t, SamePubKey(p2wpkh, nil))
}
