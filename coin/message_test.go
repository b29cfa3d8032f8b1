package coin

import (
	"encoding/base64"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/stretchr/testify/require"
)

// TestMessageRoundTrip signs and verifies messages on both chains.
func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		entry Entry
		kind  script.Kind
	}{{
		name:  "bitcoin p2pkh",
		entry: NewBitcoin(&chaincfg.MainNetParams),
		kind:  script.KindP2PKH,
	}, {
		name:  "bitcoin p2wpkh",
		entry: NewBitcoin(&chaincfg.TestNet3Params),
		kind:  script.KindP2WPKH,
	}, {
		name:  "dogecoin p2pkh",
		entry: NewDogecoin(),
		kind:  script.KindP2PKH,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: Alice's address on the chain.
			privKey := parsePrivKey(t, alicePrivKey)
			addr, err := tc.entry.DeriveAddress(privKey.PubKey(), tc.kind)
			require.NoError(t, err)

			signer := tc.entry.MessageSigner()

			// Act: Sign a message twice.
			sig, err := signer.SignMessage(privKey, "hello world")
			require.NoError(t, err)
			again, err := signer.SignMessage(privKey, "hello world")
			require.NoError(t, err)

			// Assert: Signatures are deterministic, compact and
			// verify only for the signed message.
			require.Equal(t, sig, again)

			raw, err := base64.StdEncoding.DecodeString(sig)
			require.NoError(t, err)
			require.Len(t, raw, 65)

			require.NoError(t, signer.VerifyMessage(
				addr.EncodeAddress(), "hello world", sig,
			))

			err = signer.VerifyMessage(
				addr.EncodeAddress(), "hello world!", sig,
			)
			require.ErrorIs(t, err, errcode.ErrInvalidSignature)
		})
	}
}

// TestMessageMagic checks that a signature does not carry over between
// chains with different prefixes.
func TestMessageMagic(t *testing.T) {
	t.Parallel()

	privKey := parsePrivKey(t, alicePrivKey)
	bitcoin := NewBitcoin(&chaincfg.MainNetParams)
	dogecoin := NewDogecoin()

	btcSig, err := bitcoin.MessageSigner().SignMessage(privKey, "much wow")
	require.NoError(t, err)
	dogeSig, err := dogecoin.MessageSigner().SignMessage(privKey, "much wow")
	require.NoError(t, err)
	require.NotEqual(t, btcSig, dogeSig)

	dogeAddr, err := dogecoin.DeriveAddress(
		privKey.PubKey(), script.KindP2PKH,
	)
	require.NoError(t, err)

	err = dogecoin.MessageSigner().VerifyMessage(
		dogeAddr.EncodeAddress(), "much wow", btcSig,
	)
	require.ErrorIs(t, err, errcode.ErrInvalidSignature)
}

// TestVerifyMessageErrors covers malformed verification input.
func TestVerifyMessageErrors(t *testing.T) {
	t.Parallel()

	entry := NewBitcoin(&chaincfg.MainNetParams)
	privKey := parsePrivKey(t, alicePrivKey)

	sig, err := entry.MessageSigner().SignMessage(privKey, "msg")
	require.NoError(t, err)

	p2pkh, err := entry.DeriveAddress(privKey.PubKey(), script.KindP2PKH)
	require.NoError(t, err)
	p2tr, err := entry.DeriveAddress(privKey.PubKey(), script.KindP2TR)
	require.NoError(t, err)
	bob, err := entry.DeriveAddress(
		parsePubKey(t, bobPubKey), script.KindP2PKH,
	)
	require.NoError(t, err)

	testCases := []struct {
		name string
		addr string
		sig  string
		code errcode.Code
	}{{
		name: "taproot address",
		addr: p2tr.EncodeAddress(),
		sig:  sig,
		code: errcode.InvalidInput,
	}, {
		name: "garbage address",
		addr: "not an address",
		sig:  sig,
		code: errcode.InvalidInput,
	}, {
		name: "bad base64",
		addr: p2pkh.EncodeAddress(),
		sig:  "***",
		code: errcode.InvalidSignature,
	}, {
		name: "short signature",
		addr: p2pkh.EncodeAddress(),
		sig:  base64.StdEncoding.EncodeToString([]byte{31, 1, 2}),
		code: errcode.InvalidSignature,
	}, {
		name: "other key",
		addr: bob.EncodeAddress(),
		sig:  sig,
		code: errcode.InvalidSignature,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := entry.MessageSigner().VerifyMessage(
				tc.addr, "msg", tc.sig,
			)
			require.Equal(t, tc.code, errcode.CodeOf(err))
		})
	}

	_, err = entry.MessageSigner().SignMessage(nil, "msg")
	require.ErrorIs(t, err, errcode.ErrInvalidInput)
}
