package coin

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/stretchr/testify/require"
)

// TestParseSigHashType covers the accepted flag names.
func TestParseSigHashType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		expected txscript.SigHashType
		err      bool
	}{
		{name: "", expected: txscript.SigHashAll},
		{name: "ALL", expected: txscript.SigHashAll},
		{name: "none", expected: txscript.SigHashNone},
		{name: "single", expected: txscript.SigHashSingle},
		{name: "default", expected: txscript.SigHashDefault},
		{
			name: "all|anyonecanpay",
			expected: txscript.SigHashAll |
				txscript.SigHashAnyOneCanPay,
		},
		{
			name: "Single|AnyoneCanPay",
			expected: txscript.SigHashSingle |
				txscript.SigHashAnyOneCanPay,
		},
		{name: "default|anyonecanpay", err: true},
		{name: "all|everyone", err: true},
		{name: "some", err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			flag, err := ParseSigHashType(tc.name)
			if tc.err {
				require.ErrorIs(t, err,
					errcode.ErrUnsupportedSighashFlag)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, flag)
		})
	}
}

// TestRequestConversion converts a request using every descriptor type.
func TestRequestConversion(t *testing.T) {
	t.Parallel()

	entry := NewBitcoin(&chaincfg.MainNetParams)
	alice := parsePubKey(t, alicePubKey)

	changeAddr, err := entry.DeriveAddress(alice, script.KindP2TR)
	require.NoError(t, err)

	raw := `{
		"fee_rate": 12,
		"selector": "minimal",
		"change_address": "` + changeAddr.EncodeAddress() + `",
		"inputs": [
			{"txid": "` + repeat("11") + `", "vout": 1, "amount": 1000,
			 "spend": {"type": "p2pkh", "pubkey": "` + alicePubKey + `"}},
			{"txid": "` + repeat("22") + `", "vout": 2, "amount": 2000,
			 "sequence": 7, "sighash": "none",
			 "spend": {"type": "p2wsh", "pubkey": "` + alicePubKey + `"}},
			{"txid": "` + repeat("33") + `", "vout": 3, "amount": 3000,
			 "sighash": "default",
			 "spend": {"type": "p2tr", "pubkey": "` + alicePubKey + `"}},
			{"txid": "` + repeat("44") + `", "vout": 4, "amount": 4000,
			 "spend": {"type": "brc20", "pubkey": "` + alicePubKey + `",
			           "ticker": "oadf", "transfer_amount": 20}},
			{"txid": "` + repeat("55") + `", "vout": 5, "amount": 5000,
			 "spend": {"type": "ordinal", "pubkey": "` + alicePubKey + `",
			           "content_type": "text/plain", "payload": "6869"}}
		],
		"outputs": [
			{"amount": 546, "to": {"type": "p2wpkh", "pubkey": "` + bobPubKey + `"}},
			{"amount": 0, "to": {"type": "op_return", "data": "cafe"}},
			{"amount": 600, "address": "` + changeAddr.EncodeAddress() + `"},
			{"amount": 700, "script": "51"},
			{"amount": 800, "to": {"type": "brc20", "pubkey": "` + bobPubKey + `",
			                       "ticker": "oadf", "transfer_amount": 5}}
		]
	}`

	parsed, err := ParseRequest([]byte(raw))
	require.NoError(t, err)

	req, err := parsed.SigningRequest(entry)
	require.NoError(t, err)

	// Defaults are filled in.
	require.Equal(t, int32(2), req.Version)
	require.Equal(t, utxo.SelectMinimal{}, req.Selector)
	require.True(t, req.ChangeScript.IsSome())

	kinds := []script.Kind{
		script.KindP2PKH, script.KindP2WSH, script.KindP2TR,
		script.KindP2TR, script.KindP2TR,
	}
	for i, in := range req.Inputs {
		require.Equal(t, kinds[i], in.Spend.Kind(), "input %d", i)
		require.Equal(t, uint32(i+1), in.OutPoint.Index)
	}
	require.Equal(t, uint32(wire.MaxTxInSequenceNum), req.Inputs[0].Sequence)
	require.Equal(t, uint32(7), req.Inputs[1].Sequence)
	require.Equal(t, txscript.SigHashNone, req.Inputs[1].SigHashType)
	require.Equal(t, txscript.SigHashDefault, req.Inputs[2].SigHashType)
	require.Equal(t, repeat("44"), req.Inputs[3].OutPoint.Hash.String())

	outKinds := []script.Kind{
		script.KindP2WPKH, script.KindOpReturn, script.KindP2TR,
		script.KindUnknown, script.KindP2TR,
	}
	for i, out := range req.Outputs {
		require.Equal(t, outKinds[i], out.Script.Kind(), "output %d", i)
	}
}

// TestRequestErrors covers malformed requests.
func TestRequestErrors(t *testing.T) {
	t.Parallel()

	entry := NewBitcoin(&chaincfg.MainNetParams)
	input := `{"txid": "` + repeat("11") + `", "amount": 1000,
		"spend": {"type": "p2wpkh", "pubkey": "` + alicePubKey + `"}}`

	testCases := []struct {
		name string
		raw  string
		code errcode.Code
	}{{
		name: "bad json",
		raw:  `{`,
		code: errcode.InvalidInput,
	}, {
		name: "bad selector",
		raw:  `{"selector": "random"}`,
		code: errcode.InvalidInput,
	}, {
		name: "bad txid",
		raw: `{"inputs": [{"txid": "zz", "spend": {"type": "p2wpkh",
			"pubkey": "` + alicePubKey + `"}}]}`,
		code: errcode.InvalidInput,
	}, {
		name: "unknown spend",
		raw: `{"inputs": [{"txid": "` + repeat("11") + `",
			"spend": {"type": "p2sh", "pubkey": "` + alicePubKey + `"}}]}`,
		code: errcode.UnsupportedScriptVariant,
	}, {
		name: "bad pubkey",
		raw: `{"inputs": [{"txid": "` + repeat("11") + `",
			"spend": {"type": "p2wpkh", "pubkey": "0202"}}]}`,
		code: errcode.InvalidInput,
	}, {
		name: "two recipients",
		raw: `{"inputs": [` + input + `], "outputs": [{"amount": 1,
			"address": "x", "script": "51"}]}`,
		code: errcode.InvalidInput,
	}, {
		name: "testnet address",
		raw: `{"inputs": [` + input + `], "outputs": [{"amount": 1,
			"address": "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"}]}`,
		code: errcode.InvalidInput,
	}, {
		name: "bad ticker",
		raw: `{"inputs": [` + input + `], "outputs": [{"amount": 1,
			"to": {"type": "brc20", "pubkey": "` + alicePubKey + `",
			"ticker": "toolong", "transfer_amount": 1}}]}`,
		code: errcode.UnsupportedScriptVariant,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := ParseRequest([]byte(tc.raw))
			if err == nil {
				_, err = parsed.SigningRequest(entry)
			}

			require.Error(t, err)
			require.Equal(t, tc.code, errcode.CodeOf(err))
		})
	}
}

// repeat returns a 32-byte hex string of the given byte.
func repeat(b string) string {
	out := ""
	for range 32 {
		out += b
	}

	return out
}
