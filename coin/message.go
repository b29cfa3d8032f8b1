package coin

import (
	"bytes"
	"encoding/base64"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	// ErrMessageKeyMismatch is returned when a message signature was made
	// by a key other than the one behind the address.
	ErrMessageKeyMismatch = errors.New("message signed by another key")

	// ErrMessageAddress is returned when a signed message is checked
	// against an address that is not a key hash.
	ErrMessageAddress = errors.New("address is not a key hash")
)

// messageSigner implements the signed message format shared by Bitcoin and
// its forks, which differ only in the magic prefix.
type messageSigner struct {
	entry Entry
	magic string
}

// messageHash returns the double SHA256 of the magic prefix and the message,
// both serialized as variable length strings.
func (m *messageSigner) messageHash(msg string) []byte {
	var buf bytes.Buffer

	// Writing to a bytes.Buffer can't fail.
	_ = wire.WriteVarString(&buf, 0, m.magic)
	_ = wire.WriteVarString(&buf, 0, msg)

	return chainhash.DoubleHashB(buf.Bytes())
}

// SignMessage returns the base64 encoded 65-byte compact signature of msg,
// recoverable to the compressed form of the key. The key is left untouched.
func (m *messageSigner) SignMessage(privKey *btcec.PrivateKey,
	msg string) (string, error) {

	if privKey == nil {
		return "", errcode.New(errcode.InvalidInput,
			"%s: nil private key", m.entry.Name())
	}

	sig := ecdsa.SignCompact(privKey, m.messageHash(msg), true)

	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyMessage recovers the key of sig and checks that it hashes to the key
// hash of addr. P2PKH and P2WPKH addresses are accepted.
func (m *messageSigner) VerifyMessage(addr, msg, sig string) error {
	decoded, err := m.entry.ParseAddress(addr)
	if err != nil {
		return err
	}

	switch decoded.(type) {
	case *btcutil.AddressPubKeyHash, *btcutil.AddressWitnessPubKeyHash:
	default:
		return errcode.Wrap(errcode.InvalidInput, ErrMessageAddress,
			"%s", addr)
	}

	rawSig, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return errcode.Wrap(errcode.InvalidSignature, err, "base64")
	}

	pubKey, compressed, err := ecdsa.RecoverCompact(
		rawSig, m.messageHash(msg),
	)
	if err != nil {
		return errcode.Wrap(errcode.InvalidSignature, err, "recover")
	}

	serialized := pubKey.SerializeUncompressed()
	if compressed {
		serialized = pubKey.SerializeCompressed()
	}

	if !bytes.Equal(btcutil.Hash160(serialized), decoded.ScriptAddress()) {
		return errcode.Wrap(errcode.InvalidSignature,
			ErrMessageKeyMismatch, "%s", addr)
	}

	return nil
}
