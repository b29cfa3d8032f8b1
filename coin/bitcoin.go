package coin

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// BitcoinMessageMagic prefixes every Bitcoin signed message.
const BitcoinMessageMagic = "Bitcoin Signed Message:\n"

var (
	// ErrWrongNetwork is returned when an address belongs to another
	// network.
	ErrWrongNetwork = errors.New("address is not for this network")

	// ErrUnsupportedAddress is returned when no address of the requested
	// kind can be derived.
	ErrUnsupportedAddress = errors.New("unsupported address kind")
)

// chain holds what the Bitcoin-like entries share.
type chain struct {
	name   string
	params *chaincfg.Params
	kinds  map[script.Kind]bool
	caps   map[Capability]bool
}

// Name returns the chain's name.
func (c *chain) Name() string {
	return c.name
}

// Params returns the chain parameters.
func (c *chain) Params() *chaincfg.Params {
	return c.params
}

// Supports reports whether the chain provides the module.
func (c *chain) Supports(want Capability) bool {
	return c.caps[want]
}

// SupportsKind reports whether the chain handles scripts of kind k.
func (c *chain) SupportsKind(k script.Kind) bool {
	return c.kinds[k]
}

// ParseAddress decodes addr and makes sure it belongs to this chain.
func (c *chain) ParseAddress(addr string) (btcutil.Address, error) {
	decoded, err := btcutil.DecodeAddress(addr, c.params)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err,
			"%s: address %q", c.name, addr)
	}

	if !decoded.IsForNet(c.params) {
		return nil, errcode.Wrap(errcode.InvalidInput, ErrWrongNetwork,
			"%s: address %q", c.name, addr)
	}

	return decoded, nil
}

// AddressScript returns the locking script paying to addr.
func (c *chain) AddressScript(addr string) (script.Script, error) {
	decoded, err := c.ParseAddress(addr)
	if err != nil {
		return script.Script{}, err
	}

	raw, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return script.Script{}, errcode.Wrap(
			errcode.UnsupportedScriptVariant, err, "%s: address %q",
			c.name, addr,
		)
	}

	s := script.FromBytes(raw)
	if !c.SupportsKind(s.Kind()) {
		return script.Script{}, errcode.New(
			errcode.UnsupportedScriptVariant, "%s: %v addresses",
			c.name, s.Kind(),
		)
	}

	return s, nil
}

// DeriveAddress returns the address of the given kind controlled by pubKey.
// Taproot addresses commit to the BIP-0086 tweak of the key.
func (c *chain) DeriveAddress(pubKey *btcec.PublicKey,
	kind script.Kind) (btcutil.Address, error) {

	if pubKey == nil {
		return nil, errcode.New(errcode.InvalidInput,
			"%s: nil public key", c.name)
	}

	if !c.SupportsKind(kind) {
		return nil, errcode.Wrap(errcode.UnsupportedScriptVariant,
			ErrUnsupportedAddress, "%s: %v", c.name, kind)
	}

	var (
		addr btcutil.Address
		err  error
	)
	switch kind {
	case script.KindP2PKH:
		addr, err = btcutil.NewAddressPubKeyHash(
			btcutil.Hash160(pubKey.SerializeCompressed()), c.params,
		)

	case script.KindP2WPKH:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(
			btcutil.Hash160(pubKey.SerializeCompressed()), c.params,
		)

	case script.KindP2TR:
		outputKey := txscript.ComputeTaprootKeyNoScript(pubKey)
		addr, err = btcutil.NewAddressTaproot(
			schnorr.SerializePubKey(outputKey), c.params,
		)

	default:
		return nil, errcode.Wrap(errcode.UnsupportedScriptVariant,
			ErrUnsupportedAddress, "%s: %v", c.name, kind)
	}

	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidInput, err, "%s",
			c.name)
	}

	return addr, nil
}

// Bitcoin is the Bitcoin entry. It spends and pays to every script kind and
// provides message signing, JSON signing and transaction decoding.
type Bitcoin struct {
	chain
}

// NewBitcoin creates the Bitcoin entry for the given network.
func NewBitcoin(params *chaincfg.Params) *Bitcoin {
	return &Bitcoin{chain: chain{
		name:   "bitcoin",
		params: params,
		kinds: map[script.Kind]bool{
			script.KindUnknown:  true,
			script.KindP2PKH:    true,
			script.KindP2WPKH:   true,
			script.KindP2WSH:    true,
			script.KindP2TR:     true,
			script.KindOpReturn: true,
		},
		caps: map[Capability]bool{
			CapMessageSigning: true,
			CapJSONSigning:    true,
			CapTxDecoding:     true,
		},
	}}
}

// ChangeScript pays change to the P2WPKH script of pubKey.
func (b *Bitcoin) ChangeScript(
	pubKey *btcec.PublicKey) fn.Option[script.Script] {

	s, err := script.PayToWitnessPubKey(pubKey)
	if err != nil {
		return fn.None[script.Script]()
	}

	return fn.Some(s)
}

// MessageSigner returns the Bitcoin signed message module.
func (b *Bitcoin) MessageSigner() MessageSigner {
	return &messageSigner{entry: b, magic: BitcoinMessageMagic}
}

// JSONSigner returns the JSON signing module.
func (b *Bitcoin) JSONSigner() JSONSigner {
	return &jsonSigner{entry: b}
}

// WalletConnector returns the unsupported stand-in.
func (b *Bitcoin) WalletConnector() WalletConnector {
	return NoWalletConnector{}
}

// TransactionDecoder returns the transaction decoding module.
func (b *Bitcoin) TransactionDecoder() TransactionDecoder {
	return &txDecoder{params: b.params}
}

// A compile-time check to ensure Bitcoin satisfies the Entry interface.
var _ Entry = (*Bitcoin)(nil)
