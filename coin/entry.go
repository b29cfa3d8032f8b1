// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coin adapts the chain-agnostic planner, compiler and signer to
// concrete UTXO chains. Each chain is an Entry describing its address format,
// the spend conditions it allows and the optional modules it provides.
//
// Optional modules are always returned, but a chain that lacks one returns a
// stand-in whose methods fail with errcode.UnsupportedModule. Callers are
// expected to check Supports before invoking a module:
//
//	entry := coin.NewBitcoin(&chaincfg.MainNetParams)
//	if entry.Supports(coin.CapMessageSigning) {
//		sig, err := entry.MessageSigner().SignMessage(key, "hello")
//		...
//	}
package coin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/utxocore/errcode"
	"github.com/btcsuite/utxocore/script"
	"github.com/btcsuite/utxocore/utxo"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Capability names an optional module a chain may provide.
type Capability uint8

const (
	// CapMessageSigning is the signed message module.
	CapMessageSigning Capability = iota

	// CapJSONSigning is the JSON request signing module.
	CapJSONSigning

	// CapWalletConnect is the wallet connection handshake module.
	CapWalletConnect

	// CapTxDecoding is the raw transaction decoding module.
	CapTxDecoding
)

// String returns the name of the capability.
func (c Capability) String() string {
	switch c {
	case CapMessageSigning:
		return "message-signing"
	case CapJSONSigning:
		return "json-signing"
	case CapWalletConnect:
		return "wallet-connect"
	case CapTxDecoding:
		return "tx-decoding"
	default:
		return fmt.Sprintf("Capability(%d)", uint8(c))
	}
}

// Entry is a UTXO chain plugged into the shared signing engine.
type Entry interface {
	// Name returns the chain's name.
	Name() string

	// Params returns the chain parameters used for addresses.
	Params() *chaincfg.Params

	// Supports reports whether the chain provides the optional module.
	Supports(c Capability) bool

	// SupportsKind reports whether the chain can spend from or pay to
	// scripts of the given kind.
	SupportsKind(k script.Kind) bool

	// ParseAddress decodes an address of this chain.
	ParseAddress(addr string) (btcutil.Address, error)

	// AddressScript returns the locking script paying to addr.
	AddressScript(addr string) (script.Script, error)

	// DeriveAddress returns the address of kind controlled by pubKey.
	DeriveAddress(pubKey *btcec.PublicKey,
		kind script.Kind) (btcutil.Address, error)

	// ChangeScript returns the chain's default change destination for
	// the given key, or None when the chain has none.
	ChangeScript(pubKey *btcec.PublicKey) fn.Option[script.Script]

	// MessageSigner returns the signed message module.
	MessageSigner() MessageSigner

	// JSONSigner returns the JSON request signing module.
	JSONSigner() JSONSigner

	// WalletConnector returns the wallet connection module.
	WalletConnector() WalletConnector

	// TransactionDecoder returns the raw transaction decoding module.
	TransactionDecoder() TransactionDecoder
}

// MessageSigner signs and verifies messages in the chain's signed message
// format.
type MessageSigner interface {
	// SignMessage returns the base64 encoded compact signature of msg.
	SignMessage(privKey *btcec.PrivateKey, msg string) (string, error)

	// VerifyMessage checks that sig was made over msg by the key behind
	// addr.
	VerifyMessage(addr, msg, sig string) error
}

// JSONSigner signs a request described in JSON.
type JSONSigner interface {
	// SignJSON signs the request and returns the hex encoded transaction.
	SignJSON(request []byte, privKey *btcec.PrivateKey) (string, error)
}

// WalletConnector turns a wallet connection request into a signing request.
type WalletConnector interface {
	// ParseRequest decodes the payload of the given method.
	ParseRequest(method string,
		payload []byte) (*utxo.SigningRequest, error)
}

// TransactionDecoder decodes raw transactions of the chain.
type TransactionDecoder interface {
	// DecodeTransaction decodes a serialized transaction.
	DecodeTransaction(raw []byte) (*DecodedTx, error)
}

// unsupported returns the error of an unsupported module call.
func unsupported(c Capability) error {
	return errcode.New(errcode.UnsupportedModule, "%v not supported", c)
}

// NoMessageSigner is the stand-in of chains without message signing.
type NoMessageSigner struct{}

// SignMessage always fails with UnsupportedModule.
func (NoMessageSigner) SignMessage(*btcec.PrivateKey, string) (string, error) {
	return "", unsupported(CapMessageSigning)
}

// VerifyMessage always fails with UnsupportedModule.
func (NoMessageSigner) VerifyMessage(string, string, string) error {
	return unsupported(CapMessageSigning)
}

// NoJSONSigner is the stand-in of chains without JSON signing.
type NoJSONSigner struct{}

// SignJSON always fails with UnsupportedModule.
func (NoJSONSigner) SignJSON([]byte, *btcec.PrivateKey) (string, error) {
	return "", unsupported(CapJSONSigning)
}

// NoWalletConnector is the stand-in of chains without wallet connection.
type NoWalletConnector struct{}

// ParseRequest always fails with UnsupportedModule.
func (NoWalletConnector) ParseRequest(string,
	[]byte) (*utxo.SigningRequest, error) {

	return nil, unsupported(CapWalletConnect)
}

// NoTransactionDecoder is the stand-in of chains without decoding.
type NoTransactionDecoder struct{}

// DecodeTransaction always fails with UnsupportedModule.
func (NoTransactionDecoder) DecodeTransaction([]byte) (*DecodedTx, error) {
	return nil, unsupported(CapTxDecoding)
}

// Compile-time checks to ensure the stand-ins satisfy their interfaces.
var (
	_ MessageSigner      = NoMessageSigner{}
	_ JSONSigner         = NoJSONSigner{}
	_ WalletConnector    = NoWalletConnector{}
	_ TransactionDecoder = NoTransactionDecoder{}
)
