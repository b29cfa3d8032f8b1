package coin

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/utxocore/script"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// DogecoinMessageMagic prefixes every Dogecoin signed message.
const DogecoinMessageMagic = "Dogecoin Signed Message:\n"

// DogecoinMainNetParams are the address parameters of the Dogecoin main
// network. Only the fields used for keys and addresses differ from Bitcoin.
var DogecoinMainNetParams = dogecoinParams()

func dogecoinParams() chaincfg.Params {
	params := chaincfg.MainNetParams
	params.Name = "dogecoin"
	params.Net = wire.BitcoinNet(0xc0c0c0c0)
	params.DefaultPort = "22556"
	params.DNSSeeds = nil
	params.Checkpoints = nil
	params.Bech32HRPSegwit = ""

	params.PubKeyHashAddrID = 0x1e
	params.ScriptHashAddrID = 0x16
	params.PrivateKeyID = 0x9e

	params.HDPrivateKeyID = [4]byte{0x02, 0xfa, 0xc3, 0x98}
	params.HDPublicKeyID = [4]byte{0x02, 0xfa, 0xca, 0xfd}
	params.HDCoinType = 3

	return params
}

// Dogecoin is the Dogecoin entry. Segwit is not active on Dogecoin, so it
// only spends P2PKH outputs and pays to base58 addresses or OP_RETURN.
type Dogecoin struct {
	chain
}

// NewDogecoin creates the Dogecoin main network entry.
func NewDogecoin() *Dogecoin {
	return &Dogecoin{chain: chain{
		name:   "dogecoin",
		params: &DogecoinMainNetParams,
		kinds: map[script.Kind]bool{
			script.KindUnknown:  true,
			script.KindP2PKH:    true,
			script.KindOpReturn: true,
		},
		caps: map[Capability]bool{
			CapMessageSigning: true,
			CapTxDecoding:     true,
		},
	}}
}

// ChangeScript pays change to the P2PKH script of pubKey.
func (d *Dogecoin) ChangeScript(
	pubKey *btcec.PublicKey) fn.Option[script.Script] {

	s, err := script.PayToPubKey(pubKey)
	if err != nil {
		return fn.None[script.Script]()
	}

	return fn.Some(s)
}

// MessageSigner returns the Dogecoin signed message module.
func (d *Dogecoin) MessageSigner() MessageSigner {
	return &messageSigner{entry: d, magic: DogecoinMessageMagic}
}

// JSONSigner returns the unsupported stand-in.
func (d *Dogecoin) JSONSigner() JSONSigner {
	return NoJSONSigner{}
}

// WalletConnector returns the unsupported stand-in.
func (d *Dogecoin) WalletConnector() WalletConnector {
	return NoWalletConnector{}
}

// TransactionDecoder returns the transaction decoding module.
func (d *Dogecoin) TransactionDecoder() TransactionDecoder {
	return &txDecoder{params: d.params}
}

// A compile-time check to ensure Dogecoin satisfies the Entry interface.
var _ Entry = (*Dogecoin)(nil)
