package did

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Identity is a DID together with the secp256k1 key pair that controls it.
type Identity struct {
	DID           string `json:"did"`
	Address       string `json:"address"`
	PublicKeyHex  string `json:"publicKeyHex"`
	PrivateKeyHex string `json:"privateKey"`
}

// NewIdentity generates a fresh key pair and derives an untagged DID of the
// given method from its address.
func NewIdentity(method string) (*Identity, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return identityFromKey(method, priv)
}

// IdentityFromPrivateKey rebuilds the identity controlled by privHex.
func IdentityFromPrivateKey(method, privHex string) (*Identity, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return identityFromKey(method, priv)
}

func identityFromKey(method string, priv *ecdsa.PrivateKey) (*Identity, error) {
	if !validMethod(method) || method == "" {
		return nil, fmt.Errorf("bad method name %q", method)
	}

	addr := strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex())
	return &Identity{
		DID:           DID{Method: method, Identifier: addr}.String(),
		Address:       addr,
		PublicKeyHex:  "0x" + hex.EncodeToString(crypto.CompressPubkey(&priv.PublicKey)),
		PrivateKeyHex: hex.EncodeToString(crypto.FromECDSA(priv)),
	}, nil
}

// OnNetwork returns the identity's DID routed to the given network tag.
func (i *Identity) OnNetwork(tag string) string {
	d, err := Parse(i.DID)
	if err != nil {
		return i.DID
	}
	return d.WithNetwork(tag).String()
}
