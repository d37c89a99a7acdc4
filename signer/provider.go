package signer

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Provider signs 32-byte digests with a key it may keep to itself.
type Provider interface {
	// Sign returns the 65-byte r||s||v signature of digest.
	Sign(digest []byte) ([]byte, error)
	GetAddress() string
}

// DefaultProvider signs with an in-memory private key.
type DefaultProvider struct {
	priv *ecdsa.PrivateKey
}

// NewDefaultProvider creates a provider from a hex private key.
func NewDefaultProvider(privHex string) (*DefaultProvider, error) {
	priv, err := ParsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}
	return &DefaultProvider{priv: priv}, nil
}

// Sign signs the digest.
func (p *DefaultProvider) Sign(digest []byte) ([]byte, error) {
	return signDigest(p.priv, digest)
}

// GetAddress returns the lower-cased address of the key.
func (p *DefaultProvider) GetAddress() string {
	return strings.ToLower(crypto.PubkeyToAddress(p.priv.PublicKey).Hex())
}

// PublicKey returns the public half of the key.
func (p *DefaultProvider) PublicKey() *ecdsa.PublicKey {
	return &p.priv.PublicKey
}
