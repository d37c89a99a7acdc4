package did

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Verification method types produced and understood by the SDK.
const (
	TypeSecp256k1VerificationKey = "EcdsaSecp256k1VerificationKey2019"
	TypeSecp256k1RecoveryMethod  = "EcdsaSecp256k1RecoveryMethod2020"
)

// Document is a resolved DID document.
type Document struct {
	Context            []string             `json:"@context,omitempty"`
	ID                 string               `json:"id"`
	Controller         string               `json:"controller,omitempty"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	Metadata           map[string]any       `json:"didDocumentMetadata,omitempty"`
}

// VerificationMethod is a key entry of a DID document. Exactly one of the key
// material fields is expected to be set.
type VerificationMethod struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Controller          string `json:"controller"`
	PublicKeyHex        string `json:"publicKeyHex,omitempty"`
	BlockchainAccountID string `json:"blockchainAccountId,omitempty"`
	EthereumAddress     string `json:"ethereumAddress,omitempty"`
}

// PublicKey decodes PublicKeyHex. It fails when the method only carries an address.
func (vm VerificationMethod) PublicKey() (*ecdsa.PublicKey, error) {
	if vm.PublicKeyHex == "" {
		return nil, fmt.Errorf("verification method %s has no public key", vm.ID)
	}
	return ParsePublicKeyHex(vm.PublicKeyHex)
}

// Address returns the account bound to the method, either declared through
// blockchainAccountId (CAIP-10, eip155:<chain>:<address>) or ethereumAddress,
// or derived from the public key.
func (vm VerificationMethod) Address() (common.Address, bool) {
	if vm.BlockchainAccountID != "" {
		i := strings.LastIndex(vm.BlockchainAccountID, ":")
		acct := vm.BlockchainAccountID[i+1:]
		if common.IsHexAddress(acct) {
			return common.HexToAddress(acct), true
		}
		return common.Address{}, false
	}
	if vm.EthereumAddress != "" {
		if common.IsHexAddress(vm.EthereumAddress) {
			return common.HexToAddress(vm.EthereumAddress), true
		}
		return common.Address{}, false
	}
	if pub, err := vm.PublicKey(); err == nil {
		return crypto.PubkeyToAddress(*pub), true
	}
	return common.Address{}, false
}

// ParsePublicKeyHex decodes a compressed (33 bytes) or uncompressed (65 bytes)
// secp256k1 public key. The 0x prefix is optional.
func ParsePublicKeyHex(publicKeyHex string) (*ecdsa.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key hex: %w", err)
	}

	switch {
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		return crypto.DecompressPubkey(b)
	case len(b) == 65 && b[0] == 0x04:
		return crypto.UnmarshalPubkey(b)
	default:
		return nil, fmt.Errorf("unsupported public key format: expected 33 or 65 bytes, got %d", len(b))
	}
}
