// Package signer turns raw secp256k1 private keys into ES256K signatures and
// checks those signatures against public keys or addresses.
//
// Messages are hashed with SHA-256 before signing. Signatures are deterministic
// (RFC 6979) and use the 64-byte r||s encoding, or 65 bytes when the recovery
// id is appended.
package signer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// Signature lengths.
const (
	SignatureSize            = 64
	RecoverableSignatureSize = 65
)

// ParsePrivateKey decodes a hex private key (0x prefix optional) and checks it
// is a valid scalar of the curve order.
func ParsePrivateKey(privHex string) (*ecdsa.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: not hex: %w", sentinel.ErrInvalidKey, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", sentinel.ErrInvalidKey, len(b))
	}

	var k secp256k1.ModNScalar
	if overflow := k.SetByteSlice(b); overflow || k.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", sentinel.ErrInvalidKey)
	}

	priv, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrInvalidKey, err)
	}
	return priv, nil
}

// Digest is the hash signed for a message.
func Digest(message []byte) []byte {
	h := sha256.Sum256(message)
	return h[:]
}

// Sign signs message with the hex private key and returns r||s.
func Sign(privHex string, message []byte) ([]byte, error) {
	sig, err := SignRecoverable(privHex, message)
	if err != nil {
		return nil, err
	}
	return sig[:SignatureSize], nil
}

// SignRecoverable signs message and returns r||s||v with v in {0,1}.
func SignRecoverable(privHex string, message []byte) ([]byte, error) {
	priv, err := ParsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}
	return signDigest(priv, Digest(message))
}

func signDigest(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	if len(sig) != RecoverableSignatureSize {
		return nil, fmt.Errorf("invalid signature length: expected %d bytes, got %d", RecoverableSignatureSize, len(sig))
	}
	return sig, nil
}

// Verify reports whether sig (64 or 65 bytes) is a valid signature of message by pub.
// Only the low-s form is accepted, so each message has one valid signature per key.
func Verify(pub *ecdsa.PublicKey, message, sig []byte) bool {
	if pub == nil || (len(sig) != SignatureSize && len(sig) != RecoverableSignatureSize) {
		return false
	}

	key, err := btcec.ParsePubKey(crypto.FromECDSAPub(pub))
	if err != nil {
		return false
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(sig[32:64]); overflow || s.IsZero() || s.IsOverHalfOrder() {
		return false
	}

	return btcecdsa.NewSignature(&r, &s).Verify(Digest(message), key)
}

// RecoverAddress returns the address of the key that produced a 65-byte signature.
func RecoverAddress(message, sig []byte) (common.Address, error) {
	if len(sig) != RecoverableSignatureSize {
		return common.Address{}, fmt.Errorf("recoverable signature must be %d bytes, got %d", RecoverableSignatureSize, len(sig))
	}

	rs := make([]byte, RecoverableSignatureSize)
	copy(rs, sig)
	if rs[64] >= 27 {
		rs[64] -= 27
	}

	pub, err := crypto.SigToPub(Digest(message), rs)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyAddress reports whether sig over message was produced by the key behind
// addr. A 64-byte signature is tried with both recovery ids. High-s signatures
// are rejected as in Verify.
func VerifyAddress(addr common.Address, message, sig []byte) bool {
	if len(sig) < SignatureSize || !lowS(sig) {
		return false
	}

	switch len(sig) {
	case RecoverableSignatureSize:
		got, err := RecoverAddress(message, sig)
		return err == nil && got == addr
	case SignatureSize:
		candidate := make([]byte, RecoverableSignatureSize)
		copy(candidate, sig)
		for _, v := range []byte{0, 1} {
			candidate[64] = v
			if got, err := RecoverAddress(message, candidate); err == nil && got == addr {
				return true
			}
		}
	}
	return false
}

func lowS(sig []byte) bool {
	var s btcec.ModNScalar
	overflow := s.SetByteSlice(sig[32:64])
	return !overflow && !s.IsOverHalfOrder()
}
