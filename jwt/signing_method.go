package jwt

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-didjwt-sdk/signer"
)

// SigningMethodES256K implements ES256K (64-byte r||s) and its recoverable
// variant ES256K-R (65 bytes) over secp256k1 with SHA-256.
//
// Sign accepts a hex private key or a signer.Provider. Verify accepts an
// *ecdsa.PublicKey, or a common.Address checked by public key recovery.
type SigningMethodES256K struct {
	alg         string
	recoverable bool
}

var (
	// ES256K is the default issuing algorithm.
	ES256K = &SigningMethodES256K{alg: "ES256K"}
	// ES256KR appends the recovery id to the signature.
	ES256KR = &SigningMethodES256K{alg: "ES256K-R", recoverable: true}
)

func init() {
	gojwt.RegisterSigningMethod(ES256K.Alg(), func() gojwt.SigningMethod { return ES256K })
	gojwt.RegisterSigningMethod(ES256KR.Alg(), func() gojwt.SigningMethod { return ES256KR })
}

// Alg returns the algorithm name.
func (m *SigningMethodES256K) Alg() string {
	return m.alg
}

// Sign signs signingString with key.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	var (
		sig []byte
		err error
	)

	switch k := key.(type) {
	case string:
		sig, err = signer.SignRecoverable(k, []byte(signingString))
	case signer.Provider:
		sig, err = k.Sign(signer.Digest([]byte(signingString)))
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", gojwt.ErrInvalidKeyType, key)
	}
	if err != nil {
		return nil, err
	}
	if len(sig) != signer.RecoverableSignatureSize {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}

	if m.recoverable {
		return sig, nil
	}
	return sig[:signer.SignatureSize], nil
}

// Verify checks signature against key.
func (m *SigningMethodES256K) Verify(signingString string, signature []byte, key interface{}) error {
	want := signer.SignatureSize
	if m.recoverable {
		want = signer.RecoverableSignatureSize
	}
	if len(signature) != want {
		return fmt.Errorf("%w: expected %d bytes, got %d", gojwt.ErrSignatureInvalid, want, len(signature))
	}

	// The legacy 27/28 recovery ids would give a second encoding of the
	// same signature.
	if m.recoverable && signature[signer.SignatureSize] > 1 {
		return fmt.Errorf("%w: recovery id must be 0 or 1", gojwt.ErrSignatureInvalid)
	}

	var ok bool
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		switch {
		case k == nil:
		case m.recoverable:
			// The recovery id must agree with the key too.
			ok = signer.VerifyAddress(crypto.PubkeyToAddress(*k), []byte(signingString), signature)
		default:
			ok = signer.Verify(k, []byte(signingString), signature)
		}
	case common.Address:
		ok = signer.VerifyAddress(k, []byte(signingString), signature)
	default:
		return fmt.Errorf("%w: unsupported key type %T", gojwt.ErrInvalidKeyType, key)
	}

	if !ok {
		return gojwt.ErrSignatureInvalid
	}
	return nil
}
