package signer

import (
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

const testKey = "c6f8cf675b77523c3d3157d322b3c7c4cc14874f290407398361be1a4c1ed7d0"

func TestParsePrivateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "plain hex", key: testKey},
		{name: "0x prefix", key: "0x" + testKey},
		{name: "not hex", key: "zz", wantErr: true},
		{name: "short", key: "abcd", wantErr: true},
		{name: "zero", key: "0000000000000000000000000000000000000000000000000000000000000000", wantErr: true},
		{name: "curve order", key: "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrivateKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, sentinel.ErrInvalidKey)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSignVerify(t *testing.T) {
	priv, err := ParsePrivateKey(testKey)
	require.NoError(t, err)
	msg := []byte("header.payload")

	sig, err := Sign(testKey, msg)
	require.NoError(t, err)
	assert.Len(t, sig, SignatureSize)
	assert.True(t, Verify(&priv.PublicKey, msg, sig))

	again, err := Sign(testKey, msg)
	require.NoError(t, err)
	assert.Equal(t, sig, again, "signatures must be deterministic")

	assert.False(t, Verify(&priv.PublicKey, []byte("other"), sig))

	tampered := append([]byte(nil), sig...)
	tampered[10] ^= 0x01
	assert.False(t, Verify(&priv.PublicKey, msg, tampered))

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	assert.False(t, Verify(&other.PublicKey, msg, sig))
	assert.False(t, Verify(&priv.PublicKey, msg, sig[:40]))
	assert.False(t, Verify(nil, msg, sig))

	_, err = Sign("nope", msg)
	assert.ErrorIs(t, err, sentinel.ErrInvalidKey)
}

func TestRecoverAndVerifyAddress(t *testing.T) {
	priv, err := ParsePrivateKey(testKey)
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	msg := []byte("hello")

	sig, err := SignRecoverable(testKey, msg)
	require.NoError(t, err)
	require.Len(t, sig, RecoverableSignatureSize)

	got, err := RecoverAddress(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	legacy := append([]byte(nil), sig...)
	legacy[64] += 27
	got, err = RecoverAddress(msg, legacy)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	assert.True(t, VerifyAddress(addr, msg, sig))
	assert.True(t, VerifyAddress(addr, msg, sig[:64]))
	assert.False(t, VerifyAddress(common.HexToAddress("0x01"), msg, sig[:64]))
	assert.False(t, VerifyAddress(addr, msg, sig[:10]))

	_, err = RecoverAddress(msg, sig[:64])
	assert.Error(t, err)
}

func TestDefaultProvider(t *testing.T) {
	p, err := NewDefaultProvider("0x" + testKey)
	require.NoError(t, err)

	digest := Digest([]byte("payload"))
	sig, err := p.Sign(digest)
	require.NoError(t, err)

	pub, err := crypto.SigToPub(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, p.GetAddress(), lowerHex(crypto.PubkeyToAddress(*pub)))
	assert.True(t, Verify(p.PublicKey(), []byte("payload"), sig))

	_, err = NewDefaultProvider("")
	assert.ErrorIs(t, err, sentinel.ErrInvalidKey)
}

func lowerHex(a common.Address) string {
	return "0x" + hex.EncodeToString(a.Bytes())
}

func TestRejectHighS(t *testing.T) {
	priv, err := ParsePrivateKey(testKey)
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	msg := []byte("header.payload")

	sig, err := SignRecoverable(testKey, msg)
	require.NoError(t, err)
	require.True(t, Verify(&priv.PublicKey, msg, sig[:SignatureSize]))
	require.True(t, VerifyAddress(addr, msg, sig))

	var s secp256k1.ModNScalar
	require.False(t, s.SetByteSlice(sig[32:64]))
	require.False(t, s.IsOverHalfOrder())
	high := s.Negate().Bytes()

	twin := append(append([]byte(nil), sig[:32]...), high[:]...)
	twin = append(twin, sig[64]^1)

	assert.False(t, Verify(&priv.PublicKey, msg, twin[:SignatureSize]))
	assert.False(t, Verify(&priv.PublicKey, msg, twin))
	assert.False(t, VerifyAddress(addr, msg, twin[:SignatureSize]))
	assert.False(t, VerifyAddress(addr, msg, twin))
}
