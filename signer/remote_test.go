package signer

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteProvider(t *testing.T) {
	local, err := NewDefaultProvider(testKey)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var body struct {
			PayloadHex string `json:"payload_hex"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		digest, err := hex.DecodeString(body.PayloadHex)
		require.NoError(t, err)

		sig, err := local.Sign(digest)
		require.NoError(t, err)
		sig[64] += 27

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"signature_hex": "0x" + hex.EncodeToString(sig)})
	}))
	defer server.Close()

	remote, err := NewRemoteProvider(server.URL, local.GetAddress(), WithAPIKey("secret"), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, local.GetAddress(), remote.GetAddress())

	digest := Digest([]byte("payload"))
	want, err := local.Sign(digest)
	require.NoError(t, err)

	got, err := remote.Sign(digest)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = remote.Sign([]byte("short"))
	assert.Error(t, err)
}

func TestRemoteProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{"))
			},
		},
		{
			name: "short signature",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"signature_hex":"abcd"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			remote, err := NewRemoteProvider(server.URL, "0x01")
			require.NoError(t, err)

			_, err = remote.Sign(Digest([]byte("x")))
			assert.Error(t, err)
		})
	}

	_, err := NewRemoteProvider(" ", "0x01")
	assert.Error(t, err)
}
