package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RemoteProvider asks an HTTP signing service to sign digests. The service
// receives {"payload_hex": ...} and answers {"signature_hex": ...}.
type RemoteProvider struct {
	endpoint string
	apiKey   string
	address  string
	client   *http.Client
}

// RemoteOption configures a RemoteProvider.
type RemoteOption func(*RemoteProvider)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(p *RemoteProvider) { p.client = c }
}

// WithAPIKey sends the key in the x-api-key header.
func WithAPIKey(key string) RemoteOption {
	return func(p *RemoteProvider) { p.apiKey = key }
}

// NewRemoteProvider creates a remote provider for the signer at endpoint
// holding the key of address.
func NewRemoteProvider(endpoint, address string, opts ...RemoteOption) (*RemoteProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("address required")
	}

	p := &RemoteProvider{
		endpoint: endpoint,
		address:  strings.ToLower(address),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Sign signs digest through the remote API.
func (p *RemoteProvider) Sign(digest []byte) ([]byte, error) {
	return p.SignContext(context.Background(), digest)
}

// SignContext is Sign bound to ctx.
func (p *RemoteProvider) SignContext(ctx context.Context, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("payload must be 32 bytes, got %d", len(digest))
	}

	reqBody, err := json.Marshal(map[string]any{
		"payload_hex": hex.EncodeToString(digest),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote signer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer http %d", resp.StatusCode)
	}

	var out struct {
		SignatureHex string `json:"signature_hex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode remote signer response: %w", err)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(out.SignatureHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != RecoverableSignatureSize {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	return sig, nil
}

// GetAddress returns the address the remote key controls.
func (p *RemoteProvider) GetAddress() string {
	return p.address
}
