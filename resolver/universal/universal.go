// Package universal resolves DIDs through a universal-resolver style HTTP
// endpoint: GET <endpoint>/<url-escaped DID>.
package universal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/network"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// maxBodySize caps how much of a resolver response is read.
const maxBodySize = 1 << 20

// Resolver is a client for one resolver endpoint.
type Resolver struct {
	baseURL string
	client  *http.Client
}

// New creates a resolver for n's endpoint.
func New(n network.Network, client *http.Client) (*Resolver, error) {
	if _, err := url.Parse(n.Endpoint); err != nil || n.Endpoint == "" {
		return nil, fmt.Errorf("network %s: invalid endpoint %q", n.Name, n.Endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		baseURL: strings.TrimSuffix(n.Endpoint, "/"),
		client:  client,
	}, nil
}

// Lookup fetches the document of d. A 404 or 410 answer means the DID is unknown.
func (r *Resolver) Lookup(ctx context.Context, d did.DID) (*did.Document, error) {
	apiURL := r.baseURL + "/" + url.PathEscape(d.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build resolver request: %w", err)
	}
	req.Header.Set("Accept", "application/did+ld+json, application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request to DID resolver: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: resolver answered %s for %s", sentinel.ErrDIDNotFound, resp.Status, d)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("DID resolver API returned non-200 status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from DID resolver: %w", err)
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: empty document for %s", sentinel.ErrDIDNotFound, d)
	}
	if doc.ID != d.String() {
		return nil, fmt.Errorf("%w: resolver returned document %s for %s", sentinel.ErrDIDNotFound, doc.ID, d)
	}
	return doc, nil
}

// decodeDocument accepts either a bare document or a resolution result
// wrapping it under didDocument.
func decodeDocument(body []byte) (*did.Document, error) {
	var wrapped struct {
		DIDDocument *did.Document `json:"didDocument"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID document JSON: %w", err)
	}
	if wrapped.DIDDocument != nil {
		return wrapped.DIDDocument, nil
	}

	var doc did.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID document JSON: %w", err)
	}
	return &doc, nil
}
