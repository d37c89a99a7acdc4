// Package resolver routes DID resolution to the registry of the network named
// by the DID's network tag.
//
// Every failure maps to one of three outcomes: the tag is not in the table
// (sentinel.ErrUnsupportedNetwork), the registry has no record
// (sentinel.ErrDIDNotFound) or the registry could not answer
// (sentinel.ErrResolverUnavailable). Nothing is retried or cached here.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/metrics"
	"github.com/pilacorp/go-didjwt-sdk/network"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// Client looks DIDs up in one network's registry. It reports an unknown DID
// with an error wrapping sentinel.ErrDIDNotFound.
type Client interface {
	Lookup(ctx context.Context, d did.DID) (*did.Document, error)
}

// ClientFactory opens the registry client of a network.
type ClientFactory func(ctx context.Context, n network.Network) (Client, error)

// Option configures a Resolver.
type Option func(*Resolver)

// WithClientFactory replaces the default factory (OpenClient over an instrumented HTTP client).
func WithClientFactory(f ClientFactory) Option {
	return func(r *Resolver) { r.factory = f }
}

// WithTimeout bounds each resolution. Zero disables the bound; a caller
// deadline still applies.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records resolutions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// Resolver is the DID resolver multiplexer. It is safe for concurrent use.
type Resolver struct {
	table   *network.Table
	clients map[string]Client
	factory ClientFactory
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New opens one client per network of table.
func New(ctx context.Context, table *network.Table, opts ...Option) (*Resolver, error) {
	if table == nil {
		return nil, fmt.Errorf("network table is required")
	}

	r := &Resolver{
		table:   table,
		clients: make(map[string]Client),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = OpenClient(nil)
	}

	for _, n := range table.Networks() {
		c, err := r.factory(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("failed to open client for network %s: %w", n.Name, err)
		}
		r.clients[n.Tag] = c
	}

	return r, nil
}

// Table returns the network table the resolver routes over.
func (r *Resolver) Table() *network.Table {
	return r.table
}

// Resolve fetches a fresh DID document for s.
func (r *Resolver) Resolve(ctx context.Context, s string) (*did.Document, error) {
	d, err := did.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrUnsupportedNetwork, err)
	}

	start := time.Now()

	// Only tags present in the table become label values; the tag comes from
	// an untrusted iss claim.
	label := metrics.UnsupportedNetwork
	n, err := r.table.Lookup(d.Network)
	var doc *did.Document
	if err == nil {
		label = n.Tag
		doc, err = r.resolve(ctx, n, d)
	}

	outcome := sentinel.Kind(err)
	r.metrics.ObserveResolution(label, outcome, time.Since(start))
	if err != nil {
		r.logger.DebugContext(ctx, "did resolution failed", "did", s, "network", d.Network, "outcome", outcome, "error", err)
		return nil, err
	}
	r.logger.DebugContext(ctx, "did resolved", "did", s, "network", d.Network, "methods", len(doc.VerificationMethod))
	return doc, nil
}

func (r *Resolver) resolve(ctx context.Context, n network.Network, d did.DID) (*did.Document, error) {
	if n.Method != d.Method {
		return nil, fmt.Errorf("%w: network %s serves did:%s, got did:%s", sentinel.ErrUnsupportedNetwork, n.Name, n.Method, d.Method)
	}
	client, ok := r.clients[n.Tag]
	if !ok {
		return nil, fmt.Errorf("%w: no client for network %s", sentinel.ErrUnsupportedNetwork, n.Name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	doc, err := client.Lookup(ctx, d)
	switch {
	case errors.Is(err, sentinel.ErrDIDNotFound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: network %s: %w", sentinel.ErrResolverUnavailable, n.Name, err)
	case doc == nil:
		return nil, fmt.Errorf("%w: %s", sentinel.ErrDIDNotFound, d)
	}
	return doc, nil
}
