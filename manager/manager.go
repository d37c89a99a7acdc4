// Package manager wires configuration, the network table, the resolver and
// the token engines into one entry point.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pilacorp/go-didjwt-sdk/config"
	"github.com/pilacorp/go-didjwt-sdk/credential"
	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/jwt"
	"github.com/pilacorp/go-didjwt-sdk/metrics"
	"github.com/pilacorp/go-didjwt-sdk/network"
	"github.com/pilacorp/go-didjwt-sdk/resolver"
	"github.com/pilacorp/go-didjwt-sdk/signer"
)

// DefaultMethod is the DID method of identities created by the manager.
const DefaultMethod = "ethr"

type options struct {
	factory    resolver.ClientFactory
	logger     *slog.Logger
	registerer prometheus.Registerer
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*options)

// WithClientFactory replaces how registry clients are opened.
func WithClientFactory(f resolver.ClientFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer registers the SDK metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Manager issues and verifies JWTs and certificates across every configured network.
type Manager struct {
	table    *network.Table
	resolver *resolver.Resolver
	tokens   *jwt.Engine
	certs    *credential.Engine
}

// New builds a Manager from cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Manager, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	table, err := cfg.Table()
	if err != nil {
		return nil, fmt.Errorf("invalid network configuration: %w", err)
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		m = metrics.New(o.registerer)
	}

	resolverOpts := []resolver.Option{
		resolver.WithTimeout(cfg.ResolveTimeout),
		resolver.WithLogger(o.logger),
		resolver.WithMetrics(m),
	}
	if o.factory != nil {
		resolverOpts = append(resolverOpts, resolver.WithClientFactory(o.factory))
	}
	r, err := resolver.New(ctx, table, resolverOpts...)
	if err != nil {
		return nil, err
	}

	tokens := jwt.NewEngine(r,
		jwt.WithClock(o.now),
		jwt.WithLogger(o.logger),
		jwt.WithMetrics(m),
		jwt.WithConcurrency(cfg.VerifyConcurrency),
	)

	return &Manager{
		table:    table,
		resolver: r,
		tokens:   tokens,
		certs:    credential.NewEngine(tokens, credential.WithLogger(o.logger), credential.WithMetrics(m)),
	}, nil
}

// Networks lists the configured networks.
func (m *Manager) Networks() []network.Network {
	return m.table.Networks()
}

// CreateIdentity generates a key pair and returns its DID on the network tagged tag.
func (m *Manager) CreateIdentity(tag string) (*did.Identity, error) {
	n, err := m.table.Lookup(tag)
	if err != nil {
		return nil, err
	}
	id, err := did.NewIdentity(n.Method)
	if err != nil {
		return nil, err
	}
	id.DID = id.OnNetwork(tag)
	return id, nil
}

// GetSigner wraps a hex private key into a signer.
func (m *Manager) GetSigner(privateKey string) (*signer.DefaultProvider, error) {
	return signer.NewDefaultProvider(privateKey)
}

// Resolve returns the current DID document of didStr.
func (m *Manager) Resolve(ctx context.Context, didStr string) (*did.Document, error) {
	return m.resolver.Resolve(ctx, didStr)
}

// CreateJWT signs payload as issuerDID.
func (m *Manager) CreateJWT(issuerDID, privateKey string, payload map[string]any) (string, error) {
	return m.tokens.Issue(issuerDID, privateKey, payload)
}

// CreateJWTWithSigner signs payload with a key held by p.
func (m *Manager) CreateJWTWithSigner(issuerDID string, p signer.Provider, payload map[string]any) (string, error) {
	return m.tokens.IssueWithSigner(issuerDID, p, payload)
}

// VerifyJWT verifies token against its issuer's document.
func (m *Manager) VerifyJWT(ctx context.Context, token string) (*jwt.Verified, error) {
	return m.tokens.Verify(ctx, token)
}

// VerifyJWTs verifies a batch of tokens concurrently.
func (m *Manager) VerifyJWTs(ctx context.Context, tokens []string) []jwt.Result {
	return m.tokens.VerifyAll(ctx, tokens)
}

// DecodeJWT parses token without verifying it.
func (m *Manager) DecodeJWT(token string) (*jwt.Decoded, error) {
	return jwt.Decode(token)
}

// CreateCertificate issues a certificate about subjectDID.
func (m *Manager) CreateCertificate(subjectDID string, subject credential.Subject, expirationDate time.Time, issuerDID, issuerKey string) (string, error) {
	return m.certs.CreateCertificate(subjectDID, subject, expirationDate, issuerDID, issuerKey)
}

// VerifyCertificate verifies a certificate token.
func (m *Manager) VerifyCertificate(ctx context.Context, token string) (*credential.Certificate, error) {
	return m.certs.VerifyCertificate(ctx, token)
}
