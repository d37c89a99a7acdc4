// Package jwt issues and verifies ES256K-signed JWTs whose issuer is a
// network-tagged DID.
//
// Verification resolves the issuer through a DocumentResolver and accepts the
// token when its signature matches any verification method of the issuer's
// document, tried in document order.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/metrics"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
	"github.com/pilacorp/go-didjwt-sdk/signer"
)

// Registered claim names used by the engine.
const (
	ClaimIssuer     = "iss"
	ClaimIssuedAt   = "iat"
	ClaimExpiration = "exp"
	ClaimSubject    = "sub"
)

// DefaultConcurrency bounds VerifyAll when no WithConcurrency option is given.
const DefaultConcurrency = 8

// DocumentResolver resolves a DID string to its current document.
type DocumentResolver interface {
	Resolve(ctx context.Context, did string) (*did.Document, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for iat and exp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records issued and verified tokens on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithConcurrency bounds the number of in-flight verifications of VerifyAll.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithAlgorithm selects the issuing algorithm, ES256K or ES256KR.
func WithAlgorithm(m *SigningMethodES256K) Option {
	return func(e *Engine) { e.method = m }
}

// Engine issues and verifies tokens. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	resolver    DocumentResolver
	method      *SigningMethodES256K
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// NewEngine creates an engine verifying issuers through r.
func NewEngine(r DocumentResolver, opts ...Option) *Engine {
	e := &Engine{
		resolver:    r,
		method:      ES256K,
		now:         time.Now,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Issue signs claims as issuerDID with a hex private key. iss is always
// overwritten with issuerDID; iat is added only when claims lack it.
func (e *Engine) Issue(issuerDID, privateKeyHex string, claims map[string]any) (string, error) {
	if _, err := signer.ParsePrivateKey(privateKeyHex); err != nil {
		return "", err
	}
	return e.issue(issuerDID, privateKeyHex, claims)
}

// IssueWithSigner is Issue with a key held by p.
func (e *Engine) IssueWithSigner(issuerDID string, p signer.Provider, claims map[string]any) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: signer provider is required", sentinel.ErrInvalidKey)
	}
	return e.issue(issuerDID, p, claims)
}

func (e *Engine) issue(issuerDID string, key any, claims map[string]any) (string, error) {
	if _, err := did.Parse(issuerDID); err != nil {
		return "", fmt.Errorf("%w: %w", sentinel.ErrMissingIssuer, err)
	}

	payload := make(gojwt.MapClaims, len(claims)+2)
	maps.Copy(payload, claims)
	payload[ClaimIssuer] = issuerDID
	if _, ok := payload[ClaimIssuedAt]; !ok {
		payload[ClaimIssuedAt] = e.now().Unix()
	}

	token := gojwt.NewWithClaims(e.method, payload)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	e.metrics.IncrementIssued("jwt")
	return signed, nil
}

// Data holds the decoded header and payload of a token.
type Data struct {
	Header  map[string]any
	Payload map[string]any
}

// Decoded is the offline view of a token. Nothing in it is trusted.
type Decoded struct {
	Signature    []byte
	Data         Data
	Payload      map[string]any
	SigningInput string
}

// Decode splits and decodes token without resolving the issuer or checking
// the signature. The only possible failure is sentinel.ErrMalformedToken.
// Numeric claims decode as json.Number.
func Decode(token string) (*Decoded, error) {
	// Strict decoding rejects non-zero padding bits, so every token has
	// exactly one encoding. Numbers stay json.Number to keep int64 precision.
	p := gojwt.NewParser(gojwt.WithStrictDecoding(), gojwt.WithJSONNumber())

	// An unknown alg still decodes; the trust decision belongs to Verify.
	parsed, parts, err := p.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil && !isUnverifiable(err) {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrMalformedToken, err)
	}
	if parsed == nil || len(parts) != 3 {
		return nil, fmt.Errorf("%w: token contains an invalid number of segments", sentinel.ErrMalformedToken)
	}

	sig, err := p.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: could not base64 decode signature: %w", sentinel.ErrMalformedToken, err)
	}

	claims, ok := parsed.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type %T", sentinel.ErrMalformedToken, parsed.Claims)
	}

	if m, ok := parsed.Method.(*SigningMethodES256K); ok {
		want := signer.SignatureSize
		if m.recoverable {
			want = signer.RecoverableSignatureSize
		}
		if len(sig) != want {
			return nil, fmt.Errorf("%w: %s signature must be %d bytes, got %d", sentinel.ErrMalformedToken, m.Alg(), want, len(sig))
		}
	}

	payload := map[string]any(claims)
	return &Decoded{
		Signature:    sig,
		Data:         Data{Header: parsed.Header, Payload: payload},
		Payload:      payload,
		SigningInput: parts[0] + "." + parts[1],
	}, nil
}

func isUnverifiable(err error) bool {
	return errors.Is(err, gojwt.ErrTokenUnverifiable) && !errors.Is(err, gojwt.ErrTokenMalformed)
}
