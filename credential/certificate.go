// Package credential issues and verifies verifiable credentials ("certificates")
// carried as JWTs.
//
// The credential lives under the vc claim. Its credentialSubject maps category
// names to a preview (the fields shown before full disclosure) and the data.
// Expiry is semantic and lives in vc.expirationDate, independent of the
// token's exp claim.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/jwt"
	"github.com/pilacorp/go-didjwt-sdk/metrics"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// Claim and vc member names.
const (
	ClaimVC           = "vc"
	ClaimJWTID        = "jti"
	KeySubject        = "credentialSubject"
	KeyIssuanceDate   = "issuanceDate"
	KeyExpirationDate = "expirationDate"
)

var (
	defaultContext = []string{"https://www.w3.org/2018/credentials/v1"}
	defaultTypes   = []string{"VerifiableCredential"}
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records issued and verified certificates on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDGenerator replaces the urn:uuid jti generator.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// WithTypes adds credential types after VerifiableCredential.
func WithTypes(types ...string) Option {
	return func(e *Engine) { e.types = append(append([]string{}, defaultTypes...), types...) }
}

// Engine builds and checks certificates on top of a jwt.Engine, sharing its clock.
type Engine struct {
	tokens  *jwt.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
	newID   func() string
	types   []string
}

// NewEngine creates a certificate engine issuing through tokens.
func NewEngine(tokens *jwt.Engine, opts ...Option) *Engine {
	e := &Engine{
		tokens: tokens,
		logger: slog.Default(),
		newID:  func() string { return "urn:uuid:" + uuid.NewString() },
		types:  defaultTypes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Certificate is a verified certificate.
type Certificate struct {
	*jwt.Verified
	Subject        Subject
	IssuanceDate   time.Time
	ExpirationDate time.Time
}

// CreateCertificate issues a certificate about subjectDID signed by issuerDID.
// issuanceDate is now; expirationDate must come strictly after it.
func (e *Engine) CreateCertificate(subjectDID string, subject Subject, expirationDate time.Time, issuerDID, issuerKey string) (string, error) {
	if _, err := did.Parse(subjectDID); err != nil {
		return "", fmt.Errorf("%w: subject: %w", sentinel.ErrInvalidCredentialSubject, err)
	}

	raw, err := subject.toMap()
	if err != nil {
		return "", err
	}
	if err := validateSubject(raw); err != nil {
		return "", err
	}

	// Dates travel as RFC 3339 seconds, so compare what will be encoded.
	issued := e.tokens.Now().UTC().Truncate(time.Second)
	expires := expirationDate.UTC().Truncate(time.Second)
	if !expires.After(issued) {
		return "", fmt.Errorf("%w: expiration %s is not after issuance %s", sentinel.ErrCertificateExpired,
			expires.Format(time.RFC3339), issued.Format(time.RFC3339))
	}

	claims := map[string]any{
		jwt.ClaimSubject: subjectDID,
		ClaimJWTID:       e.newID(),
		ClaimVC: map[string]any{
			"@context":        defaultContext,
			"type":            e.types,
			KeySubject:        raw,
			KeyIssuanceDate:   issued.Format(time.RFC3339),
			KeyExpirationDate: expires.Format(time.RFC3339),
		},
	}

	token, err := e.tokens.Issue(issuerDID, issuerKey, claims)
	if err != nil {
		return "", err
	}

	e.metrics.IncrementIssued("certificate")
	e.logger.Debug("certificate issued", "issuer", issuerDID, "subject", subjectDID, "categories", len(raw))
	return token, nil
}

// VerifyCertificate verifies the token, then the credential it carries.
func (e *Engine) VerifyCertificate(ctx context.Context, token string) (*Certificate, error) {
	cert, err := e.verifyCertificate(ctx, token)
	e.metrics.IncrementVerifications("certificate", sentinel.Kind(err))
	if err != nil {
		e.logger.DebugContext(ctx, "certificate rejected", "outcome", sentinel.Kind(err), "error", err)
		return nil, err
	}
	return cert, nil
}

func (e *Engine) verifyCertificate(ctx context.Context, token string) (*Certificate, error) {
	v, err := e.tokens.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	vc, ok := v.Payload[ClaimVC].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: token has no vc claim", sentinel.ErrInvalidCredentialSubject)
	}
	raw, ok := vc[KeySubject].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: vc has no credentialSubject", sentinel.ErrInvalidCredentialSubject)
	}
	if err := validateSubject(raw); err != nil {
		return nil, err
	}
	subject, err := parseSubject(raw)
	if err != nil {
		return nil, err
	}

	expires, err := dateMember(vc, KeyExpirationDate)
	if err != nil {
		return nil, err
	}
	issued, err := dateMember(vc, KeyIssuanceDate)
	if err != nil {
		return nil, err
	}
	if !expires.After(issued) {
		return nil, fmt.Errorf("%w: expirationDate is not after issuanceDate", sentinel.ErrInvalidCredentialSubject)
	}
	if !e.tokens.Now().Before(expires) {
		return nil, fmt.Errorf("%w: expired at %s", sentinel.ErrCertificateExpired, expires.Format(time.RFC3339))
	}

	return &Certificate{
		Verified:       v,
		Subject:        subject,
		IssuanceDate:   issued,
		ExpirationDate: expires,
	}, nil
}

func dateMember(vc map[string]any, key string) (time.Time, error) {
	s, ok := vc[key].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: vc.%s is missing", sentinel.ErrInvalidCredentialSubject, key)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: vc.%s: %w", sentinel.ErrInvalidCredentialSubject, key, err)
	}
	return t, nil
}
