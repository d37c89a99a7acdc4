package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// Verified is the result of a successful verification.
type Verified struct {
	JWT     string
	Payload map[string]any
	Issuer  string
	Doc     *did.Document
	// SignerKey is the verification method that matched the signature.
	SignerKey did.VerificationMethod
}

// Verify checks token and returns its payload, the issuer DID and the
// issuer's freshly resolved document. Checks run in this order: shape, iss,
// resolution, signature, exp.
func (e *Engine) Verify(ctx context.Context, token string) (*Verified, error) {
	v, err := e.verify(ctx, token)
	e.metrics.IncrementVerifications("jwt", sentinel.Kind(err))
	if err != nil {
		e.logger.DebugContext(ctx, "jwt rejected", "outcome", sentinel.Kind(err), "error", err)
		return nil, err
	}
	return v, nil
}

func (e *Engine) verify(ctx context.Context, token string) (*Verified, error) {
	dec, err := Decode(token)
	if err != nil {
		return nil, err
	}

	iss, _ := dec.Payload[ClaimIssuer].(string)
	if iss == "" {
		return nil, fmt.Errorf("%w: token has no iss claim", sentinel.ErrMissingIssuer)
	}

	alg, _ := dec.Data.Header["alg"].(string)
	method, ok := gojwt.GetSigningMethod(alg).(*SigningMethodES256K)
	if !ok {
		return nil, fmt.Errorf("%w: algorithm %q is not accepted", sentinel.ErrSignatureInvalid, alg)
	}

	doc, err := e.resolver.Resolve(ctx, iss)
	if err != nil {
		return nil, err
	}

	vm, ok := matchKey(method, dec, doc)
	if !ok {
		return nil, fmt.Errorf("%w: no verification method of %s matches", sentinel.ErrSignatureInvalid, iss)
	}

	exp, err := gojwt.MapClaims(dec.Payload).GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrMalformedToken, err)
	}
	if exp != nil && !e.now().Before(exp.Time) {
		return nil, fmt.Errorf("%w: expired at %s", sentinel.ErrTokenExpired, exp.Time.UTC().Format(time.RFC3339))
	}

	return &Verified{
		JWT:       token,
		Payload:   dec.Payload,
		Issuer:    iss,
		Doc:       doc,
		SignerKey: vm,
	}, nil
}

// matchKey returns the first verification method, in document order, whose
// key verifies the signature.
func matchKey(method *SigningMethodES256K, dec *Decoded, doc *did.Document) (did.VerificationMethod, bool) {
	for _, vm := range doc.VerificationMethod {
		key, ok := verificationKey(vm)
		if !ok {
			continue
		}
		if method.Verify(dec.SigningInput, dec.Signature, key) == nil {
			return vm, true
		}
	}
	return did.VerificationMethod{}, false
}

func verificationKey(vm did.VerificationMethod) (any, bool) {
	if vm.PublicKeyHex != "" {
		pub, err := vm.PublicKey()
		if err != nil {
			return nil, false
		}
		return pub, true
	}
	addr, ok := vm.Address()
	if !ok || addr == (common.Address{}) {
		return nil, false
	}
	return addr, true
}

// Result is the outcome of one token of a VerifyAll batch.
type Result struct {
	Verified *Verified
	Err      error
}

// VerifyAll verifies tokens concurrently. Results are in input order and
// independent of each other: one failure does not cancel the rest.
func (e *Engine) VerifyAll(ctx context.Context, tokens []string) []Result {
	results := make([]Result, len(tokens))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, token := range tokens {
		g.Go(func() error {
			v, err := e.Verify(ctx, token)
			results[i] = Result{Verified: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
