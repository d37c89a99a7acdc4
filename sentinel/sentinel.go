// Package sentinel holds the failure values shared by every package of the SDK.
//
// Errors returned by the SDK wrap exactly one of these values, so callers
// branch with errors.Is instead of matching strings.
package sentinel

import "errors"

var (
	// ErrUnsupportedNetwork means the DID carries a network tag that is not in the network table.
	ErrUnsupportedNetwork = errors.New("unsupported network")
	// ErrDIDNotFound means the registry has no record for the DID.
	ErrDIDNotFound = errors.New("did not found")
	// ErrResolverUnavailable means the registry could not be reached in time. Retry-worthy.
	ErrResolverUnavailable = errors.New("resolver unavailable")
	ErrInvalidKey          = errors.New("invalid key")
	ErrMalformedToken      = errors.New("malformed token")
	ErrMissingIssuer       = errors.New("missing issuer")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrTokenExpired        = errors.New("token expired")
	// ErrInvalidCredentialSubject covers both schema and preview/data violations.
	ErrInvalidCredentialSubject = errors.New("invalid credential subject")
	ErrCertificateExpired       = errors.New("certificate expired")
)

var kinds = []struct {
	err   error
	label string
}{
	{ErrUnsupportedNetwork, "unsupported_network"},
	{ErrDIDNotFound, "did_not_found"},
	{ErrResolverUnavailable, "resolver_unavailable"},
	{ErrInvalidKey, "invalid_key"},
	{ErrMalformedToken, "malformed_token"},
	{ErrMissingIssuer, "missing_issuer"},
	{ErrSignatureInvalid, "signature_invalid"},
	{ErrTokenExpired, "token_expired"},
	{ErrInvalidCredentialSubject, "invalid_credential_subject"},
	{ErrCertificateExpired, "certificate_expired"},
}

// Kind returns a short, stable label for err, suitable for metric labels.
// nil maps to "ok" and errors outside the taxonomy map to "internal".
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "internal"
}

// IsRetryable reports whether err is transient. Only network-layer resolution
// failures qualify; cryptographic and policy failures never do.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrResolverUnavailable)
}
