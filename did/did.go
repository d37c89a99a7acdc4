// Package did parses and formats network-tagged decentralized identifiers and
// models the DID documents they resolve to.
//
// A DID has the shape did:<method>[:<network>]:<identifier>. The network tag,
// when present, is the segment right after the method and only routes the
// identifier to a registry; it is never checked against the chain itself.
package did

import (
	"fmt"
	"strings"
)

const scheme = "did"

// DID is a parsed decentralized identifier.
type DID struct {
	Method     string
	Network    string
	Identifier string
}

// Parse splits s into method, network tag and identifier.
//
// With a single segment after the method the DID is on the default network.
// With more segments the first one is the tag and the rest form the identifier.
func Parse(s string) (DID, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || parts[0] != scheme {
		return DID{}, fmt.Errorf("invalid DID %q: expected did:<method>[:<network>]:<identifier>", s)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return DID{}, fmt.Errorf("invalid DID %q: empty segment", s)
		}
	}
	if !validMethod(parts[1]) {
		return DID{}, fmt.Errorf("invalid DID %q: bad method name %q", s, parts[1])
	}

	d := DID{Method: parts[1]}
	if len(parts) == 3 {
		d.Identifier = parts[2]
		return d, nil
	}
	d.Network = parts[2]
	d.Identifier = strings.Join(parts[3:], ":")
	return d, nil
}

// String formats d back to its canonical string form.
func (d DID) String() string {
	if d.Network == "" {
		return scheme + ":" + d.Method + ":" + d.Identifier
	}
	return scheme + ":" + d.Method + ":" + d.Network + ":" + d.Identifier
}

// WithNetwork returns a copy of d routed to the given network tag. An empty
// tag moves it to the default network.
func (d DID) WithNetwork(tag string) DID {
	d.Network = tag
	return d
}

// WithNetwork re-tags a DID string.
func WithNetwork(s, tag string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return d.WithNetwork(tag).String(), nil
}

func validMethod(m string) bool {
	for _, r := range m {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
