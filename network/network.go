// Package network defines the table of blockchain networks a DID can be routed to.
package network

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// Kind selects how DIDs of a network are looked up.
type Kind string

const (
	// KindEthr reads an ERC-1056 registry contract over JSON-RPC.
	KindEthr Kind = "ethr"
	// KindHTTP asks a universal-resolver style HTTP endpoint.
	KindHTTP Kind = "http"
)

// ERC1056Registry is the canonical EthereumDIDRegistry deployment address.
const ERC1056Registry = "0xdca7ef03e98e0dc2b855be647c39abe984fcf21b"

// Network is one entry of the table.
type Network struct {
	// Tag is the routing key carried by DIDs; "" is the default network.
	Tag      string `yaml:"tag"`
	Name     string `yaml:"name"`
	Method   string `yaml:"method"`
	Kind     Kind   `yaml:"kind"`
	RPCURL   string `yaml:"rpcUrl"`
	Registry string `yaml:"registry"`
	Endpoint string `yaml:"endpoint"`
	ChainID  int64  `yaml:"chainId"`
}

// Validate checks that the entry carries what its kind needs.
func (n Network) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("network %q: name is required", n.Tag)
	}
	if n.Method == "" {
		return fmt.Errorf("network %s: method is required", n.Name)
	}
	if strings.Contains(n.Tag, ":") {
		return fmt.Errorf("network %s: tag %q must not contain ':'", n.Name, n.Tag)
	}

	switch n.Kind {
	case KindEthr:
		if n.RPCURL == "" {
			return fmt.Errorf("network %s: rpc url is required", n.Name)
		}
		if !common.IsHexAddress(n.Registry) {
			return fmt.Errorf("network %s: invalid registry address %q", n.Name, n.Registry)
		}
	case KindHTTP:
		if n.Endpoint == "" {
			return fmt.Errorf("network %s: endpoint is required", n.Name)
		}
	default:
		return fmt.Errorf("network %s: unknown kind %q", n.Name, n.Kind)
	}
	return nil
}

// Table maps network tags to networks. It is built once and never mutated, so
// it is safe for concurrent reads.
type Table struct {
	byTag map[string]Network
	tags  []string
}

// NewTable validates the entries and indexes them by tag.
func NewTable(networks ...Network) (*Table, error) {
	if len(networks) == 0 {
		return nil, fmt.Errorf("network table is empty")
	}

	t := &Table{byTag: make(map[string]Network, len(networks))}
	for _, n := range networks {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byTag[n.Tag]; dup {
			return nil, fmt.Errorf("duplicate network tag %q", n.Tag)
		}
		t.byTag[n.Tag] = n
		t.tags = append(t.tags, n.Tag)
	}
	slices.Sort(t.tags)
	return t, nil
}

// Lookup returns the network registered under tag.
func (t *Table) Lookup(tag string) (Network, error) {
	n, ok := t.byTag[tag]
	if !ok {
		return Network{}, fmt.Errorf("%w: no network registered for tag %q", sentinel.ErrUnsupportedNetwork, tag)
	}
	return n, nil
}

// Tags lists the registered tags in sorted order; the default network sorts first.
func (t *Table) Tags() []string {
	return slices.Clone(t.tags)
}

// Networks lists the entries in tag order.
func (t *Table) Networks() []Network {
	out := make([]Network, 0, len(t.tags))
	for _, tag := range t.tags {
		out = append(out, t.byTag[tag])
	}
	return out
}
