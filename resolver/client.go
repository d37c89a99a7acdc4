package resolver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-didjwt-sdk/network"
	"github.com/pilacorp/go-didjwt-sdk/resolver/ethr"
	"github.com/pilacorp/go-didjwt-sdk/resolver/universal"
)

// OpenClient returns the default factory. ethr networks get an ERC-1056
// registry reader over JSON-RPC, http networks a universal resolver client.
// A nil httpClient is replaced by one with an OpenTelemetry transport.
func OpenClient(httpClient *http.Client) ClientFactory {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return func(ctx context.Context, n network.Network) (Client, error) {
		switch n.Kind {
		case network.KindEthr:
			return ethr.Dial(ctx, n, httpClient)
		case network.KindHTTP:
			return universal.New(n, httpClient)
		default:
			return nil, fmt.Errorf("unknown network kind %q", n.Kind)
		}
	}
}

// MemoryFactory backs every ethr network with an in-memory registry instead of
// a JSON-RPC node. The registries stay reachable by tag to change owners.
type MemoryFactory struct {
	mu      sync.Mutex
	callers map[string]*ethr.MemoryCaller
}

// NewMemoryFactory creates an empty MemoryFactory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{callers: make(map[string]*ethr.MemoryCaller)}
}

// Open is a ClientFactory.
func (f *MemoryFactory) Open(ctx context.Context, n network.Network) (Client, error) {
	if n.Kind != network.KindEthr {
		return nil, fmt.Errorf("network %s: memory registries only serve ethr networks", n.Name)
	}
	return ethr.New(n, f.Caller(n.Tag))
}

// Caller returns the registry of the network tagged tag, creating it on first use.
func (f *MemoryFactory) Caller(tag string) *ethr.MemoryCaller {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.callers[tag]
	if !ok {
		c = ethr.NewMemoryCaller()
		f.callers[tag] = c
	}
	return c
}
