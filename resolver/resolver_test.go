package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/metrics"
	"github.com/pilacorp/go-didjwt-sdk/network"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

const testAddress = "0xb64b2b1168047d1745492c7025c5edba69e4f4f0"

func newMemoryResolver(t *testing.T, opts ...Option) (*Resolver, *MemoryFactory) {
	t.Helper()
	f := NewMemoryFactory()
	r, err := New(context.Background(), network.DefaultTable(), append([]Option{WithClientFactory(f.Open)}, opts...)...)
	require.NoError(t, err)
	return r, f
}

func TestResolveEveryNetwork(t *testing.T) {
	r, _ := newMemoryResolver(t)

	for _, n := range network.Defaults() {
		t.Run(n.Name, func(t *testing.T) {
			id := did.DID{Method: "ethr", Network: n.Tag, Identifier: testAddress}.String()

			doc, err := r.Resolve(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, id, doc.ID)
			require.NotEmpty(t, doc.VerificationMethod)

			addr, ok := doc.VerificationMethod[0].Address()
			require.True(t, ok)
			assert.Equal(t, common.HexToAddress(testAddress), addr)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	r, f := newMemoryResolver(t)
	f.Caller("bfa").SetOwner(common.HexToAddress(testAddress), common.Address{}, 12)
	f.Caller("lacchain").FailWith(errors.New("dial tcp: connection refused"))

	tests := []struct {
		name    string
		did     string
		wantErr error
	}{
		{name: "unknown tag", did: "did:ethr:polygon:" + testAddress, wantErr: sentinel.ErrUnsupportedNetwork},
		{name: "not a did", did: "0xb64b", wantErr: sentinel.ErrUnsupportedNetwork},
		{name: "other method", did: "did:web:rsk:" + testAddress, wantErr: sentinel.ErrUnsupportedNetwork},
		{name: "deactivated", did: "did:ethr:bfa:" + testAddress, wantErr: sentinel.ErrDIDNotFound},
		{name: "registry down", did: "did:ethr:lacchain:" + testAddress, wantErr: sentinel.ErrResolverUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.did)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, errors.Is(tt.wantErr, sentinel.ErrResolverUnavailable), sentinel.IsRetryable(err))
		})
	}
}

type blockingClient struct{}

func (blockingClient) Lookup(ctx context.Context, d did.DID) (*did.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type nilClient struct{}

func (nilClient) Lookup(ctx context.Context, d did.DID) (*did.Document, error) {
	return nil, nil
}

func TestResolveTimeout(t *testing.T) {
	factory := func(ctx context.Context, n network.Network) (Client, error) { return blockingClient{}, nil }
	r, err := New(context.Background(), network.DefaultTable(), WithClientFactory(factory), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = r.Resolve(context.Background(), "did:ethr:rsk:"+testAddress)
	assert.ErrorIs(t, err, sentinel.ErrResolverUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestResolveCallerDeadline(t *testing.T) {
	factory := func(ctx context.Context, n network.Network) (Client, error) { return blockingClient{}, nil }
	r, err := New(context.Background(), network.DefaultTable(), WithClientFactory(factory))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = r.Resolve(ctx, "did:ethr:"+testAddress)
	assert.ErrorIs(t, err, sentinel.ErrResolverUnavailable)
}

func TestResolveNilDocument(t *testing.T) {
	factory := func(ctx context.Context, n network.Network) (Client, error) { return nilClient{}, nil }
	r, err := New(context.Background(), network.DefaultTable(), WithClientFactory(factory))
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "did:ethr:"+testAddress)
	assert.ErrorIs(t, err, sentinel.ErrDIDNotFound)
}

func TestResolveMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r, _ := newMemoryResolver(t, WithMetrics(m))

	_, err := r.Resolve(context.Background(), "did:ethr:"+testAddress)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "did:ethr:polygon:"+testAddress)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("default", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.UnsupportedNetwork, "unsupported_network")))
}

func TestResolveMetricsBoundedLabels(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r, _ := newMemoryResolver(t, WithMetrics(m))

	for i := range 100 {
		_, err := r.Resolve(context.Background(), fmt.Sprintf("did:ethr:junk%d:%s", i, testAddress))
		require.ErrorIs(t, err, sentinel.ErrUnsupportedNetwork)
	}
	_, err := r.Resolve(context.Background(), "did:web:rsk:"+testAddress)
	require.ErrorIs(t, err, sentinel.ErrUnsupportedNetwork)

	assert.Equal(t, 2, testutil.CollectAndCount(m.Resolutions))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ResolveDuration))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.UnsupportedNetwork, "unsupported_network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("rsk", "unsupported_network")))
}

func TestNewErrors(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	failing := func(ctx context.Context, n network.Network) (Client, error) { return nil, errors.New("boom") }
	_, err = New(context.Background(), network.DefaultTable(), WithClientFactory(failing))
	assert.Error(t, err)

	web, err := network.NewTable(network.Network{Tag: "web", Name: "web", Method: "ethr", Kind: network.KindHTTP, Endpoint: "http://localhost"})
	require.NoError(t, err)
	_, err = New(context.Background(), web, WithClientFactory(NewMemoryFactory().Open))
	assert.Error(t, err)
}

func TestOpenClientHTTP(t *testing.T) {
	const id = "did:ethr:web:" + testAddress
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"didDocument": did.Document{
				ID: id,
				VerificationMethod: []did.VerificationMethod{{
					ID: id + "#controller", Type: did.TypeSecp256k1RecoveryMethod, Controller: id, EthereumAddress: testAddress,
				}},
			},
		})
	}))
	defer server.Close()

	table, err := network.NewTable(network.Network{Tag: "web", Name: "web", Method: "ethr", Kind: network.KindHTTP, Endpoint: server.URL})
	require.NoError(t, err)

	r, err := New(context.Background(), table, WithClientFactory(OpenClient(server.Client())))
	require.NoError(t, err)

	doc, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)

	_, err = r.Resolve(context.Background(), "did:ethr:"+testAddress)
	assert.ErrorIs(t, err, sentinel.ErrUnsupportedNetwork)
}
