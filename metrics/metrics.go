// Package metrics exposes Prometheus instruments for DID resolution and token verification.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the SDK's Prometheus instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Resolutions     *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	Verifications   *prometheus.CounterVec
	TokensIssued    *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg leaves
// them unregistered, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "didjwt_resolutions_total",
			Help: "DID resolutions by network tag and outcome",
		}, []string{"network", "outcome"}),
		ResolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "didjwt_resolve_duration_seconds",
			Help:    "Latency of DID resolutions by network tag",
			Buckets: prometheus.DefBuckets,
		}, []string{"network"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "didjwt_verifications_total",
			Help: "Token verifications by kind (jwt, certificate) and outcome",
		}, []string{"kind", "outcome"}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "didjwt_tokens_issued_total",
			Help: "Tokens issued by kind (jwt, certificate)",
		}, []string{"kind"}),
	}
}

// ObserveResolution records one resolution attempt.
func (m *Metrics) ObserveResolution(network, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(networkLabel(network), outcome).Inc()
	m.ResolveDuration.WithLabelValues(networkLabel(network)).Observe(elapsed.Seconds())
}

// IncrementVerifications records one verification.
func (m *Metrics) IncrementVerifications(kind, outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(kind, outcome).Inc()
}

// IncrementIssued records one issued token.
func (m *Metrics) IncrementIssued(kind string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(kind).Inc()
}

// UnsupportedNetwork labels resolutions of DIDs whose tag is not in the
// network table.
const UnsupportedNetwork = "unsupported"

// The default network has an empty tag, which reads badly on dashboards.
func networkLabel(tag string) string {
	if tag == "" {
		return "default"
	}
	return tag
}
