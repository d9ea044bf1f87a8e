package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the counters exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	logins             *prometheus.CounterVec
	tokensIssued       prometheus.Counter
	tokenVerifications *prometheus.CounterVec
}

// NewMetrics registers the authgate collectors on a private registry, so tests
// and multiple instances never collide on the global one.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_logins_total",
			Help: "Completed provider callbacks by provider and result.",
		}, []string{"provider", "result"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_tokens_issued_total",
			Help: "Assertion tokens issued to logged-in users.",
		}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_token_verifications_total",
			Help: "Bearer token verifications by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.logins,
		m.tokensIssued,
		m.tokenVerifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) login(provider, result string) {
	if provider == "" {
		provider = "unknown"
	}
	m.logins.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) tokenIssued() {
	m.tokensIssued.Inc()
}

func (m *Metrics) tokenVerified(result string) {
	m.tokenVerifications.WithLabelValues(result).Inc()
}
