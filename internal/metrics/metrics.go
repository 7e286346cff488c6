// Package metrics exposes Prometheus instrumentation for the wallet service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lunchwallet"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry        *prometheus.Registry
	walletOps       *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		walletOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_operations_total",
			Help:      "Wallet deposits and payments by outcome.",
		}, []string{"operation", "status"}),
		gatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lunch_gateway_requests_total",
			Help:      "Calls to the lunch order service by outcome.",
		}, []string{"method", "outcome"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// WalletOperation counts one deposit or payment outcome.
func (m *Metrics) WalletOperation(operation, outcome string) {
	m.walletOps.WithLabelValues(operation, outcome).Inc()
}

// GatewayRequest counts one lunch service attempt.
func (m *Metrics) GatewayRequest(method, outcome string) {
	m.gatewayRequests.WithLabelValues(method, outcome).Inc()
}

// ObserveHTTPRequest records request latency.
func (m *Metrics) ObserveHTTPRequest(method, route string, elapsed time.Duration) {
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
