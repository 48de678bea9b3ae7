// Package metrics exposes Prometheus collectors for credential issuance.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
)

const namespace = "keyissuer"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	issued   prometheus.Counter
	records  *prometheus.CounterVec
	timeouts prometheus.Counter
	requests *prometheus.CounterVec
}

// New creates the collectors and registers them, plus a gauge that samples
// pendingFn on every scrape. pendingFn may be nil.
func New(pendingFn func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_issued_total",
			Help:      "Credentials issued and registered as pending.",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_records_total",
			Help:      "Status records written, by status kind.",
		}, []string{"status"}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_timeouts_total",
			Help:      "Credentials that expired without confirmation.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(m.issued, m.records, m.timeouts, m.requests)

	if pendingFn != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_credentials",
			Help:      "Credentials currently awaiting confirmation.",
		}, func() float64 { return float64(pendingFn()) }))
	}

	for _, k := range statuslog.AllKinds() {
		m.records.WithLabelValues(string(k))
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Issued counts one issued credential.
func (m *Metrics) Issued() {
	m.issued.Inc()
}

// Recorded counts one status record of kind k.
func (m *Metrics) Recorded(k statuslog.Kind) {
	m.records.WithLabelValues(string(k)).Inc()
}

// TimedOut counts one confirmation timeout.
func (m *Metrics) TimedOut() {
	m.timeouts.Inc()
}

// Request counts one handled HTTP request.
func (m *Metrics) Request(route, code string) {
	m.requests.WithLabelValues(route, code).Inc()
}
