// Package metrics counts ledger operations with Prometheus instruments.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinoosan/teller/internal/errs"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns a private registry so tests and multiple instances never collide.
type Metrics struct {
	reg        *prometheus.Registry
	operations *prometheus.CounterVec
	accounts   prometheus.Gauge
	requests   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// New registers the ledger instruments plus Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Name:      "operations_total",
				Help:      "Total number of ledger operations by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "accounts",
			Help:      "Number of accounts currently held in memory",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served by the ops listener",
			},
			[]string{"method", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ledger",
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}
	reg.MustRegister(m.operations, m.accounts, m.requests, m.durations, collectors.NewGoCollector())
	return m
}

// Observe counts one operation. The outcome is derived from err.
func (m *Metrics) Observe(action string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(action, Outcome(err)).Inc()
}

// SetAccounts records the current account count.
func (m *Metrics) SetAccounts(n int) {
	if m == nil {
		return
	}
	m.accounts.Set(float64(n))
}

// ObserveRequest counts one HTTP request on the ops listener.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, code).Inc()
	m.durations.WithLabelValues(method, code).Observe(elapsed.Seconds())
}

// Outcome classifies err: business-rule rejections versus failures.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errs.ErrStorage), errors.Is(err, errs.ErrJournal):
		return OutcomeError
	default:
		return OutcomeRejected
	}
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
