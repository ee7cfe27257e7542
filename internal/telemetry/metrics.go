package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics is the reporter's Prometheus instrumentation. Each instance owns its registry,
// so several reporters can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	SpecsReceived        *prometheus.CounterVec
	DuplicatesSuppressed prometheus.Counter
	RunsRecorded         prometheus.Counter
	RunsFailed           *prometheus.CounterVec
	RecordDuration       prometheus.Histogram
	Flushes              prometheus.Counter
}

// NewMetrics creates and registers all reporter metrics.
func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.SpecsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spira_specs_received_total",
			Help: "Spec completions accepted into the pending queue",
		},
		[]string{"status"},
	)

	m.DuplicatesSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spira_specs_duplicate_total",
			Help: "Spec completions dropped as repeats of the previous one",
		},
	)

	m.RunsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spira_test_runs_recorded_total",
			Help: "Test runs accepted by Spira",
		},
	)

	m.RunsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spira_test_runs_failed_total",
			Help: "Test runs that could not be recorded",
		},
		[]string{"reason"},
	)

	m.RecordDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spira_record_duration_seconds",
			Help:    "Duration of test run POST requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.Flushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spira_flushes_total",
			Help: "Completed suite flushes",
		},
	)

	m.Registry.MustRegister(
		m.SpecsReceived,
		m.DuplicatesSuppressed,
		m.RunsRecorded,
		m.RunsFailed,
		m.RecordDuration,
		m.Flushes,
	)

	return m
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
