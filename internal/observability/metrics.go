package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics records attempt/success/failure counts and durations for
// service operations. Services take the interface so tests can run without a
// registry.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, d time.Duration)
}

type promMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewOperationMetrics registers and returns prometheus-backed operation metrics.
func NewOperationMetrics(registry *prometheus.Registry) OperationMetrics {
	labels := []string{"operation", "service"}

	m := &promMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raceday_operation_attempts_total",
			Help: "Number of service operation attempts.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raceday_operation_successes_total",
			Help: "Number of successful service operations.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raceday_operation_failures_total",
			Help: "Number of failed service operations.",
		}, labels),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raceday_operation_duration_seconds",
			Help:    "Duration of service operations.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}

	registry.MustRegister(m.attempts, m.successes, m.failures, m.durations)
	return m
}

func (m *promMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *promMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *promMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *promMetrics) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(d.Seconds())
}

type noopMetrics struct{}

// NewNoopMetrics returns metrics that record nothing. Used in tests.
func NewNoopMetrics() OperationMetrics { return noopMetrics{} }

func (noopMetrics) RecordOperationAttempt(context.Context, string, string)                {}
func (noopMetrics) RecordOperationSuccess(context.Context, string, string)                {}
func (noopMetrics) RecordOperationFailure(context.Context, string, string)                {}
func (noopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
