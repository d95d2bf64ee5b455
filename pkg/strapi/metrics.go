package strapi

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchOutcome is the final state of an atomic batch.
type BatchOutcome string

// Atomic batch outcomes.
const (
	// OutcomeCommitted means every operation succeeded.
	OutcomeCommitted BatchOutcome = "committed"
	// OutcomeRolledBack means an operation failed and compensation completed.
	OutcomeRolledBack BatchOutcome = "rolled_back"
	// OutcomeRollbackFailed means a compensating call failed.
	OutcomeRollbackFailed BatchOutcome = "rollback_failed"
	// OutcomeRejected means the batch failed before any mutation: invalid
	// operations or a failed snapshot read.
	OutcomeRejected BatchOutcome = "rejected"
)

// Metrics receives atomic batch measurements.
type Metrics interface {
	BatchCompleted(outcome BatchOutcome, operations int, duration time.Duration)
	CompensationIssued(kind OperationType, err error)
}

// BatchEvent describes the outcome of one atomic batch.
type BatchEvent struct {
	BatchID       string         `json:"batch_id"`
	Outcome       BatchOutcome   `json:"outcome"`
	Operations    int            `json:"operations"`
	Resources     []string       `json:"resources"`
	Compensations int            `json:"compensations"`
	Error         string         `json:"error,omitempty"`
	Duration      time.Duration  `json:"duration_ns"`
	Timestamp     time.Time      `json:"timestamp"`
	Counts        map[string]int `json:"counts"`
}

// EventPublisher receives atomic batch outcome events. Publish failures are
// logged and never change the batch result.
type EventPublisher interface {
	PublishBatchEvent(ctx context.Context, event *BatchEvent) error
}

// PrometheusMetrics implements Metrics with Prometheus collectors.
type PrometheusMetrics struct {
	batches       *prometheus.CounterVec
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	compensations *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metrics := &PrometheusMetrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strapi",
			Subsystem: "atomic",
			Name:      "batches_total",
			Help:      "Atomic batches by outcome.",
		}, []string{"outcome"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strapi",
			Subsystem: "atomic",
			Name:      "operations_total",
			Help:      "Operations submitted in atomic batches by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "strapi",
			Subsystem: "atomic",
			Name:      "batch_duration_seconds",
			Help:      "Atomic batch duration, rollback included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strapi",
			Subsystem: "atomic",
			Name:      "compensations_total",
			Help:      "Compensating calls by operation type and result.",
		}, []string{"type", "result"}),
	}

	for _, collector := range []prometheus.Collector{
		metrics.batches, metrics.operations, metrics.duration, metrics.compensations,
	} {
		err := reg.Register(collector)
		if err != nil {
			return nil, fmt.Errorf("registering atomic metrics: %w", err)
		}
	}

	return metrics, nil
}

// BatchCompleted implements Metrics.
func (m *PrometheusMetrics) BatchCompleted(outcome BatchOutcome, operations int, duration time.Duration) {
	m.batches.WithLabelValues(string(outcome)).Inc()
	m.operations.WithLabelValues(string(outcome)).Add(float64(operations))
	m.duration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

// CompensationIssued implements Metrics.
func (m *PrometheusMetrics) CompensationIssued(kind OperationType, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.compensations.WithLabelValues(string(kind), result).Inc()
}

// Batches returns the batch counter, mainly for tests.
func (m *PrometheusMetrics) Batches() *prometheus.CounterVec {
	return m.batches
}

// Compensations returns the compensation counter, mainly for tests.
func (m *PrometheusMetrics) Compensations() *prometheus.CounterVec {
	return m.compensations
}
