// Package metrics holds the Prometheus collectors for verification runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "legal_consensus"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SourceQueries counts source queries.
	// Labels: source, outcome (success, error)
	SourceQueries *prometheus.CounterVec

	// SourceDuration measures per-source latency in seconds.
	// Labels: source
	SourceDuration *prometheus.HistogramVec

	// Verifications counts completed verifications.
	// Labels: level (none, low, high)
	Verifications *prometheus.CounterVec

	// SharedCitations is the distribution of shared-set sizes.
	SharedCitations prometheus.Histogram

	// AuditFailures counts audit sink errors.
	// Labels: sink
	AuditFailures *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SourceQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "queries_total",
			Help:      "Total source queries by outcome",
		}, []string{"source", "outcome"}),
		SourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "duration_seconds",
			Help:      "Source query latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"source"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total verifications by consensus level",
		}, []string{"level"}),
		SharedCitations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shared_citations",
			Help:      "Number of citations shared by all succeeded sources",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "failures_total",
			Help:      "Total audit persistence failures by sink",
		}, []string{"sink"}),
	}
}

// ObserveSource records one finished source query.
func (m *Metrics) ObserveSource(source string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.SourceQueries.WithLabelValues(source, outcome).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveVerification records one finished verification.
func (m *Metrics) ObserveVerification(level string, shared int) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(level).Inc()
	m.SharedCitations.Observe(float64(shared))
}

// ObserveAuditFailure records a failed audit write.
func (m *Metrics) ObserveAuditFailure(sink string) {
	if m == nil {
		return
	}
	m.AuditFailures.WithLabelValues(sink).Inc()
}
