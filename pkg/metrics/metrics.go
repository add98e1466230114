package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram

	// Configuration metrics
	ConfigReloads *prometheus.CounterVec

	// Dictionary metrics
	DictionaryLookupFailures prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluations_total",
			Help:      "Total number of credential evaluations by outcome and reason",
		}, []string{"outcome", "reason"}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating one credential-change request",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		ConfigReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "config_reloads_total",
			Help:      "Total number of configuration reload attempts by status",
		}, []string{"status"}),
		DictionaryLookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dictionary_lookup_failures_total",
			Help:      "Total number of weak-secret dictionary lookups that could not complete",
		}),
	}
}

// RecordVerdict counts one completed evaluation.
func (m *Metrics) RecordVerdict(accepted bool, reason string) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.EvaluationsTotal.WithLabelValues(outcome, reason).Inc()
}
