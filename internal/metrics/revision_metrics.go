// Package metrics defines belief-revision metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Revision counter vectors
var (
	RevisionTriggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revision_triggers_total",
		Help:      "Total number of revision triggers detected by type",
	}, []string{"trigger_type"})

	RevisionActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revision_actions_total",
		Help:      "Total number of revision actions planned by action and priority",
	}, []string{"action", "priority"})

	RevisionStoreFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revision_store_failures_total",
		Help:      "Total number of revision records the persistence layer rejected",
	})

	EffectivenessSweepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "effectiveness_sweeps_total",
		Help:      "Total number of scheduled effectiveness sweeps by status",
	}, []string{"status"})
)

// Revision histogram vectors
var (
	TriggerSeverity = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "trigger_severity",
		Help:      "Severity of detected revision triggers",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"trigger_type"})

	RevisionEffectivenessScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "revision_effectiveness_score",
		Help:      "Effectiveness scores of measured revisions",
		Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
)

// RecordTrigger records a detected trigger.
func RecordTrigger(triggerType string, severity float64) {
	RevisionTriggersTotal.WithLabelValues(triggerType).Inc()
	TriggerSeverity.WithLabelValues(triggerType).Observe(severity)
}

// RecordAction records a planned revision action.
func RecordAction(action, priority string) {
	RevisionActionsTotal.WithLabelValues(action, priority).Inc()
}

// RecordStoreFailure records a rejected revision record.
func RecordStoreFailure() {
	RevisionStoreFailuresTotal.Inc()
}

// RecordEffectiveness records a measured effectiveness score.
func RecordEffectiveness(score float64) {
	RevisionEffectivenessScore.Observe(score)
}

// RecordEffectivenessSweep records the outcome of a scheduled sweep.
func RecordEffectivenessSweep(status string) {
	EffectivenessSweepsTotal.WithLabelValues(status).Inc()
}
