// Package metrics provides centralized Prometheus metrics registry for the calibration engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expert_revision"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	LearningUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learning_updates_total",
		Help:      "Total number of calibration state updates by learning type",
	}, []string{"learning_type"})
	LearningUpdateFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learning_update_failures_total",
		Help:      "Total number of per-prediction updates that failed",
	})
	LearningSessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learning_sessions_total",
		Help:      "Total number of expert/game learning sessions processed",
	})
	UnmatchedFactorCategoriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unmatched_factor_categories_total",
		Help:      "Total number of predictions whose category named no factor",
	})
)

// Gauge metrics
var (
	TrackedExperts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_experts",
		Help:      "Number of experts with calibration state",
	})
	CalibrationImprovement = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "calibration_improvement",
		Help:      "Calibration improvement of the latest learning session per expert",
	}, []string{"expert_id"})
)

// Histogram metrics
var (
	LearningSessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "learning_session_duration_seconds",
		Help:      "Duration of learning session processing in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register learning metrics
		registry.MustRegister(LearningUpdatesTotal)
		registry.MustRegister(LearningUpdateFailuresTotal)
		registry.MustRegister(LearningSessionsTotal)
		registry.MustRegister(UnmatchedFactorCategoriesTotal)
		registry.MustRegister(TrackedExperts)
		registry.MustRegister(CalibrationImprovement)
		registry.MustRegister(LearningSessionDuration)

		// Register revision metrics
		registry.MustRegister(RevisionTriggersTotal)
		registry.MustRegister(RevisionActionsTotal)
		registry.MustRegister(RevisionStoreFailuresTotal)
		registry.MustRegister(TriggerSeverity)
		registry.MustRegister(RevisionEffectivenessScore)
		registry.MustRegister(EffectivenessSweepsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordLearningUpdate records a successful calibration update.
func RecordLearningUpdate(learningType string) {
	LearningUpdatesTotal.WithLabelValues(learningType).Inc()
}

// RecordLearningFailure records a failed per-prediction update.
func RecordLearningFailure() {
	LearningUpdateFailuresTotal.Inc()
}

// RecordUnmatchedFactor records a factor no-op.
func RecordUnmatchedFactor() {
	UnmatchedFactorCategoriesTotal.Inc()
}

// RecordLearningSession records a processed session.
func RecordLearningSession(expertID string, durationSeconds, improvement float64) {
	LearningSessionsTotal.Inc()
	LearningSessionDuration.Observe(durationSeconds)
	CalibrationImprovement.WithLabelValues(expertID).Set(improvement)
}

// UpdateTrackedExperts updates the tracked experts gauge.
func UpdateTrackedExperts(count float64) {
	TrackedExperts.Set(count)
}
