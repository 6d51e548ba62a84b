// Package logger provides revision-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/models"
)

// RevisionLogger provides dedicated logging for trigger detection and
// action planning.
type RevisionLogger struct {
	*logrus.Entry
}

// NewRevisionLogger creates a new revision logger.
func NewRevisionLogger(baseLogger *logrus.Logger) *RevisionLogger {
	return &RevisionLogger{
		Entry: baseLogger.WithField("component", "revision"),
	}
}

// LogTriggers logs the triggers detected for an expert.
func (rl *RevisionLogger) LogTriggers(expertID string, windowSize int, triggers []models.RevisionTrigger) {
	if len(triggers) == 0 {
		rl.WithFields(logrus.Fields{
			"expert_id":   expertID,
			"window_size": windowSize,
		}).Debug("No revision triggers detected")
		return
	}
	for _, t := range triggers {
		rl.WithFields(logrus.Fields{
			"expert_id":    expertID,
			"window_size":  windowSize,
			"trigger_type": t.Type.String(),
			"severity":     t.Severity,
			"description":  t.Description,
		}).Info("Revision trigger detected")
	}
}

// LogActionPlan logs a generated action plan.
func (rl *RevisionLogger) LogActionPlan(expertID string, plan models.RevisionActionPlan) {
	rl.WithFields(logrus.Fields{
		"expert_id":       expertID,
		"action":          plan.Action.String(),
		"priority":        plan.Priority,
		"expected_impact": plan.ExpectedImpact,
		"trigger_type":    plan.TriggerType.String(),
		"parameters":      plan.Parameters,
	}).Info("Revision action planned")
}
