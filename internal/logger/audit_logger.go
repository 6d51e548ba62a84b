// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/models"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogLearningSession logs the outcome of one expert's learning batch.
func (al *AuditLogger) LogLearningSession(session *models.LearningSession) {
	entry := al.WithFields(logrus.Fields{
		"session_id":              session.SessionID.String(),
		"expert_id":               session.ExpertID,
		"game_id":                 session.GameID,
		"beta_updates":            session.BetaUpdates,
		"ema_updates":             session.EMAUpdates,
		"factor_updates":          session.FactorUpdates,
		"failed":                  session.Failed,
		"calibration_improvement": session.CalibrationImprovement,
		"accuracy_change":         session.AccuracyChange,
		"processing_time_ms":      float64(session.ProcessingTime.Microseconds()) / 1000,
	})
	if session.Failed > 0 {
		entry.Warn("Learning session recorded with failures")
		return
	}
	entry.Info("Learning session recorded")
}

// LogRevision logs a belief revision and whether it reached storage.
func (al *AuditLogger) LogRevision(record *models.BeliefRevisionRecord, stored bool) {
	actions := make([]string, 0, len(record.Actions))
	for _, a := range record.Actions {
		actions = append(actions, a.Action.String())
	}
	al.WithFields(logrus.Fields{
		"revision_id":         record.RevisionID.String(),
		"expert_id":           record.ExpertID,
		"trigger_type":        record.Trigger.Type.String(),
		"severity":            record.Trigger.Severity,
		"actions":             actions,
		"pre_revision_state":  record.PreRevisionState,
		"post_revision_state": record.PostRevisionState,
		"stored":              stored,
	}).Info("Belief revision recorded")
}

// LogEffectiveness logs a measured effectiveness score.
func (al *AuditLogger) LogEffectiveness(revisionID, expertID string, score float64, written bool) {
	al.WithFields(logrus.Fields{
		"revision_id":         revisionID,
		"expert_id":           expertID,
		"effectiveness_score": score,
		"written":             written,
	}).Info("Revision effectiveness measured")
}

// LogPersistenceFailure logs a failed storage operation. The in-memory
// record remains valid.
func (al *AuditLogger) LogPersistenceFailure(operation, id string, err error) {
	al.WithError(err).WithFields(logrus.Fields{
		"operation": operation,
		"id":        id,
	}).Error("Persistence operation failed")
}
