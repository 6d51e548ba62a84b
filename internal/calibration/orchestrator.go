package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/metrics"
	"github.com/yourusername/expert-revision/internal/models"
)

// AuditSink receives every LearningUpdate the orchestrator produces.
type AuditSink interface {
	Append(update *models.LearningUpdate) error
}

// LearningOrchestrator fans a game's graded predictions out to the Beta, EMA
// and factor updaters for one expert.
type LearningOrchestrator struct {
	store    *StateStore
	beta     *BetaUpdater
	ema      *EMAUpdater
	factor   *FactorUpdater
	personas *PersonaResolver
	audit    AuditSink
	logger   *logrus.Logger
}

// NewLearningOrchestrator creates a new learning orchestrator. audit may be nil.
func NewLearningOrchestrator(
	store *StateStore,
	personas *PersonaResolver,
	maxChange float64,
	audit AuditSink,
	logger *logrus.Logger,
) *LearningOrchestrator {
	return &LearningOrchestrator{
		store:    store,
		beta:     NewBetaUpdater(store),
		ema:      NewEMAUpdater(store),
		factor:   NewFactorUpdater(store, maxChange),
		personas: personas,
		audit:    audit,
		logger:   logger,
	}
}

// Store returns the state store the orchestrator writes to
func (o *LearningOrchestrator) Store() *StateStore {
	return o.store
}

// ProcessExpertLearning applies each (prediction, grading) pair and returns
// the resulting session. Failures of individual pairs are counted, never
// returned. A cancelled context stops the batch between pairs.
func (o *LearningOrchestrator) ProcessExpertLearning(
	ctx context.Context,
	expertID, gameID string,
	predictions []models.Prediction,
	gradings []models.GradingResult,
) *models.LearningSession {
	start := time.Now()
	session := &models.LearningSession{
		SessionID: uuid.New(),
		ExpertID:  expertID,
		GameID:    gameID,
		StartedAt: start.UTC(),
		Updates:   make([]*models.LearningUpdate, 0, len(predictions)*2),
	}

	pairs := len(predictions)
	if len(gradings) < pairs {
		pairs = len(gradings)
	}
	if surplus := len(predictions) + len(gradings) - 2*pairs; surplus > 0 {
		session.Failed += surplus
		o.logger.WithFields(logrus.Fields{
			"expert_id":   expertID,
			"game_id":     gameID,
			"predictions": len(predictions),
			"gradings":    len(gradings),
		}).Warn("Prediction and grading counts differ; unpaired entries counted as failed")
	}

	var improvements, scores []float64

	for i := 0; i < pairs; i++ {
		if err := ctx.Err(); err != nil {
			o.logger.WithFields(logrus.Fields{
				"expert_id": expertID,
				"game_id":   gameID,
				"processed": i,
				"total":     pairs,
			}).Warn("Learning batch cancelled")
			break
		}

		pred, grade := predictions[i], gradings[i]
		params := o.personas.Resolve(expertID)
		scores = append(scores, grade.FinalScore)

		update, err := o.safely(func() (*models.LearningUpdate, error) {
			return o.dispatchCalibration(expertID, gameID, pred, grade, params)
		})
		if err != nil {
			o.recordFailure(session, expertID, gameID, pred, err)
		} else {
			o.record(session, update)
			improvements = append(improvements, improvementOf(update))
		}

		update, err = o.safely(func() (*models.LearningUpdate, error) {
			u, matched := o.factor.Update(expertID, gameID, pred, grade, params)
			if !matched {
				return nil, nil
			}
			return u, nil
		})
		switch {
		case err != nil:
			o.recordFailure(session, expertID, gameID, pred, err)
		case update == nil:
			metrics.RecordUnmatchedFactor()
			o.logger.WithFields(logrus.Fields{
				"expert_id": expertID,
				"category":  pred.Category,
			}).Debug("No relevant factor for category")
		default:
			o.record(session, update)
		}
	}

	if len(improvements) > 0 {
		session.CalibrationImprovement, _ = stats.Mean(improvements)
	}
	if len(scores) > 0 {
		meanScore, _ := stats.Mean(scores)
		session.AccuracyChange = meanScore - 0.5
	}
	session.ProcessingTime = time.Since(start)

	metrics.RecordLearningSession(expertID, session.ProcessingTime.Seconds(), session.CalibrationImprovement)
	metrics.UpdateTrackedExperts(float64(len(o.store.Experts())))

	o.logger.WithFields(logrus.Fields{
		"expert_id":               expertID,
		"game_id":                 gameID,
		"beta_updates":            session.BetaUpdates,
		"ema_updates":             session.EMAUpdates,
		"factor_updates":          session.FactorUpdates,
		"failed":                  session.Failed,
		"calibration_improvement": session.CalibrationImprovement,
		"accuracy_change":         session.AccuracyChange,
	}).Debug("Learning session complete")

	return session
}

func (o *LearningOrchestrator) dispatchCalibration(expertID, gameID string, pred models.Prediction, grade models.GradingResult, params models.LearningParameters) (*models.LearningUpdate, error) {
	switch {
	case pred.Type.IsCategorical():
		return o.beta.Update(expertID, gameID, pred, grade, params)
	case pred.Type == models.PredictionTypeNumeric:
		return o.ema.Update(expertID, gameID, pred, grade, params)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPredictionType, pred.Type)
	}
}

// safely converts a panic in fn into an error so one bad pair cannot abort
// the batch.
func (o *LearningOrchestrator) safely(fn func() (*models.LearningUpdate, error)) (update *models.LearningUpdate, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = fmt.Errorf("update panicked: %v", r)
		}
	}()
	return fn()
}

func (o *LearningOrchestrator) record(session *models.LearningSession, update *models.LearningUpdate) {
	switch update.LearningType {
	case models.LearningTypeBetaCalibration:
		session.BetaUpdates++
	case models.LearningTypeEMANumeric:
		session.EMAUpdates++
	case models.LearningTypeFactorUpdate:
		session.FactorUpdates++
	case models.LearningTypeMomentumUpdate, models.LearningTypeOffensiveEfficiencyUpdate:
		// reserved types; no updater emits them
	}
	session.Updates = append(session.Updates, update)
	metrics.RecordLearningUpdate(update.LearningType.String())

	if o.audit == nil {
		return
	}
	if err := o.audit.Append(update); err != nil {
		o.logger.WithError(err).WithField("update_id", update.UpdateID).Warn("Failed to append learning update to audit log")
	}
}

func (o *LearningOrchestrator) recordFailure(session *models.LearningSession, expertID, gameID string, pred models.Prediction, err error) {
	session.Failed++
	metrics.RecordLearningFailure()
	o.logger.WithError(err).WithFields(logrus.Fields{
		"expert_id": expertID,
		"game_id":   gameID,
		"category":  pred.Category,
		"pred_type": pred.Type,
	}).Warn("Learning update failed")
}

// improvementOf is positive when the update tightened the estimate.
func improvementOf(update *models.LearningUpdate) float64 {
	switch before := update.StateBefore.(type) {
	case models.BetaSnapshot:
		after := update.StateAfter.(models.BetaSnapshot)
		return before.Variance - after.Variance
	case models.EMASnapshot:
		after := update.StateAfter.(models.EMASnapshot)
		return before.Sigma - after.Sigma
	default:
		return 0
	}
}
