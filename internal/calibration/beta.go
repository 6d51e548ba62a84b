package calibration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/expert-revision/internal/models"
)

// BetaUpdater applies binary and enum outcomes to Beta calibration state.
type BetaUpdater struct {
	store *StateStore
}

// NewBetaUpdater creates a new Beta updater
func NewBetaUpdater(store *StateStore) *BetaUpdater {
	return &BetaUpdater{store: store}
}

// Update adds learningRate pseudo-counts to alpha on an exact match and to
// beta otherwise.
func (u *BetaUpdater) Update(expertID, gameID string, pred models.Prediction, grade models.GradingResult, params models.LearningParameters) (*models.LearningUpdate, error) {
	if strings.TrimSpace(pred.Category) == "" {
		return nil, models.ErrEmptyCategory
	}
	if params.BetaLearningRate <= 0 {
		return nil, fmt.Errorf("beta learning rate must be positive, got %v", params.BetaLearningRate)
	}

	start := time.Now()
	key := models.StateKey{ExpertID: expertID, Category: pred.Category}

	var before, after models.BetaSnapshot
	err := u.store.WithBeta(key, func(state *models.BetaCalibrationState) error {
		before = state.Snapshot()

		if grade.ExactMatch {
			state.Alpha += params.BetaLearningRate
			state.CorrectPredictions++
		} else {
			state.Beta += params.BetaLearningRate
		}
		state.TotalPredictions++
		state.LastUpdated = time.Now().UTC()

		after = state.Snapshot()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update beta state for %s: %w", key, err)
	}

	return &models.LearningUpdate{
		UpdateID:       uuid.New(),
		ExpertID:       expertID,
		GameID:         gameID,
		Category:       pred.Category,
		LearningType:   models.LearningTypeBetaCalibration,
		StateBefore:    before,
		StateAfter:     after,
		ObservedValue:  grade.ActualValue,
		PredictedValue: pred.Value,
		Confidence:     pred.Confidence,
		GradingScore:   grade.FinalScore,
		ProcessingTime: time.Since(start),
		Parameters:     params,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
