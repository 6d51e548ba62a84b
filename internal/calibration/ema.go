package calibration

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/expert-revision/internal/models"
)

// EMAUpdater tracks the signed bias and spread of numeric predictions.
type EMAUpdater struct {
	store *StateStore
}

// NewEMAUpdater creates a new EMA updater
func NewEMAUpdater(store *StateStore) *EMAUpdater {
	return &EMAUpdater{store: store}
}

// Step applies one observation to (mu, sigma) and returns the new estimates.
func Step(mu, sigma, alpha, predicted, actual float64) (newMu, newSigma float64) {
	e := actual - predicted
	newMu = (1-alpha)*mu + alpha*e
	newSigma = math.Sqrt((1-alpha)*sigma*sigma + alpha*e*e)
	return newMu, newSigma
}

// Update folds actual-predicted into the EMA state for the category. The
// state's own alpha is used once it exists.
func (u *EMAUpdater) Update(expertID, gameID string, pred models.Prediction, grade models.GradingResult, params models.LearningParameters) (*models.LearningUpdate, error) {
	if strings.TrimSpace(pred.Category) == "" {
		return nil, models.ErrEmptyCategory
	}
	if params.EMAAlpha <= 0 || params.EMAAlpha >= 1 {
		return nil, fmt.Errorf("ema alpha must be in (0,1), got %v", params.EMAAlpha)
	}

	predicted, err := models.NumericValue(pred.Value)
	if err != nil {
		return nil, fmt.Errorf("predicted value: %w", err)
	}
	actual, err := models.NumericValue(grade.ActualValue)
	if err != nil {
		return nil, fmt.Errorf("actual value: %w", err)
	}

	start := time.Now()
	key := models.StateKey{ExpertID: expertID, Category: pred.Category}

	var before, after models.EMASnapshot
	err = u.store.WithEMA(key, params.EMAAlpha, func(state *models.EMAState) error {
		mu, sigma := Step(state.Mu, state.Sigma, state.Alpha, predicted, actual)
		if math.IsNaN(sigma) || sigma < 0 {
			return fmt.Errorf("%w: got %v", models.ErrNegativeSigma, sigma)
		}

		before = state.Snapshot()
		state.Mu = mu
		state.Sigma = sigma
		state.TotalPredictions++
		state.LastUpdated = time.Now().UTC()
		after = state.Snapshot()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update ema state for %s: %w", key, err)
	}

	return &models.LearningUpdate{
		UpdateID:       uuid.New(),
		ExpertID:       expertID,
		GameID:         gameID,
		Category:       pred.Category,
		LearningType:   models.LearningTypeEMANumeric,
		StateBefore:    before,
		StateAfter:     after,
		ObservedValue:  actual,
		PredictedValue: predicted,
		Confidence:     pred.Confidence,
		GradingScore:   grade.FinalScore,
		ProcessingTime: time.Since(start),
		Parameters:     params,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
