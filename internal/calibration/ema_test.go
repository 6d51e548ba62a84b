package calibration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/models"
)

func numericPrediction(category string, value interface{}) models.Prediction {
	return models.Prediction{Category: category, Type: models.PredictionTypeNumeric, Value: value, Confidence: 0.6}
}

func TestEMAUpdaterFirstUpdate(t *testing.T) {
	store := NewStateStore(nil)
	updater := NewEMAUpdater(store)

	update, err := updater.Update("expert", "g1", numericPrediction("total_points", 10.0),
		models.GradingResult{ActualValue: 13.0, FinalScore: 0.7}, DefaultLearningParameters())
	require.NoError(t, err)

	before := update.StateBefore.(models.EMASnapshot)
	after := update.StateAfter.(models.EMASnapshot)

	assert.Equal(t, 0.0, before.Mu)
	assert.Equal(t, 1.0, before.Sigma)
	assert.InDelta(t, 0.3, after.Mu, 1e-12)
	assert.InDelta(t, math.Sqrt(1.8), after.Sigma, 1e-12)
	assert.Equal(t, 1, after.TotalPredictions)
	assert.Equal(t, models.LearningTypeEMANumeric, update.LearningType)
}

func TestEMAUpdaterKeepsInitialAlpha(t *testing.T) {
	store := NewStateStore(nil)
	updater := NewEMAUpdater(store)
	params := DefaultLearningParameters()

	_, err := updater.Update("expert", "g1", numericPrediction("margin", 3), models.GradingResult{ActualValue: 5}, params)
	require.NoError(t, err)

	params.EMAAlpha = 0.5
	_, err = updater.Update("expert", "g2", numericPrediction("margin", 3), models.GradingResult{ActualValue: 5}, params)
	require.NoError(t, err)

	state, ok := store.EMAState(models.StateKey{ExpertID: "expert", Category: "margin"})
	require.True(t, ok)
	assert.Equal(t, 0.1, state.Alpha)
	assert.Equal(t, 2, state.TotalPredictions)
}

func TestEMASigmaNonNegativeAndMuTracksBias(t *testing.T) {
	store := NewStateStore(nil)
	updater := NewEMAUpdater(store)
	rng := rand.New(rand.NewSource(7))
	params := DefaultLearningParameters()

	for i := 0; i < 300; i++ {
		predicted := rng.Float64() * 40
		// actual outcomes overshoot predictions most of the time
		actual := predicted + 4 + rng.NormFloat64()*2
		update, err := updater.Update("expert", "g", numericPrediction("points", predicted),
			models.GradingResult{ActualValue: actual}, params)
		require.NoError(t, err)

		after := update.StateAfter.(models.EMASnapshot)
		assert.GreaterOrEqual(t, after.Sigma, 0.0)
	}

	state, _ := store.EMAState(models.StateKey{ExpertID: "expert", Category: "points"})
	assert.Greater(t, state.Mu, 0.0)
	assert.InDelta(t, 4.0, state.Mu, 1.5)
}

func TestEMAUpdaterRejectsNonNumeric(t *testing.T) {
	updater := NewEMAUpdater(NewStateStore(nil))

	_, err := updater.Update("expert", "g", numericPrediction("points", "lots"),
		models.GradingResult{ActualValue: 3.0}, DefaultLearningParameters())
	assert.ErrorIs(t, err, models.ErrNonNumericValue)

	_, err = updater.Update("expert", "g", numericPrediction("points", 3.0),
		models.GradingResult{ActualValue: []int{1}}, DefaultLearningParameters())
	assert.ErrorIs(t, err, models.ErrNonNumericValue)
}

func TestEMAUpdaterRejectsNaN(t *testing.T) {
	store := NewStateStore(nil)
	updater := NewEMAUpdater(store)

	_, err := updater.Update("expert", "g", numericPrediction("points", math.NaN()),
		models.GradingResult{ActualValue: 3.0}, DefaultLearningParameters())
	assert.ErrorIs(t, err, models.ErrNegativeSigma)

	state, ok := store.EMAState(models.StateKey{ExpertID: "expert", Category: "points"})
	require.True(t, ok)
	assert.Equal(t, 0, state.TotalPredictions)
	assert.Equal(t, 1.0, state.Sigma)
}

func TestEMAUpdaterAcceptsNumericStrings(t *testing.T) {
	updater := NewEMAUpdater(NewStateStore(nil))

	update, err := updater.Update("expert", "g", numericPrediction("points", "21"),
		models.GradingResult{ActualValue: 24}, DefaultLearningParameters())
	require.NoError(t, err)
	assert.Equal(t, 21.0, update.PredictedValue)
	assert.Equal(t, 24.0, update.ObservedValue)
}
