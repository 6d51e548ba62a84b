package calibration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/models"
)

func TestStateStoreLazyCreation(t *testing.T) {
	store := NewStateStore(nil)
	key := models.StateKey{ExpertID: "e1", Category: "winner"}

	_, ok := store.BetaState(key)
	assert.False(t, ok)

	err := store.WithBeta(key, func(s *models.BetaCalibrationState) error {
		assert.Equal(t, models.BetaPriorAlpha, s.Alpha)
		assert.Equal(t, models.BetaPriorBeta, s.Beta)
		return nil
	})
	require.NoError(t, err)

	state, ok := store.BetaState(key)
	require.True(t, ok)
	assert.Equal(t, 0, state.TotalPredictions)
}

func TestStateStoreReturnsCopies(t *testing.T) {
	store := NewStateStore(nil)
	key := models.StateKey{ExpertID: "e1", Category: "spread"}

	require.NoError(t, store.WithEMA(key, 0.2, func(s *models.EMAState) error { return nil }))
	copied, ok := store.EMAState(key)
	require.True(t, ok)
	copied.Mu = 42

	fresh, _ := store.EMAState(key)
	assert.Equal(t, models.EMAInitialMu, fresh.Mu)
	assert.Equal(t, 0.2, fresh.Alpha)

	require.NoError(t, store.WithFactors("e1", func(v *models.FactorWeightVector) error { return nil }))
	vec, ok := store.FactorWeights("e1")
	require.True(t, ok)
	vec.Weights[models.FactorMomentum] = 99

	again, _ := store.FactorWeights("e1")
	assert.Equal(t, 1.1, again.Weights[models.FactorMomentum])
}

func TestStateStoreExistingEMAKeepsAlpha(t *testing.T) {
	store := NewStateStore(nil)
	key := models.StateKey{ExpertID: "e1", Category: "spread"}

	require.NoError(t, store.WithEMA(key, 0.2, func(s *models.EMAState) error { return nil }))
	require.NoError(t, store.WithEMA(key, 0.5, func(s *models.EMAState) error {
		assert.Equal(t, 0.2, s.Alpha)
		return nil
	}))
}

func TestStateStorePropagatesError(t *testing.T) {
	store := NewStateStore(nil)
	boom := errors.New("boom")

	err := store.WithBeta(models.StateKey{ExpertID: "e1", Category: "c"}, func(*models.BetaCalibrationState) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestStateStoreExpertsAndCategories(t *testing.T) {
	store := NewStateStore(nil)
	noop := func(*models.BetaCalibrationState) error { return nil }

	require.NoError(t, store.WithBeta(models.StateKey{ExpertID: "b", Category: "winner"}, noop))
	require.NoError(t, store.WithBeta(models.StateKey{ExpertID: "a", Category: "spread"}, noop))
	require.NoError(t, store.WithBeta(models.StateKey{ExpertID: "a", Category: "cover"}, noop))
	require.NoError(t, store.WithFactors("c", func(*models.FactorWeightVector) error { return nil }))

	assert.Equal(t, []string{"a", "b", "c"}, store.Experts())

	beta, ema := store.Categories("a")
	assert.Equal(t, []string{"cover", "spread"}, beta)
	assert.Empty(t, ema)
}
