package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/models"
)

func TestMatchFactor(t *testing.T) {
	tests := []struct {
		category string
		factor   models.Factor
		matched  bool
	}{
		{"momentum_shift", models.FactorMomentum, true},
		{"Offensive Yards", models.FactorOffensiveEfficiency, true},
		{"total_offense", models.FactorOffensiveEfficiency, true},
		{"DEFENSIVE_TURNOVERS", models.FactorDefensive, true},
		{"red zone defense", models.FactorDefensive, true},
		{"weather_impact", models.FactorWeather, true},
		{"home_team_cover", models.FactorHomeField, true},
		{"injury_report", models.FactorInjury, true},
		{"injured_starters", models.FactorInjury, true},
		{"home_defense_sacks", models.FactorDefensive, true},
		{"momentum_at_home", models.FactorMomentum, true},
		{"total_points", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			factor, ok := MatchFactor(tt.category)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.factor, factor)
		})
	}
}

func TestMultiplierBounded(t *testing.T) {
	rates := []float64{0, 0.05, 0.4, 1, 5, 50}
	maxChanges := []float64{0.05, 0.2, 0.5}

	for _, maxChange := range maxChanges {
		for _, rate := range rates {
			for score := 0.0; score <= 1.0001; score += 0.05 {
				m := Multiplier(score, rate, maxChange)
				assert.LessOrEqual(t, m-1, maxChange+1e-12)
				assert.GreaterOrEqual(t, m-1, -maxChange-1e-12)
			}
			assert.LessOrEqual(t, Multiplier(0, rate, maxChange), 1.0)
			assert.GreaterOrEqual(t, Multiplier(1, rate, maxChange), 1.0)
		}
	}

	assert.InDelta(t, 0.8, Multiplier(0, 5, 0.2), 1e-12)
	assert.InDelta(t, 1.2, Multiplier(1, 5, 0.2), 1e-12)
	assert.InDelta(t, 1.0, Multiplier(0.5, 5, 0.2), 1e-12)
}

func TestFactorUpdaterMultipliesWeight(t *testing.T) {
	store := NewStateStore(nil)
	updater := NewFactorUpdater(store, 0)
	params := DefaultLearningParameters()

	update, ok := updater.Update("expert", "g1", binaryPrediction("momentum_swing", 0.6), graded(true, 1.0), params)
	require.True(t, ok)
	require.NotNil(t, update)

	before := update.StateBefore.(models.FactorSnapshot)
	after := update.StateAfter.(models.FactorSnapshot)
	assert.InDelta(t, 1.1, before.Weight, 1e-12)
	assert.InDelta(t, 1.025, after.Multiplier, 1e-12)
	assert.InDelta(t, 1.1*1.025, after.Weight, 1e-12)

	_, ok = updater.Update("expert", "g2", binaryPrediction("momentum_swing", 0.6), graded(false, 0.0), params)
	require.True(t, ok)

	vec, found := store.FactorWeights("expert")
	require.True(t, found)
	assert.InDelta(t, 1.1*1.025*0.975, vec.Weights[models.FactorMomentum], 1e-12)
	assert.InDelta(t, 0.9, vec.Weights[models.FactorOffensiveEfficiency], 1e-12)
	assert.Equal(t, 2, vec.UpdateCount)
}

func TestFactorUpdaterNoRelevantFactor(t *testing.T) {
	store := NewStateStore(nil)
	updater := NewFactorUpdater(store, 0.2)

	update, ok := updater.Update("expert", "g1", binaryPrediction("first_scorer", 0.6), graded(true, 1.0), DefaultLearningParameters())
	assert.False(t, ok)
	assert.Nil(t, update)

	_, found := store.FactorWeights("expert")
	assert.False(t, found)
}

func TestFactorUpdaterCustomPriors(t *testing.T) {
	store := NewStateStore(map[models.Factor]float64{models.FactorWeather: 0.75})
	updater := NewFactorUpdater(store, 0.2)

	_, ok := updater.Update("expert", "g1", binaryPrediction("weather", 0.6), graded(true, 0.5), DefaultLearningParameters())
	require.True(t, ok)

	vec, _ := store.FactorWeights("expert")
	assert.InDelta(t, 0.75, vec.Weights[models.FactorWeather], 1e-12)
	assert.InDelta(t, 1.0, vec.Weights[models.FactorMomentum], 1e-12)
}
