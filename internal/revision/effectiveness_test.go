package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/expert-revision/internal/models"
)

func outcomes(correct ...bool) []models.PredictionOutcomeRecord {
	out := make([]models.PredictionOutcomeRecord, 0, len(correct))
	for _, c := range correct {
		out = append(out, outcome(c, 0.6))
	}
	return out
}

func TestMeasureNotYetMeasurable(t *testing.T) {
	tracker := NewEffectivenessTracker(0, 0)

	assert.Equal(t, 0.0, tracker.Measure(outcomes(true, true, true, true), 5))
	assert.Equal(t, 0.0, tracker.Measure(outcomes(false, false), 3))
	assert.False(t, tracker.Measurable(outcomes(true, true, true, true), 0))
}

func TestMeasureScores(t *testing.T) {
	tracker := NewEffectivenessTracker(DefaultEffectivenessWindow, DefaultEffectivenessBaseline)

	tests := []struct {
		name     string
		outcomes []models.PredictionOutcomeRecord
		window   int
		want     float64
	}{
		{"perfect", outcomes(true, true, true, true, true), 5, 1.0},
		{"three of five", outcomes(true, false, true, false, true), 5, 0.05 / 0.45},
		{"below baseline clamps to zero", outcomes(true, false, false, false, true), 5, 0.0},
		{"only first window counts", outcomes(true, true, true, true, true, false, false), 5, 1.0},
		{"default window", outcomes(true, true, true, true, false), 0, 0.25 / 0.45},
		{"custom window", outcomes(true, true, false), 3, (2.0/3 - 0.55) / 0.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := tracker.Measure(tt.outcomes, tt.window)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}
