package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/models"
)

func TestDetectInsufficientWindow(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())

	assert.Empty(t, d.Detect("e1", nil))
	assert.Empty(t, d.Detect("e1", incorrectWithConfidences(0.9, 0.9)))
}

func TestDetectConsecutiveIncorrect(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())

	tests := []struct {
		name     string
		outcomes []models.PredictionOutcomeRecord
		fires    bool
		run      int
		severity float64
	}{
		{
			name:     "trailing three incorrect",
			outcomes: append([]models.PredictionOutcomeRecord{outcome(true, 0.6)}, incorrectWithConfidences(0.6, 0.6, 0.6)...),
			fires:    true,
			run:      3,
			severity: 0.2,
		},
		{
			name:     "correct then two incorrect",
			outcomes: append([]models.PredictionOutcomeRecord{outcome(true, 0.6)}, incorrectWithConfidences(0.6, 0.6)...),
			fires:    false,
		},
		{
			name:     "run broken by a correct prediction",
			outcomes: append(incorrectWithConfidences(0.6, 0.6, 0.6), outcome(true, 0.6)),
			fires:    false,
		},
		{
			name:     "long run saturates",
			outcomes: incorrectWithConfidences(0.6, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6),
			fires:    true,
			run:      8,
			severity: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, ok := findTrigger(d.Detect("e1", tt.outcomes), models.TriggerConsecutiveIncorrect)
			require.Equal(t, tt.fires, ok)
			if !tt.fires {
				return
			}
			assert.InDelta(t, tt.severity, trigger.Severity, 1e-9)
			evidence, ok := trigger.Evidence.(models.ConsecutiveIncorrectEvidence)
			require.True(t, ok)
			assert.Equal(t, tt.run, evidence.RunLength)
			assert.Len(t, evidence.GameIDs, tt.run)
			assert.Equal(t, "e1", trigger.ExpertID)
			assert.NotEmpty(t, trigger.Description)
		})
	}
}

func TestDetectFourHighConfidenceMisses(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())
	triggers := d.Detect("e1", incorrectWithConfidences(0.75, 0.70, 0.80, 0.72))

	consecutive, ok := findTrigger(triggers, models.TriggerConsecutiveIncorrect)
	require.True(t, ok)
	assert.InDelta(t, 0.4, consecutive.Severity, 1e-9)

	// mean(confidence-0.5) is 0.2425, below the 0.25 gap
	_, ok = findTrigger(triggers, models.TriggerConfidenceMisalignment)
	assert.False(t, ok)
}

func TestDetectConfidenceMisalignment(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())
	outcomes := []models.PredictionOutcomeRecord{
		outcome(false, 0.9),
		outcome(false, 0.8),
		outcome(true, 0.6),
	}

	trigger, ok := findTrigger(d.Detect("e1", outcomes), models.TriggerConfidenceMisalignment)
	require.True(t, ok)
	assert.InDelta(t, 0.4, trigger.Severity, 1e-9)

	evidence := trigger.Evidence.(models.ConfidenceMisalignmentEvidence)
	assert.Equal(t, 2, evidence.Count)
	assert.InDelta(t, 0.35, evidence.MeanGap, 1e-9)
	assert.Equal(t, []float64{0.9, 0.8}, evidence.Confidences)

	// a single high-confidence miss is not enough
	_, ok = findTrigger(d.Detect("e1", []models.PredictionOutcomeRecord{
		outcome(false, 0.95), outcome(true, 0.6), outcome(true, 0.6),
	}), models.TriggerConfidenceMisalignment)
	assert.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		rec  models.PredictionOutcomeRecord
		want models.ErrorPattern
	}{
		{"overconfident wins over margins", withMargins(outcome(false, 0.8), 12, -14), models.PatternOverconfident},
		{"boundary confidence is not overconfident", outcome(false, 0.75), models.PatternGeneral},
		{"direction reversal", withMargins(outcome(false, 0.6), 12, -14), models.PatternDirectionReversal},
		{"small reversal is large margin", withMargins(outcome(false, 0.6), 8, -7), models.PatternLargeMargin},
		{"large margin", withMargins(outcome(false, 0.6), 3, 20), models.PatternLargeMargin},
		{"uncertain", outcome(false, 0.5), models.PatternUncertain},
		{"uncertain with close margins", withMargins(outcome(false, 0.55), 3, 5), models.PatternUncertain},
		{"general", outcome(false, 0.65), models.PatternGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.rec))
		})
	}
}

func TestDetectPatternRepetition(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())
	outcomes := []models.PredictionOutcomeRecord{
		withMargins(outcome(false, 0.6), 12, -14),
		outcome(true, 0.6),
		withMargins(outcome(false, 0.6), 15, -11),
		outcome(true, 0.6),
		withMargins(outcome(false, 0.6), -20, 18),
		outcome(true, 0.6),
	}

	trigger, ok := findTrigger(d.Detect("e1", outcomes), models.TriggerPatternRepetition)
	require.True(t, ok)
	assert.InDelta(t, 0.5, trigger.Severity, 1e-9)

	evidence := trigger.Evidence.(models.PatternRepetitionEvidence)
	assert.Equal(t, models.PatternDirectionReversal, evidence.Pattern)
	assert.Equal(t, 3, evidence.Count)
}

func TestDetectPatternRepetitionTieUsesBucketOrder(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())
	outcomes := []models.PredictionOutcomeRecord{
		outcome(false, 0.6),
		outcome(true, 0.6),
		outcome(false, 0.9),
		outcome(true, 0.6),
		outcome(false, 0.6),
		outcome(true, 0.6),
		outcome(false, 0.9),
		outcome(true, 0.6),
		outcome(false, 0.9),
		outcome(false, 0.6),
	}

	trigger, ok := findTrigger(d.Detect("e1", outcomes), models.TriggerPatternRepetition)
	require.True(t, ok)
	evidence := trigger.Evidence.(models.PatternRepetitionEvidence)
	assert.Equal(t, models.PatternOverconfident, evidence.Pattern)
	assert.Equal(t, 3, evidence.Distribution[models.PatternOverconfident])
	assert.Equal(t, 3, evidence.Distribution[models.PatternGeneral])
}

func TestDetectPerformanceDecline(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())
	outcomes := []models.PredictionOutcomeRecord{
		outcome(true, 0.6), outcome(true, 0.6), outcome(true, 0.6), outcome(true, 0.6), outcome(false, 0.6),
		outcome(true, 0.6), outcome(false, 0.6), outcome(true, 0.6), outcome(true, 0.6), outcome(false, 0.6),
	}

	trigger, ok := findTrigger(d.Detect("e1", outcomes), models.TriggerPerformanceDecline)
	require.True(t, ok)
	assert.InDelta(t, 0.2/0.3, trigger.Severity, 1e-9)

	evidence := trigger.Evidence.(models.PerformanceDeclineEvidence)
	assert.InDelta(t, 0.8, evidence.FirstHalfAccuracy, 1e-9)
	assert.InDelta(t, 0.6, evidence.SecondHalfAccuracy, 1e-9)
	assert.Equal(t, 10, evidence.SampleSize)

	// five samples are too few for a decline check
	_, ok = findTrigger(d.Detect("e1", outcomes[:5]), models.TriggerPerformanceDecline)
	assert.False(t, ok)
}

func TestDetectUsesOnlyRecentWindow(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())

	outcomes := incorrectWithConfidences(0.9, 0.9, 0.9, 0.9, 0.9)
	for i := 0; i < 10; i++ {
		outcomes = append(outcomes, outcome(true, 0.6))
	}

	assert.Empty(t, d.Detect("e1", outcomes))
}

func TestDetectDoesNotMutateInput(t *testing.T) {
	d := NewTriggerDetector(DefaultDetectorConfig())
	outcomes := incorrectWithConfidences(0.9, 0.8, 0.85)
	before := append([]models.PredictionOutcomeRecord(nil), outcomes...)

	triggers := d.Detect("e1", outcomes)
	require.NotEmpty(t, triggers)
	assert.Equal(t, before, outcomes)
}

func TestDetectorConfigDefaults(t *testing.T) {
	d := NewTriggerDetector(DetectorConfig{WindowSize: 6})
	cfg := d.Config()
	assert.Equal(t, 6, cfg.WindowSize)
	assert.Equal(t, 3, cfg.MinSamples)
	assert.Equal(t, 0.25, cfg.MisalignmentGap)
	assert.Equal(t, 0.45, cfg.UncertainConfidenceLow)
}
