// Package revision watches an expert's recent graded predictions for
// behavioural failure patterns and turns them into corrective actions.
package revision

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/yourusername/expert-revision/internal/models"
)

// DetectorConfig holds the trigger thresholds
type DetectorConfig struct {
	WindowSize              int
	MinSamples              int
	ConsecutiveRunThreshold int
	HighConfidence          float64
	MisalignmentMinCount    int
	MisalignmentGap         float64
	PatternMinCount         int
	DeclineMinSamples       int
	DeclineThreshold        float64
	OverconfidentConfidence float64
	DirectionReversalMargin float64
	LargeMarginError        float64
	UncertainConfidenceLow  float64
	UncertainConfidenceHigh float64
}

// DefaultDetectorConfig returns the standard thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		WindowSize:              10,
		MinSamples:              3,
		ConsecutiveRunThreshold: 3,
		HighConfidence:          0.7,
		MisalignmentMinCount:    2,
		MisalignmentGap:         0.25,
		PatternMinCount:         3,
		DeclineMinSamples:       6,
		DeclineThreshold:        0.15,
		OverconfidentConfidence: 0.75,
		DirectionReversalMargin: 10,
		LargeMarginError:        14,
		UncertainConfidenceLow:  0.45,
		UncertainConfidenceHigh: 0.55,
	}
}

// TriggerDetector evaluates the four detectors over a window of outcomes.
// It holds no state besides its configuration and is safe for concurrent use.
type TriggerDetector struct {
	cfg DetectorConfig
	now func() time.Time
}

// NewTriggerDetector creates a detector. Zero-valued fields of cfg take
// their defaults.
func NewTriggerDetector(cfg DetectorConfig) *TriggerDetector {
	return &TriggerDetector{cfg: withDefaults(cfg), now: time.Now}
}

// Config returns the effective configuration
func (d *TriggerDetector) Config() DetectorConfig {
	return d.cfg
}

func withDefaults(cfg DetectorConfig) DetectorConfig {
	def := DefaultDetectorConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.ConsecutiveRunThreshold <= 0 {
		cfg.ConsecutiveRunThreshold = def.ConsecutiveRunThreshold
	}
	if cfg.HighConfidence <= 0 {
		cfg.HighConfidence = def.HighConfidence
	}
	if cfg.MisalignmentMinCount <= 0 {
		cfg.MisalignmentMinCount = def.MisalignmentMinCount
	}
	if cfg.MisalignmentGap <= 0 {
		cfg.MisalignmentGap = def.MisalignmentGap
	}
	if cfg.PatternMinCount <= 0 {
		cfg.PatternMinCount = def.PatternMinCount
	}
	if cfg.DeclineMinSamples <= 0 {
		cfg.DeclineMinSamples = def.DeclineMinSamples
	}
	if cfg.DeclineThreshold <= 0 {
		cfg.DeclineThreshold = def.DeclineThreshold
	}
	if cfg.OverconfidentConfidence <= 0 {
		cfg.OverconfidentConfidence = def.OverconfidentConfidence
	}
	if cfg.DirectionReversalMargin <= 0 {
		cfg.DirectionReversalMargin = def.DirectionReversalMargin
	}
	if cfg.LargeMarginError <= 0 {
		cfg.LargeMarginError = def.LargeMarginError
	}
	if cfg.UncertainConfidenceLow <= 0 && cfg.UncertainConfidenceHigh <= 0 {
		cfg.UncertainConfidenceLow = def.UncertainConfidenceLow
		cfg.UncertainConfidenceHigh = def.UncertainConfidenceHigh
	}
	return cfg
}

// Detect runs every detector over the last WindowSize outcomes. Fewer than
// MinSamples outcomes yield no triggers. The input slice is copied before
// evaluation.
func (d *TriggerDetector) Detect(expertID string, outcomes []models.PredictionOutcomeRecord) []models.RevisionTrigger {
	window := d.window(outcomes)
	if len(window) < d.cfg.MinSamples {
		return nil
	}

	now := d.now().UTC()
	var triggers []models.RevisionTrigger
	for _, detect := range []func([]models.PredictionOutcomeRecord) (models.TriggerEvidence, float64, bool){
		d.consecutiveIncorrect,
		d.confidenceMisalignment,
		d.patternRepetition,
		d.performanceDecline,
	} {
		evidence, severity, fired := detect(window)
		if !fired {
			continue
		}
		triggers = append(triggers, models.RevisionTrigger{
			Type:        evidence.TriggerType(),
			Severity:    severity,
			Evidence:    evidence,
			ExpertID:    expertID,
			Description: describe(evidence),
			DetectedAt:  now,
		})
	}
	return triggers
}

func (d *TriggerDetector) window(outcomes []models.PredictionOutcomeRecord) []models.PredictionOutcomeRecord {
	start := 0
	if len(outcomes) > d.cfg.WindowSize {
		start = len(outcomes) - d.cfg.WindowSize
	}
	window := make([]models.PredictionOutcomeRecord, len(outcomes)-start)
	copy(window, outcomes[start:])
	return window
}

func (d *TriggerDetector) consecutiveIncorrect(window []models.PredictionOutcomeRecord) (models.TriggerEvidence, float64, bool) {
	run := 0
	for i := len(window) - 1; i >= 0 && !window[i].WasCorrect; i-- {
		run++
	}
	if run < d.cfg.ConsecutiveRunThreshold {
		return nil, 0, false
	}

	gameIDs := make([]string, 0, run)
	for _, rec := range window[len(window)-run:] {
		gameIDs = append(gameIDs, rec.GameID)
	}
	severity := math.Min(1, float64(run-2)/5)
	return models.ConsecutiveIncorrectEvidence{RunLength: run, GameIDs: gameIDs}, severity, true
}

func (d *TriggerDetector) confidenceMisalignment(window []models.PredictionOutcomeRecord) (models.TriggerEvidence, float64, bool) {
	var confidences, gaps []float64
	for _, rec := range window {
		if !rec.WasCorrect && rec.Confidence >= d.cfg.HighConfidence {
			confidences = append(confidences, rec.Confidence)
			gaps = append(gaps, rec.Confidence-0.5)
		}
	}
	if len(confidences) < d.cfg.MisalignmentMinCount {
		return nil, 0, false
	}

	meanGap, err := stats.Mean(gaps)
	if err != nil || meanGap < d.cfg.MisalignmentGap {
		return nil, 0, false
	}
	severity := math.Min(1, float64(len(confidences))/5)
	return models.ConfidenceMisalignmentEvidence{
		Count:       len(confidences),
		MeanGap:     meanGap,
		Confidences: confidences,
	}, severity, true
}

// ClassifyError assigns an incorrect prediction to exactly one error
// pattern using the default thresholds.
func ClassifyError(rec models.PredictionOutcomeRecord) models.ErrorPattern {
	return classify(DefaultDetectorConfig(), rec)
}

func classify(cfg DetectorConfig, rec models.PredictionOutcomeRecord) models.ErrorPattern {
	if rec.Confidence > cfg.OverconfidentConfidence {
		return models.PatternOverconfident
	}
	if rec.HasMargins() {
		pred, actual := *rec.PredictedMargin, *rec.ActualMargin
		if math.Abs(pred) > cfg.DirectionReversalMargin &&
			math.Abs(actual) > cfg.DirectionReversalMargin &&
			math.Signbit(pred) != math.Signbit(actual) {
			return models.PatternDirectionReversal
		}
		if math.Abs(pred-actual) > cfg.LargeMarginError {
			return models.PatternLargeMargin
		}
	}
	if rec.Confidence >= cfg.UncertainConfidenceLow && rec.Confidence <= cfg.UncertainConfidenceHigh {
		return models.PatternUncertain
	}
	return models.PatternGeneral
}

func (d *TriggerDetector) patternRepetition(window []models.PredictionOutcomeRecord) (models.TriggerEvidence, float64, bool) {
	distribution := make(map[models.ErrorPattern]int)
	for _, rec := range window {
		if !rec.WasCorrect {
			distribution[classify(d.cfg, rec)]++
		}
	}

	var top models.ErrorPattern
	count := 0
	for _, p := range models.ErrorPatterns {
		if distribution[p] > count {
			top, count = p, distribution[p]
		}
	}
	if count < d.cfg.PatternMinCount {
		return nil, 0, false
	}

	severity := math.Min(1, float64(count)/6)
	return models.PatternRepetitionEvidence{Pattern: top, Count: count, Distribution: distribution}, severity, true
}

func (d *TriggerDetector) performanceDecline(window []models.PredictionOutcomeRecord) (models.TriggerEvidence, float64, bool) {
	if len(window) < d.cfg.DeclineMinSamples {
		return nil, 0, false
	}

	mid := len(window) / 2
	first := models.Accuracy(window[:mid])
	second := models.Accuracy(window[mid:])
	decline := first - second
	if decline < d.cfg.DeclineThreshold {
		return nil, 0, false
	}

	severity := math.Min(1, decline/0.3)
	return models.PerformanceDeclineEvidence{
		FirstHalfAccuracy:  first,
		SecondHalfAccuracy: second,
		Decline:            decline,
		SampleSize:         len(window),
	}, severity, true
}

func describe(evidence models.TriggerEvidence) string {
	switch e := evidence.(type) {
	case models.ConsecutiveIncorrectEvidence:
		return fmt.Sprintf("%d consecutive incorrect predictions", e.RunLength)
	case models.ConfidenceMisalignmentEvidence:
		return fmt.Sprintf("%d high-confidence misses (mean gap %.3f)", e.Count, e.MeanGap)
	case models.PatternRepetitionEvidence:
		return fmt.Sprintf("repeated %s (%d occurrences)", e.Pattern, e.Count)
	case models.PerformanceDeclineEvidence:
		return fmt.Sprintf("accuracy fell from %.2f to %.2f", e.FirstHalfAccuracy, e.SecondHalfAccuracy)
	default:
		return ""
	}
}
