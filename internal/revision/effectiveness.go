package revision

import (
	"math"

	"github.com/yourusername/expert-revision/internal/models"
)

// Effectiveness defaults.
const (
	DefaultEffectivenessWindow   = 5
	DefaultEffectivenessBaseline = 0.55
)

// EffectivenessTracker scores how well an expert performed after a revision
type EffectivenessTracker struct {
	window   int
	baseline float64
}

// NewEffectivenessTracker creates a tracker. Non-positive window or a
// baseline outside [0,1) select the defaults.
func NewEffectivenessTracker(window int, baseline float64) *EffectivenessTracker {
	if window <= 0 {
		window = DefaultEffectivenessWindow
	}
	if baseline <= 0 || baseline >= 1 {
		baseline = DefaultEffectivenessBaseline
	}
	return &EffectivenessTracker{window: window, baseline: baseline}
}

// Window returns the default measurement window
func (t *EffectivenessTracker) Window() int {
	return t.window
}

// Measure scores the first windowSize post-revision outcomes in [0,1].
// Fewer outcomes than windowSize return exactly 0, meaning not yet
// measurable. A non-positive windowSize uses the tracker's window.
func (t *EffectivenessTracker) Measure(outcomes []models.PredictionOutcomeRecord, windowSize int) float64 {
	if windowSize <= 0 {
		windowSize = t.window
	}
	if len(outcomes) < windowSize {
		return 0.0
	}

	accuracy := models.Accuracy(outcomes[:windowSize])
	return math.Max(0, math.Min(1, (accuracy-t.baseline)/(1-t.baseline)))
}

// Measurable reports whether enough outcomes exist for a score
func (t *EffectivenessTracker) Measurable(outcomes []models.PredictionOutcomeRecord, windowSize int) bool {
	if windowSize <= 0 {
		windowSize = t.window
	}
	return len(outcomes) >= windowSize
}
