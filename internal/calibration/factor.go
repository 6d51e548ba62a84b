package calibration

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/expert-revision/internal/models"
)

// DefaultMaxChange bounds a single multiplicative factor adjustment.
const DefaultMaxChange = 0.2

// factorKeywords is checked in order; the first factor with a keyword
// contained in the category wins.
var factorKeywords = []struct {
	factor   models.Factor
	keywords []string
}{
	{models.FactorMomentum, []string{"momentum"}},
	{models.FactorOffensiveEfficiency, []string{"offensive", "offense"}},
	{models.FactorDefensive, []string{"defensive", "defense"}},
	{models.FactorWeather, []string{"weather"}},
	{models.FactorHomeField, []string{"home"}},
	{models.FactorInjury, []string{"injury", "injured"}},
}

// MatchFactor maps a free-text category to the factor it adjusts.
func MatchFactor(category string) (models.Factor, bool) {
	lower := strings.ToLower(category)
	for _, fk := range factorKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(lower, kw) {
				return fk.factor, true
			}
		}
	}
	return "", false
}

// Multiplier converts a grading score into a bounded weight multiplier.
func Multiplier(gradingScore, adjustmentRate, maxChange float64) float64 {
	m := 1 + (gradingScore-0.5)*adjustmentRate
	return math.Max(1-maxChange, math.Min(1+maxChange, m))
}

// FactorUpdater nudges an expert's factor weights by grading score.
type FactorUpdater struct {
	store     *StateStore
	maxChange float64
}

// NewFactorUpdater creates a factor updater. A non-positive maxChange selects
// DefaultMaxChange.
func NewFactorUpdater(store *StateStore, maxChange float64) *FactorUpdater {
	if maxChange <= 0 {
		maxChange = DefaultMaxChange
	}
	return &FactorUpdater{store: store, maxChange: maxChange}
}

// Update multiplies the matched factor's weight. It reports false, with no
// state change, when the category names no factor.
func (u *FactorUpdater) Update(expertID, gameID string, pred models.Prediction, grade models.GradingResult, params models.LearningParameters) (*models.LearningUpdate, bool) {
	factor, ok := MatchFactor(pred.Category)
	if !ok {
		return nil, false
	}

	start := time.Now()
	multiplier := Multiplier(grade.FinalScore, params.FactorAdjustmentRate, u.maxChange)

	var before, after models.FactorSnapshot
	_ = u.store.WithFactors(expertID, func(vec *models.FactorWeightVector) error {
		before = models.FactorSnapshot{
			Factor:      factor,
			Weight:      vec.Weights[factor],
			Multiplier:  1,
			UpdateCount: vec.UpdateCount,
		}

		vec.Weights[factor] *= multiplier
		vec.UpdateCount++
		vec.LastUpdated = time.Now().UTC()

		after = models.FactorSnapshot{
			Factor:      factor,
			Weight:      vec.Weights[factor],
			Multiplier:  multiplier,
			UpdateCount: vec.UpdateCount,
		}
		return nil
	})

	return &models.LearningUpdate{
		UpdateID:       uuid.New(),
		ExpertID:       expertID,
		GameID:         gameID,
		Category:       pred.Category,
		LearningType:   models.LearningTypeFactorUpdate,
		StateBefore:    before,
		StateAfter:     after,
		ObservedValue:  grade.ActualValue,
		PredictedValue: pred.Value,
		Confidence:     pred.Confidence,
		GradingScore:   grade.FinalScore,
		ProcessingTime: time.Since(start),
		Parameters:     params,
		CreatedAt:      time.Now().UTC(),
	}, true
}
