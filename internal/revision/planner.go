package revision

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/expert-revision/internal/models"
)

const (
	maxMultiplierReduction  = 0.3
	reductionPerMiss        = 0.05
	minConfidenceMultiplier = 0.5
	thresholdStep           = 0.1
	maxConfidenceThreshold  = 0.85
	confidencePenalty       = 0.15
)

// impactWeight scales trigger severity into expected impact.
var impactWeight = map[models.TriggerType]float64{
	models.TriggerConsecutiveIncorrect:   0.7,
	models.TriggerConfidenceMisalignment: 0.6,
	models.TriggerPatternRepetition:      0.8,
	models.TriggerPerformanceDecline:     0.7,
}

// patternWeightAdjustments maps an error pattern to the factor weight deltas
// recommended for it. Patterns without an entry get no adjustment.
var patternWeightAdjustments = map[models.ErrorPattern]map[string]float64{
	models.PatternOverconfident: {
		"historical_performance": 0.15,
		"gut_instinct":           -0.15,
		"recent_form":            0.10,
	},
	models.PatternDirectionReversal: {
		"momentum":         -0.10,
		"matchup_analysis": 0.15,
		"home_field":       0.05,
	},
	models.PatternLargeMargin: {
		"offensive_efficiency": -0.10,
		"defensive":            0.10,
		"variance_awareness":   0.10,
	},
	models.PatternGeneral: {
		"historical_performance": 0.05,
		"recent_form":            0.05,
		"market_signals":         0.05,
	},
}

// WeightAdjustments returns a copy of the factor deltas for pattern.
func WeightAdjustments(pattern models.ErrorPattern) map[string]float64 {
	out := make(map[string]float64)
	for k, v := range patternWeightAdjustments[pattern] {
		out[k] = v
	}
	return out
}

// ActionPlanner turns triggers into corrective action plans. It is pure and
// safe for concurrent use.
type ActionPlanner struct{}

// NewActionPlanner creates a new action planner
func NewActionPlanner() *ActionPlanner {
	return &ActionPlanner{}
}

// GenerateActions returns one plan per trigger sorted by priority, highest
// first. Plans of equal priority keep the order of their triggers.
func (p *ActionPlanner) GenerateActions(triggers []models.RevisionTrigger, state models.CurrentExpertState) ([]models.RevisionActionPlan, error) {
	plans := make([]models.RevisionActionPlan, 0, len(triggers))
	for _, trigger := range triggers {
		plan, err := p.plan(trigger, state)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Priority > plans[j].Priority
	})
	return plans, nil
}

func (p *ActionPlanner) plan(trigger models.RevisionTrigger, state models.CurrentExpertState) (models.RevisionActionPlan, error) {
	plan := models.RevisionActionPlan{
		TriggerType:    trigger.Type,
		ExpectedImpact: math.Max(0, math.Min(1, trigger.Severity*impactWeight[trigger.Type])),
	}

	switch trigger.Type {
	case models.TriggerConsecutiveIncorrect:
		run := runLength(trigger)
		current := state.Multiplier()
		reduction := math.Min(maxMultiplierReduction, float64(run)*reductionPerMiss)
		next := math.Max(minConfidenceMultiplier, current-reduction)
		plan.Action = models.ActionAdjustConfidenceThreshold
		plan.Priority = 5
		plan.Parameters = map[string]interface{}{
			models.ParamConfidenceMultiplier: next,
			models.ParamPreviousMultiplier:   current,
			models.ParamMultiplierReduction:  reduction,
		}
		plan.Rationale = fmt.Sprintf("%d consecutive misses: scale confidence from %.2f to %.2f", run, current, next)

	case models.TriggerConfidenceMisalignment:
		current := state.Threshold()
		next := math.Min(maxConfidenceThreshold, current+thresholdStep)
		plan.Action = models.ActionAdjustConfidenceThreshold
		plan.Priority = 4
		plan.Parameters = map[string]interface{}{
			models.ParamHighConfidenceThreshold: next,
			models.ParamPreviousThreshold:       current,
			models.ParamConfidencePenalty:       confidencePenalty,
		}
		plan.Rationale = fmt.Sprintf("high-confidence predictions keep missing: raise threshold from %.2f to %.2f", current, next)

	case models.TriggerPatternRepetition:
		pattern := models.PatternGeneral
		if e, ok := trigger.Evidence.(models.PatternRepetitionEvidence); ok {
			pattern = e.Pattern
		}
		plan.Action = models.ActionChangeFactorWeights
		plan.Priority = 5
		plan.Parameters = map[string]interface{}{
			models.ParamErrorPattern:      string(pattern),
			models.ParamWeightAdjustments: WeightAdjustments(pattern),
		}
		plan.Rationale = fmt.Sprintf("recurring %s: rebalance factor weights", pattern)

	case models.TriggerPerformanceDecline:
		plan.Action = models.ActionUpdateStrategy
		plan.Priority = 3
		plan.Parameters = map[string]interface{}{
			models.ParamStrategyShift: "conservative",
			models.ParamAnalysisDepth: "increased",
		}
		plan.Rationale = "accuracy declining across the window: shift to a conservative strategy"

	default:
		return models.RevisionActionPlan{}, fmt.Errorf("%w: %d", models.ErrUnknownTriggerType, int(trigger.Type))
	}
	return plan, nil
}

// runLength reads the run from the evidence, falling back to inverting the
// severity formula when evidence is absent.
func runLength(trigger models.RevisionTrigger) int {
	if e, ok := trigger.Evidence.(models.ConsecutiveIncorrectEvidence); ok {
		return e.RunLength
	}
	return int(math.Round(trigger.Severity*5)) + 2
}

// ApplyPlans projects the expert state that results from adopting plans in
// order. The input state is not modified.
func ApplyPlans(state models.CurrentExpertState, plans []models.RevisionActionPlan) models.CurrentExpertState {
	next := models.CurrentExpertState{Strategy: state.Strategy, AnalysisDepth: state.AnalysisDepth}
	multiplier, threshold := state.Multiplier(), state.Threshold()
	next.ConfidenceMultiplier = &multiplier
	next.HighConfidenceThreshold = &threshold

	for _, plan := range plans {
		switch plan.Action {
		case models.ActionAdjustConfidenceThreshold:
			if v, ok := plan.Parameters[models.ParamConfidenceMultiplier].(float64); ok {
				multiplier = math.Min(multiplier, v)
			}
			if v, ok := plan.Parameters[models.ParamHighConfidenceThreshold].(float64); ok {
				threshold = math.Max(threshold, v)
			}
		case models.ActionUpdateStrategy:
			if v, ok := plan.Parameters[models.ParamStrategyShift].(string); ok {
				next.Strategy = v
			}
			if v, ok := plan.Parameters[models.ParamAnalysisDepth].(string); ok {
				next.AnalysisDepth = v
			}
		case models.ActionChangeFactorWeights, models.ActionIncreaseCaution, models.ActionBroadenAnalysis:
			// no effect on confidence or strategy settings
		}
	}
	return next
}
