package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TriggerType identifies a detected behavioural failure pattern
type TriggerType int

const (
	TriggerConsecutiveIncorrect TriggerType = iota
	TriggerConfidenceMisalignment
	TriggerPatternRepetition
	TriggerPerformanceDecline
)

var triggerTypeNames = map[TriggerType]string{
	TriggerConsecutiveIncorrect:   "consecutive_incorrect",
	TriggerConfidenceMisalignment: "confidence_misalignment",
	TriggerPatternRepetition:      "pattern_repetition",
	TriggerPerformanceDecline:     "performance_decline",
}

// String returns string representation of trigger type
func (t TriggerType) String() string {
	if name, ok := triggerTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (t TriggerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TriggerType) UnmarshalText(text []byte) error {
	for tt, name := range triggerTypeNames {
		if name == string(text) {
			*t = tt
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTriggerType, string(text))
}

// ErrorPattern is the bucket an incorrect prediction is classified into
type ErrorPattern string

const (
	PatternOverconfident     ErrorPattern = "overconfident_error"
	PatternDirectionReversal ErrorPattern = "direction_reversal_error"
	PatternLargeMargin       ErrorPattern = "large_margin_error"
	PatternUncertain         ErrorPattern = "uncertain_prediction_error"
	PatternGeneral           ErrorPattern = "general_error"
)

// ErrorPatterns lists the buckets in classification order.
var ErrorPatterns = []ErrorPattern{
	PatternOverconfident,
	PatternDirectionReversal,
	PatternLargeMargin,
	PatternUncertain,
	PatternGeneral,
}

// TriggerEvidence holds the facts supporting a trigger. Each trigger type has
// exactly one evidence struct.
type TriggerEvidence interface {
	TriggerType() TriggerType
}

// ConsecutiveIncorrectEvidence supports a ConsecutiveIncorrect trigger
type ConsecutiveIncorrectEvidence struct {
	RunLength int      `json:"run_length"`
	GameIDs   []string `json:"game_ids"`
}

// ConfidenceMisalignmentEvidence supports a ConfidenceMisalignment trigger
type ConfidenceMisalignmentEvidence struct {
	Count       int       `json:"count"`
	MeanGap     float64   `json:"mean_gap"`
	Confidences []float64 `json:"confidences"`
}

// PatternRepetitionEvidence supports a PatternRepetition trigger
type PatternRepetitionEvidence struct {
	Pattern      ErrorPattern         `json:"pattern"`
	Count        int                  `json:"count"`
	Distribution map[ErrorPattern]int `json:"distribution"`
}

// PerformanceDeclineEvidence supports a PerformanceDecline trigger
type PerformanceDeclineEvidence struct {
	FirstHalfAccuracy  float64 `json:"first_half_accuracy"`
	SecondHalfAccuracy float64 `json:"second_half_accuracy"`
	Decline            float64 `json:"decline"`
	SampleSize         int     `json:"sample_size"`
}

func (ConsecutiveIncorrectEvidence) TriggerType() TriggerType   { return TriggerConsecutiveIncorrect }
func (ConfidenceMisalignmentEvidence) TriggerType() TriggerType { return TriggerConfidenceMisalignment }
func (PatternRepetitionEvidence) TriggerType() TriggerType      { return TriggerPatternRepetition }
func (PerformanceDeclineEvidence) TriggerType() TriggerType     { return TriggerPerformanceDecline }

// RevisionTrigger is a detected anomaly warranting corrective action
type RevisionTrigger struct {
	Type        TriggerType     `json:"trigger_type"`
	Severity    float64         `json:"severity"`
	Evidence    TriggerEvidence `json:"evidence"`
	ExpertID    string          `json:"expert_id"`
	Description string          `json:"description"`
	DetectedAt  time.Time       `json:"detected_at"`
}

// UnmarshalJSON decodes the evidence according to the trigger type
func (t *RevisionTrigger) UnmarshalJSON(data []byte) error {
	type plain RevisionTrigger
	aux := struct {
		*plain
		Evidence json.RawMessage `json:"evidence"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Evidence) == 0 || string(aux.Evidence) == "null" {
		t.Evidence = nil
		return nil
	}

	var err error
	switch t.Type {
	case TriggerConsecutiveIncorrect:
		var e ConsecutiveIncorrectEvidence
		err = json.Unmarshal(aux.Evidence, &e)
		t.Evidence = e
	case TriggerConfidenceMisalignment:
		var e ConfidenceMisalignmentEvidence
		err = json.Unmarshal(aux.Evidence, &e)
		t.Evidence = e
	case TriggerPatternRepetition:
		var e PatternRepetitionEvidence
		err = json.Unmarshal(aux.Evidence, &e)
		t.Evidence = e
	case TriggerPerformanceDecline:
		var e PerformanceDeclineEvidence
		err = json.Unmarshal(aux.Evidence, &e)
		t.Evidence = e
	default:
		return fmt.Errorf("%w: %d", ErrUnknownTriggerType, int(t.Type))
	}
	return err
}

// RevisionAction is a kind of corrective change to expert behaviour
type RevisionAction int

const (
	ActionAdjustConfidenceThreshold RevisionAction = iota
	ActionChangeFactorWeights
	ActionUpdateStrategy
	ActionIncreaseCaution
	ActionBroadenAnalysis
)

var revisionActionNames = map[RevisionAction]string{
	ActionAdjustConfidenceThreshold: "adjust_confidence_threshold",
	ActionChangeFactorWeights:       "change_factor_weights",
	ActionUpdateStrategy:            "update_strategy",
	ActionIncreaseCaution:           "increase_caution",
	ActionBroadenAnalysis:           "broaden_analysis",
}

// String returns string representation of revision action
func (a RevisionAction) String() string {
	if name, ok := revisionActionNames[a]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (a RevisionAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *RevisionAction) UnmarshalText(text []byte) error {
	for ra, name := range revisionActionNames {
		if name == string(text) {
			*a = ra
			return nil
		}
	}
	return fmt.Errorf("unknown revision action %q", string(text))
}

// Action parameter keys
const (
	ParamConfidenceMultiplier    = "confidence_multiplier"
	ParamPreviousMultiplier      = "previous_multiplier"
	ParamMultiplierReduction     = "reduction"
	ParamHighConfidenceThreshold = "high_confidence_threshold"
	ParamPreviousThreshold       = "previous_threshold"
	ParamConfidencePenalty       = "confidence_penalty"
	ParamWeightAdjustments       = "weight_adjustments"
	ParamErrorPattern            = "error_pattern"
	ParamStrategyShift           = "strategy_shift"
	ParamAnalysisDepth           = "analysis_depth"
)

// RevisionActionPlan is a concrete, parameterised recommendation
type RevisionActionPlan struct {
	Action         RevisionAction         `json:"action"`
	Parameters     map[string]interface{} `json:"parameters"`
	Rationale      string                 `json:"rationale"`
	ExpectedImpact float64                `json:"expected_impact"`
	Priority       int                    `json:"priority"`
	TriggerType    TriggerType            `json:"trigger_type"`
}

// Default expert state used when the host supplies no value.
const (
	DefaultConfidenceMultiplier    = 1.0
	DefaultHighConfidenceThreshold = 0.7
)

// CurrentExpertState is the mutable behaviour configuration of an expert
type CurrentExpertState struct {
	ConfidenceMultiplier    *float64 `json:"confidence_multiplier,omitempty"`
	HighConfidenceThreshold *float64 `json:"high_confidence_threshold,omitempty"`
	Strategy                string   `json:"strategy,omitempty"`
	AnalysisDepth           string   `json:"analysis_depth,omitempty"`
}

// Multiplier returns the confidence multiplier or its default
func (s CurrentExpertState) Multiplier() float64 {
	if s.ConfidenceMultiplier == nil {
		return DefaultConfidenceMultiplier
	}
	return *s.ConfidenceMultiplier
}

// Threshold returns the high-confidence threshold or its default
func (s CurrentExpertState) Threshold() float64 {
	if s.HighConfidenceThreshold == nil {
		return DefaultHighConfidenceThreshold
	}
	return *s.HighConfidenceThreshold
}

// Snapshot flattens the state into an opaque key/value map
func (s CurrentExpertState) Snapshot() map[string]interface{} {
	out := map[string]interface{}{
		ParamConfidenceMultiplier:    s.Multiplier(),
		ParamHighConfidenceThreshold: s.Threshold(),
	}
	if s.Strategy != "" {
		out[ParamStrategyShift] = s.Strategy
	}
	if s.AnalysisDepth != "" {
		out[ParamAnalysisDepth] = s.AnalysisDepth
	}
	return out
}

// BeliefRevisionRecord is the auditable result of one revision decision
type BeliefRevisionRecord struct {
	RevisionID              uuid.UUID              `json:"revision_id"`
	ExpertID                string                 `json:"expert_id"`
	Trigger                 RevisionTrigger        `json:"trigger"`
	Actions                 []RevisionActionPlan   `json:"actions"`
	PreRevisionState        map[string]interface{} `json:"pre_revision_state"`
	PostRevisionState       map[string]interface{} `json:"post_revision_state"`
	Timestamp               time.Time              `json:"timestamp"`
	EffectivenessScore      *float64               `json:"effectiveness_score,omitempty"`
	EffectivenessMeasuredAt *time.Time             `json:"effectiveness_measured_at,omitempty"`
}

// IsMeasured reports whether an effectiveness score has been recorded
func (r *BeliefRevisionRecord) IsMeasured() bool {
	return r.EffectivenessScore != nil
}

// Clone returns a copy that shares no mutable fields with r
func (r *BeliefRevisionRecord) Clone() *BeliefRevisionRecord {
	out := *r
	out.Actions = append([]RevisionActionPlan(nil), r.Actions...)
	out.PreRevisionState = cloneMap(r.PreRevisionState)
	out.PostRevisionState = cloneMap(r.PostRevisionState)
	if r.EffectivenessScore != nil {
		score := *r.EffectivenessScore
		out.EffectivenessScore = &score
	}
	if r.EffectivenessMeasuredAt != nil {
		at := *r.EffectivenessMeasuredAt
		out.EffectivenessMeasuredAt = &at
	}
	return &out
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
