package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LearningType identifies which updater produced a LearningUpdate
type LearningType int

const (
	// LearningTypeBetaCalibration is a Beta pseudo-count update
	LearningTypeBetaCalibration LearningType = iota
	// LearningTypeEMANumeric is a numeric bias/spread update
	LearningTypeEMANumeric
	// LearningTypeFactorUpdate is a multiplicative factor weight adjustment
	LearningTypeFactorUpdate
	// LearningTypeMomentumUpdate is reserved; no updater produces it
	LearningTypeMomentumUpdate
	// LearningTypeOffensiveEfficiencyUpdate is reserved; no updater produces it
	LearningTypeOffensiveEfficiencyUpdate
)

var learningTypeNames = map[LearningType]string{
	LearningTypeBetaCalibration:           "beta_calibration",
	LearningTypeEMANumeric:                "ema_numeric",
	LearningTypeFactorUpdate:              "factor_update",
	LearningTypeMomentumUpdate:            "momentum_update",
	LearningTypeOffensiveEfficiencyUpdate: "offensive_efficiency_update",
}

// String returns string representation of learning type
func (t LearningType) String() string {
	if name, ok := learningTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (t LearningType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *LearningType) UnmarshalText(text []byte) error {
	parsed, err := ParseLearningType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseLearningType parses the text form of a learning type
func ParseLearningType(s string) (LearningType, error) {
	for t, name := range learningTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown learning type %q", s)
}

// LearningParameters are the persona-resolved rates applied by an update
type LearningParameters struct {
	BetaLearningRate     float64 `json:"beta_learning_rate" mapstructure:"beta_learning_rate"`
	EMAAlpha             float64 `json:"ema_alpha" mapstructure:"ema_alpha"`
	FactorAdjustmentRate float64 `json:"factor_adjustment_rate" mapstructure:"factor_adjustment_rate"`
}

// LearningUpdate is an immutable audit record of one calibration state transition
type LearningUpdate struct {
	UpdateID       uuid.UUID          `json:"update_id"`
	ExpertID       string             `json:"expert_id"`
	GameID         string             `json:"game_id"`
	Category       string             `json:"category"`
	LearningType   LearningType       `json:"learning_type"`
	StateBefore    StateSnapshot      `json:"state_before"`
	StateAfter     StateSnapshot      `json:"state_after"`
	ObservedValue  interface{}        `json:"observed_value"`
	PredictedValue interface{}        `json:"predicted_value"`
	Confidence     float64            `json:"confidence"`
	GradingScore   float64            `json:"grading_score"`
	ProcessingTime time.Duration      `json:"processing_time"`
	Parameters     LearningParameters `json:"parameters"`
	CreatedAt      time.Time          `json:"created_at"`
}

// LearningSession aggregates the updates produced for one expert and one game
type LearningSession struct {
	SessionID              uuid.UUID         `json:"session_id"`
	ExpertID               string            `json:"expert_id"`
	GameID                 string            `json:"game_id"`
	BetaUpdates            int               `json:"beta_updates"`
	EMAUpdates             int               `json:"ema_updates"`
	FactorUpdates          int               `json:"factor_updates"`
	Failed                 int               `json:"failed"`
	CalibrationImprovement float64           `json:"calibration_improvement"`
	AccuracyChange         float64           `json:"accuracy_change"`
	Updates                []*LearningUpdate `json:"updates"`
	StartedAt              time.Time         `json:"started_at"`
	ProcessingTime         time.Duration     `json:"processing_time"`
}

// TotalUpdates returns the number of successful updates of any type
func (s *LearningSession) TotalUpdates() int {
	return s.BetaUpdates + s.EMAUpdates + s.FactorUpdates
}
