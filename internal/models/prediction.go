package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PredictionType is the kind of value an expert predicted.
type PredictionType string

const (
	PredictionTypeBinary  PredictionType = "binary"
	PredictionTypeEnum    PredictionType = "enum"
	PredictionTypeNumeric PredictionType = "numeric"
)

// IsCategorical reports whether the prediction is graded by exact match.
func (t PredictionType) IsCategorical() bool {
	return t == PredictionTypeBinary || t == PredictionTypeEnum
}

// Valid reports whether t is one of the recognised prediction types.
func (t PredictionType) Valid() bool {
	switch t {
	case PredictionTypeBinary, PredictionTypeEnum, PredictionTypeNumeric:
		return true
	default:
		return false
	}
}

// Prediction is a single expert prediction for one category of a game
type Prediction struct {
	Category   string         `json:"category"`
	Type       PredictionType `json:"pred_type"`
	Value      interface{}    `json:"value"`
	Confidence float64        `json:"confidence" validate:"gte=0,lte=1"`
}

// Gradable reports whether the prediction can be routed to a calibration
// updater.
func (p *Prediction) Gradable() bool {
	return p.Category != "" && p.Type.Valid()
}

// GradingResult is the external grader's verdict on a prediction
type GradingResult struct {
	ActualValue interface{} `json:"actual_value"`
	ExactMatch  bool        `json:"exact_match"`
	FinalScore  float64     `json:"final_score" validate:"gte=0,lte=1"`
}

// NumericValue converts a loosely typed prediction or outcome value to float64.
func NumericValue(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNonNumericValue, n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNonNumericValue, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNonNumericValue, v)
	}
}
