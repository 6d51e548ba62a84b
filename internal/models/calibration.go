package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Beta prior pseudo-counts for a fresh calibration state.
const (
	BetaPriorAlpha = 1.0
	BetaPriorBeta  = 1.0
)

// EMA starting estimates for a fresh numeric calibration state.
const (
	EMAInitialMu    = 0.0
	EMAInitialSigma = 1.0
)

// StateKey identifies per-category calibration state of one expert.
type StateKey struct {
	ExpertID string
	Category string
}

// String returns string representation of the key
func (k StateKey) String() string {
	return k.ExpertID + "/" + k.Category
}

// BetaCalibrationState models an expert's long-run correctness rate for a
// binary or enum category.
type BetaCalibrationState struct {
	ExpertID           string    `json:"expert_id"`
	Category           string    `json:"category"`
	Alpha              float64   `json:"alpha"`
	Beta               float64   `json:"beta"`
	TotalPredictions   int       `json:"total_predictions"`
	CorrectPredictions int       `json:"correct_predictions"`
	LastUpdated        time.Time `json:"last_updated"`
}

// NewBetaCalibrationState returns a state at the uniform prior.
func NewBetaCalibrationState(key StateKey) *BetaCalibrationState {
	return &BetaCalibrationState{
		ExpertID:    key.ExpertID,
		Category:    key.Category,
		Alpha:       BetaPriorAlpha,
		Beta:        BetaPriorBeta,
		LastUpdated: time.Now().UTC(),
	}
}

func (s *BetaCalibrationState) dist() distuv.Beta {
	return distuv.Beta{Alpha: s.Alpha, Beta: s.Beta}
}

// Mean returns alpha/(alpha+beta).
func (s *BetaCalibrationState) Mean() float64 {
	return s.dist().Mean()
}

// Variance returns the variance of the Beta distribution.
func (s *BetaCalibrationState) Variance() float64 {
	return s.dist().Variance()
}

// CredibleInterval returns the central interval holding mass of the posterior.
func (s *BetaCalibrationState) CredibleInterval(mass float64) (low, high float64) {
	d := s.dist()
	tail := (1 - mass) / 2
	return d.Quantile(tail), d.Quantile(1 - tail)
}

// Snapshot captures the state as an immutable value.
func (s *BetaCalibrationState) Snapshot() BetaSnapshot {
	low, high := s.CredibleInterval(0.95)
	return BetaSnapshot{
		Alpha:              s.Alpha,
		Beta:               s.Beta,
		Mean:               s.Mean(),
		Variance:           s.Variance(),
		CredibleLow:        low,
		CredibleHigh:       high,
		TotalPredictions:   s.TotalPredictions,
		CorrectPredictions: s.CorrectPredictions,
	}
}

// EMAState is an exponentially weighted bias/spread estimate for a numeric category.
type EMAState struct {
	ExpertID         string    `json:"expert_id"`
	Category         string    `json:"category"`
	Mu               float64   `json:"mu"`
	Sigma            float64   `json:"sigma"`
	Alpha            float64   `json:"alpha"`
	TotalPredictions int       `json:"total_predictions"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewEMAState returns a fresh estimator with the given smoothing rate.
func NewEMAState(key StateKey, alpha float64) *EMAState {
	return &EMAState{
		ExpertID:    key.ExpertID,
		Category:    key.Category,
		Mu:          EMAInitialMu,
		Sigma:       EMAInitialSigma,
		Alpha:       alpha,
		LastUpdated: time.Now().UTC(),
	}
}

// Snapshot captures the state as an immutable value.
func (s *EMAState) Snapshot() EMASnapshot {
	return EMASnapshot{
		Mu:               s.Mu,
		Sigma:            s.Sigma,
		Alpha:            s.Alpha,
		TotalPredictions: s.TotalPredictions,
	}
}

// Factor names a multiplicative input signal weight.
type Factor string

const (
	FactorMomentum            Factor = "momentum"
	FactorOffensiveEfficiency Factor = "offensive_efficiency"
	FactorDefensive           Factor = "defensive"
	FactorWeather             Factor = "weather"
	FactorHomeField           Factor = "home_field"
	FactorInjury              Factor = "injury"
)

// AllFactors lists the factors in category-matching priority order.
var AllFactors = []Factor{
	FactorMomentum,
	FactorOffensiveEfficiency,
	FactorDefensive,
	FactorWeather,
	FactorHomeField,
	FactorInjury,
}

// DefaultFactorPriors returns the starting weight of every factor.
func DefaultFactorPriors() map[Factor]float64 {
	return map[Factor]float64{
		FactorMomentum:            1.1,
		FactorOffensiveEfficiency: 0.9,
		FactorDefensive:           1.0,
		FactorWeather:             1.0,
		FactorHomeField:           1.0,
		FactorInjury:              1.0,
	}
}

// FactorWeightVector holds one expert's factor weights.
type FactorWeightVector struct {
	ExpertID    string             `json:"expert_id"`
	Weights     map[Factor]float64 `json:"weights"`
	UpdateCount int                `json:"update_count"`
	LastUpdated time.Time          `json:"last_updated"`
}

// NewFactorWeightVector creates a vector seeded from priors. Factors missing
// from priors start at 1.0.
func NewFactorWeightVector(expertID string, priors map[Factor]float64) *FactorWeightVector {
	weights := make(map[Factor]float64, len(AllFactors))
	for _, f := range AllFactors {
		w, ok := priors[f]
		if !ok || w <= 0 {
			w = 1.0
		}
		weights[f] = w
	}
	return &FactorWeightVector{
		ExpertID:    expertID,
		Weights:     weights,
		LastUpdated: time.Now().UTC(),
	}
}

// Clone returns a deep copy.
func (v *FactorWeightVector) Clone() FactorWeightVector {
	out := *v
	out.Weights = make(map[Factor]float64, len(v.Weights))
	for k, w := range v.Weights {
		out.Weights[k] = w
	}
	return out
}

// StateSnapshot is an immutable capture of calibration state before or after
// an update. Implemented only by BetaSnapshot, EMASnapshot and FactorSnapshot.
type StateSnapshot interface {
	stateSnapshot()
}

// BetaSnapshot is a point-in-time view of a BetaCalibrationState.
type BetaSnapshot struct {
	Alpha              float64 `json:"alpha"`
	Beta               float64 `json:"beta"`
	Mean               float64 `json:"mean"`
	Variance           float64 `json:"variance"`
	CredibleLow        float64 `json:"credible_low"`
	CredibleHigh       float64 `json:"credible_high"`
	TotalPredictions   int     `json:"total_predictions"`
	CorrectPredictions int     `json:"correct_predictions"`
}

// EMASnapshot is a point-in-time view of an EMAState.
type EMASnapshot struct {
	Mu               float64 `json:"mu"`
	Sigma            float64 `json:"sigma"`
	Alpha            float64 `json:"alpha"`
	TotalPredictions int     `json:"total_predictions"`
}

// FactorSnapshot is a point-in-time view of one factor weight.
type FactorSnapshot struct {
	Factor      Factor  `json:"factor"`
	Weight      float64 `json:"weight"`
	Multiplier  float64 `json:"multiplier"`
	UpdateCount int     `json:"update_count"`
}

func (BetaSnapshot) stateSnapshot()   {}
func (EMASnapshot) stateSnapshot()    {}
func (FactorSnapshot) stateSnapshot() {}

// DecodeSnapshot unmarshals a persisted snapshot for the given learning type.
func DecodeSnapshot(t LearningType, raw []byte) (StateSnapshot, error) {
	switch t {
	case LearningTypeBetaCalibration:
		var s BetaSnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	case LearningTypeEMANumeric:
		var s EMASnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	case LearningTypeFactorUpdate:
		var s FactorSnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	case LearningTypeMomentumUpdate, LearningTypeOffensiveEfficiencyUpdate:
		return nil, fmt.Errorf("no snapshot defined for %s", t)
	default:
		return nil, fmt.Errorf("unknown learning type %d", int(t))
	}
}
