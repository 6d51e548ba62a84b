package calibration

import (
	"strings"

	"github.com/yourusername/expert-revision/internal/models"
)

// Global learning-rate defaults used when no persona overrides a value.
const (
	DefaultBetaLearningRate     = 0.1
	DefaultEMAAlpha             = 0.1
	DefaultFactorAdjustmentRate = 0.05
)

// DefaultLearningParameters returns the global defaults
func DefaultLearningParameters() models.LearningParameters {
	return models.LearningParameters{
		BetaLearningRate:     DefaultBetaLearningRate,
		EMAAlpha:             DefaultEMAAlpha,
		FactorAdjustmentRate: DefaultFactorAdjustmentRate,
	}
}

// PersonaOverride replaces individual learning parameters; nil fields keep
// the default.
type PersonaOverride struct {
	BetaLearningRate     *float64 `mapstructure:"beta_learning_rate"`
	EMAAlpha             *float64 `mapstructure:"ema_alpha"`
	FactorAdjustmentRate *float64 `mapstructure:"factor_adjustment_rate"`
}

// Persona is a named behavioural profile matched against expert IDs.
type Persona struct {
	Key      string
	Override PersonaOverride
}

func rate(v float64) *float64 { return &v }

// DefaultPersonas returns the built-in persona table in match order.
func DefaultPersonas() []Persona {
	return []Persona{
		{Key: "conservative", Override: PersonaOverride{
			BetaLearningRate:     rate(0.05),
			EMAAlpha:             rate(0.05),
			FactorAdjustmentRate: rate(0.02),
		}},
		{Key: "momentum", Override: PersonaOverride{
			EMAAlpha:             rate(0.2),
			FactorAdjustmentRate: rate(0.08),
		}},
		{Key: "contrarian", Override: PersonaOverride{
			BetaLearningRate:     rate(0.15),
			FactorAdjustmentRate: rate(0.07),
		}},
		{Key: "value", Override: PersonaOverride{
			BetaLearningRate: rate(0.08),
			EMAAlpha:         rate(0.08),
		}},
	}
}

// PersonaResolver maps expert IDs to learning parameters. It is read-only
// after construction and safe for concurrent use.
type PersonaResolver struct {
	defaults models.LearningParameters
	personas []Persona
}

// NewPersonaResolver creates a resolver. Personas are matched in slice order.
func NewPersonaResolver(defaults models.LearningParameters, personas []Persona) *PersonaResolver {
	table := make([]Persona, len(personas))
	copy(table, personas)
	return &PersonaResolver{defaults: defaults, personas: table}
}

// Match returns the first persona whose key contains, or is contained in, the
// lower-cased expert ID.
func (r *PersonaResolver) Match(expertID string) (Persona, bool) {
	id := strings.ToLower(strings.TrimSpace(expertID))
	if id == "" {
		return Persona{}, false
	}
	for _, p := range r.personas {
		key := strings.ToLower(p.Key)
		if key == "" {
			continue
		}
		if strings.Contains(id, key) || strings.Contains(key, id) {
			return p, true
		}
	}
	return Persona{}, false
}

// Resolve returns the parameters in force for expertID.
func (r *PersonaResolver) Resolve(expertID string) models.LearningParameters {
	params := r.defaults
	p, ok := r.Match(expertID)
	if !ok {
		return params
	}
	if p.Override.BetaLearningRate != nil {
		params.BetaLearningRate = *p.Override.BetaLearningRate
	}
	if p.Override.EMAAlpha != nil {
		params.EMAAlpha = *p.Override.EMAAlpha
	}
	if p.Override.FactorAdjustmentRate != nil {
		params.FactorAdjustmentRate = *p.Override.FactorAdjustmentRate
	}
	return params
}
