package service

import (
	"github.com/yourusername/expert-revision/internal/calibration"
	"github.com/yourusername/expert-revision/internal/config"
	"github.com/yourusername/expert-revision/internal/models"
	"github.com/yourusername/expert-revision/internal/revision"
)

// LearningParameters returns the global learning rates, falling back to the
// calibration defaults for unset values
func LearningParameters(cfg config.LearningConfig) models.LearningParameters {
	params := calibration.DefaultLearningParameters()
	if cfg.BetaLearningRate > 0 {
		params.BetaLearningRate = cfg.BetaLearningRate
	}
	if cfg.EMAAlpha > 0 {
		params.EMAAlpha = cfg.EMAAlpha
	}
	if cfg.FactorAdjustmentRate > 0 {
		params.FactorAdjustmentRate = cfg.FactorAdjustmentRate
	}
	return params
}

// Personas returns the configured persona table, or the built-in one when
// none is configured
func Personas(cfg config.LearningConfig) []calibration.Persona {
	if len(cfg.Personas) == 0 {
		return calibration.DefaultPersonas()
	}
	out := make([]calibration.Persona, 0, len(cfg.Personas))
	for _, p := range cfg.Personas {
		out = append(out, calibration.Persona{
			Key: p.Key,
			Override: calibration.PersonaOverride{
				BetaLearningRate:     p.BetaLearningRate,
				EMAAlpha:             p.EMAAlpha,
				FactorAdjustmentRate: p.FactorAdjustmentRate,
			},
		})
	}
	return out
}

// FactorPriors overlays configured priors on the defaults
func FactorPriors(cfg config.LearningConfig) map[models.Factor]float64 {
	priors := models.DefaultFactorPriors()
	for name, weight := range cfg.FactorPriors {
		if weight > 0 {
			priors[models.Factor(name)] = weight
		}
	}
	return priors
}

// DetectorConfig maps revision settings onto detector thresholds. Margin
// and pattern thresholds keep their defaults.
func DetectorConfig(cfg config.RevisionConfig) revision.DetectorConfig {
	out := revision.DefaultDetectorConfig()
	out.WindowSize = cfg.WindowSize
	out.MinSamples = cfg.MinSamples
	out.ConsecutiveRunThreshold = cfg.ConsecutiveRunThreshold
	out.HighConfidence = cfg.HighConfidence
	out.MisalignmentMinCount = cfg.MisalignmentMinCount
	out.MisalignmentGap = cfg.MisalignmentGap
	out.PatternMinCount = cfg.PatternMinCount
	out.DeclineMinSamples = cfg.DeclineMinSamples
	out.DeclineThreshold = cfg.DeclineThreshold
	return out
}
