package service

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/config"
	"github.com/yourusername/expert-revision/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "expert-revision", Environment: "development", LogLevel: "error"},
		Learning: config.LearningConfig{
			BetaLearningRate:     0.1,
			EMAAlpha:             0.1,
			FactorAdjustmentRate: 0.05,
			MaxChange:            0.2,
		},
		Revision: config.RevisionConfig{
			WindowSize:              10,
			MinSamples:              3,
			ConsecutiveRunThreshold: 3,
			HighConfidence:          0.7,
			MisalignmentMinCount:    2,
			MisalignmentGap:         0.25,
			PatternMinCount:         3,
			DeclineMinSamples:       6,
			DeclineThreshold:        0.15,
			EffectivenessWindow:     3,
			EffectivenessBaseline:   0.55,
		},
		Engine:      config.EngineConfig{Workers: 2, HistorySize: 50, AuditCapacity: 1000},
		Persistence: config.PersistenceConfig{Backend: "memory", TimeoutSeconds: 5},
	}
}

// game builds a one-prediction game whose history outcome is given explicitly
func game(expertID string, n int, correct bool, confidence float64) GameResult {
	score := 0.0
	actual := "away"
	if correct {
		score = 1.0
		actual = "home"
	}
	return GameResult{
		ExpertID: expertID,
		GameID:   fmt.Sprintf("%s-game-%d", expertID, n),
		Predictions: []models.Prediction{
			{Category: "winner", Type: models.PredictionTypeBinary, Value: "home", Confidence: confidence},
		},
		Gradings: []models.GradingResult{
			{ActualValue: actual, ExactMatch: correct, FinalScore: score},
		},
		Outcome: &models.PredictionOutcomeRecord{
			WasCorrect: correct,
			Confidence: confidence,
		},
		PlayedAt: time.Date(2026, 9, 6, 13, 0, 0, 0, time.UTC).Add(time.Duration(n) * 24 * time.Hour),
	}
}
