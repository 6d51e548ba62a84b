package calibration

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/expert-revision/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// MockAuditSink is a mock implementation of AuditSink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Append(update *models.LearningUpdate) error {
	args := m.Called(update)
	return args.Error(0)
}

func binaryPrediction(category string, confidence float64) models.Prediction {
	return models.Prediction{Category: category, Type: models.PredictionTypeBinary, Value: "home", Confidence: confidence}
}

func graded(exact bool, score float64) models.GradingResult {
	actual := "away"
	if exact {
		actual = "home"
	}
	return models.GradingResult{ActualValue: actual, ExactMatch: exact, FinalScore: score}
}
