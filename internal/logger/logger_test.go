package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func parseLogLines(buf *bytes.Buffer) []map[string]interface{} {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if json.Unmarshal([]byte(line), &entry) == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	log := NewLogger("debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, isJSON := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	log = NewLogger("not-a-level", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestAuditLoggerLearningSession(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	session := &models.LearningSession{
		SessionID:      uuid.New(),
		ExpertID:       "analyst_1",
		GameID:         "game-42",
		BetaUpdates:    1,
		EMAUpdates:     1,
		FactorUpdates:  2,
		Failed:         1,
		ProcessingTime: 1500 * time.Microsecond,
	}
	auditLogger.LogLearningSession(session)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "analyst_1", logEntry["expert_id"])
	assert.Equal(t, float64(2), logEntry["factor_updates"])
	assert.Equal(t, 1.5, logEntry["processing_time_ms"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestAuditLoggerRevision(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	record := &models.BeliefRevisionRecord{
		RevisionID: uuid.New(),
		ExpertID:   "analyst_1",
		Trigger:    models.RevisionTrigger{Type: models.TriggerConsecutiveIncorrect, Severity: 0.4},
		Actions: []models.RevisionActionPlan{
			{Action: models.ActionAdjustConfidenceThreshold, Priority: 5},
		},
	}
	auditLogger.LogRevision(record, false)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, record.RevisionID.String(), logEntry["revision_id"])
	assert.Equal(t, "consecutive_incorrect", logEntry["trigger_type"])
	assert.Equal(t, []interface{}{"adjust_confidence_threshold"}, logEntry["actions"])
	assert.Equal(t, false, logEntry["stored"])
}

func TestAuditLoggerEffectivenessAndFailure(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogEffectiveness("rev-1", "analyst_1", 0.5, true)
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, 0.5, logEntry["effectiveness_score"])

	buf.Reset()
	auditLogger.LogPersistenceFailure("store_revision", "rev-1", errors.New("connection refused"))
	logEntry = parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "connection refused", logEntry["error"])
	assert.Equal(t, "store_revision", logEntry["operation"])
}

func TestRevisionLoggerTriggers(t *testing.T) {
	log, buf := setupTestLogger()
	revisionLogger := NewRevisionLogger(log)

	revisionLogger.LogTriggers("analyst_1", 10, []models.RevisionTrigger{
		{Type: models.TriggerConsecutiveIncorrect, Severity: 0.4},
		{Type: models.TriggerPerformanceDecline, Severity: 0.6},
	})

	entries := parseLogLines(buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "revision", entries[0]["component"])
	assert.Equal(t, "consecutive_incorrect", entries[0]["trigger_type"])
	assert.Equal(t, "performance_decline", entries[1]["trigger_type"])

	buf.Reset()
	revisionLogger.LogTriggers("analyst_1", 2, nil)
	entries = parseLogLines(buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
}

func TestRevisionLoggerActionPlan(t *testing.T) {
	log, buf := setupTestLogger()
	revisionLogger := NewRevisionLogger(log)

	revisionLogger.LogActionPlan("analyst_1", models.RevisionActionPlan{
		Action:      models.ActionUpdateStrategy,
		Priority:    3,
		TriggerType: models.TriggerPerformanceDecline,
		Parameters:  map[string]interface{}{models.ParamStrategyShift: "conservative"},
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "update_strategy", logEntry["action"])
	assert.Equal(t, float64(3), logEntry["priority"])
	params, ok := logEntry["parameters"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "conservative", params["strategy_shift"])
}
