package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/service"
)

// MockSweeper is a mock implementation of Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepEffectiveness(ctx context.Context) (*service.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepReport), args.Error(1)
}

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger, &buf
}

func TestScheduleEffectivenessSweep(t *testing.T) {
	logger, _ := setupTestLogger()
	s := NewScheduler(&MockSweeper{}, logger)

	require.NoError(t, s.ScheduleEffectivenessSweep("*/15 * * * *"))
	assert.Len(t, s.Entries(), 1)

	err := s.ScheduleEffectivenessSweep("not a cron")
	assert.Error(t, err)
	assert.Len(t, s.Entries(), 1)
}

func TestStartRequiresJobs(t *testing.T) {
	logger, _ := setupTestLogger()
	s := NewScheduler(&MockSweeper{}, logger)

	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestStartStop(t *testing.T) {
	logger, _ := setupTestLogger()
	s := NewScheduler(&MockSweeper{}, logger)
	require.NoError(t, s.ScheduleEffectivenessSweep("0 * * * *"))

	assert.True(t, s.GetNextRun().IsZero())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 0, next.Minute())

	assert.Error(t, s.ScheduleEffectivenessSweep("*/5 * * * *"))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())
}

func TestRunSweepLogsReport(t *testing.T) {
	logger, buf := setupTestLogger()
	sweeper := &MockSweeper{}
	report := service.NewSweepReport()
	report.RecordMeasured()
	report.RecordNotReady()
	report.Finish()
	sweeper.On("SweepEffectiveness", mock.Anything).Return(report, nil).Once()

	s := NewScheduler(sweeper, logger)
	s.runSweep()

	sweeper.AssertExpectations(t)
	assert.Contains(t, buf.String(), "Effectiveness sweep completed")
	assert.Contains(t, buf.String(), `"measured":1`)
	assert.Contains(t, buf.String(), `"not_ready":1`)
}

func TestRunSweepLogsFailure(t *testing.T) {
	logger, buf := setupTestLogger()
	sweeper := &MockSweeper{}
	sweeper.On("SweepEffectiveness", mock.Anything).Return(nil, errors.New("database unavailable")).Once()

	s := NewScheduler(sweeper, logger)
	s.runSweep()

	sweeper.AssertExpectations(t)
	assert.Contains(t, buf.String(), "Effectiveness sweep failed")
	assert.Contains(t, buf.String(), "database unavailable")
}

func TestRunSweepHasDeadline(t *testing.T) {
	logger, _ := setupTestLogger()
	sweeper := &MockSweeper{}
	sweeper.On("SweepEffectiveness", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) > time.Minute
	})).Return(service.NewSweepReport(), nil).Once()

	NewScheduler(sweeper, logger).runSweep()

	sweeper.AssertExpectations(t)
}
