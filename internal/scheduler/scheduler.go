package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/service"
)

// Sweeper measures pending revision effectiveness
type Sweeper interface {
	SweepEffectiveness(ctx context.Context) (*service.SweepReport, error)
}

// Scheduler manages scheduled effectiveness sweeps
type Scheduler struct {
	cron            *cron.Cron
	sweeper         Sweeper
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	sweepTimeout    time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(sweeper Sweeper, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		sweeper:         sweeper,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		sweepTimeout:    5 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleEffectivenessSweep schedules the sweep on a standard cron
// expression
func (s *Scheduler) ScheduleEffectivenessSweep(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled effectiveness sweep")

	return nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.sweepTimeout)
	defer cancel()

	report, err := s.sweeper.SweepEffectiveness(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Effectiveness sweep failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"examined":         report.Examined,
		"measured":         report.Measured,
		"not_ready":        report.NotReady,
		"already_measured": report.AlreadyMeasured,
		"errors":           report.Errors,
		"duration_ms":      report.Duration.Milliseconds(),
	}).Info("Effectiveness sweep completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs to finish, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %v", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
