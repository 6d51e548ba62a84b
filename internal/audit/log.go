// Package audit keeps the queryable trail of learning updates and belief
// revisions produced by the engine.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/models"
)

// Sink mirrors appended learning updates to durable storage.
type Sink interface {
	SaveLearningUpdate(ctx context.Context, update *models.LearningUpdate) error
}

// Filter selects learning updates. Zero-valued fields match everything.
type Filter struct {
	ExpertID     string
	GameID       string
	LearningType *models.LearningType
	Limit        int
}

func (f Filter) matches(u *models.LearningUpdate) bool {
	if f.ExpertID != "" && u.ExpertID != f.ExpertID {
		return false
	}
	if f.GameID != "" && u.GameID != f.GameID {
		return false
	}
	if f.LearningType != nil && u.LearningType != *f.LearningType {
		return false
	}
	return true
}

// Log is an append-only, bounded record of learning updates and revisions.
// When capacity is exceeded the oldest entries are evicted.
type Log struct {
	mu        sync.RWMutex
	updates   []*models.LearningUpdate
	seen      map[uuid.UUID]struct{}
	revisions []*models.BeliefRevisionRecord
	capacity  int
	sink      Sink
	timeout   time.Duration
	logger    *logrus.Logger
}

// Option configures a Log
type Option func(*Log)

// WithSink mirrors every appended update to sink. Sink failures are logged
// and never fail the append.
func WithSink(sink Sink, timeout time.Duration) Option {
	return func(l *Log) {
		l.sink = sink
		l.timeout = timeout
	}
}

// NewLog creates an audit log holding at most capacity updates and capacity
// revisions. A non-positive capacity means unbounded.
func NewLog(capacity int, logger *logrus.Logger, opts ...Option) *Log {
	l := &Log{
		seen:     make(map[uuid.UUID]struct{}),
		capacity: capacity,
		timeout:  5 * time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a learning update. Appending the same update_id twice
// returns models.ErrDuplicateKey.
func (l *Log) Append(update *models.LearningUpdate) error {
	if update == nil {
		return fmt.Errorf("audit: nil learning update")
	}

	l.mu.Lock()
	if _, dup := l.seen[update.UpdateID]; dup {
		l.mu.Unlock()
		return fmt.Errorf("learning update %s: %w", update.UpdateID, models.ErrDuplicateKey)
	}
	l.seen[update.UpdateID] = struct{}{}
	l.updates = append(l.updates, update)
	if l.capacity > 0 && len(l.updates) > l.capacity {
		evicted := l.updates[0]
		delete(l.seen, evicted.UpdateID)
		l.updates[0] = nil
		l.updates = l.updates[1:]
	}
	sink, timeout := l.sink, l.timeout
	l.mu.Unlock()

	if sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := sink.SaveLearningUpdate(ctx, update); err != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"update_id": update.UpdateID,
				"expert_id": update.ExpertID,
			}).Warn("Failed to persist learning update")
		}
	}
	return nil
}

// Query returns matching updates, newest first.
func (l *Log) Query(filter Filter) []*models.LearningUpdate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*models.LearningUpdate
	for i := len(l.updates) - 1; i >= 0; i-- {
		u := l.updates[i]
		if !filter.matches(u) {
			continue
		}
		out = append(out, u)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// Len returns the number of retained learning updates
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.updates)
}

// AppendRevision records a copy of a belief revision.
func (l *Log) AppendRevision(record *models.BeliefRevisionRecord) {
	if record == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.revisions = append(l.revisions, record.Clone())
	if l.capacity > 0 && len(l.revisions) > l.capacity {
		l.revisions[0] = nil
		l.revisions = l.revisions[1:]
	}
}

// Revisions returns copies of an expert's recorded revisions, newest first.
// An empty expertID matches every expert.
func (l *Log) Revisions(expertID string, limit int) []*models.BeliefRevisionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*models.BeliefRevisionRecord
	for i := len(l.revisions) - 1; i >= 0; i-- {
		r := l.revisions[i]
		if expertID != "" && r.ExpertID != expertID {
			continue
		}
		out = append(out, r.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
