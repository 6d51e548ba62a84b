package repository

import (
	"fmt"

	"github.com/yourusername/expert-revision/internal/config"
	"github.com/yourusername/expert-revision/internal/database"
)

// Repositories holds all repository implementations.
// LearningUpdates is nil for the memory backend, where the in-process
// audit log is the only learning update store.
type Repositories struct {
	Revisions       RevisionRepository
	LearningUpdates LearningUpdateRepository
	Outcomes        OutcomeRepository
}

// NewRepositories creates the PostgreSQL repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Revisions:       NewPostgresRevisionRepository(db),
		LearningUpdates: NewPostgresLearningUpdateRepository(db),
		Outcomes:        NewPostgresOutcomeRepository(db),
	}, nil
}

// NewMemoryRepositories creates the in-memory repository implementations
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Revisions: NewMemoryRevisionRepository(),
		Outcomes:  NewMemoryOutcomeRepository(),
	}
}

// Throttled wraps the write paths with the configured rate limit
func (r *Repositories) Throttled(cfg config.PersistenceConfig) *Repositories {
	out := &Repositories{
		Revisions: NewThrottledRevisionRepository(r.Revisions, cfg.WritesPerSecond, cfg.Burst),
	}
	if r.LearningUpdates != nil {
		out.LearningUpdates = NewThrottledLearningUpdateRepository(r.LearningUpdates, cfg.WritesPerSecond, cfg.Burst)
	}
	if r.Outcomes != nil {
		out.Outcomes = NewThrottledOutcomeRepository(r.Outcomes, cfg.WritesPerSecond, cfg.Burst)
	}
	return out
}
