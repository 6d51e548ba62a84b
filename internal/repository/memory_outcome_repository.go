package repository

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/expert-revision/internal/models"
)

type storedOutcome struct {
	record     models.PredictionOutcomeRecord
	appendedAt time.Time
}

// MemoryOutcomeRepository implements OutcomeRepository in process memory,
// one append-only list per expert
type MemoryOutcomeRepository struct {
	cache *cache.Cache
	mu    sync.RWMutex
}

// NewMemoryOutcomeRepository creates a new in-memory outcome repository
func NewMemoryOutcomeRepository() *MemoryOutcomeRepository {
	return &MemoryOutcomeRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// AppendOutcome adds an outcome to the expert's list
func (r *MemoryOutcomeRepository) AppendOutcome(ctx context.Context, expertID string, record models.PredictionOutcomeRecord, appendedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var list []storedOutcome
	if item, found := r.cache.Get(expertID); found {
		list = item.([]storedOutcome)
	}
	list = append(list, storedOutcome{record: record, appendedAt: appendedAt.UTC()})
	r.cache.Set(expertID, list, cache.NoExpiration)
	return nil
}

// OutcomesSince returns the outcomes appended strictly after since, oldest
// first. A non-positive limit returns all of them.
func (r *MemoryOutcomeRepository) OutcomesSince(ctx context.Context, expertID string, since time.Time, limit int) ([]models.PredictionOutcomeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, found := r.cache.Get(expertID)
	if !found {
		return nil, nil
	}

	var out []models.PredictionOutcomeRecord
	for _, o := range item.([]storedOutcome) {
		if !o.appendedAt.After(since) {
			continue
		}
		out = append(out, o.record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
