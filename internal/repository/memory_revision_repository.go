package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/expert-revision/internal/models"
)

// MemoryRevisionRepository implements RevisionRepository in process memory.
// Records never expire.
type MemoryRevisionRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

// NewMemoryRevisionRepository creates a new in-memory revision repository
func NewMemoryRevisionRepository() *MemoryRevisionRepository {
	return &MemoryRevisionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Store saves a copy of record. A record whose ID is already stored is left
// unchanged.
func (r *MemoryRevisionRepository) Store(ctx context.Context, record *models.BeliefRevisionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Add fails only when the key exists, which is the idempotent case.
	_ = r.cache.Add(record.RevisionID.String(), record.Clone(), cache.NoExpiration)
	return nil
}

// Retrieve returns an expert's revisions, newest first
func (r *MemoryRevisionRepository) Retrieve(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := r.filter(func(rec *models.BeliefRevisionRecord) bool {
		return rec.ExpertID == expertID
	})
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return truncate(records, limit), nil
}

// GetByID retrieves a revision by ID
func (r *MemoryRevisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BeliefRevisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, found := r.cache.Get(id.String())
	if !found {
		return nil, models.ErrNotFound
	}
	return item.(*models.BeliefRevisionRecord).Clone(), nil
}

// UpdateEffectiveness records the effectiveness score once
func (r *MemoryRevisionRepository) UpdateEffectiveness(ctx context.Context, id uuid.UUID, score float64, measuredAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, found := r.cache.Get(id.String())
	if !found {
		return models.ErrNotFound
	}
	current := item.(*models.BeliefRevisionRecord)
	if current.IsMeasured() {
		return models.ErrEffectivenessAlreadyRecorded
	}

	updated := current.Clone()
	updated.EffectivenessScore = &score
	measuredAt = measuredAt.UTC()
	updated.EffectivenessMeasuredAt = &measuredAt
	r.cache.Set(id.String(), updated, cache.NoExpiration)
	return nil
}

// GetUnmeasured returns revisions created before createdBefore that have no
// effectiveness score, oldest first
func (r *MemoryRevisionRepository) GetUnmeasured(ctx context.Context, createdBefore time.Time, limit int) ([]*models.BeliefRevisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := r.filter(func(rec *models.BeliefRevisionRecord) bool {
		return !rec.IsMeasured() && !rec.Timestamp.After(createdBefore)
	})
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return truncate(records, limit), nil
}

// Count returns the number of stored revisions
func (r *MemoryRevisionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *MemoryRevisionRepository) filter(keep func(*models.BeliefRevisionRecord) bool) []*models.BeliefRevisionRecord {
	var out []*models.BeliefRevisionRecord
	for _, item := range r.cache.Items() {
		rec := item.Object.(*models.BeliefRevisionRecord)
		if keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func truncate(records []*models.BeliefRevisionRecord, limit int) []*models.BeliefRevisionRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
