package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yourusername/expert-revision/internal/models"
)

// ThrottledRevisionRepository rate-limits writes to an underlying
// RevisionRepository. Reads pass straight through.
type ThrottledRevisionRepository struct {
	RevisionRepository
	limiter *rate.Limiter
}

// NewThrottledRevisionRepository wraps next with a token bucket of the given
// rate and burst. A non-positive rate returns next unchanged.
func NewThrottledRevisionRepository(next RevisionRepository, perSecond float64, burst int) RevisionRepository {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledRevisionRepository{
		RevisionRepository: next,
		limiter:            rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Store waits for a write token before storing
func (r *ThrottledRevisionRepository) Store(ctx context.Context, record *models.BeliefRevisionRecord) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("revision write throttled: %w", err)
	}
	return r.RevisionRepository.Store(ctx, record)
}

// UpdateEffectiveness waits for a write token before updating
func (r *ThrottledRevisionRepository) UpdateEffectiveness(ctx context.Context, id uuid.UUID, score float64, measuredAt time.Time) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("revision write throttled: %w", err)
	}
	return r.RevisionRepository.UpdateEffectiveness(ctx, id, score, measuredAt)
}

// ThrottledLearningUpdateRepository rate-limits learning update writes
type ThrottledLearningUpdateRepository struct {
	LearningUpdateRepository
	limiter *rate.Limiter
}

// NewThrottledLearningUpdateRepository wraps next the same way as
// NewThrottledRevisionRepository
func NewThrottledLearningUpdateRepository(next LearningUpdateRepository, perSecond float64, burst int) LearningUpdateRepository {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledLearningUpdateRepository{
		LearningUpdateRepository: next,
		limiter:                  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// SaveLearningUpdate waits for a write token before saving
func (r *ThrottledLearningUpdateRepository) SaveLearningUpdate(ctx context.Context, update *models.LearningUpdate) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("learning update write throttled: %w", err)
	}
	return r.LearningUpdateRepository.SaveLearningUpdate(ctx, update)
}

// ThrottledOutcomeRepository rate-limits outcome writes
type ThrottledOutcomeRepository struct {
	OutcomeRepository
	limiter *rate.Limiter
}

// NewThrottledOutcomeRepository wraps next the same way as
// NewThrottledRevisionRepository
func NewThrottledOutcomeRepository(next OutcomeRepository, perSecond float64, burst int) OutcomeRepository {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledOutcomeRepository{
		OutcomeRepository: next,
		limiter:           rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// AppendOutcome waits for a write token before appending
func (r *ThrottledOutcomeRepository) AppendOutcome(ctx context.Context, expertID string, record models.PredictionOutcomeRecord, appendedAt time.Time) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outcome write throttled: %w", err)
	}
	return r.OutcomeRepository.AppendOutcome(ctx, expertID, record, appendedAt)
}
