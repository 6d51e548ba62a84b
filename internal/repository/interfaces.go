package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/expert-revision/internal/models"
)

// RevisionRepository defines the interface for belief revision storage.
// Store is idempotent on revision_id. UpdateEffectiveness writes the score
// once and returns models.ErrEffectivenessAlreadyRecorded afterwards.
type RevisionRepository interface {
	Store(ctx context.Context, record *models.BeliefRevisionRecord) error
	Retrieve(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BeliefRevisionRecord, error)
	UpdateEffectiveness(ctx context.Context, id uuid.UUID, score float64, measuredAt time.Time) error
	GetUnmeasured(ctx context.Context, createdBefore time.Time, limit int) ([]*models.BeliefRevisionRecord, error)
}

// LearningUpdateRepository defines the interface for learning update storage
type LearningUpdateRepository interface {
	SaveLearningUpdate(ctx context.Context, update *models.LearningUpdate) error
	ListByExpert(ctx context.Context, expertID string, limit int) ([]*models.LearningUpdate, error)
}

// OutcomeRepository defines the interface for expert outcome history storage.
// appendedAt is the engine clock time the outcome entered the history and is
// what OutcomesSince filters on.
type OutcomeRepository interface {
	AppendOutcome(ctx context.Context, expertID string, record models.PredictionOutcomeRecord, appendedAt time.Time) error
	OutcomesSince(ctx context.Context, expertID string, since time.Time, limit int) ([]models.PredictionOutcomeRecord, error)
}
