package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/expert-revision/internal/database"
	"github.com/yourusername/expert-revision/internal/models"
)

// PostgresOutcomeRepository implements OutcomeRepository for PostgreSQL
type PostgresOutcomeRepository struct {
	db *database.DB
}

// NewPostgresOutcomeRepository creates a new outcome repository
func NewPostgresOutcomeRepository(db *database.DB) OutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// AppendOutcome inserts one outcome row
func (r *PostgresOutcomeRepository) AppendOutcome(ctx context.Context, expertID string, record models.PredictionOutcomeRecord, appendedAt time.Time) error {
	query := `
		INSERT INTO expert_outcomes (
			expert_id, game_id, was_correct, confidence, predicted_margin, actual_margin, recorded_at, appended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		expertID, record.GameID, record.WasCorrect, record.Confidence,
		record.PredictedMargin, record.ActualMargin, record.RecordedAt, appendedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append outcome: %w", err)
	}

	return nil
}

// OutcomesSince returns the outcomes appended strictly after since, oldest first
func (r *PostgresOutcomeRepository) OutcomesSince(ctx context.Context, expertID string, since time.Time, limit int) ([]models.PredictionOutcomeRecord, error) {
	query := `
		SELECT game_id, was_correct, confidence, predicted_margin, actual_margin, recorded_at
		FROM expert_outcomes
		WHERE expert_id = $1 AND appended_at > $2
		ORDER BY appended_at ASC, outcome_id ASC
		LIMIT $3
	`

	rows, err := r.db.GetPool().Query(ctx, query, expertID, since.UTC(), limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionOutcomeRecord
	for rows.Next() {
		var rec models.PredictionOutcomeRecord
		if err := rows.Scan(
			&rec.GameID, &rec.WasCorrect, &rec.Confidence,
			&rec.PredictedMargin, &rec.ActualMargin, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		rec.RecordedAt = rec.RecordedAt.UTC()
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}

	return out, nil
}
