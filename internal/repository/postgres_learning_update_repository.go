package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/expert-revision/internal/database"
	"github.com/yourusername/expert-revision/internal/models"
)

// PostgresLearningUpdateRepository implements LearningUpdateRepository for PostgreSQL
type PostgresLearningUpdateRepository struct {
	db *database.DB
}

// NewPostgresLearningUpdateRepository creates a new learning update repository
func NewPostgresLearningUpdateRepository(db *database.DB) LearningUpdateRepository {
	return &PostgresLearningUpdateRepository{db: db}
}

// SaveLearningUpdate inserts an update, ignoring a conflicting update_id
func (r *PostgresLearningUpdateRepository) SaveLearningUpdate(ctx context.Context, update *models.LearningUpdate) error {
	query := `
		INSERT INTO learning_updates (
			update_id, expert_id, game_id, category, learning_type, state_before, state_after,
			observed_value, predicted_value, confidence, grading_score, processing_us, parameters, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (update_id) DO NOTHING
	`

	encoded := make([][]byte, 0, 5)
	for _, v := range []interface{}{update.StateBefore, update.StateAfter, update.ObservedValue, update.PredictedValue, update.Parameters} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode learning update: %w", err)
		}
		encoded = append(encoded, b)
	}

	_, err := r.db.GetPool().Exec(ctx, query,
		update.UpdateID, update.ExpertID, update.GameID, update.Category, update.LearningType.String(),
		encoded[0], encoded[1], encoded[2], encoded[3],
		update.Confidence, update.GradingScore, update.ProcessingTime.Microseconds(), encoded[4], update.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save learning update: %w", err)
	}

	return nil
}

// ListByExpert returns an expert's learning updates, newest first
func (r *PostgresLearningUpdateRepository) ListByExpert(ctx context.Context, expertID string, limit int) ([]*models.LearningUpdate, error) {
	query := `
		SELECT update_id, expert_id, game_id, category, learning_type, state_before, state_after,
			observed_value, predicted_value, confidence, grading_score, processing_us, parameters, created_at
		FROM learning_updates
		WHERE expert_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, expertID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query learning updates: %w", err)
	}
	defer rows.Close()

	var updates []*models.LearningUpdate
	for rows.Next() {
		u := &models.LearningUpdate{}
		var (
			learningType                       string
			before, after, observed, predicted []byte
			params                             []byte
			processingUS                       int64
		)
		if err := rows.Scan(
			&u.UpdateID, &u.ExpertID, &u.GameID, &u.Category, &learningType, &before, &after,
			&observed, &predicted, &u.Confidence, &u.GradingScore, &processingUS, &params, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan learning update: %w", err)
		}

		if u.LearningType, err = models.ParseLearningType(learningType); err != nil {
			return nil, err
		}
		if u.StateBefore, err = models.DecodeSnapshot(u.LearningType, before); err != nil {
			return nil, fmt.Errorf("failed to decode state_before: %w", err)
		}
		if u.StateAfter, err = models.DecodeSnapshot(u.LearningType, after); err != nil {
			return nil, fmt.Errorf("failed to decode state_after: %w", err)
		}
		if err := unmarshalOptional(observed, &u.ObservedValue); err != nil {
			return nil, err
		}
		if err := unmarshalOptional(predicted, &u.PredictedValue); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(params, &u.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
		u.ProcessingTime = time.Duration(processingUS) * time.Microsecond
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning updates: %w", err)
	}

	return updates, nil
}

func unmarshalOptional(raw []byte, dst *interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}
