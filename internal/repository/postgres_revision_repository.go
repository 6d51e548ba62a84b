package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/expert-revision/internal/database"
	"github.com/yourusername/expert-revision/internal/models"
)

const revisionColumns = `revision_id, expert_id, revision_trigger, actions, pre_revision_state,
	post_revision_state, created_at, effectiveness_score, effectiveness_measured_at`

// PostgresRevisionRepository implements RevisionRepository for PostgreSQL
type PostgresRevisionRepository struct {
	db *database.DB
}

// NewPostgresRevisionRepository creates a new revision repository
func NewPostgresRevisionRepository(db *database.DB) RevisionRepository {
	return &PostgresRevisionRepository{db: db}
}

// Store inserts a revision, ignoring a conflicting revision_id
func (r *PostgresRevisionRepository) Store(ctx context.Context, record *models.BeliefRevisionRecord) error {
	query := `
		INSERT INTO belief_revisions (` + revisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (revision_id) DO NOTHING
	`

	trigger, err := json.Marshal(record.Trigger)
	if err != nil {
		return fmt.Errorf("failed to encode trigger: %w", err)
	}
	actions, err := json.Marshal(record.Actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}
	pre, err := json.Marshal(record.PreRevisionState)
	if err != nil {
		return fmt.Errorf("failed to encode pre-revision state: %w", err)
	}
	post, err := json.Marshal(record.PostRevisionState)
	if err != nil {
		return fmt.Errorf("failed to encode post-revision state: %w", err)
	}

	_, err = r.db.GetPool().Exec(ctx, query,
		record.RevisionID, record.ExpertID, trigger, actions, pre, post,
		record.Timestamp, record.EffectivenessScore, record.EffectivenessMeasuredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store revision: %w", err)
	}

	return nil
}

// Retrieve returns an expert's revisions, newest first
func (r *PostgresRevisionRepository) Retrieve(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error) {
	query := `
		SELECT ` + revisionColumns + `
		FROM belief_revisions
		WHERE expert_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, expertID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	return scanRevisions(rows)
}

// GetByID retrieves a revision by ID
func (r *PostgresRevisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BeliefRevisionRecord, error) {
	query := `SELECT ` + revisionColumns + ` FROM belief_revisions WHERE revision_id = $1`

	record, err := scanRevision(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}

	return record, nil
}

// UpdateEffectiveness records the effectiveness score once
func (r *PostgresRevisionRepository) UpdateEffectiveness(ctx context.Context, id uuid.UUID, score float64, measuredAt time.Time) error {
	query := `
		UPDATE belief_revisions
		SET effectiveness_score = $2, effectiveness_measured_at = $3
		WHERE revision_id = $1 AND effectiveness_score IS NULL
	`

	tag, err := r.db.GetPool().Exec(ctx, query, id, score, measuredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to update effectiveness: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetPool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM belief_revisions WHERE revision_id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check revision: %w", err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrEffectivenessAlreadyRecorded
}

// GetUnmeasured returns unscored revisions created before createdBefore,
// oldest first
func (r *PostgresRevisionRepository) GetUnmeasured(ctx context.Context, createdBefore time.Time, limit int) ([]*models.BeliefRevisionRecord, error) {
	query := `
		SELECT ` + revisionColumns + `
		FROM belief_revisions
		WHERE effectiveness_score IS NULL AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, createdBefore.UTC(), limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unmeasured revisions: %w", err)
	}
	return scanRevisions(rows)
}

// limitArg maps a non-positive limit to SQL NULL, which means no limit
func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}

func scanRevisions(rows pgx.Rows) ([]*models.BeliefRevisionRecord, error) {
	defer rows.Close()

	var records []*models.BeliefRevisionRecord
	for rows.Next() {
		record, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}

	return records, nil
}

func scanRevision(row pgx.Row) (*models.BeliefRevisionRecord, error) {
	record := &models.BeliefRevisionRecord{}
	var trigger, actions, pre, post []byte

	err := row.Scan(
		&record.RevisionID, &record.ExpertID, &trigger, &actions, &pre, &post,
		&record.Timestamp, &record.EffectivenessScore, &record.EffectivenessMeasuredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trigger, &record.Trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}
	if err := json.Unmarshal(actions, &record.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode actions: %w", err)
	}
	if err := json.Unmarshal(pre, &record.PreRevisionState); err != nil {
		return nil, fmt.Errorf("failed to decode pre-revision state: %w", err)
	}
	if err := json.Unmarshal(post, &record.PostRevisionState); err != nil {
		return nil, fmt.Errorf("failed to decode post-revision state: %w", err)
	}

	return record, nil
}
