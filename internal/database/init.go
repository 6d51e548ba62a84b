package database

import (
	"context"
	"fmt"

	"github.com/yourusername/expert-revision/internal/config"
)

// schema creates the tables used by the postgres repositories. Every
// statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS belief_revisions (
		revision_id               UUID PRIMARY KEY,
		expert_id                 TEXT NOT NULL,
		revision_trigger          JSONB NOT NULL,
		actions                   JSONB NOT NULL,
		pre_revision_state        JSONB NOT NULL,
		post_revision_state       JSONB NOT NULL,
		created_at                TIMESTAMPTZ NOT NULL,
		effectiveness_score       DOUBLE PRECISION,
		effectiveness_measured_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_belief_revisions_expert_created
		ON belief_revisions (expert_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_belief_revisions_unmeasured
		ON belief_revisions (created_at) WHERE effectiveness_score IS NULL`,
	`CREATE TABLE IF NOT EXISTS learning_updates (
		update_id       UUID PRIMARY KEY,
		expert_id       TEXT NOT NULL,
		game_id         TEXT NOT NULL,
		category        TEXT NOT NULL,
		learning_type   TEXT NOT NULL,
		state_before    JSONB NOT NULL,
		state_after     JSONB NOT NULL,
		observed_value  JSONB,
		predicted_value JSONB,
		confidence      DOUBLE PRECISION NOT NULL,
		grading_score   DOUBLE PRECISION NOT NULL,
		processing_us   BIGINT NOT NULL,
		parameters      JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learning_updates_expert_created
		ON learning_updates (expert_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS expert_outcomes (
		outcome_id       BIGSERIAL PRIMARY KEY,
		expert_id        TEXT NOT NULL,
		game_id          TEXT NOT NULL,
		was_correct      BOOLEAN NOT NULL,
		confidence       DOUBLE PRECISION NOT NULL,
		predicted_margin DOUBLE PRECISION,
		actual_margin    DOUBLE PRECISION,
		recorded_at      TIMESTAMPTZ NOT NULL,
		appended_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expert_outcomes_expert_appended
		ON expert_outcomes (expert_id, appended_at)`,
}

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates missing tables and indexes in a single transaction
func (db *DB) EnsureSchema(ctx context.Context) error {
	return db.WithTransaction(ctx, func(txCtx context.Context) error {
		tx, _ := TxFromContext(txCtx)
		for _, stmt := range schema {
			if _, err := tx.Exec(txCtx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
