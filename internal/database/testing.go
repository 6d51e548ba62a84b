package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/expert-revision/internal/config"
)

// TestConfigEnv names the config file used by integration tests
const TestConfigEnv = "EXPERT_REVISION_TEST_CONFIG"

// SetupTestDB connects to the integration database and applies the schema.
// The test is skipped when TestConfigEnv is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv(TestConfigEnv)
	if path == "" {
		t.Skipf("integration test: set %s to a config file with a database section", TestConfigEnv)
	}

	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Initialize(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	return db
}

// TeardownTestDB removes test rows and closes the pool
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, table := range []string{"belief_revisions", "learning_updates", "expert_outcomes"} {
		if _, err := db.GetPool().Exec(ctx, "TRUNCATE "+table); err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
	db.Close()
}
