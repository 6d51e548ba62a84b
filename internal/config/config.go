// Package config provides configuration management for the expert revision engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Learning    LearningConfig    `mapstructure:"learning" validate:"required"`
	Revision    RevisionConfig    `mapstructure:"revision" validate:"required"`
	Engine      EngineConfig      `mapstructure:"engine" validate:"required"`
	Persistence PersistenceConfig `mapstructure:"persistence" validate:"required"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Health      HealthConfig      `mapstructure:"health"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. It is only
// required when the postgres persistence backend is selected.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// LearningConfig holds calibration learning rates, factor priors and persona
// overrides.
type LearningConfig struct {
	BetaLearningRate     float64            `mapstructure:"beta_learning_rate" validate:"gt=0,lte=1"`
	EMAAlpha             float64            `mapstructure:"ema_alpha" validate:"gt=0,lt=1"`
	FactorAdjustmentRate float64            `mapstructure:"factor_adjustment_rate" validate:"gt=0,lte=1"`
	MaxChange            float64            `mapstructure:"max_change" validate:"gt=0,lt=1"`
	FactorPriors         map[string]float64 `mapstructure:"factor_priors" validate:"omitempty,dive,keys,factor,endkeys,gt=0"`
	Personas             []PersonaConfig    `mapstructure:"personas" validate:"omitempty,dive"`
}

// PersonaConfig overrides learning parameters for experts whose ID matches Key.
type PersonaConfig struct {
	Key                  string   `mapstructure:"key" validate:"required"`
	BetaLearningRate     *float64 `mapstructure:"beta_learning_rate" validate:"omitempty,gt=0,lte=1"`
	EMAAlpha             *float64 `mapstructure:"ema_alpha" validate:"omitempty,gt=0,lt=1"`
	FactorAdjustmentRate *float64 `mapstructure:"factor_adjustment_rate" validate:"omitempty,gt=0,lte=1"`
}

// RevisionConfig holds trigger thresholds and effectiveness settings
type RevisionConfig struct {
	WindowSize              int     `mapstructure:"window_size" validate:"gte=3"`
	MinSamples              int     `mapstructure:"min_samples" validate:"gte=1"`
	ConsecutiveRunThreshold int     `mapstructure:"consecutive_run_threshold" validate:"gte=1"`
	HighConfidence          float64 `mapstructure:"high_confidence" validate:"gt=0,lte=1"`
	MisalignmentMinCount    int     `mapstructure:"misalignment_min_count" validate:"gte=1"`
	MisalignmentGap         float64 `mapstructure:"misalignment_gap" validate:"gt=0,lte=0.5"`
	PatternMinCount         int     `mapstructure:"pattern_min_count" validate:"gte=1"`
	DeclineMinSamples       int     `mapstructure:"decline_min_samples" validate:"gte=2"`
	DeclineThreshold        float64 `mapstructure:"decline_threshold" validate:"gt=0,lte=1"`
	EffectivenessWindow     int     `mapstructure:"effectiveness_window" validate:"gte=1"`
	EffectivenessBaseline   float64 `mapstructure:"effectiveness_baseline" validate:"gt=0,lt=1"`
}

// EngineConfig controls concurrency and in-memory retention
type EngineConfig struct {
	Workers       int `mapstructure:"workers" validate:"gt=0"`
	HistorySize   int `mapstructure:"history_size" validate:"gt=0"`
	AuditCapacity int `mapstructure:"audit_capacity" validate:"gte=0"`
}

// PersistenceConfig selects the revision storage backend
type PersistenceConfig struct {
	Backend         string  `mapstructure:"backend" validate:"required,oneof=memory postgres"`
	WritesPerSecond float64 `mapstructure:"writes_per_second" validate:"gte=0"`
	Burst           int     `mapstructure:"burst" validate:"gte=0"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// SchedulerConfig configures the periodic effectiveness sweep
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	EffectivenessSweep string `mapstructure:"effectiveness_sweep" validate:"omitempty,cron"`
}

// MetricsConfig represents metrics exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// HealthConfig represents the health server configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// SecretsConfig points at an AWS Secrets Manager secret to overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether revisions are persisted to PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Persistence.Backend == "postgres"
}

// PersistenceTimeout returns the per-operation storage timeout
func (c *Config) PersistenceTimeout() time.Duration {
	return time.Duration(c.Persistence.TimeoutSeconds) * time.Second
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
