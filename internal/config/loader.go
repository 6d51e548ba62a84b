// Package config provides configuration management for the expert revision engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "EXPERT_REVISION"

const defaultConfigPath = "config/config.yaml"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads and parses the configuration from file and environment variables.
// Placeholders of the form ${VAR_NAME} are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for every optional
// field. A missing file is not an error.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "expert-revision")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("learning.beta_learning_rate", 0.1)
	v.SetDefault("learning.ema_alpha", 0.1)
	v.SetDefault("learning.factor_adjustment_rate", 0.05)
	v.SetDefault("learning.max_change", 0.2)

	v.SetDefault("revision.window_size", 10)
	v.SetDefault("revision.min_samples", 3)
	v.SetDefault("revision.consecutive_run_threshold", 3)
	v.SetDefault("revision.high_confidence", 0.7)
	v.SetDefault("revision.misalignment_min_count", 2)
	v.SetDefault("revision.misalignment_gap", 0.25)
	v.SetDefault("revision.pattern_min_count", 3)
	v.SetDefault("revision.decline_min_samples", 6)
	v.SetDefault("revision.decline_threshold", 0.15)
	v.SetDefault("revision.effectiveness_window", 5)
	v.SetDefault("revision.effectiveness_baseline", 0.55)

	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.history_size", 50)
	v.SetDefault("engine.audit_capacity", 10000)

	v.SetDefault("persistence.backend", "memory")
	v.SetDefault("persistence.writes_per_second", 0)
	v.SetDefault("persistence.burst", 1)
	v.SetDefault("persistence.timeout_seconds", 5)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.effectiveness_sweep", "*/15 * * * *")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8080)
}

// ReloadFromEnv reloads the configuration from the file named by
// EXPERT_REVISION_CONFIG_PATH when it is set.
func ReloadFromEnv(cfg *Config) error {
	envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH")
	if envPath == "" {
		return nil
	}

	newCfg, err := LoadWithDefaults(envPath)
	if err != nil {
		return err
	}
	*cfg = *newCfg
	return nil
}
