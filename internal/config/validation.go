// Package config provides configuration management for the expert revision engine.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/expert-revision/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("cron", validateCron)
	_ = v.RegisterValidation("factor", validateFactor)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCron accepts standard five-field expressions and descriptors such
// as @every 10m.
func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateFactor accepts the known factor names
func validateFactor(fl validator.FieldLevel) bool {
	name := models.Factor(fl.Field().String())
	for _, f := range models.AllFactors {
		if f == name {
			return true
		}
	}
	return false
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.UsesPostgres() {
		var missing []string
		if cfg.Database.Host == "" {
			missing = append(missing, "host")
		}
		if cfg.Database.Name == "" {
			missing = append(missing, "name")
		}
		if cfg.Database.User == "" {
			missing = append(missing, "user")
		}
		if cfg.Database.Password == "" && !cfg.Secrets.Enabled {
			missing = append(missing, "password")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres persistence requires database %s", strings.Join(missing, ", "))
		}
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.Revision.MinSamples > cfg.Revision.WindowSize {
		return fmt.Errorf("revision min_samples cannot exceed window_size")
	}
	if cfg.Revision.DeclineMinSamples > cfg.Revision.WindowSize {
		return fmt.Errorf("revision decline_min_samples cannot exceed window_size")
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.EffectivenessSweep == "" {
		return fmt.Errorf("scheduler is enabled but effectiveness_sweep is empty")
	}

	if cfg.Secrets.Enabled && (cfg.Secrets.Region == "" || cfg.Secrets.SecretName == "") {
		return fmt.Errorf("secrets overlay requires region and secret_name")
	}

	seen := make(map[string]bool, len(cfg.Learning.Personas))
	for _, p := range cfg.Learning.Personas {
		key := strings.ToLower(p.Key)
		if seen[key] {
			return fmt.Errorf("duplicate persona key %q", p.Key)
		}
		seen[key] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "cron":
			errMsg += fmt.Sprintf("- Field '%s' is not a valid cron expression: '%v'\n", field, value)
		case "factor":
			errMsg += fmt.Sprintf("- Field '%s' names an unknown factor '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.UsesPostgres() && isTestCredential(cfg.Database.User) {
			return fmt.Errorf("production environment should not use test database credentials")
		}
		if cfg.App.LogLevel == "debug" {
			return fmt.Errorf("debug logging should be disabled in production")
		}
	}

	return nil
}

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	testPatterns := []string{
		"test", "demo", "example", "placeholder", "YOUR_",
	}

	for _, pattern := range testPatterns {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}

	return false
}
