// Package config provides configuration management for the race settlement service.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for malformed tags, which are constants here.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("storagedriver", validateStorageDriver)
	_ = v.RegisterValidation("cronspec", validateCronSpec)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateStorageDriver(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "postgres", "memory":
		return true
	default:
		return false
	}
}

func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
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
		if cfg.Database.Port == 0 {
			missing = append(missing, "port")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres storage requires database %s", strings.Join(missing, ", "))
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.IsProduction() {
		if cfg.Storage.Driver == "memory" {
			return fmt.Errorf("production environment requires postgres storage")
		}
		if cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	if cfg.Settlement.AutoSettleEnabled && cfg.Settlement.AutoSettleCron == "" {
		return fmt.Errorf("auto_settle_cron is required when auto settlement is enabled")
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if cfg.Kafka.BetPlacedTopic == "" || cfg.Kafka.RaceSettledTopic == "" {
			return fmt.Errorf("kafka topics are required when kafka is enabled")
		}
	}

	if cfg.Server.BetRateLimit > 0 && cfg.Server.BetRateBurst == 0 {
		return fmt.Errorf("bet_rate_burst must be positive when bet_rate_limit is set")
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
		case "storagedriver":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: postgres, memory\n", field)
		case "cronspec":
			errMsg += fmt.Sprintf("- Field '%s' is not a valid cron expression: '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
