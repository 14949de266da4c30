package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "expiry.partition_width").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateExpiry(&cfg.Expiry)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateMaintenance(&cfg.Maintenance)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateExpiry validates the expiration policy.
func validateExpiry(cfg *ExpiryConfig) []FieldError {
	var errs []FieldError

	if cfg.PartitionWidth <= 0 {
		errs = append(errs, FieldError{
			Field:   "expiry.partition_width",
			Message: "partition width must be positive",
		})
	}
	if cfg.PremakeCount < 1 {
		errs = append(errs, FieldError{
			Field:   "expiry.premake_count",
			Message: "premake count must be at least 1",
		})
	}
	if cfg.GracePeriod < 0 {
		errs = append(errs, FieldError{
			Field:   "expiry.grace_period",
			Message: "grace period must be non-negative",
		})
	}
	if cfg.DefaultRetention <= 0 {
		errs = append(errs, FieldError{
			Field:   "expiry.default_retention",
			Message: "default retention must be positive",
		})
	}

	return errs
}

// validateStore validates the storage backend configuration.
func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	// Validate backend
	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: "backend is required",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}

	// Validate backend-specific configuration
	if cfg.Backend == "sqlite" {
		if cfg.SQLite.CorePath == "" {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.core_path",
				Message: "core path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.PayloadPath == "" {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.payload_path",
				Message: "payload path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.RegistryPath == "" {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.registry_path",
				Message: "registry path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
		if cfg.SQLite.MaxIdleConns < 0 {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.max_idle_conns",
				Message: "max idle connections must be non-negative",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "store.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	}

	return errs
}

// validateMaintenance validates retirement settings. The cron schedule
// is deliberately not validated here; the scheduler parses it at
// startup and reports errors with the parser's own diagnostics.
func validateMaintenance(cfg *MaintenanceConfig) []FieldError {
	var errs []FieldError

	// Validate retirement mode
	validModes := map[string]bool{"hardDrop": true, "archiveThenDrop": true}
	if cfg.RetirementMode == "" {
		errs = append(errs, FieldError{
			Field:   "maintenance.retirement_mode",
			Message: "retirement mode is required",
		})
	} else if !validModes[cfg.RetirementMode] {
		errs = append(errs, FieldError{
			Field:   "maintenance.retirement_mode",
			Message: fmt.Sprintf("invalid retirement mode %q: must be 'hardDrop' or 'archiveThenDrop'", cfg.RetirementMode),
		})
	}

	if cfg.RetirementMode == "archiveThenDrop" && cfg.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "maintenance.archive_path",
			Message: "archive path is required when retirement mode is 'archiveThenDrop'",
		})
	}

	return errs
}

// validateMetrics validates the metrics listener configuration.
func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	// If metrics are disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "metrics.listen_address",
			Message: "listen address is required when metrics are enabled",
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "path is required when metrics are enabled",
		})
	} else if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "path must start with '/'",
		})
	}

	return errs
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Level == "" {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Level] {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Format == "" {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Format] {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Format),
		})
	}

	return errs
}
