package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SATURN_SECTION_FIELD (e.g., SATURN_STORE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SATURN_SECTION_FIELD. Values that fail
// to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Expiry overrides
	if val := os.Getenv("SATURN_EXPIRY_EPOCH"); val != "" {
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			cfg.Expiry.Epoch = t
		}
	}
	if val := os.Getenv("SATURN_EXPIRY_PARTITION_WIDTH"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Expiry.PartitionWidth = d
		}
	}
	if val := os.Getenv("SATURN_EXPIRY_PREMAKE_COUNT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Expiry.PremakeCount = i
		}
	}
	if val := os.Getenv("SATURN_EXPIRY_GRACE_PERIOD"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Expiry.GracePeriod = d
		}
	}
	if val := os.Getenv("SATURN_EXPIRY_DEFAULT_RETENTION"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Expiry.DefaultRetention = d
		}
	}

	// Store overrides
	if val := os.Getenv("SATURN_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_CORE_PATH"); val != "" {
		cfg.Store.SQLite.CorePath = val
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_PAYLOAD_PATH"); val != "" {
		cfg.Store.SQLite.PayloadPath = val
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_REGISTRY_PATH"); val != "" {
		cfg.Store.SQLite.RegistryPath = val
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_MAX_OPEN_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Store.SQLite.MaxOpenConns = i
		}
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_MAX_IDLE_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Store.SQLite.MaxIdleConns = i
		}
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_WAL_MODE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Store.SQLite.WALMode = b
		}
	}
	if val := os.Getenv("SATURN_STORE_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Store.SQLite.BusyTimeout = d
		}
	}

	// Maintenance overrides
	if val := os.Getenv("SATURN_MAINTENANCE_SCHEDULE"); val != "" {
		cfg.Maintenance.Schedule = val
	}
	if val := os.Getenv("SATURN_MAINTENANCE_RETIREMENT_MODE"); val != "" {
		cfg.Maintenance.RetirementMode = val
	}
	if val := os.Getenv("SATURN_MAINTENANCE_ARCHIVE_PATH"); val != "" {
		cfg.Maintenance.ArchivePath = val
	}
	if val := os.Getenv("SATURN_MAINTENANCE_DELETE_RETIRED_ENTRIES"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Maintenance.DeleteRetiredEntries = b
		}
	}

	// Metrics overrides
	if val := os.Getenv("SATURN_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("SATURN_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Metrics.ListenAddress = val
	}
	if val := os.Getenv("SATURN_METRICS_PATH"); val != "" {
		cfg.Metrics.Path = val
	}

	// Logging overrides
	if val := os.Getenv("SATURN_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("SATURN_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
