package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfigFile(t, `
expiry:
  epoch: 2025-01-01T00:00:00Z
  partition_width: "168h"
  premake_count: 4
  grace_period: "24h"
  default_retention: "720h"

store:
  backend: "sqlite"
  sqlite:
    core_path: "/var/lib/saturn/core.db"
    payload_path: "/var/lib/saturn/payload.db"
    registry_path: "/var/lib/saturn/registry.db"
    max_open_conns: 20

maintenance:
  schedule: "0 3 * * *"
  retirement_mode: "archiveThenDrop"
  archive_path: "/var/lib/saturn/archives"

metrics:
  enabled: true
  listen_address: "0.0.0.0:9191"

logging:
  level: "debug"
  format: "text"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify loaded values
	wantEpoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !cfg.Expiry.Epoch.Equal(wantEpoch) {
		t.Errorf("expected epoch %v, got %v", wantEpoch, cfg.Expiry.Epoch)
	}
	if cfg.Expiry.PartitionWidth != 168*time.Hour {
		t.Errorf("expected partition width %v, got %v", 168*time.Hour, cfg.Expiry.PartitionWidth)
	}
	if cfg.Expiry.PremakeCount != 4 {
		t.Errorf("expected premake count %d, got %d", 4, cfg.Expiry.PremakeCount)
	}
	if cfg.Expiry.GracePeriod != 24*time.Hour {
		t.Errorf("expected grace period %v, got %v", 24*time.Hour, cfg.Expiry.GracePeriod)
	}
	if cfg.Store.SQLite.CorePath != "/var/lib/saturn/core.db" {
		t.Errorf("expected core path %q, got %q", "/var/lib/saturn/core.db", cfg.Store.SQLite.CorePath)
	}
	if cfg.Store.SQLite.MaxOpenConns != 20 {
		t.Errorf("expected max open conns %d, got %d", 20, cfg.Store.SQLite.MaxOpenConns)
	}
	if cfg.Maintenance.Schedule != "0 3 * * *" {
		t.Errorf("expected schedule %q, got %q", "0 3 * * *", cfg.Maintenance.Schedule)
	}
	if cfg.Maintenance.RetirementMode != "archiveThenDrop" {
		t.Errorf("expected retirement mode %q, got %q", "archiveThenDrop", cfg.Maintenance.RetirementMode)
	}
	if cfg.Metrics.ListenAddress != "0.0.0.0:9191" {
		t.Errorf("expected metrics listen address %q, got %q", "0.0.0.0:9191", cfg.Metrics.ListenAddress)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected logging format %q, got %q", "text", cfg.Logging.Format)
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	// A nearly empty file still loads: defaults fill in the rest
	configPath := writeConfigFile(t, `
logging:
  level: "warn"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected logging level %q, got %q", "warn", cfg.Logging.Level)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("expected default logging format %q, got %q", DefaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Expiry.PartitionWidth != DefaultPartitionWidth {
		t.Errorf("expected default partition width %v, got %v", DefaultPartitionWidth, cfg.Expiry.PartitionWidth)
	}
	if cfg.Expiry.GracePeriod != 0 {
		t.Errorf("expected zero grace period, got %v", cfg.Expiry.GracePeriod)
	}
	if cfg.Store.Backend != DefaultStoreBackend {
		t.Errorf("expected default backend %q, got %q", DefaultStoreBackend, cfg.Store.Backend)
	}
	if cfg.Maintenance.Schedule != DefaultMaintenanceSchedule {
		t.Errorf("expected default schedule %q, got %q", DefaultMaintenanceSchedule, cfg.Maintenance.Schedule)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics to default to enabled")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
	// Check if error contains file not found message
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	configPath := writeConfigFile(t, `
store:
  backend: "sqlite"
  invalid yaml here: [
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	// Config with validation errors (bad retirement mode, bad level)
	configPath := writeConfigFile(t, `
maintenance:
  retirement_mode: "softDelete"

logging:
  level: "invalid"
  format: "json"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	// Check if the error chain contains a ValidationError
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError in error chain, got %T: %v", err, err)
	}
}

func TestLoadConfigWithEnvOverrides_BasicOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `
store:
  backend: "sqlite"

maintenance:
  schedule: "0 * * * *"

logging:
  level: "info"
  format: "json"
`)

	// Set environment variables
	os.Setenv("SATURN_STORE_BACKEND", "memory")
	os.Setenv("SATURN_MAINTENANCE_SCHEDULE", "*/10 * * * *")
	os.Setenv("SATURN_LOGGING_LEVEL", "debug")
	os.Setenv("SATURN_EXPIRY_EPOCH", "2025-06-01T00:00:00Z")
	defer func() {
		os.Unsetenv("SATURN_STORE_BACKEND")
		os.Unsetenv("SATURN_MAINTENANCE_SCHEDULE")
		os.Unsetenv("SATURN_LOGGING_LEVEL")
		os.Unsetenv("SATURN_EXPIRY_EPOCH")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify environment overrides took effect
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected backend %q from env, got %q", "memory", cfg.Store.Backend)
	}
	if cfg.Maintenance.Schedule != "*/10 * * * *" {
		t.Errorf("expected schedule %q from env, got %q", "*/10 * * * *", cfg.Maintenance.Schedule)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q from env, got %q", "debug", cfg.Logging.Level)
	}

	wantEpoch := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !cfg.Expiry.Epoch.Equal(wantEpoch) {
		t.Errorf("expected epoch %v from env, got %v", wantEpoch, cfg.Expiry.Epoch)
	}
}

func TestLoadConfigWithEnvOverrides_DurationParsing(t *testing.T) {
	configPath := writeConfigFile(t, `
expiry:
  partition_width: "720h"
`)

	os.Setenv("SATURN_EXPIRY_PARTITION_WIDTH", "168h")
	os.Setenv("SATURN_EXPIRY_GRACE_PERIOD", "36h")
	os.Setenv("SATURN_STORE_SQLITE_BUSY_TIMEOUT", "10s")
	defer func() {
		os.Unsetenv("SATURN_EXPIRY_PARTITION_WIDTH")
		os.Unsetenv("SATURN_EXPIRY_GRACE_PERIOD")
		os.Unsetenv("SATURN_STORE_SQLITE_BUSY_TIMEOUT")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Expiry.PartitionWidth != 168*time.Hour {
		t.Errorf("expected partition width %v, got %v", 168*time.Hour, cfg.Expiry.PartitionWidth)
	}
	if cfg.Expiry.GracePeriod != 36*time.Hour {
		t.Errorf("expected grace period %v, got %v", 36*time.Hour, cfg.Expiry.GracePeriod)
	}
	if cfg.Store.SQLite.BusyTimeout != 10*time.Second {
		t.Errorf("expected busy timeout %v, got %v", 10*time.Second, cfg.Store.SQLite.BusyTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_BooleanParsing(t *testing.T) {
	configPath := writeConfigFile(t, `
logging:
  level: "info"
  format: "json"
`)

	// Env overrides run after defaults, so an env-based disable sticks
	os.Setenv("SATURN_METRICS_ENABLED", "false")
	os.Setenv("SATURN_MAINTENANCE_DELETE_RETIRED_ENTRIES", "true")
	defer func() {
		os.Unsetenv("SATURN_METRICS_ENABLED")
		os.Unsetenv("SATURN_MAINTENANCE_DELETE_RETIRED_ENTRIES")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled from env")
	}
	if !cfg.Maintenance.DeleteRetiredEntries {
		t.Error("expected delete retired entries enabled from env")
	}
}

func TestLoadConfigWithEnvOverrides_UnparseableValuesIgnored(t *testing.T) {
	configPath := writeConfigFile(t, `
expiry:
  premake_count: 5
`)

	os.Setenv("SATURN_EXPIRY_PREMAKE_COUNT", "not-a-number")
	os.Setenv("SATURN_EXPIRY_GRACE_PERIOD", "soon")
	defer func() {
		os.Unsetenv("SATURN_EXPIRY_PREMAKE_COUNT")
		os.Unsetenv("SATURN_EXPIRY_GRACE_PERIOD")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Unparseable values are skipped, file values stand
	if cfg.Expiry.PremakeCount != 5 {
		t.Errorf("expected premake count %d, got %d", 5, cfg.Expiry.PremakeCount)
	}
	if cfg.Expiry.GracePeriod != 0 {
		t.Errorf("expected grace period %v, got %v", time.Duration(0), cfg.Expiry.GracePeriod)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	configPath := writeConfigFile(t, `
logging:
  level: "info"
  format: "json"
`)

	// String overrides are applied verbatim, so a bad enum value must
	// fail the post-override validation
	os.Setenv("SATURN_LOGGING_LEVEL", "invalid-level")
	defer os.Unsetenv("SATURN_LOGGING_LEVEL")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Error("expected validation error for invalid env values")
	}
}
