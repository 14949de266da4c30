package config

import "time"

// Default values for configuration fields.
const (
	// Expiry defaults
	DefaultPartitionWidth = 30 * 24 * time.Hour
	DefaultPremakeCount   = 3
	DefaultRetention      = 90 * 24 * time.Hour

	// Store defaults
	DefaultStoreBackend       = "sqlite"
	DefaultSQLiteCorePath     = "data/core.db"
	DefaultSQLitePayloadPath  = "data/payload.db"
	DefaultSQLiteRegistryPath = "data/registry.db"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Maintenance defaults
	DefaultMaintenanceSchedule = "0 * * * *" // hourly
	DefaultRetirementMode      = "hardDrop"
	DefaultArchivePath         = "data/archives"

	// Metrics defaults
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Expiry defaults. An unset epoch anchors the grid at the Unix
	// epoch. GracePeriod defaults to zero, so it needs no check.
	if cfg.Expiry.Epoch.IsZero() {
		cfg.Expiry.Epoch = time.Unix(0, 0).UTC()
	}
	if cfg.Expiry.PartitionWidth == 0 {
		cfg.Expiry.PartitionWidth = DefaultPartitionWidth
	}
	if cfg.Expiry.PremakeCount == 0 {
		cfg.Expiry.PremakeCount = DefaultPremakeCount
	}
	if cfg.Expiry.DefaultRetention == 0 {
		cfg.Expiry.DefaultRetention = DefaultRetention
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.SQLite.CorePath == "" {
		cfg.Store.SQLite.CorePath = DefaultSQLiteCorePath
	}
	if cfg.Store.SQLite.PayloadPath == "" {
		cfg.Store.SQLite.PayloadPath = DefaultSQLitePayloadPath
	}
	if cfg.Store.SQLite.RegistryPath == "" {
		cfg.Store.SQLite.RegistryPath = DefaultSQLiteRegistryPath
	}
	if cfg.Store.SQLite.MaxOpenConns == 0 {
		cfg.Store.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Store.SQLite.MaxIdleConns == 0 {
		cfg.Store.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if !cfg.Store.SQLite.WALMode {
		cfg.Store.SQLite.WALMode = DefaultSQLiteWALMode
	}
	if cfg.Store.SQLite.BusyTimeout == 0 {
		cfg.Store.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Maintenance defaults
	if cfg.Maintenance.Schedule == "" {
		cfg.Maintenance.Schedule = DefaultMaintenanceSchedule
	}
	if cfg.Maintenance.RetirementMode == "" {
		cfg.Maintenance.RetirementMode = DefaultRetirementMode
	}
	if cfg.Maintenance.ArchivePath == "" {
		cfg.Maintenance.ArchivePath = DefaultArchivePath
	}

	// Metrics defaults
	applyMetricsDefaults(cfg)

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

// applyMetricsDefaults applies default values to metrics configuration.
func applyMetricsDefaults(cfg *Config) {
	metrics := &cfg.Metrics

	// Set enabled default (true)
	if !metrics.Enabled {
		// Check if any metrics fields are set - if so, the section was
		// written out and the explicit false stands
		// Otherwise, use default
		hasAnyConfig := metrics.ListenAddress != "" || metrics.Path != ""

		if !hasAnyConfig {
			metrics.Enabled = DefaultMetricsEnabled
		}
	}

	if metrics.ListenAddress == "" {
		metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if metrics.Path == "" {
		metrics.Path = DefaultMetricsPath
	}
}
