package config

import "time"

// Config is the root configuration structure for Mercator Saturn.
// It contains all configuration sections for the expiration policy,
// storage backends, maintenance, metrics, and logging.
type Config struct {
	// Expiry contains the expiration policy: the partition grid, the
	// premake horizon, and the grace period.
	Expiry ExpiryConfig `yaml:"expiry"`

	// Store contains storage backend selection and backend settings.
	Store StoreConfig `yaml:"store"`

	// Maintenance contains the maintenance schedule and retirement
	// behavior.
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Metrics contains the Prometheus metrics listener configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// ExpiryConfig contains the expiration policy.
type ExpiryConfig struct {
	// Epoch is the origin of the partition grid. All partition ranges
	// are measured from this instant. Changing it on an existing
	// deployment invalidates the catalog.
	// Default: 1970-01-01T00:00:00Z
	Epoch time.Time `yaml:"epoch"`

	// PartitionWidth is the duration covered by one partition.
	// Default: 720h (30 days)
	PartitionWidth time.Duration `yaml:"partition_width"`

	// PremakeCount is how many partitions beyond the one containing now
	// are kept provisioned ahead of time. Must be at least 1.
	// Default: 3
	PremakeCount int `yaml:"premake_count"`

	// GracePeriod is how long after a partition's range ends before it
	// becomes eligible for retirement. Zero retires ranges as soon as
	// they end.
	// Default: 0
	GracePeriod time.Duration `yaml:"grace_period"`

	// DefaultRetention is the expiry applied to payloads written
	// without an explicit expiry timestamp.
	// Default: 2160h (90 days)
	DefaultRetention time.Duration `yaml:"default_retention"`
}

// StoreConfig contains storage backend configuration.
type StoreConfig struct {
	// Backend selects the storage implementation.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the sqlite backend.
	SQLite StoreSQLiteConfig `yaml:"sqlite"`
}

// StoreSQLiteConfig contains settings for the sqlite storage backend.
// Core records, payload partitions, and the partition catalog live in
// separate database files.
type StoreSQLiteConfig struct {
	// CorePath is the database file for core records.
	// Default: "data/core.db"
	CorePath string `yaml:"core_path"`

	// PayloadPath is the database file holding the per-partition
	// payload tables.
	// Default: "data/payload.db"
	PayloadPath string `yaml:"payload_path"`

	// RegistryPath is the database file for the partition catalog.
	// Default: "data/registry.db"
	RegistryPath string `yaml:"registry_path"`

	// MaxOpenConns is the maximum number of open connections to the
	// core and payload databases.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MaintenanceConfig contains maintenance scheduling and retirement
// configuration.
type MaintenanceConfig struct {
	// Schedule is the cron expression for automatic maintenance runs
	// (standard five-field syntax).
	// Default: "0 * * * *" (hourly)
	Schedule string `yaml:"schedule"`

	// RetirementMode controls what happens to a partition's rows when
	// it is retired.
	// Options: "hardDrop" (drop storage), "archiveThenDrop" (write a
	// JSON archive first)
	// Default: "hardDrop"
	RetirementMode string `yaml:"retirement_mode"`

	// ArchivePath is the directory archives are written to when
	// RetirementMode is "archiveThenDrop".
	// Default: "data/archives"
	ArchivePath string `yaml:"archive_path"`

	// DeleteRetiredEntries removes a partition's catalog entry after a
	// successful drop instead of keeping it as a retired tombstone.
	// Default: false (tombstones are kept)
	DeleteRetiredEntries bool `yaml:"delete_retired_entries"`
}

// MetricsConfig contains the Prometheus metrics listener configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics listener is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address the metrics listener binds to.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path metrics are served on.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`
}
