package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	var cfg Config
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithEpoch sets the partition grid epoch.
func (b *ConfigBuilder) WithEpoch(epoch time.Time) *ConfigBuilder {
	b.cfg.Expiry.Epoch = epoch
	return b
}

// WithPartitionWidth sets the partition width.
func (b *ConfigBuilder) WithPartitionWidth(d time.Duration) *ConfigBuilder {
	b.cfg.Expiry.PartitionWidth = d
	return b
}

// WithPremakeCount sets the premake count.
func (b *ConfigBuilder) WithPremakeCount(n int) *ConfigBuilder {
	b.cfg.Expiry.PremakeCount = n
	return b
}

// WithGracePeriod sets the grace period.
func (b *ConfigBuilder) WithGracePeriod(d time.Duration) *ConfigBuilder {
	b.cfg.Expiry.GracePeriod = d
	return b
}

// WithStoreBackend sets the storage backend.
func (b *ConfigBuilder) WithStoreBackend(backend string) *ConfigBuilder {
	b.cfg.Store.Backend = backend
	return b
}

// WithSQLitePaths sets the sqlite database file paths.
func (b *ConfigBuilder) WithSQLitePaths(core, payload, registry string) *ConfigBuilder {
	b.cfg.Store.Backend = "sqlite"
	b.cfg.Store.SQLite.CorePath = core
	b.cfg.Store.SQLite.PayloadPath = payload
	b.cfg.Store.SQLite.RegistryPath = registry
	return b
}

// WithSchedule sets the maintenance cron schedule.
func (b *ConfigBuilder) WithSchedule(schedule string) *ConfigBuilder {
	b.cfg.Maintenance.Schedule = schedule
	return b
}

// WithRetirementMode sets the retirement mode.
func (b *ConfigBuilder) WithRetirementMode(mode string) *ConfigBuilder {
	b.cfg.Maintenance.RetirementMode = mode
	return b
}

// WithArchivePath sets the archive directory and switches the
// retirement mode to archiveThenDrop.
func (b *ConfigBuilder) WithArchivePath(path string) *ConfigBuilder {
	b.cfg.Maintenance.ArchivePath = path
	b.cfg.Maintenance.RetirementMode = "archiveThenDrop"
	return b
}

// WithMetricsEnabled sets whether metrics are enabled.
func (b *ConfigBuilder) WithMetricsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Metrics.Enabled = enabled
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Logging.Level = level
	return b
}

// WithLoggingFormat sets the logging format.
func (b *ConfigBuilder) WithLoggingFormat(format string) *ConfigBuilder {
	b.cfg.Logging.Format = format
	return b
}

// MinimalConfig returns a minimal valid configuration for testing.
// This is useful for tests that don't care about most configuration values.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
