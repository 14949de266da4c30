// Package config provides configuration management for Mercator Saturn.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SATURN_SECTION_FIELD.
// For example:
//
//   - SATURN_STORE_BACKEND overrides store.backend
//   - SATURN_EXPIRY_PARTITION_WIDTH overrides expiry.partition_width
//   - SATURN_MAINTENANCE_SCHEDULE overrides maintenance.schedule
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For daemon-wide configuration access, use the singleton pattern:
//
//	// At daemon startup
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the daemon
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Store.Backend)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., sqlite database paths)
//   - Range validation (e.g., premake count must be at least 1)
//   - Enum validation (e.g., retirement mode, logging level)
//   - Logical validation (e.g., archiveThenDrop requires an archive path)
//
// The maintenance cron schedule is not validated here; the scheduler
// parses it at startup and reports errors with the parser's diagnostics.
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - expiry.premake_count: premake count must be at least 1
//	  - maintenance.archive_path: archive path is required when retirement mode is 'archiveThenDrop'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	expiry:
//	  partition_width: 720h
//	  premake_count: 3
//	  default_retention: 2160h
//
//	store:
//	  backend: "sqlite"
//	  sqlite:
//	    core_path: "data/core.db"
//	    payload_path: "data/payload.db"
//	    registry_path: "data/registry.db"
//
//	maintenance:
//	  schedule: "0 * * * *"
//	  retirement_mode: "hardDrop"
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Hot Reload
//
// The Watcher type watches the configuration file and triggers a reload
// callback after a debounce interval. ReloadConfig swaps the global
// configuration only when the new file loads and validates cleanly, so
// a broken edit never takes down a running daemon.
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
