package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/engine"
	"mercator-hq/saturn/pkg/expiry/registry"
	"mercator-hq/saturn/pkg/expiry/store"
)

// backends bundles the three stores every command wires together: the core
// record store, the partition catalog, and the partition payload engine.
type backends struct {
	cores    store.CoreStore
	registry registry.Registry
	engine   engine.Engine
}

// Close releases all three stores. A close failure is reported and does
// not stop the remaining stores from closing.
func (b *backends) Close() {
	if err := b.engine.Close(); err != nil {
		slog.Warn("failed to close payload engine", "error", err)
	}
	if err := b.registry.Close(); err != nil {
		slog.Warn("failed to close partition registry", "error", err)
	}
	if err := b.cores.Close(); err != nil {
		slog.Warn("failed to close core store", "error", err)
	}
}

// openBackends creates the store backends selected by the configuration.
// SQLite database directories are created as needed; the library
// constructors expect them to exist.
func openBackends(cfg *config.Config) (*backends, error) {
	grid := expiryPolicy(cfg).Grid()

	switch cfg.Store.Backend {
	case "sqlite":
		for _, path := range []string{
			cfg.Store.SQLite.CorePath,
			cfg.Store.SQLite.PayloadPath,
			cfg.Store.SQLite.RegistryPath,
		} {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		cores, err := store.NewSQLiteCoreStore(&store.SQLiteCoreConfig{
			Path:         cfg.Store.SQLite.CorePath,
			MaxOpenConns: cfg.Store.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Store.SQLite.MaxIdleConns,
			WALMode:      cfg.Store.SQLite.WALMode,
			BusyTimeout:  cfg.Store.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create core store: %w", err)
		}

		reg, err := registry.NewSQLiteRegistryWithConfig(registry.SQLiteRegistryConfig{
			Path:        cfg.Store.SQLite.RegistryPath,
			BusyTimeout: cfg.Store.SQLite.BusyTimeout,
		}, grid)
		if err != nil {
			cores.Close()
			return nil, fmt.Errorf("failed to create partition registry: %w", err)
		}

		eng, err := engine.NewSQLiteEngine(&engine.SQLiteEngineConfig{
			Path:         cfg.Store.SQLite.PayloadPath,
			MaxOpenConns: cfg.Store.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Store.SQLite.MaxIdleConns,
			WALMode:      cfg.Store.SQLite.WALMode,
			BusyTimeout:  cfg.Store.SQLite.BusyTimeout,
		})
		if err != nil {
			reg.Close()
			cores.Close()
			return nil, fmt.Errorf("failed to create payload engine: %w", err)
		}

		return &backends{cores: cores, registry: reg, engine: eng}, nil

	case "memory":
		return &backends{
			cores:    store.NewMemoryCoreStore(),
			registry: registry.NewMemoryRegistry(grid),
			engine:   engine.NewMemoryEngine(),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: sqlite, memory)", cfg.Store.Backend)
	}
}

// expiryPolicy translates the daemon configuration into the library policy.
// The config exposes "delete retired entries"; the library speaks in terms
// of keeping tombstones, so the flag inverts here.
func expiryPolicy(cfg *config.Config) *expiry.Policy {
	return &expiry.Policy{
		Epoch:              cfg.Expiry.Epoch,
		PartitionWidth:     cfg.Expiry.PartitionWidth,
		PremakeCount:       cfg.Expiry.PremakeCount,
		GracePeriod:        cfg.Expiry.GracePeriod,
		RetirementMode:     expiry.RetirementMode(cfg.Maintenance.RetirementMode),
		KeepRetiredEntries: !cfg.Maintenance.DeleteRetiredEntries,
		DefaultRetention:   cfg.Expiry.DefaultRetention,
	}
}
