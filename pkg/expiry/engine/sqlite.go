package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/expiry"
)

// SQLiteEngineConfig contains configuration for the SQLite payload engine.
type SQLiteEngineConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteEngineConfig returns the default engine configuration.
func DefaultSQLiteEngineConfig() *SQLiteEngineConfig {
	return &SQLiteEngineConfig{
		Path:         "data/payloads.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteEngine implements the Engine interface using SQLite, with one table
// per partition. Table names derive from the partition sequence, so the
// same partition always maps to the same table.
type SQLiteEngine struct {
	db     *sql.DB
	config *SQLiteEngineConfig
	logger *slog.Logger

	// tables caches which partition tables are known to exist, saving a
	// DDL round-trip per insert.
	tables map[int64]struct{}
	mu     sync.Mutex
}

// NewSQLiteEngine creates a new SQLite payload engine.
// It configures WAL mode and the busy timeout if enabled in the config.
func NewSQLiteEngine(config *SQLiteEngineConfig) (*SQLiteEngine, error) {
	if config == nil {
		config = DefaultSQLiteEngineConfig()
	}

	logger := slog.Default().With("component", "expiry.engine.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	e := &SQLiteEngine{
		db:     db,
		config: config,
		logger: logger,
		tables: make(map[int64]struct{}),
	}

	if err := e.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite payload engine initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return e, nil
}

// initialize applies the connection pragmas.
func (e *SQLiteEngine) initialize() error {
	if e.config.WALMode {
		if _, err := e.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return expiry.NewStorageError("sqlite", "enable_wal", err)
		}
		e.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := e.config.BusyTimeout.Milliseconds()
	if _, err := e.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return expiry.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := e.db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		return expiry.NewStorageError("sqlite", "set_synchronous", err)
	}

	return nil
}

// tableName derives the partition's table name from its sequence.
// Sequences are non-negative in practice; the format keeps lexical and
// numeric order aligned either way.
func tableName(part expiry.Partition) string {
	return fmt.Sprintf("expiring_p%08d", part.Sequence)
}

// CreatePartition materializes the partition's table.
func (e *SQLiteEngine) CreatePartition(ctx context.Context, part expiry.Partition) error {
	return e.ensureTable(ctx, part)
}

// ensureTable creates the partition table if it does not exist yet.
// The schema is identical for every partition: one row per owner.
func (e *SQLiteEngine) ensureTable(ctx context.Context, part expiry.Partition) error {
	e.mu.Lock()
	if _, ok := e.tables[part.Sequence]; ok {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	table := tableName(part)
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		core_id TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL,
		attributes TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_%s_expires_at ON %s(expires_at);
	`, table, table, table)

	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return expiry.NewStorageError("sqlite", "create_partition", err)
	}

	e.mu.Lock()
	e.tables[part.Sequence] = struct{}{}
	e.mu.Unlock()

	e.logger.Debug("partition table ensured", "partition_id", string(part.ID), "table", table)
	return nil
}

// DropPartition removes the partition's table and all rows in it.
func (e *SQLiteEngine) DropPartition(ctx context.Context, part expiry.Partition) error {
	table := tableName(part)

	e.mu.Lock()
	delete(e.tables, part.Sequence)
	e.mu.Unlock()

	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)); err != nil {
		return expiry.NewDropError(part.ID, err)
	}

	e.logger.Debug("partition table dropped", "partition_id", string(part.ID), "table", table)
	return nil
}

// Insert upserts one owner's payload row into the partition.
func (e *SQLiteEngine) Insert(ctx context.Context, part expiry.Partition, payload expiry.Payload) error {
	if payload.CoreID == "" {
		return expiry.NewStorageError("sqlite", "insert", fmt.Errorf("core ID cannot be empty"))
	}
	if payload.ExpiresAt.IsZero() {
		return expiry.NewStorageError("sqlite", "insert", fmt.Errorf("expiry timestamp cannot be zero"))
	}

	// The table may not exist yet when the partition is still planned.
	if err := e.ensureTable(ctx, part); err != nil {
		return err
	}

	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return expiry.NewStorageError("sqlite", "insert", fmt.Errorf("failed to marshal attributes: %w", err))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (core_id, expires_at, attributes)
		VALUES (?, ?, ?)
		ON CONFLICT (core_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			attributes = excluded.attributes
	`, tableName(part))

	if _, err := e.db.ExecContext(ctx, query, payload.CoreID, payload.ExpiresAt.UnixNano(), string(attrs)); err != nil {
		return expiry.NewStorageError("sqlite", "insert", err)
	}
	return nil
}

// DeleteOwner removes an owner's row from the partition.
func (e *SQLiteEngine) DeleteOwner(ctx context.Context, part expiry.Partition, coreID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE core_id = ?", tableName(part))
	if _, err := e.db.ExecContext(ctx, query, coreID); err != nil {
		if isMissingTable(err) {
			return nil
		}
		return expiry.NewStorageError("sqlite", "delete_owner", err)
	}
	return nil
}

// GetOwner returns the owner's payload row, or nil when absent.
func (e *SQLiteEngine) GetOwner(ctx context.Context, part expiry.Partition, coreID string) (*expiry.Payload, error) {
	query := fmt.Sprintf("SELECT core_id, expires_at, attributes FROM %s WHERE core_id = ?", tableName(part))

	payload, err := scanPayload(e.db.QueryRowContext(ctx, query, coreID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, expiry.NewStorageError("sqlite", "get_owner", err)
	}
	return &payload, nil
}

// Scan returns all payload rows in the partition ordered by owner.
func (e *SQLiteEngine) Scan(ctx context.Context, part expiry.Partition) ([]expiry.Payload, error) {
	query := fmt.Sprintf("SELECT core_id, expires_at, attributes FROM %s ORDER BY core_id", tableName(part))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, expiry.NewStorageError("sqlite", "scan", err)
	}
	defer rows.Close()

	var payloads []expiry.Payload
	for rows.Next() {
		payload, err := scanPayload(rows.Scan)
		if err != nil {
			return nil, expiry.NewStorageError("sqlite", "scan", err)
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, expiry.NewStorageError("sqlite", "scan", err)
	}
	return payloads, nil
}

// Count returns the number of payload rows in the partition.
func (e *SQLiteEngine) Count(ctx context.Context, part expiry.Partition) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName(part))

	var count int64
	if err := e.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, expiry.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Close releases any resources held by the engine.
func (e *SQLiteEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return expiry.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// scanPayload decodes one payload row via the given scan function.
func scanPayload(scan func(...interface{}) error) (expiry.Payload, error) {
	var (
		coreID      string
		expiresNano int64
		attrsJSON   sql.NullString
	)
	if err := scan(&coreID, &expiresNano, &attrsJSON); err != nil {
		return expiry.Payload{}, err
	}

	payload := expiry.Payload{
		CoreID:    coreID,
		ExpiresAt: time.Unix(0, expiresNano).UTC(),
	}
	if attrsJSON.Valid && attrsJSON.String != "" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &payload.Attributes); err != nil {
			return expiry.Payload{}, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	return payload, nil
}

// isMissingTable reports whether the error is SQLite's "no such table".
// An absent table means the partition's storage is gone, which reads and
// deletes treat as empty rather than failed.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
