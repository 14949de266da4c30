package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/expiry"
)

// coreSchemaVersion is the current core record schema version.
const coreSchemaVersion = 1

// coreSchema contains the SQL statements to create the core record schema.
const coreSchema = `
CREATE TABLE IF NOT EXISTS core_records (
    core_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    body TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_core_records_kind ON core_records(kind);
CREATE INDEX IF NOT EXISTS idx_core_records_created_at ON core_records(created_at);
`

// SQLiteCoreConfig contains configuration for the SQLite core store.
type SQLiteCoreConfig struct {
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

// DefaultSQLiteCoreConfig returns the default core store configuration.
func DefaultSQLiteCoreConfig() *SQLiteCoreConfig {
	return &SQLiteCoreConfig{
		Path:         "data/records.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteCoreStore implements CoreStore using SQLite.
type SQLiteCoreStore struct {
	db     *sql.DB
	config *SQLiteCoreConfig
	logger *slog.Logger
}

// NewSQLiteCoreStore creates a new SQLite-backed core record store.
// It initializes the schema and enables WAL mode if configured.
func NewSQLiteCoreStore(config *SQLiteCoreConfig) (*SQLiteCoreStore, error) {
	if config == nil {
		config = DefaultSQLiteCoreConfig()
	}

	logger := slog.Default().With("component", "expiry.store.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteCoreStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite core store initialized", "path", config.Path)
	return s, nil
}

// initialize sets up the schema and verifies its version.
func (s *SQLiteCoreStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return expiry.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return expiry.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(coreSchema); err != nil {
		return expiry.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now')) ON CONFLICT(version) DO NOTHING;`,
		coreSchemaVersion,
	); err != nil {
		return expiry.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return expiry.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != coreSchemaVersion {
		return expiry.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", coreSchemaVersion, version))
	}

	return nil
}

// Save persists a core record, replacing any previous row for the ID.
func (s *SQLiteCoreStore) Save(ctx context.Context, record expiry.CoreRecord) error {
	if record.CoreID == "" {
		return expiry.NewStorageError("sqlite", "save", fmt.Errorf("core ID cannot be empty"))
	}

	body, err := json.Marshal(record.Body)
	if err != nil {
		return expiry.NewStorageError("sqlite", "save", fmt.Errorf("failed to marshal body: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO core_records (core_id, kind, created_at, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (core_id) DO UPDATE SET
			kind = excluded.kind,
			created_at = excluded.created_at,
			body = excluded.body
	`, record.CoreID, record.Kind, record.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return expiry.NewStorageError("sqlite", "save", err)
	}
	return nil
}

// Get returns the core record for the ID, or nil when absent.
func (s *SQLiteCoreStore) Get(ctx context.Context, coreID string) (*expiry.CoreRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT core_id, kind, created_at, body FROM core_records WHERE core_id = ?`, coreID)

	record, err := scanCoreRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "get", err)
	}
	return &record, nil
}

// ListStream returns a channel of core records matching the filter.
func (s *SQLiteCoreStore) ListStream(ctx context.Context, filter CoreFilter) (<-chan expiry.CoreRecord, <-chan error, error) {
	query := `SELECT core_id, kind, created_at, body FROM core_records`
	where, args := buildCoreWhere(filter)
	query += where + ` ORDER BY core_id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit == 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, expiry.NewStorageError("sqlite", "list", err)
	}

	recordsCh := make(chan expiry.CoreRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)
		defer rows.Close()

		for rows.Next() {
			record, err := scanCoreRecord(rows.Scan)
			if err != nil {
				errCh <- expiry.NewStorageError("sqlite", "list", err)
				return
			}
			select {
			case recordsCh <- record:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- expiry.NewStorageError("sqlite", "list", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Delete removes a core record. Absent records are ignored.
func (s *SQLiteCoreStore) Delete(ctx context.Context, coreID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM core_records WHERE core_id = ?`, coreID); err != nil {
		return expiry.NewStorageError("sqlite", "delete", err)
	}
	return nil
}

// Close releases any resources held by the store.
func (s *SQLiteCoreStore) Close() error {
	if err := s.db.Close(); err != nil {
		return expiry.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// buildCoreWhere builds the WHERE clause for a core filter.
func buildCoreWhere(filter CoreFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.CoreIDPrefix != "" {
		conditions = append(conditions, "core_id LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(filter.CoreIDPrefix)+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	where := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}
	return where, args
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// scanCoreRecord decodes one core row via the given scan function.
func scanCoreRecord(scan func(...interface{}) error) (expiry.CoreRecord, error) {
	var (
		coreID      string
		kind        string
		createdNano int64
		bodyJSON    sql.NullString
	)
	if err := scan(&coreID, &kind, &createdNano, &bodyJSON); err != nil {
		return expiry.CoreRecord{}, err
	}

	record := expiry.CoreRecord{
		CoreID:    coreID,
		Kind:      kind,
		CreatedAt: time.Unix(0, createdNano).UTC(),
	}
	if bodyJSON.Valid && bodyJSON.String != "" {
		if err := json.Unmarshal([]byte(bodyJSON.String), &record.Body); err != nil {
			return expiry.CoreRecord{}, fmt.Errorf("failed to unmarshal body: %w", err)
		}
	}
	return record, nil
}
