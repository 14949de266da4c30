package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/saturn/pkg/expiry"
)

// SQLiteRegistry implements Registry using SQLite for persistence.
// It is suitable for single-instance deployments where the partition
// catalog must survive restarts.
//
// SQLiteRegistry uses a write-ahead log (WAL) for better concurrent
// performance and periodic checkpointing to balance write performance
// with durability.
type SQLiteRegistry struct {
	db        *sql.DB
	dbPath    string
	grid      expiry.Grid
	done      chan struct{}
	mu        sync.RWMutex
	closeOnce sync.Once

	// preparedStatements contains pre-compiled SQL statements for performance
	insertStmt *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
	casStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// SQLiteRegistryConfig configures the SQLite registry.
type SQLiteRegistryConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// NewSQLiteRegistry creates a new SQLite-backed registry with default settings.
func NewSQLiteRegistry(path string, grid expiry.Grid) (*SQLiteRegistry, error) {
	return NewSQLiteRegistryWithConfig(SQLiteRegistryConfig{Path: path}, grid)
}

// NewSQLiteRegistryWithConfig creates a new SQLite-backed registry with
// custom configuration.
func NewSQLiteRegistryWithConfig(cfg SQLiteRegistryConfig, grid expiry.Grid) (*SQLiteRegistry, error) {
	// Apply defaults
	if cfg.Path == "" {
		return nil, fmt.Errorf("registry path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	reg := &SQLiteRegistry{
		db:     db,
		dbPath: cfg.Path,
		grid:   grid,
		done:   make(chan struct{}),
	}

	if err := reg.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize registry schema: %w", err)
	}

	if err := reg.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare registry statements: %w", err)
	}

	go reg.checkpointLoop(cfg.CheckpointInterval)

	return reg, nil
}

// initSchema creates the catalog schema if it doesn't exist.
func (s *SQLiteRegistry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS partitions (
		partition_id TEXT PRIMARY KEY,
		range_start INTEGER NOT NULL,
		range_end INTEGER NOT NULL,
		state TEXT NOT NULL,
		sequence INTEGER NOT NULL UNIQUE,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_partitions_state ON partitions(state);
	CREATE INDEX IF NOT EXISTS idx_partitions_range_end ON partitions(range_end);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteRegistry) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT OR IGNORE INTO partitions (partition_id, range_start, range_end, state, sequence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT partition_id, range_start, range_end, state, sequence, updated_at
		FROM partitions
		WHERE partition_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT partition_id, range_start, range_end, state, sequence, updated_at
		FROM partitions
		ORDER BY sequence
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.casStmt, err = s.db.Prepare(`
		UPDATE partitions
		SET state = ?, updated_at = ?
		WHERE partition_id = ? AND state = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare transition statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM partitions
		WHERE partition_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Register creates a catalog entry for the range, or reports the existing one.
func (s *SQLiteRegistry) Register(ctx context.Context, r expiry.Range) (expiry.Partition, error) {
	seq, err := alignRange(s.grid, r)
	if err != nil {
		return expiry.Partition{}, err
	}
	id := expiry.PartitionIDForSequence(seq)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	result, err := s.insertStmt.ExecContext(ctx,
		string(id),
		r.Start.UnixNano(),
		r.End.UnixNano(),
		string(expiry.StatePlanned),
		seq,
		now.Unix(),
	)
	if err != nil {
		return expiry.Partition{}, fmt.Errorf("failed to register partition: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return expiry.Partition{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 0 {
		// Lost to an earlier registration; report the entry that won.
		existing, err := s.getLocked(ctx, id)
		if err != nil {
			return expiry.Partition{}, err
		}
		return expiry.Partition{}, expiry.NewAlreadyExistsError(existing)
	}

	return expiry.Partition{
		ID:        id,
		Range:     r,
		State:     expiry.StatePlanned,
		Sequence:  seq,
		UpdatedAt: now,
	}, nil
}

// Get returns the partition with the given ID.
func (s *SQLiteRegistry) Get(ctx context.Context, id expiry.PartitionID) (expiry.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(ctx, id)
}

// getLocked fetches one row. Callers must hold at least a read lock.
func (s *SQLiteRegistry) getLocked(ctx context.Context, id expiry.PartitionID) (expiry.Partition, error) {
	row := s.getStmt.QueryRowContext(ctx, string(id))
	part, err := scanPartition(row.Scan)
	if err == sql.ErrNoRows {
		return expiry.Partition{}, expiry.NewPartitionNotFoundError(id)
	}
	if err != nil {
		return expiry.Partition{}, fmt.Errorf("failed to get partition: %w", err)
	}
	return part, nil
}

// List returns all partitions ordered by sequence.
func (s *SQLiteRegistry) List(ctx context.Context) ([]expiry.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer rows.Close()

	return collectPartitions(rows)
}

// ListByState returns partitions in any of the given states, ordered by sequence.
func (s *SQLiteRegistry) ListByState(ctx context.Context, states ...expiry.State) ([]expiry.Partition, error) {
	if len(states) == 0 {
		return nil, nil
	}

	query := `
		SELECT partition_id, range_start, range_end, state, sequence, updated_at
		FROM partitions
		WHERE state IN (?` + repeatPlaceholder(len(states)-1) + `)
		ORDER BY sequence
	`
	args := make([]interface{}, 0, len(states))
	for _, st := range states {
		args = append(args, string(st))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions by state: %w", err)
	}
	defer rows.Close()

	return collectPartitions(rows)
}

// Transition moves a partition between states with compare-and-set semantics.
// The UPDATE is guarded on the expected state; zero rows affected means the
// partition is either gone or in another state, and a follow-up read decides
// which error to report.
func (s *SQLiteRegistry) Transition(ctx context.Context, id expiry.PartitionID, from, to expiry.State) (expiry.Partition, error) {
	if err := checkTransition(from, to); err != nil {
		return expiry.Partition{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	result, err := s.casStmt.ExecContext(ctx, string(to), now.Unix(), string(id), string(from))
	if err != nil {
		return expiry.Partition{}, fmt.Errorf("failed to transition partition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return expiry.Partition{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		observed, err := s.getLocked(ctx, id)
		if err != nil {
			return expiry.Partition{}, err
		}
		return expiry.Partition{}, expiry.NewConflictError(id, from, observed.State)
	}

	return s.getLocked(ctx, id)
}

// Delete removes a partition's catalog entry. Absent entries are ignored.
func (s *SQLiteRegistry) Delete(ctx context.Context, id expiry.PartitionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, string(id)); err != nil {
		return fmt.Errorf("failed to delete partition: %w", err)
	}
	return nil
}

// Close releases any resources held by the registry.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteRegistry) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.insertStmt, s.getStmt, s.listStmt, s.casStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteRegistry) checkpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// scanPartition decodes one catalog row via the given scan function.
func scanPartition(scan func(...interface{}) error) (expiry.Partition, error) {
	var (
		id        string
		startNano int64
		endNano   int64
		state     string
		sequence  int64
		updatedAt int64
	)
	if err := scan(&id, &startNano, &endNano, &state, &sequence, &updatedAt); err != nil {
		return expiry.Partition{}, err
	}
	return expiry.Partition{
		ID: expiry.PartitionID(id),
		Range: expiry.Range{
			Start: time.Unix(0, startNano).UTC(),
			End:   time.Unix(0, endNano).UTC(),
		},
		State:     expiry.State(state),
		Sequence:  sequence,
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// collectPartitions drains a result set into a slice.
func collectPartitions(rows *sql.Rows) ([]expiry.Partition, error) {
	var parts []expiry.Partition
	for rows.Next() {
		part, err := scanPartition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partition rows: %w", err)
	}
	return parts, nil
}

// repeatPlaceholder returns ", ?" repeated n times for IN clauses.
func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
