package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/callisto/pkg/pacer"
)

// SQLiteBackend implements Backend using SQLite for persistence.
// This backend provides durable storage across restarts and is suitable for
// single-instance deployments.
//
// SQLiteBackend uses a write-ahead log (WAL) for better concurrent
// performance and automatic checkpointing to balance write performance with
// durability.
type SQLiteBackend struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	// prepared statements for the hot write paths
	saveViolationStmt *sql.Stmt
	saveSnapshotStmt  *sql.Stmt
	pruneViolStmt     *sql.Stmt
	pruneSnapStmt     *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a new SQLite journal backend with default
// settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteBackendWithConfig creates a new SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go backend.checkpointLoop()

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		channel TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		wait_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_violations_ts ON violations(ts);
	CREATE INDEX IF NOT EXISTS idx_violations_channel ON violations(channel);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		channel TEXT NOT NULL,
		stats TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for the write paths. List
// queries carry optional filters and are built per call instead.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveViolationStmt, err = s.db.Prepare(`
		INSERT INTO violations (id, ts, channel, endpoint, wait_ms)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare violation insert: %w", err)
	}

	s.saveSnapshotStmt, err = s.db.Prepare(`
		INSERT INTO snapshots (id, ts, channel, stats)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}

	s.pruneViolStmt, err = s.db.Prepare(`DELETE FROM violations WHERE ts < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare violation prune: %w", err)
	}

	s.pruneSnapStmt, err = s.db.Prepare(`DELETE FROM snapshots WHERE ts < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot prune: %w", err)
	}

	return nil
}

// SaveViolation persists a throttle violation entry.
func (s *SQLiteBackend) SaveViolation(ctx context.Context, entry *ViolationEntry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.saveViolationStmt.ExecContext(ctx,
		entry.ID,
		entry.Time.UnixMilli(),
		entry.Channel,
		entry.Endpoint,
		entry.WaitTime.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save violation: %w", err)
	}

	return nil
}

// SaveSnapshot persists a channel statistics snapshot.
func (s *SQLiteBackend) SaveSnapshot(ctx context.Context, entry *SnapshotEntry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}

	statsJSON, err := json.Marshal(entry.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.saveSnapshotStmt.ExecContext(ctx,
		entry.ID,
		entry.Time.UnixMilli(),
		entry.Channel,
		string(statsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// ListViolations returns violations matching the query, newest first.
func (s *SQLiteBackend) ListViolations(ctx context.Context, query ViolationQuery) ([]*ViolationEntry, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		conds []string
		args  []any
	)
	if query.Channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, query.Channel)
	}
	if query.Endpoint != "" {
		conds = append(conds, "endpoint = ?")
		args = append(args, query.Endpoint)
	}
	if !query.Since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, query.Since.UnixMilli())
	}

	q := "SELECT id, ts, channel, endpoint, wait_ms FROM violations"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var entries []*ViolationEntry
	for rows.Next() {
		var (
			entry  ViolationEntry
			ts     int64
			waitMS int64
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.Channel, &entry.Endpoint, &waitMS); err != nil {
			return nil, fmt.Errorf("failed to scan violation row: %w", err)
		}
		entry.Time = time.UnixMilli(ts)
		entry.WaitTime = time.Duration(waitMS) * time.Millisecond
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating violation rows: %w", err)
	}

	return entries, nil
}

// CountViolations returns the number of violations on a channel at or after
// since.
func (s *SQLiteBackend) CountViolations(ctx context.Context, channel string, since time.Time) (int64, error) {
	var (
		conds []string
		args  []any
	)
	if channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, channel)
	}
	if !since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, since.UnixMilli())
	}

	q := "SELECT COUNT(*) FROM violations"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}

	return count, nil
}

// ListSnapshots returns snapshots for a channel at or after since, newest
// first.
func (s *SQLiteBackend) ListSnapshots(ctx context.Context, channel string, since time.Time, limit int) ([]*SnapshotEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		conds []string
		args  []any
	)
	if channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, channel)
	}
	if !since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, since.UnixMilli())
	}

	q := "SELECT id, ts, channel, stats FROM snapshots"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []*SnapshotEntry
	for rows.Next() {
		var (
			entry     SnapshotEntry
			ts        int64
			statsJSON string
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.Channel, &statsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		entry.Time = time.UnixMilli(ts)
		entry.Stats = pacer.ChannelSnapshot{}
		if err := json.Unmarshal([]byte(statsJSON), &entry.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot stats: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return entries, nil
}

// Prune removes entries older than the cutoff from both tables.
func (s *SQLiteBackend) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := olderThan.UnixMilli()

	var deleted int64

	res, err := s.pruneViolStmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune violations: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += n
	}

	res, err = s.pruneSnapStmt.ExecContext(ctx, cutoff)
	if err != nil {
		return deleted, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += n
	}

	return deleted, nil
}

// Close releases any resources held by the backend.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		// Signal checkpoint goroutine to stop
		close(s.done)

		for _, stmt := range []*sql.Stmt{
			s.saveViolationStmt,
			s.saveSnapshotStmt,
			s.pruneViolStmt,
			s.pruneSnapStmt,
		} {
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
func (s *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
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
