// Package store provides a SQLite-backed query log. Each answered question
// is recorded with its safety label, answer path and citation count so
// operators can review usage with `lawglance history`. The log is write-only
// from the pipeline's point of view: it never feeds back into an answer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is one logged query.
type Entry struct {
	// ID is assigned by the database on insert.
	ID int64
	// Channel is the entry point that served the query: chat, message or cli.
	Channel string
	// Query is the trimmed user question.
	Query string
	// Safety is the classifier label.
	Safety string
	// Path is the answer state machine branch, or "error".
	Path string
	// HasContext is true when retrieval returned passages.
	HasContext bool
	// Citations is the number of citations returned.
	Citations int
	// Duration is the end-to-end pipeline latency.
	Duration time.Duration
	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time
}

// QueryLog persists and lists query log entries. Implementations must be
// safe for concurrent use.
type QueryLog interface {
	// Record persists e. CreatedAt defaults to now when zero.
	Record(ctx context.Context, e Entry) error
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// CountByPath returns the number of entries per answer path.
	CountByPath(ctx context.Context) (map[string]int, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a QueryLog backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the query log database.
// It resolves to ~/.lawglance/queries.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".lawglance")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "queries.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS queries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    channel      TEXT    NOT NULL,
    query        TEXT    NOT NULL,
    safety       TEXT    NOT NULL,
    path         TEXT    NOT NULL,
    has_context  INTEGER NOT NULL,
    citations    INTEGER NOT NULL,
    duration_ms  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (milliseconds)
);
CREATE INDEX IF NOT EXISTS idx_queries_created ON queries (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists a single query log entry.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	const q = `INSERT INTO queries
    (channel, query, safety, path, has_context, citations, duration_ms, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.Channel, e.Query, e.Safety, e.Path, boolInt(e.HasContext), e.Citations,
		e.Duration.Milliseconds(), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT id, channel, query, safety, path, has_context, citations, duration_ms, created_at
FROM   queries
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var hasCtx int
		var durMS, ts int64
		if err := rows.Scan(&e.ID, &e.Channel, &e.Query, &e.Safety, &e.Path, &hasCtx, &e.Citations, &durMS, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.HasContext = hasCtx != 0
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}

// CountByPath returns the number of logged entries for each answer path.
func (s *SQLiteStore) CountByPath(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, COUNT(*) FROM queries GROUP BY path`)
	if err != nil {
		return nil, fmt.Errorf("store: count by path: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			return nil, fmt.Errorf("store: count scan: %w", err)
		}
		counts[path] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: count rows: %w", err)
	}
	return counts, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
