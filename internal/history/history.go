// Package history implements the durable query-audit log: a SQLite-backed
// record of every turn the Orchestrator completes, independent of the
// in-memory Conversation Store. It is grounded directly on the teacher's
// internal/store.SQLiteStore (conversation persistence for the CLI agent),
// adapted from a per-workspace chat transcript into a per-session
// query/outcome audit trail — same WAL-mode single-writer connection
// shape, same migrate-then-prepared-statement pattern, different schema.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Disabled is the HistoryConfig.DBPath sentinel that turns the audit log
// off entirely.
const Disabled = "disabled"

// Store persists one row per completed turn: the session, the raw query
// text, whether it succeeded, and — for a failed turn — the error
// taxonomy stage from compose.ErrorMessage's keys.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns ~/.geostac/history.db, creating the directory if
// needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".geostac")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a Store at path and runs the schema migration.
// Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent sessions; reads
	// are infrequent enough (CLI/ops tooling only) that this never
	// bottlenecks a turn, which never blocks on this store anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS query_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    TEXT    NOT NULL,
    query_text    TEXT    NOT NULL,
    success       INTEGER NOT NULL,
    failure_stage TEXT    NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_log_session_created
    ON query_log (session_id, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// LogQuery records one turn's outcome. It satisfies orchestrator.History.
func (s *Store) LogQuery(ctx context.Context, sessionID, queryText string, success bool, failureStage string) error {
	const q = `INSERT INTO query_log (session_id, query_text, success, failure_stage, created_at) VALUES (?, ?, ?, ?, ?)`
	successInt := 0
	if success {
		successInt = 1
	}
	if _, err := s.db.ExecContext(ctx, q, sessionID, queryText, successInt, failureStage, time.Now().Unix()); err != nil {
		return fmt.Errorf("history: log query: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}
