// Package storage opens the local SQLite database that backs the action
// history.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures the action log exists. The path must be on a local filesystem.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := requireLocal(path, detectFilesystemType); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.ExecContext(pctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables and indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS action_log (
  id             TEXT PRIMARY KEY,
  command        TEXT NOT NULL,
  action_type    TEXT,
  target         TEXT,
  items          JSON NOT NULL DEFAULT '[]',
  action         TEXT,
  payload_digest TEXT NOT NULL,
  status         TEXT NOT NULL,
  detail         TEXT,
  error          TEXT,
  stdout         TEXT,
  stderr         TEXT,
  exit_code      INTEGER,
  created_at     TEXT NOT NULL,
  completed_at   TEXT
);`,
		`CREATE INDEX IF NOT EXISTS action_log_created_at_idx ON action_log(created_at);`,
		`CREATE INDEX IF NOT EXISTS action_log_status_idx ON action_log(status);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
