// Package store persists read-only root snapshots to SQLite so the CLI can
// answer symbol lookups without reparsing a project.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for grove snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
  id              TEXT PRIMARY KEY,
  root            TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL,
  file_count      INTEGER NOT NULL,
  symbol_count    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  snapshot_id     TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  file_id         INTEGER NOT NULL,
  path            TEXT NOT NULL,
  hash            TEXT NOT NULL,
  line_count      INTEGER NOT NULL,
  PRIMARY KEY (snapshot_id, file_id)
);

CREATE TABLE IF NOT EXISTS module_links (
  id              INTEGER PRIMARY KEY,
  snapshot_id     TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  parent_file     INTEGER NOT NULL,
  name            TEXT NOT NULL,
  child_file      INTEGER,
  resolved        BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  snapshot_id     TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  file_id         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  name_start      INTEGER NOT NULL,
  line            INTEGER NOT NULL,
  col             INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_root ON snapshots(root, created_at);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(snapshot_id, path);
CREATE INDEX IF NOT EXISTS idx_module_links_snapshot ON module_links(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(snapshot_id, name);
`
