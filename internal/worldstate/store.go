// Package worldstate owns the campaign SQLite database: the ingested
// game-state snapshot the archival advisor reports from, the directive
// log written by UPDATE actions, and the dialogue index behind the
// session transcripts.
package worldstate

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps the campaign database.
type Store struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// Open initializes the campaign database at the given path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create campaign dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open campaign db: %w", err)
	}
	// Single connection keeps concurrent writers serialized at the
	// pool instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gs_nations (
		nation_key    INTEGER PRIMARY KEY,
		name          TEXT NOT NULL,
		gdp_t         REAL,
		gdp_delta_pct REAL,
		unrest        REAL,
		unrest_delta  REAL,
		democracy     REAL,
		nukes         INTEGER
	);

	CREATE TABLE IF NOT EXISTS gs_faction_resources (
		faction_key  INTEGER PRIMARY KEY,
		faction_name TEXT NOT NULL,
		is_player    INTEGER NOT NULL DEFAULT 0,
		money        INTEGER,
		influence    INTEGER,
		ops          INTEGER,
		boost        REAL
	);

	CREATE TABLE IF NOT EXISTS gs_councilors (
		councilor_key  INTEGER PRIMARY KEY,
		name           TEXT NOT NULL,
		councilor_type TEXT,
		faction_name   TEXT,
		is_player      INTEGER NOT NULL DEFAULT 0,
		intel_level    REAL,
		suspicion      REAL,
		location       TEXT
	);

	CREATE TABLE IF NOT EXISTS directives (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		body       TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS dialogue (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		speaker    TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_dialogue_session ON dialogue(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create campaign schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for collaborators sharing the
// campaign database (decision ledger, transcript index).
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
