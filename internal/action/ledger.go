// Package action validates and executes model-requested actions
// against a durable decision ledger. The ledger makes write-type
// actions idempotent: one ruling per distinct normalized action string,
// replayed forever, never deleted.
package action

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Ruling is a ledger verdict.
type Ruling string

const (
	RulingAllowed Ruling = "allowed"
	RulingDenied  Ruling = "denied"
	RulingFetch   Ruling = "fetch"
)

// Ledger is the durable key -> ruling map. Claim is atomic
// first-write-wins: concurrent sessions on the same campaign cannot
// lose updates.
type Ledger interface {
	// Get returns the ruling for a key, if one exists.
	Get(ctx context.Context, key string) (Ruling, bool, error)

	// Claim records a ruling for a key unless one already exists.
	// Returns true when this call wrote the entry.
	Claim(ctx context.Context, key string, ruling Ruling) (bool, error)
}

// SQLiteLedger stores rulings in a decision_log table. SQLite's
// transactional writes give the compare-and-swap semantics the shared
// campaign file needs.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger creates the ledger table if needed.
func NewSQLiteLedger(db *sql.DB) (*SQLiteLedger, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decision_log (
			key        TEXT PRIMARY KEY,
			ruling     TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return nil, fmt.Errorf("create decision_log: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Get returns the stored ruling for a key.
func (l *SQLiteLedger) Get(ctx context.Context, key string) (Ruling, bool, error) {
	var ruling string
	err := l.db.QueryRowContext(ctx,
		`SELECT ruling FROM decision_log WHERE key = ?`, key).Scan(&ruling)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read decision_log: %w", err)
	}
	return Ruling(ruling), true, nil
}

// Claim inserts the ruling if the key is unclaimed. ON CONFLICT DO
// NOTHING keeps the first writer's ruling under concurrent access.
func (l *SQLiteLedger) Claim(ctx context.Context, key string, ruling Ruling) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO decision_log (key, ruling) VALUES (?, ?)
		 ON CONFLICT(key) DO NOTHING`, key, string(ruling))
	if err != nil {
		return false, fmt.Errorf("write decision_log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write decision_log: %w", err)
	}
	return n == 1, nil
}

// NormalizeKey maps an action string to its ledger key.
func NormalizeKey(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
