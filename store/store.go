// Package store persists patients, chat sessions, and the audit trail on
// SQLite. The driver is CGo-free; an in-memory DSN makes tests hermetic.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	age_years INTEGER NOT NULL DEFAULT 0,
	is_pregnant INTEGER NOT NULL DEFAULT 0,
	is_nursing INTEGER NOT NULL DEFAULT 0,
	egfr REAL NOT NULL DEFAULT 0,
	medical_record_number TEXT,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS drug_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL REFERENCES patients(id),
	drug_name TEXT NOT NULL,
	dose TEXT NOT NULL,
	frequency TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS allergies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL REFERENCES patients(id),
	allergen TEXT NOT NULL,
	allergy_type TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS adverse_reactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL REFERENCES patients(id),
	drug_name TEXT NOT NULL,
	symptoms TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	patient_id INTEGER REFERENCES patients(id),
	title TEXT NOT NULL DEFAULT 'New Session',
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	session_id TEXT,
	patient_id INTEGER,
	intent TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if necessary) the database at dsn and applies
// the schema. Use "file:novaguard.db" for a file store or
// "file:test?mode=memory&cache=shared" in tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// SQLite handles one writer; serializing through a single conn
	// avoids SQLITE_BUSY under the default driver settings.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
