// Package store is the field agent's on-device persistence substrate.
// A single SQLite file holds both the durable mirror of the bale set
// and the offline mutation queue, so an operator can keep working with
// no connectivity and reconcile later.
package store

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Common store errors
var (
	ErrNotFound = errors.New("record not present in local store")
)

// Store is the durable on-device database
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the agent database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The agent is a single logical session; one connection keeps
	// SQLite happy under concurrent drain and refresh.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bales (
			uuid TEXT PRIMARY KEY,
			tag TEXT NOT NULL,
			status TEXT NOT NULL,
			plot TEXT NOT NULL,
			payload BLOB NOT NULL,
			offline_updated_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bales_status ON bales(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bales_plot ON bales(plot)`,
		`CREATE TABLE IF NOT EXISTS offline_queue (
			record_id TEXT PRIMARY KEY,
			target_status TEXT NOT NULL,
			enqueued_at INTEGER NOT NULL,
			position INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
