// Package db provides the SQLite connection and schema for lightctl.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema.
// ":memory:" opens a private in-memory database.
func Open(dbPath string) (*DB, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:") {
		dsn = dbPath
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == dbPath {
		// Every pooled connection would get its own empty in-memory database
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Command ledger - append-only history of commands and readings applied to lights
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS command_ledger (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			light_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			payload TEXT,
			source TEXT,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_light_ts ON command_ledger(light_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_ledger_type_ts ON command_ledger(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create command_ledger table: %w", err)
	}

	// Latest snapshot per light, revision bumped on every save
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS light_snapshots (
			light_id TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL,
			revision INTEGER NOT NULL DEFAULT 1,
			saved_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create light_snapshots table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
