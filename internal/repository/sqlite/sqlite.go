// Package sqlite implements the remote snippet table and the user accounts
// on top of SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code. No C compiler needed, works everywhere Go works.
//
// The "remote" in remote store is about ownership, not transport: every
// snippet row carries an owner_id and every query filters on it, which is the
// isolation a hosted table gives each signed-in account.
package sqlite

import (
	"database/sql"
	"fmt"

	// The underscore import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements both repository.RemoteStore and repository.UserRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and brings the schema up to date.
//
// dbPath examples:
//   - "data/shelf.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// SQLite serialises writers anyway, and with ":memory:" every new
	// connection would get its own empty database. Capping the pool at one
	// connection keeps ":memory:" usable from concurrent goroutines (the
	// migration worker pool) and costs nothing for a file database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode lets readers proceed while a write is
	// in flight. For ":memory:" SQLite ignores it and stays in "memory" mode.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
//
//	db, err := sqlite.New("data/shelf.db")
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// SchemaVersion returns the applied migration version. A dirty database
// (a migration failed half-way) is reported as an error.
func (db *DB) SchemaVersion() (uint, error) {
	version, dirty, err := schemaVersion(db.conn)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("sqlite: schema version %d is dirty", version)
	}
	return version, nil
}
