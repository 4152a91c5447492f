package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// SCHEMA MIGRATIONS:
// Each file in migrations/ is NNNNNN_name.up.sql (+ a matching .down.sql).
// golang-migrate records the applied version in schema_migrations, so
// running migrateUp on every start is safe: already-applied files are skipped.
//
// The sqlite database driver from golang-migrate is itself built on
// modernc.org/sqlite, so this stays CGo-free.

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrateUp applies every pending migration.
//
// We deliberately never call m.Close(): it would close conn, which the
// caller still owns.
func migrateUp(conn *sql.DB) error {
	m, err := newMigrate(conn)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// schemaVersion reports the applied schema version and whether the last
// migration left the database dirty.
func schemaVersion(conn *sql.DB) (uint, bool, error) {
	m, err := newMigrate(conn)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

func newMigrate(conn *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}
