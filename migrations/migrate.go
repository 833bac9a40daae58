// Package migrations embeds the SQL schema for the client-side SQLite store
// and the server-side PostgreSQL store and applies it with goose.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedMigrations embed.FS

// ErrNilDB is returned when a migration is requested on a nil handle.
var ErrNilDB = errors.New("db is nil")

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// MigrateSQLite applies the local record store schema.
func MigrateSQLite(db *sql.DB) error {
	return migrate(db, goose.DialectSQLite3, "sqlite")
}

// MigratePostgres applies the remote record store schema.
func MigratePostgres(db *sql.DB) error {
	return migrate(db, goose.DialectPostgres, "postgres")
}

func migrate(db *sql.DB, dialect goose.Dialect, dir string) error {
	if db == nil {
		return fmt.Errorf("migration error: %w", ErrNilDB)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
