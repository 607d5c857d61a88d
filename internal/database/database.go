// Package database provides the SQLite-backed persistence layer for the
// crawl graph: connection setup, schema creation, and one repository type
// per table.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/yasu-a/manaba-clone/internal/config"
)

const (
	DefaultMaxOpenConns    = 1 // sqlite3 serializes writers; one connection avoids SQLITE_BUSY.
	DefaultConnMaxLifetime = 0
	DefaultPingTimeout     = 5 * time.Second
)

// Open connects to the database named by cfg, verifies it with a ping, and
// ensures the schema exists. The driver is selected by cfg.Driver, but only
// the "sqlite3" driver is registered, and the schema and repository queries
// use SQLite-specific SQL (AUTOINCREMENT, INSERT OR IGNORE); other drivers,
// MySQL included, are not supported.
func Open(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return db, nil
}

// execRequireRows wraps an Exec result, returning notFound when no row was
// affected and execErr was nil.
func execRequireRows(result sql.Result, execErr error, notFound error) error {
	if execErr != nil {
		return fmt.Errorf("exec: %w", execErr)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// ErrNotFound is a generic sentinel for single-row lookups that matched no
// record; repository methods that need a more specific error wrap this.
var ErrNotFound = errors.New("not found")

func wrapNoRows(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}
