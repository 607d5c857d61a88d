// Package session implements a scoped transactional unit around the
// store that commits on success and rolls back on error.
package session

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Context wraps one *sqlx.Tx for the lifetime of a single crawl step,
// scrape walk, or download pass. It is not safe for concurrent use: a
// session's lifetime spans at most one step, on one goroutine.
type Context struct {
	Tx     *sqlx.Tx
	commit bool
}

// Run opens a transaction against db, invokes fn with a *Context, and on
// fn's successful return (nil error) commits; on any error it rolls back
// and returns the original error unwrapped (so callers can still
// errors.Is/As against sentinels raised inside fn).
func Run(ctx context.Context, db *sqlx.DB, fn func(*Context) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	sctx := &Context{Tx: tx, commit: true}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(sctx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if !sctx.commit {
		return tx.Rollback()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// ReadOnly marks this session context as read-only: its transaction is
// rolled back (not committed) on normal return. Read-only sessions still
// use a transaction so reads observe one consistent snapshot.
func (c *Context) ReadOnly() {
	c.commit = false
}
