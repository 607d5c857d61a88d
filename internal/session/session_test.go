package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yasu-a/manaba-clone/internal/session"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE widget (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_CommitsOnSuccess(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	err := session.Run(context.Background(), db, func(sctx *session.Context) error {
		_, err := sctx.Tx.Exec(`INSERT INTO widget (name) VALUES (?)`, "gear")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM widget`))
	require.Equal(t, 1, count)
}

func TestRun_RollsBackOnError(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	sentinel := errors.New("boom")
	err := session.Run(context.Background(), db, func(sctx *session.Context) error {
		_, execErr := sctx.Tx.Exec(`INSERT INTO widget (name) VALUES (?)`, "gear")
		require.NoError(t, execErr)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM widget`))
	require.Equal(t, 0, count)
}

func TestRun_ReadOnlyRollsBackEvenOnSuccess(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	err := session.Run(context.Background(), db, func(sctx *session.Context) error {
		sctx.ReadOnly()
		_, execErr := sctx.Tx.Exec(`INSERT INTO widget (name) VALUES (?)`, "gear")
		return execErr
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM widget`))
	require.Equal(t, 0, count)
}

func TestRun_WrapsBeginFailureOnClosedDB(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	require.NoError(t, db.Close())

	err := session.Run(context.Background(), db, func(sctx *session.Context) error {
		return nil
	})
	require.Error(t, err)
}
