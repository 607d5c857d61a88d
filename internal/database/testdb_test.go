package database_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/yasu-a/manaba-clone/internal/database"
)

// openTestDB returns an isolated in-memory SQLite database with the full
// schema applied, closed automatically at test cleanup. The DSN is keyed
// by the test's own name: SQLite's shared-cache in-memory mode hands the
// literal URI "file::memory:?cache=shared" to every caller that asks for
// it, so two parallel tests using that exact string would otherwise see
// the same database.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, database.EnsureSchema(context.Background(), db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}
