package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/hashid"
)

// ErrMissingGroupName is returned when attempting to insert a Lookup for a
// non-null URL without a group name.
var ErrMissingGroupName = errors.New("lookup: url requires a non-null group_name")

// LookupRepository persists the URL identity table: one row per distinct
// URL, interned by its 63-bit hash id and reused across jobs.
type LookupRepository struct{}

// NewLookupRepository constructs a LookupRepository. It holds no state;
// every method takes the session's *sqlx.Tx explicitly rather than
// holding a repository-owned connection.
func NewLookupRepository() *LookupRepository {
	return &LookupRepository{}
}

// EnsureNullSentinel inserts the reserved null-URL Lookup (id=1, url=NULL,
// group_name=NULL) if it does not already exist. The crawl engine's
// Initialize calls it before creating each job; repeated calls are no-ops.
func (r *LookupRepository) EnsureNullSentinel(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO lookup (id, url, group_name) VALUES (?, NULL, NULL)`,
		hashid.OfNull(),
	)
	if err != nil {
		return fmt.Errorf("ensure null lookup sentinel: %w", err)
	}
	return nil
}

// GetOrCreate interns url under its classified group name, returning the
// existing Lookup row if one with the same id already exists (content-
// addressed dedup across jobs). url and
// groupName must both be non-empty; use EnsureNullSentinel for the null
// sentinel instead.
func (r *LookupRepository) GetOrCreate(ctx context.Context, tx *sqlx.Tx, url, groupName string) (*domain.Lookup, error) {
	if groupName == "" {
		return nil, ErrMissingGroupName
	}

	id := hashid.Of(url)
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO lookup (id, url, group_name) VALUES (?, ?, ?)`,
		id, url, groupName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lookup: %w", err)
	}

	return r.GetByID(ctx, tx, id)
}

// GetByID fetches a Lookup by its 63-bit identity.
func (r *LookupRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id uint64) (*domain.Lookup, error) {
	var l domain.Lookup
	err := tx.GetContext(ctx, &l, `SELECT id, url, group_name FROM lookup WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lookup %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get lookup: %w", err)
	}
	return &l, nil
}
