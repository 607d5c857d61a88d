package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/hashid"
)

// PageContentRepository persists PageContent rows: the stored outcome of
// a fetch, content-addressed by a hash of the content text. content=nil
// marks a permanent fetch failure.
type PageContentRepository struct{}

// NewPageContentRepository constructs a PageContentRepository.
func NewPageContentRepository() *PageContentRepository {
	return &PageContentRepository{}
}

// Create inserts a new PageContent. content is nil on a negative (failed)
// fetch, in which case ContentHash is hashid.OfNull() (there is no text to
// hash).
func (r *PageContentRepository) Create(ctx context.Context, tx *sqlx.Tx, timestamp time.Time, content *string) (*domain.PageContent, error) {
	hash := hashid.OfNull()
	if content != nil {
		hash = hashid.Of(*content)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO page_content (timestamp, content, content_hash) VALUES (?, ?, ?)`,
		timestamp, content, hash,
	)
	if err != nil {
		return nil, fmt.Errorf("create page_content: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create page_content: last insert id: %w", err)
	}
	return &domain.PageContent{ID: id, Timestamp: timestamp, Content: content, ContentHash: hash}, nil
}

// GetByID fetches a PageContent by id.
func (r *PageContentRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.PageContent, error) {
	var p domain.PageContent
	err := tx.GetContext(ctx, &p,
		`SELECT id, timestamp, content, content_hash FROM page_content WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get page_content: %w", err)
	}
	return &p, nil
}
