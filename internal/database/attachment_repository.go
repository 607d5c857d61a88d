package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/domain"
)

// AttachmentRepository persists Attachment rows, deduplicated on
// (url, timestamp).
type AttachmentRepository struct{}

// NewAttachmentRepository constructs an AttachmentRepository.
func NewAttachmentRepository() *AttachmentRepository {
	return &AttachmentRepository{}
}

// Exists reports whether an Attachment with the exact (url, timestamp)
// already exists, used to skip a refetch.
func (r *AttachmentRepository) Exists(ctx context.Context, tx *sqlx.Tx, url string, timestamp time.Time) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM attachment WHERE url = ? AND timestamp = ?`, url, timestamp)
	if err != nil {
		return false, fmt.Errorf("check attachment exists: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new Attachment row. content is nil when the fetch
// failed with an HTTPError.
func (r *AttachmentRepository) Create(ctx context.Context, tx *sqlx.Tx, title, datatype, url string, content []byte, timestamp time.Time) (*domain.Attachment, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO attachment (title, datatype, url, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		title, datatype, url, content, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create attachment: last insert id: %w", err)
	}
	return &domain.Attachment{ID: id, Title: title, Datatype: datatype, URL: url, Content: content, Timestamp: timestamp}, nil
}

// GetByURLAndTimestamp returns the existing Attachment for (url,
// timestamp), or ErrNotFound.
func (r *AttachmentRepository) GetByURLAndTimestamp(ctx context.Context, tx *sqlx.Tx, url string, timestamp time.Time) (*domain.Attachment, error) {
	var a domain.Attachment
	err := tx.GetContext(ctx, &a,
		`SELECT id, title, datatype, url, content, timestamp FROM attachment WHERE url = ? AND timestamp = ?`,
		url, timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &a, nil
}

// ScraperBodyRow is one (url, body, timestamp) row read from any scraper
// table that carries an HTML body column, the downloader's iteration
// unit.
type ScraperBodyRow struct {
	URL       string    `db:"url"`
	Body      *string   `db:"body"`
	Timestamp time.Time `db:"timestamp"`
}

// IterScraperBodies reads every (url, body, timestamp) row from every
// table ScraperBodyTables names, skipping rows with a null body.
func IterScraperBodies(ctx context.Context, tx *sqlx.Tx) ([]ScraperBodyRow, error) {
	var all []ScraperBodyRow
	for _, table := range ScraperBodyTables() {
		var rows []ScraperBodyRow
		query := fmt.Sprintf(`SELECT url, body, timestamp FROM %s WHERE body IS NOT NULL`, table)
		if err := tx.SelectContext(ctx, &rows, query); err != nil {
			return nil, fmt.Errorf("select bodies from %s: %w", table, err)
		}
		all = append(all, rows...)
	}
	return all, nil
}
