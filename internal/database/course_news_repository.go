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

// CourseNewsRepository persists CourseNews scraper entries, deduplicated
// by (url, timestamp): an extractor may reuse an existing row instead of
// inserting a new one.
type CourseNewsRepository struct{}

// NewCourseNewsRepository constructs a CourseNewsRepository.
func NewCourseNewsRepository() *CourseNewsRepository {
	return &CourseNewsRepository{}
}

// GetByURLAndTimestamp returns the existing CourseNews row for (url,
// timestamp), or ErrNotFound.
func (r *CourseNewsRepository) GetByURLAndTimestamp(ctx context.Context, tx *sqlx.Tx, url string, timestamp time.Time) (*domain.CourseNews, error) {
	var n domain.CourseNews
	err := tx.GetContext(ctx, &n,
		`SELECT id, course_id, timestamp, url, title, body FROM course_news WHERE url = ? AND timestamp = ?`,
		url, timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course_news: %w", err)
	}
	return &n, nil
}

// Create inserts a new CourseNews row wired to courseID.
func (r *CourseNewsRepository) Create(ctx context.Context, tx *sqlx.Tx, courseID int64, timestamp time.Time, url string, title, body *string) (*domain.CourseNews, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO course_news (course_id, timestamp, url, title, body) VALUES (?, ?, ?, ?, ?)`,
		courseID, timestamp, url, title, body,
	)
	if err != nil {
		return nil, fmt.Errorf("create course_news: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create course_news: last insert id: %w", err)
	}
	return &domain.CourseNews{ID: id, CourseID: courseID, Timestamp: timestamp, URL: url, Title: title, Body: body}, nil
}
