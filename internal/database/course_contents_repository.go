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

// CourseContentsPageListRepository persists CourseContentsPageList
// scraper entries, deduplicated by (url, timestamp).
type CourseContentsPageListRepository struct{}

// NewCourseContentsPageListRepository constructs a
// CourseContentsPageListRepository.
func NewCourseContentsPageListRepository() *CourseContentsPageListRepository {
	return &CourseContentsPageListRepository{}
}

// GetByURLAndTimestamp returns the existing row for (url, timestamp), or
// ErrNotFound.
func (r *CourseContentsPageListRepository) GetByURLAndTimestamp(ctx context.Context, tx *sqlx.Tx, url string, timestamp time.Time) (*domain.CourseContentsPageList, error) {
	var e domain.CourseContentsPageList
	err := tx.GetContext(ctx, &e,
		`SELECT id, course_id, timestamp, url, title, release_date FROM course_contents_page_list WHERE url = ? AND timestamp = ?`,
		url, timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course_contents_page_list: %w", err)
	}
	return &e, nil
}

// Create inserts a new CourseContentsPageList row wired to courseID.
func (r *CourseContentsPageListRepository) Create(ctx context.Context, tx *sqlx.Tx, courseID int64, timestamp time.Time, url string, title *string, releaseDate *time.Time) (*domain.CourseContentsPageList, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO course_contents_page_list (course_id, timestamp, url, title, release_date) VALUES (?, ?, ?, ?, ?)`,
		courseID, timestamp, url, title, releaseDate,
	)
	if err != nil {
		return nil, fmt.Errorf("create course_contents_page_list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create course_contents_page_list: last insert id: %w", err)
	}
	return &domain.CourseContentsPageList{
		ID: id, CourseID: courseID, Timestamp: timestamp, URL: url, Title: title, ReleaseDate: releaseDate,
	}, nil
}

// CourseContentsPageRepository persists CourseContentsPage scraper
// entries, deduplicated by (url, timestamp).
type CourseContentsPageRepository struct{}

// NewCourseContentsPageRepository constructs a
// CourseContentsPageRepository.
func NewCourseContentsPageRepository() *CourseContentsPageRepository {
	return &CourseContentsPageRepository{}
}

// GetByURLAndTimestamp returns the existing row for (url, timestamp), or
// ErrNotFound.
func (r *CourseContentsPageRepository) GetByURLAndTimestamp(ctx context.Context, tx *sqlx.Tx, url string, timestamp time.Time) (*domain.CourseContentsPage, error) {
	var e domain.CourseContentsPage
	err := tx.GetContext(ctx, &e,
		`SELECT id, contents_page_list_id, timestamp, url, title, body FROM course_contents_page WHERE url = ? AND timestamp = ?`,
		url, timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course_contents_page: %w", err)
	}
	return &e, nil
}

// Create inserts a new CourseContentsPage row wired to its
// CourseContentsPageList parent.
func (r *CourseContentsPageRepository) Create(ctx context.Context, tx *sqlx.Tx, contentsPageListID int64, timestamp time.Time, url string, title, body *string) (*domain.CourseContentsPage, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO course_contents_page (contents_page_list_id, timestamp, url, title, body) VALUES (?, ?, ?, ?, ?)`,
		contentsPageListID, timestamp, url, title, body,
	)
	if err != nil {
		return nil, fmt.Errorf("create course_contents_page: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create course_contents_page: last insert id: %w", err)
	}
	return &domain.CourseContentsPage{
		ID: id, ContentsPageListID: contentsPageListID, Timestamp: timestamp, URL: url, Title: title, Body: body,
	}, nil
}
