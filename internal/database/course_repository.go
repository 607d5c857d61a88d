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

// CourseRepository persists Course scraper entries, including the
// structural-hash duplicate collapse and the CourseSchedule/
// CourseInstructor child rows.
type CourseRepository struct{}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{}
}

// GetLatestByHash returns the most recent Course row with the given
// structural hash, or ErrNotFound if none exists.
func (r *CourseRepository) GetLatestByHash(ctx context.Context, tx *sqlx.Tx, hash uint64) (*domain.Course, error) {
	var c domain.Course
	err := tx.GetContext(ctx, &c,
		`SELECT id, timestamp, hash, key, name FROM course WHERE hash = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		hash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest course by hash: %w", err)
	}
	return &c, nil
}

// GetByKey returns the most recent Course row whose key (the course's own
// page path, e.g. "/ct/course_3428678") equals key, or ErrNotFound. Used
// by the scraper's course handler to find the Course a course_list row
// already created for the page the task graph is now visiting.
func (r *CourseRepository) GetByKey(ctx context.Context, tx *sqlx.Tx, key string) (*domain.Course, error) {
	var c domain.Course
	err := tx.GetContext(ctx, &c,
		`SELECT id, timestamp, hash, key, name FROM course WHERE key = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course by key: %w", err)
	}
	return &c, nil
}

// Create inserts a new Course row and returns it with its assigned id.
func (r *CourseRepository) Create(ctx context.Context, tx *sqlx.Tx, timestamp time.Time, hash uint64, key, name string) (*domain.Course, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO course (timestamp, hash, key, name) VALUES (?, ?, ?, ?)`,
		timestamp, hash, key, name,
	)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create course: last insert id: %w", err)
	}
	return &domain.Course{ID: id, Timestamp: timestamp, Hash: hash, Key: key, Name: name}, nil
}

// CreateSchedule inserts a CourseSchedule row wired to courseID.
func (r *CourseRepository) CreateSchedule(ctx context.Context, tx *sqlx.Tx, courseID int64, s domain.CourseSchedule) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO course_schedule (course_id, year, semester, weekday, period) VALUES (?, ?, ?, ?, ?)`,
		courseID, s.Year, s.Semester, s.Weekday, s.Period,
	)
	if err != nil {
		return fmt.Errorf("create course_schedule: %w", err)
	}
	return nil
}

// CreateInstructor inserts a CourseInstructor row wired to courseID.
func (r *CourseRepository) CreateInstructor(ctx context.Context, tx *sqlx.Tx, courseID int64, name string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO course_instructor (course_id, name) VALUES (?, ?)`,
		courseID, name,
	)
	if err != nil {
		return fmt.Errorf("create course_instructor: %w", err)
	}
	return nil
}
