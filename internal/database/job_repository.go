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

// ResumePolicy selects which unfinished Job a crawl step advances next:
// the oldest or the most recently created unfinished job.
type ResumePolicy int

const (
	ResumeOldest ResumePolicy = iota
	ResumeLatest
)

// JobRepository persists Job rows. A job is never deleted; "finished"
// is a derived property (no open task remains), not a stored column.
type JobRepository struct{}

// NewJobRepository constructs a JobRepository.
func NewJobRepository() *JobRepository {
	return &JobRepository{}
}

// Create inserts a new Job and returns it with its assigned id.
func (r *JobRepository) Create(ctx context.Context, tx *sqlx.Tx, timestamp time.Time) (*domain.Job, error) {
	result, err := tx.ExecContext(ctx, `INSERT INTO job (timestamp) VALUES (?)`, timestamp)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create job: last insert id: %w", err)
	}
	return &domain.Job{ID: id, Timestamp: timestamp}, nil
}

// GetByID fetches a Job by id.
func (r *JobRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Job, error) {
	var j domain.Job
	err := tx.GetContext(ctx, &j, `SELECT id, timestamp FROM job WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// HasClosedTask reports whether job id has at least one closed task
// (page_id not null), used by Initialize's force-guard.
func (r *JobRepository) HasClosedTask(ctx context.Context, tx *sqlx.Tx, jobID int64) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM task WHERE job_id = ? AND page_id IS NOT NULL`, jobID)
	if err != nil {
		return false, fmt.Errorf("check closed tasks: %w", err)
	}
	return count > 0, nil
}

// SelectUnfinished returns the id of the unfinished job (at least one open
// task) ordered per policy, or ErrNotFound if every job is finished or no
// job exists. Tie-break is by id descending for ResumeLatest, ascending
// for ResumeOldest.
func (r *JobRepository) SelectUnfinished(ctx context.Context, tx *sqlx.Tx, policy ResumePolicy) (int64, error) {
	order := "job.timestamp ASC, job.id ASC"
	if policy == ResumeLatest {
		order = "job.timestamp DESC, job.id DESC"
	}

	query := `
		SELECT job.id
		FROM job
		WHERE EXISTS (
			SELECT 1 FROM task WHERE task.job_id = job.id AND task.page_id IS NULL
		)
		ORDER BY ` + order + `
		LIMIT 1`

	var id int64
	err := tx.GetContext(ctx, &id, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select unfinished job: %w", err)
	}
	return id, nil
}

// SelectFinished returns the id of a finished job (no open tasks, and at
// least one task exists) ordered per policy, used by scraper-main to pick
// a completed traversal to walk.
func (r *JobRepository) SelectFinished(ctx context.Context, tx *sqlx.Tx, policy ResumePolicy) (int64, error) {
	order := "job.timestamp ASC, job.id ASC"
	if policy == ResumeLatest {
		order = "job.timestamp DESC, job.id DESC"
	}

	query := `
		SELECT job.id
		FROM job
		WHERE EXISTS (SELECT 1 FROM task WHERE task.job_id = job.id)
		AND NOT EXISTS (
			SELECT 1 FROM task WHERE task.job_id = job.id AND task.page_id IS NULL
		)
		ORDER BY ` + order + `
		LIMIT 1`

	var id int64
	err := tx.GetContext(ctx, &id, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select finished job: %w", err)
	}
	return id, nil
}

// Summary reports unfinished/finished task counts and total page/lookup
// counts for the per-step progress log.
type Summary struct {
	UnfinishedTasks int
	FinishedTasks   int
	TotalPages      int
	TotalLookups    int
}

// Summarize computes the Summary for jobID.
func (r *JobRepository) Summarize(ctx context.Context, tx *sqlx.Tx, jobID int64) (Summary, error) {
	var s Summary
	if err := tx.GetContext(ctx, &s.UnfinishedTasks,
		`SELECT COUNT(*) FROM task WHERE job_id = ? AND page_id IS NULL`, jobID); err != nil {
		return Summary{}, fmt.Errorf("summarize unfinished: %w", err)
	}
	if err := tx.GetContext(ctx, &s.FinishedTasks,
		`SELECT COUNT(*) FROM task WHERE job_id = ? AND page_id IS NOT NULL`, jobID); err != nil {
		return Summary{}, fmt.Errorf("summarize finished: %w", err)
	}
	if err := tx.GetContext(ctx, &s.TotalPages, `SELECT COUNT(*) FROM page_content`); err != nil {
		return Summary{}, fmt.Errorf("summarize pages: %w", err)
	}
	if err := tx.GetContext(ctx, &s.TotalLookups, `SELECT COUNT(*) FROM lookup`); err != nil {
		return Summary{}, fmt.Errorf("summarize lookups: %w", err)
	}
	return s, nil
}
