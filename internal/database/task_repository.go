package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/yasu-a/manaba-clone/internal/domain"
)

// ErrDuplicateTask is the distinguished error signalled when a
// (job, url, back_url) triple already exists within a job.
var ErrDuplicateTask = errors.New("task: (job, url, back_url) should be unique")

// TaskRepository persists Task rows: the crawl graph's nodes.
type TaskRepository struct{}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{}
}

// Create inserts a new open Task. It returns ErrDuplicateTask (wrapped)
// when the (job_id, url_id, back_url_id) triple already exists.
func (r *TaskRepository) Create(ctx context.Context, tx *sqlx.Tx, jobID int64, urlID, backURLID uint64, timestamp time.Time) (*domain.Task, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO task (job_id, url_id, back_url_id, timestamp, page_id) VALUES (?, ?, ?, ?, NULL)`,
		jobID, urlID, backURLID, timestamp,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w (job=%d url=%d back=%d)", ErrDuplicateTask, jobID, urlID, backURLID)
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create task: last insert id: %w", err)
	}
	return &domain.Task{
		ID: id, JobID: jobID, URLID: urlID, BackURLID: backURLID, Timestamp: timestamp,
	}, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Exists reports whether the (job, url, back_url) triple is already
// present, used by link expansion so the caller can skip a doomed insert
// rather than rely on catching ErrDuplicateTask.
func (r *TaskRepository) Exists(ctx context.Context, tx *sqlx.Tx, jobID int64, urlID, backURLID uint64) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM task WHERE job_id = ? AND url_id = ? AND back_url_id = ?`,
		jobID, urlID, backURLID,
	)
	if err != nil {
		return false, fmt.Errorf("check task exists: %w", err)
	}
	return count > 0, nil
}

// OpenNext selects the most recent open task of jobID, ordered by
// timestamp descending with id descending as the stable tie-break.
// Returns ErrNotFound when no open task remains.
func (r *TaskRepository) OpenNext(ctx context.Context, tx *sqlx.Tx, jobID int64) (*domain.Task, error) {
	var t domain.Task
	err := tx.GetContext(ctx, &t,
		`SELECT id, job_id, url_id, back_url_id, timestamp, page_id
		 FROM task
		 WHERE job_id = ? AND page_id IS NULL
		 ORDER BY timestamp DESC, id DESC
		 LIMIT 1`,
		jobID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select open task: %w", err)
	}
	return &t, nil
}

// Close attaches pageID to taskID, closing it.
func (r *TaskRepository) Close(ctx context.Context, tx *sqlx.Tx, taskID, pageID int64) error {
	result, err := tx.ExecContext(ctx, `UPDATE task SET page_id = ? WHERE id = ?`, pageID, taskID)
	return execRequireRows(result, err, fmt.Errorf("task %d: %w", taskID, ErrNotFound))
}

// FillPages bulk-updates every open task of jobID whose url_id already
// has a closed task (within the same job) mapping it to a page: within a
// job, one URL needs at most one fetch. It uses a single server-side CASE
// expression rather than client-side row rewrites, and returns the number
// of rows updated.
func (r *TaskRepository) FillPages(ctx context.Context, tx *sqlx.Tx, jobID int64) (int64, error) {
	type urlPage struct {
		URLID  uint64 `db:"url_id"`
		PageID int64  `db:"page_id"`
	}
	var pairs []urlPage
	err := tx.SelectContext(ctx, &pairs,
		`SELECT url_id, page_id
		 FROM task
		 WHERE job_id = ? AND page_id IS NOT NULL
		 GROUP BY url_id`,
		jobID,
	)
	if err != nil {
		return 0, fmt.Errorf("fill_pages: select closed url/page pairs: %w", err)
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	var caseExpr strings.Builder
	caseExpr.WriteString("CASE url_id")
	args := make([]any, 0, len(pairs)*2+2)
	urlIDs := make([]any, len(pairs))
	for i, p := range pairs {
		caseExpr.WriteString(" WHEN ? THEN ?")
		args = append(args, p.URLID, p.PageID)
		urlIDs[i] = p.URLID
	}
	caseExpr.WriteString(" ELSE page_id END")

	placeholders := strings.TrimRight(strings.Repeat("?,", len(urlIDs)), ",")
	query := fmt.Sprintf(
		`UPDATE task SET page_id = %s WHERE job_id = ? AND page_id IS NULL AND url_id IN (%s)`,
		caseExpr.String(), placeholders,
	)
	args = append(args, jobID)
	args = append(args, urlIDs...)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("fill_pages: bulk update: %w", err)
	}
	return result.RowsAffected()
}

// RootTasks returns every root task of jobID (back_lookup.url IS NULL),
// used by the scraper's roots-first walk.
func (r *TaskRepository) RootTasks(ctx context.Context, tx *sqlx.Tx, jobID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := tx.SelectContext(ctx, &tasks,
		`SELECT task.id, task.job_id, task.url_id, task.back_url_id, task.timestamp, task.page_id
		 FROM task
		 JOIN lookup back_lookup ON back_lookup.id = task.back_url_id
		 WHERE task.job_id = ? AND back_lookup.url IS NULL
		 ORDER BY task.timestamp ASC, task.id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("select root tasks: %w", err)
	}
	return tasks, nil
}

// Children returns every task of jobID whose back_url_id equals
// parentURLID, used by the scraper's recursive descent.
func (r *TaskRepository) Children(ctx context.Context, tx *sqlx.Tx, jobID int64, parentURLID uint64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := tx.SelectContext(ctx, &tasks,
		`SELECT id, job_id, url_id, back_url_id, timestamp, page_id
		 FROM task
		 WHERE job_id = ? AND back_url_id = ?
		 ORDER BY timestamp ASC, id ASC`,
		jobID, parentURLID,
	)
	if err != nil {
		return nil, fmt.Errorf("select child tasks: %w", err)
	}
	return tasks, nil
}
