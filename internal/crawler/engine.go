// Package crawler implements the crawl engine: the resumable job
// lifecycle that drives one URL fetch per step, expands links through
// the page-group registry, and persists the crawl graph.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/fetcher"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/registry"
	"github.com/yasu-a/manaba-clone/internal/session"
)

// ErrJobClosed is returned by Initialize when the target job already has
// closed tasks and force was not set.
var ErrJobClosed = errors.New("crawler: job already has closed tasks")

// ErrNoUnfinishedJob names the condition of no unfinished job existing to
// advance. ProcessOne does not return it: it reports that condition as
// executed=false with a nil error.
var ErrNoUnfinishedJob = errors.New("crawler: no unfinished job")

// Clock abstracts time.Now so tests can control task/job timestamps
// deterministically (the depth-favoring DFS selection in ProcessOne
// depends on strictly increasing timestamps).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine drives the crawl over a database, a page-group family, and a
// Fetcher.
type Engine struct {
	DB       *sqlx.DB
	Family   *registry.Family
	Fetcher  fetcher.Interface
	Log      logger.Interface
	Clock    Clock
	jobs     *database.JobRepository
	tasks    *database.TaskRepository
	lookups  *database.LookupRepository
	pages    *database.PageContentRepository
}

// New builds an Engine.
func New(db *sqlx.DB, family *registry.Family, fetch fetcher.Interface, log logger.Interface) *Engine {
	return &Engine{
		DB:      db,
		Family:  family,
		Fetcher: fetch,
		Log:     log,
		Clock:   systemClock{},
		jobs:    database.NewJobRepository(),
		tasks:   database.NewTaskRepository(),
		lookups: database.NewLookupRepository(),
		pages:   database.NewPageContentRepository(),
	}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now()
	}
	return time.Now()
}

// Initialize creates a new Job and seeds it with a root task per url in
// urls, classifying each through the registry. URLs that classify to
// nothing are dropped with a warning. If the job already has a closed
// task, Initialize refuses with ErrJobClosed unless force is true; under
// force, a duplicate (job, url, back_url) still fails with
// database.ErrDuplicateTask.
func (e *Engine) Initialize(ctx context.Context, urls []string, force bool) (jobID int64, err error) {
	err = session.Run(ctx, e.DB, func(sctx *session.Context) error {
		tx := sctx.Tx

		if err := e.lookups.EnsureNullSentinel(ctx, tx); err != nil {
			return err
		}

		job, err := e.jobs.Create(ctx, tx, e.now())
		if err != nil {
			return err
		}
		jobID = job.ID

		nullLookup, err := e.lookups.GetByID(ctx, tx, 1)
		if err != nil {
			return err
		}

		for _, raw := range urls {
			grouped, matchErr := e.Family.Resolve(raw)
			if matchErr != nil {
				if errors.Is(matchErr, registry.ErrUnclassified) {
					e.Log.Warn("initial url unclassified, skipped", "url", raw)
					continue
				}
				return matchErr
			}

			lookup, err := e.lookups.GetOrCreate(ctx, tx, grouped.URL, grouped.GroupName)
			if err != nil {
				return err
			}

			if !force {
				closed, err := e.jobs.HasClosedTask(ctx, tx, job.ID)
				if err != nil {
					return err
				}
				if closed {
					return ErrJobClosed
				}
			}

			if _, err := e.tasks.Create(ctx, tx, job.ID, lookup.ID, nullLookup.ID, e.now()); err != nil {
				return err
			}
		}

		return nil
	})
	return jobID, err
}

// ProcessOne performs one crawl step within a single session: fill
// pages, pick the most recent open task, fetch it, expand its links, and
// close it. It returns executed=false when no unfinished job remains to
// advance.
func (e *Engine) ProcessOne(ctx context.Context, policy database.ResumePolicy) (executed bool, err error) {
	err = session.Run(ctx, e.DB, func(sctx *session.Context) error {
		tx := sctx.Tx

		jobID, err := e.jobs.SelectUnfinished(ctx, tx, policy)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				executed = false
				return nil
			}
			return err
		}

		fillCount, err := e.tasks.FillPages(ctx, tx, jobID)
		if err != nil {
			return err
		}
		e.Log.Info("page fill", "fill_count", fillCount)

		task, err := e.tasks.OpenNext(ctx, tx, jobID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				// FillPages closed the job's last open tasks; the step still
				// counts as executed so Crawl moves on to any other
				// unfinished job.
				executed = true
				return e.logSummary(ctx, tx, jobID, false)
			}
			return err
		}

		if err := e.processTask(ctx, tx, jobID, task); err != nil {
			return err
		}
		executed = true

		return e.logSummary(ctx, tx, jobID, true)
	})
	return executed, err
}

func (e *Engine) logSummary(ctx context.Context, tx *sqlx.Tx, jobID int64, executed bool) error {
	summary, err := e.jobs.Summarize(ctx, tx, jobID)
	if err != nil {
		return err
	}
	e.Log.Info("crawling session summary",
		"job_id", jobID,
		"unfinished_tasks", summary.UnfinishedTasks,
		"finished_tasks", summary.FinishedTasks,
		"total_pages", summary.TotalPages,
		"total_lookups", summary.TotalLookups,
		"crawling_executed", executed,
	)
	return nil
}

func (e *Engine) processTask(ctx context.Context, tx *sqlx.Tx, jobID int64, task *domain.Task) error {
	currentLookup, err := e.lookups.GetByID(ctx, tx, task.URLID)
	if err != nil {
		return err
	}
	currentURL := *currentLookup.URL

	opened, fetchErr := e.Fetcher.Open(ctx, currentURL)
	if fetchErr != nil {
		if isRecoverableFetchError(fetchErr) {
			e.Log.Info("fetch failed, closing task with no content", "url", currentURL, "error", fetchErr)
			page, err := e.pages.Create(ctx, tx, e.now(), nil)
			if err != nil {
				return err
			}
			return e.tasks.Close(ctx, tx, task.ID, page.ID)
		}
		return fmt.Errorf("fetch %s: %w", currentURL, fetchErr)
	}

	if err := e.expandLinks(ctx, tx, jobID, task, currentURL, opened.Links); err != nil {
		return err
	}

	page, err := e.pages.Create(ctx, tx, e.now(), &opened.Content)
	if err != nil {
		return err
	}
	return e.tasks.Close(ctx, tx, task.ID, page.ID)
}

func isRecoverableFetchError(err error) bool {
	if errors.Is(err, fetcher.ErrNotFound) {
		return true
	}
	var httpErr *fetcher.HTTPError
	return errors.As(err, &httpErr)
}

// expandLinks implements the link expansion rule: resolve
// each anchor to an absolute URL, classify it, keep only children of the
// current task's group, dedup by URL, and insert a new open task per
// survivor unless the (job, url, back_url) triple already exists.
func (e *Engine) expandLinks(ctx context.Context, tx *sqlx.Tx, jobID int64, current *domain.Task, currentURL string, anchors []string) error {
	_, currentGroup, err := e.Family.ResolveGroup(currentURL)
	if err != nil {
		return fmt.Errorf("resolve current task's own group: %w", err)
	}

	seen := make(map[string]bool)
	newTaskCount := 0

	for _, anchor := range anchors {
		childURL, err := resolveAbsolute(currentURL, anchor)
		if err != nil {
			e.Log.Debug("anchor resolution failed, dropped", "anchor", anchor, "error", err)
			continue
		}

		grouped, childGroup, err := e.Family.ResolveGroup(childURL)
		if err != nil {
			e.Log.Debug("child url unclassified, dropped", "url", childURL)
			continue
		}

		if grouped.URL == currentURL {
			continue // no self-edges
		}
		if !childGroup.Parent.Equal(currentGroup) {
			continue
		}
		if seen[grouped.URL] {
			continue
		}
		seen[grouped.URL] = true

		childLookup, err := e.lookups.GetOrCreate(ctx, tx, grouped.URL, grouped.GroupName)
		if err != nil {
			return err
		}

		exists, err := e.tasks.Exists(ctx, tx, jobID, childLookup.ID, current.URLID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if _, err := e.tasks.Create(ctx, tx, jobID, childLookup.ID, current.URLID, e.now()); err != nil {
			return err
		}
		newTaskCount++
	}

	e.Log.Debug("new tasks added", "count", newTaskCount)
	return nil
}

func resolveAbsolute(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse anchor url: %w", err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// Crawl repeatedly calls ProcessOne until it returns executed=false.
func (e *Engine) Crawl(ctx context.Context, policy database.ResumePolicy) error {
	for {
		executed, err := e.ProcessOne(ctx, policy)
		if err != nil {
			return err
		}
		if !executed {
			return nil
		}
	}
}
