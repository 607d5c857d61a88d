// Package scraper implements an iterative, roots-first walk over a
// finished crawl job's task graph that dispatches each task's page
// content to the extractor registered for its lookup group, threading an
// immutable parent-entries value down to children so they can wire
// foreign keys to the nearest ancestor of a declared type.
package scraper

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/manaba"
	"github.com/yasu-a/manaba-clone/internal/session"
)

// ParentEntries is the immutable parent-stack value passed to every
// extractor. Rather than
// a general stack, it tracks only the nearest ancestor of each declared
// type an extractor may need, which is all the wiring rule ("nearest
// ancestor of a declared type") ever consults. Being a plain value type,
// handing a copy to each child is automatic: no child's extension can
// leak into a sibling branch.
type ParentEntries struct {
	courseID            int64
	hasCourse           bool
	contentsPageListID  int64
	hasContentsPageList bool
}

// WithCourse returns a copy of p with its nearest Course ancestor set.
func (p ParentEntries) WithCourse(id int64) ParentEntries {
	p.courseID, p.hasCourse = id, true
	return p
}

// WithContentsPageList returns a copy of p with its nearest
// CourseContentsPageList ancestor set.
func (p ParentEntries) WithContentsPageList(id int64) ParentEntries {
	p.contentsPageListID, p.hasContentsPageList = id, true
	return p
}

// Course returns the id of the nearest Course ancestor, if any.
func (p ParentEntries) Course() (int64, bool) { return p.courseID, p.hasCourse }

// ContentsPageList returns the id of the nearest CourseContentsPageList
// ancestor, if any.
func (p ParentEntries) ContentsPageList() (int64, bool) { return p.contentsPageListID, p.hasContentsPageList }

// extractor handles one task, given the already-fetched page content and
// the parent stack inherited from its ancestors. It returns the parent
// stack children of this task should see; extractors that do not
// contribute a typed ancestor return parents unchanged.
type extractor func(ctx context.Context, tx *sqlx.Tx, task domain.Task, lookup *domain.Lookup, page *domain.PageContent, parents ParentEntries) (ParentEntries, error)

// Scraper walks a finished job's task graph, dispatching each task by its
// lookup group name. Unregistered groups are ignored: they contribute no
// record but traversal continues through them.
type Scraper struct {
	DB  *sqlx.DB
	Log logger.Interface

	tasks   *database.TaskRepository
	lookups *database.LookupRepository
	pages   *database.PageContentRepository

	handlers map[string]extractor
}

// New builds a Scraper with every declared group handler registered.
func New(db *sqlx.DB, log logger.Interface) *Scraper {
	s := &Scraper{
		DB:      db,
		Log:     log,
		tasks:   database.NewTaskRepository(),
		lookups: database.NewLookupRepository(),
		pages:   database.NewPageContentRepository(),
	}
	s.handlers = s.buildHandlers()
	return s
}

func (s *Scraper) buildHandlers() map[string]extractor {
	courses := database.NewCourseRepository()
	news := database.NewCourseNewsRepository()
	contentsPageLists := database.NewCourseContentsPageListRepository()
	contentsPages := database.NewCourseContentsPageRepository()

	return map[string]extractor{
		manaba.GroupCourseList:             s.handleCourseList(courses),
		manaba.GroupCourse:                 s.handleCourse(courses),
		manaba.GroupCourseNewsList:         ignoreGroup,
		manaba.GroupCourseNews:             s.handleCourseNews(news),
		manaba.GroupCourseContentsList:     ignoreGroup,
		manaba.GroupCourseContentsPageList: s.handleContentsPageList(contentsPageLists),
		manaba.GroupCourseContentsPage:     s.handleContentsPage(contentsPages),
	}
}

func ignoreGroup(_ context.Context, _ *sqlx.Tx, _ domain.Task, _ *domain.Lookup, _ *domain.PageContent, parents ParentEntries) (ParentEntries, error) {
	return parents, nil
}

// Walk processes every task reachable from jobID's root tasks, in a
// roots-first traversal. It is iterative rather than recursive so
// traversal depth is bounded by heap, not by the goroutine stack.
func (s *Scraper) Walk(ctx context.Context, jobID int64) error {
	return session.Run(ctx, s.DB, func(sctx *session.Context) error {
		tx := sctx.Tx

		roots, err := s.tasks.RootTasks(ctx, tx, jobID)
		if err != nil {
			return err
		}

		type workItem struct {
			task    domain.Task
			parents ParentEntries
		}
		stack := make([]workItem, 0, len(roots))
		for _, root := range roots {
			stack = append(stack, workItem{task: root, parents: ParentEntries{}})
		}

		for len(stack) > 0 {
			item := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			nextParents, err := s.processTask(ctx, tx, item.task, item.parents)
			if err != nil {
				return fmt.Errorf("task %d: %w", item.task.ID, err)
			}

			children, err := s.tasks.Children(ctx, tx, item.task.JobID, item.task.URLID)
			if err != nil {
				return err
			}
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, workItem{task: children[i], parents: nextParents})
			}
		}

		return nil
	})
}

func (s *Scraper) processTask(ctx context.Context, tx *sqlx.Tx, task domain.Task, parents ParentEntries) (ParentEntries, error) {
	if task.IsOpen() {
		s.Log.Warn("skipping open task in finished job's graph", "task_id", task.ID)
		return parents, nil
	}

	lookup, err := s.lookups.GetByID(ctx, tx, task.URLID)
	if err != nil {
		return parents, err
	}
	if lookup.GroupName == nil {
		s.Log.Warn("skipping task with no group", "task_id", task.ID)
		return parents, nil
	}

	page, err := s.pages.GetByID(ctx, tx, *task.PageID)
	if err != nil {
		return parents, err
	}

	handler, ok := s.handlers[*lookup.GroupName]
	if !ok {
		s.Log.Info("ignored", "group", *lookup.GroupName, "url", *lookup.URL)
		return parents, nil
	}

	s.Log.Info("accepted", "group", *lookup.GroupName, "url", *lookup.URL)
	return handler(ctx, tx, task, lookup, page, parents)
}
