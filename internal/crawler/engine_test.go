package crawler_test

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/yasu-a/manaba-clone/internal/crawler"
	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/fetcher"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/registry"
)

// openTestDB returns an isolated in-memory SQLite database with the full
// schema applied, mirroring internal/database's own test helper (this
// package cannot import that unexported helper from a _test.go file in
// another package). The DSN is keyed by the test's own name so parallel
// tests never share SQLite's shared-cache in-memory database.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, database.EnsureSchema(context.Background(), db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// selfFamily declares a single self-parented page group, matching any
// path: most crawl scenarios use one trivial group so only the crawl loop
// itself is under test.
func selfFamily(host string) *registry.Family {
	g := &registry.PageGroup{
		Name:        "page",
		Host:        host,
		PathPattern: regexp.MustCompile(`^/.*$`),
	}
	g.Parent = g
	return registry.NewFamily([]*registry.PageGroup{g})
}

// stepClock hands out strictly increasing timestamps, one tick per call,
// so task ordering in tests is deterministic without sleeping.
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newEngine(t *testing.T, family *registry.Family, mem *fetcher.Memory) (*crawler.Engine, *sqlx.DB) {
	t.Helper()
	db := openTestDB(t)
	e := crawler.New(db, family, mem, logger.NewNop())
	e.Clock = &stepClock{t: time.Unix(0, 0)}
	return e, db
}

func countOpenTasks(t *testing.T, db *sqlx.DB, jobID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM task WHERE job_id = ? AND page_id IS NULL`, jobID))
	return n
}

func countClosedTasks(t *testing.T, db *sqlx.DB, jobID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM task WHERE job_id = ? AND page_id IS NOT NULL`, jobID))
	return n
}

func countTasks(t *testing.T, db *sqlx.DB, jobID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM task WHERE job_id = ?`, jobID))
	return n
}

func countPages(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM page_content`))
	return n
}

// TestCrawl_ChainOfThree: a linear chain of three pages. After the crawl,
// there must be three closed tasks, three PageContents, and the back-edge
// sequence null→0→1→2.
func TestCrawl_ChainOfThree(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	files := map[string]string{
		"https://h/0.html": `<a href="1.html"/>`,
		"https://h/1.html": `<a href="2.html"/>`,
		"https://h/2.html": ``,
	}
	mem := fetcher.NewMemory(files)
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	require.NoError(t, e.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 3, countTasks(t, db, jobID))
	require.Equal(t, 3, countClosedTasks(t, db, jobID))
	require.Equal(t, 0, countOpenTasks(t, db, jobID))
	require.Equal(t, 3, countPages(t, db))

	var chain []struct {
		URL     *string `db:"url"`
		BackURL *string `db:"back_url"`
	}
	require.NoError(t, db.Select(&chain, `
		SELECT lk.url AS url, back.url AS back_url
		FROM task
		JOIN lookup lk ON lk.id = task.url_id
		JOIN lookup back ON back.id = task.back_url_id
		WHERE task.job_id = ?
		ORDER BY task.timestamp ASC`, jobID))
	require.Len(t, chain, 3)
	require.Nil(t, chain[0].BackURL)
	require.Equal(t, "https://h/0.html", *chain[0].URL)
	require.Equal(t, "https://h/0.html", *chain[1].BackURL)
	require.Equal(t, "https://h/1.html", *chain[1].URL)
	require.Equal(t, "https://h/1.html", *chain[2].BackURL)
	require.Equal(t, "https://h/2.html", *chain[2].URL)
}

// TestCrawl_SelfLoop: a page linking to itself. After the crawl, exactly
// one closed task exists and no self-edge was enqueued.
func TestCrawl_SelfLoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := fetcher.NewMemory(map[string]string{
		"https://h/0.html": `<a href="0.html"/>`,
	})
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	require.NoError(t, e.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 1, countTasks(t, db, jobID))
	require.Equal(t, 1, countClosedTasks(t, db, jobID))
}

// TestCrawl_DuplicateLinks: a page linking twice to the same child. After
// the crawl, exactly two tasks exist (root plus one child), not three:
// surviving links are deduplicated by URL within a step.
func TestCrawl_DuplicateLinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := fetcher.NewMemory(map[string]string{
		"https://h/0.html": `<a href="1.html"/><a href="1.html"/>`,
		"https://h/1.html": ``,
	})
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	require.NoError(t, e.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 2, countTasks(t, db, jobID))
	require.Equal(t, 2, countClosedTasks(t, db, jobID))
}

// TestCrawl_FetchFailure: the opener fails one page with NotFound. After
// the crawl, that task is closed with content=nil and no grandchildren
// were enqueued.
func TestCrawl_FetchFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := fetcher.NewMemory(map[string]string{
		"https://h/0.html": `<a href="1.html"/>`,
	})
	mem.NotFound["https://h/1.html"] = true
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	require.NoError(t, e.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 2, countTasks(t, db, jobID))
	require.Equal(t, 2, countClosedTasks(t, db, jobID))

	var content *string
	require.NoError(t, db.Get(&content, `
		SELECT page_content.content
		FROM task
		JOIN lookup ON lookup.id = task.url_id
		JOIN page_content ON page_content.id = task.page_id
		WHERE task.job_id = ? AND lookup.url = ?`, jobID, "https://h/1.html"))
	require.Nil(t, content)
}

// TestCrawl_Resume: one ProcessOne step runs, then
// the run stops before any further progress (simulating a process kill
// between steps — the harness re-opens the same database and continues).
// The already-closed task stays closed; the run completes with the same
// total as an uninterrupted crawl.
func TestCrawl_Resume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	files := map[string]string{
		"https://h/0.html": `<a href="1.html"/>`,
		"https://h/1.html": `<a href="2.html"/>`,
		"https://h/2.html": ``,
	}
	mem := fetcher.NewMemory(files)
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	executed, err := e.ProcessOne(ctx, database.ResumeLatest)
	require.NoError(t, err)
	require.True(t, executed)
	require.Equal(t, 1, countClosedTasks(t, db, jobID))
	require.Equal(t, 1, countOpenTasks(t, db, jobID))

	// Simulate resuming in a fresh process against the same database: a
	// new Engine, no in-memory state carried over.
	resumed := crawler.New(db, selfFamily("h"), mem, logger.NewNop())
	resumed.Clock = &stepClock{t: time.Unix(100, 0)}
	require.NoError(t, resumed.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 3, countTasks(t, db, jobID))
	require.Equal(t, 3, countClosedTasks(t, db, jobID))
	require.Equal(t, 0, countOpenTasks(t, db, jobID))
}

// TestCrawl_CanonicalizationCollapse: two surface
// links differing only by fragment, under a group whose canonicalizer
// strips the fragment. Both canonicalize to the same URL, so only one
// child task is enqueued.
func TestCrawl_CanonicalizationCollapse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stripFragment := registry.Canonicalizer(func(u *url.URL) *url.URL {
		u.Fragment = ""
		return u
	})
	g := &registry.PageGroup{
		Name:           "page",
		Host:           "h",
		PathPattern:    regexp.MustCompile(`^/.*$`),
		Canonicalizers: []registry.Canonicalizer{stripFragment},
	}
	g.Parent = g
	family := registry.NewFamily([]*registry.PageGroup{g})

	mem := fetcher.NewMemory(map[string]string{
		"https://h/0.html": `<a href="p?a=1"/><a href="p?a=1#x"/>`,
		"https://h/p?a=1":  ``,
	})
	e, db := newEngine(t, family, mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	require.NoError(t, e.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 2, countTasks(t, db, jobID))
	require.Equal(t, 2, countClosedTasks(t, db, jobID))
}

// TestExpandLinks_UnclassifiedChildDropped: a link whose URL matches no
// declared group is dropped without failing the crawl.
func TestExpandLinks_UnclassifiedChildDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := fetcher.NewMemory(map[string]string{
		"https://h/0.html": `<a href="https://other.test/x"/>`,
	})
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://h/0.html"}, false)
	require.NoError(t, err)

	require.NoError(t, e.Crawl(ctx, database.ResumeLatest))

	require.Equal(t, 1, countTasks(t, db, jobID))
}

// TestInitialize_UnclassifiedURLSkipped: a root URL the registry cannot
// classify is warned about and skipped.
func TestInitialize_UnclassifiedURLSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := fetcher.NewMemory(map[string]string{})
	e, db := newEngine(t, selfFamily("h"), mem)

	jobID, err := e.Initialize(ctx, []string{"https://other.test/x"}, false)
	require.NoError(t, err)

	require.Equal(t, 0, countTasks(t, db, jobID))
}
