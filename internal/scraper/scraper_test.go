package scraper_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/yasu-a/manaba-clone/internal/crawler"
	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/fetcher"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/manaba"
	"github.com/yasu-a/manaba-clone/internal/scraper"
)

// openTestDB returns an isolated in-memory SQLite database, keyed by the
// test's own name so parallel tests never share SQLite's shared-cache
// in-memory database.
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

// stepClock hands out strictly increasing timestamps without sleeping.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// TestWalk_ParentWiring: every scraper entry's typed parent foreign key
// equals the id of the nearest ancestor scraper entry of the required
// type, exercised over a full course_list -> course ->
// {course_news_list -> course_news, course_contents_list ->
// course_contents_page_list -> course_contents_page} graph built by
// running the real Crawl Engine over manaba's declared Family and an
// in-memory Fetcher, then Walk-ing the result.
func TestWalk_ParentWiring(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const (
		home          = "https://room.chuo-u.ac.jp/ct/home_"
		homeCanonical = home + "?chglistformat=list" // course_list's forceQueryParam canonicalizer
		course        = "https://room.chuo-u.ac.jp/ct/course_1000001"
		newsList      = "https://room.chuo-u.ac.jp/ct/course_1000001_news"
		news          = "https://room.chuo-u.ac.jp/ct/course_1000001_news_1"
		contentsList  = "https://room.chuo-u.ac.jp/ct/course_1000001_page"
		pageList      = "https://room.chuo-u.ac.jp/ct/page_1000001c1"
		page          = "https://room.chuo-u.ac.jp/ct/page_1000001c1_1"
	)

	files := map[string]string{
		homeCanonical: fmt.Sprintf(`
			<table class="stdlist courselist">
				<tr class="courselist-c">
					<td><span class="courselist-title"><a href="%s">Sample Course</a></span></td>
					<td>2024</td>
					<td><span>前期 月 1時限</span></td>
					<td>山田太郎、鈴木次郎</td>
				</tr>
			</table>`, course),
		course: fmt.Sprintf(`<a href="%s"></a><a href="%s"></a>`, newsList, contentsList),
		newsList: fmt.Sprintf(`<a href="%s"></a>`, news),
		news: `
			<h2 class="msg-subject">Midterm schedule change</h2>
			<div class="msg-text">The midterm has moved to next week.</div>`,
		contentsList: fmt.Sprintf(`<a href="%s"></a>`, pageList),
		pageList: fmt.Sprintf(`
			<h1 class="contents"><a>Week 1 materials</a></h1>
			<div class="contents-modtime">Updated 2024-04-10 09:00</div>
			<a href="%s"></a>`, page),
		page: `
			<div class="contentbody-left">
				<h1>Week 1 materials</h1>
				<p>Lecture slides attached below.</p>
			</div>`,
	}
	mem := fetcher.NewMemory(files)

	db := openTestDB(t)
	engine := crawler.New(db, manaba.Family(), mem, logger.NewNop())
	engine.Clock = &stepClock{t: time.Unix(0, 0)}

	jobID, err := engine.Initialize(ctx, []string{home}, false)
	require.NoError(t, err)
	require.NoError(t, engine.Crawl(ctx, database.ResumeLatest))

	s := scraper.New(db, logger.NewNop())
	require.NoError(t, s.Walk(ctx, jobID))

	var courseRow struct {
		ID  int64  `db:"id"`
		Key string `db:"key"`
	}
	require.NoError(t, db.Get(&courseRow, `SELECT id, key FROM course LIMIT 1`))
	require.Equal(t, "/ct/course_1000001", courseRow.Key)

	var scheduleCount, instructorCount int
	require.NoError(t, db.Get(&scheduleCount, `SELECT COUNT(*) FROM course_schedule WHERE course_id = ?`, courseRow.ID))
	require.NoError(t, db.Get(&instructorCount, `SELECT COUNT(*) FROM course_instructor WHERE course_id = ?`, courseRow.ID))
	require.Equal(t, 1, scheduleCount)
	require.Equal(t, 2, instructorCount)

	var newsRow struct {
		CourseID int64   `db:"course_id"`
		Title    *string `db:"title"`
	}
	require.NoError(t, db.Get(&newsRow, `SELECT course_id, title FROM course_news WHERE url = ?`, news))
	require.Equal(t, courseRow.ID, newsRow.CourseID)
	require.Equal(t, "Midterm schedule change", *newsRow.Title)

	var pageListRow struct {
		ID       int64   `db:"id"`
		CourseID int64   `db:"course_id"`
		Title    *string `db:"title"`
	}
	require.NoError(t, db.Get(&pageListRow, `SELECT id, course_id, title FROM course_contents_page_list WHERE url = ?`, pageList))
	require.Equal(t, courseRow.ID, pageListRow.CourseID)
	require.Equal(t, "Week 1 materials", *pageListRow.Title)

	var pageRow struct {
		ContentsPageListID int64   `db:"contents_page_list_id"`
		Body               *string `db:"body"`
	}
	require.NoError(t, db.Get(&pageRow, `SELECT contents_page_list_id, body FROM course_contents_page WHERE url = ?`, page))
	require.Equal(t, pageListRow.ID, pageRow.ContentsPageListID)
	require.Contains(t, *pageRow.Body, "Lecture slides attached below.")
}

// TestWalk_IgnoredGroupStillTraversed: an ignored group contributes no
// persisted record but traversal continues through it. course_news_list
// never produces a row, yet its child course_news is still reached.
func TestWalk_IgnoredGroupStillTraversed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const (
		home          = "https://room.chuo-u.ac.jp/ct/home_"
		homeCanonical = home + "?chglistformat=list"
		course        = "https://room.chuo-u.ac.jp/ct/course_1000002"
		newsList      = "https://room.chuo-u.ac.jp/ct/course_1000002_news"
		news          = "https://room.chuo-u.ac.jp/ct/course_1000002_news_1"
	)

	files := map[string]string{
		homeCanonical: fmt.Sprintf(`
			<table class="stdlist courselist">
				<tr class="courselist-c">
					<td><span class="courselist-title"><a href="%s">Another Course</a></span></td>
					<td>2024</td>
					<td><span>後期 火 2時限</span></td>
					<td>佐藤花子</td>
				</tr>
			</table>`, course),
		course:   fmt.Sprintf(`<a href="%s"></a>`, newsList),
		newsList: fmt.Sprintf(`<a href="%s"></a>`, news),
		news: `
			<h2 class="msg-subject">No class this Friday</h2>
			<div class="msg-text">Class is cancelled.</div>`,
	}
	mem := fetcher.NewMemory(files)

	db := openTestDB(t)
	engine := crawler.New(db, manaba.Family(), mem, logger.NewNop())
	engine.Clock = &stepClock{t: time.Unix(0, 0)}

	jobID, err := engine.Initialize(ctx, []string{home}, false)
	require.NoError(t, err)
	require.NoError(t, engine.Crawl(ctx, database.ResumeLatest))

	s := scraper.New(db, logger.NewNop())
	require.NoError(t, s.Walk(ctx, jobID))

	var newsCount int
	require.NoError(t, db.Get(&newsCount, `SELECT COUNT(*) FROM course_news WHERE url = ?`, news))
	require.Equal(t, 1, newsCount)
}
