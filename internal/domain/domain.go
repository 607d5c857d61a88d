// Package domain declares the persisted entities of the crawl graph:
// Job, Lookup, Task, PageContent, the scraper entry types, and Attachment.
package domain

import "time"

// Job represents one traversal attempt over the site. A job is unfinished
// while at least one of its tasks has no page; otherwise it is finished.
type Job struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"timestamp"`
}

// Lookup is the canonical record of a URL's identity: its 63-bit hash id,
// the URL string itself (nullable — the null URL sentinel used by root
// tasks' back_lookup), and the page group it was classified into.
type Lookup struct {
	ID        uint64  `db:"id"`
	URL       *string `db:"url"`
	GroupName *string `db:"group_name"`
}

// IsNull reports whether this Lookup is the null-URL sentinel.
func (l *Lookup) IsNull() bool {
	return l.URL == nil
}

// PageContent is a fetched (or failed) page body, content-addressed by a
// hash of its text.
type PageContent struct {
	ID          int64     `db:"id"`
	Timestamp   time.Time `db:"timestamp"`
	Content     *string   `db:"content"`
	ContentHash uint64    `db:"content_hash"`
}

// Task is one node of the crawl graph: a (job, url, back_url) triple that
// is open until a PageContent is attached.
type Task struct {
	ID        int64     `db:"id"`
	JobID     int64     `db:"job_id"`
	URLID     uint64    `db:"url_id"`
	BackURLID uint64    `db:"back_url_id"`
	Timestamp time.Time `db:"timestamp"`
	PageID    *int64    `db:"page_id"`
}

// IsOpen reports whether the task has not yet been closed with a page.
func (t *Task) IsOpen() bool {
	return t.PageID == nil
}

// Course is a scraper entry for one row of a course_list listing table.
// Dedup is structural: a new Course with the same StructHash as the most
// recent existing Course is not inserted (see StructHash, below).
type Course struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	Hash      uint64    `db:"hash"`
	Key       string    `db:"key"` // the course's own page URL path, e.g. "/ct/course_3428678"
	Name      string    `db:"name"`
}

// CourseField carries the raw extracted fields of one course_list row,
// before hash-dedup and before the schedule/instructor strings are split
// into child rows.
type CourseField struct {
	Key         string
	Name        string
	Year        int
	Schedules   string
	Instructors string
}

// CourseSchedule is one (year, semester, weekday, period) slot parsed out
// of a course's schedule string.
type CourseSchedule struct {
	ID       int64 `db:"id"`
	CourseID int64 `db:"course_id"`
	Year     *int  `db:"year"`
	Semester int   `db:"semester"` // 0 = 前期 (first), 1 = 後期 (second)
	Weekday  int   `db:"weekday"`  // 0=月 .. 6=日
	Period   int   `db:"period"`
}

// CourseInstructor is one instructor name parsed out of a course's
// 、-separated instructor string.
type CourseInstructor struct {
	ID       int64  `db:"id"`
	CourseID int64  `db:"course_id"`
	Name     string `db:"name"`
}

// CourseNews is one course_news detail page, scoped to its parent Course.
type CourseNews struct {
	ID        int64     `db:"id"`
	CourseID  int64     `db:"course_id"`
	Timestamp time.Time `db:"timestamp"`
	URL       string    `db:"url"`
	Title     *string   `db:"title"`
	Body      *string   `db:"body"`
}

// CourseContentsPageList is one declared content item of a course,
// identified by its own /ct/page_XcY page.
type CourseContentsPageList struct {
	ID          int64      `db:"id"`
	CourseID    int64      `db:"course_id"`
	Timestamp   time.Time  `db:"timestamp"`
	URL         string     `db:"url"`
	Title       *string    `db:"title"`
	ReleaseDate *time.Time `db:"release_date"`
}

// CourseContentsPage is the actual content page nested under a
// CourseContentsPageList item.
type CourseContentsPage struct {
	ID                 int64     `db:"id"`
	ContentsPageListID int64     `db:"contents_page_list_id"`
	Timestamp          time.Time `db:"timestamp"`
	URL                string    `db:"url"`
	Title              *string   `db:"title"`
	Body               *string   `db:"body"`
}

// Attachment is a binary file discovered inside a scraper entry's body
// column and downloaded separately. Uniqueness is on (URL, Timestamp).
type Attachment struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Datatype  string    `db:"datatype"`
	URL       string    `db:"url"`
	Content   []byte    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}
