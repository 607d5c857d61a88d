package manaba

// CSS selectors used by internal/scraper's extractors and the
// downloader's attachment-anchor scan.
const (
	// course_list listing table (one row per course).
	SelectorCourseListTable = "table.stdlist.courselist"
	SelectorCourseListRow   = "tr.courselist-c, tr.courselist-r"
	SelectorCourseTitleLink = ".courselist-title a"

	// course_news_list listing table.
	SelectorCourseNewsEmptyNotice = "div.contentbody-s div.description"
	SelectorCourseNewsTable       = "table.stdlist"
	SelectorCourseNewsRow         = "tr:not(.title)"
	courseNewsEmptyMarker         = "ニュースはありません"

	// course_news detail page.
	SelectorCourseNewsSubject = "h2.msg-subject"
	SelectorCourseNewsBody    = ".msg-text"

	// course_contents_list listing table.
	SelectorContentsListTable = "table.contentslist"
	SelectorContentsListRow   = "table.contentslist tr"

	// course_contents_page_list detail page (one declared "content" item).
	SelectorContentsPageListTitle       = "h1.contents > a"
	SelectorContentsPageListReleaseDate = ".contents-modtime"

	// course_contents_page detail page.
	SelectorContentsPageTitle = ".contentbody-left > h1"
	SelectorContentsPageBody  = ".contentbody-left"

	// Attachment anchors embedded in any scraper body column.
	SelectorAttachmentAnchor = "div.inlineaf-description > a"
)

// CourseNewsEmptyMarker is the substring that marks a course's news list
// as empty (no rows to parse).
func CourseNewsEmptyMarker() string {
	return courseNewsEmptyMarker
}
