// Package manaba declares the page-group family, URL canonicalizers, and
// scraper selectors specific to the reference manaba site
// (room.chuo-u.ac.jp).
package manaba

import (
	"net/url"
	"regexp"

	"github.com/yasu-a/manaba-clone/internal/registry"
)

// Host is the single site this crawler targets.
const Host = "room.chuo-u.ac.jp"

// Group name constants. These strings are persisted as Lookup.group_name
// and must never be renamed without a migration.
const (
	GroupCourseList             = "course_list"
	GroupCourse                 = "course"
	GroupCourseNewsList         = "course_news_list"
	GroupCourseNews             = "course_news"
	GroupCourseContentsList     = "course_contents_list"
	GroupCourseContentsPageList = "course_contents_page_list"
	GroupCourseContentsPage     = "course_contents_page"
)

func forceQueryParam(key, value string) registry.Canonicalizer {
	return func(u *url.URL) *url.URL {
		q := u.Query()
		q.Set(key, value)
		u.RawQuery = q.Encode()
		return u
	}
}

// normalizeStartAndPageLen forces start=1&pagelen=100 when both query
// parameters are already present. It never adds the parameters when they
// are absent.
func normalizeStartAndPageLen() registry.Canonicalizer {
	return func(u *url.URL) *url.URL {
		q := u.Query()
		_, hasStart := q["start"]
		_, hasPageLen := q["pagelen"]
		if hasStart && hasPageLen {
			q.Set("start", "1")
			q.Set("pagelen", "100")
			u.RawQuery = q.Encode()
		}
		return u
	}
}

func removeFragment() registry.Canonicalizer {
	return func(u *url.URL) *url.URL {
		u.Fragment = ""
		u.RawFragment = ""
		return u
	}
}

// Family builds the declared PageGroup family for the manaba site. Order
// matters for resolution (registry.Family.Resolve tries groups in
// declaration order) though these patterns are mutually exclusive by
// construction.
func Family() *registry.Family {
	courseList := &registry.PageGroup{
		Name:           GroupCourseList,
		Host:           Host,
		PathPattern:    regexp.MustCompile(`^/ct/home_(_[a-z]+)?$`),
		Canonicalizers: []registry.Canonicalizer{forceQueryParam("chglistformat", "list")},
	}
	course := &registry.PageGroup{
		Name:        GroupCourse,
		Host:        Host,
		PathPattern: regexp.MustCompile(`^/ct/course_\d+$`),
		Parent:      courseList,
	}
	courseNewsList := &registry.PageGroup{
		Name:           GroupCourseNewsList,
		Host:           Host,
		PathPattern:    regexp.MustCompile(`^/ct/course_\d+_news$`),
		Canonicalizers: []registry.Canonicalizer{normalizeStartAndPageLen()},
		Parent:         course,
	}
	courseNews := &registry.PageGroup{
		Name:        GroupCourseNews,
		Host:        Host,
		PathPattern: regexp.MustCompile(`^/ct/course_\d+_news_\d+$`),
		Parent:      courseNewsList,
	}
	courseContentsList := &registry.PageGroup{
		Name:           GroupCourseContentsList,
		Host:           Host,
		PathPattern:    regexp.MustCompile(`^/ct/course_\d+_page$`),
		Canonicalizers: []registry.Canonicalizer{removeFragment()},
		Parent:         course,
	}
	courseContentsPageList := &registry.PageGroup{
		Name:           GroupCourseContentsPageList,
		Host:           Host,
		PathPattern:    regexp.MustCompile(`^/ct/page_\d+c\d+$`),
		Canonicalizers: []registry.Canonicalizer{removeFragment()},
		Parent:         courseContentsList,
	}
	courseContentsPage := &registry.PageGroup{
		Name:           GroupCourseContentsPage,
		Host:           Host,
		PathPattern:    regexp.MustCompile(`^/ct/page_\d+c\d+_\d+$`),
		Canonicalizers: []registry.Canonicalizer{removeFragment()},
		Parent:         courseContentsPageList,
	}

	return registry.NewFamily([]*registry.PageGroup{
		courseList,
		course,
		courseNewsList,
		courseNews,
		courseContentsList,
		courseContentsPageList,
		courseContentsPage,
	})
}
