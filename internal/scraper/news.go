package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

// handleCourseNews extracts one CourseNews entry per course_news detail
// task. A course_news entry with no Course ancestor is dropped with a
// warning: the task graph should never produce one (course_news is
// nested under course in the group hierarchy), but an extractor must not
// panic on a malformed graph.
func (s *Scraper) handleCourseNews(news *database.CourseNewsRepository) extractor {
	return func(ctx context.Context, tx *sqlx.Tx, task domain.Task, lookup *domain.Lookup, page *domain.PageContent, parents ParentEntries) (ParentEntries, error) {
		courseID, ok := parents.Course()
		if !ok {
			s.Log.Warn("course_news task has no Course ancestor, skipped", "url", *lookup.URL)
			return parents, nil
		}

		if _, err := news.GetByURLAndTimestamp(ctx, tx, *lookup.URL, task.Timestamp); err == nil {
			s.Log.Debug("course_news insertion cancelled, duplicate", "url", *lookup.URL)
			return parents, nil
		} else if !errors.Is(err, database.ErrNotFound) {
			return parents, err
		}

		if page.Content == nil {
			return parents, nil
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(*page.Content))
		if err != nil {
			return parents, fmt.Errorf("parse course_news page: %w", err)
		}

		title := textOrNil(doc, manaba.SelectorCourseNewsSubject)
		body := innerHTMLOrNil(doc, manaba.SelectorCourseNewsBody)

		if _, err := news.Create(ctx, tx, courseID, task.Timestamp, *lookup.URL, title, body); err != nil {
			return parents, err
		}
		return parents, nil
	}
}

func textOrNil(doc *goquery.Document, selector string) *string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	return &text
}

func innerHTMLOrNil(doc *goquery.Document, selector string) *string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	html, err := sel.Html()
	if err != nil {
		return nil
	}
	return &html
}
