package scraper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

var releaseDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}`)

// handleContentsPageList extracts one CourseContentsPageList entry per
// task and pushes it as the nearest CourseContentsPageList ancestor for
// the CourseContentsPage entries nested underneath.
func (s *Scraper) handleContentsPageList(lists *database.CourseContentsPageListRepository) extractor {
	return func(ctx context.Context, tx *sqlx.Tx, task domain.Task, lookup *domain.Lookup, page *domain.PageContent, parents ParentEntries) (ParentEntries, error) {
		courseID, ok := parents.Course()
		if !ok {
			s.Log.Warn("course_contents_page_list task has no Course ancestor, skipped", "url", *lookup.URL)
			return parents, nil
		}

		existing, err := lists.GetByURLAndTimestamp(ctx, tx, *lookup.URL, task.Timestamp)
		if err == nil {
			return parents.WithContentsPageList(existing.ID), nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return parents, err
		}

		if page.Content == nil {
			return parents, nil
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(*page.Content))
		if err != nil {
			return parents, fmt.Errorf("parse course_contents_page_list page: %w", err)
		}

		title := textOrNil(doc, manaba.SelectorContentsPageListTitle)
		releaseDate := extractReleaseDate(doc, manaba.SelectorContentsPageListReleaseDate)

		entry, err := lists.Create(ctx, tx, courseID, task.Timestamp, *lookup.URL, title, releaseDate)
		if err != nil {
			return parents, err
		}
		return parents.WithContentsPageList(entry.ID), nil
	}
}

func extractReleaseDate(doc *goquery.Document, selector string) *time.Time {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	match := releaseDatePattern.FindString(sel.Text())
	if match == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02 15:04", match)
	if err != nil {
		return nil
	}
	return &parsed
}

// handleContentsPage extracts one CourseContentsPage entry per task.
func (s *Scraper) handleContentsPage(pages *database.CourseContentsPageRepository) extractor {
	return func(ctx context.Context, tx *sqlx.Tx, task domain.Task, lookup *domain.Lookup, page *domain.PageContent, parents ParentEntries) (ParentEntries, error) {
		listID, ok := parents.ContentsPageList()
		if !ok {
			s.Log.Warn("course_contents_page task has no CourseContentsPageList ancestor, skipped", "url", *lookup.URL)
			return parents, nil
		}

		if _, err := pages.GetByURLAndTimestamp(ctx, tx, *lookup.URL, task.Timestamp); err == nil {
			return parents, nil
		} else if !errors.Is(err, database.ErrNotFound) {
			return parents, err
		}

		if page.Content == nil {
			return parents, nil
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(*page.Content))
		if err != nil {
			return parents, fmt.Errorf("parse course_contents_page page: %w", err)
		}

		title := textOrNil(doc, manaba.SelectorContentsPageTitle)
		body := innerHTMLOrNil(doc, manaba.SelectorContentsPageBody)

		if _, err := pages.Create(ctx, tx, listID, task.Timestamp, *lookup.URL, title, body); err != nil {
			return parents, err
		}
		return parents, nil
	}
}
