package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/domain"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

// handleCourseList extracts one CourseField per row of the course_list
// listing table and inserts (or, on a structural-hash match, reuses) a
// Course row per row. It does not contribute a parent entry itself:
// course_list's children in the task graph are individual course pages,
// handled by handleCourse below.
func (s *Scraper) handleCourseList(courses *database.CourseRepository) extractor {
	return func(ctx context.Context, tx *sqlx.Tx, task domain.Task, lookup *domain.Lookup, page *domain.PageContent, parents ParentEntries) (ParentEntries, error) {
		if page.Content == nil {
			return parents, nil
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(*page.Content))
		if err != nil {
			return parents, fmt.Errorf("parse course_list page: %w", err)
		}

		base, err := url.Parse(*lookup.URL)
		if err != nil {
			return parents, fmt.Errorf("parse course_list url: %w", err)
		}

		var rowErr error
		doc.Find(manaba.SelectorCourseListTable).Find(manaba.SelectorCourseListRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
			field, err := extractCourseField(base, row)
			if err != nil {
				rowErr = err
				return false
			}

			if err := s.upsertCourse(ctx, tx, courses, task, field); err != nil {
				rowErr = err
				return false
			}
			return true
		})
		if rowErr != nil {
			return parents, rowErr
		}

		return parents, nil
	}
}

func extractCourseField(base *url.URL, row *goquery.Selection) (domain.CourseField, error) {
	tds := row.Find("td")
	if tds.Length() != 4 {
		return domain.CourseField{}, fmt.Errorf("course row: expected 4 <td>, got %d", tds.Length())
	}
	nameTD, yearTD, scheduleTD, instructorTD := tds.Eq(0), tds.Eq(1), tds.Eq(2), tds.Eq(3)

	anchor := nameTD.Find(manaba.SelectorCourseTitleLink)
	href, ok := anchor.Attr("href")
	if !ok {
		return domain.CourseField{}, fmt.Errorf("course row: missing title anchor href")
	}
	key, err := coursePath(base, href)
	if err != nil {
		return domain.CourseField{}, err
	}

	name := strings.TrimSpace(anchor.Text())

	year, err := strconv.Atoi(strings.TrimSpace(yearTD.Text()))
	if err != nil {
		return domain.CourseField{}, fmt.Errorf("course row: invalid year %q: %w", yearTD.Text(), err)
	}

	schedules := scheduleTD.Find("span").First().Text()
	instructors := instructorTD.Text()

	return domain.CourseField{
		Key:         key,
		Name:        name,
		Year:        year,
		Schedules:   schedules,
		Instructors: instructors,
	}, nil
}

// coursePath resolves href against base and returns its path component,
// the normal form CourseField.Key and the course handler's lookup key
// both use regardless of whether href was absolute or site-relative.
func coursePath(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse course anchor href %q: %w", href, err)
	}
	return base.ResolveReference(ref).Path, nil
}

func (s *Scraper) upsertCourse(ctx context.Context, tx *sqlx.Tx, courses *database.CourseRepository, task domain.Task, field domain.CourseField) error {
	hash := domain.StructHash(domain.CourseFieldMap(field))

	_, err := courses.GetLatestByHash(ctx, tx, hash)
	if err == nil {
		s.Log.Debug("course insertion cancelled, duplicate hash", "key", field.Key)
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	course, err := courses.Create(ctx, tx, task.Timestamp, hash, field.Key, field.Name)
	if err != nil {
		return err
	}

	schedules, err := domain.ParseCourseSchedules(field.Year, field.Schedules)
	if err != nil {
		return fmt.Errorf("parse course schedules for %q: %w", field.Key, err)
	}
	for _, schedule := range schedules {
		if err := courses.CreateSchedule(ctx, tx, course.ID, schedule); err != nil {
			return err
		}
	}

	for _, name := range domain.ParseCourseInstructors(field.Instructors) {
		if err := courses.CreateInstructor(ctx, tx, course.ID, name); err != nil {
			return err
		}
	}

	s.Log.Info("course insertion done", "key", field.Key, "name", field.Name)
	return nil
}

// handleCourse does not create a Course row itself: the course_list
// handler already created (or reused) one keyed by the course's own page
// path. It looks that row up and pushes it as the nearest Course ancestor
// for this task's descendants (course_news, course_contents).
func (s *Scraper) handleCourse(courses *database.CourseRepository) extractor {
	return func(ctx context.Context, tx *sqlx.Tx, task domain.Task, lookup *domain.Lookup, page *domain.PageContent, parents ParentEntries) (ParentEntries, error) {
		u, err := url.Parse(*lookup.URL)
		if err != nil {
			return parents, fmt.Errorf("parse course url: %w", err)
		}

		course, err := courses.GetByKey(ctx, tx, u.Path)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				s.Log.Warn("no course_list row matched this course page, leaving parent stack unchanged", "url", *lookup.URL)
				return parents, nil
			}
			return parents, err
		}

		return parents.WithCourse(course.ID), nil
	}
}
