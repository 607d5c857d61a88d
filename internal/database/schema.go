package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements creates every table this repository persists to: the
// crawl-graph tables plus the scraper entry tables and the downloader's
// attachment table, with the indexes the hot queries need (lookup.url,
// task.job_id, task.page_id, task.url_id) and the uniqueness constraints
// the data model requires.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS job (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lookup (
		id INTEGER PRIMARY KEY,
		url TEXT UNIQUE,
		group_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS page_content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		content TEXT,
		content_hash INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES job(id),
		url_id INTEGER NOT NULL REFERENCES lookup(id),
		back_url_id INTEGER NOT NULL REFERENCES lookup(id),
		timestamp DATETIME NOT NULL,
		page_id INTEGER REFERENCES page_content(id),
		UNIQUE (job_id, url_id, back_url_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lookup_url ON lookup(url)`,
	`CREATE INDEX IF NOT EXISTS idx_task_job_id ON task(job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_page_id ON task(page_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_url_id ON task(url_id)`,

	`CREATE TABLE IF NOT EXISTS course (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		hash INTEGER NOT NULL,
		key TEXT NOT NULL,
		name TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_course_hash ON course(hash)`,
	`CREATE TABLE IF NOT EXISTS course_schedule (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL REFERENCES course(id),
		year INTEGER,
		semester INTEGER NOT NULL,
		weekday INTEGER NOT NULL,
		period INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS course_instructor (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL REFERENCES course(id),
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS course_news (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL REFERENCES course(id),
		timestamp DATETIME NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		body TEXT,
		UNIQUE (url, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS course_contents_page_list (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL REFERENCES course(id),
		timestamp DATETIME NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		release_date DATETIME,
		UNIQUE (url, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS course_contents_page (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contents_page_list_id INTEGER NOT NULL REFERENCES course_contents_page_list(id),
		timestamp DATETIME NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		body TEXT,
		UNIQUE (url, timestamp)
	)`,

	`CREATE TABLE IF NOT EXISTS attachment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		datatype TEXT NOT NULL,
		url TEXT NOT NULL,
		content BLOB,
		timestamp DATETIME NOT NULL,
		UNIQUE (url, timestamp)
	)`,
}

// scraperTables lists every table the downloader scans for a `body`
// column.
var scraperTables = []string{"course_news", "course_contents_page"}

// EnsureSchema creates every table and index this repository needs, if
// they do not already exist. Safe to call on every process startup.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// ScraperBodyTables returns the tables the downloader must scan for
// attachment anchors.
func ScraperBodyTables() []string {
	return append([]string(nil), scraperTables...)
}

// scraperEntryTables lists every table the scraper writes to,
// in child-before-parent order so foreign keys can be cleared with
// --reset without violating REFERENCES constraints.
var scraperEntryTables = []string{
	"course_contents_page",
	"course_contents_page_list",
	"course_news",
	"course_schedule",
	"course_instructor",
	"course",
}

// ResetScraperTables truncates every scraper entry table, used by
// scraper-main's --reset flag.
func ResetScraperTables(ctx context.Context, db *sqlx.DB) error {
	for _, table := range scraperEntryTables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset table %s: %w", table, err)
		}
	}
	return nil
}
