// Package downloader scans every scraper entry's body column for
// attachment anchors, downloads each one not already on file, and
// persists it as an Attachment row.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmoiron/sqlx"

	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/fetcher"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/manaba"
	"github.com/yasu-a/manaba-clone/internal/session"
)

// Entry is one attachment anchor discovered in a scraper body, ready to
// be downloaded.
type Entry struct {
	Title     string
	URL       string
	Timestamp time.Time
}

// Downloader persists Attachment rows by fetching every attachment
// anchor embedded in a scraper entry's body column.
type Downloader struct {
	DB      *sqlx.DB
	Fetcher fetcher.Interface
	Log     logger.Interface

	attachments *database.AttachmentRepository
}

// New builds a Downloader.
func New(db *sqlx.DB, fetch fetcher.Interface, log logger.Interface) *Downloader {
	return &Downloader{
		DB:          db,
		Fetcher:     fetch,
		Log:         log,
		attachments: database.NewAttachmentRepository(),
	}
}

// titleTimestampPattern splits a raw anchor title into its display title
// and an optional embedded " - YYYY-MM-DD HH:MM:SS" timestamp suffix.
var titleTimestampPattern = regexp.MustCompile(`^(.*?)(\s-\s(\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}:\d{2}))?$`)

func splitTitleTimestamp(title string, fallback time.Time) (string, time.Time) {
	m := titleTimestampPattern.FindStringSubmatch(title)
	if m == nil {
		return title, fallback
	}
	if m[3] == "" {
		return m[1], fallback
	}
	parsed, err := time.Parse("2006-01-02 15:04:05", m[3])
	if err != nil {
		return m[1], fallback
	}
	return m[1], parsed
}

// stripQuery removes the query component of rawURL.
func stripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}

// extractEntries scans every scraper body table for attachment anchors.
func extractEntries(ctx context.Context, tx *sqlx.Tx) ([]Entry, error) {
	rows, err := database.IterScraperBodies(ctx, tx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, row := range rows {
		if row.Body == nil {
			continue
		}
		base, err := url.Parse(row.URL)
		if err != nil {
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(*row.Body))
		if err != nil {
			return nil, fmt.Errorf("parse scraper body for %s: %w", row.URL, err)
		}

		doc.Find(manaba.SelectorAttachmentAnchor).Each(func(_ int, anchor *goquery.Selection) {
			href, ok := anchor.Attr("href")
			if !ok {
				return
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			anchorURL := stripQuery(base.ResolveReference(ref).String())
			title, timestamp := splitTitleTimestamp(strings.TrimSpace(anchor.Text()), row.Timestamp)

			entries = append(entries, Entry{Title: title, URL: anchorURL, Timestamp: timestamp})
		})
	}
	return entries, nil
}

// ProcessOne downloads the first attachment entry not already persisted,
// mirroring the Crawl Engine's one-step-per-transaction shape. It returns
// processed=false once every discovered entry already has an Attachment
// row.
func (d *Downloader) ProcessOne(ctx context.Context) (processed bool, err error) {
	err = session.Run(ctx, d.DB, func(sctx *session.Context) error {
		tx := sctx.Tx

		entries, err := extractEntries(ctx, tx)
		if err != nil {
			return err
		}

		var target *Entry
		for i := range entries {
			exists, err := d.attachments.Exists(ctx, tx, entries[i].URL, entries[i].Timestamp)
			if err != nil {
				return err
			}
			if !exists {
				target = &entries[i]
				break
			}
		}
		if target == nil {
			processed = false
			return nil
		}

		d.Log.Info("processing download", "url", target.URL, "title", target.Title)

		content, fetchErr := d.Fetcher.Open(ctx, target.URL)
		var body []byte
		if fetchErr != nil {
			var httpErr *fetcher.HTTPError
			if !errors.As(fetchErr, &httpErr) && !errors.Is(fetchErr, fetcher.ErrNotFound) {
				return fmt.Errorf("download %s: %w", target.URL, fetchErr)
			}
			d.Log.Info("failed to get content", "url", target.URL, "error", fetchErr)
			body = nil
		} else {
			body = []byte(content.Content)
			d.Log.Info("retrieved content", "url", target.URL, "length", len(body))
		}

		if _, err := d.attachments.Create(ctx, tx, target.Title, datatypeOf(target.URL), target.URL, body, target.Timestamp); err != nil {
			return err
		}
		processed = true
		return nil
	})
	return processed, err
}

func datatypeOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

// DownloadAll repeatedly calls ProcessOne until every discovered
// attachment entry has been persisted.
func (d *Downloader) DownloadAll(ctx context.Context) error {
	for {
		processed, err := d.ProcessOne(ctx)
		if err != nil {
			return err
		}
		if !processed {
			return nil
		}
	}
}
