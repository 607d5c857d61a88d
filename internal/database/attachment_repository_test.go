package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yasu-a/manaba-clone/internal/database"
)

func TestAttachmentRepository_ExistsDedupsOnURLAndTimestamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	attachments := database.NewAttachmentRepository()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	exists, err := attachments.Exists(ctx, tx, "https://room.chuo-u.ac.jp/ct/file.pdf", ts)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = attachments.Create(ctx, tx, "file", ".pdf", "https://room.chuo-u.ac.jp/ct/file.pdf", []byte("data"), ts)
	require.NoError(t, err)

	exists, err = attachments.Exists(ctx, tx, "https://room.chuo-u.ac.jp/ct/file.pdf", ts)
	require.NoError(t, err)
	require.True(t, exists)

	// A different timestamp for the same URL is a distinct attachment.
	exists, err = attachments.Exists(ctx, tx, "https://room.chuo-u.ac.jp/ct/file.pdf", ts.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAttachmentRepository_CreateAllowsNilContentOnFailedFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	attachments := database.NewAttachmentRepository()
	ts := time.Now()

	a, err := attachments.Create(ctx, tx, "broken", ".pdf", "https://room.chuo-u.ac.jp/ct/missing.pdf", nil, ts)
	require.NoError(t, err)
	require.Nil(t, a.Content)

	got, err := attachments.GetByURLAndTimestamp(ctx, tx, "https://room.chuo-u.ac.jp/ct/missing.pdf", ts)
	require.NoError(t, err)
	require.Nil(t, got.Content)
}

func TestAttachmentRepository_GetByURLAndTimestampNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	attachments := database.NewAttachmentRepository()

	_, err = attachments.GetByURLAndTimestamp(ctx, tx, "https://room.chuo-u.ac.jp/ct/nope.pdf", time.Now())
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestIterScraperBodies_SkipsNullBodyRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	courses := database.NewCourseRepository()
	news := database.NewCourseNewsRepository()

	course, err := courses.Create(ctx, tx, time.Now(), 1, "/ct/course_1", "Algorithms")
	require.NoError(t, err)

	body := "<h2 class=\"msg-subject\">hi</h2>"
	title := "hi"
	_, err = news.Create(ctx, tx, course.ID, time.Now(), "https://room.chuo-u.ac.jp/ct/course_1_news_1", &title, &body)
	require.NoError(t, err)
	_, err = news.Create(ctx, tx, course.ID, time.Now().Add(time.Minute), "https://room.chuo-u.ac.jp/ct/course_1_news_2", nil, nil)
	require.NoError(t, err)

	rows, err := database.IterScraperBodies(ctx, tx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "https://room.chuo-u.ac.jp/ct/course_1_news_1", rows[0].URL)
}
