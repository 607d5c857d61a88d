package fetcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yasu-a/manaba-clone/internal/fetcher"
)

// fakeClock lets tests advance time deterministically rather than
// sleeping real wall-clock seconds.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestRateLimiter_FirstCallWaitsMinDelay(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	limiter := fetcher.NewRateLimiter(5, clock)

	start := time.Now()
	require.NoError(t, limiter.Block(context.Background(), "https://room.chuo-u.ac.jp/ct/home_"))
	require.GreaterOrEqual(t, time.Since(start), fetcher.MinDelay)
}

func TestRateLimiter_PerHostIndependence(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	limiter := fetcher.NewRateLimiter(9999, clock)

	require.NoError(t, limiter.Block(context.Background(), "https://a.example/x"))

	// A different host is unaffected by a.example's long required delay.
	done := make(chan error, 1)
	go func() { done <- limiter.Block(context.Background(), "https://b.example/y") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Block for a distinct host should not wait on a.example's rate limit")
	}
}

func TestRateLimiter_ContextCancellationUnblocks(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	limiter := fetcher.NewRateLimiter(9999, clock)

	require.NoError(t, limiter.Block(context.Background(), "https://a.example/x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Block(ctx, "https://a.example/x")
	require.ErrorIs(t, err, context.Canceled)
}
