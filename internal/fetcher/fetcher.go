// Package fetcher implements the pluggable URL opener the crawl engine
// consumes, plus its rate limiter and login hook. Three implementations are provided: a cookie-backed HTTPS fetcher
// for production use, an in-memory fetcher for tests, and a local-disk
// fetcher for replay.
package fetcher

import (
	"context"
	"errors"
	"net/http"
)

// ErrNotFound is returned when the remote resource does not exist
// (HTTP 404), distinct from other HTTP errors so the crawl engine can
// close the task with a negative PageContent without treating it as
// fatal.
var ErrNotFound = errors.New("fetcher: not found")

// HTTPError wraps a non-2xx, non-404 HTTP response status, also
// recoverable from the crawl loop's point of view.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.Status)
}

// Credentials is the (uid, password) pair Login consumes.
type Credentials struct {
	UID      string
	Password string
}

// Opened is the result of a successful Open call: the page's raw body and
// an iterator over the anchors discovered in it.
type Opened struct {
	Content string
	Links   []string
}

// Interface is the capability the crawl engine consumes to fetch a URL
// and discover its outbound links. Implementations may block; Open fails
// with ErrNotFound or *HTTPError for recoverable per-URL failures, any
// other error is fatal.
type Interface interface {
	// Open fetches url and returns its body and discovered links.
	Open(ctx context.Context, url string) (*Opened, error)
	// Login authenticates using credentials. Idempotent; subsequent Open
	// calls are authenticated on success. Fails fast on incorrect
	// credentials.
	Login(ctx context.Context, credentials Credentials) error
}
