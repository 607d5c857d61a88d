package fetcher

import (
	"context"
	"fmt"
)

// Memory is the in-memory Fetcher implementation used by the end-to-end
// crawl tests: a fixed map of URL to HTML body, plus an optional set of
// URLs that should fail with ErrNotFound or an HTTPError.
type Memory struct {
	Files        map[string]string
	NotFound     map[string]bool
	HTTPFailures map[string]int // url -> status code

	LoginCalls []Credentials
	FailLogin  bool
}

// NewMemory builds a Memory fetcher over the given file set.
func NewMemory(files map[string]string) *Memory {
	return &Memory{
		Files:        files,
		NotFound:     map[string]bool{},
		HTTPFailures: map[string]int{},
	}
}

// Open returns the registered content for url, or ErrNotFound/HTTPError if
// url was configured to fail.
func (m *Memory) Open(ctx context.Context, url string) (*Opened, error) {
	if m.NotFound[url] {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if status, ok := m.HTTPFailures[url]; ok {
		return nil, &HTTPError{Status: status}
	}
	content, ok := m.Files[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return &Opened{Content: content, Links: ExtractLinks(content)}, nil
}

// Login records the call and fails if FailLogin is set.
func (m *Memory) Login(ctx context.Context, credentials Credentials) error {
	m.LoginCalls = append(m.LoginCalls, credentials)
	if m.FailLogin {
		return fmt.Errorf("memory fetcher: incorrect credentials")
	}
	return nil
}

var _ Interface = (*Memory)(nil)
