package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Disk is the local-disk replay Fetcher implementation: each URL's body
// is cached under Dir, named by the hex SHA-256 of the URL string, so a
// crawl can be replayed byte-for-byte from a prior capture without
// network access.
type Disk struct {
	Dir string
}

// NewDisk builds a Disk fetcher rooted at dir.
func NewDisk(dir string) *Disk {
	return &Disk{Dir: dir}
}

func (d *Disk) pathFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(d.Dir, hex.EncodeToString(sum[:])+".html")
}

// Open reads the cached body for url from disk. A missing file is
// reported as ErrNotFound, matching the contract of the other Fetcher
// implementations.
func (d *Disk) Open(ctx context.Context, url string) (*Opened, error) {
	data, err := os.ReadFile(d.pathFor(url))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return nil, fmt.Errorf("read cached page %s: %w", url, err)
	}
	content := string(data)
	return &Opened{Content: content, Links: ExtractLinks(content)}, nil
}

// Store writes content to the replay cache for url, used by capture
// tooling to populate Dir ahead of a replay run.
func (d *Disk) Store(url, content string) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	if err := os.WriteFile(d.pathFor(url), []byte(content), 0o644); err != nil {
		return fmt.Errorf("store replay page %s: %w", url, err)
	}
	return nil
}

// Login is a no-op for replay: captured pages are already authenticated.
func (d *Disk) Login(ctx context.Context, credentials Credentials) error {
	return nil
}

var _ Interface = (*Disk)(nil)
