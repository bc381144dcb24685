// Package pdfcache downloads PDFs and caches them on disk so repeat views
// don't hit the origin site. Transforming PDF contents is out of scope; the
// cache serves bytes as fetched.
package pdfcache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrHostNotAllowed is returned for URLs outside the allowlisted hosts.
var ErrHostNotAllowed = errors.New("pdf host not allowed")

// Cache fetches and stores PDFs keyed by URL hash.
type Cache struct {
	dir          string
	allowedHosts map[string]struct{}
	client       *http.Client
	userAgent    string
	logger       *slog.Logger
}

// Options configures a Cache.
type Options struct {
	Dir string
	// AllowedHosts restricts which origins may be proxied. Empty means any.
	AllowedHosts []string
	Timeout      time.Duration
	// InsecureSkipVerify matches the scraper's setting for the same site.
	InsecureSkipVerify bool
	UserAgent          string
}

// New creates the cache directory if needed.
func New(opts Options, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	hosts := make(map[string]struct{}, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}

	return &Cache{
		dir:          opts.Dir,
		allowedHosts: hosts,
		client:       &http.Client{Timeout: opts.Timeout, Transport: transport},
		userAgent:    opts.UserAgent,
		logger:       logger.With("component", "pdfcache"),
	}, nil
}

// CachePath returns the on-disk location for a URL's cached PDF.
func (c *Cache) CachePath(rawURL string) string {
	sum := xxhash.Sum64String(rawURL)
	return filepath.Join(c.dir, strconv.FormatUint(sum, 16)+".pdf")
}

// Get returns the PDF bytes for a URL, from cache when present, downloading
// and caching otherwise.
func (c *Cache) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.checkHost(rawURL); err != nil {
		return nil, err
	}

	path := c.CachePath(rawURL)
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	data, err := c.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// A failed cache write is not fatal; the bytes are already in hand.
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.logger.Warn("cache write failed", "path", path, "error", err)
	}
	return data, nil
}

// Clear removes all cached PDFs.
func (c *Cache) Clear() error {
	entries, err := filepath.Glob(filepath.Join(c.dir, "*.pdf"))
	if err != nil {
		return err
	}
	for _, path := range entries {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

func (c *Cache) checkHost(rawURL string) error {
	if len(c.allowedHosts) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if _, ok := c.allowedHosts[strings.ToLower(u.Hostname())]; !ok {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return nil
}

func (c *Cache) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download pdf: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	return data, nil
}
