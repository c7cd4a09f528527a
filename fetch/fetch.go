// Package fetch retrieves raw page content over HTTP with a disk cache and
// a minimum inter-request delay. The delay is the pipeline's single
// concurrency-control point: every network request funnels through one
// limiter owned by the Fetcher instance, so independent scrape sessions
// never share rate-limit state.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is a realistic browser user agent. The conference site
// rejects unidentified clients with 403s.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxCacheKeyLen bounds cache file names so deep query strings cannot exceed
// filesystem path limits.
const maxCacheKeyLen = 180

// Options configures a Fetcher.
type Options struct {
	// CacheDir is where fetched payloads are stored, keyed by URL.
	CacheDir string
	// UseCache enables the cache read/write path. When false every Fetch
	// goes to the network.
	UseCache bool
	// MinDelay is the minimum time between consecutive network requests.
	MinDelay time.Duration
	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string
	// Timeout is the per-request HTTP timeout. Defaults to 30s.
	Timeout time.Duration
}

// Fetcher retrieves URLs with caching and rate limiting.
type Fetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger
}

// HTTPError is returned for non-2xx responses so callers can branch on the
// status code (e.g. fall back from the API to plain HTML on 404).
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// New creates a Fetcher. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.MinDelay > 0 {
		limit = rate.Every(opts.MinDelay)
	}

	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Fetch returns the raw content of the URL. A cache hit returns immediately
// with no network access and no rate-limit delay. On a miss, Fetch suspends
// until the minimum inter-request delay has elapsed, issues the request, and
// persists the body to cache best-effort.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.opts.UseCache {
		if body, ok := f.readCache(url); ok {
			f.log.Debug("cache hit", zap.String("url", url))
			return body, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	f.log.Debug("fetching", zap.String("url", url))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if f.opts.UseCache {
		f.writeCache(url, body)
	}

	return body, nil
}

var cacheKeyRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// CacheKey derives a deterministic, filesystem-safe cache file name from a
// URL: scheme stripped, runs of non-alphanumerics collapsed to underscores,
// truncated to a bounded length.
func CacheKey(url string) string {
	key := url
	if i := indexSchemeEnd(url); i >= 0 {
		key = url[i:]
	}
	key = cacheKeyRe.ReplaceAllString(key, "_")
	if len(key) > maxCacheKeyLen {
		key = key[:maxCacheKeyLen]
	}
	return key
}

func indexSchemeEnd(url string) int {
	for i := 0; i+3 <= len(url); i++ {
		if url[i:i+3] == "://" {
			return i + 3
		}
	}
	return -1
}

func (f *Fetcher) cachePath(url string) string {
	return filepath.Join(f.opts.CacheDir, CacheKey(url))
}

func (f *Fetcher) readCache(url string) ([]byte, bool) {
	body, err := os.ReadFile(f.cachePath(url))
	if err != nil {
		return nil, false
	}
	return body, true
}

// writeCache persists a payload best-effort. A cache-write failure (e.g. a
// read-only filesystem) must never fail the scrape; it is logged and
// swallowed.
func (f *Fetcher) writeCache(url string, body []byte) {
	if err := os.MkdirAll(f.opts.CacheDir, 0o755); err != nil {
		f.log.Warn("cache directory unavailable", zap.String("dir", f.opts.CacheDir), zap.Error(err))
		return
	}
	if err := os.WriteFile(f.cachePath(url), body, 0o644); err != nil {
		f.log.Warn("cache write failed", zap.String("url", url), zap.Error(err))
	}
}
