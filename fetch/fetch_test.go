package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFetch_CacheRoundTrip verifies a cached payload is returned
// byte-identical with zero additional network calls
func TestFetch_CacheRoundTrip(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte("<html>payload</html>"))
	}))
	defer server.Close()

	f := New(Options{CacheDir: t.TempDir(), UseCache: true}, nil)

	first, err := f.Fetch(context.Background(), server.URL+"/page")
	require.NoError(t, err)

	second, err := f.Fetch(context.Background(), server.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, first, second, "cache read should be byte-identical")
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "second fetch should not reach the network")
}

// TestFetch_CacheDisabled verifies every fetch reaches the network when
// caching is off
func TestFetch_CacheDisabled(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	f := New(Options{UseCache: false}, nil)

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

// TestFetch_RateLimit verifies two uncached fetches are never initiated less
// than the configured minimum delay apart
func TestFetch_RateLimit(t *testing.T) {
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.Write([]byte("x"))
	}))
	defer server.Close()

	delay := 120 * time.Millisecond
	f := New(Options{MinDelay: delay}, nil)

	_, err := f.Fetch(context.Background(), server.URL+"/a")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL+"/b")
	require.NoError(t, err)

	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), delay,
		"second request should wait out the minimum delay")
}

// TestFetch_CacheHitSkipsDelay verifies a cache hit does not pay the
// rate-limit delay
func TestFetch_CacheHitSkipsDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	f := New(Options{CacheDir: t.TempDir(), UseCache: true, MinDelay: 500 * time.Millisecond}, nil)

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	start := time.Now()
	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "cache hit should return immediately")
}

// TestFetch_HTTPError verifies non-2xx responses surface as HTTPError with
// the status code
func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := New(Options{}, nil)

	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

// TestFetch_SendsBrowserHeaders verifies the request carries a browser
// user agent and accept headers
func TestFetch_SendsBrowserHeaders(t *testing.T) {
	var ua, accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.Write([]byte("x"))
	}))
	defer server.Close()

	f := New(Options{}, nil)
	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, ua, "Mozilla/5.0")
	assert.Contains(t, accept, "text/html")
}

// TestCacheKey verifies cache keys are filesystem-safe, deterministic, and
// bounded in length
func TestCacheKey(t *testing.T) {
	key := CacheKey("https://example.org/study/general-conference/2023/10?lang=eng")

	assert.Equal(t, "example_org_study_general_conference_2023_10_lang_eng", key)
	assert.Equal(t, key, CacheKey("https://example.org/study/general-conference/2023/10?lang=eng"))

	long := CacheKey("https://example.org/" + strings.Repeat("a/", 400))
	assert.LessOrEqual(t, len(long), 180)
}

// TestFetch_CacheWriteFailureSwallowed verifies an unwritable cache degrades
// to a successful uncached fetch
func TestFetch_CacheWriteFailureSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// A file, not a directory: MkdirAll and WriteFile will both fail.
	f := New(Options{CacheDir: "/dev/null/cache", UseCache: true}, nil)

	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err, "cache failure must not fail the fetch")
	assert.Equal(t, "ok", string(body))
}
