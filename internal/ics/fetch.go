package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	appLog "pastelcal/internal/log"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxBodyBytes      = 8 << 20
)

// Source represents a single ICS feed.
type Source struct {
	// ID is an internal identifier used for logging.
	ID string
	// URL is the ICS endpoint.
	URL string
}

// FetchResult contains the outcome of fetching a single ICS source.
type FetchResult struct {
	Source    Source
	Body      []byte // ICS payload (either freshly fetched or remembered)
	FromCache bool   // true if we reused the remembered body due to 304
}

// cacheEntry holds HTTP validators and the last body for a single URL.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
}

// FetcherConfig tunes a Fetcher. Zero values select defaults.
type FetcherConfig struct {
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	// Negative disables retries.
	MaxRetries int
	// Backoff is the base of the exponential backoff between attempts.
	Backoff time.Duration
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Fetcher downloads ICS feeds with a per-attempt timeout, bounded retries
// and conditional GET (ETag / Last-Modified).
type Fetcher struct {
	client     *http.Client
	maxRetries uint64
	backoff    time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewFetcher creates a new ICS Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	retries := uint64(defaultMaxRetries)
	switch {
	case cfg.MaxRetries < 0:
		retries = 0
	case cfg.MaxRetries > 0:
		retries = uint64(cfg.MaxRetries)
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	return &Fetcher{
		client:     client,
		maxRetries: retries,
		backoff:    backoff,
		cache:      make(map[string]cacheEntry),
	}
}

// StatusError reports a non-OK HTTP response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string { return "unexpected status " + e.Status }

// Fetch downloads src, retrying network errors and 5xx responses.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	backoff := retry.WithMaxRetries(f.maxRetries, retry.NewExponential(f.backoff))

	var res FetchResult
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		r, err := f.fetchOnce(ctx, src)
		if err != nil {
			appLog.Error("ics fetch attempt failed", err, "id", src.ID, "url", redactURL(src.URL), "attempt", attempt)
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", src.ID, err)
	}
	return res, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, src Source) (FetchResult, error) {
	f.mu.Lock()
	meta, cached := f.cache[src.URL]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}

	// Conditional headers from remembered validators.
	if cached && meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if cached && meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return FetchResult{}, readErr
		}

		f.mu.Lock()
		f.cache[src.URL] = cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
		}
		f.mu.Unlock()

		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if !cached || len(meta.Body) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: meta.Body, FromCache: true}, nil

	default:
		return FetchResult{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
}

// retryable reports whether another attempt could succeed. Client errors
// (4xx) and context cancellation are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
//
//	https://example.com/path/to/private.ics?token=abcd
//	-> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "ics://...(redacted)"
	}
	host := rest
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' || rest[i] == '?' {
			host = rest[:i]
			break
		}
	}
	return scheme + "://" + host + redactedSuffix
}
