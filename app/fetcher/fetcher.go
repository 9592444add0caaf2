package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rssjumper/rssjumper/app/feed"
)

const (
	maxRedirects       = 5
	defaultContentType = "application/xml; charset=utf-8"

	// Keep responses bounded; feeds past this size are cut off.
	maxBodySize = 10 << 20
)

// attemptTimeouts is the fixed retry schedule. Any attempt succeeding
// short-circuits the rest; no backoff beyond these three steps.
var attemptTimeouts = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Result is a successfully fetched origin document. Title and IsFeed are
// best-effort classification for the cache and admin surface.
type Result struct {
	Content     []byte
	ContentType string
	Title       string
	IsFeed      bool
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func New(userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Run fetches url with bounded, increasing-timeout attempts. All
// transport failures and out-of-range statuses are retried on the fixed
// schedule; the last error is returned when every attempt fails.
func (f *Fetcher) Run(ctx context.Context, url string) (*Result, error) {
	var lastErr error

	for i, timeout := range attemptTimeouts {
		result, err := f.attempt(ctx, url, timeout)
		if err == nil {
			f.classify(result)
			return result, nil
		}
		lastErr = err
		slog.Debug("Fetch attempt failed", "url", url, "attempt", i+1, "timeout", timeout.String(), "error", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("all fetch attempts failed: %w", lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &Result{Content: content, ContentType: contentType}, nil
}

// classify records whether the body looks like a feed and extracts its
// title. Parse failures are ignored: validity judgment is deferred to
// the cache/placeholder layer, not the fetch path.
func (f *Fetcher) classify(result *Result) {
	result.IsFeed = feed.LooksLikeFeed(result.ContentType, result.Content)

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(result.Content))
	if err == nil {
		result.Title = parsed.Title
	}
}
