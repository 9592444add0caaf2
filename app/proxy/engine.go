package proxy

import (
	"context"
	"log/slog"
	"time"

	"github.com/rssjumper/rssjumper/app/blacklist"
	"github.com/rssjumper/rssjumper/app/cache"
	"github.com/rssjumper/rssjumper/app/feed"
	"github.com/rssjumper/rssjumper/app/fetcher"
	"github.com/rssjumper/rssjumper/app/ledger"
	"github.com/rssjumper/rssjumper/app/ratelimit"
	"github.com/rssjumper/rssjumper/app/validator"
)

const storeTimeout = 5 * time.Second

// CacheStatus is reported to callers via the X-RSSJumper-Cache header.
type CacheStatus string

const (
	StatusFresh       CacheStatus = "fresh"
	StatusUpdated     CacheStatus = "updated"
	StatusStale       CacheStatus = "stale"
	StatusUnavailable CacheStatus = "unavailable"
)

// Response is the proxied document plus serving metadata.
type Response struct {
	Body        []byte
	ContentType string
	CacheStatus CacheStatus
	Success     bool
}

// DecisionKind classifies the outcome of a proxy request before (or
// instead of) serving.
type DecisionKind int

const (
	DecisionServed DecisionKind = iota
	DecisionInvalid
	DecisionBlacklisted
	DecisionRateLimited
)

type Decision struct {
	Kind       DecisionKind
	Err        error         // set for DecisionInvalid
	RetryAfter time.Duration // set for DecisionRateLimited
	Response   *Response     // set for DecisionServed and DecisionBlacklisted
}

// Engine orders every proxy decision: validate, blacklist, rate limit,
// then the cache/fetch/stale/placeholder fallback chain. It prioritizes
// availability over freshness and always hands feed readers a parseable
// document instead of a transport error.
type Engine struct {
	cache     *cache.FeedCache
	ledger    *ledger.Ledger
	fetcher   *fetcher.Fetcher
	blacklist *blacklist.Blacklist
	limiter   *ratelimit.Limiter
	generator *feed.Generator
}

func NewEngine(feedCache *cache.FeedCache, accessLedger *ledger.Ledger, feedFetcher *fetcher.Fetcher,
	bl *blacklist.Blacklist, limiter *ratelimit.Limiter) *Engine {
	return &Engine{
		cache:     feedCache,
		ledger:    accessLedger,
		fetcher:   feedFetcher,
		blacklist: bl,
		limiter:   limiter,
		generator: feed.NewGenerator(),
	}
}

// Handle runs the full request pipeline for a raw caller-supplied URL.
// Blacklist and ban checks come strictly before any cache or fetch work,
// so rejected callers never spend fetch budget and a banned IP never
// sees a cache hit.
func (e *Engine) Handle(ctx context.Context, rawURL, clientIP string, now time.Time) Decision {
	feedURL, err := validator.Validate(rawURL)
	if err != nil {
		return Decision{Kind: DecisionInvalid, Err: err}
	}

	if e.blacklist.Contains(feedURL) {
		e.ledger.Record(feedURL, now)
		return Decision{
			Kind: DecisionBlacklisted,
			Response: &Response{
				Body:        e.generator.Blacklisted(feedURL, now),
				ContentType: "application/xml; charset=utf-8",
				Success:     false,
			},
		}
	}

	if result := e.limiter.Check(clientIP, now); !result.Allowed {
		return Decision{Kind: DecisionRateLimited, RetryAfter: result.RetryAfter}
	}

	return Decision{Kind: DecisionServed, Response: e.Serve(ctx, feedURL, now)}
}

// Serve resolves a validated feed URL through the ordered fallback
// chain: fresh cache, live fetch, stale cache, synthesized placeholder.
// Each step is terminal when it produces a document.
func (e *Engine) Serve(ctx context.Context, feedURL string, now time.Time) *Response {
	e.ledger.Record(feedURL, now)

	entry, err := e.readCache(ctx, feedURL)
	if err != nil {
		slog.Warn("Cache read failed, continuing without cache", "url", feedURL, "error", err)
	}
	if entry != nil && entry.Fresh(now) {
		// A cached placeholder still absorbs the request, but it is not
		// origin content and must not report success
		return &Response{
			Body:        entry.Content,
			ContentType: entry.ContentType,
			CacheStatus: StatusFresh,
			Success:     !entry.Placeholder,
		}
	}

	result, fetchErr := e.fetcher.Run(ctx, feedURL)
	if fetchErr == nil {
		e.writeCacheAsync(&cache.Entry{
			URL:         feedURL,
			Content:     result.Content,
			ContentType: result.ContentType,
			Title:       result.Title,
			IsFeed:      result.IsFeed,
		}, now)
		return &Response{
			Body:        result.Content,
			ContentType: result.ContentType,
			CacheStatus: StatusUpdated,
			Success:     true,
		}
	}

	slog.Info("Origin fetch failed, falling back to cache", "url", feedURL, "error", fetchErr)

	// Re-read ignoring expiry: a concurrent request may have cached the
	// document while the fetch attempts were running.
	stale, err := e.readCache(ctx, feedURL)
	if err != nil || stale == nil {
		stale = entry
	}
	if stale != nil {
		return &Response{
			Body:        stale.Content,
			ContentType: stale.ContentType,
			CacheStatus: StatusStale,
			Success:     !stale.Placeholder,
		}
	}

	placeholder := e.generator.Unavailable(feedURL, fetchErr.Error(), now)
	e.writeCacheAsync(&cache.Entry{
		URL:         feedURL,
		Content:     placeholder,
		ContentType: "application/xml; charset=utf-8",
		IsFeed:      true,
		Placeholder: true,
	}, now)

	return &Response{
		Body:        placeholder,
		ContentType: "application/xml; charset=utf-8",
		CacheStatus: StatusUnavailable,
		Success:     false,
	}
}

// Refresh implements the admin refreshCache action: drop the entry,
// fetch live, re-cache synchronously.
func (e *Engine) Refresh(ctx context.Context, feedURL string, now time.Time) error {
	if err := e.cache.Delete(ctx, feedURL); err != nil {
		return err
	}

	result, err := e.fetcher.Run(ctx, feedURL)
	if err != nil {
		return err
	}

	return e.cache.Put(ctx, &cache.Entry{
		URL:         feedURL,
		Content:     result.Content,
		ContentType: result.ContentType,
		Title:       result.Title,
		IsFeed:      result.IsFeed,
	}, now)
}

func (e *Engine) readCache(ctx context.Context, feedURL string) (*cache.Entry, error) {
	readCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return e.cache.Get(readCtx, feedURL)
}

// writeCacheAsync persists an entry behind the response path. The caller
// already has its document; a failed write only costs the next request a
// fetch.
func (e *Engine) writeCacheAsync(entry *cache.Entry, now time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := e.cache.Put(ctx, entry, now); err != nil {
			slog.Warn("Background cache write failed", "url", entry.URL, "error", err)
		}
	}()
}
