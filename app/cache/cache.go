package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rssjumper/rssjumper/app/store"
)

const keyPrefix = "cache:"

// Band classifies cache age for the admin surface. It never affects the
// serving decision, which only distinguishes fresh from expired.
type Band string

const (
	BandFresh       Band = "fresh"       // younger than half the TTL
	BandNormal      Band = "normal"      // between half the TTL and the TTL
	BandStale       Band = "stale"       // past the TTL
	BandUnavailable Band = "unavailable" // synthesized placeholder
)

// Entry is one cached feed document. Entries are overwritten on refresh,
// never appended, and stay retrievable indefinitely once expired.
type Entry struct {
	URL         string    `json:"url"`
	Content     []byte    `json:"content"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title,omitempty"`
	IsFeed      bool      `json:"is_feed"`
	Placeholder bool      `json:"placeholder,omitempty"`
	CachedAt    time.Time `json:"cached_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

func (e *Entry) Band(now time.Time, ttl time.Duration) Band {
	if e.Placeholder {
		return BandUnavailable
	}
	age := e.Age(now)
	switch {
	case age < ttl/2:
		return BandFresh
	case age < ttl:
		return BandNormal
	default:
		return BandStale
	}
}

// Key derives the stable store key for a feed URL.
func Key(feedURL string) string {
	hash := sha256.Sum256([]byte(feedURL))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:8])
}

// FeedCache stores one Entry per feed URL in the blob store.
type FeedCache struct {
	store store.Store
	ttl   time.Duration
}

func New(st store.Store, ttl time.Duration) *FeedCache {
	return &FeedCache{store: st, ttl: ttl}
}

func (c *FeedCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached entry for feedURL, or nil on a miss. A blob
// that no longer decodes is deleted and treated as a miss.
func (c *FeedCache) Get(ctx context.Context, feedURL string) (*Entry, error) {
	data, err := c.store.Get(ctx, Key(feedURL))
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.store.Delete(ctx, Key(feedURL))
		return nil, nil
	}
	return &entry, nil
}

// Put overwrites the entry for entry.URL, stamping CachedAt/ExpiresAt
// from now and the configured TTL.
func (c *FeedCache) Put(ctx context.Context, entry *Entry, now time.Time) error {
	entry.CachedAt = now
	entry.ExpiresAt = now.Add(c.ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.store.Set(ctx, Key(entry.URL), data); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *FeedCache) Delete(ctx context.Context, feedURL string) error {
	if err := c.store.Delete(ctx, Key(feedURL)); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List returns all cached entries for the admin surface. Entries that
// fail to load individually are skipped.
func (c *FeedCache) List(ctx context.Context) ([]Entry, error) {
	keys, err := c.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, err := c.store.Get(ctx, key)
		if err != nil || data == nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
