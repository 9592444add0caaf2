package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rssjumper/rssjumper/app/store"
)

func TestPutGetRoundtrip(t *testing.T) {
	c := New(store.NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := &Entry{
		URL:         "https://example.com/feed.xml",
		Content:     []byte("<rss version=\"2.0\"></rss>"),
		ContentType: "application/rss+xml",
		Title:       "Example Feed",
		IsFeed:      true,
	}
	if err := c.Put(ctx, entry, now); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := c.Get(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a cache hit")
	}
	if string(got.Content) != string(entry.Content) {
		t.Errorf("Content = %q, want %q", got.Content, entry.Content)
	}
	if got.Title != "Example Feed" || !got.IsFeed {
		t.Errorf("metadata lost: %+v", got)
	}
	if !got.CachedAt.Equal(now) {
		t.Errorf("CachedAt = %v, want %v", got.CachedAt, now)
	}
	if !got.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want now+TTL", got.ExpiresAt)
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	c := New(store.NewMemoryStore(), 15*time.Minute)

	got, err := c.Get(context.Background(), "https://example.com/never-cached")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil on miss", got)
	}
}

func TestGetCorruptEntryIsMissAndCleanedUp(t *testing.T) {
	st := store.NewMemoryStore()
	c := New(st, 15*time.Minute)
	ctx := context.Background()

	key := Key("https://example.com/feed.xml")
	st.Set(ctx, key, []byte("not json"))

	got, err := c.Get(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("corrupt entry should read as a miss, got %+v", got)
	}

	data, _ := st.Get(ctx, key)
	if data != nil {
		t.Error("corrupt entry should be deleted on read")
	}
}

func TestEntryFreshness(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{CachedAt: now, ExpiresAt: now.Add(15 * time.Minute)}

	if !entry.Fresh(now.Add(14 * time.Minute)) {
		t.Error("entry inside the TTL should be fresh")
	}
	if entry.Fresh(now.Add(15 * time.Minute)) {
		t.Error("entry at the TTL boundary should be expired")
	}
	if age := entry.Age(now.Add(5 * time.Minute)); age != 5*time.Minute {
		t.Errorf("Age = %v, want 5m", age)
	}
}

func TestEntryBands(t *testing.T) {
	ttl := 15 * time.Minute
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		age         time.Duration
		placeholder bool
		want        Band
	}{
		{"young", time.Minute, false, BandFresh},
		{"past half ttl", 8 * time.Minute, false, BandNormal},
		{"expired", 20 * time.Minute, false, BandStale},
		{"placeholder", time.Minute, true, BandUnavailable},
	}

	for _, tt := range tests {
		entry := &Entry{CachedAt: now.Add(-tt.age), Placeholder: tt.placeholder}
		if got := entry.Band(now, ttl); got != tt.want {
			t.Errorf("%s: Band = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestKeyIsStableAndPrefixed(t *testing.T) {
	a := Key("https://example.com/feed.xml")
	b := Key("https://example.com/feed.xml")
	other := Key("https://example.com/other.xml")

	if a != b {
		t.Errorf("same URL hashed to different keys: %q vs %q", a, b)
	}
	if a == other {
		t.Error("distinct URLs hashed to the same key")
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("key %q missing prefix %q", a, keyPrefix)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := New(store.NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()
	now := time.Now()

	c.Put(ctx, &Entry{URL: "https://example.com/feed.xml", Content: []byte("x")}, now)
	if err := c.Delete(ctx, "https://example.com/feed.xml"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := c.Get(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("entry survived delete: %+v", got)
	}
}

func TestListReturnsOnlyCacheEntries(t *testing.T) {
	st := store.NewMemoryStore()
	c := New(st, 15*time.Minute)
	ctx := context.Background()
	now := time.Now()

	c.Put(ctx, &Entry{URL: "https://a.example/feed.xml", Content: []byte("a")}, now)
	c.Put(ctx, &Entry{URL: "https://b.example/feed.xml", Content: []byte("b")}, now)
	// Non-cache blobs in the same store must not leak into the listing
	st.Set(ctx, store.BlacklistKey, []byte(`["https://c.example"]`))

	entries, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	urls := map[string]bool{}
	for _, entry := range entries {
		urls[entry.URL] = true
	}
	if !urls["https://a.example/feed.xml"] || !urls["https://b.example/feed.xml"] {
		t.Errorf("unexpected listing: %v", urls)
	}
}
