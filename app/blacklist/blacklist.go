package blacklist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rssjumper/rssjumper/app/store"
)

// Blacklist is the set of disabled feed URLs. Mutations are admin
// triggered and rare, so every change is written through to the store
// immediately.
type Blacklist struct {
	mu    sync.RWMutex
	urls  map[string]struct{}
	store store.Store
}

func New(st store.Store) *Blacklist {
	return &Blacklist{
		urls:  make(map[string]struct{}),
		store: st,
	}
}

// Load populates the set from the persisted blob. A missing blob is not
// an error; callers treat any failure as non-fatal and start empty.
func (b *Blacklist) Load(ctx context.Context) error {
	data, err := b.store.Get(ctx, store.BlacklistKey)
	if err != nil {
		return fmt.Errorf("failed to load blacklist: %w", err)
	}
	if data == nil {
		return nil
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return fmt.Errorf("failed to decode blacklist: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range urls {
		b.urls[u] = struct{}{}
	}
	return nil
}

// Seed adds URLs without persisting them, for settings-file defaults.
func (b *Blacklist) Seed(urls []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range urls {
		b.urls[u] = struct{}{}
	}
}

func (b *Blacklist) Contains(url string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.urls[url]
	return ok
}

func (b *Blacklist) Add(ctx context.Context, url string) error {
	b.mu.Lock()
	b.urls[url] = struct{}{}
	b.mu.Unlock()
	return b.persist(ctx)
}

func (b *Blacklist) Remove(ctx context.Context, url string) error {
	b.mu.Lock()
	delete(b.urls, url)
	b.mu.Unlock()
	return b.persist(ctx)
}

func (b *Blacklist) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.urls)
}

func (b *Blacklist) URLs() []string {
	b.mu.RLock()
	urls := make([]string, 0, len(b.urls))
	for u := range b.urls {
		urls = append(urls, u)
	}
	b.mu.RUnlock()

	sort.Strings(urls)
	return urls
}

func (b *Blacklist) persist(ctx context.Context) error {
	data, err := json.Marshal(b.URLs())
	if err != nil {
		return fmt.Errorf("failed to encode blacklist: %w", err)
	}
	if err := b.store.Set(ctx, store.BlacklistKey, data); err != nil {
		return fmt.Errorf("failed to persist blacklist: %w", err)
	}
	return nil
}
