package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rssjumper/rssjumper/app/store"
)

const dateFormat = "2006-01-02"

// Record holds the access counters for one feed URL.
type Record struct {
	URL         string            `json:"url"`
	Count       uint64            `json:"count"`
	FirstAccess time.Time         `json:"first_access"`
	LastAccess  time.Time         `json:"last_access"`
	Daily       map[string]uint64 `json:"daily"`
}

// Merge folds other into r field-wise: counts sum, FirstAccess takes the
// minimum, LastAccess the maximum, daily counts sum per date. This keeps
// concurrent writers additive instead of last-writer-wins.
func (r *Record) Merge(other *Record) {
	r.Count += other.Count

	if r.FirstAccess.IsZero() || (!other.FirstAccess.IsZero() && other.FirstAccess.Before(r.FirstAccess)) {
		r.FirstAccess = other.FirstAccess
	}
	if other.LastAccess.After(r.LastAccess) {
		r.LastAccess = other.LastAccess
	}

	if r.Daily == nil {
		r.Daily = make(map[string]uint64)
	}
	for date, count := range other.Daily {
		r.Daily[date] += count
	}
}

// Entry is the read-model row for the admin surface.
type Entry struct {
	URL         string    `json:"url"`
	Count       uint64    `json:"count"`
	TodayCount  uint64    `json:"todayCount"`
	FirstAccess time.Time `json:"firstAccess"`
	LastAccess  time.Time `json:"lastAccess"`
}

// Ledger accumulates access counters in memory and merges them into the
// persisted snapshot on flush. With a zero interval every Record triggers
// an immediate background flush; otherwise a ticker coalesces them.
type Ledger struct {
	mu      sync.Mutex
	pending map[string]*Record
	store   store.Store

	// flushMu serializes the read-merge-write cycle against the store.
	// Two interleaved flushes would load the same snapshot and the later
	// write would drop the earlier one's deltas.
	flushMu sync.Mutex

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func New(st store.Store, interval time.Duration) *Ledger {
	return &Ledger{
		pending:  make(map[string]*Record),
		store:    st,
		interval: interval,
	}
}

// Record counts one access. It never blocks on persistence.
func (l *Ledger) Record(url string, now time.Time) {
	l.mu.Lock()
	rec, ok := l.pending[url]
	if !ok {
		rec = &Record{URL: url, Daily: make(map[string]uint64)}
		l.pending[url] = rec
	}
	rec.Count++
	if rec.FirstAccess.IsZero() {
		rec.FirstAccess = now
	}
	rec.LastAccess = now
	rec.Daily[now.Format(dateFormat)]++
	l.mu.Unlock()

	if l.interval == 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Flush(ctx); err != nil {
				slog.Warn("Access log flush failed", "error", err)
			}
		}()
	}
}

// Flush merges pending deltas into the persisted snapshot and writes the
// result back. Flushes run one at a time; deltas are re-queued on write
// failure so no access is dropped, and a snapshot that cannot be read is
// replaced rather than lost.
func (l *Ledger) Flush(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return nil
	}
	deltas := l.pending
	l.pending = make(map[string]*Record)
	l.mu.Unlock()

	snapshot, err := l.loadSnapshot(ctx)
	if err != nil {
		slog.Warn("Access log snapshot unreadable, writing fresh", "error", err)
		snapshot = make(map[string]*Record)
	}

	for url, delta := range deltas {
		if existing, ok := snapshot[url]; ok {
			existing.Merge(delta)
		} else {
			snapshot[url] = delta
		}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		l.requeue(deltas)
		return fmt.Errorf("failed to encode access log: %w", err)
	}

	if err := l.store.Set(ctx, store.AccessLogKey, data); err != nil {
		l.requeue(deltas)
		return fmt.Errorf("failed to persist access log: %w", err)
	}

	return nil
}

// Snapshot returns the merged view (persisted snapshot plus pending
// deltas) for the admin surface, most recently accessed first.
func (l *Ledger) Snapshot(ctx context.Context, asOfDate string) ([]Entry, error) {
	merged, err := l.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	for url, delta := range l.pending {
		if existing, ok := merged[url]; ok {
			existing.Merge(delta)
		} else {
			copied := *delta
			copied.Daily = make(map[string]uint64, len(delta.Daily))
			for date, count := range delta.Daily {
				copied.Daily[date] = count
			}
			merged[url] = &copied
		}
	}
	l.mu.Unlock()

	entries := make([]Entry, 0, len(merged))
	for url, rec := range merged {
		entries = append(entries, Entry{
			URL:         url,
			Count:       rec.Count,
			TodayCount:  rec.Daily[asOfDate],
			FirstAccess: rec.FirstAccess,
			LastAccess:  rec.LastAccess,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.After(entries[j].LastAccess)
	})

	return entries, nil
}

// Reset clears both pending deltas and the persisted snapshot.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.pending = make(map[string]*Record)
	l.mu.Unlock()

	if err := l.store.Delete(ctx, store.AccessLogKey); err != nil {
		return fmt.Errorf("failed to reset access log: %w", err)
	}
	return nil
}

// Start launches the coalescing flush loop. No-op for interval 0.
func (l *Ledger) Start() {
	if l.interval == 0 {
		return
	}

	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := l.Flush(ctx); err != nil {
					slog.Warn("Access log flush failed", "error", err)
				}
				cancel()
			}
		}
	}()
}

// Stop terminates the flush loop and performs a final flush.
func (l *Ledger) Stop() {
	if l.stop != nil {
		close(l.stop)
		<-l.done
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Flush(ctx); err != nil {
		slog.Warn("Final access log flush failed", "error", err)
	}
}

func (l *Ledger) loadSnapshot(ctx context.Context) (map[string]*Record, error) {
	data, err := l.store.Get(ctx, store.AccessLogKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return make(map[string]*Record), nil
	}

	var snapshot map[string]*Record
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode access log: %w", err)
	}
	if snapshot == nil {
		snapshot = make(map[string]*Record)
	}
	return snapshot, nil
}

func (l *Ledger) requeue(deltas map[string]*Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for url, delta := range deltas {
		if existing, ok := l.pending[url]; ok {
			existing.Merge(delta)
		} else {
			l.pending[url] = delta
		}
	}
}

// DateKey formats a timestamp as a daily counter key.
func DateKey(t time.Time) string {
	return t.Format(dateFormat)
}
