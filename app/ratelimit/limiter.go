package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rssjumper/rssjumper/app/store"
)

const windowSize = time.Minute

// Result is the outcome of a rate-limit check. RetryAfter is set when
// the request was rejected.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter tracks a sliding request window per client IP and a temporary
// ban list. Window state is process-local; bans are persisted best-effort
// so they survive restarts.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	bans        map[string]time.Time
	limit       int
	banDuration time.Duration
	store       store.Store
}

func NewLimiter(limit int, banDuration time.Duration, st store.Store) *Limiter {
	return &Limiter{
		windows:     make(map[string][]time.Time),
		bans:        make(map[string]time.Time),
		limit:       limit,
		banDuration: banDuration,
		store:       st,
	}
}

// Check consumes one unit of rate budget for ip. Banned clients are
// rejected without touching their window, so a ban never resets early.
func (l *Limiter) Check(ip string, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.bans[ip]; ok {
		if until.After(now) {
			return Result{Allowed: false, RetryAfter: until.Sub(now)}
		}
		delete(l.bans, ip)
		delete(l.windows, ip)
	}

	recent := pruneWindow(l.windows[ip], now)

	if len(recent) >= l.limit {
		until := now.Add(l.banDuration)
		l.bans[ip] = until
		delete(l.windows, ip)
		go l.persistBans(l.banSnapshot())
		return Result{Allowed: false, RetryAfter: l.banDuration}
	}

	l.windows[ip] = append(recent, now)
	return Result{Allowed: true}
}

// BanCount returns the number of currently tracked bans, expired or not.
func (l *Limiter) BanCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bans)
}

// LoadBans restores persisted ban state. Failures leave the limiter
// running with an empty ban list.
func (l *Limiter) LoadBans(ctx context.Context) error {
	data, err := l.store.Get(ctx, store.BannedIPsKey)
	if err != nil || data == nil {
		return err
	}

	var bans map[string]time.Time
	if err := json.Unmarshal(data, &bans); err != nil {
		return err
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, until := range bans {
		if until.After(now) {
			l.bans[ip] = until
		}
	}
	return nil
}

func (l *Limiter) banSnapshot() map[string]time.Time {
	snapshot := make(map[string]time.Time, len(l.bans))
	for ip, until := range l.bans {
		snapshot[ip] = until
	}
	return snapshot
}

// persistBans writes the ban list behind the request path. Failures are
// logged and otherwise ignored; bans remain enforced in memory.
func (l *Limiter) persistBans(bans map[string]time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(bans)
	if err != nil {
		slog.Error("Failed to marshal ban list", "error", err)
		return
	}

	if err := l.store.Set(ctx, store.BannedIPsKey, data); err != nil {
		slog.Warn("Failed to persist ban list", "error", err)
	}
}

func pruneWindow(window []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-windowSize)
	recent := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
