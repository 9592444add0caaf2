package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/rssjumper/rssjumper/app/store"
)

func TestLimiterBansAfterLimit(t *testing.T) {
	limiter := NewLimiter(2, 5*time.Minute, store.NewMemoryStore())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if r := limiter.Check("1.2.3.4", now); !r.Allowed {
		t.Fatal("1st request should be allowed")
	}
	if r := limiter.Check("1.2.3.4", now.Add(time.Second)); !r.Allowed {
		t.Fatal("2nd request should be allowed")
	}

	r := limiter.Check("1.2.3.4", now.Add(2*time.Second))
	if r.Allowed {
		t.Fatal("3rd request within the window should be banned")
	}
	if r.RetryAfter != 5*time.Minute {
		t.Errorf("RetryAfter = %v, want 5m", r.RetryAfter)
	}

	// The ban holds even after the window itself would have cleared
	if r := limiter.Check("1.2.3.4", now.Add(2*time.Minute)); r.Allowed {
		t.Error("banned IP should stay banned regardless of window content")
	}

	// After the ban expires the client starts fresh
	if r := limiter.Check("1.2.3.4", now.Add(5*time.Minute+3*time.Second)); !r.Allowed {
		t.Error("request after ban expiry should be allowed")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	limiter := NewLimiter(2, 5*time.Minute, store.NewMemoryStore())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	limiter.Check("5.6.7.8", now)
	limiter.Check("5.6.7.8", now.Add(time.Second))

	// Both prior requests fall outside the trailing 60s window
	if r := limiter.Check("5.6.7.8", now.Add(90*time.Second)); !r.Allowed {
		t.Error("request after window slid past should be allowed")
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	limiter := NewLimiter(1, 5*time.Minute, store.NewMemoryStore())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	limiter.Check("1.1.1.1", now)
	if r := limiter.Check("1.1.1.1", now.Add(time.Second)); r.Allowed {
		t.Fatal("second request from first client should be banned")
	}

	if r := limiter.Check("2.2.2.2", now.Add(time.Second)); !r.Allowed {
		t.Error("other clients must not be affected by a ban")
	}
}

func TestLimiterPersistsAndReloadsBans(t *testing.T) {
	st := store.NewMemoryStore()
	limiter := NewLimiter(1, 5*time.Minute, st)
	now := time.Now()

	limiter.Check("9.9.9.9", now)
	limiter.Check("9.9.9.9", now.Add(time.Second))

	// Persistence runs behind the request path; wait for it
	deadline := time.Now().Add(2 * time.Second)
	for {
		data, _ := st.Get(context.Background(), store.BannedIPsKey)
		if data != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ban list was never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	restarted := NewLimiter(1, 5*time.Minute, st)
	if err := restarted.LoadBans(context.Background()); err != nil {
		t.Fatalf("LoadBans failed: %v", err)
	}
	if r := restarted.Check("9.9.9.9", time.Now()); r.Allowed {
		t.Error("ban should survive a restart")
	}
}

func TestLoadBansMissingBlobIsNoop(t *testing.T) {
	limiter := NewLimiter(1, time.Minute, store.NewMemoryStore())
	if err := limiter.LoadBans(context.Background()); err != nil {
		t.Fatalf("LoadBans on empty store failed: %v", err)
	}
	if limiter.BanCount() != 0 {
		t.Errorf("BanCount = %d, want 0", limiter.BanCount())
	}
}
