package security

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"studio-backend/internal/domain"
	"studio-backend/internal/testutil"
)

var testLimit = domain.RateLimitConfig{Window: time.Minute, MaxRequests: 5, KeyPrefix: "login"}

func newTestRateLimiter(t *testing.T) (*RateLimiter, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(context.Background(), RateLimiterConfig{Now: clock.Now})
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_AllowsUpToMaxRequests(t *testing.T) {
	rl, _ := newTestRateLimiter(t)

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		result := rl.Check("203.0.113.7", testLimit)
		if !result.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
		if result.Remaining != wantRemaining {
			t.Errorf("request %d: remaining = %d, want %d", i+1, result.Remaining, wantRemaining)
		}
		if result.RetryAfter != 0 {
			t.Errorf("request %d: retryAfter = %d, want 0", i+1, result.RetryAfter)
		}
	}

	result := rl.Check("203.0.113.7", testLimit)
	if result.Allowed {
		t.Fatal("request 6: expected rejection")
	}
	if result.Remaining != 0 {
		t.Errorf("request 6: remaining = %d, want 0", result.Remaining)
	}
	if result.RetryAfter != 60 {
		t.Errorf("request 6: retryAfter = %d, want 60", result.RetryAfter)
	}
}

func TestRateLimiter_RetryAfterRoundsUp(t *testing.T) {
	rl, clock := newTestRateLimiter(t)

	for i := 0; i < testLimit.MaxRequests; i++ {
		rl.Check("client", testLimit)
	}

	clock.Advance(20*time.Second + 500*time.Millisecond)

	result := rl.Check("client", testLimit)
	if result.Allowed {
		t.Fatal("expected rejection")
	}
	// 39.5s left in the window
	if result.RetryAfter != 40 {
		t.Errorf("retryAfter = %d, want 40", result.RetryAfter)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl, clock := newTestRateLimiter(t)
	start := clock.Now()

	for i := 0; i < testLimit.MaxRequests+2; i++ {
		rl.Check("client", testLimit)
	}

	clock.Advance(testLimit.Window)

	result := rl.Check("client", testLimit)
	if !result.Allowed {
		t.Fatal("expected request after window to be allowed")
	}
	if result.Remaining != testLimit.MaxRequests-1 {
		t.Errorf("remaining = %d, want %d", result.Remaining, testLimit.MaxRequests-1)
	}
	if want := start.Add(2 * testLimit.Window); !result.ResetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", result.ResetAt, want)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestRateLimiter(t)
	single := domain.RateLimitConfig{Window: time.Minute, MaxRequests: 1, KeyPrefix: "login"}
	otherPrefix := domain.RateLimitConfig{Window: time.Minute, MaxRequests: 1, KeyPrefix: "booking"}

	if !rl.Check("client-a", single).Allowed {
		t.Error("client-a first request should be allowed")
	}
	if !rl.Check("client-b", single).Allowed {
		t.Error("client-b first request should be allowed")
	}
	if !rl.Check("client-a", otherPrefix).Allowed {
		t.Error("client-a under another prefix should be allowed")
	}
	if rl.Check("client-a", single).Allowed {
		t.Error("client-a second request should be rejected")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, clock := newTestRateLimiter(t)

	rl.Check("old", testLimit)
	clock.Advance(30 * time.Second)
	rl.Check("fresh", testLimit)

	if rl.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", rl.Len())
	}

	clock.Advance(30 * time.Second)

	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if rl.Len() != 1 {
		t.Errorf("expected 1 entry after sweep, got %d", rl.Len())
	}
}

func TestRateLimiter_ConcurrentChecksDoNotUndercount(t *testing.T) {
	rl, _ := newTestRateLimiter(t)
	cfg := domain.RateLimitConfig{Window: time.Minute, MaxRequests: 50, KeyPrefix: "api"}

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if rl.Check("shared", cfg).Allowed {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != int64(cfg.MaxRequests) {
		t.Errorf("allowed = %d, want exactly %d", got, cfg.MaxRequests)
	}
}

func TestRateLimiter_BackgroundSweep(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	rl := NewRateLimiter(context.Background(), RateLimiterConfig{
		SweepInterval: 10 * time.Millisecond,
		Now:           clock.Now,
	})
	defer rl.Stop()

	rl.Check("client", testLimit)
	clock.Advance(2 * testLimit.Window)

	deadline := time.Now().Add(2 * time.Second)
	for rl.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("background sweep did not remove expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
