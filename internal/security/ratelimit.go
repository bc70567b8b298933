package security

import (
	"context"
	"math"
	"sync"
	"time"

	"studio-backend/internal/domain"
)

// DefaultRateLimitSweepInterval is how often expired rate limit windows are purged.
const DefaultRateLimitSweepInterval = time.Minute

// RateLimiterConfig configures a RateLimiter. Zero values select defaults.
type RateLimiterConfig struct {
	SweepInterval time.Duration
	Now           func() time.Time
}

// RateLimiter is a fixed-window request counter keyed by prefix and client identifier.
type RateLimiter struct {
	mu      sync.RWMutex
	entries map[string]*domain.RateLimitEntry
	now     func() time.Time
	sweeper *Sweeper
}

// NewRateLimiter creates a rate limiter and starts its background sweep.
// Call Stop to release the sweeper.
func NewRateLimiter(ctx context.Context, cfg RateLimiterConfig) *RateLimiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultRateLimitSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rl := &RateLimiter{
		entries: make(map[string]*domain.RateLimitEntry),
		now:     cfg.Now,
	}
	rl.sweeper = StartSweeper(ctx, cfg.SweepInterval, func() { rl.Sweep() })
	return rl
}

// Check counts one request for identifier against cfg and reports whether it is allowed.
// The request that pushes the count past MaxRequests is the first one rejected.
func (rl *RateLimiter) Check(identifier string, cfg domain.RateLimitConfig) domain.RateLimitResult {
	key := cfg.KeyPrefix + ":" + identifier
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[key]
	if !exists || !now.Before(entry.ResetAt) {
		entry = &domain.RateLimitEntry{
			Key:     key,
			Count:   1,
			ResetAt: now.Add(cfg.Window),
		}
		rl.entries[key] = entry
		return domain.RateLimitResult{
			Allowed:   true,
			Remaining: cfg.MaxRequests - 1,
			ResetAt:   entry.ResetAt,
		}
	}

	entry.Count++

	if entry.Count > cfg.MaxRequests {
		return domain.RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    entry.ResetAt,
			RetryAfter: int(math.Ceil(entry.ResetAt.Sub(now).Seconds())),
		}
	}

	return domain.RateLimitResult{
		Allowed:   true,
		Remaining: cfg.MaxRequests - entry.Count,
		ResetAt:   entry.ResetAt,
	}
}

// Sweep removes windows that have already reset and returns how many were removed.
// Candidates are collected under the read lock; the write lock is held for one removal at a time.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()

	rl.mu.RLock()
	expired := make([]string, 0)
	for key, entry := range rl.entries {
		if !now.Before(entry.ResetAt) {
			expired = append(expired, key)
		}
	}
	rl.mu.RUnlock()

	removed := 0
	for _, key := range expired {
		rl.mu.Lock()
		if entry, ok := rl.entries[key]; ok && !now.Before(entry.ResetAt) {
			delete(rl.entries, key)
			removed++
		}
		rl.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked windows.
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.entries)
}

// Stop stops the background sweep.
func (rl *RateLimiter) Stop() {
	rl.sweeper.Stop()
}
