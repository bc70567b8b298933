package middleware

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"studio-backend/internal/observability"
	"studio-backend/internal/security"
)

const (
	// Maximum number of limiters to keep in memory
	maxLimiters = 10000
	// Time after which an inactive limiter is removed
	cleanupInterval = 5 * time.Minute
	// Limiter is considered inactive if not used for this duration
	limiterTTL = 15 * time.Minute
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Throttle is a coarse token-bucket limit per client IP applied to every
// request ahead of the fixed-window security limits.
type Throttle struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewThrottle creates a throttle allowing requestsPerSecond on average with
// the given burst. The cleanup goroutine stops on Stop or when ctx is done.
func NewThrottle(ctx context.Context, requestsPerSecond float64, burst int) *Throttle {
	t := &Throttle{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	go t.cleanupLoop(ctx)

	return t
}

func (t *Throttle) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

// cleanup drops idle limiters, then the least recently used ones while over capacity.
func (t *Throttle) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, entry := range t.limiters {
		if now.Sub(entry.lastAccess) > limiterTTL {
			delete(t.limiters, key)
		}
	}

	if len(t.limiters) <= maxLimiters {
		return
	}

	type keyTime struct {
		key  string
		time time.Time
	}
	entries := make([]keyTime, 0, len(t.limiters))
	for k, e := range t.limiters {
		entries = append(entries, keyTime{k, e.lastAccess})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})
	for _, e := range entries[:len(entries)-maxLimiters/2] {
		delete(t.limiters, e.key)
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Len returns the number of tracked clients.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

func (t *Throttle) getLimiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastAccess = t.now()
	return entry.limiter
}

// Middleware returns a chi-compatible middleware function
func (t *Throttle) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.getLimiter(security.ClientIP(r)).Allow() {
				observability.RateLimitDecisions.WithLabelValues("throttle", "rejected").Inc()
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
