package domain

import (
	"fmt"
	"time"
)

// RateLimitConfig describes a fixed window: at most MaxRequests per Window
// for each identifier under KeyPrefix.
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
	KeyPrefix   string
}

// Preset limits.
var (
	LoginRateLimit   = RateLimitConfig{Window: time.Minute, MaxRequests: 5, KeyPrefix: "login"}
	BookingRateLimit = RateLimitConfig{Window: 5 * time.Minute, MaxRequests: 10, KeyPrefix: "booking"}
	ReviewRateLimit  = RateLimitConfig{Window: time.Hour, MaxRequests: 5, KeyPrefix: "review"}
	APIRateLimit     = RateLimitConfig{Window: time.Minute, MaxRequests: 100, KeyPrefix: "api"}
	AdminRateLimit   = RateLimitConfig{Window: time.Minute, MaxRequests: 30, KeyPrefix: "admin"}
)

// RateLimitEntry is the counter for one key within its current window.
type RateLimitEntry struct {
	Key     string
	Count   int
	ResetAt time.Time
}

// RateLimitResult is the outcome of a single rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the number of whole seconds until the window resets.
	// Only set when the request was rejected.
	RetryAfter int
}

// RateLimitError is returned when a request is rejected by a rate limit.
type RateLimitError struct {
	Result RateLimitResult
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.Result.RetryAfter)
}
