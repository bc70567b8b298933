package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"studio-backend/internal/domain"
)

// RateLimitChecker applies a fixed-window limit to a client and records rejections.
type RateLimitChecker interface {
	CheckRateLimit(ctx context.Context, rc domain.RequestContext, cfg domain.RateLimitConfig) (domain.RateLimitResult, error)
}

// RateLimit enforces cfg per client identifier. Every response carries
// X-RateLimit-Remaining and X-RateLimit-Reset; rejections get 429 and Retry-After.
func RateLimit(checker RateLimitChecker, cfg domain.RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := checker.CheckRateLimit(r.Context(), RequestContextFrom(r), cfg)
			SetRateLimitHeaders(w, result)

			var limitErr *domain.RateLimitError
			if errors.As(err, &limitErr) {
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SetRateLimitHeaders writes the rate limit headers for result.
func SetRateLimitHeaders(w http.ResponseWriter, result domain.RateLimitResult) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", result.ResetAt.UTC().Format(time.RFC3339))
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	}
}
