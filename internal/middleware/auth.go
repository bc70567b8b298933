package middleware

import (
	"context"
	"net/http"

	"studio-backend/internal/domain"
	"studio-backend/internal/observability"
	"studio-backend/internal/security"
)

type contextKey string

const (
	SessionKey        contextKey = "session"
	RequestContextKey contextKey = "request_context"
)

// Authenticator resolves the admin session of a request.
type Authenticator interface {
	Authenticate(ctx context.Context, rc domain.RequestContext, sessionID string) (*domain.Session, error)
}

// RequireSession rejects requests without a valid, correctly bound admin session.
// All failures look the same to the caller.
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := security.NewRequestContext(r)

			var sessionID string
			if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
				sessionID = cookie.Value
			}

			session, err := auth.Authenticate(r.Context(), rc, sessionID)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := WithSession(r.Context(), session)
			ctx = WithRequestContext(ctx, rc)
			ctx = observability.WithUsername(ctx, session.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the session from context
func GetSession(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(SessionKey).(*domain.Session)
	return session, ok
}

// WithSession adds session to context
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// RequestContextFrom returns the request context captured by RequireSession,
// or derives it from r.
func RequestContextFrom(r *http.Request) domain.RequestContext {
	if rc, ok := r.Context().Value(RequestContextKey).(domain.RequestContext); ok {
		return rc
	}
	return security.NewRequestContext(r)
}

func WithRequestContext(ctx context.Context, rc domain.RequestContext) context.Context {
	return context.WithValue(ctx, RequestContextKey, rc)
}
