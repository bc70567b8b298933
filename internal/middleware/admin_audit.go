package middleware

import (
	"context"
	"net/http"

	"studio-backend/internal/domain"
)

// AdminActionLogger records administrative actions.
type AdminActionLogger interface {
	LogAdminAction(ctx context.Context, rc domain.RequestContext, action, resource string, success bool, username string, extra map[string]any)
}

// AuditAdminAction records an ADMIN_ACTION entry for every request that reaches
// the wrapped handler. The action succeeded when the handler answered below 400.
// It must run after RequireSession.
func AuditAdminAction(logger AdminActionLogger, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			var username string
			if session, ok := GetSession(r.Context()); ok {
				username = session.Username
			}

			logger.LogAdminAction(r.Context(), RequestContextFrom(r), action, r.URL.Path,
				ww.statusCode < http.StatusBadRequest, username,
				map[string]any{"method": r.Method, "status": ww.statusCode})
		})
	}
}
