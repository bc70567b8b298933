package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"studio-backend/internal/domain"
	"studio-backend/internal/security"
)

// CSRFVerifier consumes and issues one-time CSRF tokens.
type CSRFVerifier interface {
	VerifyCSRF(ctx context.Context, rc domain.RequestContext, session *domain.Session, token string) error
	IssueCSRFToken(sessionID string) (string, error)
}

// CSRF validates the one-time token of state-changing requests. It must run
// after RequireSession.
//
// Token sources (checked in order):
// - Header: X-CSRF-Token
// - Form field: csrf_token
// - Header: X-XSRF-Token (alternate)
//
// A consumed token is replaced: the next token is returned in the
// X-CSRF-Token header and the csrf_token cookie, unless the handler ends
// the session and calls SkipCSRFRotation.
func CSRF(verifier CSRFVerifier, tokenTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			session, ok := GetSession(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			rc := RequestContextFrom(r)
			submittedToken := extractCSRFToken(r)
			if err := verifier.VerifyCSRF(r.Context(), rc, session, submittedToken); err != nil {
				logCSRFFailure(r, session.Username, submittedToken == "")
				writeJSONError(w, http.StatusForbidden, "CSRF validation failed")
				return
			}

			rw := &csrfRotatingWriter{ResponseWriter: w, rotate: func(w http.ResponseWriter) {
				rotated, err := verifier.IssueCSRFToken(session.ID)
				if err != nil {
					slog.Error("failed to rotate CSRF token",
						slog.String("username", session.Username),
						slog.String("error", err.Error()))
					return
				}
				http.SetCookie(w, security.CSRFCookie(rotated, tokenTTL, security.IsSecureRequest(r)))
				w.Header().Set(security.CSRFHeaderName, rotated)
			}}
			ctx := context.WithValue(r.Context(), csrfRotationKey, rw)

			next.ServeHTTP(rw, r.WithContext(ctx))
			rw.flushRotation()
		})
	}
}

const csrfRotationKey contextKey = "csrf_rotation"

// SkipCSRFRotation stops the CSRF middleware from issuing a replacement
// token for this request. Handlers that end the session call it before
// writing the response.
func SkipCSRFRotation(ctx context.Context) {
	if rw, ok := ctx.Value(csrfRotationKey).(*csrfRotatingWriter); ok {
		rw.skip = true
	}
}

// csrfRotatingWriter issues the replacement token just before the response
// headers go out, so the handler can still cancel it.
type csrfRotatingWriter struct {
	http.ResponseWriter
	rotate func(http.ResponseWriter)
	done   bool
	skip   bool
}

func (w *csrfRotatingWriter) flushRotation() {
	if w.done {
		return
	}
	w.done = true
	if !w.skip {
		w.rotate(w.ResponseWriter)
	}
}

func (w *csrfRotatingWriter) WriteHeader(code int) {
	w.flushRotation()
	w.ResponseWriter.WriteHeader(code)
}

func (w *csrfRotatingWriter) Write(b []byte) (int, error) {
	w.flushRotation()
	return w.ResponseWriter.Write(b)
}

func (w *csrfRotatingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// isSafeMethod returns true if the HTTP method is idempotent and cacheable.
// These methods should not modify state and don't require CSRF tokens.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// isExemptPath returns true if the request path should skip CSRF validation.
func isExemptPath(path string) bool {
	exemptPaths := []string{
		"/health",
		"/metrics",
		"/ws/",
	}

	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}

func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get(security.CSRFHeaderName); token != "" {
		return token
	}

	// Only urlencoded bodies; JSON bodies are left for the handler.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if token := r.PostFormValue("csrf_token"); token != "" {
			return token
		}
	}

	return r.Header.Get("X-XSRF-Token")
}

func logCSRFFailure(r *http.Request, username string, missing bool) {
	reason := "invalid token"
	if missing {
		reason = "missing token"
	}
	slog.Warn("CSRF validation failed",
		slog.String("username", username),
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.RequestURI),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
