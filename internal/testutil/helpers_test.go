package testutil

import (
	"net/http"
	"testing"
)

func TestNewAdminRequest(t *testing.T) {
	t.Run("session_only", func(t *testing.T) {
		req := NewAdminRequest(t, http.MethodGet, "/api/v1/admin/session", "session-abc", "")

		cookie, err := req.Cookie("session_id")
		if err != nil {
			t.Fatalf("expected session_id cookie: %v", err)
		}
		AssertTrue(t, cookie.Value == "session-abc", "session cookie value")
		if _, err := req.Cookie("csrf_token"); err == nil {
			t.Error("expected no csrf_token cookie without a token")
		}
		AssertTrue(t, req.Header.Get("X-CSRF-Token") == "", "no csrf header")
		AssertTrue(t, req.Header.Get("X-Forwarded-For") == "203.0.113.7", "client ip header")
		AssertTrue(t, req.Header.Get("User-Agent") == "Mozilla/5.0 (test)", "user agent header")
	})

	t.Run("with_csrf_token", func(t *testing.T) {
		req := NewAdminRequest(t, http.MethodPost, "/api/v1/admin/logout", "session-abc", "token-123")

		cookie, err := req.Cookie("csrf_token")
		if err != nil {
			t.Fatalf("expected csrf_token cookie: %v", err)
		}
		AssertTrue(t, cookie.Value == "token-123", "csrf cookie value")
		AssertTrue(t, req.Header.Get("X-CSRF-Token") == "token-123", "csrf header")
		AssertTrue(t, req.Method == http.MethodPost, "method")
	})
}
