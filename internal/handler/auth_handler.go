package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"studio-backend/internal/domain"
	"studio-backend/internal/middleware"
	"studio-backend/internal/security"
	"studio-backend/internal/service"
)

// AuthHandler handles the admin authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	sessionTTL  time.Duration
	csrfTTL     time.Duration
}

// NewAuthHandler creates a new authentication handler. The TTLs set cookie lifetimes.
func NewAuthHandler(authService *service.AuthService, sessionTTL, csrfTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessionTTL:  sessionTTL,
		csrfTTL:     csrfTTL,
	}
}

// LoginResponse represents login response
type LoginResponse struct {
	Success   bool   `json:"success"`
	Username  string `json:"username"`
	CSRFToken string `json:"csrf_token"`
}

// SessionResponse describes the caller's session
type SessionResponse struct {
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CSRFTokenResponse carries a freshly issued token
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// RevokeSessionsRequest names the user to log out everywhere
type RevokeSessionsRequest struct {
	Username string `json:"username"`
}

// RevokeSessionsResponse reports how many sessions were destroyed
type RevokeSessionsResponse struct {
	Revoked int `json:"revoked"`
}

// Login handles HTTP Basic admin login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	rc := security.NewRequestContext(r)

	result, err := h.authService.Login(r.Context(), rc, r.Header.Get("Authorization"))
	if err != nil {
		var limitErr *domain.RateLimitError
		switch {
		case errors.As(err, &limitErr):
			middleware.SetRateLimitHeaders(w, limitErr.Result)
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	secure := security.IsSecureRequest(r)
	http.SetCookie(w, security.SessionCookie(result.SessionID, h.sessionTTL, secure))
	http.SetCookie(w, security.CSRFCookie(result.CSRFToken, h.csrfTTL, secure))
	w.Header().Set(security.CSRFHeaderName, result.CSRFToken)
	middleware.SetRateLimitHeaders(w, result.RateLimit)

	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Username:  result.Username,
		CSRFToken: result.CSRFToken,
	})
}

// Logout destroys the caller's session and clears both cookies
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.authService.Logout(r.Context(), middleware.RequestContextFrom(r), session)
	middleware.SkipCSRFRotation(r.Context())

	secure := security.IsSecureRequest(r)
	http.SetCookie(w, security.ClearCookie(security.SessionCookieName, secure))
	http.SetCookie(w, security.ClearCookie(security.CSRFCookieName, secure))

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Session returns the caller's session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Username:     session.Username,
		CreatedAt:    session.CreatedAt,
		LastActivity: session.LastActivity,
		ExpiresAt:    session.CreatedAt.Add(h.sessionTTL),
	})
}

// CSRFToken issues a fresh token for the caller's session
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.authService.IssueCSRFToken(session.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, security.CSRFCookie(token, h.csrfTTL, security.IsSecureRequest(r)))
	w.Header().Set(security.CSRFHeaderName, token)
	writeJSON(w, http.StatusOK, CSRFTokenResponse{CSRFToken: token})
}

// RevokeSessions logs a user out of every session
func (h *AuthHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RevokeSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	revoked := h.authService.RevokeUserSessions(r.Context(), middleware.RequestContextFrom(r), session.Username, req.Username)
	if req.Username == session.Username {
		// The caller's own session is gone too.
		middleware.SkipCSRFRotation(r.Context())
	}

	writeJSON(w, http.StatusOK, RevokeSessionsResponse{Revoked: revoked})
}
