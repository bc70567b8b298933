package security

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "session_id"
	CSRFCookieName    = "csrf_token"
	CSRFHeaderName    = "X-CSRF-Token"
)

// SessionCookie builds the HttpOnly session cookie. SameSite is Strict on
// secure transport and Lax otherwise.
func SessionCookie(sessionID string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite(secure),
	}
}

// CSRFCookie builds the CSRF cookie. It is readable by scripts so the admin UI
// can echo it back in the X-CSRF-Token header.
func CSRFCookie(token string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: false,
		Secure:   secure,
		SameSite: sameSite(secure),
	}
}

// ClearCookie expires the named cookie on the client.
func ClearCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: name == SessionCookieName,
		Secure:   secure,
		SameSite: sameSite(secure),
	}
}

func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
