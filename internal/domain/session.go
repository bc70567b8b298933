package domain

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionExpired         = errors.New("session expired")
	ErrSessionBindingMismatch = errors.New("session binding mismatch")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

// Session is an authenticated admin session. It is owned by the session store;
// values handed out to callers are snapshots.
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// RequestContext carries the client attributes of an inbound request that the
// security layer needs for decisions and audit entries.
type RequestContext struct {
	// ClientID is the rate-limit and session-binding identifier of the caller.
	ClientID  string
	IPAddress string
	UserAgent string
	// Resource is the requested URL, recorded in audit entries.
	Resource string
}
