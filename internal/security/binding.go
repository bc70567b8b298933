package security

import (
	"fmt"
	"strings"

	"studio-backend/internal/domain"
)

// BindingPolicy decides whether a request's client attributes still match the
// attributes captured when a session was created.
type BindingPolicy interface {
	Matches(session *domain.Session, ipAddress, userAgent string) bool
}

// StrictBinding requires both the IP address and the User-Agent to match exactly.
// Legitimate clients whose IP rotates mid-session (mobile carriers) are rejected.
type StrictBinding struct{}

func (StrictBinding) Matches(session *domain.Session, ipAddress, userAgent string) bool {
	return session.IPAddress == ipAddress && session.UserAgent == userAgent
}

// UserAgentBinding only compares the User-Agent.
type UserAgentBinding struct{}

func (UserAgentBinding) Matches(session *domain.Session, _ string, userAgent string) bool {
	return session.UserAgent == userAgent
}

// NoBinding accepts any client.
type NoBinding struct{}

func (NoBinding) Matches(*domain.Session, string, string) bool {
	return true
}

// ParseBindingPolicy maps a configuration value to a policy.
// An empty name selects StrictBinding.
func ParseBindingPolicy(name string) (BindingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return StrictBinding{}, nil
	case "user-agent", "useragent", "ua":
		return UserAgentBinding{}, nil
	case "none", "off":
		return NoBinding{}, nil
	default:
		return nil, fmt.Errorf("unknown session binding policy %q", name)
	}
}
