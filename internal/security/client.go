package security

import (
	"hash/fnv"
	"net"
	"net/http"
	"strconv"
	"strings"

	"studio-backend/internal/domain"
)

const unknownClient = "unknown"

// ClientIdentifier derives the rate limit / session binding identifier of a request:
// the first X-Forwarded-For hop, then X-Real-IP, then a hash of User-Agent and Accept.
// Headers are client controlled, so this is a best-effort fingerprint and can be spoofed.
func ClientIdentifier(r *http.Request) string {
	if ip := forwardedIP(r); ip != "" {
		return ip
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = unknownClient
	}
	return "ua:" + fingerprint(userAgent+r.Header.Get("Accept"))
}

// ClientIP returns the best known client IP for audit entries: forwarded headers
// first, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if ip := forwardedIP(r); ip != "" {
		return ip
	}
	if r.RemoteAddr == "" {
		return unknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserAgent returns the request User-Agent or "unknown".
func UserAgent(r *http.Request) string {
	if ua := r.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return unknownClient
}

// IsSecureRequest reports whether the request arrived over TLS, directly or via a proxy.
func IsSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// NewRequestContext captures the client attributes the security layer works with.
func NewRequestContext(r *http.Request) domain.RequestContext {
	return domain.RequestContext{
		ClientID:  ClientIdentifier(r),
		IPAddress: ClientIP(r),
		UserAgent: UserAgent(r),
		Resource:  r.URL.String(),
	}
}

func forwardedIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

func fingerprint(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}
