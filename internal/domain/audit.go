package domain

import "time"

// AuditEventType is the closed set of security-relevant events.
type AuditEventType string

const (
	EventLoginSuccess       AuditEventType = "LOGIN_SUCCESS"
	EventLoginFailure       AuditEventType = "LOGIN_FAILURE"
	EventLogout             AuditEventType = "LOGOUT"
	EventSessionExpired     AuditEventType = "SESSION_EXPIRED"
	EventCSRFFailure        AuditEventType = "CSRF_FAILURE"
	EventRateLimitExceeded  AuditEventType = "RATE_LIMIT_EXCEEDED"
	EventAdminAction        AuditEventType = "ADMIN_ACTION"
	EventDataModified       AuditEventType = "DATA_MODIFIED"
	EventDataDeleted        AuditEventType = "DATA_DELETED"
	EventFileUploaded       AuditEventType = "FILE_UPLOADED"
	EventFileDeleted        AuditEventType = "FILE_DELETED"
	EventUnauthorizedAccess AuditEventType = "UNAUTHORIZED_ACCESS"
	EventSuspiciousActivity AuditEventType = "SUSPICIOUS_ACTIVITY"
)

// AuditEventTypes lists every known event type.
var AuditEventTypes = []AuditEventType{
	EventLoginSuccess,
	EventLoginFailure,
	EventLogout,
	EventSessionExpired,
	EventCSRFFailure,
	EventRateLimitExceeded,
	EventAdminAction,
	EventDataModified,
	EventDataDeleted,
	EventFileUploaded,
	EventFileDeleted,
	EventUnauthorizedAccess,
	EventSuspiciousActivity,
}

// Valid reports whether t is one of the known event types.
func (t AuditEventType) Valid() bool {
	for _, known := range AuditEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// AtLeast reports whether s is as severe as min. Unknown values rank as info.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AuditLogEntry is an immutable point-in-time record of a security decision.
type AuditLogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"eventType"`
	Severity  Severity       `json:"severity"`
	Username  string         `json:"username,omitempty"`
	IPAddress string         `json:"ipAddress"`
	UserAgent string         `json:"userAgent"`
	Resource  string         `json:"resource"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Success   bool           `json:"success"`
}

// AuditDetails is what a caller supplies when recording an event.
type AuditDetails struct {
	Username string
	Resource string
	Action   string
	Success  bool
	Extra    map[string]any
}

// AuditFilter selects entries from the audit log. Zero values do not filter.
type AuditFilter struct {
	StartDate time.Time
	EndDate   time.Time
	EventType AuditEventType
	Username  string
	Severity  Severity
	Limit     int
}
