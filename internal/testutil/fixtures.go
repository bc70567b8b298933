package testutil

import (
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"time"

	"studio-backend/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// BaseTime is the fixed instant fixtures and fake clocks start from.
var BaseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// BasicAuth builds an Authorization header value.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// NewTestRequestContext returns the client attributes of a typical browser request.
func NewTestRequestContext() domain.RequestContext {
	return domain.RequestContext{
		ClientID:  "203.0.113.7",
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (test)",
		Resource:  "/api/v1/admin/login",
	}
}

// SessionOptions allows customizing session fixture creation
type SessionOptions struct {
	ID           string
	Username     string
	CreatedAt    time.Time
	LastActivity time.Time
	IPAddress    string
	UserAgent    string
}

// NewTestSession creates a test session with sensible defaults
func NewTestSession(opts ...func(*SessionOptions)) *domain.Session {
	o := &SessionOptions{
		ID:        nextID("session"),
		Username:  "admin",
		CreatedAt: BaseTime,
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (test)",
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.LastActivity.IsZero() {
		o.LastActivity = o.CreatedAt
	}

	return &domain.Session{
		ID:           o.ID,
		Username:     o.Username,
		CreatedAt:    o.CreatedAt,
		LastActivity: o.LastActivity,
		IPAddress:    o.IPAddress,
		UserAgent:    o.UserAgent,
	}
}

func WithSessionID(id string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ID = id
	}
}

func WithSessionUsername(username string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.Username = username
	}
}

func WithSessionClient(ip, userAgent string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.IPAddress = ip
		o.UserAgent = userAgent
	}
}

// AuditEntryOptions allows customizing audit entry fixture creation
type AuditEntryOptions struct {
	ID        string
	Timestamp time.Time
	EventType domain.AuditEventType
	Severity  domain.Severity
	Username  string
	Success   bool
}

// NewTestAuditEntry creates an audit entry with sensible defaults
func NewTestAuditEntry(opts ...func(*AuditEntryOptions)) domain.AuditLogEntry {
	o := &AuditEntryOptions{
		ID:        nextID("audit"),
		Timestamp: BaseTime,
		EventType: domain.EventLoginSuccess,
		Severity:  domain.SeverityInfo,
		Username:  "admin",
		Success:   true,
	}

	for _, opt := range opts {
		opt(o)
	}

	return domain.AuditLogEntry{
		ID:        o.ID,
		Timestamp: o.Timestamp,
		EventType: o.EventType,
		Severity:  o.Severity,
		Username:  o.Username,
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (test)",
		Resource:  "/api/v1/admin/login",
		Action:    "login",
		Success:   o.Success,
	}
}

func WithAuditTimestamp(t time.Time) func(*AuditEntryOptions) {
	return func(o *AuditEntryOptions) {
		o.Timestamp = t
	}
}

func WithAuditEvent(eventType domain.AuditEventType, severity domain.Severity) func(*AuditEntryOptions) {
	return func(o *AuditEntryOptions) {
		o.EventType = eventType
		o.Severity = severity
	}
}

func WithAuditUsername(username string) func(*AuditEntryOptions) {
	return func(o *AuditEntryOptions) {
		o.Username = username
	}
}

func WithAuditFailure() func(*AuditEntryOptions) {
	return func(o *AuditEntryOptions) {
		o.Success = false
	}
}

// NewTestAuditEntries creates count entries one minute apart, oldest first.
func NewTestAuditEntries(count int) []domain.AuditLogEntry {
	entries := make([]domain.AuditLogEntry, count)
	for i := 0; i < count; i++ {
		entries[i] = NewTestAuditEntry(WithAuditTimestamp(BaseTime.Add(time.Duration(i) * time.Minute)))
	}
	return entries
}
