package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio-backend/internal/domain"
	"studio-backend/internal/observability"
)

// DefaultMaxEntries is the retention cap of the audit document.
const DefaultMaxEntries = 10000

// DefaultWriteTimeout bounds one persist-and-publish round of Record.
const DefaultWriteTimeout = 10 * time.Second

// Store persists the audit log as a single document.
type Store interface {
	Load(ctx context.Context) ([]domain.AuditLogEntry, error)
	Save(ctx context.Context, entries []domain.AuditLogEntry) error
}

// Sink receives every recorded entry after it has been written to the store.
type Sink interface {
	Name() string
	Publish(ctx context.Context, entry domain.AuditLogEntry) error
}

// Config configures a Log. Zero values select defaults.
type Config struct {
	MaxEntries   int
	WriteTimeout time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Log is the append-only security audit trail.
type Log struct {
	mu           sync.Mutex
	store        Store
	maxEntries   int
	writeTimeout time.Duration
	now          func() time.Time
	newID        func() string

	sinksMu sync.RWMutex
	sinks   []Sink
}

// New creates an audit log backed by store.
func New(store Store, cfg Config) *Log {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Log{
		store:        store,
		maxEntries:   cfg.MaxEntries,
		writeTimeout: cfg.WriteTimeout,
		now:          cfg.Now,
		newID:        cfg.NewID,
	}
}

// AddSink registers a sink for recorded entries.
func (l *Log) AddSink(sink Sink) {
	l.sinksMu.Lock()
	defer l.sinksMu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// Severity derives the severity of an event from its type and outcome.
func Severity(eventType domain.AuditEventType, success bool) domain.Severity {
	switch eventType {
	case domain.EventLoginFailure, domain.EventCSRFFailure, domain.EventUnauthorizedAccess:
		if !success {
			return domain.SeverityWarning
		}
	case domain.EventSuspiciousActivity, domain.EventRateLimitExceeded:
		return domain.SeverityCritical
	case domain.EventDataDeleted, domain.EventFileDeleted:
		return domain.SeverityWarning
	}
	return domain.SeverityInfo
}

// Record appends an entry to the log. Persistence and sink failures are logged
// and counted, never returned. The write survives cancellation of ctx and is
// bounded by the configured write timeout instead.
func (l *Log) Record(ctx context.Context, eventType domain.AuditEventType, rc domain.RequestContext, details domain.AuditDetails) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	defer cancel()

	entry := domain.AuditLogEntry{
		ID:        l.newID(),
		Timestamp: l.now().UTC(),
		EventType: eventType,
		Severity:  Severity(eventType, details.Success),
		Username:  details.Username,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		Resource:  details.Resource,
		Action:    details.Action,
		Success:   details.Success,
	}
	if len(details.Extra) > 0 {
		entry.Details = make(map[string]any, len(details.Extra))
		for k, v := range details.Extra {
			entry.Details[k] = v
		}
	}

	logEntry(ctx, entry)
	observability.AuditEventsTotal.WithLabelValues(string(entry.EventType), string(entry.Severity)).Inc()

	if err := l.persist(ctx, entry); err != nil {
		observability.AuditPersistFailures.Inc()
		observability.FromContext(ctx).Error("failed to persist audit entry",
			"audit_id", entry.ID,
			"event_type", entry.EventType,
			"error", err,
		)
	}

	l.publish(ctx, entry)
}

func (l *Log) persist(ctx context.Context, entry domain.AuditLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}

	entries = append(entries, entry)
	if len(entries) > l.maxEntries {
		entries = entries[len(entries)-l.maxEntries:]
	}

	if err := l.store.Save(ctx, entries); err != nil {
		return fmt.Errorf("failed to save audit log: %w", err)
	}
	return nil
}

func (l *Log) publish(ctx context.Context, entry domain.AuditLogEntry) {
	l.sinksMu.RLock()
	sinks := l.sinks
	l.sinksMu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Publish(ctx, entry); err != nil {
			observability.AuditSinkFailures.WithLabelValues(sink.Name()).Inc()
			observability.FromContext(ctx).Warn("audit sink failed",
				"sink", sink.Name(),
				"audit_id", entry.ID,
				"error", err,
			)
		}
	}
}

// Query returns the entries matching filter, newest first.
func (l *Log) Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	l.mu.Lock()
	entries, err := l.store.Load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}

	matched := make([]domain.AuditLogEntry, 0, len(entries))
	for _, entry := range entries {
		if Matches(entry, filter) {
			matched = append(matched, entry)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Matches reports whether entry passes every set field of filter.
// Date bounds are inclusive.
func Matches(entry domain.AuditLogEntry, filter domain.AuditFilter) bool {
	if !filter.StartDate.IsZero() && entry.Timestamp.Before(filter.StartDate) {
		return false
	}
	if !filter.EndDate.IsZero() && entry.Timestamp.After(filter.EndDate) {
		return false
	}
	if filter.EventType != "" && entry.EventType != filter.EventType {
		return false
	}
	if filter.Username != "" && entry.Username != filter.Username {
		return false
	}
	if filter.Severity != "" && entry.Severity != filter.Severity {
		return false
	}
	return true
}

func logEntry(ctx context.Context, entry domain.AuditLogEntry) {
	level := slog.LevelInfo
	switch entry.Severity {
	case domain.SeverityCritical:
		level = slog.LevelError
	case domain.SeverityWarning:
		level = slog.LevelWarn
	}

	observability.FromContext(ctx).Log(ctx, level, "audit event",
		"audit_id", entry.ID,
		"event_type", entry.EventType,
		"severity", entry.Severity,
		"username", entry.Username,
		"ip", entry.IPAddress,
		"resource", entry.Resource,
		"action", entry.Action,
		"success", entry.Success,
	)
}
