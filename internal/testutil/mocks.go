// Package testutil provides shared test utilities, fakes, and fixtures
// for testing the studio backend.
package testutil

import (
	"context"
	"errors"
	"sync"

	"studio-backend/internal/domain"
)

// Common test errors
var (
	ErrMockStore = errors.New("mock: store unavailable")
	ErrMockSink  = errors.New("mock: sink unavailable")
)

// MockAuditStore is an in-memory audit document store with overridable behavior.
type MockAuditStore struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	LoadFunc func(ctx context.Context) ([]domain.AuditLogEntry, error)
	SaveFunc func(ctx context.Context, entries []domain.AuditLogEntry) error

	Entries   []domain.AuditLogEntry
	LoadCalls int
	SaveCalls int
}

func NewMockAuditStore() *MockAuditStore {
	return &MockAuditStore{}
}

// NewFailingAuditStore returns a store whose every operation fails.
func NewFailingAuditStore() *MockAuditStore {
	return &MockAuditStore{
		LoadFunc: func(context.Context) ([]domain.AuditLogEntry, error) { return nil, ErrMockStore },
		SaveFunc: func(context.Context, []domain.AuditLogEntry) error { return ErrMockStore },
	}
}

func (m *MockAuditStore) Load(ctx context.Context) ([]domain.AuditLogEntry, error) {
	m.mu.Lock()
	m.LoadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditLogEntry, len(m.Entries))
	copy(out, m.Entries)
	return out, nil
}

func (m *MockAuditStore) Save(ctx context.Context, entries []domain.AuditLogEntry) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()

	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, entries)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = make([]domain.AuditLogEntry, len(entries))
	copy(m.Entries, entries)
	return nil
}

// Snapshot returns a copy of the stored entries.
func (m *MockAuditStore) Snapshot() []domain.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditLogEntry, len(m.Entries))
	copy(out, m.Entries)
	return out
}

// EventTypes returns the event types of the stored entries in order.
func (m *MockAuditStore) EventTypes() []domain.AuditEventType {
	entries := m.Snapshot()
	types := make([]domain.AuditEventType, len(entries))
	for i, e := range entries {
		types[i] = e.EventType
	}
	return types
}

// MockAuditSink records published audit entries.
type MockAuditSink struct {
	mu sync.Mutex

	SinkName    string
	PublishFunc func(ctx context.Context, entry domain.AuditLogEntry) error

	Published []domain.AuditLogEntry
}

func NewMockAuditSink(name string) *MockAuditSink {
	return &MockAuditSink{SinkName: name}
}

func (m *MockAuditSink) Name() string {
	return m.SinkName
}

func (m *MockAuditSink) Publish(ctx context.Context, entry domain.AuditLogEntry) error {
	m.mu.Lock()
	m.Published = append(m.Published, entry)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, entry)
	}
	return nil
}

// Entries returns a copy of the published entries.
func (m *MockAuditSink) Entries() []domain.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditLogEntry, len(m.Published))
	copy(out, m.Published)
	return out
}
