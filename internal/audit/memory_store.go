package audit

import (
	"context"
	"sync"

	"studio-backend/internal/domain"
)

// MemoryStore keeps the audit document in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []domain.AuditLogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) ([]domain.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuditLogEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, entries []domain.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]domain.AuditLogEntry, len(entries))
	copy(s.entries, entries)
	return nil
}
