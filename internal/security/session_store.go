package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studio-backend/internal/domain"
)

const (
	// DefaultSessionValidity is the absolute lifetime of a session.
	DefaultSessionValidity = time.Hour
	// DefaultSessionIdleTimeout is how long a session survives without activity.
	DefaultSessionIdleTimeout = 30 * time.Minute
	// DefaultSessionSweepInterval is how often expired sessions are purged.
	DefaultSessionSweepInterval = 5 * time.Minute
)

// SessionStoreConfig configures a SessionStore. Zero values select defaults.
type SessionStoreConfig struct {
	Validity      time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Binding       BindingPolicy
	Now           func() time.Time
}

// SessionStore keeps admin sessions in memory. Lookups enforce expiry;
// the background sweep only bounds memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	validity    time.Duration
	idleTimeout time.Duration
	binding     BindingPolicy
	now         func() time.Time
	sweeper     *Sweeper
}

// NewSessionStore creates a store and starts its background sweep.
func NewSessionStore(ctx context.Context, cfg SessionStoreConfig) *SessionStore {
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultSessionValidity
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultSessionIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSessionSweepInterval
	}
	if cfg.Binding == nil {
		cfg.Binding = StrictBinding{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &SessionStore{
		sessions:    make(map[string]*domain.Session),
		validity:    cfg.Validity,
		idleTimeout: cfg.IdleTimeout,
		binding:     cfg.Binding,
		now:         cfg.Now,
	}
	s.sweeper = StartSweeper(ctx, cfg.SweepInterval, func() { s.Sweep() })
	return s
}

// Create stores a new session for username bound to the given client attributes
// and returns its id.
func (s *SessionStore) Create(username, ipAddress, userAgent string) (string, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id, err := GenerateToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate session id: %w", err)
		}
		if _, taken := s.sessions[id]; taken {
			continue
		}

		s.sessions[id] = &domain.Session{
			ID:           id,
			Username:     username,
			CreatedAt:    now,
			LastActivity: now,
			IPAddress:    ipAddress,
			UserAgent:    userAgent,
		}
		return id, nil
	}
}

// Get returns a snapshot of the session and refreshes its last activity.
// Expired sessions are evicted and reported as missing.
func (s *SessionStore) Get(sessionID string) (*domain.Session, bool) {
	if sessionID == "" {
		return nil, false
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}

	if s.expired(session, now) {
		delete(s.sessions, sessionID)
		return nil, false
	}

	session.LastActivity = now
	snapshot := *session
	return &snapshot, true
}

// Destroy removes a session and reports whether it existed.
func (s *SessionStore) Destroy(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// DestroyAllForUser removes every session owned by username and returns how many were removed.
func (s *SessionStore) DestroyAllForUser(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.Username == username {
			delete(s.sessions, id)
			count++
		}
	}
	return count
}

// ValidateBinding reports whether the client attributes match the session's binding.
func (s *SessionStore) ValidateBinding(session *domain.Session, ipAddress, userAgent string) bool {
	if session == nil {
		return false
	}
	return s.binding.Matches(session, ipAddress, userAgent)
}

// Sweep evicts every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.RLock()
	expired := make([]string, 0)
	for id, session := range s.sessions {
		if s.expired(session, now) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		s.mu.Lock()
		if session, ok := s.sessions[id]; ok && s.expired(session, now) {
			delete(s.sessions, id)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Count returns the number of stored sessions, including ones not yet swept.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Validity returns the absolute session lifetime, used for cookie Max-Age.
func (s *SessionStore) Validity() time.Duration {
	return s.validity
}

// Stop stops the background sweep.
func (s *SessionStore) Stop() {
	s.sweeper.Stop()
}

func (s *SessionStore) expired(session *domain.Session, now time.Time) bool {
	return now.Sub(session.CreatedAt) > s.validity || now.Sub(session.LastActivity) > s.idleTimeout
}
