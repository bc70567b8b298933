package security

import (
	"context"
	"crypto/hmac"
	"fmt"
	"sync"
	"time"

	"studio-backend/internal/domain"
)

const (
	// DefaultCSRFTokenValidity is how long an unused CSRF token stays valid.
	DefaultCSRFTokenValidity = time.Hour
	// DefaultCSRFSweepInterval is how often expired tokens are purged.
	DefaultCSRFSweepInterval = 5 * time.Minute
)

// CSRFStoreConfig configures a CSRFStore. Zero values select defaults.
type CSRFStoreConfig struct {
	Validity      time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// CSRFStore holds one-time CSRF tokens bound to session ids.
type CSRFStore struct {
	mu       sync.RWMutex
	tokens   map[string]*domain.CSRFToken
	validity time.Duration
	now      func() time.Time
	sweeper  *Sweeper
}

// NewCSRFStore creates a token store and starts its background sweep.
func NewCSRFStore(ctx context.Context, cfg CSRFStoreConfig) *CSRFStore {
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultCSRFTokenValidity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultCSRFSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &CSRFStore{
		tokens:   make(map[string]*domain.CSRFToken),
		validity: cfg.Validity,
		now:      cfg.Now,
	}
	s.sweeper = StartSweeper(ctx, cfg.SweepInterval, func() { s.Sweep() })
	return s
}

// Generate issues a new token bound to sessionID.
func (s *CSRFStore) Generate(sessionID string) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}

	s.mu.Lock()
	s.tokens[token] = &domain.CSRFToken{
		Token:     token,
		SessionID: sessionID,
		CreatedAt: s.now(),
	}
	s.mu.Unlock()

	return token, nil
}

// Validate consumes token if it exists, has not expired and belongs to sessionID.
// A token validates successfully at most once.
func (s *CSRFStore) Validate(token, sessionID string) bool {
	if token == "" {
		return false
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.tokens[token]
	if !ok {
		return false
	}

	if now.Sub(data.CreatedAt) > s.validity {
		delete(s.tokens, token)
		return false
	}

	if !hmac.Equal([]byte(data.SessionID), []byte(sessionID)) {
		return false
	}

	delete(s.tokens, token)
	return true
}

// Sweep removes expired tokens and returns how many were removed.
func (s *CSRFStore) Sweep() int {
	now := s.now()

	s.mu.RLock()
	expired := make([]string, 0)
	for token, data := range s.tokens {
		if now.Sub(data.CreatedAt) > s.validity {
			expired = append(expired, token)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, token := range expired {
		s.mu.Lock()
		if data, ok := s.tokens[token]; ok && now.Sub(data.CreatedAt) > s.validity {
			delete(s.tokens, token)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of outstanding tokens.
func (s *CSRFStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Validity returns the token lifetime, used for cookie Max-Age.
func (s *CSRFStore) Validity() time.Duration {
	return s.validity
}

// Stop stops the background sweep.
func (s *CSRFStore) Stop() {
	s.sweeper.Stop()
}
