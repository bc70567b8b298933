package service

import (
	"context"
	"fmt"

	"studio-backend/internal/domain"
	"studio-backend/internal/observability"
)

// AuditRecorder records security events.
type AuditRecorder interface {
	Record(ctx context.Context, eventType domain.AuditEventType, rc domain.RequestContext, details domain.AuditDetails)
}

// RateLimiter counts requests per identifier.
type RateLimiter interface {
	Check(identifier string, cfg domain.RateLimitConfig) domain.RateLimitResult
}

// SessionStore holds admin sessions.
type SessionStore interface {
	Create(username, ipAddress, userAgent string) (string, error)
	Get(sessionID string) (*domain.Session, bool)
	Destroy(sessionID string) bool
	DestroyAllForUser(username string) int
	ValidateBinding(session *domain.Session, ipAddress, userAgent string) bool
}

// CSRFStore issues and consumes one-time CSRF tokens.
type CSRFStore interface {
	Generate(sessionID string) (string, error)
	Validate(token, sessionID string) bool
}

// CredentialVerifier checks an Authorization header.
type CredentialVerifier interface {
	VerifyBasic(authorization string) (string, bool)
}

// AuthService composes rate limiting, credential checks, sessions, CSRF and
// audit logging into the admin authentication flow.
type AuthService struct {
	limiter     RateLimiter
	sessions    SessionStore
	csrf        CSRFStore
	credentials CredentialVerifier
	audit       AuditRecorder
}

func NewAuthService(limiter RateLimiter, sessions SessionStore, csrf CSRFStore, credentials CredentialVerifier, audit AuditRecorder) *AuthService {
	return &AuthService{
		limiter:     limiter,
		sessions:    sessions,
		csrf:        csrf,
		credentials: credentials,
		audit:       audit,
	}
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Username  string
	SessionID string
	CSRFToken string
	RateLimit domain.RateLimitResult
}

// Login rate-limits the client, verifies Basic credentials and opens a session
// bound to the client with a fresh CSRF token.
func (s *AuthService) Login(ctx context.Context, rc domain.RequestContext, authorization string) (*LoginResult, error) {
	limit, err := s.CheckRateLimit(ctx, rc, domain.LoginRateLimit)
	if err != nil {
		observability.AuthOutcomes.WithLabelValues("login", "rate_limited").Inc()
		return nil, err
	}

	username, ok := s.credentials.VerifyBasic(authorization)
	if !ok {
		observability.AuthOutcomes.WithLabelValues("login", "failure").Inc()
		s.audit.Record(ctx, domain.EventLoginFailure, rc, domain.AuditDetails{
			Resource: rc.Resource,
			Action:   "Failed login attempt",
			Success:  false,
		})
		return nil, domain.ErrInvalidCredentials
	}

	s.audit.Record(ctx, domain.EventLoginSuccess, rc, domain.AuditDetails{
		Username: username,
		Resource: rc.Resource,
		Action:   "Successful login",
		Success:  true,
	})

	sessionID, err := s.sessions.Create(username, rc.ClientID, rc.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	csrfToken, err := s.csrf.Generate(sessionID)
	if err != nil {
		s.sessions.Destroy(sessionID)
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}

	observability.AuthOutcomes.WithLabelValues("login", "success").Inc()
	observability.FromContext(ctx).Info("admin logged in", "username", username, "client", rc.ClientID)

	return &LoginResult{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		RateLimit: limit,
	}, nil
}

// Authenticate resolves the session of a request and checks its client binding.
// A binding mismatch destroys the session.
func (s *AuthService) Authenticate(ctx context.Context, rc domain.RequestContext, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		observability.AuthOutcomes.WithLabelValues("session", "missing").Inc()
		s.audit.Record(ctx, domain.EventUnauthorizedAccess, rc, domain.AuditDetails{
			Resource: rc.Resource,
			Action:   "Access without session",
			Success:  false,
		})
		return nil, domain.ErrSessionNotFound
	}

	session, ok := s.sessions.Get(sessionID)
	if !ok {
		observability.AuthOutcomes.WithLabelValues("session", "expired").Inc()
		s.audit.Record(ctx, domain.EventSessionExpired, rc, domain.AuditDetails{
			Resource: rc.Resource,
			Action:   "Session expired or invalid",
			Success:  false,
		})
		return nil, domain.ErrSessionExpired
	}

	if !s.sessions.ValidateBinding(session, rc.ClientID, rc.UserAgent) {
		observability.AuthOutcomes.WithLabelValues("session", "binding_mismatch").Inc()
		s.audit.Record(ctx, domain.EventSuspiciousActivity, rc, domain.AuditDetails{
			Resource: rc.Resource,
			Action:   "Session binding mismatch - possible session hijacking",
			Success:  false,
			Extra:    map[string]any{"sessionUser": session.Username},
		})
		s.sessions.Destroy(sessionID)
		return nil, domain.ErrSessionBindingMismatch
	}

	observability.AuthOutcomes.WithLabelValues("session", "valid").Inc()
	return session, nil
}

// VerifyCSRF consumes token for the session.
func (s *AuthService) VerifyCSRF(ctx context.Context, rc domain.RequestContext, session *domain.Session, token string) error {
	if session != nil && s.csrf.Validate(token, session.ID) {
		observability.CSRFValidations.WithLabelValues("valid").Inc()
		return nil
	}

	observability.CSRFValidations.WithLabelValues("invalid").Inc()
	details := domain.AuditDetails{
		Resource: rc.Resource,
		Action:   "CSRF token validation failed",
		Success:  false,
	}
	if session != nil {
		details.Username = session.Username
	}
	s.audit.Record(ctx, domain.EventCSRFFailure, rc, details)
	return domain.ErrCSRFValidation
}

// IssueCSRFToken generates a new token bound to sessionID.
func (s *AuthService) IssueCSRFToken(sessionID string) (string, error) {
	return s.csrf.Generate(sessionID)
}

// Logout destroys the session and records the event.
func (s *AuthService) Logout(ctx context.Context, rc domain.RequestContext, session *domain.Session) {
	s.sessions.Destroy(session.ID)
	s.audit.Record(ctx, domain.EventLogout, rc, domain.AuditDetails{
		Username: session.Username,
		Resource: rc.Resource,
		Action:   "Logout",
		Success:  true,
	})
}

// RevokeUserSessions logs username out everywhere and returns the number of sessions destroyed.
func (s *AuthService) RevokeUserSessions(ctx context.Context, rc domain.RequestContext, actor, username string) int {
	revoked := s.sessions.DestroyAllForUser(username)
	observability.FromContext(ctx).Info("revoked user sessions",
		"actor", actor,
		"username", username,
		"revoked", revoked,
		"client", rc.ClientID,
	)
	return revoked
}

// LogAdminAction records an administrative action regardless of its outcome.
func (s *AuthService) LogAdminAction(ctx context.Context, rc domain.RequestContext, action, resource string, success bool, username string, extra map[string]any) {
	s.audit.Record(ctx, domain.EventAdminAction, rc, domain.AuditDetails{
		Username: username,
		Resource: resource,
		Action:   action,
		Success:  success,
		Extra:    extra,
	})
}

// CheckRateLimit applies cfg to the client. A rejection is recorded and
// returned as *domain.RateLimitError together with the result.
func (s *AuthService) CheckRateLimit(ctx context.Context, rc domain.RequestContext, cfg domain.RateLimitConfig) (domain.RateLimitResult, error) {
	result := s.limiter.Check(rc.ClientID, cfg)
	if result.Allowed {
		observability.RateLimitDecisions.WithLabelValues(cfg.KeyPrefix, "allowed").Inc()
		return result, nil
	}

	observability.RateLimitDecisions.WithLabelValues(cfg.KeyPrefix, "rejected").Inc()
	action := "Rate limit exceeded"
	if cfg.KeyPrefix == domain.LoginRateLimit.KeyPrefix {
		action = "Login rate limit exceeded"
	}
	s.audit.Record(ctx, domain.EventRateLimitExceeded, rc, domain.AuditDetails{
		Resource: rc.Resource,
		Action:   action,
		Success:  false,
		Extra:    map[string]any{"limit": cfg.KeyPrefix, "retryAfter": result.RetryAfter},
	})
	return result, &domain.RateLimitError{Result: result}
}
