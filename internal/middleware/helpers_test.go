package middleware

import (
	"context"
	"strconv"

	"studio-backend/internal/domain"
)

func itoa(i int) string { return strconv.Itoa(i) }

type fakeAuthenticator struct {
	session *domain.Session
	err     error
	gotID   string
	gotRC   domain.RequestContext
	calls   int
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, rc domain.RequestContext, sessionID string) (*domain.Session, error) {
	f.calls++
	f.gotID = sessionID
	f.gotRC = rc
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeCSRFVerifier struct {
	valid     string
	issued    []string
	verified  []string
	issueErr  error
	nextToken string
}

func (f *fakeCSRFVerifier) VerifyCSRF(ctx context.Context, rc domain.RequestContext, session *domain.Session, token string) error {
	f.verified = append(f.verified, token)
	if token == "" || token != f.valid {
		return domain.ErrCSRFValidation
	}
	return nil
}

func (f *fakeCSRFVerifier) IssueCSRFToken(sessionID string) (string, error) {
	if f.issueErr != nil {
		return "", f.issueErr
	}
	f.issued = append(f.issued, sessionID)
	return f.nextToken, nil
}

type fakeRateLimitChecker struct {
	result domain.RateLimitResult
	gotCfg domain.RateLimitConfig
}

func (f *fakeRateLimitChecker) CheckRateLimit(ctx context.Context, rc domain.RequestContext, cfg domain.RateLimitConfig) (domain.RateLimitResult, error) {
	f.gotCfg = cfg
	if !f.result.Allowed {
		return f.result, &domain.RateLimitError{Result: f.result}
	}
	return f.result, nil
}

type adminAction struct {
	action   string
	resource string
	success  bool
	username string
	extra    map[string]any
}

type fakeAdminLogger struct {
	actions []adminAction
}

func (f *fakeAdminLogger) LogAdminAction(ctx context.Context, rc domain.RequestContext, action, resource string, success bool, username string, extra map[string]any) {
	f.actions = append(f.actions, adminAction{action, resource, success, username, extra})
}
