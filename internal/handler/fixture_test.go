package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"studio-backend/internal/audit"
	"studio-backend/internal/domain"
	"studio-backend/internal/security"
	"studio-backend/internal/service"
	"studio-backend/internal/testutil"
	ws "studio-backend/internal/websocket"
)

const (
	testUsername = "admin"
	testPassword = "glaze-and-fire"
)

type apiFixture struct {
	router   http.Handler
	clock    *testutil.Clock
	sessions *security.SessionStore
	csrf     *security.CSRFStore
	store    *audit.MemoryStore
	log      *audit.Log
	hub      *ws.Hub
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clock := testutil.NewClock(testutil.BaseTime)

	limiter := security.NewRateLimiter(ctx, security.RateLimiterConfig{Now: clock.Now})
	sessions := security.NewSessionStore(ctx, security.SessionStoreConfig{Now: clock.Now})
	csrf := security.NewCSRFStore(ctx, security.CSRFStoreConfig{Now: clock.Now})

	store := audit.NewMemoryStore()
	log := audit.New(store, audit.Config{Now: clock.Now})

	hub := ws.NewHub()
	hubDone := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(hubDone)
	}()
	log.AddSink(hub)

	t.Cleanup(func() {
		cancel()
		<-hubDone
		limiter.Stop()
		sessions.Stop()
		csrf.Stop()
	})

	authService := service.NewAuthService(limiter, sessions, csrf,
		security.NewCredentialVerifier(testUsername, testPassword, ""), log)

	r := chi.NewRouter()
	RegisterAdminRoutes(r, AdminRoutes{
		AuthService: authService,
		Auth:        NewAuthHandler(authService, sessions.Validity(), csrf.Validity()),
		Audit:       NewAuditHandler(log),
		Feed:        NewWebSocketHandler(hub, []string{"http://localhost:3000"}),
		CSRFTTL:     csrf.Validity(),
	})

	return &apiFixture{
		router:   r,
		clock:    clock,
		sessions: sessions,
		csrf:     csrf,
		store:    store,
		log:      log,
		hub:      hub,
	}
}

func (f *apiFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func loginRequest(authorization string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (test)")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

// login performs a successful login and returns the session id and CSRF token.
func (f *apiFixture) login(t *testing.T) (string, string) {
	t.Helper()
	w := f.serve(loginRequest(testutil.BasicAuth(testUsername, testPassword)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	session := testutil.AssertCookie(t, w, security.SessionCookieName)
	csrf := testutil.AssertCookie(t, w, security.CSRFCookieName)
	require.NotNil(t, session)
	require.NotNil(t, csrf)
	return session.Value, csrf.Value
}

func (f *apiFixture) events(t *testing.T) []domain.AuditEventType {
	t.Helper()
	entries, err := f.store.Load(context.Background())
	require.NoError(t, err)

	types := make([]domain.AuditEventType, len(entries))
	for i, e := range entries {
		types[i] = e.EventType
	}
	return types
}

func (f *apiFixture) lastEntry(t *testing.T) domain.AuditLogEntry {
	t.Helper()
	entries, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[len(entries)-1]
}
