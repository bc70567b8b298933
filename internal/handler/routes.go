package handler

import (
	"time"

	"github.com/go-chi/chi/v5"

	"studio-backend/internal/domain"
	"studio-backend/internal/middleware"
	"studio-backend/internal/service"
)

// AdminRoutes holds what the admin API needs.
type AdminRoutes struct {
	AuthService *service.AuthService
	Auth        *AuthHandler
	Audit       *AuditHandler
	Feed        *WebSocketHandler
	CSRFTTL     time.Duration
}

// RegisterAdminRoutes mounts the admin API under /api/v1/admin and the audit
// feed under /ws/admin/audit.
func RegisterAdminRoutes(r chi.Router, rt AdminRoutes) {
	r.Route("/api/v1/admin", func(r chi.Router) {
		// Login applies the login rate limit itself.
		r.Post("/login", rt.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(rt.AuthService))
			r.Use(middleware.RateLimit(rt.AuthService, domain.AdminRateLimit))
			r.Use(middleware.CSRF(rt.AuthService, rt.CSRFTTL))

			r.Get("/session", rt.Auth.Session)
			r.Get("/csrf-token", rt.Auth.CSRFToken)
			r.Get("/audit", rt.Audit.Query)
			r.Post("/logout", rt.Auth.Logout)
			r.With(middleware.AuditAdminAction(rt.AuthService, "Revoke user sessions")).
				Post("/sessions/revoke", rt.Auth.RevokeSessions)
		})
	})

	if rt.Feed != nil {
		r.With(middleware.RequireSession(rt.AuthService)).Get("/ws/admin/audit", rt.Feed.HandleConnection)
	}
}
