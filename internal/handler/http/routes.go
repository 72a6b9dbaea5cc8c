package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/consultamed/auth-core/models"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(h.securityHeaders)
	if h.requestTimeout > 0 {
		router.Use(middleware.Timeout(h.requestTimeout))
	}

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.With(h.rateLimit(models.ActionRegistration)).
			Post("/api/auth/register", h.register)
		r.With(h.rateLimit(models.ActionLogin)).
			Post("/api/auth/login", h.login)
		r.Post("/api/auth/refresh", h.refresh)
		r.With(h.rateLimit(models.ActionPasswordReset)).
			Post("/api/auth/recover", h.recoverPassword)
		r.Post("/api/auth/reset", h.resetPassword)

		r.Get("/api/version", h.version)
	})

	// routes guarded by a valid access token
	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/api/auth/logout", h.logout)
		r.Get("/api/auth/session", h.session)

		r.With(h.requireRole(models.RoleAdministrator), h.requirePermission(models.PermissionViewAuditTrail)).
			Get("/api/admin/audit", h.auditTrail)
	})

	if h.metrics != nil {
		router.Method("GET", "/metrics",
			promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{}))
	}

	return router
}
