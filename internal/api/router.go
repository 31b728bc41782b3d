package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-velux/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check and metrics (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/velux", func(r chi.Router) {
				r.With(requirePermission(auth.PermBindingRead)).Get("/status", s.handleVeluxStatus)
				r.With(requirePermission(auth.PermBindingRead)).Get("/item-types", s.handleListItemTypes)

				r.Route("/config", func(r chi.Router) {
					r.With(requirePermission(auth.PermBindingRead)).Get("/", s.handleGetConfig)
					r.With(requirePermission(auth.PermBindingConfigure)).Put("/", s.handlePutConfig)
				})

				r.Route("/items", func(r chi.Router) {
					r.With(requirePermission(auth.PermBindingRead)).Get("/", s.handleListItems)
					r.With(requirePermission(auth.PermBindingOperate)).Post("/{name}/command", s.handleItemCommand)
				})

				r.With(requirePermission(auth.PermBindingOperate)).Post("/refresh", s.handleRefresh)
				r.With(requirePermission(auth.PermBindingRead)).Get("/audit", s.handleListAudit)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.binding.Status()
	status := "ok"
	if !st.ProperlyConfigured {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              status,
		"version":             s.version,
		"properly_configured": st.ProperlyConfigured,
	})
}
