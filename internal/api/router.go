package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-devices/internal/auth"
)

// healthCheckTimeout bounds each dependency check made by GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated monitoring
		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}

		// WebSocket authenticates from the query string, see handleWebSocket
		r.With(s.rateLimitMiddleware).Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitMiddleware, s.authMiddleware)

			read := s.requirePermission(auth.PermDeviceRead)
			operate := s.requirePermission(auth.PermDeviceOperate)
			configure := s.requirePermission(auth.PermDeviceConfigure)
			manage := s.requirePermission(auth.PermLocationManage)

			r.Route("/devices", func(r chi.Router) {
				r.With(read).Get("/", s.handleListDevices)
				r.With(configure).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.With(read).Get("/", s.handleGetDevice)
					r.With(configure).Patch("/", s.handleUpdateDevice)
					r.With(configure).Delete("/", s.handleDeleteDevice)

					r.With(configure).Patch("/settings", s.handleUpdateSettings)

					r.With(read).Get("/params/{key}", s.handleGetParam)
					r.With(operate).Put("/params/{key}", s.handleSetParam)

					r.With(read).Get("/abilities", s.handleGetAbilities)
					r.With(configure).Put("/abilities", s.handleSetAbilities)

					r.With(operate).Post("/pairing", s.handleCompletePairing)
					r.With(operate).Post("/click", s.handleClick)

					r.With(read).Get("/location", s.handleGetDeviceLocation)
					r.With(read).Get("/links", s.handleListDeviceLinks)
					r.With(configure).Post("/links", s.handleCreateLink)
					r.With(read).Get("/links/{location}", s.handleLinkedTo)
				})
			})

			r.With(configure).Delete("/links/{id}", s.handleDeleteLink)

			r.Route("/locations", func(r chi.Router) {
				r.With(read).Get("/", s.handleListLocations)
				r.With(manage).Post("/", s.handleCreateLocation)
				r.With(read).Get("/{id}", s.handleGetLocation)
				r.With(manage).Delete("/{id}", s.handleDeleteLocation)
			})

			r.With(read).Get("/device-types", s.handleListDeviceTypes)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth reports the server version and the state of each registered
// dependency. Any failing dependency turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))

	for name, checker := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	resp := map[string]any{
		"status":  status,
		"version": s.version,
		"devices": s.registry.Count(),
		"checks":  checks,
	}
	if s.hub != nil {
		resp["websocket_clients"] = s.hub.ClientCount()
	}
	writeJSON(w, code, resp)
}
