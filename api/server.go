/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions for the read-only report server. This is the wiring layer
  that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for notebook frontends

SECURITY NOTE:
  No authentication middleware. The server exposes already-anonymized
  audit tables on a local interface for collaborators; do not expose it
  publicly as-is.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/results/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:8888", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/runlog", h.GetRunLog)

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", h.ListTables)
			r.Get("/{name}", h.GetTable)
		})

		r.Route("/registry", func(r chi.Router) {
			r.Get("/items", h.ListItems)
			r.Get("/constructs", h.ListConstructs)
		})
	})

	return r
}
