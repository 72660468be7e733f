/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/movements/*   Movement recording, history, cancellation
  /api/stock/*       On-hand balances
  /api/fabrics/*     Fabric registry
  /api/variants/*    Variant registry
  /api/health        Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Movement routes
		r.Route("/movements", func(r chi.Router) {
			r.Get("/", h.SearchMovements)
			r.Post("/receive", h.Receive)
			r.Post("/receive/batch", h.ReceiveBatch)
			r.Post("/issue", h.Issue)
			r.Post("/issue/batch", h.IssueBatch)
			r.Post("/adjust", h.Adjust)
			r.Post("/{id}/cancel", h.CancelMovement)
		})

		// Stock routes
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.GetStock)
			r.Get("/{id}", h.GetStockByID)
			r.Post("/rebuild", h.RebuildBalance)
		})

		// Catalog routes
		r.Route("/fabrics", func(r chi.Router) {
			r.Get("/", h.ListFabrics)
			r.Post("/", h.CreateFabric)
			r.Get("/{code}", h.GetFabric)
			r.Get("/{code}/variants", h.ListVariants)
		})
		r.Route("/variants", func(r chi.Router) {
			r.Get("/", h.GetVariant)
			r.Post("/", h.CreateVariant)
			r.Delete("/{id}", h.DeleteVariant)
			r.Post("/batch", h.CreateVariantsBatch)
		})

		// Health check
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
