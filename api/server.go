/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests from the orchestrating system's UI

ROUTE GROUPS:
  /api/calendar/*       Calendar generation
  /api/pay-periods/*    Stored pay periods
  /api/overtime/*       Evaluation and audit trail
  /api/payroll/*        Aggregation and summaries
  /api/health           Liveness and database check

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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/generate", h.GenerateCalendar)
		})

		r.Route("/pay-periods", func(r chi.Router) {
			r.Get("/", h.ListPayPeriods)
			r.Post("/{id}/processed", h.MarkProcessed)
			r.Post("/{id}/posted", h.MarkPosted)
		})

		r.Route("/overtime", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateOvertime)
			r.Get("/logs", h.ListCalculations)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Post("/aggregate", h.AggregatePayroll)
			r.Get("/{periodID}/summaries", h.ListSummaries)
			r.Post("/{periodID}/finalize", h.FinalizeSummaries)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
