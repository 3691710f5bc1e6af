package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, health *HealthChecker) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://retention.ignite.io", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", health.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Dashboard - all four buckets in one call
		r.Get("/dashboard", h.GetDashboard)

		r.Route("/churn-records", func(r chi.Router) {
			r.Get("/active", h.ListActive)
			r.Get("/due", h.ListDue)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRecord)
				r.Get("/follow-up", h.GetFollowUpStatus)
				r.Post("/calls", h.RecordCall)
				r.Post("/mail-confirmation", h.ConfirmMail)
				r.Put("/reason", h.UpdateReason)
			})
		})
	})

	return r
}
