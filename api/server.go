/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for admin tooling

SECURITY NOTE:
  Identity arrives via the X-User-ID header, set by the platform gateway
  in front of this service; configuration writes additionally pass the
  injected Authorizer. There is no authentication inside this service.

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
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants/{tenant}", func(r chi.Router) {
			r.Post("/checkin", h.CheckIn)
			r.Get("/users/{user}/stats", h.Stats)
			r.Get("/ranking", h.GetRanking)

			r.Route("/config", func(r chi.Router) {
				r.Get("/", h.GetConfig)
				r.Put("/channel", h.SetChannel)
				r.Put("/schedule", h.SetSchedule)
				r.Put("/message", h.SetMessage)
			})

			r.Post("/broadcast/test", h.TestBroadcast)
		})
	})

	return r
}
