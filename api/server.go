/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP from proxy headers
  3. requestLog: Structured request logging (zap)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/bookings/*      Booking lifecycle
  /api/availability    Capacity queries
  /api/stations        Reference data
  /api/categories      Reference data
  /api/admin/*         Slot provisioning, rate management

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public;
  the admin and operations routes expect an upstream gateway to gate
  access.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/", h.ListBookings)
			r.Get("/{id}", h.GetBooking)
			r.Get("/number/{number}", h.GetBookingByNumber)
			r.Post("/{id}/confirm", h.ConfirmBooking)
			r.Post("/{id}/status", h.AdvanceStatus)
			r.Post("/{id}/cancel", h.CancelBooking)
			r.Get("/{id}/tracking", h.ListTracking)
		})

		// Availability routes
		r.Get("/availability", h.QueryAvailability)

		// Reference data routes
		r.Get("/stations", h.ListStations)
		r.Get("/categories", h.ListCategories)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/slots", h.ProvisionSlot)
			r.Put("/slots/{id}", h.UpdateSlot)
			r.Put("/categories/{id}/rate", h.UpdateCategoryRate)
			r.Post("/catalog/refresh", h.RefreshCatalog)
		})
	})

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLog logs one structured line per request.
func requestLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
