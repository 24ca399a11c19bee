package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-booking-engine/internal/appointment"
	"github.com/hackgods/appointment-booking-engine/internal/metrics"
	"github.com/hackgods/appointment-booking-engine/internal/steps"
)

type RouterConfig struct {
	Steps   *steps.Runner
	Booker  *appointment.Booker
	Engine  *appointment.Engine
	Health  *HealthHandler
	Log     zerolog.Logger
	Metrics *metrics.Collector
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log, cfg.Metrics))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Handle("/metrics", metrics.Handler())

	// Orchestrator steps
	r.Post("/steps/{step}", stepHandler(cfg.Steps))

	// Booking endpoints
	r.Post("/bookings", createBookingHandler(cfg.Booker))
	r.Get("/doctors/{doctorID}/calendar", calendarHandler(cfg.Engine))
	r.Get("/doctors/{doctorID}/availability", availabilityHandler(cfg.Engine))

	return r
}
