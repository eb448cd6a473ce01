package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medcore/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service

	r.Post("/appointments", createAppointmentHandler(svc))
	r.Get("/appointments", listAppointmentsHandler(svc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Patch("/appointments/{id}", editAppointmentHandler(svc))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(svc))

	r.Post("/appointments/{id}/confirm", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.Confirm(req.Context(), id, nil)
	}))
	r.Post("/appointments/{id}/check-in", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.CheckIn(req.Context(), id, nil)
	}))
	r.Post("/appointments/{id}/start", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.Start(req.Context(), id, nil)
	}))
	r.Post("/appointments/{id}/complete", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.Complete(req.Context(), id, nil)
	}))
	r.Post("/appointments/{id}/no-show", transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return svc.NoShow(req.Context(), id, nil)
	}))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(svc))

	r.Get("/slots", searchSlotsHandler(svc))

	return r
}
