package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/institut-pipeline/internal/app"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/handlers"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
)

func newRouter(a *app.App) http.Handler {
	cfg := a.Config
	log := a.Logger

	// nil pointers must not reach the interfaces
	var (
		db     handlers.Pinger
		broker handlers.BrokerState
	)
	if a.DB != nil {
		db = a.DB
	}
	if a.Broker != nil {
		broker = a.Broker.Conn
	}

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		loc = time.UTC
	}

	health := handlers.NewHealthHandler(db, broker, a.BillingMode, version)
	leads := handlers.NewLeadHandler(a.Leads, a.Interactions, log)
	demos := handlers.NewDemoHandler(a.Demos, loc, log)
	conversions := handlers.NewConversionHandler(a.Convert, a.Reconcile, log)
	checkpoints := handlers.NewCheckpointHandler(a.Checkpoints, log)
	plans := handlers.NewPlanHandler(a.Plans, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
		r.Use(middleware.RateLimit(limiter))

		leads.Routes(r)
		demos.Routes(r)
		conversions.Routes(r)
		checkpoints.Routes(r)
		r.Get("/plans", plans.List)
	})

	return r
}
