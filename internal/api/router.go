package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
	"github.com/MikeSquared-Agency/TariffIndex/internal/runs"
	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

type Options struct {
	AdminToken     string
	RateLimitRPS   float64
	RateLimitBurst int
	MarketLabel    string
}

func NewRouter(calc *pricing.Calculator, rec *runs.Recorder, s store.Store, refresher Refresher, opts Options, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))

	indexes := NewIndexHandler(calc, rec, s, opts.MarketLabel)
	history := NewRunsHandler(s, refresher)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/entities", indexes.Entities)
		r.Get("/composites", indexes.Composites)
		r.Get("/manufacturing", indexes.Manufacturing)
		r.Get("/export-price", indexes.ExportPrice)
		r.Post("/compute", indexes.Compute)
		r.Get("/report", indexes.Report)

		r.Get("/runs", history.List)
		r.Get("/runs/{id}", history.Get)
		r.Get("/status", history.Status)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(opts.AdminToken))
			r.Post("/refresh", history.Refresh)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
