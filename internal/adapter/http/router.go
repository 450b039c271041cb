package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/corebank/ledgersvc/internal/adapter/http/handler"
	"github.com/corebank/ledgersvc/internal/adapter/http/middleware"
	"github.com/corebank/ledgersvc/internal/infrastructure/metrics"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PostingHandler   *handler.PostingHandler
	AccountHandler   *handler.AccountHandler
	OutboxHandler    *handler.OutboxHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           *zerolog.Logger
	Metrics          *metrics.Metrics
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if cfg.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(*cfg.Logger).Wrap)
	}
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.PostingHandler.Post)
			r.Get("/", cfg.PostingHandler.List)
			r.Get("/{id}", cfg.PostingHandler.Get)
			r.Get("/{id}/legs", cfg.PostingHandler.Legs)
			r.Get("/{id}/history", cfg.PostingHandler.History)
			r.Post("/{id}/reverse", cfg.PostingHandler.Reverse)
			r.Post("/{id}/settle", cfg.PostingHandler.Settle)
			r.Post("/{id}/cancel", cfg.PostingHandler.Cancel)
			r.Post("/{id}/fail", cfg.PostingHandler.Fail)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/subtree", cfg.AccountHandler.Subtree)
			r.Get("/{id}/entries", cfg.PostingHandler.ListEntriesByAccount)
			r.Put("/{id}/parent", cfg.AccountHandler.AttachParent)
		})

		// Outbox inspection
		r.Route("/outbox", func(r chi.Router) {
			r.Get("/pending", cfg.OutboxHandler.ListPending)
			r.Get("/aggregates/{type}/{id}", cfg.OutboxHandler.ListByAggregate)
		})
	})

	return r
}
