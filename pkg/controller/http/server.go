package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkurata/docship/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	webhookSecret string
	workflowName  string
	runStore      interfaces.RunRepository
	metricsReg    prometheus.Gatherer
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the webhook secret
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithWorkflowName sets the workflow name exposed by the health endpoint
func WithWorkflowName(name string) Option {
	return func(c *config) {
		c.workflowName = name
	}
}

// WithRunStore enables the runs API backed by the given store
func WithRunStore(store interfaces.RunRepository) Option {
	return func(c *config) {
		c.runStore = store
	}
}

// WithMetrics exposes the given registry on /metrics
func WithMetrics(reg prometheus.Gatherer) Option {
	return func(c *config) {
		c.metricsReg = reg
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	webhookUC interfaces.WebhookUseCase,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth(cfg.workflowName))

	webhookHandler := NewWebhookHandler(cfg.webhookSecret, webhookUC)
	router.Post("/hooks/github", webhookHandler.Handle)

	if cfg.runStore != nil {
		runs := NewRunsHandler(cfg.runStore)
		router.Route("/api/runs", func(r chi.Router) {
			r.Get("/", runs.List)
			r.Get("/{runID}", runs.Get)
		})
	}

	if cfg.metricsReg != nil {
		router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(cfg.metricsReg, promhttp.HandlerOpts{}))
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
