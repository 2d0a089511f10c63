// Package server provides a public API for embedding the burn severity job
// service.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-malhotra/burn-severity/internal/api"
	"github.com/robert-malhotra/burn-severity/internal/config"
	"github.com/robert-malhotra/burn-severity/internal/jobs"
	"github.com/robert-malhotra/burn-severity/internal/observability"
)

// Options configures the job service. Provider credentials and acquisition
// tuning are read from the environment as described by config.Load; the
// non-zero fields below override it.
type Options struct {
	// BaseURL is the public-facing URL for links in responses.
	// Example: "https://api.example.com/burn" or "http://localhost:8080"
	BaseURL string

	// Provider selects the default imagery provider: "SH" or "CA".
	// Default: PROVIDER_TYPE
	Provider string

	// WorkDir holds downloads and the per-job output directories.
	// Default: OUTPUT_WORKDIR
	WorkDir string

	// ProfilePath is an optional classification profile YAML file.
	// Default: OUTPUT_PROFILE
	ProfilePath string

	// MaxJobs bounds how many mappings run at once.
	// Default: SERVER_MAX_JOBS
	MaxJobs int

	// CORSOrigins lists the allowed origins.
	// Default: SERVER_CORS_ORIGINS
	CORSOrigins []string

	// Registerer receives the service metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	// Gatherer is served at /metrics. When nil, a Registerer that can also
	// gather (such as a *prometheus.Registry) is served instead; with
	// neither, the route is not mounted.
	Gatherer prometheus.Gatherer

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a burn severity job service that can be embedded in another application.
type Server struct {
	router  chi.Router
	manager *jobs.Manager
}

// New creates a job service with the given options.
func New(opts Options) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newServer(cfg, opts)
}

func newServer(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseURL != "" {
		cfg.Server.PublicURL = opts.BaseURL
	}
	if opts.Provider != "" {
		cfg.Provider.Type = opts.Provider
	}
	if opts.WorkDir != "" {
		cfg.Output.WorkDir = opts.WorkDir
	}
	if opts.ProfilePath != "" {
		cfg.Output.Profile = opts.ProfilePath
	}
	if opts.MaxJobs != 0 {
		cfg.Server.MaxJobs = opts.MaxJobs
	}
	if opts.Gatherer == nil {
		if g, ok := opts.Registerer.(prometheus.Gatherer); ok {
			opts.Gatherer = g
		}
	}
	if len(opts.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = opts.CORSOrigins
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	profile, err := config.LoadProfile(cfg.Output.Profile)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetricsWithRegisterer(opts.Registerer)
	runner := jobs.NewPipelineRunner(cfg, profile).
		WithLogger(opts.Logger).
		WithMetrics(metrics)
	manager := jobs.NewManager(runner, cfg.Server.MaxJobs).
		WithLogger(opts.Logger).
		WithMetrics(metrics)

	handlers, err := api.NewHandlers(manager, cfg.Server.PublicURL, cfg.Provider.Type, opts.Logger)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("burn severity service configured",
		slog.String("provider", cfg.Provider.Type),
		slog.String("workdir", cfg.Output.WorkDir),
		slog.Int("max_jobs", cfg.Server.MaxJobs),
	)

	return &Server{
		router:  api.NewRouter(handlers, opts.Logger, cfg.Server.CORSOrigins, opts.Gatherer),
		manager: manager,
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close stops accepting jobs, cancels running ones and waits for them
// until ctx expires.
func (s *Server) Close(ctx context.Context) error {
	return s.manager.Shutdown(ctx)
}
