// Package app assembles the ChurnPulse server: configuration, logging,
// telemetry, the pipeline manager, the scoring services, and the HTTP
// router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"churncli/internal/cleaning"
	"churncli/internal/config"
	"churncli/internal/exporter"
	"churncli/internal/features"
	"churncli/internal/infrastructure"
	"churncli/internal/ingest"
	customMiddleware "churncli/internal/middleware"
	"churncli/internal/operations"
	"churncli/internal/scoring"
	"churncli/internal/services"
	handlers "churncli/internal/transport/http"
	ws "churncli/internal/websocket"
)

const (
	// Version is the application version reported by /healthz.
	Version = "1.2.0"

	serviceName = "churnpulse"
)

// Application is the assembled server.
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	Hub           *ws.Hub
	Manager       *operations.Manager
	OTelProviders *infrastructure.OTelProviders

	scoringService    *services.ScoringService
	dataService       *services.DataService
	operationsService *services.OperationsService
	healthService     *services.HealthService
}

// NewApplication builds the application from configuration. The scoring
// artifact loads once here; a missing or malformed artifact is fatal.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	paths := config.ResolvePaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(serviceName, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	artifact, err := scoring.LoadArtifact(cfg.Scoring.ArtifactFile)
	if err != nil {
		return nil, fmt.Errorf("load scoring artifact %s: %w", cfg.Scoring.ArtifactFile, err)
	}

	logger.Info("application starting",
		slog.String("service", serviceName),
		slog.String("version", Version),
		slog.String("artifact_version", artifact.Version()),
		slog.Int("port", cfg.Server.Port))

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	app.initializeServices(artifact)
	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices(artifact scoring.Artifact) {
	a.Hub = ws.NewHub(a.Logger)

	loader := ingest.NewLoader(a.Logger)
	cleaner := cleaning.NewCleaner(a.Logger)
	aggregator := features.NewAggregator(a.Logger)
	writer := exporter.NewCSVWriter(a.Paths)

	steps := operations.DefaultSteps(a.Config, a.Paths, loader, cleaner, aggregator, writer)
	a.Manager = operations.NewManager(steps, a.Logger, operations.WithBroadcaster(a.Hub))

	scorer := scoring.NewScorer(artifact)
	a.scoringService = services.NewScoringService(scorer, a.Config.Scoring.Threshold, a.Logger)
	a.dataService = services.NewDataService(a.Paths, a.Logger)
	a.operationsService = services.NewOperationsService(a.Manager, a.Logger)
	a.healthService = services.NewHealthService(Version, a.Paths, a.Hub)
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// Websocket and metrics skip the logging and rate-limit chain: the
	// upgrade must not go through a wrapped ResponseWriter, and scrapes
	// should stay cheap.
	r.Get("/ws", a.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		healthHandler := handlers.NewHealthHandler(a.healthService, a.Logger)
		r.Get("/healthz", healthHandler.HealthCheck)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Mount("/score", handlers.NewScoreHandler(a.scoringService, a.Logger).Routes())
			r.Mount("/features", handlers.NewDataHandler(a.dataService, a.Logger).Routes())
			r.Mount("/operations", handlers.NewOperationsHandler(a.operationsService, a.Logger).Routes())
		})
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := ws.ServeClient(a.Hub, a.Config.WebSocket, w, r); err != nil {
		a.Logger.ErrorContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
	}
}

// Start launches the websocket hub and the HTTP listener.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Hub.Start()

	go func() {
		a.Logger.InfoContext(ctx, "server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop shuts the server down gracefully.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}

	a.Hub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("telemetry shutdown: %w", err)
	}

	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close log file: %w", err)
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return firstErr
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.Start(ctx, cancel)

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	// Use a fresh context: the run context may already be cancelled.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
