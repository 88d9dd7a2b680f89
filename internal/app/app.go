package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"erwpulse/internal/archive"
	"erwpulse/internal/cache"
	"erwpulse/internal/config"
	apierrors "erwpulse/internal/errors"
	"erwpulse/internal/infrastructure"
	customMiddleware "erwpulse/internal/middleware"
	"erwpulse/internal/services"
	"erwpulse/internal/store"
	handlers "erwpulse/internal/transport/http"
	"erwpulse/internal/validation"
	ws "erwpulse/internal/websocket"
	"erwpulse/pkg/contracts"
)

// seedTimeout bounds loading the startup workbook.
const seedTimeout = 2 * time.Minute

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Store         store.Store
	Cache         cache.Cache
	Archive       archive.Archive
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Logger        *slog.Logger
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dashboard *services.DashboardService
	Ingest    *services.IngestService
	Chat      *services.ChatContextBuilder
	Health    *services.HealthService
}

// NewApplication loads the configuration, initializes the global logger and
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(context.Background(), cfg, logger)
}

// New wires every component from cfg. Backends are opened but nothing is
// served until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("store", cfg.Store.Driver),
		slog.String("cache", cfg.Cache.Backend),
		slog.String("archive", cfg.Archive.Backend))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
		Logger:        logger,
	}

	if err := a.initializeBackends(ctx); err != nil {
		a.closeBackends(ctx)
		return nil, err
	}
	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) initializeBackends(ctx context.Context) error {
	st, err := store.Open(ctx, a.Config.Store, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open sample store: %w", err)
	}
	a.Store = st

	c, err := cache.New(ctx, a.Config.Cache, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	a.Cache = c

	arch, err := archive.New(ctx, a.Config.Archive, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open upload archive: %w", err)
	}
	a.Archive = arch
	return nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	keys := cache.Keys{Prefix: a.Config.Cache.Prefix}

	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)

	a.Services = &ServiceContainer{
		Dashboard: services.NewDashboardService(a.Store, services.DashboardOptions{
			Cache:             a.Cache,
			Keys:              keys,
			ComparisonWorkers: a.Config.Analytics.ComparisonWorkers,
			Metrics:           a.Metrics,
			Logger:            a.Logger,
		}),
		Ingest: services.NewIngestService(a.Store, services.IngestOptions{
			Archive:       a.Archive,
			ArchivePrefix: a.Config.Archive.Prefix,
			Cache:         a.Cache,
			Keys:          keys,
			Hub:           a.WebSocketHub,
			Metrics:       a.Metrics,
			Logger:        a.Logger,
		}),
		Chat:   services.NewChatContextBuilder(a.Store, a.Metrics, a.Logger),
		Health: services.NewHealthService(a.Store, a.WebSocketHub, a.Config.Store.PingTimeout, a.Logger),
	}
}

// setupRouter builds the route tree. The websocket endpoint sits outside
// the middleware that wraps the ResponseWriter.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", ws.NewHandler(a.WebSocketHub, ws.HandlerOptions{
		Timing: ws.Timing{
			PingPeriod: a.Config.WebSocket.PingPeriod,
			PongWait:   a.Config.WebSocket.PongWait,
		},
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
		ErrorHandler:    a.ErrorHandler,
		Logger:          a.Logger,
	}))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}
		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.NotFound(a.ErrorHandler.NotFound)
		r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

		// Probes answer without a request timeout.
		handlers.NewHealthHandler(a.Services.Health, a.Logger).Routes(r)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))

			dashboard := handlers.NewDashboardHandler(a.Services.Dashboard, a.Logger, a.ErrorHandler).
				WithDefaults(a.Config.Analytics.DefaultFeedstock, a.Config.Analytics.DefaultThreshold)
			r.Mount("/", dashboard.Routes())

			ingest := handlers.NewIngestHandler(a.Services.Ingest, a.Config.Server.MaxUploadBytes, a.Logger, a.ErrorHandler)
			r.Mount("/feedstock", ingest.Routes(a.ingestGuards()...))

			r.Mount("/chat", handlers.NewChatHandler(a.Services.Chat, a.Logger, a.ErrorHandler).Routes())
			r.Mount("/ws", handlers.NewMetricsHandler(a.WebSocketHub).Routes())
		})
	})
}

// ingestGuards protects uploads and archived downloads with API keys when
// any are configured. Every attempt is audited.
func (a *Application) ingestGuards() []func(http.Handler) http.Handler {
	guards := make([]func(http.Handler) http.Handler, 0, 2)
	if len(a.Config.Security.IngestKeys) > 0 {
		guards = append(guards, customMiddleware.APIKeyAuth(a.Logger, a.Config.Security.IngestKeys, a.ErrorHandler))
	} else {
		a.Logger.Warn("no ingest keys configured, uploads are open")
	}
	return append(guards, customMiddleware.AuditLog(a.Logger))
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-API-Key",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	if a.Config.Security.EnableCORS {
		cfg.AllowedOrigins = a.Config.Security.AllowedOrigins
	} else {
		// Same-origin only: no origin matches the sentinel.
		cfg.AllowedOrigins = []string{"null"}
	}
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start seeds an empty store, starts the hub and serves in the background.
// A listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if err := a.seed(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup seed failed", slog.String("error", err.Error()))
	}

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// seed loads the configured workbook into an empty store.
func (a *Application) seed(ctx context.Context) error {
	path := a.Config.Seed.Path
	if path == "" {
		return nil
	}
	if err := validation.NewFileValidator(a.Logger).ValidateWorkbook(path); err != nil {
		return fmt.Errorf("seed workbook: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	result, loaded, err := a.Services.Ingest.Seed(ctx, path, services.Dataset{
		Feedstock: a.Config.Seed.Feedstock,
		Threshold: a.Config.Seed.Threshold,
	})
	if err != nil {
		return err
	}
	if loaded {
		a.Logger.InfoContext(ctx, "Seeded sample store",
			slog.String("path", path),
			slog.String("feedstock", result.Feedstock),
			slog.Int("omega_threshold", result.Threshold),
			slog.Int("samples", result.SamplesCount),
			slog.Int("summaries", result.SummariesCount))
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()
	a.closeBackends(shutdownCtx)

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) closeBackends(ctx context.Context) {
	closers := []struct {
		name   string
		closer interface{ Close() error }
	}{
		{"cache", a.Cache},
		{"archive", a.Archive},
		{"store", a.Store},
	}
	for _, c := range closers {
		if c.closer == nil {
			continue
		}
		if err := c.closer.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing backend",
				slog.String("backend", c.name),
				slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
