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
	"github.com/gorilla/websocket"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/infrastructure"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/loader"
	customMiddleware "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/middleware"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store/postgres"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store/sqlite"
	handlers "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/transport/http"
	ws "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/websocket"
)

// BuildTime is set at link time with -ldflags "-X .../internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	WebSocketHub  *ws.Hub
	Dashboard     *services.DashboardService
	Health        *services.HealthService
	Store         store.Store // nil for the file source
	Metrics       *infrastructure.BusinessMetrics
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	errorHandler *errors.ErrorHandler
	stopRefresh  context.CancelFunc
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(context.Background(), cfg, logger, otelProviders)
}

// New builds the application from already initialized infrastructure.
// otelProviders may be nil, which disables tracing and the /metrics route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, otelProviders *infrastructure.OTelProviders) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("source", cfg.Data.Source))

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  errors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// OpenStore opens the database behind a sqlite or postgres source. It
// returns a nil store for the file source.
func OpenStore(ctx context.Context, cfg config.DataConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Source {
	case config.SourceSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SourcePostgres:
		s, err := postgres.New(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SourceFile:
		return nil, nil
	}
	return nil, errors.NewConfigError(fmt.Sprintf("unknown data source %q", cfg.Source), nil)
}

// OpenSource returns the dataset source for cfg. For the database sources
// the opened store is returned too and the caller must close it.
func OpenSource(ctx context.Context, cfg config.DataConfig, logger *slog.Logger) (loader.Source, store.Store, error) {
	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Source, err)
	}
	if st == nil {
		return loader.NewFileSource(cfg, logger), nil, nil
	}
	return loader.NewStoreSource(st, cfg.Source), st, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	if a.OTelProviders != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		a.Metrics = metrics
	}

	source, st, err := OpenSource(ctx, a.Config.Data, a.Logger)
	if err != nil {
		hub.Stop()
		return err
	}
	a.Store = st

	a.Dashboard = services.NewDashboardService(source, a.Config, hub, a.Metrics, a.Logger)
	a.Health = services.NewHealthService(config.AppVersion, BuildTime, a.Dashboard, hub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Middleware that does not wrap the ResponseWriter, safe for the upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		if a.OTelProviders != nil {
			r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, a.Logger, a.errorHandler)
	datasetHandler := handlers.NewDatasetHandler(a.Dashboard, a.Logger, a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/dashboard", dashboardHandler.Routes())
		r.Mount("/dataset", datasetHandler.Routes())
	})
}

// getCORSConfig returns the CORS configuration for the configured origins
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// originAllowed reports whether a websocket Origin may connect. Requests
// without an Origin header are same-origin or non-browser clients.
func (a *Application) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range a.Config.Security.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// LoadDataset performs the first dataset load and starts the refresh loop.
// A failed first load is logged; the server keeps answering and readiness
// stays false until a later reload succeeds.
func (a *Application) LoadDataset(ctx context.Context) {
	if _, err := a.Dashboard.Reload(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Initial dataset load failed", slog.String("error", err.Error()))
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	a.stopRefresh = cancel
	a.Dashboard.StartAutoRefresh(refreshCtx, a.Config.Data.RefreshInterval)
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	go a.LoadDataset(ctx)

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.stopRefresh != nil {
		a.stopRefresh()
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	stats := a.WebSocketHub.Stats()
	a.WebSocketHub.Stop()
	a.Logger.InfoContext(ctx, "WebSocket hub stopped",
		slog.Int64("total_connections", stats.TotalConnections),
		slog.Int64("messages_sent", stats.MessagesSent),
		slog.Int64("messages_dropped", stats.MessagesDropped))

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing store", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("user_agent", r.UserAgent()))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if a.originAllowed(origin) {
				return true
			}
			a.Logger.WarnContext(ctx, "WebSocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", a.Config.Security.AllowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.WarnContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			http.Error(w, http.StatusText(status), status)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	timing := ws.Timing{
		PingPeriod: a.Config.WebSocket.PingPeriod,
		PongWait:   a.Config.WebSocket.PongWait,
	}
	client := ws.NewClient(a.WebSocketHub, ws.WrapConn(conn), reqID, timing, a.Logger)
	client.Serve()

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
