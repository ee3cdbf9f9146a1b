package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/auth"
	"github.com/neogan74/vigil/internal/config"
	"github.com/neogan74/vigil/internal/handlers"
	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/metrics"
	"github.com/neogan74/vigil/internal/middleware"
	"github.com/neogan74/vigil/internal/ratelimit"
	"github.com/neogan74/vigil/internal/telemetry"
)

// tokenExpiry only matters for tokens minted locally, which vigil never
// hands out; verification uses the expiry embedded in each token.
const tokenExpiry = 15 * time.Minute

// Builder wires vigil application dependencies.
type Builder struct {
	cfg        *config.Config
	version    string
	logger     logger.Logger
	fiberApp   *fiber.App
	jwtService *auth.JWTService
	buffer     *telemetry.Buffer
	aggregator *telemetry.Aggregator
	evaluator  *telemetry.AlertEvaluator
	auditMgr   *audit.Manager
	users      handlers.UserCounter
	closers    []func()
}

// NewBuilder creates a new application builder.
func NewBuilder(cfg *config.Config, version string) *Builder {
	return &Builder{cfg: cfg, version: version}
}

// WithUserCounter overrides the static total user count.
func (b *Builder) WithUserCounter(users handlers.UserCounter) *Builder {
	b.users = users
	return b
}

// Build assembles the vigil application components.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	b.initLogger()
	b.recordStartupMetrics()
	b.initFiber()
	b.initAuth()
	b.initMiddleware()

	if err := b.initAudit(); err != nil {
		b.cleanupOnError()
		return nil, err
	}

	b.initHandlers()

	return &App{
		cfg:        b.cfg,
		version:    b.version,
		logger:     b.logger,
		fiberApp:   b.fiberApp,
		aggregator: b.aggregator,
		evaluator:  b.evaluator,
		closers:    b.closers,
	}, nil
}

func (b *Builder) initLogger() {
	b.logger = logger.NewFromConfig(b.cfg.Log.Level, b.cfg.Log.Format)
	logger.SetDefault(b.logger)
}

func (b *Builder) recordStartupMetrics() {
	metrics.BuildInfo.WithLabelValues(b.version, runtime.Version()).Set(1)

	b.logger.Info("Starting vigil",
		logger.String("version", b.version),
		logger.String("address", b.cfg.Address()),
		logger.String("log_level", b.cfg.Log.Level),
		logger.String("log_format", b.cfg.Log.Format),
		logger.Int("buffer_capacity", b.cfg.Telemetry.BufferCapacity),
		logger.Bool("audit_enabled", b.cfg.Audit.Enabled),
		logger.String("audit_sink", b.cfg.Audit.Sink),
	)
}

func (b *Builder) initFiber() {
	b.fiberApp = fiber.New(fiber.Config{
		AppName:               "vigil",
		DisableStartupMessage: true,
		BodyLimit:             audit.MaxEventSize,
		ErrorHandler:          middleware.ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
}

func (b *Builder) initAuth() {
	if !b.cfg.Auth.Enabled() {
		return
	}
	b.jwtService = auth.NewJWTService(b.cfg.Auth.JWTSecret, tokenExpiry, b.cfg.Auth.Issuer)
	b.logger.Info("Bearer token identity enabled", logger.String("issuer", b.cfg.Auth.Issuer))
}

// initMiddleware registers Telemetry last so that the route it observes after
// the chain returns is the matched handler, not another middleware.
func (b *Builder) initMiddleware() {
	b.buffer = telemetry.NewBuffer(b.cfg.Telemetry.BufferCapacity)

	b.fiberApp.Use(recover.New())
	b.fiberApp.Use(middleware.RequestLogging(b.logger))
	b.fiberApp.Use(middleware.Identity(b.jwtService))
	b.fiberApp.Use(middleware.Telemetry(b.buffer))
}

func (b *Builder) initAudit() error {
	mgr, err := audit.NewManager(audit.Config{
		Enabled:    b.cfg.Audit.Enabled,
		Sink:       b.cfg.Audit.Sink,
		FilePath:   b.cfg.Audit.FilePath,
		DataDir:    b.cfg.Audit.DataDir,
		SyncWrites: b.cfg.Audit.SyncWrites,
		BufferSize: b.cfg.Audit.BufferSize,
		DropPolicy: audit.DropPolicy(b.cfg.Audit.DropPolicy),
	}, b.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audit manager: %w", err)
	}

	b.auditMgr = mgr

	b.addCloser(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), b.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := mgr.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Failed to shutdown audit manager", logger.Error(err))
		}
	})

	if mgr.Enabled() {
		b.logger.Info("Audit trail enabled",
			logger.String("sink", mgr.Sink()),
			logger.String("drop_policy", b.cfg.Audit.DropPolicy),
		)
	}

	return nil
}

func (b *Builder) initHandlers() {
	b.aggregator = telemetry.NewAggregator(b.buffer, b.cfg.Telemetry.ExcludedPaths)
	b.evaluator = telemetry.NewAlertEvaluator(telemetry.AlertThresholds{
		ErrorRate:        b.cfg.Alerts.ErrorRate,
		WarningErrorRate: b.cfg.Alerts.WarnErrorRate,
		AvgLatencyMs:     b.cfg.Alerts.LatencyMs,
		MinRPM:           b.cfg.Alerts.MinRPM,
		MaxRPM:           b.cfg.Alerts.MaxRPM,
	})

	users := b.users
	if users == nil {
		users = handlers.StaticUserCounter(b.cfg.Dashboard.TotalUsers)
	}

	dashboardHandler := handlers.NewDashboardHandler(
		b.aggregator,
		b.evaluator,
		audit.NewActivityDeriver(b.auditMgr, b.logger),
		users,
	)
	auditHandler := handlers.NewAuditHandler(b.auditMgr)
	healthHandler := handlers.NewHealthHandler(b.buffer, b.auditMgr, b.version)

	admin := b.fiberApp.Group("/admin")

	admin.Get("/metrics/system", dashboardHandler.System)
	admin.Get("/metrics/hourly", dashboardHandler.Hourly)
	admin.Get("/metrics/alerts", dashboardHandler.Alerts)
	admin.Get("/metrics/activity", dashboardHandler.Activity)
	admin.Get("/metrics/overview", dashboardHandler.Overview)

	admin.Get("/audit", auditHandler.List)
	admin.Get("/audit/user/:id", auditHandler.ByUser)
	admin.Get("/audit/type/:type", auditHandler.ByType)
	admin.Post("/audit/events", append(b.ingestLimit(), auditHandler.Ingest)...)

	b.fiberApp.Get("/health", healthHandler.Check)
	b.fiberApp.Get("/health/live", healthHandler.Liveness)
	b.fiberApp.Get("/health/ready", healthHandler.Readiness)

	b.fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// ingestLimit returns the per-IP limiter guarding audit ingestion, if any.
func (b *Builder) ingestLimit() []fiber.Handler {
	if b.cfg.Audit.IngestRate <= 0 {
		return nil
	}

	store := ratelimit.NewStore(b.cfg.Audit.IngestRate, b.cfg.Audit.IngestBurst, time.Minute)
	b.addCloser(store.Close)

	b.logger.Info("Audit ingest rate limited",
		logger.Float64("requests_per_sec", b.cfg.Audit.IngestRate),
		logger.Int("burst", b.cfg.Audit.IngestBurst),
	)

	return []fiber.Handler{middleware.RateLimit(store, "audit_ingest")}
}

func (b *Builder) addCloser(closer func()) {
	b.closers = append(b.closers, closer)
}

func (b *Builder) cleanupOnError() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// App represents a configured vigil application ready to run.
type App struct {
	cfg            *config.Config
	version        string
	logger         logger.Logger
	fiberApp       *fiber.App
	aggregator     *telemetry.Aggregator
	evaluator      *telemetry.AlertEvaluator
	closers        []func()
	backgroundStop []func()
}

// Handler exposes the HTTP application, mainly for in-process tests.
func (a *App) Handler() *fiber.App {
	return a.fiberApp
}

// Run starts the vigil application and handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.startBackgroundTasks()
	a.logger.Info("Server starting", logger.String("address", a.cfg.Address()))

	serverErr := make(chan error, 1)

	go func() {
		serverErr <- a.fiberApp.Listen(a.cfg.Address())
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("Failed to start server", logger.Error(err))
			a.stopBackgroundTasks()
			a.runClosers()
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")

	a.stopBackgroundTasks()

	if err := a.fiberApp.ShutdownWithTimeout(a.cfg.Server.ShutdownTimeout); err != nil {
		a.logger.Error("Server forced to shutdown", logger.Error(err))
	}

	a.runClosers()

	if err := <-serverErr; err != nil {
		return err
	}

	a.logger.Info("Server exited gracefully")
	return nil
}

// Close releases every resource without serving.
func (a *App) Close() {
	a.stopBackgroundTasks()
	a.runClosers()
	a.closers = nil
}

func (a *App) startBackgroundTasks() {
	if a.cfg.Alerts.EvalInterval > 0 {
		stop := a.startAlertEvaluation(a.cfg.Alerts.EvalInterval)
		a.backgroundStop = append(a.backgroundStop, stop)
	}
}

func (a *App) stopBackgroundTasks() {
	for i := len(a.backgroundStop) - 1; i >= 0; i-- {
		a.backgroundStop[i]()
	}
	a.backgroundStop = nil
}

// startAlertEvaluation keeps the alert gauges current between dashboard polls.
func (a *App) startAlertEvaluation(interval time.Duration) func() {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now()
				alerts := a.evaluator.Evaluate(a.aggregator.ComputeSystemMetrics(now), now)
				telemetry.RecordFiring(alerts)
				for _, alert := range alerts {
					if alert.Severity == telemetry.SeverityError {
						a.logger.Warn("Alert firing",
							logger.String("rule", alert.Rule),
							logger.String("message", alert.Message))
					}
				}
			case <-stop:
				return
			}
		}
	}()

	return func() { close(stop) }
}

func (a *App) runClosers() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
