package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/api"
	"github.com/xoslabs/workforce/internal/buildconfig"
	"github.com/xoslabs/workforce/internal/config"
	"github.com/xoslabs/workforce/internal/estimate"
	"github.com/xoslabs/workforce/internal/notify"
	"github.com/xoslabs/workforce/internal/service"
	"github.com/xoslabs/workforce/internal/store"
	"github.com/xoslabs/workforce/internal/telemetry"
	"go.uber.org/zap"
)

const serviceName = "workforce"

func main() {
	bootLogger, _ := zap.NewProduction()
	if err := config.Load(); err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(bootLogger)
	defer func() { _ = logger.Sync() }()

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	wf, err := config.LoadWorkforce()
	if err != nil {
		logger.Fatal("invalid workforce config", zap.Error(err))
	}
	estCfg, err := config.LoadEstimate()
	if err != nil {
		logger.Fatal("invalid estimate config", zap.Error(err))
	}
	telCfg, err := config.LoadTelemetry()
	if err != nil {
		logger.Fatal("invalid telemetry config", zap.Error(err))
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(serviceName, buildconfig.Version(), telCfg)
	if err != nil {
		logger.Fatal("failed to initialise telemetry", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	if err := store.Migrate(ctx, pool, config.MigrationsPath(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	estimates, err := estimate.NewService(ctx, estCfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise estimate service", zap.Error(err))
	}

	channel := config.NotifyChannel()
	app := api.NewApp(api.PostgresStores(pool), api.Options{
		Notifier:       notify.NewPostgres(pool, channel),
		Estimates:      estimates,
		Sender:         service.NewLogFollowupSender(logger),
		Workforce:      wf,
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)

	// Approvals made by any replica wake this processor early.
	listener := notify.NewListener(pool, channel, logger)
	listener.Subscribe(app.Processor.HandleEvent)

	// Start background services
	listener.Start()
	app.Processor.Start()
	if err := app.Scheduler.Start(); err != nil {
		logger.Fatal("failed to start follow-up scheduler", zap.Error(err))
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("version", buildconfig.Version()),
			zap.String("processor_id", app.Processor.InstanceID()),
			zap.Bool("require_approval", wf.RequireApproval))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop background services
	listener.Stop()
	app.Scheduler.Stop()
	app.Processor.Stop()

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(fallback *zap.Logger) *zap.Logger {
	cfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(config.LogLevel())
	if err != nil {
		fallback.Warn("invalid LOG_LEVEL, using info", zap.String("level", config.LogLevel()))
		return fallback
	}
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		return fallback
	}
	return logger.With(zap.String("service", serviceName))
}
