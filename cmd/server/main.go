package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/api"
	"github.com/irfndi/skupulse/internal/api/handlers"
	"github.com/irfndi/skupulse/internal/cache"
	"github.com/irfndi/skupulse/internal/config"
	"github.com/irfndi/skupulse/internal/database"
	"github.com/irfndi/skupulse/internal/logging"
	"github.com/irfndi/skupulse/internal/middleware"
	"github.com/irfndi/skupulse/internal/reference"
	"github.com/irfndi/skupulse/internal/services"
	"github.com/irfndi/skupulse/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize telemetry first
	tp, err := telemetry.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	shutdownLogs := attachLogExport(ctx, cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
		if err := shutdownLogs(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown log export")
		}
	}()

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	pool := database.NewTracedDB(db.Pool)

	reportCache, redisHealth := connectCache(cfg, logger)

	references := reference.NewLoader(newReferenceSource(cfg.Reference, pool), logger)
	if _, err := references.Lookup(ctx); err != nil {
		// The loader retries on the next request.
		logger.WithError(err).Warn("SKU reference lookup not available yet")
	}

	analyticsCfg := services.AnalyticsServiceConfig{
		Facts:       database.NewFactRepository(pool),
		Orders:      database.NewOrderRepository(pool, logger),
		References:  references,
		Classifier:  services.NewSignalClassifier(cfg.Signals, logger),
		Comparator:  services.NewHourlyComparator(cfg.Hourly, logger),
		HistoryDays: historyDays(cfg.Signals),
		Retry:       services.DefaultRetryPolicy(),
		Logger:      logger,
	}
	if reportCache != nil {
		analyticsCfg.Cache = reportCache
	}
	analytics := services.NewAnalyticsService(analyticsCfg)

	digest := services.NewDigestService(analytics, newTelegramSender(cfg.Telegram, logger), services.DigestConfig{
		ChatIDs:      cfg.Telegram.ChatIDs,
		Interval:     digestInterval(cfg.Telegram),
		LookbackDays: cfg.Hourly.LookbackDays,
		Location:     cfg.Hourly.Location(),
	}, logger)
	digest.Start()
	defer digest.Stop()

	router := api.NewRouter(api.RouterConfig{
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      telemetry.ServiceVersion,
		Analytics:    analytics,
		Digest:       digest,
		Database:     db,
		Redis:        redisHealth,
		Auth:         middleware.NewAuthMiddleware(cfg.Security.JWTSecret),
		Clock:        handlers.Clock{Location: cfg.Hourly.Location()},
		LookbackDays: cfg.Hourly.LookbackDays,
		Logger:       logger,
	})

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogStartup(logger, telemetry.ServiceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logging.LogShutdown(logger, telemetry.ServiceName, "signal received")
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if reportCache != nil {
		reportCache.LogStats()
	}
	logger.Info("Server exited gracefully")
	return nil
}

// attachLogExport mirrors log entries to the OTLP collector when traces go
// there too. The returned func flushes pending records.
func attachLogExport(ctx context.Context, cfg *config.Config, logger *logrus.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Telemetry.Enabled || !strings.EqualFold(cfg.Telemetry.Exporter, "otlp") {
		return noop
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = telemetry.ServiceName
	}
	provider, err := logging.NewOTLPLogProvider(ctx, logging.OTLPConfig{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: telemetry.ServiceVersion,
		Environment:    cfg.Environment,
	})
	if err != nil {
		logger.WithError(err).Warn("OTLP log export disabled")
		return noop
	}
	logger.AddHook(logging.NewOTelHook(provider))
	return provider.Shutdown
}

// connectCache returns nils when caching is disabled or Redis is
// unreachable; reports are then always computed from source.
func connectCache(cfg *config.Config, logger *logrus.Logger) (*cache.RedisReportCache, handlers.HealthChecker) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Report cache disabled")
		return nil, nil
	}
	return cache.NewRedisReportCache(redisClient.Client, cfg.Cache.CacheTTL(), logger), redisClient
}

func newReferenceSource(cfg config.ReferenceConfig, pool database.DatabasePool) reference.Source {
	if cfg.Source == "file" {
		return reference.FileSource{Path: cfg.Path}
	}
	return database.NewReferenceRepository(pool)
}

// newTelegramSender returns nil when no bot token is configured.
func newTelegramSender(cfg config.TelegramConfig, logger *logrus.Logger) services.MessageSender {
	if cfg.BotToken == "" {
		logger.Info("Telegram bot token not set, digest disabled")
		return nil
	}
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize telegram bot, digest disabled")
		return nil
	}
	return b
}

func digestInterval(cfg config.TelegramConfig) time.Duration {
	if cfg.DigestInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(cfg.DigestInterval)
	if err != nil {
		return 0
	}
	return d
}

// historyDays covers the two trend windows compared by the falling-sales rule.
func historyDays(cfg config.SignalsConfig) int {
	return 2 * cfg.FallingSalesWindow
}
