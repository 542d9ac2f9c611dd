package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uranai/internal/app"
	"uranai/internal/backend"
	"uranai/internal/config"
	"uranai/internal/database"
	"uranai/internal/handler"
	"uranai/internal/metrics"
	"uranai/internal/middleware"
	"uranai/internal/repository/postgres"
	"uranai/internal/service"
	"uranai/internal/supabase"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting uranAI Bot", zap.String("env", cfg.AppEnv))

	// Connect to database with retries
	db, err := database.Connect(cfg.DSN(), 30, 2*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Run migrations
	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repositories
	stateRepo := postgres.NewStateRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	metricsServer := startMetricsServer(cfg.MetricsAddr, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One controller per chat, created on the chat's first update
	controllers := app.NewRegistry(ctx, newControllerFactory(cfg, stateRepo, tokenRepo, collector, logger), logger)

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("Handler failed", zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized")

	// Initialize handler
	bot.Use(middleware.ControllerMiddleware(controllers, logger))
	h := handler.NewHandler(ctx, bot, controllers, logger)
	h.RegisterHandlers(bot)

	logger.Info("Handlers registered")

	// Start cleanup job in background
	retention := service.NewRetentionService(stateRepo, tokenRepo, cfg.RetentionDays, logger)
	go runCleanupJob(ctx, retention, logger)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown: stop taking updates, then flush every controller
	bot.Stop()
	controllers.Close()
	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}

	logger.Info("Bot stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newControllerFactory builds a controller with its own auth session for each chat
func newControllerFactory(
	cfg *config.Config,
	states *postgres.StateRepo,
	tokens *postgres.TokenRepo,
	collector *metrics.Collector,
	logger *zap.Logger,
) app.Factory {
	httpClient := &http.Client{Timeout: cfg.Backend.RequestTimeout}

	return func(chatID int64) (*app.Controller, error) {
		chatLogger := logger.With(zap.Int64("chat_id", chatID))

		auth := supabase.NewClient(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseAnonKey, httpClient, cfg.Auth.RefreshThreshold, chatLogger)

		var limiter *rate.Limiter
		if cfg.Backend.RatePerSec > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.Backend.RatePerSec), cfg.Backend.Burst)
		}
		api := backend.NewClient(cfg.Backend.BaseURL, auth, httpClient, limiter, collector, chatLogger)

		return app.NewController(
			chatID,
			app.Backends{
				Provider:   auth,
				Profiles:   api,
				Divination: api,
				Account:    api,
			},
			app.Storage{
				States: states,
				Tokens: tokens,
				Key:    cfg.StateKeyFor(chatID),
			},
			app.Settings{
				ErrorDisplay:    cfg.UI.ErrorDisplay,
				LoadingDuration: cfg.UI.LoadingDuration,
				Auth: service.AuthTimeouts{
					Probe:    cfg.Auth.ProbeTimeout,
					Watchdog: cfg.Auth.Watchdog,
				},
				RedirectURL: cfg.Auth.RedirectURL,
			},
			collector,
			logger,
		), nil
	}
}

// startMetricsServer serves /metrics on addr. An empty addr disables it.
func startMetricsServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return server
}

// runCleanupJob runs periodic cleanup of stale persisted state
func runCleanupJob(ctx context.Context, retention *service.RetentionService, logger *zap.Logger) {
	// Run cleanup once at startup
	if err := retention.CleanupOldData(ctx); err != nil {
		logger.Error("Failed to run initial cleanup", zap.Error(err))
	}

	// Then run every 24 hours
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup job stopped")
			return
		case <-ticker.C:
			logger.Info("Running scheduled cleanup")
			if err := retention.CleanupOldData(ctx); err != nil {
				logger.Error("Failed to run scheduled cleanup", zap.Error(err))
			}
		}
	}
}
