package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"sprout/internal/amqp"
	"sprout/internal/cache"
	"sprout/internal/config"
	"sprout/internal/core"
	apphttp "sprout/internal/http"
	"sprout/internal/log"
	"sprout/internal/services"
	"sprout/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting sprout server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it, password-reset mail and expense export are
	// skipped while the API keeps working.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.MailQueue, cfg.ExportQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without queue publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"mail_queue", cfg.MailQueue,
				"export_queue", cfg.ExportQueue)
		}
	} else {
		logger.Info("AMQP disabled - mail and export messages will not be published")
	}

	limitCache := cache.NewLRUCache[core.Money](cfg.CacheMaxEntries, time.Hour)
	categoryCache := cache.NewLRUCache[[]core.Category](cfg.CacheMaxEntries, time.Hour)
	cacheManager := cache.NewManager()
	cacheManager.Register(limitCache)
	cacheManager.Register(categoryCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	preferences := services.NewPreferencesService(repo, limitCache, logger)
	srv := apphttp.NewServer(apphttp.Deps{
		Config: cfg,
		Repo:   repo,
		Logger: logger,

		Auth:        services.NewAuthService(repo, amqpClient, cfg.MailQueue, cfg.BaseURL, cfg.SessionTTL, logger),
		Expenses:    services.NewExpenseService(repo, preferences, amqpClient, cfg.ExportQueue, logger),
		Categories:  services.NewCategoryService(repo, preferences, categoryCache, logger),
		Preferences: preferences,
		Rollover:    services.NewRolloverService(repo, preferences, logger),
		Summaries:   services.NewSummaryService(repo, preferences, preferences, logger),
		Analytics:   services.NewAnalyticsService(repo, preferences, logger),
		Recurring:   services.NewRecurringService(repo, preferences, amqpClient, cfg.ExportQueue, logger),

		LimitCache:    limitCache,
		CategoryCache: categoryCache,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting HTTP server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
