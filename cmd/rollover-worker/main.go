package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"sprout/internal/amqp"
	"sprout/internal/cache"
	"sprout/internal/config"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/services"
	"sprout/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting rollover-worker")

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

	// AMQP is optional: recurring expenses created here are published for
	// export when the queue is reachable, skipped otherwise.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.MailQueue, cfg.ExportQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - created expenses will be exported")
		}
	} else {
		logger.Info("AMQP disabled - created expenses will not be exported")
	}

	limitCache := cache.NewLRUCache[core.Money](cfg.CacheMaxEntries, time.Hour)
	preferences := services.NewPreferencesService(repo, limitCache, logger)
	rollovers := services.NewRolloverService(repo, preferences, logger)
	recurring := services.NewRecurringService(repo, preferences, amqpClient, cfg.ExportQueue, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Rollover worker configured",
		"interval", cfg.RolloverInterval,
		"batch_size", cfg.RolloverBatchSize,
		"sqlite_db", cfg.SQLiteDBPath)

	runPass := func() {
		swept, err := rollovers.SweepAll(ctx, cfg.RolloverBatchSize)
		if err != nil {
			logger.Error("Rollover sweep failed", "error", err)
		} else {
			logger.Info("Rollover sweep complete", "users_processed", swept)
		}

		created, err := recurring.ProcessAll(ctx)
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
		} else {
			logger.Info("Recurring processing complete", "expenses_created", created)
		}
	}

	// Run initial pass on startup so a restart never skips a day boundary.
	logger.Info("Running initial rollover and recurring pass...")
	runPass()

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runPass()
				logger.Info("Pass complete", "next_check", now.Add(cfg.RolloverInterval).Format("15:04:05"))
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down rollover-worker...")
	cancel()

	// Give the in-flight pass time to finish before closing connections.
	time.Sleep(2 * time.Second)
	logger.Info("Rollover-worker shutdown complete")
}
