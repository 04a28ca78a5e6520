package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"sprout/internal/amqp"
	"sprout/internal/config"
	"sprout/internal/export"
	"sprout/internal/log"
	"sprout/internal/mail"
	"sprout/internal/storage"
	"sprout/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting sprout-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required: the worker consumes the mail and export queues")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	exporter, err := export.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}
	logger.Info("Export backend initialized", "backend", cfg.ExportBackend)

	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
		logger.Info("SMTP sender initialized", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	} else {
		sender = mail.NewLogSender(logger)
		logger.Info("SMTP disabled - mail messages will be logged only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.MailQueue, cfg.ExportQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.New(repo, exporter, sender, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := amqp.Consume(ctx, amqpClient, cfg.MailQueue, w.HandleMailMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Mail queue consumption failed", "error", err)
		}
		cancel()
	}()
	go func() {
		err := amqp.Consume(ctx, amqpClient, cfg.ExportQueue, w.HandleExportMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Export queue consumption failed", "error", err)
		}
		cancel()
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

	// Give in-flight deliveries time to finish before closing the connection.
	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
