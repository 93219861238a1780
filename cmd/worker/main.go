package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/notify"
	"github.com/hugh/go-referral/internal/tasks"
	"github.com/hugh/go-referral/pkg/config"
	"github.com/hugh/go-referral/pkg/crypto"
	"github.com/hugh/go-referral/pkg/queue"
	"github.com/hugh/go-referral/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLoggerWithOptions(cfg.Server.Env, util.LogOptions{
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	slog.SetDefault(logger)

	logger.Info("starting referral worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger, cfg.Server.IsDevelopment())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var webhook *notify.Client
	if cfg.Webhook.Enabled() {
		webhook = notify.NewClient(notify.ClientConfig{
			URL:      cfg.Webhook.URL,
			Timeout:  cfg.Webhook.Timeout(),
			Attempts: cfg.Webhook.Attempts,
		})
	} else {
		logger.Warn("WEBHOOK_URL not set, approval notifications will be dropped")
	}

	sealer, err := crypto.NewSealer(cfg.Webhook.PayloadKey)
	if err != nil {
		logger.Error("invalid WEBHOOK_PAYLOAD_KEY", "error", err)
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(db, logger, webhook, sealer)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic ledger reconciliation
	scheduler := queue.NewScheduler(&cfg.Redis)
	if err := util.ValidateCronExpr(cfg.Ledger.ReconcileCron); err != nil {
		logger.Error("invalid LEDGER_RECONCILE_CRON", "cron", cfg.Ledger.ReconcileCron, "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register(cfg.Ledger.ReconcileCron, tasks.NewLedgerReconcileTask(), asynq.Queue(queue.QueueLow)); err != nil {
		logger.Error("failed to schedule ledger reconcile", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Ledger.ReconcileCron, time.Now()); err == nil {
		logger.Info("ledger reconcile scheduled", "cron", cfg.Ledger.ReconcileCron, "next_run", next)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
