package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-referral/internal/api"
	"github.com/hugh/go-referral/internal/approval"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/goals"
	"github.com/hugh/go-referral/internal/notify"
	"github.com/hugh/go-referral/internal/rolesync"
	"github.com/hugh/go-referral/internal/session"
	"github.com/hugh/go-referral/internal/tasks"
	"github.com/hugh/go-referral/pkg/config"
	"github.com/hugh/go-referral/pkg/crypto"
	"github.com/hugh/go-referral/pkg/invitelink"
	"github.com/hugh/go-referral/pkg/queue"
	"github.com/hugh/go-referral/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	logger.Info("starting referral server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger, cfg.Server.IsDevelopment())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it role changes reach sessions by polling
	// only and webhooks are sent inline.
	var redisClient redis.UniversalClient
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := rc.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		rc.Close()
	} else {
		redisClient = rc
	}

	var (
		asynqClient *asynq.Client
		notifier    notify.Dispatcher = notify.Discard{}
		publisher   approval.RolePublisher
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		publisher = rolesync.NewPublisher(redisClient)
	}
	switch {
	case !cfg.Webhook.Enabled():
		logger.Info("approval webhook disabled")
	case asynqClient != nil:
		sealer, err := crypto.NewSealer(cfg.Webhook.PayloadKey)
		if err != nil {
			logger.Error("invalid WEBHOOK_PAYLOAD_KEY", "error", err)
			os.Exit(1)
		}
		notifier = tasks.NewEnqueuer(asynqClient, sealer)
	default:
		notifier = notify.NewInline(notify.NewClient(notify.ClientConfig{
			URL:      cfg.Webhook.URL,
			Timeout:  cfg.Webhook.Timeout(),
			Attempts: cfg.Webhook.Attempts,
		}), logger)
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	sessions := session.NewManager(jwtService, !cfg.Server.IsDevelopment())
	codec := invitelink.NewCodec(cfg.Invite.CodecKey)
	accounts := database.NewAccountRepository(db)

	authService := auth.NewService(db, auth.ServiceConfig{
		Codec:         codec,
		InviteMaxUses: cfg.Invite.MaxUses,
		Logger:        logger,
	})
	goalService := goals.NewService(accounts, goals.Config{
		Level1Target: cfg.Goals.Level1Target,
		Level2Target: cfg.Goals.Level2Target,
		RatePerCount: cfg.Goals.RatePerCount,
	})
	approvals := approval.NewService(accounts, notifier, publisher, logger)
	watcher := rolesync.NewWatcher(redisClient, cfg.RoleSync.PollInterval(), logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Sessions:       sessions,
		AuthService:    authService,
		Accounts:       accounts,
		Codec:          codec,
		Goals:          goalService,
		Approvals:      approvals,
		Watcher:        watcher,
		PublicURL:      cfg.Server.PublicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})
	defer router.Close()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
