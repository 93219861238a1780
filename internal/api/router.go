package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/go-referral/internal/api/handlers"
	"github.com/hugh/go-referral/internal/api/middleware"
	"github.com/hugh/go-referral/internal/approval"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/goals"
	"github.com/hugh/go-referral/internal/referral"
	"github.com/hugh/go-referral/internal/rolesync"
	"github.com/hugh/go-referral/internal/session"
	"github.com/hugh/go-referral/pkg/invitelink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       redis.UniversalClient // nil disables the redis health check
	Logger      *slog.Logger
	Sessions    *session.Manager
	AuthService *auth.Service
	Accounts    *database.AccountRepository
	Codec       *invitelink.Codec
	Goals       *goals.Service
	Approvals   *approval.Service
	Watcher     *rolesync.Watcher

	PublicURL      string   // base of shared invite links
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	if cfg.RateLimitReqs > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		router.limiters = append(router.limiters, limiter)
		r.Use(middleware.RateLimit(limiter))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	accounts := cfg.Accounts
	if accounts == nil {
		accounts = database.NewAccountRepository(cfg.DB)
	}
	codec := cfg.Codec
	if codec == nil {
		codec = invitelink.NewCodec("")
	}
	goalService := cfg.Goals
	if goalService == nil {
		goalService = goals.NewService(accounts, goals.Config{})
	}
	approvals := cfg.Approvals
	if approvals == nil {
		approvals = approval.NewService(accounts, nil, nil, cfg.Logger)
	}
	watcher := cfg.Watcher
	if watcher == nil {
		watcher = rolesync.NewWatcher(nil, rolesync.DefaultPollInterval, cfg.Logger)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Sessions, cfg.Logger)
	inviteHandler := handlers.NewInviteHandler(cfg.AuthService, referral.NewResolver(accounts), codec, cfg.PublicURL)
	dashboardHandler := handlers.NewDashboardHandler(accounts, goalService, referral.NewAggregator(accounts), inviteHandler, cfg.Logger)
	adminHandler := handlers.NewAdminHandler(approvals, cfg.Logger)
	eventsHandler := handlers.NewEventsHandler(accounts, watcher, cfg.Logger)

	csrfStore := middleware.NewCSRFStore()

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/invite/resolve", inviteHandler.Resolve)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Sessions))
			r.Use(middleware.CSRF(csrfStore))

			r.Get("/me", authHandler.Me)
			r.Post("/session/refresh", authHandler.Refresh)
			r.Get("/session/events", eventsHandler.Roles)

			// Member and leader dashboards
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.NetworkRoles...))

				r.Get("/dashboard", dashboardHandler.Summary)
				r.Get("/network", dashboardHandler.Network)
				r.Get("/invite", inviteHandler.Mine)
				r.Post("/goals/{level}/claim", dashboardHandler.ClaimGoal)
			})

			// Administration
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Get("/accounts", adminHandler.ListAccounts)
				r.Post("/accounts/{id}/approve", adminHandler.Approve)
				r.Get("/users", adminHandler.Users)
			})
		})
	})

	return router
}

// Close stops background work started by the router.
func (r *Router) Close() {
	for _, l := range r.limiters {
		l.Stop()
	}
}
