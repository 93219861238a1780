package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Goals     GoalsConfig
	Invite    InviteConfig
	RoleSync  RoleSyncConfig
	Ledger    LedgerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	PublicURL      string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Queries slower than this are logged at warn level.
	SlowQuery time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// WebhookConfig controls the approval notification. An empty URL disables it.
type WebhookConfig struct {
	URL            string
	TimeoutSeconds int
	Attempts       int
	// PayloadKey is an age identity sealing queued payloads. Server and
	// worker must share it; empty leaves payloads in the clear.
	PayloadKey string
}

type GoalsConfig struct {
	Level1Target int
	Level2Target int
	RatePerCount int64
}

type InviteConfig struct {
	// CodecKey is the repeating XOR key for link tokens. Not a secret.
	CodecKey string
	// MaxUses caps invitees per referral code; 0 means unlimited.
	MaxUses int
}

type RoleSyncConfig struct {
	PollSeconds int
}

type LedgerConfig struct {
	ReconcileCron string
}

type LogConfig struct {
	File      string
	MaxSizeMB int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (w *WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

func (w *WebhookConfig) Enabled() bool {
	return w.URL != ""
}

func (r *RoleSyncConfig) PollInterval() time.Duration {
	return time.Duration(r.PollSeconds) * time.Second
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_PUBLIC_URL", "http://localhost:3000")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "referral")
	v.SetDefault("DATABASE_PASSWORD", "referral_secret")
	v.SetDefault("DATABASE_NAME", "referral")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 50)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("DATABASE_SLOW_QUERY_MS", 200)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 10)
	v.SetDefault("WEBHOOK_ATTEMPTS", 3)
	v.SetDefault("WEBHOOK_PAYLOAD_KEY", "")
	v.SetDefault("GOALS_LEVEL1_TARGET", 10)
	v.SetDefault("GOALS_LEVEL2_TARGET", 100)
	v.SetDefault("GOALS_RATE_PER_COUNT", 200)
	v.SetDefault("INVITE_CODEC_KEY", "PyramidingSecure2024")
	v.SetDefault("INVITE_MAX_USES", 0)
	v.SetDefault("ROLESYNC_POLL_SECONDS", 8)
	v.SetDefault("LEDGER_RECONCILE_CRON", "*/15 * * * *")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 50)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			PublicURL:      v.GetString("SERVER_PUBLIC_URL"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),

			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DATABASE_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
			SlowQuery:       time.Duration(v.GetInt("DATABASE_SLOW_QUERY_MS")) * time.Millisecond,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Webhook: WebhookConfig{
			URL:            v.GetString("WEBHOOK_URL"),
			TimeoutSeconds: v.GetInt("WEBHOOK_TIMEOUT_SECONDS"),
			Attempts:       v.GetInt("WEBHOOK_ATTEMPTS"),
			PayloadKey:     v.GetString("WEBHOOK_PAYLOAD_KEY"),
		},
		Goals: GoalsConfig{
			Level1Target: v.GetInt("GOALS_LEVEL1_TARGET"),
			Level2Target: v.GetInt("GOALS_LEVEL2_TARGET"),
			RatePerCount: v.GetInt64("GOALS_RATE_PER_COUNT"),
		},
		Invite: InviteConfig{
			CodecKey: v.GetString("INVITE_CODEC_KEY"),
			MaxUses:  v.GetInt("INVITE_MAX_USES"),
		},
		RoleSync: RoleSyncConfig{
			PollSeconds: v.GetInt("ROLESYNC_POLL_SECONDS"),
		},
		Ledger: LedgerConfig{
			ReconcileCron: v.GetString("LEDGER_RECONCILE_CRON"),
		},
		Log: LogConfig{
			File:      v.GetString("LOG_FILE"),
			MaxSizeMB: v.GetInt("LOG_MAX_SIZE_MB"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
