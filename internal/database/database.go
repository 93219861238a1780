package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Connect opens the Postgres pool and verifies it with a ping. SQL logging
// goes through log: every statement in development, slow ones otherwise.
func Connect(cfg *config.DatabaseConfig, log *slog.Logger, development bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQuery, development),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info("connected to database",
		"host", cfg.Host,
		"database", cfg.Name,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return db, nil
}

// AutoMigrate creates the schema from the models. Used by tests and local
// development; production schemas are managed by Migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Ledger{},
	)
}

type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.log.Info(fmt.Sprintf(format, args...), "component", "gorm")
}

func newGormLogger(log *slog.Logger, slow time.Duration, development bool) logger.Interface {
	level := logger.Warn
	if development {
		level = logger.Info
	}
	return logger.New(slogWriter{log: log}, logger.Config{
		SlowThreshold: slow,
		LogLevel:      level,
		// Lookups that miss are a normal outcome for the repositories.
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
