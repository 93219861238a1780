package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func prepare(db *gorm.DB) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting dialect: %w", err)
	}
	return sqlDB, nil
}

// Migrate applies pending SQL migrations to a postgres database.
func Migrate(db *gorm.DB, log *slog.Logger) error {
	sqlDB, err := prepare(db)
	if err != nil {
		return err
	}

	before, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	after, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	log.Info("database schema up to date", "from_version", before, "to_version", after)
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(db *gorm.DB, log *slog.Logger) error {
	sqlDB, err := prepare(db)
	if err != nil {
		return err
	}
	if err := goose.Down(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("reverting migration: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	log.Info("migration reverted", "version", version)
	return nil
}

// SchemaVersion returns the applied migration version.
func SchemaVersion(db *gorm.DB) (int64, error) {
	sqlDB, err := prepare(db)
	if err != nil {
		return 0, err
	}
	return goose.GetDBVersion(sqlDB)
}
