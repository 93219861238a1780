package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/pkg/config"
	"github.com/hugh/go-referral/pkg/util"
	"github.com/joho/godotenv"
)

const usage = "usage: migrate [up|down|version]"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	db, err := database.Connect(&cfg.Database, logger, cfg.Server.IsDevelopment())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	switch cmd {
	case "up":
		err = database.Migrate(db, logger)
	case "down":
		err = database.Rollback(db, logger)
	case "version":
		var version int64
		if version, err = database.SchemaVersion(db); err == nil {
			fmt.Println(version)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("migration failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}
