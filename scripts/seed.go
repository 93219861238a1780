//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/pkg/config"
	"github.com/hugh/go-referral/pkg/invitelink"
	"github.com/hugh/go-referral/pkg/util"
	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger, cfg.Server.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db, logger); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	authService := auth.NewService(db, auth.ServiceConfig{
		Codec:  invitelink.NewCodec(cfg.Invite.CodecKey),
		Logger: logger,
	})

	// The admin approves accounts; the leader is the root every invite chain
	// starts from.
	seeds := []auth.SeedInput{
		{
			Login:     envOr("ADMIN_USER_ID", "admin001"),
			FirstName: "Site",
			LastName:  "Admin",
			Phone:     envOr("ADMIN_PHONE", "09000000001"),
			Password:  envOr("ADMIN_PASSWORD", "admin12345"),
			Role:      models.RoleAdmin,
		},
		{
			Login:     envOr("ROOT_USER_ID", "leader001"),
			FirstName: "Root",
			LastName:  "Leader",
			Phone:     envOr("ROOT_PHONE", "09000000002"),
			Password:  envOr("ROOT_PASSWORD", "leader12345"),
			Role:      models.RoleLeader,
		},
	}

	for _, in := range seeds {
		account, err := authService.Seed(context.Background(), in)
		if err != nil {
			if errors.Is(err, auth.ErrLoginTaken) || errors.Is(err, auth.ErrPhoneTaken) {
				fmt.Printf("%s account already exists: %s\n", in.Role, in.Login)
				continue
			}
			log.Fatalf("failed to create %s account: %v", in.Role, err)
		}

		fmt.Printf("%s account created\n", account.Role)
		fmt.Printf("  User ID: %s\n", account.Login)
		fmt.Printf("  Referral code: %s\n", account.ReferralCode)
		fmt.Printf("  Invite link: %s\n", invitelink.Link(cfg.Server.PublicURL, account.ReferralCode))
	}
}
