package auth

import (
	"context"
	"testing"

	"github.com/hugh/go-referral/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.Ledger{}))
	return db
}

func TestService_CreateRetriesCodeCollision(t *testing.T) {
	db := openDB(t)
	svc := NewService(db, ServiceConfig{})

	codes := []string{"SAMECODE", "SAMECODE", "FRESHONE"}
	svc.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, err := svc.Seed(context.Background(), SeedInput{Login: "seed0001", Phone: "08000000001", Password: "password1", Role: models.RoleLeader})
	require.NoError(t, err)
	assert.Equal(t, "SAMECODE", first.ReferralCode)

	second, err := svc.Seed(context.Background(), SeedInput{Login: "seed0002", Phone: "08000000002", Password: "password1", Role: models.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, "FRESHONE", second.ReferralCode)
}

func TestService_CreateGivesUp(t *testing.T) {
	db := openDB(t)
	svc := NewService(db, ServiceConfig{})
	svc.newCode = func() (string, error) { return "STUCK123", nil }

	_, err := svc.Seed(context.Background(), SeedInput{Login: "seed0001", Phone: "08000000001", Password: "password1", Role: models.RoleMember})
	require.NoError(t, err)

	_, err = svc.Seed(context.Background(), SeedInput{Login: "seed0002", Phone: "08000000002", Password: "password1", Role: models.RoleMember})
	assert.ErrorContains(t, err, "collisions")
}
