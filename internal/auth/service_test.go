package auth_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/testutil"
	"github.com/hugh/go-referral/pkg/invitelink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerInput(login, phone, ref string) auth.RegisterInput {
	return auth.RegisterInput{
		Login:     login,
		FirstName: " Kemi ",
		LastName:  "Ade",
		Phone:     phone,
		Password:  "password1",
		InviteRef: ref,
	}
}

func TestService_Register(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	codec := invitelink.NewCodec("")
	svc := auth.NewService(db, auth.ServiceConfig{Codec: codec})

	inviter := testutil.CreateTestAccount(t, db, models.RoleMember)

	t.Run("with referral code", func(t *testing.T) {
		account, err := svc.Register(ctx, registerInput("kemi0001", "08012340001", strings.ToLower(inviter.ReferralCode)))
		require.NoError(t, err)

		assert.Equal(t, models.RolePending, account.Role)
		assert.Equal(t, inviter.ReferralCode, account.InvitedBy)
		assert.Equal(t, "Kemi", account.FirstName)
		assert.Len(t, account.ReferralCode, 8)
		assert.NotEqual(t, "password1", account.PasswordHash)
		assert.True(t, auth.CheckPassword("password1", account.PasswordHash))
	})

	t.Run("with phone token", func(t *testing.T) {
		token := codec.Encode(inviter.Phone)
		account, err := svc.Register(ctx, registerInput("kemi0002", "08012340002", token))
		require.NoError(t, err)
		assert.Equal(t, inviter.ReferralCode, account.InvitedBy)
	})

	t.Run("unknown invite", func(t *testing.T) {
		_, err := svc.Register(ctx, registerInput("kemi0003", "08012340003", "NOPE1234"))
		assert.ErrorIs(t, err, auth.ErrInvalidInviteCode)

		_, err = svc.Register(ctx, registerInput("kemi0003", "08012340003", ""))
		assert.ErrorIs(t, err, auth.ErrInvalidInviteCode)
	})

	t.Run("duplicate login and phone", func(t *testing.T) {
		_, err := svc.Register(ctx, registerInput("kemi0001", "08012349999", inviter.ReferralCode))
		assert.ErrorIs(t, err, auth.ErrLoginTaken)

		_, err = svc.Register(ctx, registerInput("kemi0099", "08012340001", inviter.ReferralCode))
		assert.ErrorIs(t, err, auth.ErrPhoneTaken)
	})
}

func TestService_RegisterInviteCapacity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := auth.NewService(db, auth.ServiceConfig{InviteMaxUses: 1})

	inviter := testutil.CreateTestAccount(t, db, models.RoleLeader)

	_, err := svc.Register(ctx, registerInput("first001", "08012350001", inviter.ReferralCode))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("second01", "08012350002", inviter.ReferralCode))
	assert.ErrorIs(t, err, auth.ErrInviteCodeExhausted)
}

func TestService_Login(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := auth.NewService(db, auth.ServiceConfig{})

	account := testutil.CreateTestAccount(t, db, models.RoleMember)

	t.Run("by phone", func(t *testing.T) {
		got, err := svc.Login(ctx, account.Phone, testutil.TestPassword)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("by login", func(t *testing.T) {
		got, err := svc.Login(ctx, " "+account.Login+" ", testutil.TestPassword)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, account.Phone, "wrongpassword1")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody", testutil.TestPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_GetAccountByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := auth.NewService(db, auth.ServiceConfig{})

	account := testutil.CreateTestAccount(t, db, models.RoleAdmin)

	got, err := svc.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Login, got.Login)

	_, err = svc.GetAccountByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestService_Seed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := auth.NewService(db, auth.ServiceConfig{})

	admin, err := svc.Seed(ctx, auth.SeedInput{
		Login:     "admin001",
		FirstName: "Site",
		LastName:  "Admin",
		Phone:     "08000000001",
		Password:  "adminpass1",
		Role:      models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Empty(t, admin.InvitedBy)
	assert.NotEmpty(t, admin.ReferralCode)

	var ledger models.Ledger
	require.NoError(t, db.First(&ledger, "account_id = ?", admin.ID).Error)
}

func TestGenerateReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := auth.GenerateReferralCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.Equal(t, strings.ToUpper(code), code)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "-")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}
