package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(role models.Role) auth.Identity {
	return auth.Identity{
		AccountID: uuid.New(),
		FirstName: "Ada",
		LastName:  "Obi",
		Phone:     "09012345678",
		Role:      role,
	}
}

func TestJWTService_GenerateToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	id := testIdentity(models.RoleMember)

	t.Run("round trips identity", func(t *testing.T) {
		token, err := jwtService.GenerateToken(id)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, id, claims.Identity)
	})

	t.Run("sets issuer and subject", func(t *testing.T) {
		token, err := jwtService.GenerateToken(id)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "go-referral", claims.Issuer)
		assert.Equal(t, id.AccountID.String(), claims.Subject)
	})
}

func TestJWTService_ValidateToken(t *testing.T) {
	id := testIdentity(models.RoleAdmin)

	t.Run("rejects expired token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", time.Millisecond)

		token, err := jwtService.GenerateToken(id)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = jwtService.ValidateToken(token)
		assert.Equal(t, auth.ErrExpiredToken, err)
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

		token, err := jwtService.GenerateToken(id)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token + "tampered")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects token signed with different secret", func(t *testing.T) {
		token, err := auth.NewJWTService("secret-1", time.Hour).GenerateToken(id)
		require.NoError(t, err)

		_, err = auth.NewJWTService("secret-2", time.Hour).ValidateToken(token)
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects malformed and empty tokens", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", time.Hour)

		_, err := jwtService.ValidateToken("not-a-valid-jwt")
		assert.Equal(t, auth.ErrInvalidToken, err)

		_, err = jwtService.ValidateToken("")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})
}

func TestJWTService_Roles(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)

	for _, role := range []models.Role{models.RolePending, models.RoleMember, models.RoleLeader, models.RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			token, err := jwtService.GenerateToken(testIdentity(role))
			require.NoError(t, err)

			claims, err := jwtService.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, role, claims.Role)
		})
	}
}
