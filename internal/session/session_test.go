package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *session.Manager {
	return session.NewManager(auth.NewJWTService("test-secret", time.Hour), false)
}

func sample() session.Session {
	return session.Session{
		AccountID: uuid.New(),
		FirstName: "Grace",
		LastName:  "Eze",
		Phone:     "09011112222",
		Role:      models.RoleLeader,
	}
}

func TestManager_SaveLoad(t *testing.T) {
	m := newManager()
	s := sample()

	t.Run("cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		token, err := m.Save(rr, s)
		require.NoError(t, err)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, session.CookieName, cookies[0].Name)
		assert.Equal(t, token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])

		loaded, err := m.Load(req)
		require.NoError(t, err)
		assert.Equal(t, s, *loaded)
	})

	t.Run("bearer header", func(t *testing.T) {
		token, err := m.Save(httptest.NewRecorder(), s)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		loaded, err := m.Load(req)
		require.NoError(t, err)
		assert.Equal(t, s.AccountID, loaded.AccountID)
		assert.Equal(t, "/dashboard/leader", loaded.Home())
	})

	t.Run("x-auth-token header", func(t *testing.T) {
		token, err := m.Save(httptest.NewRecorder(), s)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Auth-Token", token)

		loaded, err := m.Load(req)
		require.NoError(t, err)
		assert.Equal(t, "Grace Eze", loaded.FullName())
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("foreign token", func(t *testing.T) {
		other := session.NewManager(auth.NewJWTService("other-secret", time.Hour), false)
		token, err := other.Save(httptest.NewRecorder(), s)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		_, err = m.Load(req)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestManager_Clear(t *testing.T) {
	rr := httptest.NewRecorder()
	newManager().Clear(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestContext(t *testing.T) {
	assert.Nil(t, session.FromContext(context.Background()))

	s := sample()
	ctx := session.WithSession(context.Background(), &s)
	assert.Equal(t, &s, session.FromContext(ctx))
}

func TestFromAccount(t *testing.T) {
	a := &models.Account{
		FirstName: "Tunde",
		LastName:  "Ade",
		Phone:     "08030000000",
		Role:      models.RolePending,
	}
	a.ID = uuid.New()

	s := session.FromAccount(a)
	assert.Equal(t, a.ID, s.AccountID)
	assert.Equal(t, "/pending-approval", s.Home())
}
