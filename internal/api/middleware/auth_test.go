package middleware

import (
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

func newSessions(secret string, expiry time.Duration) *session.Manager {
	return session.NewManager(auth.NewJWTService(secret, expiry), false)
}

func issue(t *testing.T, m *session.Manager, role models.Role) (session.Session, string) {
	t.Helper()
	s := session.Session{AccountID: uuid.New(), FirstName: "Test", LastName: "User", Phone: "09000000000", Role: role}
	token, err := m.Save(httptest.NewRecorder(), s)
	require.NoError(t, err)
	return s, token
}

func TestAuth_ValidToken_AuthorizationHeader(t *testing.T) {
	sessions := newSessions("test-secret", time.Hour)
	want, token := issue(t, sessions, models.RoleMember)

	handler := Auth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := session.FromContext(r.Context())
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_ValidToken_Cookie(t *testing.T) {
	sessions := newSessions("test-secret", time.Hour)
	want, token := issue(t, sessions, models.RoleAdmin)

	handler := Auth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, want.AccountID, session.FromContext(r.Context()).AccountID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_NoToken_APIRequest(t *testing.T) {
	handler := Auth(newSessions("test-secret", time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Accept", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestAuth_NoToken_WebRequest(t *testing.T) {
	handler := Auth(newSessions("test-secret", time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/dashboard/user", nil)
	req.Header.Set("Accept", "text/html")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
}

func TestAuth_RejectedTokens(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		handler := Auth(newSessions("test-secret", time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		sessions := newSessions("test-secret", time.Nanosecond)
		_, token := issue(t, sessions, models.RoleMember)
		time.Sleep(10 * time.Millisecond)

		handler := Auth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called for expired token")
		}))

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("different secret", func(t *testing.T) {
		_, token := issue(t, newSessions("secret-1", time.Hour), models.RoleMember)

		handler := Auth(newSessions("secret-2", time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called for token with different secret")
		}))

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	sessions := newSessions("test-secret", time.Hour)

	tests := []struct {
		name     string
		role     models.Role
		expected int
	}{
		{"member allowed", models.RoleMember, http.StatusOK},
		{"leader allowed", models.RoleLeader, http.StatusOK},
		{"pending forbidden", models.RolePending, http.StatusForbidden},
		{"admin forbidden", models.RoleAdmin, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, token := issue(t, sessions, tt.role)

			handler := Auth(sessions)(RequireRole(models.NetworkRoles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest("GET", "/api/v1/network", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}

	t.Run("without session", func(t *testing.T) {
		handler := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/admin/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
