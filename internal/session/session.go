package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database/models"
)

const CookieName = "session"

var ErrNoSession = errors.New("no session")

// Session is the signed-in account as seen by request handlers.
type Session struct {
	AccountID uuid.UUID   `json:"account_id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone_number"`
	Role      models.Role `json:"role"`
}

func FromAccount(a *models.Account) Session {
	return Session{
		AccountID: a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Role:      a.Role,
	}
}

func (s Session) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Home is where the session's role lands after sign-in.
func (s Session) Home() string {
	return s.Role.Home()
}

type Manager struct {
	tokens auth.TokenService
	secure bool
}

func NewManager(tokens auth.TokenService, secureCookie bool) *Manager {
	return &Manager{tokens: tokens, secure: secureCookie}
}

// Save issues a token for s and writes it as the session cookie.
func (m *Manager) Save(w http.ResponseWriter, s Session) (string, error) {
	token, err := m.tokens.GenerateToken(auth.Identity{
		AccountID: s.AccountID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Phone:     s.Phone,
		Role:      s.Role,
	})
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(m.tokens.Expiry()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Load reads the session from the Authorization header, the session cookie
// or the X-Auth-Token header, in that order.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, ErrNoSession
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccountID: claims.AccountID,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Phone:     claims.Phone,
		Role:      claims.Role,
	}, nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get("X-Auth-Token")
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
