package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/hugh/go-referral/internal/session"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfTokenExpiry = 24 * time.Hour
)

type csrfToken struct {
	value     string
	expiresAt time.Time
}

// CSRFStore keeps one token per session cookie in memory.
type CSRFStore struct {
	tokens map[string]csrfToken
	mu     sync.Mutex
}

func NewCSRFStore() *CSRFStore {
	return &CSRFStore{tokens: make(map[string]csrfToken)}
}

// GetOrCreate returns the live token for sessionID, minting one if needed.
// Expired entries are swept on every mint.
func (s *CSRFStore) GetOrCreate(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if tok, ok := s.tokens[sessionID]; ok && now.Before(tok.expiresAt) {
		return tok.value
	}

	for id, tok := range s.tokens {
		if now.After(tok.expiresAt) {
			delete(s.tokens, id)
		}
	}

	buf := make([]byte, csrfTokenLength)
	_, _ = rand.Read(buf)
	value := base64.RawURLEncoding.EncodeToString(buf)

	s.tokens[sessionID] = csrfToken{value: value, expiresAt: now.Add(csrfTokenExpiry)}
	return value
}

func (s *CSRFStore) Validate(sessionID, provided string) bool {
	s.mu.Lock()
	tok, ok := s.tokens[sessionID]
	s.mu.Unlock()

	if !ok || time.Now().After(tok.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok.value), []byte(provided)) == 1
}

// CSRF guards unsafe methods on cookie-authenticated requests. Requests that
// carry a bearer or X-Auth-Token header are not exposed to CSRF and pass.
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionCookieID(r)

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if sessionID != "" {
					if _, err := r.Cookie(csrfCookieName); err != nil {
						setCSRFCookie(w, r, store.GetOrCreate(sessionID))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Authorization") != "" || r.Header.Get("X-Auth-Token") != "" || sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(csrfHeaderName)
			if provided == "" {
				writeError(w, http.StatusForbidden, "CSRF token missing")
				return
			}
			if !store.Validate(sessionID, provided) {
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setCSRFCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // read by the front-end and echoed in the header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenExpiry.Seconds()),
	})
}

// sessionCookieID keys CSRF tokens by the tail of the session cookie. JWT
// prefixes are the shared header and cannot tell sessions apart.
func sessionCookieID(r *http.Request) string {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if len(cookie.Value) > 16 {
		return cookie.Value[len(cookie.Value)-16:]
	}
	return cookie.Value
}
