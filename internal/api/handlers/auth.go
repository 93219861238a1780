package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/go-referral/internal/api/dto"
	"github.com/hugh/go-referral/internal/api/validation"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/metrics"
	"github.com/hugh/go-referral/internal/session"
)

type AuthHandler struct {
	authService auth.Authenticator
	sessions    *session.Manager
	logger      *slog.Logger
}

func NewAuthHandler(authService auth.Authenticator, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, sessions: sessions, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.InviteCode == "" {
		req.InviteCode = r.URL.Query().Get("ref")
	}

	if errors := req.Validate(); len(errors) > 0 {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	account, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Login:     req.UserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     validation.PhoneDigits(req.PhoneNumber),
		Password:  req.Password,
		InviteRef: req.InviteCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLoginTaken):
			metrics.Registrations.WithLabelValues("conflict").Inc()
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User ID already registered"})
		case errors.Is(err, auth.ErrPhoneTaken):
			metrics.Registrations.WithLabelValues("conflict").Inc()
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Phone number already registered"})
		case errors.Is(err, auth.ErrInvalidInviteCode):
			metrics.Registrations.WithLabelValues("invalid_invite").Inc()
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Invalid invite code",
				Details: map[string]string{"invite_code": "Invite code not recognized"},
			})
		case errors.Is(err, auth.ErrInviteCodeExhausted):
			metrics.Registrations.WithLabelValues("invite_exhausted").Inc()
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Invalid invite code",
				Details: map[string]string{"invite_code": "Invite code has reached its limit"},
			})
		default:
			metrics.Registrations.WithLabelValues("error").Inc()
			h.logger.Error("registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		Account: dto.NewAccountDTO(account),
		Home:    account.Role.Home(),
		Message: "Registration received. An administrator will review your account.",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	identifier := req.Identifier
	if ok, _ := validation.IsValidPhone(identifier); ok {
		identifier = validation.PhoneDigits(identifier)
	}

	account, err := h.authService.Login(r.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
			return
		}
		h.logger.Error("login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		return
	}

	h.startSession(w, session.FromAccount(account))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	account, err := h.authService.GetAccountByID(r.Context(), s.AccountID)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load account"})
		return
	}

	writeJSON(w, http.StatusOK, dto.MeResponse{
		Account: dto.NewAccountDTO(account),
		Home:    account.Role.Home(),
	})
}

// Refresh reissues the session from the stored account, picking up a role
// changed by an administrator since sign-in.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	account, err := h.authService.GetAccountByID(r.Context(), s.AccountID)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			h.sessions.Clear(w)
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Account no longer exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to refresh session"})
		return
	}

	h.startSession(w, session.FromAccount(account))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, s session.Session) {
	token, err := h.sessions.Save(w, s)
	if err != nil {
		h.logger.Error("issuing session failed", "account_id", s.AccountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to start session"})
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token:   token,
		Session: dto.NewSessionDTO(s),
		Home:    s.Home(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
