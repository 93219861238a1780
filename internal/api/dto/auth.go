package dto

import (
	"strings"
	"time"

	"github.com/hugh/go-referral/internal/api/validation"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/session"
)

type RegisterRequest struct {
	UserID          string `json:"user_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PhoneNumber     string `json:"phone_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	InviteCode      string `json:"invite_code"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if ok, msg := validation.IsValidLogin(r.UserID); !ok {
		errors["user_id"] = msg
	}
	if strings.TrimSpace(r.FirstName) == "" {
		errors["first_name"] = "First name is required"
	}
	if strings.TrimSpace(r.LastName) == "" {
		errors["last_name"] = "Last name is required"
	}
	if ok, msg := validation.IsValidPhone(r.PhoneNumber); !ok {
		errors["phone_number"] = msg
	}
	if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	} else if r.Password != r.ConfirmPassword {
		errors["confirm_password"] = "Passwords do not match"
	}
	if strings.TrimSpace(r.InviteCode) == "" {
		errors["invite_code"] = "Invite code is required"
	}

	return errors
}

// LoginRequest accepts either a phone number or a user id as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Identifier) == "" {
		errors["identifier"] = "Phone number or user ID is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type SessionDTO struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

func NewSessionDTO(s session.Session) SessionDTO {
	return SessionDTO{
		ID:          s.AccountID.String(),
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		PhoneNumber: s.Phone,
		Role:        string(s.Role),
	}
}

type AuthResponse struct {
	Token   string     `json:"token"`
	Session SessionDTO `json:"session"`
	Home    string     `json:"home"`
}

type AccountDTO struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	Role         string    `json:"role"`
	ReferralCode string    `json:"referral_code"`
	InvitedBy    string    `json:"invited_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewAccountDTO(a *models.Account) AccountDTO {
	return AccountDTO{
		ID:           a.ID.String(),
		UserID:       a.Login,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PhoneNumber:  a.Phone,
		Role:         string(a.Role),
		ReferralCode: a.ReferralCode,
		InvitedBy:    a.InvitedBy,
		CreatedAt:    a.CreatedAt,
	}
}

type RegisterResponse struct {
	Account AccountDTO `json:"account"`
	Home    string     `json:"home"`
	Message string     `json:"message"`
}

type MeResponse struct {
	Account AccountDTO `json:"account"`
	Home    string     `json:"home"`
}
