package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database/models"
)

// Authenticator covers account sign-up and sign-in.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*models.Account, error)
	Login(ctx context.Context, identifier, password string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// InviteResolver maps an invite reference to the inviting account.
type InviteResolver interface {
	ResolveInviter(ctx context.Context, ref string) (*models.Account, error)
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	GenerateToken(id Identity) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	Expiry() time.Duration
}

var (
	_ Authenticator  = (*Service)(nil)
	_ InviteResolver = (*Service)(nil)
	_ TokenService   = (*JWTService)(nil)
)
