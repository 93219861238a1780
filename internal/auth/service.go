package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/pkg/invitelink"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrLoginTaken          = errors.New("user id already registered")
	ErrPhoneTaken          = errors.New("phone number already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidInviteCode   = errors.New("invite code not recognized")
	ErrInviteCodeExhausted = errors.New("invite code has reached its limit")
)

const maxCodeAttempts = 5

type Service struct {
	db       *gorm.DB
	accounts *database.AccountRepository
	codec    *invitelink.Codec
	maxUses  int
	logger   *slog.Logger

	// newCode is swapped in tests to force collisions.
	newCode func() (string, error)
}

type ServiceConfig struct {
	Codec *invitelink.Codec
	// InviteMaxUses caps invitees per referral code; 0 disables the cap.
	InviteMaxUses int
	Logger        *slog.Logger
}

func NewService(db *gorm.DB, cfg ServiceConfig) *Service {
	codec := cfg.Codec
	if codec == nil {
		codec = invitelink.NewCodec("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		accounts: database.NewAccountRepository(db),
		codec:    codec,
		maxUses:  cfg.InviteMaxUses,
		logger:   logger,
		newCode:  GenerateReferralCode,
	}
}

type RegisterInput struct {
	Login     string
	FirstName string
	LastName  string
	Phone     string
	Password  string
	InviteRef string // referral code or encoded phone token
}

type SeedInput struct {
	Login     string
	FirstName string
	LastName  string
	Phone     string
	Password  string
	Role      models.Role
}

// Register creates a pending account linked to the inviter resolved from
// input.InviteRef.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.Account, error) {
	if err := s.checkUnique(ctx, input.Login, input.Phone); err != nil {
		return nil, err
	}

	inviter, err := s.ResolveInviter(ctx, input.InviteRef)
	if err != nil {
		return nil, err
	}

	if s.maxUses > 0 {
		used, err := s.accounts.CountInvitedBy(ctx, inviter.ReferralCode)
		if err != nil {
			return nil, err
		}
		if used >= int64(s.maxUses) {
			return nil, ErrInviteCodeExhausted
		}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Login:        input.Login,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         models.RolePending,
		InvitedBy:    inviter.ReferralCode,
	}
	if err := s.create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		"account_id", account.ID,
		"invited_by", account.InvitedBy,
	)
	return account, nil
}

// Seed creates an account without an inviter, used for bootstrap admins and
// network roots.
func (s *Service) Seed(ctx context.Context, input SeedInput) (*models.Account, error) {
	if err := s.checkUnique(ctx, input.Login, input.Phone); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Login:        input.Login,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.create(ctx, account); err != nil {
		return nil, err
	}
	if account.Role.IsApproved() {
		if err := s.accounts.EnsureLedger(ctx, account.ID); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// ResolveInviter maps an invite reference to the inviting account. The
// reference is tried as a referral code first, then as a phone token.
func (s *Service) ResolveInviter(ctx context.Context, ref string) (*models.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrInvalidInviteCode
	}

	inviter, err := s.accounts.FindByReferralCode(ctx, strings.ToUpper(ref))
	if err == nil {
		return inviter, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	phone, decodeErr := s.codec.Decode(ref)
	if decodeErr != nil {
		return nil, ErrInvalidInviteCode
	}
	inviter, err = s.accounts.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, err
	}
	if inviter.ReferralCode == "" {
		return nil, ErrInvalidInviteCode
	}
	return inviter, nil
}

// Login authenticates by phone number or user id.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.Account, error) {
	identifier = strings.TrimSpace(identifier)

	var account models.Account
	if err := s.db.WithContext(ctx).
		Where("phone = ? OR login = ?", identifier, identifier).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &account, nil
}

func (s *Service) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *Service) checkUnique(ctx context.Context, login, phone string) error {
	var existing models.Account
	err := s.db.WithContext(ctx).Where("login = ? OR phone = ?", login, phone).First(&existing).Error
	if err == nil {
		if existing.Login == login {
			return ErrLoginTaken
		}
		return ErrPhoneTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// create inserts account with a fresh referral code, retrying on collisions.
func (s *Service) create(ctx context.Context, account *models.Account) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return fmt.Errorf("generating referral code: %w", err)
		}

		var taken int64
		if err := s.db.WithContext(ctx).Model(&models.Account{}).
			Where("referral_code = ?", code).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			continue
		}

		account.ReferralCode = code
		return s.db.WithContext(ctx).Create(account).Error
	}
	return fmt.Errorf("generating referral code: %d collisions", maxCodeAttempts)
}
