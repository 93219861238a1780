package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidLevel   = errors.New("invalid goal level")
	ErrAlreadyClaimed = errors.New("goal already claimed")
)

// AccountRepository is the query surface over accounts and ledgers: equality
// and membership filters, ordered fetches and single-column updates.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *AccountRepository) FindByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	var account models.Account
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// ReferralCode returns the account's own referral code, which may be empty.
func (r *AccountRepository) ReferralCode(ctx context.Context, id uuid.UUID) (string, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Select("id", "referral_code").First(&account, "id = ?", id).Error; err != nil {
		return "", notFound(err)
	}
	return account.ReferralCode, nil
}

// ListInvitedBy returns accounts whose inviter reference is one of codes and
// whose role is one of roles, oldest first.
func (r *AccountRepository) ListInvitedBy(ctx context.Context, codes []string, roles []models.Role) ([]models.Account, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Where("invited_by IN ?", codes)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}

	var accounts []models.Account
	if err := query.Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("listing invitees: %w", err)
	}
	return accounts, nil
}

// CountInvitedBy counts all invitees of code regardless of role.
func (r *AccountRepository) CountInvitedBy(ctx context.Context, code string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("invited_by = ?", code).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting invitees: %w", err)
	}
	return count, nil
}

// CountInvitedByCodes counts all invitees per inviter code in one query.
func (r *AccountRepository) CountInvitedByCodes(ctx context.Context, codes []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(codes))
	if len(codes) == 0 {
		return counts, nil
	}

	var rows []struct {
		InvitedBy string
		Total     int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("invited_by, COUNT(*) AS total").
		Where("invited_by IN ?", codes).
		Group("invited_by").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting invitees: %w", err)
	}

	for _, row := range rows {
		counts[row.InvitedBy] = row.Total
	}
	return counts, nil
}

// ListAccounts returns accounts newest first. A nil roles slice returns all.
func (r *AccountRepository) ListAccounts(ctx context.Context, roles []models.Role) ([]models.Account, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if roles != nil {
		query = query.Where("role IN ?", roles)
	}

	var accounts []models.Account
	if err := query.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// UpdateRole overwrites the role of a single account.
func (r *AccountRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("updating role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureLedger creates an empty ledger row for the account if none exists.
func (r *AccountRepository) EnsureLedger(ctx context.Context, accountID uuid.UUID) error {
	ledger := models.Ledger{AccountID: accountID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ledger).Error; err != nil {
		return fmt.Errorf("initializing ledger: %w", err)
	}
	return nil
}

// GetLedger returns the ledger of an account, or a zero ledger when the row
// has not been initialized yet.
func (r *AccountRepository) GetLedger(ctx context.Context, accountID uuid.UUID) (*models.Ledger, error) {
	var ledger models.Ledger
	err := r.db.WithContext(ctx).First(&ledger, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Ledger{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return &ledger, nil
}

// ListLedgers returns ledgers keyed by account id.
func (r *AccountRepository) ListLedgers(ctx context.Context, accountIDs []uuid.UUID) (map[uuid.UUID]models.Ledger, error) {
	out := make(map[uuid.UUID]models.Ledger, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}

	var ledgers []models.Ledger
	if err := r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Find(&ledgers).Error; err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}
	for _, l := range ledgers {
		out[l.AccountID] = l
	}
	return out, nil
}

// ClaimGoal stamps the claim time of a goal level. Only the first claim wins.
func (r *AccountRepository) ClaimGoal(ctx context.Context, accountID uuid.UUID, level int, at time.Time) error {
	var column string
	switch level {
	case 1:
		column = "goal1_claimed_at"
	case 2:
		column = "goal2_claimed_at"
	default:
		return ErrInvalidLevel
	}

	if err := r.EnsureLedger(ctx, accountID); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Ledger{}).
		Where("account_id = ? AND "+column+" IS NULL", accountID).
		Updates(map[string]interface{}{
			column:       at,
			"updated_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("claiming goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

// InitializeMissingLedgers creates ledger rows for approved accounts that do
// not have one and returns how many were created.
func (r *AccountRepository) InitializeMissingLedgers(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("role IN ?", models.ApprovedRoles).
		Where("NOT EXISTS (SELECT 1 FROM ledgers WHERE ledgers.account_id = accounts.id)").
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("finding accounts without ledger: %w", err)
	}

	for _, id := range ids {
		if err := r.EnsureLedger(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
