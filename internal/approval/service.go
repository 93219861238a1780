package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/metrics"
	"github.com/hugh/go-referral/internal/notify"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidRole     = errors.New("role must be member or leader")
	ErrInvalidFilter   = errors.New("filter must be pending or approved")
)

type Filter string

const (
	FilterPending  Filter = "pending"
	FilterApproved Filter = "approved"
)

// ParseFilter defaults to pending when s is empty.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterPending:
		return FilterPending, nil
	case FilterApproved:
		return FilterApproved, nil
	}
	return "", ErrInvalidFilter
}

// RolePublisher pushes role changes to listening sessions.
type RolePublisher interface {
	PublishRole(ctx context.Context, accountID uuid.UUID, role models.Role) error
}

type Listing struct {
	Accounts      []models.Account
	PendingCount  int
	ApprovedCount int
}

type Service struct {
	accounts  *database.AccountRepository
	notifier  notify.Dispatcher
	publisher RolePublisher
	logger    *slog.Logger
}

// NewService wires the workflow. notifier and publisher may be nil.
func NewService(accounts *database.AccountRepository, notifier notify.Dispatcher, publisher RolePublisher, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:  accounts,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// ListAccounts returns the accounts in one tab, newest first, with the size
// of both tabs under the same query.
func (s *Service) ListAccounts(ctx context.Context, filter Filter, query string) (*Listing, error) {
	all, err := s.accounts.ListAccounts(ctx, nil)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Accounts: []models.Account{}}
	for _, a := range all {
		if !Matches(&a, query) {
			continue
		}
		approved := a.Role.IsApproved()
		if approved {
			listing.ApprovedCount++
		} else {
			listing.PendingCount++
		}
		if approved == (filter == FilterApproved) {
			listing.Accounts = append(listing.Accounts, a)
		}
	}
	return listing, nil
}

// Matches is a case-insensitive substring match against "first last" and
// against the stored phone. An empty query matches everything.
func Matches(a *models.Account, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	name := strings.ToLower(a.FirstName + " " + a.LastName)
	return strings.Contains(name, q) || strings.Contains(strings.ToLower(a.Phone), q)
}

// Approve assigns role to one account. The ledger row, role push and webhook
// are best effort and never undo the role change.
func (s *Service) Approve(ctx context.Context, accountID uuid.UUID, role models.Role) (*models.Account, error) {
	if !role.IsAssignable() {
		return nil, ErrInvalidRole
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("loading account: %w", err)
	}

	if err := s.accounts.UpdateRole(ctx, accountID, role); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	metrics.Approvals.WithLabelValues(string(role)).Inc()

	// The committed role is applied to the loaded record; nothing is re-read.
	account.Role = role

	s.logger.Info("account approved",
		"account_id", account.ID,
		"role", role,
	)

	if err := s.accounts.EnsureLedger(ctx, account.ID); err != nil {
		s.logger.Warn("ledger initialization failed", "account_id", account.ID, "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRole(ctx, account.ID, role); err != nil {
			s.logger.Warn("role push failed", "account_id", account.ID, "error", err)
		}
	}

	s.notify(ctx, account)
	return account, nil
}

func (s *Service) notify(ctx context.Context, account *models.Account) {
	var inviter *models.Account
	if account.InvitedBy != "" {
		found, err := s.accounts.FindByReferralCode(ctx, account.InvitedBy)
		switch {
		case err == nil:
			inviter = found
		case !errors.Is(err, database.ErrNotFound):
			s.logger.Warn("inviter lookup failed", "invited_by", account.InvitedBy, "error", err)
		}
	}

	if err := s.notifier.Dispatch(ctx, notify.NewPayload(account, inviter)); err != nil {
		s.logger.Warn("approval notification failed", "account_id", account.ID, "error", err)
	}
}
