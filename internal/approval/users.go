package approval

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database/models"
)

// UserRow is an approved account joined with its ledger and direct invitee
// count.
type UserRow struct {
	Account      models.Account
	Ledger       models.Ledger
	NetworkCount int64
}

type UserReport struct {
	Users             []UserRow
	TotalUsers        int
	TotalPoints       int64
	TotalWithdrawable float64
}

// Users lists approved accounts for the admin user table. query matches
// name, login, phone or referral code, case-insensitively.
func (s *Service) Users(ctx context.Context, query string) (*UserReport, error) {
	accounts, err := s.accounts.ListAccounts(ctx, models.ApprovedRoles)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var (
		matched []models.Account
		ids     []uuid.UUID
		codes   []string
	)
	for _, a := range accounts {
		if q != "" && !matchesUser(&a, q) {
			continue
		}
		matched = append(matched, a)
		ids = append(ids, a.ID)
		if a.ReferralCode != "" {
			codes = append(codes, a.ReferralCode)
		}
	}

	ledgers, err := s.accounts.ListLedgers(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.accounts.CountInvitedByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	report := &UserReport{Users: make([]UserRow, 0, len(matched))}
	for _, a := range matched {
		ledger, ok := ledgers[a.ID]
		if !ok {
			ledger = models.Ledger{AccountID: a.ID}
		}
		report.Users = append(report.Users, UserRow{
			Account:      a,
			Ledger:       ledger,
			NetworkCount: counts[a.ReferralCode],
		})
		report.TotalPoints += ledger.Points
		report.TotalWithdrawable += ledger.Withdrawable
	}
	report.TotalUsers = len(report.Users)
	return report, nil
}

func matchesUser(a *models.Account, q string) bool {
	for _, field := range []string{a.FirstName, a.LastName, a.Login, a.Phone, a.ReferralCode} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
