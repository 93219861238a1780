package goals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
)

var (
	ErrUnknownLevel = errors.New("unknown goal level")
	ErrNotComplete  = errors.New("goal is not complete")
)

const (
	DefaultLevel1Target = 10
	DefaultLevel2Target = 100
	DefaultRate         = 200
)

type Config struct {
	Level1Target int
	Level2Target int
	RatePerCount int64
}

func (c Config) withDefaults() Config {
	if c.Level1Target <= 0 {
		c.Level1Target = DefaultLevel1Target
	}
	if c.Level2Target <= 0 {
		c.Level2Target = DefaultLevel2Target
	}
	if c.RatePerCount <= 0 {
		c.RatePerCount = DefaultRate
	}
	return c
}

// LedgerStore is the part of the account store goals read and write.
type LedgerStore interface {
	GetLedger(ctx context.Context, accountID uuid.UUID) (*models.Ledger, error)
	ClaimGoal(ctx context.Context, accountID uuid.UUID, level int, at time.Time) error
}

type Goal struct {
	Level     int        `json:"level"`
	Name      string     `json:"name"`
	Progress  Result     `json:"progress"`
	Count     int        `json:"count"`
	Earnings  int64      `json:"earnings"`
	Complete  bool       `json:"complete"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

type Service struct {
	store LedgerStore
	cfg   Config
	now   func() time.Time
}

func NewService(store LedgerStore, cfg Config) *Service {
	return &Service{store: store, cfg: cfg.withDefaults(), now: time.Now}
}

func (s *Service) Config() Config {
	return s.cfg
}

// Evaluate derives both goal levels from a ledger row.
func (s *Service) Evaluate(ledger *models.Ledger, role models.Role) []Goal {
	return []Goal{
		s.goal(1, role, ledger.Goal1Count, ledger.Goal1ClaimedAt),
		s.goal(2, role, ledger.Goal2Count, ledger.Goal2ClaimedAt),
	}
}

func (s *Service) Summary(ctx context.Context, accountID uuid.UUID, role models.Role) ([]Goal, error) {
	ledger, err := s.store.GetLedger(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ledger, role), nil
}

// Claim records the claim of a complete goal. Claiming twice returns the
// original claim.
func (s *Service) Claim(ctx context.Context, accountID uuid.UUID, role models.Role, level int) (*Goal, error) {
	if level != 1 && level != 2 {
		return nil, ErrUnknownLevel
	}

	ledger, err := s.store.GetLedger(ctx, accountID)
	if err != nil {
		return nil, err
	}
	goal := s.Evaluate(ledger, role)[level-1]
	if goal.Claimed {
		return &goal, nil
	}
	if !goal.Complete {
		return nil, ErrNotComplete
	}

	if err := s.store.ClaimGoal(ctx, accountID, level, s.now()); err != nil && !errors.Is(err, database.ErrAlreadyClaimed) {
		return nil, err
	}

	ledger, err = s.store.GetLedger(ctx, accountID)
	if err != nil {
		return nil, err
	}
	goal = s.Evaluate(ledger, role)[level-1]
	return &goal, nil
}

func (s *Service) goal(level int, role models.Role, count int, claimedAt *time.Time) Goal {
	target := s.cfg.Level1Target
	if level == 2 {
		target = s.cfg.Level2Target
	}
	progress := Progress(count, target)
	return Goal{
		Level:     level,
		Name:      Name(level, role),
		Progress:  progress,
		Count:     max(count, 0),
		Earnings:  Earnings(count, s.cfg.RatePerCount),
		Complete:  progress.IsComplete(),
		Claimed:   claimedAt != nil,
		ClaimedAt: claimedAt,
	}
}

// Name is the display name of a goal level for role.
func Name(level int, role models.Role) string {
	switch {
	case level == 1:
		return "Starter Goal"
	case role == models.RoleLeader:
		return "Team Growth Goal"
	default:
		return "Growth Goal"
	}
}
