package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
)

// ErrNetworkUnavailable wraps any store failure during aggregation. No
// partial network is returned alongside it.
var ErrNetworkUnavailable = errors.New("network unavailable")

// Directory is the slice of the account store the network view reads.
type Directory interface {
	ReferralCode(ctx context.Context, id uuid.UUID) (string, error)
	ListInvitedBy(ctx context.Context, codes []string, roles []models.Role) ([]models.Account, error)
}

type Node struct {
	ID           uuid.UUID   `json:"id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Phone        string      `json:"phone_number"`
	Role         models.Role `json:"role"`
	ReferralCode string      `json:"referral_code"`
	Active       bool        `json:"active"`
	JoinedAt     time.Time   `json:"joined_at"`
	Connections  []Node      `json:"connections"`
}

type Network struct {
	Members     []Node `json:"members"`
	DirectCount int    `json:"direct_count"`
	TotalCount  int    `json:"total_count"`
}

// Resolver looks up an account's own referral code.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// ResolveCode returns ok=false without error when the account does not exist
// or has no code.
func (r *Resolver) ResolveCode(ctx context.Context, accountID uuid.UUID) (string, bool, error) {
	code, err := r.dir.ReferralCode(ctx, accountID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if code == "" {
		return "", false, nil
	}
	return code, true, nil
}

// Aggregator builds the two-level invite tree below a viewer.
type Aggregator struct {
	dir      Directory
	resolver *Resolver
}

func NewAggregator(dir Directory) *Aggregator {
	return &Aggregator{dir: dir, resolver: NewResolver(dir)}
}

func (a *Aggregator) BuildNetwork(ctx context.Context, viewerID uuid.UUID) (*Network, error) {
	code, ok, err := a.resolver.ResolveCode(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}
	if !ok {
		return &Network{Members: []Node{}}, nil
	}

	direct, err := a.dir.ListInvitedBy(ctx, []string{code}, models.NetworkRoles)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	seen := map[uuid.UUID]bool{viewerID: true}
	var childCodes []string
	for _, acc := range direct {
		seen[acc.ID] = true
		if acc.ReferralCode != "" {
			childCodes = append(childCodes, acc.ReferralCode)
		}
	}

	byParent := make(map[string][]Node)
	indirect := 0
	if len(childCodes) > 0 {
		second, err := a.dir.ListInvitedBy(ctx, childCodes, models.NetworkRoles)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
		}
		for i := range second {
			acc := &second[i]
			if seen[acc.ID] {
				continue
			}
			seen[acc.ID] = true
			byParent[acc.InvitedBy] = append(byParent[acc.InvitedBy], toNode(acc, nil))
			indirect++
		}
	}

	members := make([]Node, 0, len(direct))
	for i := range direct {
		acc := &direct[i]
		var children []Node
		if acc.ReferralCode != "" {
			children = byParent[acc.ReferralCode]
		}
		members = append(members, toNode(acc, children))
	}

	return &Network{
		Members:     members,
		DirectCount: len(direct),
		TotalCount:  len(direct) + indirect,
	}, nil
}

func toNode(acc *models.Account, children []Node) Node {
	if children == nil {
		children = []Node{}
	}
	return Node{
		ID:           acc.ID,
		FirstName:    acc.FirstName,
		LastName:     acc.LastName,
		Phone:        acc.Phone,
		Role:         acc.Role,
		ReferralCode: acc.ReferralCode,
		Active:       acc.Role.IsActive(),
		JoinedAt:     acc.CreatedAt,
		Connections:  children,
	}
}
