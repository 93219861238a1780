package dto

import (
	"github.com/hugh/go-referral/internal/goals"
	"github.com/hugh/go-referral/internal/referral"
)

type InviteResponse struct {
	Ref          string `json:"ref"`
	Link         string `json:"link"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type InviteResolveResponse struct {
	InviterName  string `json:"inviter_name"`
	ReferralCode string `json:"referral_code"`
}

type LedgerDTO struct {
	Points       int64   `json:"points"`
	Withdrawable float64 `json:"withdrawable"`
	Invested     float64 `json:"invested"`
}

type NetworkSummary struct {
	DirectCount int `json:"direct_count"`
	TotalCount  int `json:"total_count"`
}

type DashboardResponse struct {
	Session SessionDTO      `json:"session"`
	Invite  InviteResponse  `json:"invite"`
	Ledger  LedgerDTO       `json:"ledger"`
	Goals   []goals.Goal    `json:"goals"`
	Network *NetworkSummary `json:"network,omitempty"`
}

type NetworkResponse struct {
	Members     []referral.Node `json:"members"`
	DirectCount int             `json:"direct_count"`
	TotalCount  int             `json:"total_count"`
}
