package dto

import (
	"strings"

	"github.com/hugh/go-referral/internal/database/models"
)

type ApproveRequest struct {
	Role string `json:"role"`
}

func (r ApproveRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !models.Role(strings.ToLower(r.Role)).IsAssignable() {
		errors["role"] = "Role must be member or leader"
	}

	return errors
}

type AccountListResponse struct {
	Filter        string       `json:"filter"`
	Accounts      []AccountDTO `json:"accounts"`
	PendingCount  int          `json:"pending_count"`
	ApprovedCount int          `json:"approved_count"`
}

type UserRowDTO struct {
	AccountDTO
	Points       int64   `json:"points"`
	Withdrawable float64 `json:"withdrawable"`
	Invested     float64 `json:"invested"`
	Goal1Count   int     `json:"goal1_count"`
	Goal2Count   int     `json:"goal2_count"`
	NetworkCount int64   `json:"network_count"`
}

type UsersResponse struct {
	Users             []UserRowDTO `json:"users"`
	TotalUsers        int          `json:"total_users"`
	TotalPoints       int64        `json:"total_points"`
	TotalWithdrawable float64      `json:"total_withdrawable"`
}
