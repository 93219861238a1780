package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger holds balances and goal counters for one account. Balances and
// counters are written by external processes; this service only creates the
// row on approval and records goal claims.
type Ledger struct {
	AccountID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"account_id"`
	Points       int64     `gorm:"not null;default:0" json:"points"`
	Withdrawable float64   `gorm:"type:numeric(14,2);not null;default:0" json:"withdrawable"`
	Invested     float64   `gorm:"type:numeric(14,2);not null;default:0" json:"invested"`

	// Downstream registrations credited toward each goal level
	Goal1Count int `gorm:"not null;default:0" json:"goal1_count"`
	Goal2Count int `gorm:"not null;default:0" json:"goal2_count"`

	Goal1ClaimedAt *time.Time `json:"goal1_claimed_at,omitempty"`
	Goal2ClaimedAt *time.Time `json:"goal2_claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ledger) TableName() string {
	return "ledgers"
}
