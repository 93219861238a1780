package models

import "strings"

type Role string

const (
	RolePending Role = "pending"
	RoleMember  Role = "member"
	RoleLeader  Role = "leader"
	RoleAdmin   Role = "admin"
)

// ApprovedRoles are the roles an administrator can have assigned; any other
// stored value, including empty, counts as pending.
var ApprovedRoles = []Role{RoleMember, RoleLeader, RoleAdmin}

// NetworkRoles are the roles that appear in a referral tree.
var NetworkRoles = []Role{RoleMember, RoleLeader}

func (r Role) IsApproved() bool {
	return r == RoleMember || r == RoleLeader || r == RoleAdmin
}

// IsActive reports whether the account counts as an active network member.
func (r Role) IsActive() bool {
	return r == RoleMember || r == RoleLeader
}

// IsAssignable reports whether the approval workflow may assign r.
func (r Role) IsAssignable() bool {
	return r == RoleMember || r == RoleLeader
}

// Home is the landing path for r.
func (r Role) Home() string {
	switch r {
	case RoleMember:
		return "/dashboard/user"
	case RoleLeader:
		return "/dashboard/leader"
	case RoleAdmin:
		return "/admin/approvals"
	default:
		return "/pending-approval"
	}
}

type Account struct {
	Base
	Login        string `gorm:"uniqueIndex;size:64;not null" json:"login"`
	FirstName    string `gorm:"size:100;not null" json:"first_name"`
	LastName     string `gorm:"size:100;not null" json:"last_name"`
	Phone        string `gorm:"uniqueIndex;size:32;not null" json:"phone_number"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"size:16;index;not null;default:'pending'" json:"role"`

	// ReferralCode is this account's own code, generated at creation.
	ReferralCode string `gorm:"uniqueIndex;size:16;not null" json:"referral_code"`
	// InvitedBy holds the inviter's referral code. Set once at creation;
	// empty for seed accounts.
	InvitedBy string `gorm:"index;size:16" json:"invited_by,omitempty"`

	// Relationships
	Ledger *Ledger `gorm:"foreignKey:AccountID" json:"ledger,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
