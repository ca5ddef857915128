package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Society represents a residential society (the tenant of the system)
type Society struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Address           string          `json:"address" db:"address"`
	TotalFlats        int             `json:"total_flats" db:"total_flats"`
	Description       string          `json:"description" db:"description"`
	ApprovalThreshold decimal.Decimal `json:"approval_threshold" db:"approval_threshold"` // Outward transactions at or above this need approval
	CreatedBy         uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultApprovalThreshold applies when a society is created without a threshold
var DefaultApprovalThreshold = decimal.NewFromInt(50000)

// RequiresApproval checks if a new transaction must wait for a manager's review.
// Only expenses at or above the threshold do.
func (s *Society) RequiresApproval(kind TransactionType, amount decimal.Decimal) bool {
	return kind == TransactionOutward && amount.GreaterThanOrEqual(s.ApprovalThreshold)
}

// Role represents a member's role inside a society
type Role string

const (
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// MembershipStatus represents valid membership statuses
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusInactive MembershipStatus = "inactive"
)

// Membership links a user to a society with a role
type Membership struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	SocietyID uuid.UUID        `json:"society_id" db:"society_id"`
	Role      Role             `json:"role" db:"role"`
	Status    MembershipStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleManager || r == RoleMember
}

// IsValid checks if the membership status is known
func (s MembershipStatus) IsValid() bool {
	return s == MembershipStatusActive || s == MembershipStatusInactive
}

// IsActive returns true if the membership grants access to the society
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// HasRole returns true if the membership holds one of the given roles.
// An empty role list matches any role.
func (m *Membership) HasRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if m.Role == r {
			return true
		}
	}
	return false
}

// Flat represents a billable residential unit within a society
type Flat struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	SocietyID  uuid.UUID       `json:"society_id" db:"society_id"`
	FlatNumber string          `json:"flat_number" db:"flat_number"`
	Floor      int             `json:"floor" db:"floor"`
	Wing       string          `json:"wing" db:"wing"`
	Area       decimal.Decimal `json:"area_sqft" db:"area_sqft"`
	FlatType   string          `json:"flat_type" db:"flat_type"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// IsBillable returns true if the flat has a positive area
func (f *Flat) IsBillable() bool {
	return f.Area.IsPositive()
}

// FlatMember links a user to a flat. At most one member per flat is primary.
type FlatMember struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FlatID       uuid.UUID `json:"flat_id" db:"flat_id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	SocietyID    uuid.UUID `json:"society_id" db:"society_id"`
	RelationType string    `json:"relation_type" db:"relation_type"` // Owner, Tenant, Family
	IsPrimary    bool      `json:"is_primary" db:"is_primary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
