package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money in the society's general ledger
type TransactionType string

const (
	TransactionInward  TransactionType = "inward"
	TransactionOutward TransactionType = "outward"
)

// ApprovalStatus represents the approval state of a transaction
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

// IsValid checks if the transaction type is known
func (t TransactionType) IsValid() bool {
	return t == TransactionInward || t == TransactionOutward
}

// IsValid checks if the approval status is known
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalApproved, ApprovalPending, ApprovalRejected:
		return true
	}
	return false
}

// CategoryMaintenancePayment is the inward category used for mirrored maintenance payments
const CategoryMaintenancePayment = "Maintenance Payment"

// Suggested categories. Any non-empty category is accepted.
var (
	InwardCategories = []string{
		CategoryMaintenancePayment, "Donation", "Interest Income",
		"Parking Charges", "Penalty/Fine", "Other Income",
	}
	OutwardCategories = []string{
		"Security Salary", "Lift AMC", "Repairs & Maintenance",
		"Electricity Bill", "Water Bill", "Vendor Payment",
		"Garden Maintenance", "Insurance", "Legal Fees",
		"Cleaning", "Other Expense",
	}
)

// Transaction is an income or expense record of a society
type Transaction struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SocietyID      uuid.UUID       `json:"society_id" db:"society_id"`
	Type           TransactionType `json:"type" db:"type"`
	Category       string          `json:"category" db:"category"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Description    string          `json:"description" db:"description"`
	VendorName     string          `json:"vendor_name" db:"vendor_name"`
	PaymentMode    PaymentMode     `json:"payment_mode" db:"payment_mode"`
	Date           time.Time       `json:"date" db:"date"`
	ReferenceID    *uuid.UUID      `json:"reference_id,omitempty" db:"reference_id"` // Source payment for mirrored records
	ApprovalStatus ApprovalStatus  `json:"approval_status" db:"approval_status"`
	ReviewedBy     *uuid.UUID      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewComments string          `json:"review_comments" db:"review_comments"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedBy      uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// IsApproved returns true if the transaction counts towards reports
func (t *Transaction) IsApproved() bool {
	return t.ApprovalStatus == ApprovalApproved
}

// IsPending returns true if the transaction is waiting for a review
func (t *Transaction) IsPending() bool {
	return t.ApprovalStatus == ApprovalPending
}

// Review records the outcome of an approval review
func (t *Transaction) Review(approved bool, reviewer uuid.UUID, comments string, at time.Time) {
	t.ApprovalStatus = ApprovalRejected
	if approved {
		t.ApprovalStatus = ApprovalApproved
	}
	t.ReviewedBy = &reviewer
	t.ReviewComments = comments
	t.ReviewedAt = &at
}

// NotificationType categorises a notification
type NotificationType string

const (
	NotificationBilling  NotificationType = "billing"
	NotificationPayment  NotificationType = "payment"
	NotificationOverdue  NotificationType = "overdue"
	NotificationApproval NotificationType = "approval"
)

// Notification is a queued message for a society member.
// Delivery is handled outside this module.
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	SocietyID uuid.UUID        `json:"society_id" db:"society_id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
