package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a record does not exist in the given society
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a uniqueness constraint would be violated,
	// e.g. a second bill for the same flat and period.
	ErrDuplicate = errors.New("duplicate record")
)

// BillFilter narrows a bill listing. Zero values are ignored.
type BillFilter struct {
	PeriodType models.BillPeriodType
	Month      int
	Year       int
	Statuses   []models.BillStatus
	FlatID     uuid.UUID
	MemberID   uuid.UUID
	Limit      int
	Offset     int
}

// PaymentFilter narrows a payment listing. Zero values are ignored.
type PaymentFilter struct {
	FlatID uuid.UUID
	Year   int
	Limit  int
	Offset int
}

// TransactionFilter narrows a transaction listing. Zero values are ignored.
type TransactionFilter struct {
	Type         models.TransactionType
	Category     string
	Status       models.ApprovalStatus
	Year         int
	Month        int
	ApprovedOnly bool
	Limit        int
	Offset       int
}

// LedgerBuildFunc builds the next ledger entry of a flat from the flat's
// current balance and the sequence number the entry must carry.
type LedgerBuildFunc func(previousBalance decimal.Decimal, sequence int64) (*models.LedgerEntry, error)

// DirectoryStore holds societies, memberships, flats and their members
type DirectoryStore interface {
	CreateSociety(ctx context.Context, society *models.Society) error
	GetSociety(ctx context.Context, societyID uuid.UUID) (*models.Society, error)
	UpdateSociety(ctx context.Context, society *models.Society) error
	ListSocietyIDs(ctx context.Context) ([]uuid.UUID, error)

	CreateMembership(ctx context.Context, membership *models.Membership) error
	GetMembership(ctx context.Context, societyID, userID uuid.UUID) (*models.Membership, error)
	GetMembershipByID(ctx context.Context, societyID, membershipID uuid.UUID) (*models.Membership, error)
	UpdateMembership(ctx context.Context, membership *models.Membership) error
	// ListMemberships returns the society's memberships oldest first
	ListMemberships(ctx context.Context, societyID uuid.UUID) ([]*models.Membership, error)
	// ListUserMemberships returns every membership of a user across societies
	ListUserMemberships(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)

	CreateFlat(ctx context.Context, flat *models.Flat) error
	GetFlat(ctx context.Context, societyID, flatID uuid.UUID) (*models.Flat, error)
	// ListFlats returns the society's flats ordered by flat number
	ListFlats(ctx context.Context, societyID uuid.UUID) ([]*models.Flat, error)

	// CreateFlatMember adds a member. A primary member replaces the previous primary.
	CreateFlatMember(ctx context.Context, member *models.FlatMember) error
	GetPrimaryMember(ctx context.Context, flatID uuid.UUID) (*models.FlatMember, error)
	// ListFlatMembers returns the flat's members, primary first
	ListFlatMembers(ctx context.Context, societyID, flatID uuid.UUID) ([]*models.FlatMember, error)
	DeleteFlatMember(ctx context.Context, societyID, flatID, flatMemberID uuid.UUID) error
}

// SettingsStore holds maintenance settings and discount schemes
type SettingsStore interface {
	GetSettings(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error)
	// CreateSettings returns ErrDuplicate if the society already has settings.
	// A duplicate leaves an enclosing transaction usable.
	CreateSettings(ctx context.Context, settings *models.MaintenanceSettings) error
	UpdateSettings(ctx context.Context, settings *models.MaintenanceSettings) error

	CreateDiscountScheme(ctx context.Context, scheme *models.DiscountScheme) error
	GetDiscountScheme(ctx context.Context, societyID, schemeID uuid.UUID) (*models.DiscountScheme, error)
	ListDiscountSchemes(ctx context.Context, societyID uuid.UUID) ([]*models.DiscountScheme, error)
	UpdateDiscountScheme(ctx context.Context, scheme *models.DiscountScheme) error
	DeleteDiscountScheme(ctx context.Context, societyID, schemeID uuid.UUID) error
}

// BillStore holds maintenance bills
type BillStore interface {
	// CreateBill returns ErrDuplicate if the flat already has a bill for the period
	CreateBill(ctx context.Context, bill *models.MaintenanceBill) error
	// GetBill called on a WithinTx view locks the bill until the transaction
	// ends, so a read-modify-UpdateBill inside one transaction never loses a
	// concurrent write.
	GetBill(ctx context.Context, societyID, billID uuid.UUID) (*models.MaintenanceBill, error)
	UpdateBill(ctx context.Context, bill *models.MaintenanceBill) error
	// ListBills returns bills newest period first, then by flat number
	ListBills(ctx context.Context, societyID uuid.UUID, filter BillFilter) ([]*models.MaintenanceBill, error)
	CountBillsForPeriod(ctx context.Context, societyID uuid.UUID, period models.BillPeriod) (int, error)
}

// PaymentStore holds payments and receipt sequences
type PaymentStore interface {
	// NextReceiptSequence atomically increments and returns the society's
	// receipt counter for the year, starting at 1.
	NextReceiptSequence(ctx context.Context, societyID uuid.UUID, year int) (int64, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, societyID, paymentID uuid.UUID) (*models.Payment, error)
	// ListPayments returns payments newest first
	ListPayments(ctx context.Context, societyID uuid.UUID, filter PaymentFilter) ([]*models.Payment, error)
}

// LedgerStore holds the per-flat running ledgers
type LedgerStore interface {
	// AppendLedgerEntry serializes appends per flat: the latest balance is
	// read, build is called, and the entry it returns is inserted before the
	// next append for the same flat may read.
	AppendLedgerEntry(ctx context.Context, societyID, flatID uuid.UUID, build LedgerBuildFunc) (*models.LedgerEntry, error)
	// ListLedgerEntries returns a flat's entries in ascending sequence order
	ListLedgerEntries(ctx context.Context, societyID, flatID uuid.UUID) ([]*models.LedgerEntry, error)
}

// TransactionStore holds the society's general income and expense records
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, societyID, txnID uuid.UUID) (*models.Transaction, error)
	// UpdateTransactionReview writes the approval status and review fields
	UpdateTransactionReview(ctx context.Context, txn *models.Transaction) error
	// ListTransactions returns transactions newest date first
	ListTransactions(ctx context.Context, societyID uuid.UUID, filter TransactionFilter) ([]*models.Transaction, error)
	// CountTransactions ignores Limit and Offset
	CountTransactions(ctx context.Context, societyID uuid.UUID, filter TransactionFilter) (int, error)
}

// NotificationStore holds queued notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	// ListNotifications returns the user's notifications newest first
	ListNotifications(ctx context.Context, societyID, userID uuid.UUID) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, societyID, userID, notificationID uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, societyID, userID uuid.UUID) (int, error)
}

// Store is the full persistence surface used by the services
type Store interface {
	DirectoryStore
	SettingsStore
	BillStore
	PaymentStore
	LedgerStore
	TransactionStore
	NotificationStore

	// WithinTx runs fn against a transactional view of the store. Writes made
	// through the view are committed when fn returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
