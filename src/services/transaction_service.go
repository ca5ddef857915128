package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionService records a society's general income and expenses.
// Expenses at or above the society's approval threshold wait for a manager's review
// and are left out of every report until approved.
type TransactionService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewTransactionService creates a new transaction service
func NewTransactionService(st store.Store) *TransactionService {
	return &TransactionService{
		store: st,
		log:   logger.WithComponent("transactions"),
		now:   time.Now,
	}
}

// Categories lists the suggested categories per transaction type
func (s *TransactionService) Categories() map[models.TransactionType][]string {
	return map[models.TransactionType][]string{
		models.TransactionInward:  models.InwardCategories,
		models.TransactionOutward: models.OutwardCategories,
	}
}

// CreateTransactionRequest contains parameters for recording income or an expense
type CreateTransactionRequest struct {
	Type        models.TransactionType
	Category    string
	Amount      decimal.Decimal
	Description string
	VendorName  string
	PaymentMode models.PaymentMode
	Date        time.Time // zero means today
}

// Create records a transaction. Managers only.
func (s *TransactionService) Create(ctx context.Context, actorID, societyID uuid.UUID, req CreateTransactionRequest) (*models.Transaction, error) {
	const op = "CreateTransaction"

	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if !req.Type.IsValid() {
		return nil, validationError(op, "type must be inward or outward")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, validationError(op, "category is required")
	}
	if !req.Amount.IsPositive() {
		return nil, validationError(op, "amount must be positive")
	}
	if req.PaymentMode == "" {
		req.PaymentMode = models.PaymentModeBank
	}
	if !validPaymentMode(req.PaymentMode) {
		return nil, validationError(op, "unknown payment mode %q", req.PaymentMode)
	}

	society, err := s.store.GetSociety(ctx, societyID)
	if err != nil {
		return nil, lookupError(op, "society", err)
	}

	now := s.now()
	date := req.Date
	if date.IsZero() {
		date = now
	}

	txn := &models.Transaction{
		ID:             uuid.New(),
		SocietyID:      societyID,
		Type:           req.Type,
		Category:       category,
		Amount:         req.Amount.Round(2),
		Description:    req.Description,
		VendorName:     strings.TrimSpace(req.VendorName),
		PaymentMode:    req.PaymentMode,
		Date:           date,
		ApprovalStatus: models.ApprovalApproved,
		CreatedBy:      actorID,
		CreatedAt:      now,
	}
	if society.RequiresApproval(txn.Type, txn.Amount) {
		txn.ApprovalStatus = models.ApprovalPending
	}

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		if !txn.IsPending() {
			return nil
		}
		return s.notifyReviewers(ctx, tx, txn, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("transaction_id", txn.ID.String()).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("approval_status", string(txn.ApprovalStatus)).
		Msg("Transaction recorded")

	return txn, nil
}

// notifyReviewers tells every other active manager that an expense needs review
func (s *TransactionService) notifyReviewers(ctx context.Context, tx store.Store, txn *models.Transaction, at time.Time) error {
	memberships, err := tx.ListMemberships(ctx, txn.SocietyID)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}
	for _, m := range memberships {
		if !m.IsActive() || m.Role != models.RoleManager || m.UserID == txn.CreatedBy {
			continue
		}
		err := enqueueNotification(ctx, tx, txn.SocietyID, m.UserID,
			"Expense Approval Required",
			fmt.Sprintf("New expense of Rs.%s for %s needs approval", txn.Amount.StringFixed(2), txn.Category),
			models.NotificationApproval, at)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListTransactionsRequest narrows a transaction listing. Page starts at 1;
// Limit defaults to 20 and is capped at 100.
type ListTransactionsRequest struct {
	Type     models.TransactionType
	Category string
	Status   models.ApprovalStatus
	Year     int
	Month    int
	Page     int
	Limit    int
}

func (r ListTransactionsRequest) filter(op string) (store.TransactionFilter, error) {
	if r.Type != "" && !r.Type.IsValid() {
		return store.TransactionFilter{}, validationError(op, "type must be inward or outward")
	}
	if r.Status != "" && !r.Status.IsValid() {
		return store.TransactionFilter{}, validationError(op, "status must be approved, pending or rejected")
	}
	if r.Month < 0 || r.Month > 12 {
		return store.TransactionFilter{}, validationError(op, "month must be between 1 and 12")
	}
	return store.TransactionFilter{
		Type:     r.Type,
		Category: strings.TrimSpace(r.Category),
		Status:   r.Status,
		Year:     r.Year,
		Month:    r.Month,
	}, nil
}

// List returns the society's transactions, newest first. Any member may read.
func (s *TransactionService) List(ctx context.Context, actorID, societyID uuid.UUID, req ListTransactionsRequest) ([]*models.Transaction, error) {
	const op = "ListTransactions"

	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	filter, err := req.filter(op)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	txns, err := s.store.ListTransactions(ctx, societyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	return txns, nil
}

// Count returns how many transactions match; paging fields are ignored
func (s *TransactionService) Count(ctx context.Context, actorID, societyID uuid.UUID, req ListTransactionsRequest) (int, error) {
	const op = "CountTransactions"

	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return 0, err
	}
	filter, err := req.filter(op)
	if err != nil {
		return 0, err
	}
	count, err := s.store.CountTransactions(ctx, societyID, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// Get returns one transaction of the society
func (s *TransactionService) Get(ctx context.Context, actorID, societyID, txnID uuid.UUID) (*models.Transaction, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	txn, err := s.store.GetTransaction(ctx, societyID, txnID)
	if err != nil {
		return nil, lookupError("GetTransaction", "transaction", err)
	}
	return txn, nil
}

// Approve counts a pending expense towards the society's books. Managers only.
func (s *TransactionService) Approve(ctx context.Context, actorID, societyID, txnID uuid.UUID, comments string) (*models.Transaction, error) {
	return s.review(ctx, "ApproveTransaction", actorID, societyID, txnID, true, comments)
}

// Reject closes a pending expense without counting it. Managers only.
func (s *TransactionService) Reject(ctx context.Context, actorID, societyID, txnID uuid.UUID, comments string) (*models.Transaction, error) {
	return s.review(ctx, "RejectTransaction", actorID, societyID, txnID, false, comments)
}

func (s *TransactionService) review(ctx context.Context, op string, actorID, societyID, txnID uuid.UUID, approved bool, comments string) (*models.Transaction, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}

	var reviewed *models.Transaction
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		txn, err := tx.GetTransaction(ctx, societyID, txnID)
		if err != nil {
			return lookupError(op, "transaction", err)
		}
		if !txn.IsPending() {
			return conflictError(op, "transaction is already %s", txn.ApprovalStatus)
		}

		now := s.now()
		txn.Review(approved, actorID, strings.TrimSpace(comments), now)
		if err := tx.UpdateTransactionReview(ctx, txn); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		title, message := "Expense Approved", "Your expense request has been approved"
		if !approved {
			reason := txn.ReviewComments
			if reason == "" {
				reason = "No reason given"
			}
			title, message = "Expense Rejected", "Your expense request was rejected. Reason: "+reason
		}
		if txn.CreatedBy != actorID {
			err := enqueueNotification(ctx, tx, societyID, txn.CreatedBy, title,
				fmt.Sprintf("%s (%s, Rs.%s)", message, txn.Category, txn.Amount.StringFixed(2)),
				models.NotificationApproval, now)
			if err != nil {
				return err
			}
		}
		reviewed = txn
		return nil
	})
	if err != nil {
		var svcErr *Error
		if !errors.As(err, &svcErr) {
			s.log.Error().Err(err).Str("transaction_id", txnID.String()).Msg("Transaction review failed")
		}
		return nil, err
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("transaction_id", txnID.String()).
		Str("approval_status", string(reviewed.ApprovalStatus)).
		Msg("Transaction reviewed")

	return reviewed, nil
}
