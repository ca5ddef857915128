package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentService records maintenance payments and allocates them to bills
type PaymentService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(st store.Store) *PaymentService {
	return &PaymentService{
		store: st,
		log:   logger.WithComponent("payment"),
		now:   time.Now,
	}
}

// RecordPaymentRequest contains parameters for recording a payment
type RecordPaymentRequest struct {
	FlatID               uuid.UUID
	BillIDs              []uuid.UUID // Allocation order; may be empty
	AmountPaid           decimal.Decimal
	PaymentMode          models.PaymentMode
	PaymentDate          time.Time
	TransactionReference string
	Remarks              string
	IsAnnualPayment      bool
	DiscountSchemeID     *uuid.UUID
}

// Allocation is the part of a payment applied to one bill
type Allocation struct {
	BillID  uuid.UUID         `json:"bill_id"`
	Applied decimal.Decimal   `json:"applied"`
	Status  models.BillStatus `json:"status"`
}

// PaymentResult contains the result of recording a payment
type PaymentResult struct {
	Payment           *models.Payment     `json:"payment"`
	Allocations       []Allocation        `json:"allocations"`
	AllocatedAmount   decimal.Decimal     `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal     `json:"unallocated_amount"` // Stays as credit on the flat ledger
	LedgerEntry       *models.LedgerEntry `json:"ledger_entry"`
}

func validPaymentMode(mode models.PaymentMode) bool {
	switch mode {
	case models.PaymentModeCash, models.PaymentModeCheque, models.PaymentModeBank,
		models.PaymentModeUPI, models.PaymentModeOnline:
		return true
	}
	return false
}

// Record stores a payment, allocates it across the listed bills in order,
// credits the flat ledger and mirrors it as society income. Managers only.
func (s *PaymentService) Record(ctx context.Context, actorID, societyID uuid.UUID, req RecordPaymentRequest) (*PaymentResult, error) {
	const op = "RecordPayment"

	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}

	if !req.AmountPaid.IsPositive() {
		return nil, validationError(op, "amount_paid must be positive")
	}
	if req.PaymentMode == "" {
		req.PaymentMode = models.PaymentModeBank
	}
	if !validPaymentMode(req.PaymentMode) {
		return nil, validationError(op, "payment_mode must be cash, cheque, bank, upi or online")
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = s.now()
	}

	// 1. Resolve the flat and its primary occupant
	flat, err := s.store.GetFlat(ctx, societyID, req.FlatID)
	if err != nil {
		return nil, lookupError(op, "flat", err)
	}
	occupant, err := primaryOccupant(ctx, s.store, flat.ID)
	if err != nil {
		return nil, err
	}

	if err := s.checkBills(ctx, op, flat, req.BillIDs); err != nil {
		return nil, err
	}

	// 2. Informational discount for annual payments
	discount := decimal.Zero
	var schemeID *uuid.UUID
	if req.IsAnnualPayment && req.DiscountSchemeID != nil {
		settings, err := settingsOrDefault(ctx, s.store, societyID)
		if err != nil {
			return nil, err
		}
		scheme, err := activeScheme(ctx, s.store, settings, req.DiscountSchemeID)
		if err != nil {
			return nil, err
		}
		total := models.CalculateBillAmount(flat.Area, settings.RatePerArea, models.YearlyPeriod(req.PaymentDate.Year()))
		if result := models.ApplyDiscount(total, scheme); result.HasDiscount() {
			discount = result.Discount
			schemeID = &scheme.ID
		}
	}

	now := s.now()
	amount := req.AmountPaid.Round(2)
	result := &PaymentResult{
		Allocations:       []Allocation{},
		AllocatedAmount:   decimal.Zero,
		UnallocatedAmount: amount,
	}

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		// 3. Receipt number from the society's sequence
		seq, err := tx.NextReceiptSequence(ctx, societyID, req.PaymentDate.Year())
		if err != nil {
			return err
		}

		builder := models.NewPaymentBuilder().
			ForFlat(societyID, flat.ID).
			WithAmount(amount).
			WithBills(req.BillIDs).
			WithReceiptNumber(models.FormatReceiptNumber(req.PaymentDate.Year(), seq)).
			WithMode(req.PaymentMode).
			WithDate(req.PaymentDate).
			WithReference(req.TransactionReference, req.Remarks).
			WithCreatedBy(actorID)
		if req.IsAnnualPayment {
			builder.AsAnnual(discount, schemeID)
		}
		payment := builder.Build()
		payment.CreatedAt = now

		// 4. Persist the payment
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		result.Payment = payment

		// 5. Allocate across bills in the order given
		remaining := amount
		for _, billID := range req.BillIDs {
			if !remaining.IsPositive() {
				break
			}
			bill, err := tx.GetBill(ctx, societyID, billID)
			if err != nil {
				return fmt.Errorf("failed to load bill %s: %w", billID, err)
			}
			applied := bill.ApplyPayment(remaining)
			if applied.IsZero() {
				continue
			}
			if err := tx.UpdateBill(ctx, bill); err != nil {
				return fmt.Errorf("failed to update bill %s: %w", billID, err)
			}
			remaining = remaining.Sub(applied)
			result.Allocations = append(result.Allocations, Allocation{BillID: bill.ID, Applied: applied, Status: bill.Status})
			result.AllocatedAmount = result.AllocatedAmount.Add(applied)
		}
		result.UnallocatedAmount = remaining

		// 6. One ledger credit for the full amount
		entry, err := appendLedgerEntry(ctx, tx, AppendRequest{
			SocietyID:     societyID,
			FlatID:        flat.ID,
			EntryType:     models.EntryTypePaymentReceived,
			ReferenceID:   payment.ID,
			ReferenceType: models.ReferencePayment,
			CreditAmount:  amount,
			Notes:         fmt.Sprintf("Payment received, receipt %s", payment.ReceiptNumber),
			CreatedBy:     actorID,
		}, now)
		if err != nil {
			return err
		}
		result.LedgerEntry = entry

		// 7. Mirror into the society's income
		paymentID := payment.ID
		err = tx.CreateTransaction(ctx, &models.Transaction{
			ID:             uuid.New(),
			SocietyID:      societyID,
			Type:           models.TransactionInward,
			Category:       models.CategoryMaintenancePayment,
			Amount:         amount,
			Description:    fmt.Sprintf("Maintenance payment from flat %s (%s)", flat.FlatNumber, payment.ReceiptNumber),
			PaymentMode:    payment.PaymentMode,
			Date:           payment.PaymentDate,
			ReferenceID:    &paymentID,
			ApprovalStatus: models.ApprovalApproved,
			CreatedBy:      actorID,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("failed to record income transaction: %w", err)
		}

		// 8. Notify the primary occupant
		return enqueueNotification(ctx, tx, societyID, occupant,
			"Payment Received",
			fmt.Sprintf("Payment of Rs.%s received for flat %s. Receipt: %s",
				amount.StringFixed(2), flat.FlatNumber, payment.ReceiptNumber),
			models.NotificationPayment, now)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError(op, "receipt number already issued, retry the payment")
		}
		return nil, err
	}

	event := s.log.Info()
	if result.UnallocatedAmount.IsPositive() {
		event = s.log.Warn()
	}
	event.
		Str("society_id", societyID.String()).
		Str("flat_number", flat.FlatNumber).
		Str("receipt_number", result.Payment.ReceiptNumber).
		Str("amount_paid", amount.StringFixed(2)).
		Str("unallocated", result.UnallocatedAmount.StringFixed(2)).
		Msg("Payment recorded")

	return result, nil
}

// checkBills verifies every listed bill exists, belongs to the flat and is listed once
func (s *PaymentService) checkBills(ctx context.Context, op string, flat *models.Flat, billIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(billIDs))
	for _, billID := range billIDs {
		if seen[billID] {
			return validationError(op, "bill %s is listed more than once", billID)
		}
		seen[billID] = true

		bill, err := s.store.GetBill(ctx, flat.SocietyID, billID)
		if errors.Is(err, store.ErrNotFound) {
			return validationError(op, "bill %s does not exist in this society", billID)
		}
		if err != nil {
			return fmt.Errorf("failed to load bill %s: %w", billID, err)
		}
		if bill.FlatID != flat.ID {
			return validationError(op, "bill %s does not belong to flat %s", billID, flat.FlatNumber)
		}
	}
	return nil
}

// ListPaymentsRequest filters a payment listing. Page starts at 1.
type ListPaymentsRequest struct {
	FlatID uuid.UUID
	Year   int
	Page   int
	Limit  int
}

// ListPayments returns payments newest first. Members only see payments of
// flats they are the primary occupant of.
func (s *PaymentService) ListPayments(ctx context.Context, actorID, societyID uuid.UUID, req ListPaymentsRequest) ([]*models.Payment, error) {
	membership, err := requireMember(ctx, s.store, actorID, societyID)
	if err != nil {
		return nil, err
	}

	filter := store.PaymentFilter{FlatID: req.FlatID, Year: req.Year, Limit: req.Limit}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if req.Page > 1 {
		filter.Offset = (req.Page - 1) * filter.Limit
	}

	if membership.Role == models.RoleManager {
		payments, err := s.store.ListPayments(ctx, societyID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list payments: %w", err)
		}
		return payments, nil
	}

	flats, err := occupiedFlats(ctx, s.store, societyID, actorID)
	if err != nil {
		return nil, err
	}
	if req.FlatID != uuid.Nil && !flats[req.FlatID] {
		return nil, forbiddenError("ListPayments", "insufficient permissions")
	}

	// Pagination applies after the occupancy filter
	all := filter
	all.Limit, all.Offset = 0, 0
	payments, err := s.store.ListPayments(ctx, societyID, all)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	own := []*models.Payment{}
	for _, payment := range payments {
		if flats[payment.FlatID] {
			own = append(own, payment)
		}
	}
	if filter.Offset >= len(own) {
		return []*models.Payment{}, nil
	}
	own = own[filter.Offset:]
	if len(own) > filter.Limit {
		own = own[:filter.Limit]
	}
	return own, nil
}

// occupiedFlats returns the flats the user is the primary occupant of
func occupiedFlats(ctx context.Context, st store.DirectoryStore, societyID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	flats, err := st.ListFlats(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}
	occupied := make(map[uuid.UUID]bool)
	for _, flat := range flats {
		occupant, err := primaryOccupant(ctx, st, flat.ID)
		if err != nil {
			return nil, err
		}
		if occupant == userID {
			occupied[flat.ID] = true
		}
	}
	return occupied, nil
}

// Receipt is the printable view of a payment
type Receipt struct {
	PaymentID            uuid.UUID          `json:"payment_id"`
	ReceiptNumber        string             `json:"receipt_number"`
	SocietyName          string             `json:"society_name"`
	SocietyAddress       string             `json:"society_address"`
	FlatNumber           string             `json:"flat_number"`
	MemberID             uuid.UUID          `json:"member_id"`
	AmountPaid           decimal.Decimal    `json:"amount_paid"`
	DiscountAmount       decimal.Decimal    `json:"discount_amount"`
	FinalPaidAmount      decimal.Decimal    `json:"final_paid_amount"`
	GrossAmount          decimal.Decimal    `json:"gross_amount"`
	PaymentMode          models.PaymentMode `json:"payment_mode"`
	PaymentDate          time.Time          `json:"payment_date"`
	TransactionReference string             `json:"transaction_reference"`
	IsAnnualPayment      bool               `json:"is_annual_payment"`
	BillPeriods          []string           `json:"bill_periods"`
}

// GetReceipt renders the receipt of a payment. Members only see their own flats' receipts.
func (s *PaymentService) GetReceipt(ctx context.Context, actorID, societyID, paymentID uuid.UUID) (*Receipt, error) {
	const op = "GetReceipt"

	membership, err := requireMember(ctx, s.store, actorID, societyID)
	if err != nil {
		return nil, err
	}

	payment, err := s.store.GetPayment(ctx, societyID, paymentID)
	if err != nil {
		return nil, lookupError(op, "payment", err)
	}
	society, err := s.store.GetSociety(ctx, societyID)
	if err != nil {
		return nil, lookupError(op, "society", err)
	}
	flat, err := s.store.GetFlat(ctx, societyID, payment.FlatID)
	if err != nil {
		return nil, lookupError(op, "flat", err)
	}
	occupant, err := primaryOccupant(ctx, s.store, flat.ID)
	if err != nil {
		return nil, err
	}
	if membership.Role != models.RoleManager && occupant != actorID {
		return nil, forbiddenError(op, "insufficient permissions")
	}

	receipt := &Receipt{
		PaymentID:            payment.ID,
		ReceiptNumber:        payment.ReceiptNumber,
		SocietyName:          society.Name,
		SocietyAddress:       society.Address,
		FlatNumber:           flat.FlatNumber,
		MemberID:             occupant,
		AmountPaid:           payment.AmountPaid,
		DiscountAmount:       payment.DiscountAmount,
		FinalPaidAmount:      payment.AmountPaid,
		GrossAmount:          payment.GrossAmount(),
		PaymentMode:          payment.PaymentMode,
		PaymentDate:          payment.PaymentDate,
		TransactionReference: payment.TransactionReference,
		IsAnnualPayment:      payment.IsAnnualPayment,
		BillPeriods:          []string{},
	}
	for _, billID := range payment.BillIDs {
		bill, err := s.store.GetBill(ctx, societyID, billID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load bill %s: %w", billID, err)
		}
		receipt.BillPeriods = append(receipt.BillPeriods, bill.Period().String())
	}
	return receipt, nil
}
