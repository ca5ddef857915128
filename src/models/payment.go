package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMode represents how a maintenance payment was made
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeCheque PaymentMode = "cheque"
	PaymentModeBank   PaymentMode = "bank"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeOnline PaymentMode = "online"
)

// Payment is an immutable record of money received for a flat
type Payment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SocietyID uuid.UUID `json:"society_id" db:"society_id"`
	FlatID    uuid.UUID `json:"flat_id" db:"flat_id"`

	// Bills settled by this payment, in the order they were allocated.
	// Empty for annual or bulk payments not tied to bills.
	BillIDs []uuid.UUID `json:"bill_ids" db:"bill_ids"`

	// Amount details
	AmountPaid       decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	DiscountAmount   decimal.Decimal `json:"discount_amount" db:"discount_amount"` // Annual payments only, informational
	DiscountSchemeID *uuid.UUID      `json:"discount_scheme_id,omitempty" db:"discount_scheme_id"`
	IsAnnualPayment  bool            `json:"is_annual_payment" db:"is_annual_payment"`

	// Payment details
	ReceiptNumber        string      `json:"receipt_number" db:"receipt_number"`
	PaymentMode          PaymentMode `json:"payment_mode" db:"payment_mode"`
	PaymentDate          time.Time   `json:"payment_date" db:"payment_date"`
	TransactionReference string      `json:"transaction_reference" db:"transaction_reference"`
	Remarks              string      `json:"remarks" db:"remarks"`

	// Audit
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GrossAmount returns the amount paid plus any annual discount granted
func (p *Payment) GrossAmount() decimal.Decimal {
	return p.AmountPaid.Add(p.DiscountAmount)
}

// FormatReceiptNumber renders a society-scoped receipt number, e.g. RCP-2026-00042
func FormatReceiptNumber(year int, sequence int64) string {
	return fmt.Sprintf("RCP-%d-%05d", year, sequence)
}

// PaymentBuilder helps construct payment records
type PaymentBuilder struct {
	payment *Payment
}

// NewPaymentBuilder creates a new payment builder
func NewPaymentBuilder() *PaymentBuilder {
	now := time.Now()
	return &PaymentBuilder{
		payment: &Payment{
			ID:             uuid.New(),
			BillIDs:        []uuid.UUID{},
			DiscountAmount: decimal.Zero,
			PaymentMode:    PaymentModeBank,
			PaymentDate:    now,
			CreatedAt:      now,
		},
	}
}

// ForFlat sets the society and flat
func (b *PaymentBuilder) ForFlat(societyID, flatID uuid.UUID) *PaymentBuilder {
	b.payment.SocietyID = societyID
	b.payment.FlatID = flatID
	return b
}

// WithAmount sets the amount paid
func (b *PaymentBuilder) WithAmount(amount decimal.Decimal) *PaymentBuilder {
	b.payment.AmountPaid = amount
	return b
}

// WithBills sets the bills this payment settles
func (b *PaymentBuilder) WithBills(ids []uuid.UUID) *PaymentBuilder {
	if ids != nil {
		b.payment.BillIDs = ids
	}
	return b
}

// WithReceiptNumber sets the receipt number
func (b *PaymentBuilder) WithReceiptNumber(number string) *PaymentBuilder {
	b.payment.ReceiptNumber = number
	return b
}

// WithMode sets the payment mode
func (b *PaymentBuilder) WithMode(mode PaymentMode) *PaymentBuilder {
	if mode != "" {
		b.payment.PaymentMode = mode
	}
	return b
}

// WithDate sets the payment date
func (b *PaymentBuilder) WithDate(date time.Time) *PaymentBuilder {
	if !date.IsZero() {
		b.payment.PaymentDate = date
	}
	return b
}

// WithReference sets the external transaction reference and remarks
func (b *PaymentBuilder) WithReference(reference, remarks string) *PaymentBuilder {
	b.payment.TransactionReference = reference
	b.payment.Remarks = remarks
	return b
}

// AsAnnual marks the payment as an annual payment with its informational discount
func (b *PaymentBuilder) AsAnnual(discount decimal.Decimal, schemeID *uuid.UUID) *PaymentBuilder {
	b.payment.IsAnnualPayment = true
	b.payment.DiscountAmount = discount
	b.payment.DiscountSchemeID = schemeID
	return b
}

// WithCreatedBy sets who recorded the payment
func (b *PaymentBuilder) WithCreatedBy(userID uuid.UUID) *PaymentBuilder {
	b.payment.CreatedBy = userID
	return b
}

// Build creates the payment
func (b *PaymentBuilder) Build() *Payment {
	return b.payment
}
