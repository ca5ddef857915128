package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillPeriodType represents the length of a billing period
type BillPeriodType string

const (
	BillPeriodMonthly BillPeriodType = "monthly"
	BillPeriodYearly  BillPeriodType = "yearly"
)

// BillStatus represents the status of a maintenance bill
type BillStatus string

const (
	BillStatusPending BillStatus = "pending" // Generated, nothing paid
	BillStatusPartial BillStatus = "partial" // Some amount paid
	BillStatusPaid    BillStatus = "paid"    // Paid in full
	BillStatusOverdue BillStatus = "overdue" // Past due date and not fully paid
)

// IsOpen returns true if the bill can still receive payments or go overdue
func (s BillStatus) IsOpen() bool {
	return s == BillStatusPending || s == BillStatusPartial
}

var (
	ErrMonthRequired = errors.New("month is required for monthly bills")
	ErrInvalidMonth  = errors.New("month must be between 1 and 12")
	ErrInvalidYear   = errors.New("year must be positive")
	ErrInvalidPeriod = errors.New("bill_period_type must be monthly or yearly")
)

// BillPeriod identifies a monthly (month+year) or yearly (year only) billing period
type BillPeriod struct {
	Type  BillPeriodType `json:"bill_period_type"`
	Month int            `json:"month,omitempty"`
	Year  int            `json:"year"`
}

// MonthlyPeriod builds a monthly period
func MonthlyPeriod(month, year int) BillPeriod {
	return BillPeriod{Type: BillPeriodMonthly, Month: month, Year: year}
}

// YearlyPeriod builds a yearly period
func YearlyPeriod(year int) BillPeriod {
	return BillPeriod{Type: BillPeriodYearly, Year: year}
}

// Validate checks the period is complete
func (p BillPeriod) Validate() error {
	switch p.Type {
	case BillPeriodMonthly:
		if p.Month == 0 {
			return ErrMonthRequired
		}
		if p.Month < 1 || p.Month > 12 {
			return ErrInvalidMonth
		}
	case BillPeriodYearly:
	default:
		return ErrInvalidPeriod
	}
	if p.Year <= 0 {
		return ErrInvalidYear
	}
	return nil
}

// Normalize drops the month from yearly periods
func (p BillPeriod) Normalize() BillPeriod {
	if p.Type == BillPeriodYearly {
		p.Month = 0
	}
	return p
}

// Months returns how many months the period covers
func (p BillPeriod) Months() int {
	if p.Type == BillPeriodYearly {
		return 12
	}
	return 1
}

// DueDate returns the due date of a bill for this period.
// Yearly bills fall due on Dec 31; monthly bills on dueDay of the month.
func (p BillPeriod) DueDate(dueDay int) time.Time {
	if p.Type == BillPeriodYearly {
		return time.Date(p.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, time.Month(p.Month), dueDay, 0, 0, 0, 0, time.UTC)
}

// String renders the period as "3/2026" or "2026"
func (p BillPeriod) String() string {
	if p.Type == BillPeriodYearly {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%d/%d", p.Month, p.Year)
}

// MaintenanceBill is a single flat's bill for one billing period
type MaintenanceBill struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SocietyID  uuid.UUID `json:"society_id" db:"society_id"`
	FlatID     uuid.UUID `json:"flat_id" db:"flat_id"`
	FlatNumber string    `json:"flat_number" db:"flat_number"`
	MemberID   uuid.UUID `json:"member_id" db:"member_id"` // Primary occupant, uuid.Nil if unassigned

	// Period
	PeriodType BillPeriodType `json:"bill_period_type" db:"bill_period_type"`
	Month      int            `json:"month,omitempty" db:"month"`
	Year       int            `json:"year" db:"year"`

	// Amount breakdown
	Area                decimal.Decimal `json:"area_sqft" db:"area_sqft"`
	RatePerArea         decimal.Decimal `json:"rate_per_sqft" db:"rate_per_sqft"`
	TotalBeforeDiscount decimal.Decimal `json:"total_before_discount" db:"total_before_discount"`
	DiscountAmount      decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	DiscountSchemeID    *uuid.UUID      `json:"discount_scheme_id,omitempty" db:"discount_scheme_id"`
	FinalPayableAmount  decimal.Decimal `json:"final_payable_amount" db:"final_payable_amount"`
	LateFee             decimal.Decimal `json:"late_fee" db:"late_fee"`

	// Payment tracking
	DueDate    time.Time       `json:"due_date" db:"due_date"`
	Status     BillStatus      `json:"status" db:"status"`
	PaidAmount decimal.Decimal `json:"paid_amount" db:"paid_amount"`

	// Audit
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Period returns the billing period of the bill
func (b *MaintenanceBill) Period() BillPeriod {
	return BillPeriod{Type: b.PeriodType, Month: b.Month, Year: b.Year}
}

// Outstanding returns what is still owed on the bill
func (b *MaintenanceBill) Outstanding() decimal.Decimal {
	return b.FinalPayableAmount.Sub(b.PaidAmount)
}

// IsPaidInFull checks if the full payable amount has been paid
func (b *MaintenanceBill) IsPaidInFull() bool {
	return b.PaidAmount.GreaterThanOrEqual(b.FinalPayableAmount)
}

// IsOverdue checks if the bill is open and strictly past its due date on the given day
func (b *MaintenanceBill) IsOverdue(today time.Time) bool {
	if !b.Status.IsOpen() {
		return false
	}
	return b.DueDate.Before(truncateDay(today))
}

// ApplyPayment applies up to amount to the bill and returns the amount applied.
// Paid amount never exceeds the final payable amount and never decreases.
func (b *MaintenanceBill) ApplyPayment(amount decimal.Decimal) decimal.Decimal {
	due := b.Outstanding()
	if !amount.IsPositive() || !due.IsPositive() {
		return decimal.Zero
	}

	applied := decimal.Min(amount, due)
	b.PaidAmount = b.PaidAmount.Add(applied)
	b.RecomputeStatus()
	b.UpdatedAt = time.Now()
	return applied
}

// RecomputeStatus sets paid or partial from the paid amount
func (b *MaintenanceBill) RecomputeStatus() {
	if b.IsPaidInFull() {
		b.Status = BillStatusPaid
		return
	}
	if b.PaidAmount.IsPositive() {
		b.Status = BillStatusPartial
	}
}

// MarkOverdue moves an open bill to overdue and charges a late fee once.
// It returns the fee charged, zero when no fee applies or one was already charged.
func (b *MaintenanceBill) MarkOverdue(fee decimal.Decimal) decimal.Decimal {
	b.Status = BillStatusOverdue
	b.UpdatedAt = time.Now()

	if !fee.IsPositive() || !b.LateFee.IsZero() {
		return decimal.Zero
	}
	b.LateFee = fee
	b.FinalPayableAmount = b.FinalPayableAmount.Add(fee)
	return fee
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MaintenanceBillBuilder helps construct bills
type MaintenanceBillBuilder struct {
	bill *MaintenanceBill
}

// NewMaintenanceBillBuilder creates a new builder
func NewMaintenanceBillBuilder() *MaintenanceBillBuilder {
	now := time.Now()
	return &MaintenanceBillBuilder{
		bill: &MaintenanceBill{
			ID:             uuid.New(),
			Status:         BillStatusPending,
			PaidAmount:     decimal.Zero,
			LateFee:        decimal.Zero,
			DiscountAmount: decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

// ForFlat sets the society, flat and primary occupant
func (b *MaintenanceBillBuilder) ForFlat(flat *Flat, memberID uuid.UUID) *MaintenanceBillBuilder {
	b.bill.SocietyID = flat.SocietyID
	b.bill.FlatID = flat.ID
	b.bill.FlatNumber = flat.FlatNumber
	b.bill.Area = flat.Area
	b.bill.MemberID = memberID
	return b
}

// WithPeriod sets the billing period and due date
func (b *MaintenanceBillBuilder) WithPeriod(period BillPeriod, dueDay int) *MaintenanceBillBuilder {
	period = period.Normalize()
	b.bill.PeriodType = period.Type
	b.bill.Month = period.Month
	b.bill.Year = period.Year
	b.bill.DueDate = period.DueDate(dueDay)
	return b
}

// WithAmounts sets the rate and the discount breakdown
func (b *MaintenanceBillBuilder) WithAmounts(rate decimal.Decimal, result DiscountResult, schemeID *uuid.UUID) *MaintenanceBillBuilder {
	b.bill.RatePerArea = rate
	b.bill.TotalBeforeDiscount = result.Total.Round(2)
	b.bill.DiscountAmount = result.Discount
	b.bill.FinalPayableAmount = result.Final
	if result.HasDiscount() {
		b.bill.DiscountSchemeID = schemeID
	}
	return b
}

// WithCreatedBy sets who generated the bill
func (b *MaintenanceBillBuilder) WithCreatedBy(userID uuid.UUID) *MaintenanceBillBuilder {
	b.bill.CreatedBy = userID
	return b
}

// Build creates the bill
func (b *MaintenanceBillBuilder) Build() *MaintenanceBill {
	return b.bill
}

// CalculateBillAmount returns area * rate * months for a period
func CalculateBillAmount(area, rate decimal.Decimal, period BillPeriod) decimal.Decimal {
	return area.Mul(rate).Mul(decimal.NewFromInt(int64(period.Months())))
}
