package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestBill(final int64) *MaintenanceBill {
	flat := &Flat{ID: uuid.New(), SocietyID: uuid.New(), FlatNumber: "A-101", Area: decimal.NewFromInt(1000)}
	return NewMaintenanceBillBuilder().
		ForFlat(flat, uuid.Nil).
		WithPeriod(MonthlyPeriod(3, 2026), 10).
		WithAmounts(decimal.NewFromInt(5), ApplyDiscount(decimal.NewFromInt(final), nil), nil).
		Build()
}

func TestBillPeriodValidate(t *testing.T) {
	tests := []struct {
		name   string
		period BillPeriod
		want   error
	}{
		{"monthly", MonthlyPeriod(3, 2026), nil},
		{"yearly", YearlyPeriod(2026), nil},
		{"monthly without month", BillPeriod{Type: BillPeriodMonthly, Year: 2026}, ErrMonthRequired},
		{"month 13", MonthlyPeriod(13, 2026), ErrInvalidMonth},
		{"negative month", MonthlyPeriod(-1, 2026), ErrInvalidMonth},
		{"zero year", MonthlyPeriod(3, 0), ErrInvalidYear},
		{"unknown type", BillPeriod{Type: "weekly", Year: 2026}, ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.period.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBillPeriodDueDate(t *testing.T) {
	tests := []struct {
		name   string
		period BillPeriod
		dueDay int
		want   time.Time
	}{
		{"monthly", MonthlyPeriod(3, 2026), 10, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"february", MonthlyPeriod(2, 2026), 28, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"yearly ignores due day", YearlyPeriod(2026), 10, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.period.DueDate(tt.dueDay); !got.Equal(tt.want) {
				t.Errorf("DueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBillAmount(t *testing.T) {
	area := decimal.NewFromInt(1000)
	rate := decimal.NewFromInt(5)

	if got := CalculateBillAmount(area, rate, MonthlyPeriod(3, 2026)); !got.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("monthly = %v, want 5000", got)
	}
	if got := CalculateBillAmount(area, rate, YearlyPeriod(2026)); !got.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("yearly = %v, want 60000", got)
	}
}

func TestBillApplyPayment(t *testing.T) {
	tests := []struct {
		name        string
		payments    []int64
		wantApplied []int64
		wantPaid    int64
		wantStatus  BillStatus
	}{
		{"partial", []int64{3000}, []int64{3000}, 3000, BillStatusPartial},
		{"partial then full", []int64{3000, 2000}, []int64{3000, 2000}, 5000, BillStatusPaid},
		{"overpayment is capped", []int64{7000}, []int64{5000}, 5000, BillStatusPaid},
		{"payment after paid applies nothing", []int64{5000, 100}, []int64{5000, 0}, 5000, BillStatusPaid},
		{"zero amount", []int64{0}, []int64{0}, 0, BillStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := newTestBill(5000)
			for i, amount := range tt.payments {
				applied := bill.ApplyPayment(decimal.NewFromInt(amount))
				if !applied.Equal(decimal.NewFromInt(tt.wantApplied[i])) {
					t.Errorf("payment %d applied %v, want %d", i, applied, tt.wantApplied[i])
				}
			}
			if !bill.PaidAmount.Equal(decimal.NewFromInt(tt.wantPaid)) {
				t.Errorf("PaidAmount = %v, want %d", bill.PaidAmount, tt.wantPaid)
			}
			if bill.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", bill.Status, tt.wantStatus)
			}
		})
	}
}

func TestBillIsOverdue(t *testing.T) {
	tests := []struct {
		name   string
		status BillStatus
		today  time.Time
		want   bool
	}{
		{"before due date", BillStatusPending, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), false},
		{"on due date", BillStatusPending, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), false},
		{"day after due date", BillStatusPending, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), true},
		{"partial past due", BillStatusPartial, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), true},
		{"paid past due", BillStatusPaid, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{"already overdue", BillStatusOverdue, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := newTestBill(5000)
			bill.Status = tt.status
			if got := bill.IsOverdue(tt.today); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillMarkOverdue(t *testing.T) {
	bill := newTestBill(5000)

	charged := bill.MarkOverdue(decimal.NewFromInt(100))
	if !charged.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("first MarkOverdue charged %v, want 100", charged)
	}
	if bill.Status != BillStatusOverdue {
		t.Errorf("Status = %s, want overdue", bill.Status)
	}
	if !bill.FinalPayableAmount.Equal(decimal.NewFromInt(5100)) {
		t.Errorf("FinalPayableAmount = %v, want 5100", bill.FinalPayableAmount)
	}

	// a second run must not charge again
	charged = bill.MarkOverdue(decimal.NewFromInt(100))
	if !charged.IsZero() {
		t.Errorf("second MarkOverdue charged %v, want 0", charged)
	}
	if !bill.LateFee.Equal(decimal.NewFromInt(100)) || !bill.FinalPayableAmount.Equal(decimal.NewFromInt(5100)) {
		t.Errorf("late fee applied twice: fee %v final %v", bill.LateFee, bill.FinalPayableAmount)
	}
}

func TestBillMarkOverdueWithoutFee(t *testing.T) {
	bill := newTestBill(5000)

	if charged := bill.MarkOverdue(decimal.Zero); !charged.IsZero() {
		t.Errorf("charged %v, want 0", charged)
	}
	if bill.Status != BillStatusOverdue || !bill.FinalPayableAmount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("status %s final %v", bill.Status, bill.FinalPayableAmount)
	}
}
