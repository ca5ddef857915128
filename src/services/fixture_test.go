package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/shopspring/decimal"
)

// fixture is a society with three flats on a memory store:
// A-101 (1000 sqft, member is primary occupant), B-202 (1500 sqft, no occupant)
// and P-001 (0 sqft parking, never billed). Rate 5/sqft, due on the 10th.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *store.MemoryStore
	svc   *Services
	clock time.Time

	manager  uuid.UUID
	member   uuid.UUID
	outsider uuid.UUID

	society *models.Society
	flatA   *models.Flat
	flatB   *models.Flat
	parking *models.Flat
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.Disable()

	st := store.NewMemoryStore()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    st,
		svc:      New(st),
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		manager:  uuid.New(),
		member:   uuid.New(),
		outsider: uuid.New(),
	}
	f.wireClock()

	var err error
	f.society, err = f.svc.Society.CreateSociety(f.ctx, f.manager, CreateSocietyRequest{
		Name:       "Green Meadows",
		Address:    "12 Lake Road",
		TotalFlats: 3,
	})
	f.must(err)

	f.flatA = f.addFlat("A-101", 1000)
	f.flatB = f.addFlat("B-202", 1500)
	f.parking = f.addFlat("P-001", 0)

	_, err = f.svc.Society.AddMembership(f.ctx, f.manager, f.society.ID, AddMembershipRequest{
		UserID: f.member, Role: models.RoleMember,
	})
	f.must(err)
	_, err = f.svc.Society.AssignFlatMember(f.ctx, f.manager, f.society.ID, AssignFlatMemberRequest{
		FlatID: f.flatA.ID, UserID: f.member, RelationType: "Owner", IsPrimary: true,
	})
	f.must(err)
	return f
}

// wireClock points every service at the fixture clock
func (f *fixture) wireClock() {
	now := func() time.Time { return f.clock }
	f.svc.Society.now = now
	f.svc.Settings.now = now
	f.svc.Discount.now = now
	f.svc.Bill.now = now
	f.svc.Payment.now = now
	f.svc.Ledger.now = now
	f.svc.Overdue.now = now
	f.svc.Report.now = now
	f.svc.Transaction.now = now
	f.svc.Notification.now = now
}

func (f *fixture) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) addFlat(number string, area int64) *models.Flat {
	f.t.Helper()
	flat, err := f.svc.Society.AddFlat(f.ctx, f.manager, f.society.ID, AddFlatRequest{
		FlatNumber: number,
		Area:       decimal.NewFromInt(area),
	})
	f.must(err)
	return flat
}

func (f *fixture) generate(period models.BillPeriod) *GenerateResult {
	f.t.Helper()
	result, err := f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, GenerateRequest{Period: period})
	f.must(err)
	return result
}

// billFor returns the flat's bill for the period
func (f *fixture) billFor(flat *models.Flat, period models.BillPeriod) *models.MaintenanceBill {
	f.t.Helper()
	period = period.Normalize()
	bills, err := f.store.ListBills(f.ctx, f.society.ID, store.BillFilter{
		PeriodType: period.Type,
		Month:      period.Month,
		Year:       period.Year,
		FlatID:     flat.ID,
	})
	f.must(err)
	if len(bills) != 1 {
		f.t.Fatalf("flat %s has %d bills for %s, want 1", flat.FlatNumber, len(bills), period)
	}
	return bills[0]
}

func (f *fixture) pay(flat *models.Flat, amount int64, bills ...*models.MaintenanceBill) *PaymentResult {
	f.t.Helper()
	ids := make([]uuid.UUID, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	result, err := f.svc.Payment.Record(f.ctx, f.manager, f.society.ID, RecordPaymentRequest{
		FlatID:      flat.ID,
		BillIDs:     ids,
		AmountPaid:  decimal.NewFromInt(amount),
		PaymentMode: models.PaymentModeUPI,
		PaymentDate: f.clock,
	})
	f.must(err)
	return result
}

func (f *fixture) ledger(flat *models.Flat) []*models.LedgerEntry {
	f.t.Helper()
	entries, err := f.store.ListLedgerEntries(f.ctx, f.society.ID, flat.ID)
	f.must(err)
	return entries
}

func (f *fixture) setLateFee(amount int64, kind models.LateFeeType) {
	f.t.Helper()
	fee := decimal.NewFromInt(amount)
	_, err := f.svc.Settings.Update(f.ctx, f.manager, f.society.ID, UpdateSettingsRequest{
		LateFeeAmount: &fee,
		LateFeeType:   &kind,
	})
	f.must(err)
}

func (f *fixture) freeMonthScheme() *models.DiscountScheme {
	f.t.Helper()
	scheme, err := f.svc.Discount.CreateScheme(f.ctx, f.manager, f.society.ID, SchemeRequest{
		Name:           "Pay 12 get 1 free",
		EligibleMonths: 12,
		FreeMonths:     1,
		DiscountType:   models.DiscountTypeFreeMonths,
		IsActive:       true,
	})
	f.must(err)
	return scheme
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got.String(), want.String())
	}
}
