package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
)

func TestGenerateMonthlyBills(t *testing.T) {
	f := newFixture(t)
	march := models.MonthlyPeriod(3, 2026)

	result := f.generate(march)

	if result.BillsCreated != 2 {
		t.Errorf("BillsCreated = %d, want 2", result.BillsCreated)
	}
	if result.SkippedFlats != 1 {
		t.Errorf("SkippedFlats = %d, want 1 (zero-area parking)", result.SkippedFlats)
	}
	assertDecimal(t, "TotalAmount", result.TotalAmount, dec(12500))
	if result.Period != "3/2026" {
		t.Errorf("Period = %q", result.Period)
	}

	bill := f.billFor(f.flatA, march)
	assertDecimal(t, "FinalPayableAmount", bill.FinalPayableAmount, dec(5000))
	assertDecimal(t, "PaidAmount", bill.PaidAmount, dec(0))
	if bill.Status != models.BillStatusPending {
		t.Errorf("Status = %s, want pending", bill.Status)
	}
	if want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC); !bill.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", bill.DueDate, want)
	}
	if bill.MemberID != f.member {
		t.Errorf("MemberID = %s, want primary occupant %s", bill.MemberID, f.member)
	}
	if billB := f.billFor(f.flatB, march); billB.MemberID != uuid.Nil {
		t.Errorf("unoccupied flat bill has MemberID %s", billB.MemberID)
	}

	entries := f.ledger(f.flatA)
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].EntryType != models.EntryTypeBillGenerated || entries[0].ReferenceID != bill.ID {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	assertDecimal(t, "BalanceAfterEntry", entries[0].BalanceAfterEntry, dec(5000))

	notifications, err := f.svc.Notification.List(f.ctx, f.member, f.society.ID)
	f.must(err)
	if len(notifications) != 1 || notifications[0].Title != "Maintenance Bill Generated" {
		t.Errorf("notifications = %+v", notifications)
	}
}

func TestGenerateTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	march := models.MonthlyPeriod(3, 2026)
	f.generate(march)

	_, err := f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, GenerateRequest{Period: march})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second Generate() error = %v, want conflict", err)
	}
	if MessageOf(err) != "bills already generated for 3/2026" {
		t.Errorf("message = %q", MessageOf(err))
	}

	count, err := f.store.CountBillsForPeriod(f.ctx, f.society.ID, march)
	f.must(err)
	if count != 2 {
		t.Errorf("bills = %d, want 2", count)
	}
	if len(f.ledger(f.flatA)) != 1 {
		t.Error("second run wrote ledger entries")
	}
}

func TestGenerateResume(t *testing.T) {
	f := newFixture(t)
	march := models.MonthlyPeriod(3, 2026)
	f.generate(march)

	late := f.addFlat("C-303", 800)

	missing, err := f.svc.Bill.MissingBills(f.ctx, f.manager, f.society.ID, march)
	f.must(err)
	if len(missing) != 1 || missing[0].FlatID != late.ID {
		t.Fatalf("MissingBills() = %+v, want only C-303", missing)
	}

	result, err := f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, GenerateRequest{Period: march, Resume: true})
	f.must(err)
	if result.BillsCreated != 1 || result.ExistingBills != 2 {
		t.Errorf("BillsCreated = %d, ExistingBills = %d, want 1 and 2", result.BillsCreated, result.ExistingBills)
	}
	assertDecimal(t, "TotalAmount", result.TotalAmount, dec(4000))

	missing, err = f.svc.Bill.MissingBills(f.ctx, f.manager, f.society.ID, march)
	f.must(err)
	if len(missing) != 0 {
		t.Errorf("MissingBills() after resume = %+v", missing)
	}
}

func TestGenerateYearlyWithFreeMonthScheme(t *testing.T) {
	f := newFixture(t)
	scheme := f.freeMonthScheme()
	year := models.YearlyPeriod(2026)

	req := GenerateRequest{Period: year, ApplyDiscountScheme: true, DiscountSchemeID: &scheme.ID}
	preview, err := f.svc.Bill.Preview(f.ctx, f.manager, f.society.ID, req)
	f.must(err)
	assertDecimal(t, "TotalBeforeDiscount", preview.TotalBeforeDiscount, dec(150000))
	assertDecimal(t, "EstimatedDiscount", preview.EstimatedDiscount, dec(12500))
	assertDecimal(t, "TotalAfterDiscount", preview.TotalAfterDiscount, dec(137500))

	// preview writes nothing
	if count, _ := f.store.CountBillsForPeriod(f.ctx, f.society.ID, year); count != 0 {
		t.Fatalf("Preview() created %d bills", count)
	}

	_, err = f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, req)
	f.must(err)

	bill := f.billFor(f.flatA, year)
	assertDecimal(t, "TotalBeforeDiscount", bill.TotalBeforeDiscount, dec(60000))
	assertDecimal(t, "DiscountAmount", bill.DiscountAmount, dec(5000))
	assertDecimal(t, "FinalPayableAmount", bill.FinalPayableAmount, dec(55000))
	if want := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC); !bill.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", bill.DueDate, want)
	}
	if bill.DiscountSchemeID == nil || *bill.DiscountSchemeID != scheme.ID {
		t.Errorf("DiscountSchemeID = %v", bill.DiscountSchemeID)
	}

	entries := f.ledger(f.flatA)
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}
	assertDecimal(t, "bill debit", entries[0].DebitAmount, dec(60000))
	if entries[1].EntryType != models.EntryTypeDiscountApplied {
		t.Errorf("second entry type = %s", entries[1].EntryType)
	}
	assertDecimal(t, "discount credit", entries[1].CreditAmount, dec(5000))
	assertDecimal(t, "balance", entries[1].BalanceAfterEntry, dec(55000))
}

func TestGenerateIgnoresSchemeWhenDisabled(t *testing.T) {
	f := newFixture(t)
	scheme := f.freeMonthScheme()

	disabled := false
	_, err := f.svc.Settings.Update(f.ctx, f.manager, f.society.ID, UpdateSettingsRequest{DiscountSchemesEnabled: &disabled})
	f.must(err)

	_, err = f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, GenerateRequest{
		Period: models.YearlyPeriod(2026), ApplyDiscountScheme: true, DiscountSchemeID: &scheme.ID,
	})
	f.must(err)

	bill := f.billFor(f.flatA, models.YearlyPeriod(2026))
	assertDecimal(t, "DiscountAmount", bill.DiscountAmount, dec(0))
	assertDecimal(t, "FinalPayableAmount", bill.FinalPayableAmount, dec(60000))
}

func TestGenerateRejectsSchemeWithUnknownType(t *testing.T) {
	f := newFixture(t)
	broken := &models.DiscountScheme{
		ID:           uuid.New(),
		SocietyID:    f.society.ID,
		Name:         "Legacy offer",
		DiscountType: "buy_one_get_one",
		IsActive:     true,
		CreatedBy:    f.manager,
	}
	f.must(f.store.CreateDiscountScheme(f.ctx, broken))

	_, err := f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, GenerateRequest{
		Period: models.MonthlyPeriod(3, 2026), ApplyDiscountScheme: true, DiscountSchemeID: &broken.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Generate() error = %v, want validation", err)
	}
	if count, _ := f.store.CountBillsForPeriod(f.ctx, f.society.ID, models.MonthlyPeriod(3, 2026)); count != 0 {
		t.Errorf("%d bills created with an unusable scheme", count)
	}

	_, err = f.svc.Bill.AnnualPaymentPreview(f.ctx, f.manager, f.society.ID, AnnualPreviewRequest{
		FlatID: f.flatA.ID, Year: 2026, DiscountSchemeID: &broken.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("AnnualPaymentPreview() error = %v, want validation", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		actor   uuid.UUID
		period  models.BillPeriod
		wantErr error
	}{
		{"missing month", f.manager, models.BillPeriod{Type: models.BillPeriodMonthly, Year: 2026}, ErrValidation},
		{"month 13", f.manager, models.MonthlyPeriod(13, 2026), ErrValidation},
		{"unknown period type", f.manager, models.BillPeriod{Type: "weekly", Year: 2026}, ErrValidation},
		{"member cannot generate", f.member, models.MonthlyPeriod(3, 2026), ErrForbidden},
		{"outsider cannot generate", f.outsider, models.MonthlyPeriod(3, 2026), ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Bill.Generate(f.ctx, tt.actor, f.society.ID, GenerateRequest{Period: tt.period})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemberBillVisibility(t *testing.T) {
	f := newFixture(t)
	march := models.MonthlyPeriod(3, 2026)
	f.generate(march)

	all, err := f.svc.Bill.ListBills(f.ctx, f.manager, f.society.ID, ListBillsRequest{})
	f.must(err)
	if len(all) != 2 {
		t.Errorf("manager sees %d bills, want 2", len(all))
	}

	own, err := f.svc.Bill.ListBills(f.ctx, f.member, f.society.ID, ListBillsRequest{})
	f.must(err)
	if len(own) != 1 || own[0].FlatID != f.flatA.ID {
		t.Errorf("member sees %d bills, want only A-101", len(own))
	}

	if _, err := f.svc.Bill.GetBill(f.ctx, f.member, f.society.ID, f.billFor(f.flatB, march).ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("member GetBill() of another flat error = %v, want forbidden", err)
	}
	if _, err := f.svc.Bill.GetBill(f.ctx, f.member, f.society.ID, f.billFor(f.flatA, march).ID); err != nil {
		t.Errorf("member GetBill() of own flat error = %v", err)
	}
	if _, err := f.svc.Bill.GetBill(f.ctx, f.manager, f.society.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBill() of unknown bill error = %v, want not found", err)
	}
	if _, err := f.svc.Bill.ListBills(f.ctx, f.outsider, f.society.ID, ListBillsRequest{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider ListBills() error = %v, want forbidden", err)
	}
}

func TestListBillsFilters(t *testing.T) {
	f := newFixture(t)
	f.generate(models.MonthlyPeriod(3, 2026))
	f.generate(models.MonthlyPeriod(4, 2026))
	f.pay(f.flatA, 5000, f.billFor(f.flatA, models.MonthlyPeriod(3, 2026)))

	tests := []struct {
		name string
		req  ListBillsRequest
		want int
	}{
		{"all", ListBillsRequest{}, 4},
		{"month", ListBillsRequest{Month: 4, Year: 2026}, 2},
		{"flat", ListBillsRequest{FlatID: f.flatB.ID}, 2},
		{"status paid", ListBillsRequest{Status: models.BillStatusPaid}, 1},
		{"status pending", ListBillsRequest{Status: models.BillStatusPending}, 3},
		{"page size", ListBillsRequest{Limit: 3}, 3},
		{"second page", ListBillsRequest{Limit: 3, Page: 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bills, err := f.svc.Bill.ListBills(f.ctx, f.manager, f.society.ID, tt.req)
			f.must(err)
			if len(bills) != tt.want {
				t.Errorf("ListBills() returned %d bills, want %d", len(bills), tt.want)
			}
		})
	}
}

func TestAnnualPaymentPreview(t *testing.T) {
	f := newFixture(t)
	scheme := f.freeMonthScheme()
	march := models.MonthlyPeriod(3, 2026)
	f.generate(march)
	f.pay(f.flatA, 5000, f.billFor(f.flatA, march))

	preview, err := f.svc.Bill.AnnualPaymentPreview(f.ctx, f.member, f.society.ID, AnnualPreviewRequest{
		FlatID: f.flatA.ID, Year: 2026, DiscountSchemeID: &scheme.ID,
	})
	f.must(err)

	assertDecimal(t, "MonthlyAmount", preview.MonthlyAmount, dec(5000))
	assertDecimal(t, "TotalBeforeDiscount", preview.TotalBeforeDiscount, dec(60000))
	assertDecimal(t, "DiscountAmount", preview.DiscountAmount, dec(5000))
	assertDecimal(t, "FinalPayable", preview.FinalPayable, dec(55000))
	if preview.AlreadyPaidMonths != 1 || preview.PendingMonths != 11 {
		t.Errorf("paid %d pending %d, want 1 and 11", preview.AlreadyPaidMonths, preview.PendingMonths)
	}

	_, err = f.svc.Bill.AnnualPaymentPreview(f.ctx, f.member, f.society.ID, AnnualPreviewRequest{FlatID: f.flatB.ID, Year: 2026})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("member preview of another flat error = %v, want forbidden", err)
	}
}
