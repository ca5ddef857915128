package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/shopspring/decimal"
)

// expense writes an outward transaction straight into the store
func (f *fixture) expense(category string, amount int64, date time.Time, status models.ApprovalStatus) {
	f.t.Helper()
	f.must(f.store.CreateTransaction(f.ctx, &models.Transaction{
		ID:             uuid.New(),
		SocietyID:      f.society.ID,
		Type:           models.TransactionOutward,
		Category:       category,
		Amount:         dec(amount),
		Description:    category,
		PaymentMode:    models.PaymentModeBank,
		Date:           date,
		ApprovalStatus: status,
		CreatedBy:      f.manager,
		CreatedAt:      date,
	}))
}

// reportFixture bills March 2026, collects 3000 from A-101 and books expenses
func reportFixture(t *testing.T) *fixture {
	f := newFixture(t)
	march := models.MonthlyPeriod(3, 2026)
	f.generate(march)
	f.pay(f.flatA, 3000, f.billFor(f.flatA, march))

	inMarch := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	f.expense("Security", 6000, inMarch, models.ApprovalApproved)
	f.expense("Cleaning", 3000, inMarch, models.ApprovalApproved)
	f.expense("Repairs", 1000, inMarch, models.ApprovalPending)
	f.expense("Security", 1000, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), models.ApprovalApproved)
	return f
}

func TestCollectionDashboard(t *testing.T) {
	f := reportFixture(t)

	dash, err := f.svc.Report.CollectionDashboard(f.ctx, f.member, f.society.ID, 2026, 3)
	f.must(err)

	if dash.TotalFlats != 2 || dash.PaidFlats != 0 || dash.PendingFlats != 2 || dash.OverdueFlats != 0 {
		t.Errorf("flats total/paid/pending/overdue = %d/%d/%d/%d, want 2/0/2/0",
			dash.TotalFlats, dash.PaidFlats, dash.PendingFlats, dash.OverdueFlats)
	}
	if dash.StatusCounts[models.BillStatusPartial] != 1 || dash.StatusCounts[models.BillStatusPending] != 1 {
		t.Errorf("StatusCounts = %v", dash.StatusCounts)
	}
	assertDecimal(t, "TotalBilled", dash.TotalBilled, dec(12500))
	assertDecimal(t, "TotalCollected", dash.TotalCollected, dec(3000))
	assertDecimal(t, "TotalOutstanding", dash.TotalOutstanding, dec(9500))
	assertDecimal(t, "CollectionPercentage", dash.CollectionPercentage, dec(24))

	if len(dash.MonthWiseCollection) != 12 {
		t.Fatalf("month rows = %d, want 12", len(dash.MonthWiseCollection))
	}
	marchRow := dash.MonthWiseCollection[2]
	assertDecimal(t, "march billed", marchRow.Billed, dec(12500))
	assertDecimal(t, "march pending", marchRow.Pending, dec(9500))
	assertDecimal(t, "april billed", dash.MonthWiseCollection[3].Billed, dec(0))

	if len(dash.RecentPayments) != 1 {
		t.Errorf("RecentPayments = %d, want 1", len(dash.RecentPayments))
	}

	if _, err := f.svc.Report.CollectionDashboard(f.ctx, f.manager, f.society.ID, 2026, 13); !errors.Is(err, ErrValidation) {
		t.Errorf("month 13 error = %v, want validation", err)
	}
}

func TestCollectionDashboardEmptyYear(t *testing.T) {
	f := newFixture(t)

	dash, err := f.svc.Report.CollectionDashboard(f.ctx, f.manager, f.society.ID, 0, 0)
	f.must(err)
	if dash.Year != 2026 {
		t.Errorf("Year = %d, want the current year", dash.Year)
	}
	assertDecimal(t, "CollectionPercentage", dash.CollectionPercentage, dec(0))
	if dash.RecentPayments == nil {
		t.Error("RecentPayments should be empty, not nil")
	}
}

func TestCategorySpending(t *testing.T) {
	f := reportFixture(t)

	tests := []struct {
		name  string
		month int
		want  []CategorySpending
	}{
		{
			name:  "march",
			month: 3,
			want: []CategorySpending{
				{Category: "Security", Total: dec(6000), Count: 1, Percentage: decimal.RequireFromString("66.7")},
				{Category: "Cleaning", Total: dec(3000), Count: 1, Percentage: decimal.RequireFromString("33.3")},
			},
		},
		{
			name:  "whole year",
			month: 0,
			want: []CategorySpending{
				{Category: "Security", Total: dec(7000), Count: 2, Percentage: dec(70)},
				{Category: "Cleaning", Total: dec(3000), Count: 1, Percentage: dec(30)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Report.CategorySpending(f.ctx, f.member, f.society.ID, 2026, tt.month)
			f.must(err)
			if len(got) != len(tt.want) {
				t.Fatalf("categories = %+v", got)
			}
			for i, w := range tt.want {
				if got[i].Category != w.Category || got[i].Count != w.Count {
					t.Errorf("row %d = %s/%d, want %s/%d", i, got[i].Category, got[i].Count, w.Category, w.Count)
				}
				assertDecimal(t, w.Category+" total", got[i].Total, w.Total)
				assertDecimal(t, w.Category+" percentage", got[i].Percentage, w.Percentage)
			}
		})
	}
}

func TestMonthlySummary(t *testing.T) {
	f := reportFixture(t)

	rows, err := f.svc.Report.MonthlySummary(f.ctx, f.manager, f.society.ID, 2026)
	f.must(err)
	if len(rows) != 12 {
		t.Fatalf("rows = %d, want 12", len(rows))
	}

	march, april := rows[2], rows[3]
	assertDecimal(t, "march inward", march.TotalInward, dec(3000))
	assertDecimal(t, "march outward", march.TotalOutward, dec(9000))
	assertDecimal(t, "march net", march.Net, dec(-6000))
	if march.TransactionCount != 3 {
		t.Errorf("march count = %d, want 3 (pending expense excluded)", march.TransactionCount)
	}
	assertDecimal(t, "april outward", april.TotalOutward, dec(1000))
	if rows[0].TransactionCount != 0 {
		t.Errorf("january count = %d", rows[0].TransactionCount)
	}
}

func TestAnnualSummary(t *testing.T) {
	f := reportFixture(t)

	summary, err := f.svc.Report.AnnualSummary(f.ctx, f.member, f.society.ID, 2026)
	f.must(err)

	assertDecimal(t, "TotalIncome", summary.TotalIncome, dec(3000))
	assertDecimal(t, "TotalExpense", summary.TotalExpense, dec(10000))
	assertDecimal(t, "NetBalance", summary.NetBalance, dec(-7000))
	assertDecimal(t, "TotalBilled", summary.TotalBilled, dec(12500))
	assertDecimal(t, "TotalCollected", summary.TotalCollected, dec(3000))
	assertDecimal(t, "CollectionRate", summary.CollectionRate, dec(24))
	if summary.TransactionCount != 4 {
		t.Errorf("TransactionCount = %d, want 4", summary.TransactionCount)
	}
}

func TestOutstandingDues(t *testing.T) {
	f := reportFixture(t)

	dues, err := f.svc.Report.OutstandingDues(f.ctx, f.manager, f.society.ID)
	f.must(err)
	if len(dues) != 2 {
		t.Fatalf("dues = %d, want 2", len(dues))
	}
	for _, due := range dues {
		want := dec(7500)
		if due.FlatID == f.flatA.ID {
			want = dec(2000)
		}
		assertDecimal(t, due.FlatNumber+" outstanding", due.Outstanding, want)
	}
}

func TestReportsRequireMembership(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Report.MonthlySummary(f.ctx, f.outsider, f.society.ID, 2026); !errors.Is(err, ErrForbidden) {
		t.Errorf("MonthlySummary() error = %v, want forbidden", err)
	}
	if _, err := f.svc.Report.CollectionDashboard(f.ctx, f.outsider, f.society.ID, 2026, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("CollectionDashboard() error = %v, want forbidden", err)
	}
	if _, err := f.svc.Report.OutstandingDues(f.ctx, f.outsider, f.society.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("OutstandingDues() error = %v, want forbidden", err)
	}
}

func TestSocietyDashboard(t *testing.T) {
	f := reportFixture(t)

	dash, err := f.svc.Report.SocietyDashboard(f.ctx, f.member, f.society.ID)
	f.must(err)

	assertDecimal(t, "TotalInward", dash.TotalInward, dec(3000))
	assertDecimal(t, "TotalOutward", dash.TotalOutward, dec(10000))
	assertDecimal(t, "SocietyBalance", dash.SocietyBalance, dec(-7000))
	if dash.PendingDues != 2 || dash.PendingApprovals != 1 {
		t.Errorf("pending dues/approvals = %d/%d, want 2/1", dash.PendingDues, dash.PendingApprovals)
	}
	if dash.MemberCount != 2 || dash.FlatCount != 3 {
		t.Errorf("members/flats = %d/%d, want 2/3", dash.MemberCount, dash.FlatCount)
	}
	if len(dash.RecentTransactions) != 5 {
		t.Errorf("len(RecentTransactions) = %d, want 5", len(dash.RecentTransactions))
	}

	if len(dash.MonthlyTrend) != 6 {
		t.Fatalf("len(MonthlyTrend) = %d, want 6", len(dash.MonthlyTrend))
	}
	first, last := dash.MonthlyTrend[0], dash.MonthlyTrend[5]
	if first.Year != 2025 || first.Month != 10 || last.Year != 2026 || last.Month != 3 {
		t.Errorf("trend spans %d-%02d to %d-%02d, want 2025-10 to 2026-03", first.Year, first.Month, last.Year, last.Month)
	}
	assertDecimal(t, "March inward", last.Inward, dec(3000))
	assertDecimal(t, "March outward", last.Outward, dec(9000))

	if _, err := f.svc.Report.SocietyDashboard(f.ctx, f.outsider, f.society.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider error = %v, want forbidden", err)
	}
}
