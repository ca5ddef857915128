package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
)

// addManager adds a second manager who can review the first one's expenses
func (f *fixture) addManager() uuid.UUID {
	f.t.Helper()
	reviewer := uuid.New()
	_, err := f.svc.Society.AddMembership(f.ctx, f.manager, f.society.ID, AddMembershipRequest{
		UserID: reviewer, Role: models.RoleManager,
	})
	f.must(err)
	return reviewer
}

func (f *fixture) record(kind models.TransactionType, category string, amount int64, date time.Time) *models.Transaction {
	f.t.Helper()
	txn, err := f.svc.Transaction.Create(f.ctx, f.manager, f.society.ID, CreateTransactionRequest{
		Type:     kind,
		Category: category,
		Amount:   dec(amount),
		Date:     date,
	})
	f.must(err)
	return txn
}

func notificationTitles(f *fixture, user uuid.UUID) []string {
	f.t.Helper()
	list, err := f.store.ListNotifications(f.ctx, f.society.ID, user)
	f.must(err)
	titles := make([]string, 0, len(list))
	for _, n := range list {
		if n.Type == models.NotificationApproval {
			titles = append(titles, n.Title)
		}
	}
	return titles
}

func TestCreateTransactionApprovalThreshold(t *testing.T) {
	f := newFixture(t)
	assertDecimal(t, "ApprovalThreshold", f.society.ApprovalThreshold, models.DefaultApprovalThreshold)

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		kind   models.TransactionType
		amount int64
		want   models.ApprovalStatus
	}{
		{"small expense", models.TransactionOutward, 49999, models.ApprovalApproved},
		{"expense at threshold", models.TransactionOutward, 50000, models.ApprovalPending},
		{"large expense", models.TransactionOutward, 250000, models.ApprovalPending},
		{"large income", models.TransactionInward, 250000, models.ApprovalApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := f.record(tt.kind, "Other", tt.amount, march)
			if txn.ApprovalStatus != tt.want {
				t.Errorf("ApprovalStatus = %s, want %s", txn.ApprovalStatus, tt.want)
			}
			if txn.PaymentMode != models.PaymentModeBank {
				t.Errorf("PaymentMode = %s, want bank", txn.PaymentMode)
			}
		})
	}
}

func TestPendingExpenseCountsOnlyAfterApproval(t *testing.T) {
	f := newFixture(t)
	reviewer := f.addManager()

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	txn := f.record(models.TransactionOutward, "Lift AMC", 60000, march)
	if !txn.IsPending() {
		t.Fatalf("ApprovalStatus = %s, want pending", txn.ApprovalStatus)
	}
	if got := notificationTitles(f, reviewer); len(got) != 1 || got[0] != "Expense Approval Required" {
		t.Errorf("reviewer notifications = %v", got)
	}
	if got := notificationTitles(f, f.manager); len(got) != 0 {
		t.Errorf("requester notified of own request: %v", got)
	}

	spending, err := f.svc.Report.CategorySpending(f.ctx, f.manager, f.society.ID, 2026, 3)
	f.must(err)
	if len(spending) != 0 {
		t.Errorf("pending expense in category spending: %+v", spending)
	}
	summary, err := f.svc.Report.MonthlySummary(f.ctx, f.manager, f.society.ID, 2026)
	f.must(err)
	assertDecimal(t, "March outward before approval", summary[2].TotalOutward, dec(0))

	dash, err := f.svc.Report.SocietyDashboard(f.ctx, f.manager, f.society.ID)
	f.must(err)
	if dash.PendingApprovals != 1 {
		t.Errorf("PendingApprovals = %d, want 1", dash.PendingApprovals)
	}

	approved, err := f.svc.Transaction.Approve(f.ctx, reviewer, f.society.ID, txn.ID, " looks fine ")
	f.must(err)
	if !approved.IsApproved() || approved.ReviewComments != "looks fine" {
		t.Errorf("approved = %+v", approved)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != reviewer || approved.ReviewedAt == nil {
		t.Errorf("review not recorded: %+v", approved)
	}
	if got := notificationTitles(f, f.manager); len(got) != 1 || got[0] != "Expense Approved" {
		t.Errorf("requester notifications = %v", got)
	}

	spending, err = f.svc.Report.CategorySpending(f.ctx, f.manager, f.society.ID, 2026, 3)
	f.must(err)
	if len(spending) != 1 || spending[0].Category != "Lift AMC" {
		t.Fatalf("category spending = %+v", spending)
	}
	assertDecimal(t, "Lift AMC total", spending[0].Total, dec(60000))
	summary, err = f.svc.Report.MonthlySummary(f.ctx, f.manager, f.society.ID, 2026)
	f.must(err)
	assertDecimal(t, "March outward after approval", summary[2].TotalOutward, dec(60000))

	dash, err = f.svc.Report.SocietyDashboard(f.ctx, f.manager, f.society.ID)
	f.must(err)
	if dash.PendingApprovals != 0 {
		t.Errorf("PendingApprovals = %d, want 0", dash.PendingApprovals)
	}
	assertDecimal(t, "SocietyBalance", dash.SocietyBalance, dec(-60000))
}

func TestRejectTransaction(t *testing.T) {
	f := newFixture(t)
	reviewer := f.addManager()

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	txn := f.record(models.TransactionOutward, "Repairs & Maintenance", 75000, march)

	rejected, err := f.svc.Transaction.Reject(f.ctx, reviewer, f.society.ID, txn.ID, "get another quote")
	f.must(err)
	if rejected.ApprovalStatus != models.ApprovalRejected {
		t.Errorf("ApprovalStatus = %s, want rejected", rejected.ApprovalStatus)
	}

	list, err := f.store.ListNotifications(f.ctx, f.society.ID, f.manager)
	f.must(err)
	if len(list) == 0 || list[0].Title != "Expense Rejected" {
		t.Fatalf("requester notifications = %+v", list)
	}
	if want := "Your expense request was rejected. Reason: get another quote (Repairs & Maintenance, Rs.75000.00)"; list[0].Message != want {
		t.Errorf("message = %q, want %q", list[0].Message, want)
	}

	summary, err := f.svc.Report.AnnualSummary(f.ctx, f.manager, f.society.ID, 2026)
	f.must(err)
	assertDecimal(t, "TotalExpense", summary.TotalExpense, dec(0))
}

func TestReviewTransactionErrors(t *testing.T) {
	f := newFixture(t)

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	pending := f.record(models.TransactionOutward, "Insurance", 90000, march)
	small := f.record(models.TransactionOutward, "Cleaning", 800, march)

	tests := []struct {
		name    string
		actor   uuid.UUID
		txnID   uuid.UUID
		approve bool
		wantErr error
	}{
		{"member cannot approve", f.member, pending.ID, true, ErrForbidden},
		{"outsider cannot reject", f.outsider, pending.ID, false, ErrForbidden},
		{"unknown transaction", f.manager, uuid.New(), true, ErrNotFound},
		{"already approved", f.manager, small.ID, true, ErrConflict},
		{"approve pending", f.manager, pending.ID, true, nil},
		{"second review", f.manager, pending.ID, false, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.approve {
				_, err = f.svc.Transaction.Approve(f.ctx, tt.actor, f.society.ID, tt.txnID, "")
			} else {
				_, err = f.svc.Transaction.Reject(f.ctx, tt.actor, f.society.ID, tt.txnID, "")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := f.svc.Transaction.Get(f.ctx, f.member, f.society.ID, pending.ID)
	f.must(err)
	if !got.IsApproved() {
		t.Errorf("ApprovalStatus = %s after rejected second review, want approved", got.ApprovalStatus)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)

	valid := CreateTransactionRequest{Type: models.TransactionOutward, Category: "Cleaning", Amount: dec(500)}
	tests := []struct {
		name    string
		actor   uuid.UUID
		mutate  func(r *CreateTransactionRequest)
		wantErr error
	}{
		{"member", f.member, func(r *CreateTransactionRequest) {}, ErrForbidden},
		{"unknown type", f.manager, func(r *CreateTransactionRequest) { r.Type = "sideways" }, ErrValidation},
		{"blank category", f.manager, func(r *CreateTransactionRequest) { r.Category = "  " }, ErrValidation},
		{"zero amount", f.manager, func(r *CreateTransactionRequest) { r.Amount = dec(0) }, ErrValidation},
		{"negative amount", f.manager, func(r *CreateTransactionRequest) { r.Amount = dec(-5) }, ErrValidation},
		{"unknown mode", f.manager, func(r *CreateTransactionRequest) { r.PaymentMode = "barter" }, ErrValidation},
		{"valid", f.manager, func(r *CreateTransactionRequest) {}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.svc.Transaction.Create(f.ctx, tt.actor, f.society.ID, req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListAndCountTransactions(t *testing.T) {
	f := newFixture(t)

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	f.record(models.TransactionInward, "Donation", 1000, jan)
	f.record(models.TransactionOutward, "Cleaning", 400, jan)
	f.record(models.TransactionOutward, "Cleaning", 600, feb)
	f.record(models.TransactionOutward, "Insurance", 80000, feb)

	tests := []struct {
		name      string
		req       ListTransactionsRequest
		wantCount int
		wantLen   int
	}{
		{"all", ListTransactionsRequest{}, 4, 4},
		{"outward", ListTransactionsRequest{Type: models.TransactionOutward}, 3, 3},
		{"category", ListTransactionsRequest{Category: "Cleaning"}, 2, 2},
		{"pending", ListTransactionsRequest{Status: models.ApprovalPending}, 1, 1},
		{"january", ListTransactionsRequest{Year: 2026, Month: 1}, 2, 2},
		{"second page", ListTransactionsRequest{Page: 2, Limit: 3}, 4, 1},
		{"limit capped", ListTransactionsRequest{Limit: 500}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := f.svc.Transaction.Count(f.ctx, f.member, f.society.ID, tt.req)
			f.must(err)
			if count != tt.wantCount {
				t.Errorf("Count() = %d, want %d", count, tt.wantCount)
			}
			list, err := f.svc.Transaction.List(f.ctx, f.member, f.society.ID, tt.req)
			f.must(err)
			if len(list) != tt.wantLen {
				t.Errorf("len(List()) = %d, want %d", len(list), tt.wantLen)
			}
		})
	}

	list, err := f.svc.Transaction.List(f.ctx, f.member, f.society.ID, ListTransactionsRequest{})
	f.must(err)
	if !list[0].Date.Equal(feb) || !list[len(list)-1].Date.Equal(jan) {
		t.Errorf("list not newest first: first %s, last %s", list[0].Date, list[len(list)-1].Date)
	}

	if _, err := f.svc.Transaction.List(f.ctx, f.member, f.society.ID, ListTransactionsRequest{Month: 13}); !errors.Is(err, ErrValidation) {
		t.Errorf("month 13 error = %v, want validation", err)
	}
	if _, err := f.svc.Transaction.List(f.ctx, f.outsider, f.society.ID, ListTransactionsRequest{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider error = %v, want forbidden", err)
	}
	if _, err := f.svc.Transaction.Get(f.ctx, f.member, f.society.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing transaction error = %v, want not found", err)
	}
}
