package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/shopspring/decimal"
)

// ReportService produces read-only rollups of bills, payments and transactions.
// Sums are kept at full precision and rounded when the result is built.
type ReportService struct {
	store store.Store
	now   func() time.Time
}

// NewReportService creates a new report service
func NewReportService(st store.Store) *ReportService {
	return &ReportService{store: st, now: time.Now}
}

var hundred = decimal.NewFromInt(100)

// percentOf returns part/whole*100 rounded to places, or zero when whole is zero
func percentOf(part, whole decimal.Decimal, places int32) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(places)
}

// MonthCollection is one month of the collection breakdown
type MonthCollection struct {
	Month     int             `json:"month"`
	Billed    decimal.Decimal `json:"billed"`
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
}

// CollectionDashboard is the collection status of a year, or of one month
type CollectionDashboard struct {
	Year                 int                       `json:"year"`
	Month                int                       `json:"month,omitempty"`
	TotalFlats           int                       `json:"total_flats"`
	PaidFlats            int                       `json:"paid_flats"`
	PendingFlats         int                       `json:"pending_flats"`
	OverdueFlats         int                       `json:"overdue_flats"`
	StatusCounts         map[models.BillStatus]int `json:"status_counts"`
	TotalBilled          decimal.Decimal           `json:"total_billed"`
	TotalCollected       decimal.Decimal           `json:"total_collected"`
	TotalOutstanding     decimal.Decimal           `json:"total_outstanding"`
	CollectionPercentage decimal.Decimal           `json:"collection_percentage"`
	MonthWiseCollection  []MonthCollection         `json:"month_wise_collection"`
	RecentPayments       []*models.Payment         `json:"recent_payments"`
}

// CollectionDashboard summarizes billed against collected amounts. Year
// defaults to the current year; month 0 covers the whole year. The monthly
// breakdown always covers the whole year and only monthly bills.
func (s *ReportService) CollectionDashboard(ctx context.Context, actorID, societyID uuid.UUID, year, month int) (*CollectionDashboard, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year()
	}
	if month < 0 || month > 12 {
		return nil, validationError("CollectionDashboard", "month must be between 1 and 12")
	}

	yearBills, err := s.store.ListBills(ctx, societyID, store.BillFilter{Year: year})
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	dash := &CollectionDashboard{
		Year:         year,
		Month:        month,
		StatusCounts: map[models.BillStatus]int{},
	}

	billed, collected := decimal.Zero, decimal.Zero
	flats := make(map[uuid.UUID]bool)
	months := make([]MonthCollection, 12)
	for i := range months {
		months[i] = MonthCollection{Month: i + 1, Billed: decimal.Zero, Collected: decimal.Zero}
	}

	for _, bill := range yearBills {
		if bill.PeriodType == models.BillPeriodMonthly && bill.Month >= 1 && bill.Month <= 12 {
			row := &months[bill.Month-1]
			row.Billed = row.Billed.Add(bill.FinalPayableAmount)
			row.Collected = row.Collected.Add(bill.PaidAmount)
		}

		if month != 0 && bill.Month != month {
			continue
		}
		flats[bill.FlatID] = true
		dash.StatusCounts[bill.Status]++
		billed = billed.Add(bill.FinalPayableAmount)
		collected = collected.Add(bill.PaidAmount)
	}

	dash.TotalFlats = len(flats)
	dash.PaidFlats = dash.StatusCounts[models.BillStatusPaid]
	dash.PendingFlats = dash.StatusCounts[models.BillStatusPending] + dash.StatusCounts[models.BillStatusPartial]
	dash.OverdueFlats = dash.StatusCounts[models.BillStatusOverdue]
	dash.TotalBilled = billed.Round(2)
	dash.TotalCollected = collected.Round(2)
	dash.TotalOutstanding = billed.Sub(collected).Round(2)
	dash.CollectionPercentage = percentOf(collected, billed, 2)

	for i := range months {
		months[i].Pending = months[i].Billed.Sub(months[i].Collected).Round(2)
		months[i].Billed = months[i].Billed.Round(2)
		months[i].Collected = months[i].Collected.Round(2)
	}
	dash.MonthWiseCollection = months

	recent, err := s.store.ListPayments(ctx, societyID, store.PaymentFilter{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent payments: %w", err)
	}
	if recent == nil {
		recent = []*models.Payment{}
	}
	dash.RecentPayments = recent

	return dash, nil
}

// MonthlySummary is one month of approved income and expense
type MonthlySummary struct {
	Month            int             `json:"month"`
	Year             int             `json:"year"`
	TotalInward      decimal.Decimal `json:"total_inward"`
	TotalOutward     decimal.Decimal `json:"total_outward"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transaction_count"`
}

// MonthlySummary returns twelve rows of approved income and expense for the year
func (s *ReportService) MonthlySummary(ctx context.Context, actorID, societyID uuid.UUID, year int) ([]MonthlySummary, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year()
	}

	txns, err := s.store.ListTransactions(ctx, societyID, store.TransactionFilter{Year: year, ApprovedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	rows := make([]MonthlySummary, 12)
	for i := range rows {
		rows[i] = MonthlySummary{Month: i + 1, Year: year, TotalInward: decimal.Zero, TotalOutward: decimal.Zero}
	}
	for _, t := range txns {
		row := &rows[int(t.Date.Month())-1]
		switch t.Type {
		case models.TransactionInward:
			row.TotalInward = row.TotalInward.Add(t.Amount)
		case models.TransactionOutward:
			row.TotalOutward = row.TotalOutward.Add(t.Amount)
		}
		row.TransactionCount++
	}
	for i := range rows {
		rows[i].Net = rows[i].TotalInward.Sub(rows[i].TotalOutward).Round(2)
		rows[i].TotalInward = rows[i].TotalInward.Round(2)
		rows[i].TotalOutward = rows[i].TotalOutward.Round(2)
	}
	return rows, nil
}

// CategorySpending is the approved expense of one category
type CategorySpending struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CategorySpending groups approved expenses by category, largest first.
// Zero year or month means no filter.
func (s *ReportService) CategorySpending(ctx context.Context, actorID, societyID uuid.UUID, year, month int) ([]CategorySpending, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}

	txns, err := s.store.ListTransactions(ctx, societyID, store.TransactionFilter{
		Type:         models.TransactionOutward,
		Year:         year,
		Month:        month,
		ApprovedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	byCategory := make(map[string]*CategorySpending)
	total := decimal.Zero
	for _, t := range txns {
		c, ok := byCategory[t.Category]
		if !ok {
			c = &CategorySpending{Category: t.Category, Total: decimal.Zero}
			byCategory[t.Category] = c
		}
		c.Total = c.Total.Add(t.Amount)
		c.Count++
		total = total.Add(t.Amount)
	}

	result := make([]CategorySpending, 0, len(byCategory))
	for _, c := range byCategory {
		c.Percentage = percentOf(c.Total, total, 1)
		c.Total = c.Total.Round(2)
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Total.Equal(result[j].Total) {
			return result[i].Total.GreaterThan(result[j].Total)
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

// OutstandingDue is an unpaid bill with what is still owed on it
type OutstandingDue struct {
	*models.MaintenanceBill
	Outstanding decimal.Decimal `json:"outstanding"`
}

// OutstandingDues lists every pending, partial or overdue bill
func (s *ReportService) OutstandingDues(ctx context.Context, actorID, societyID uuid.UUID) ([]OutstandingDue, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}

	bills, err := s.store.ListBills(ctx, societyID, store.BillFilter{
		Statuses: []models.BillStatus{models.BillStatusPending, models.BillStatusPartial, models.BillStatusOverdue},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	dues := make([]OutstandingDue, 0, len(bills))
	for _, bill := range bills {
		dues = append(dues, OutstandingDue{MaintenanceBill: bill, Outstanding: bill.Outstanding().Round(2)})
	}
	return dues, nil
}

// AnnualSummary is a society's financial year at a glance
type AnnualSummary struct {
	Year             int             `json:"year"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	NetBalance       decimal.Decimal `json:"net_balance"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	CollectionRate   decimal.Decimal `json:"collection_rate"`
	TransactionCount int             `json:"transaction_count"`
}

// AnnualSummary totals approved transactions and the year's bills
func (s *ReportService) AnnualSummary(ctx context.Context, actorID, societyID uuid.UUID, year int) (*AnnualSummary, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year()
	}

	txns, err := s.store.ListTransactions(ctx, societyID, store.TransactionFilter{Year: year, ApprovedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	bills, err := s.store.ListBills(ctx, societyID, store.BillFilter{Year: year})
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t.Type == models.TransactionInward {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	billed, collected := decimal.Zero, decimal.Zero
	for _, bill := range bills {
		billed = billed.Add(bill.FinalPayableAmount)
		collected = collected.Add(bill.PaidAmount)
	}

	return &AnnualSummary{
		Year:             year,
		TotalIncome:      income.Round(2),
		TotalExpense:     expense.Round(2),
		NetBalance:       income.Sub(expense).Round(2),
		TotalBilled:      billed.Round(2),
		TotalCollected:   collected.Round(2),
		CollectionRate:   percentOf(collected, billed, 1),
		TransactionCount: len(txns),
	}, nil
}

// TrendPoint is one calendar month of approved income and expense
type TrendPoint struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Inward  decimal.Decimal `json:"inward"`
	Outward decimal.Decimal `json:"outward"`
}

// SocietyDashboard is the landing view of a society
type SocietyDashboard struct {
	SocietyBalance     decimal.Decimal       `json:"society_balance"`
	TotalInward        decimal.Decimal       `json:"total_inward"`
	TotalOutward       decimal.Decimal       `json:"total_outward"`
	PendingDues        int                   `json:"pending_dues"`
	PendingApprovals   int                   `json:"pending_approvals"`
	RecentTransactions []*models.Transaction `json:"recent_transactions"`
	MonthlyTrend       []TrendPoint          `json:"monthly_trend"`
	MemberCount        int                   `json:"member_count"`
	FlatCount          int                   `json:"flat_count"`
}

const trendMonths = 6

// SocietyDashboard summarizes the society's books. Balance and totals cover
// every approved transaction; the trend covers the last six calendar months
// ending with the current one.
func (s *ReportService) SocietyDashboard(ctx context.Context, actorID, societyID uuid.UUID) (*SocietyDashboard, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}

	approved, err := s.store.ListTransactions(ctx, societyID, store.TransactionFilter{ApprovedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	now := s.now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	trend := make([]TrendPoint, trendMonths)
	index := make(map[[2]int]int, trendMonths)
	for i := range trend {
		m := current.AddDate(0, i-(trendMonths-1), 0)
		trend[i] = TrendPoint{Year: m.Year(), Month: int(m.Month()), Inward: decimal.Zero, Outward: decimal.Zero}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}

	inward, outward := decimal.Zero, decimal.Zero
	for _, t := range approved {
		i, inTrend := index[[2]int{t.Date.Year(), int(t.Date.Month())}]
		switch t.Type {
		case models.TransactionInward:
			inward = inward.Add(t.Amount)
			if inTrend {
				trend[i].Inward = trend[i].Inward.Add(t.Amount)
			}
		case models.TransactionOutward:
			outward = outward.Add(t.Amount)
			if inTrend {
				trend[i].Outward = trend[i].Outward.Add(t.Amount)
			}
		}
	}
	for i := range trend {
		trend[i].Inward = trend[i].Inward.Round(2)
		trend[i].Outward = trend[i].Outward.Round(2)
	}

	openBills, err := s.store.ListBills(ctx, societyID, store.BillFilter{
		Statuses: []models.BillStatus{models.BillStatusPending, models.BillStatusPartial, models.BillStatusOverdue},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	pending, err := s.store.CountTransactions(ctx, societyID, store.TransactionFilter{Status: models.ApprovalPending})
	if err != nil {
		return nil, fmt.Errorf("failed to count pending transactions: %w", err)
	}
	recent, err := s.store.ListTransactions(ctx, societyID, store.TransactionFilter{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	if recent == nil {
		recent = []*models.Transaction{}
	}
	members, err := activeMemberCount(ctx, s.store, societyID)
	if err != nil {
		return nil, err
	}
	flats, err := s.store.ListFlats(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}

	return &SocietyDashboard{
		SocietyBalance:     inward.Sub(outward).Round(2),
		TotalInward:        inward.Round(2),
		TotalOutward:       outward.Round(2),
		PendingDues:        len(openBills),
		PendingApprovals:   pending,
		RecentTransactions: recent,
		MonthlyTrend:       trend,
		MemberCount:        members,
		FlatCount:          len(flats),
	}, nil
}

func activeMemberCount(ctx context.Context, st store.DirectoryStore, societyID uuid.UUID) (int, error) {
	memberships, err := st.ListMemberships(ctx, societyID)
	if err != nil {
		return 0, fmt.Errorf("failed to list memberships: %w", err)
	}
	count := 0
	for _, m := range memberships {
		if m.IsActive() {
			count++
		}
	}
	return count, nil
}
