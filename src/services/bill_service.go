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

// BillService previews, generates and lists maintenance bills
type BillService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewBillService creates a new bill service
func NewBillService(st store.Store) *BillService {
	return &BillService{
		store: st,
		log:   logger.WithComponent("billing"),
		now:   time.Now,
	}
}

// GenerateRequest contains parameters for previewing or generating a billing period
type GenerateRequest struct {
	Period              models.BillPeriod
	ApplyDiscountScheme bool
	DiscountSchemeID    *uuid.UUID

	// Resume bills only the flats that have no bill for the period yet,
	// instead of rejecting a period that is already (partly) generated.
	Resume bool
}

// PreviewBill is what generation would produce for one flat
type PreviewBill struct {
	FlatID               uuid.UUID       `json:"flat_id"`
	FlatNumber           string          `json:"flat_number"`
	Area                 decimal.Decimal `json:"area_sqft"`
	RatePerArea          decimal.Decimal `json:"rate_per_sqft"`
	Months               int             `json:"months"`
	AmountBeforeDiscount decimal.Decimal `json:"amount_before_discount"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	FinalAmount          decimal.Decimal `json:"final_amount"`
}

// PreviewResult is what generation would produce for the whole society
type PreviewResult struct {
	Period              models.BillPeriod `json:"period"`
	TotalFlats          int               `json:"total_flats"`
	TotalArea           decimal.Decimal   `json:"total_area_sqft"`
	RatePerArea         decimal.Decimal   `json:"rate_per_sqft"`
	TotalBeforeDiscount decimal.Decimal   `json:"total_collection_before_discount"`
	EstimatedDiscount   decimal.Decimal   `json:"estimated_discount"`
	TotalAfterDiscount  decimal.Decimal   `json:"total_collection_after_discount"`
	DiscountSchemeID    *uuid.UUID        `json:"discount_scheme_id,omitempty"`
	BillsPreview        []PreviewBill     `json:"bills_preview"`
}

// GenerateResult summarizes a generation run
type GenerateResult struct {
	BillsCreated  int             `json:"bills_created"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Period        string          `json:"period"`
	SkippedFlats  int             `json:"skipped_flats"`  // no positive area
	ExistingBills int             `json:"existing_bills"` // already billed, with Resume
}

// billingPlan is the computed, not yet persisted, outcome of a period run
type billingPlan struct {
	settings *models.MaintenanceSettings
	scheme   *models.DiscountScheme
	flats    []*models.Flat
	results  map[uuid.UUID]models.DiscountResult
	skipped  int
}

func (s *BillService) plan(ctx context.Context, societyID uuid.UUID, req GenerateRequest) (*billingPlan, error) {
	settings, err := settingsOrDefault(ctx, s.store, societyID)
	if err != nil {
		return nil, err
	}

	p := &billingPlan{settings: settings, results: make(map[uuid.UUID]models.DiscountResult)}
	if req.ApplyDiscountScheme {
		p.scheme, err = activeScheme(ctx, s.store, settings, req.DiscountSchemeID)
		if err != nil {
			return nil, err
		}
	}

	flats, err := s.store.ListFlats(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}
	for _, flat := range flats {
		if !flat.IsBillable() {
			p.skipped++
			continue
		}
		amount := models.CalculateBillAmount(flat.Area, settings.RatePerArea, req.Period)
		p.results[flat.ID] = models.ApplyDiscount(amount, p.scheme)
		p.flats = append(p.flats, flat)
	}
	return p, nil
}

func (p *billingPlan) schemeID() *uuid.UUID {
	if p.scheme == nil {
		return nil
	}
	id := p.scheme.ID
	return &id
}

// Preview computes what Generate would produce without writing anything. Managers only.
func (s *BillService) Preview(ctx context.Context, actorID, societyID uuid.UUID, req GenerateRequest) (*PreviewResult, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if err := req.Period.Validate(); err != nil {
		return nil, validationError("PreviewBills", "%s", err.Error())
	}
	period := req.Period.Normalize()
	req.Period = period

	p, err := s.plan(ctx, societyID, req)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Period:              period,
		TotalFlats:          len(p.flats),
		TotalArea:           decimal.Zero,
		RatePerArea:         p.settings.RatePerArea,
		TotalBeforeDiscount: decimal.Zero,
		EstimatedDiscount:   decimal.Zero,
		TotalAfterDiscount:  decimal.Zero,
		DiscountSchemeID:    p.schemeID(),
		BillsPreview:        make([]PreviewBill, 0, len(p.flats)),
	}
	for _, flat := range p.flats {
		r := p.results[flat.ID]
		result.BillsPreview = append(result.BillsPreview, PreviewBill{
			FlatID:               flat.ID,
			FlatNumber:           flat.FlatNumber,
			Area:                 flat.Area,
			RatePerArea:          p.settings.RatePerArea,
			Months:               period.Months(),
			AmountBeforeDiscount: r.Total.Round(2),
			DiscountAmount:       r.Discount,
			FinalAmount:          r.Final,
		})
		result.TotalArea = result.TotalArea.Add(flat.Area)
		result.TotalBeforeDiscount = result.TotalBeforeDiscount.Add(r.Total)
		result.EstimatedDiscount = result.EstimatedDiscount.Add(r.Discount)
		result.TotalAfterDiscount = result.TotalAfterDiscount.Add(r.Final)
	}
	result.TotalBeforeDiscount = result.TotalBeforeDiscount.Round(2)
	result.EstimatedDiscount = result.EstimatedDiscount.Round(2)
	result.TotalAfterDiscount = result.TotalAfterDiscount.Round(2)

	return result, nil
}

// Generate creates one bill per billable flat for the period, with its
// ledger entries and a notification to the primary occupant. Managers only.
//
// A period that already has bills is rejected with a conflict unless Resume
// is set, in which case only flats without a bill are billed. Each flat's
// bill and ledger entries are written in one store transaction.
func (s *BillService) Generate(ctx context.Context, actorID, societyID uuid.UUID, req GenerateRequest) (*GenerateResult, error) {
	const op = "GenerateBills"

	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}

	// 1. Validate the period
	if err := req.Period.Validate(); err != nil {
		return nil, validationError(op, "%s", err.Error())
	}
	period := req.Period.Normalize()
	req.Period = period

	// 2. Period-level idempotence
	existing, err := s.store.CountBillsForPeriod(ctx, societyID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to count bills: %w", err)
	}
	if existing > 0 && !req.Resume {
		return nil, conflictError(op, "bills already generated for %s", period)
	}

	billed := make(map[uuid.UUID]bool)
	if existing > 0 {
		bills, err := s.store.ListBills(ctx, societyID, store.BillFilter{
			PeriodType: period.Type,
			Month:      period.Month,
			Year:       period.Year,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list existing bills: %w", err)
		}
		for _, bill := range bills {
			billed[bill.FlatID] = true
		}
	}

	// 3. Settings, scheme and per-flat amounts
	p, err := s.plan(ctx, societyID, req)
	if err != nil {
		return nil, err
	}

	log := s.log.With().
		Str("society_id", societyID.String()).
		Str("period", period.String()).
		Logger()

	result := &GenerateResult{
		TotalAmount:  decimal.Zero,
		Period:       period.String(),
		SkippedFlats: p.skipped,
	}

	// 4-6. Persist each flat's bill, ledger entries and notification
	for _, flat := range p.flats {
		if billed[flat.ID] {
			result.ExistingBills++
			continue
		}

		bill, err := s.billFlat(ctx, actorID, flat, period, p)
		if errors.Is(err, store.ErrDuplicate) {
			log.Warn().Str("flat_number", flat.FlatNumber).Msg("Flat already billed for period, skipping")
			result.ExistingBills++
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("flat_number", flat.FlatNumber).Msg("Bill generation stopped")
			return nil, fmt.Errorf("failed to bill flat %s: %w", flat.FlatNumber, err)
		}

		result.BillsCreated++
		result.TotalAmount = result.TotalAmount.Add(bill.FinalPayableAmount)
	}

	log.Info().
		Int("bills_created", result.BillsCreated).
		Int("skipped_flats", result.SkippedFlats).
		Int("existing_bills", result.ExistingBills).
		Str("total_amount", result.TotalAmount.StringFixed(2)).
		Msg("Maintenance bills generated")

	return result, nil
}

// billFlat persists a single flat's bill together with its ledger entries.
// The ledger is debited the gross amount; a discount is a separate credit.
func (s *BillService) billFlat(ctx context.Context, actorID uuid.UUID, flat *models.Flat, period models.BillPeriod, p *billingPlan) (*models.MaintenanceBill, error) {
	occupant, err := primaryOccupant(ctx, s.store, flat.ID)
	if err != nil {
		return nil, err
	}

	discount := p.results[flat.ID]
	bill := models.NewMaintenanceBillBuilder().
		ForFlat(flat, occupant).
		WithPeriod(period, p.settings.EffectiveDueDay()).
		WithAmounts(p.settings.RatePerArea, discount, p.schemeID()).
		WithCreatedBy(actorID).
		Build()
	now := s.now()
	bill.CreatedAt = now
	bill.UpdatedAt = now

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.CreateBill(ctx, bill); err != nil {
			return err
		}

		_, err := appendLedgerEntry(ctx, tx, AppendRequest{
			SocietyID:     bill.SocietyID,
			FlatID:        bill.FlatID,
			EntryType:     models.EntryTypeBillGenerated,
			ReferenceID:   bill.ID,
			ReferenceType: models.ReferenceBill,
			DebitAmount:   bill.TotalBeforeDiscount,
			Notes:         fmt.Sprintf("Maintenance bill for %s", period),
			CreatedBy:     actorID,
		}, now)
		if err != nil {
			return err
		}

		if discount.HasDiscount() {
			_, err := appendLedgerEntry(ctx, tx, AppendRequest{
				SocietyID:     bill.SocietyID,
				FlatID:        bill.FlatID,
				EntryType:     models.EntryTypeDiscountApplied,
				ReferenceID:   bill.ID,
				ReferenceType: models.ReferenceBill,
				CreditAmount:  bill.DiscountAmount,
				Notes:         fmt.Sprintf("Discount on maintenance bill for %s", period),
				CreatedBy:     actorID,
			}, now)
			if err != nil {
				return err
			}
		}

		return enqueueNotification(ctx, tx, bill.SocietyID, occupant,
			"Maintenance Bill Generated",
			fmt.Sprintf("Your maintenance bill of Rs.%s for %s is due on %s",
				bill.FinalPayableAmount.StringFixed(2), period, bill.DueDate.Format("2006-01-02")),
			models.NotificationBilling, now)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// ListBillsRequest filters a bill listing. Page starts at 1.
type ListBillsRequest struct {
	Month  int
	Year   int
	Status models.BillStatus
	FlatID uuid.UUID
	Page   int
	Limit  int
}

// ListBills returns bills of the society. Members only see bills addressed to them.
func (s *BillService) ListBills(ctx context.Context, actorID, societyID uuid.UUID, req ListBillsRequest) ([]*models.MaintenanceBill, error) {
	membership, err := requireMember(ctx, s.store, actorID, societyID)
	if err != nil {
		return nil, err
	}

	filter := store.BillFilter{
		Month:  req.Month,
		Year:   req.Year,
		FlatID: req.FlatID,
		Limit:  req.Limit,
	}
	if req.Status != "" {
		filter.Statuses = []models.BillStatus{req.Status}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if req.Page > 1 {
		filter.Offset = (req.Page - 1) * filter.Limit
	}
	if membership.Role != models.RoleManager {
		filter.MemberID = actorID
	}

	bills, err := s.store.ListBills(ctx, societyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, nil
}

// GetBill returns a single bill. Members may only read their own bills.
func (s *BillService) GetBill(ctx context.Context, actorID, societyID, billID uuid.UUID) (*models.MaintenanceBill, error) {
	const op = "GetBill"

	membership, err := requireMember(ctx, s.store, actorID, societyID)
	if err != nil {
		return nil, err
	}
	bill, err := s.store.GetBill(ctx, societyID, billID)
	if err != nil {
		return nil, lookupError(op, "bill", err)
	}
	if membership.Role != models.RoleManager && bill.MemberID != actorID {
		return nil, forbiddenError(op, "insufficient permissions")
	}
	return bill, nil
}

// AnnualPreviewRequest contains parameters for an annual payment preview
type AnnualPreviewRequest struct {
	FlatID           uuid.UUID
	Year             int
	DiscountSchemeID *uuid.UUID
}

// AnnualPaymentPreview is the amount due when a flat pays a full year upfront
type AnnualPaymentPreview struct {
	FlatID              uuid.UUID       `json:"flat_id"`
	FlatNumber          string          `json:"flat_number"`
	Year                int             `json:"year"`
	Area                decimal.Decimal `json:"area_sqft"`
	RatePerArea         decimal.Decimal `json:"rate_per_sqft"`
	MonthlyAmount       decimal.Decimal `json:"monthly_amount"`
	TotalMonths         int             `json:"total_months"`
	TotalBeforeDiscount decimal.Decimal `json:"total_before_discount"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	FinalPayable        decimal.Decimal `json:"final_payable"`
	DiscountSchemeID    *uuid.UUID      `json:"discount_scheme_id,omitempty"`
	PendingMonths       int             `json:"pending_months"`
	AlreadyPaidMonths   int             `json:"already_paid_months"`
}

// AnnualPaymentPreview computes the annual amount for a flat with an optional
// scheme, and how many of the year's monthly bills are already paid.
func (s *BillService) AnnualPaymentPreview(ctx context.Context, actorID, societyID uuid.UUID, req AnnualPreviewRequest) (*AnnualPaymentPreview, error) {
	const op = "AnnualPaymentPreview"

	membership, err := requireMember(ctx, s.store, actorID, societyID)
	if err != nil {
		return nil, err
	}
	if req.Year <= 0 {
		return nil, validationError(op, "year must be positive")
	}

	flat, err := s.store.GetFlat(ctx, societyID, req.FlatID)
	if err != nil {
		return nil, lookupError(op, "flat", err)
	}
	if membership.Role != models.RoleManager {
		occupant, err := primaryOccupant(ctx, s.store, flat.ID)
		if err != nil {
			return nil, err
		}
		if occupant != actorID {
			return nil, forbiddenError(op, "insufficient permissions")
		}
	}

	settings, err := settingsOrDefault(ctx, s.store, societyID)
	if err != nil {
		return nil, err
	}
	scheme, err := activeScheme(ctx, s.store, settings, req.DiscountSchemeID)
	if err != nil {
		return nil, err
	}

	period := models.YearlyPeriod(req.Year)
	total := models.CalculateBillAmount(flat.Area, settings.RatePerArea, period)
	discount := models.ApplyDiscount(total, scheme)

	paid, err := s.store.ListBills(ctx, societyID, store.BillFilter{
		PeriodType: models.BillPeriodMonthly,
		Year:       req.Year,
		FlatID:     flat.ID,
		Statuses:   []models.BillStatus{models.BillStatusPaid},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list paid bills: %w", err)
	}

	preview := &AnnualPaymentPreview{
		FlatID:              flat.ID,
		FlatNumber:          flat.FlatNumber,
		Year:                req.Year,
		Area:                flat.Area,
		RatePerArea:         settings.RatePerArea,
		MonthlyAmount:       flat.Area.Mul(settings.RatePerArea).Round(2),
		TotalMonths:         period.Months(),
		TotalBeforeDiscount: discount.Total.Round(2),
		DiscountAmount:      discount.Discount,
		FinalPayable:        discount.Final,
		AlreadyPaidMonths:   len(paid),
		PendingMonths:       period.Months() - len(paid),
	}
	if discount.HasDiscount() {
		preview.DiscountSchemeID = &scheme.ID
	}
	return preview, nil
}

// MissingBill is a billable flat without a bill for a period
type MissingBill struct {
	FlatID     uuid.UUID       `json:"flat_id"`
	FlatNumber string          `json:"flat_number"`
	Area       decimal.Decimal `json:"area_sqft"`
}

// MissingBills lists billable flats that have no bill for the period, e.g.
// after a generation run that stopped part way. Managers only.
func (s *BillService) MissingBills(ctx context.Context, actorID, societyID uuid.UUID, period models.BillPeriod) ([]MissingBill, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, validationError("MissingBills", "%s", err.Error())
	}
	period = period.Normalize()

	flats, err := s.store.ListFlats(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}
	bills, err := s.store.ListBills(ctx, societyID, store.BillFilter{
		PeriodType: period.Type,
		Month:      period.Month,
		Year:       period.Year,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	billed := make(map[uuid.UUID]bool, len(bills))
	for _, bill := range bills {
		billed[bill.FlatID] = true
	}

	missing := []MissingBill{}
	for _, flat := range flats {
		if flat.IsBillable() && !billed[flat.ID] {
			missing = append(missing, MissingBill{FlatID: flat.ID, FlatNumber: flat.FlatNumber, Area: flat.Area})
		}
	}
	return missing, nil
}
