package api

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/services"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Request bodies. Amounts are decimals and accept JSON numbers or strings.

type createSocietyRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Address           string          `json:"address" validate:"max=500"`
	TotalFlats        int             `json:"total_flats" validate:"gte=0"`
	Description       string          `json:"description"`
	ApprovalThreshold decimal.Decimal `json:"approval_threshold"`
}

func (r createSocietyRequest) toService() services.CreateSocietyRequest {
	return services.CreateSocietyRequest{
		Name:              strings.TrimSpace(r.Name),
		Address:           strings.TrimSpace(r.Address),
		TotalFlats:        r.TotalFlats,
		Description:       r.Description,
		ApprovalThreshold: r.ApprovalThreshold,
	}
}

type addMembershipRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=manager member"`
}

type addFlatRequest struct {
	FlatNumber string          `json:"flat_number" validate:"required,max=20"`
	Floor      int             `json:"floor"`
	Wing       string          `json:"wing" validate:"max=20"`
	Area       decimal.Decimal `json:"area_sqft"`
	FlatType   string          `json:"flat_type"`
}

type assignFlatMemberRequest struct {
	UserID       uuid.UUID `json:"user_id" validate:"required"`
	RelationType string    `json:"relation_type" validate:"omitempty,oneof=Owner Tenant Family"`
	IsPrimary    bool      `json:"is_primary"`
}

type updateSettingsRequest struct {
	RatePerArea            *decimal.Decimal `json:"default_rate_per_sqft"`
	BillingCycle           *string          `json:"billing_cycle" validate:"omitempty,oneof=monthly quarterly yearly"`
	DueDay                 *int             `json:"due_date_day" validate:"omitempty,min=1,max=31"`
	LateFeeAmount          *decimal.Decimal `json:"late_fee_amount"`
	LateFeeType            *string          `json:"late_fee_type" validate:"omitempty,oneof=flat percentage"`
	DiscountSchemesEnabled *bool            `json:"is_discount_scheme_enabled"`
}

func (r updateSettingsRequest) toService() services.UpdateSettingsRequest {
	req := services.UpdateSettingsRequest{
		RatePerArea:            r.RatePerArea,
		DueDay:                 r.DueDay,
		LateFeeAmount:          r.LateFeeAmount,
		DiscountSchemesEnabled: r.DiscountSchemesEnabled,
	}
	if r.BillingCycle != nil {
		cycle := models.BillingCycle(*r.BillingCycle)
		req.BillingCycle = &cycle
	}
	if r.LateFeeType != nil {
		kind := models.LateFeeType(*r.LateFeeType)
		req.LateFeeType = &kind
	}
	return req
}

type schemeRequest struct {
	Name           string          `json:"scheme_name" validate:"required,max=100"`
	EligibleMonths int             `json:"eligible_months" validate:"gte=0"`
	FreeMonths     int             `json:"free_months" validate:"gte=0"`
	DiscountType   string          `json:"discount_type" validate:"required,oneof=free_months percentage flat"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	IsActive       *bool           `json:"is_active"`
}

func (r schemeRequest) toService() services.SchemeRequest {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return services.SchemeRequest{
		Name:           strings.TrimSpace(r.Name),
		EligibleMonths: r.EligibleMonths,
		FreeMonths:     r.FreeMonths,
		DiscountType:   models.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		IsActive:       active,
	}
}

type generateBillsRequest struct {
	PeriodType          string     `json:"bill_period_type" validate:"required,oneof=monthly yearly"`
	Month               int        `json:"month" validate:"omitempty,min=1,max=12"`
	Year                int        `json:"year" validate:"required,min=2000,max=2100"`
	ApplyDiscountScheme bool       `json:"apply_discount_scheme"`
	DiscountSchemeID    *uuid.UUID `json:"discount_scheme_id"`
	Resume              bool       `json:"resume"`
}

func (r generateBillsRequest) toService() services.GenerateRequest {
	return services.GenerateRequest{
		Period: models.BillPeriod{
			Type:  models.BillPeriodType(r.PeriodType),
			Month: r.Month,
			Year:  r.Year,
		},
		ApplyDiscountScheme: r.ApplyDiscountScheme,
		DiscountSchemeID:    r.DiscountSchemeID,
		Resume:              r.Resume,
	}
}

type annualPreviewRequest struct {
	FlatID           uuid.UUID  `json:"flat_id" validate:"required"`
	Year             int        `json:"year" validate:"required,min=2000,max=2100"`
	DiscountSchemeID *uuid.UUID `json:"discount_scheme_id"`
}

type recordPaymentRequest struct {
	FlatID               uuid.UUID       `json:"flat_id" validate:"required"`
	BillIDs              []uuid.UUID     `json:"bill_ids"`
	AmountPaid           decimal.Decimal `json:"amount_paid"`
	PaymentMode          string          `json:"payment_mode" validate:"omitempty,oneof=cash cheque bank upi online"`
	PaymentDate          string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	TransactionReference string          `json:"transaction_reference" validate:"max=100"`
	Remarks              string          `json:"remarks"`
	IsAnnualPayment      bool            `json:"is_annual_payment"`
	DiscountSchemeID     *uuid.UUID      `json:"discount_scheme_id"`
}

func (r recordPaymentRequest) toService() (services.RecordPaymentRequest, error) {
	date, err := time.Parse("2006-01-02", r.PaymentDate)
	if err != nil {
		return services.RecordPaymentRequest{}, err
	}
	return services.RecordPaymentRequest{
		FlatID:               r.FlatID,
		BillIDs:              r.BillIDs,
		AmountPaid:           r.AmountPaid,
		PaymentMode:          models.PaymentMode(r.PaymentMode),
		PaymentDate:          date,
		TransactionReference: strings.TrimSpace(r.TransactionReference),
		Remarks:              r.Remarks,
		IsAnnualPayment:      r.IsAnnualPayment,
		DiscountSchemeID:     r.DiscountSchemeID,
	}, nil
}

type updateSocietyRequest struct {
	Name              *string          `json:"name" validate:"omitempty,max=200"`
	Address           *string          `json:"address" validate:"omitempty,max=500"`
	TotalFlats        *int             `json:"total_flats" validate:"omitempty,gte=0"`
	Description       *string          `json:"description"`
	ApprovalThreshold *decimal.Decimal `json:"approval_threshold"`
}

func (r updateSocietyRequest) toService() services.UpdateSocietyRequest {
	return services.UpdateSocietyRequest{
		Name:              r.Name,
		Address:           r.Address,
		TotalFlats:        r.TotalFlats,
		Description:       r.Description,
		ApprovalThreshold: r.ApprovalThreshold,
	}
}

type updateMembershipRequest struct {
	Role   *string `json:"role" validate:"omitempty,oneof=manager member"`
	Status *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (r updateMembershipRequest) toService() services.UpdateMembershipRequest {
	var req services.UpdateMembershipRequest
	if r.Role != nil {
		role := models.Role(*r.Role)
		req.Role = &role
	}
	if r.Status != nil {
		status := models.MembershipStatus(*r.Status)
		req.Status = &status
	}
	return req
}

type createTransactionRequest struct {
	Type        string          `json:"type" validate:"required,oneof=inward outward"`
	Category    string          `json:"category" validate:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	VendorName  string          `json:"vendor_name" validate:"max=200"`
	PaymentMode string          `json:"payment_mode" validate:"omitempty,oneof=cash cheque bank upi online"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (r createTransactionRequest) toService() (services.CreateTransactionRequest, error) {
	req := services.CreateTransactionRequest{
		Type:        models.TransactionType(r.Type),
		Category:    strings.TrimSpace(r.Category),
		Amount:      r.Amount,
		Description: r.Description,
		VendorName:  r.VendorName,
		PaymentMode: models.PaymentMode(r.PaymentMode),
	}
	if r.Date != "" {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return services.CreateTransactionRequest{}, err
		}
		req.Date = date
	}
	return req, nil
}

type reviewRequest struct {
	Comments string `json:"comments" validate:"max=1000"`
}
