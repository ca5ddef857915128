package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingCycle represents how often a society bills maintenance
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
)

// IsValid checks the cycle against the known set
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly:
		return true
	}
	return false
}

// LateFeeType represents how a late fee is computed
type LateFeeType string

const (
	LateFeeFlat       LateFeeType = "flat"       // Fixed amount per overdue bill
	LateFeePercentage LateFeeType = "percentage" // Percentage of the final payable amount
)

// IsValid checks the late fee type against the known set
func (t LateFeeType) IsValid() bool {
	return t == LateFeeFlat || t == LateFeePercentage
}

// Default settings applied to a society that has never configured billing
var (
	DefaultRatePerArea  = decimal.NewFromFloat(5.0)
	DefaultDueDay       = 10
	DefaultBillingCycle = BillingCycleMonthly
)

// MaintenanceSettings is the billing configuration of a single society
type MaintenanceSettings struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	SocietyID              uuid.UUID       `json:"society_id" db:"society_id"`
	RatePerArea            decimal.Decimal `json:"default_rate_per_sqft" db:"rate_per_area"`
	BillingCycle           BillingCycle    `json:"billing_cycle" db:"billing_cycle"`
	DueDay                 int             `json:"due_date_day" db:"due_day"`
	LateFeeAmount          decimal.Decimal `json:"late_fee_amount" db:"late_fee_amount"`
	LateFeeType            LateFeeType     `json:"late_fee_type" db:"late_fee_type"`
	DiscountSchemesEnabled bool            `json:"is_discount_scheme_enabled" db:"discount_schemes_enabled"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultMaintenanceSettings returns the default configuration for a society.
// The returned value is not persisted.
func DefaultMaintenanceSettings(societyID uuid.UUID) MaintenanceSettings {
	now := time.Now()
	return MaintenanceSettings{
		ID:                     uuid.New(),
		SocietyID:              societyID,
		RatePerArea:            DefaultRatePerArea,
		BillingCycle:           DefaultBillingCycle,
		DueDay:                 DefaultDueDay,
		LateFeeAmount:          decimal.Zero,
		LateFeeType:            LateFeeFlat,
		DiscountSchemesEnabled: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// HasLateFee returns true if overdue bills should be charged a late fee
func (s *MaintenanceSettings) HasLateFee() bool {
	return s.LateFeeAmount.IsPositive()
}

// CalculateLateFee computes the late fee for a bill's final payable amount
func (s *MaintenanceSettings) CalculateLateFee(finalPayable decimal.Decimal) decimal.Decimal {
	if s.LateFeeType == LateFeePercentage {
		return finalPayable.Mul(s.LateFeeAmount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return s.LateFeeAmount.Round(2)
}

// EffectiveDueDay clamps the configured due day to 28 so every month has it
func (s *MaintenanceSettings) EffectiveDueDay() int {
	day := s.DueDay
	if day < 1 {
		day = 1
	}
	if day > 28 {
		day = 28
	}
	return day
}
