package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType represents how a discount scheme reduces a bill
type DiscountType string

const (
	DiscountTypeFreeMonths DiscountType = "free_months" // e.g. pay 12 get 1 free
	DiscountTypePercentage DiscountType = "percentage"  // percentage off the total
	DiscountTypeFlat       DiscountType = "flat"        // fixed amount off the total
)

// DiscountScheme is the stored form of a society's discount policy
type DiscountScheme struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SocietyID      uuid.UUID       `json:"society_id" db:"society_id"`
	Name           string          `json:"scheme_name" db:"name"`
	EligibleMonths int             `json:"eligible_months" db:"eligible_months"`
	FreeMonths     int             `json:"free_months" db:"free_months"`
	DiscountType   DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value" db:"discount_value"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	CreatedBy      uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// DiscountRule is the closed set of discount policies.
// Only the types in this package implement it.
type DiscountRule interface {
	Type() DiscountType
	discountOn(total decimal.Decimal) decimal.Decimal
}

// FreeMonthsRule waives FreeMonths out of every EligibleMonths billed
type FreeMonthsRule struct {
	EligibleMonths int
	FreeMonths     int
}

// PercentageRule takes Value percent off the total
type PercentageRule struct {
	Value decimal.Decimal
}

// FlatAmountRule takes a fixed Value off the total regardless of its size
type FlatAmountRule struct {
	Value decimal.Decimal
}

func (FreeMonthsRule) Type() DiscountType { return DiscountTypeFreeMonths }
func (PercentageRule) Type() DiscountType { return DiscountTypePercentage }
func (FlatAmountRule) Type() DiscountType { return DiscountTypeFlat }

func (r FreeMonthsRule) discountOn(total decimal.Decimal) decimal.Decimal {
	if r.EligibleMonths <= 0 {
		return decimal.Zero
	}
	monthly := total.Div(decimal.NewFromInt(int64(r.EligibleMonths)))
	return monthly.Mul(decimal.NewFromInt(int64(r.FreeMonths)))
}

func (r PercentageRule) discountOn(total decimal.Decimal) decimal.Decimal {
	return total.Mul(r.Value.Div(decimal.NewFromInt(100)))
}

func (r FlatAmountRule) discountOn(total decimal.Decimal) decimal.Decimal {
	return r.Value
}

// Rule converts the stored scheme into its discount rule
func (s *DiscountScheme) Rule() (DiscountRule, error) {
	switch s.DiscountType {
	case DiscountTypeFreeMonths:
		return FreeMonthsRule{EligibleMonths: s.EligibleMonths, FreeMonths: s.FreeMonths}, nil
	case DiscountTypePercentage:
		return PercentageRule{Value: s.DiscountValue}, nil
	case DiscountTypeFlat:
		return FlatAmountRule{Value: s.DiscountValue}, nil
	default:
		return nil, fmt.Errorf("unknown discount type %q", s.DiscountType)
	}
}

// DiscountResult is the outcome of applying a scheme to a bill total
type DiscountResult struct {
	Total    decimal.Decimal `json:"total"`
	Discount decimal.Decimal `json:"discount"`
	Final    decimal.Decimal `json:"final"`
}

// HasDiscount returns true if a non-zero discount was applied
func (r DiscountResult) HasDiscount() bool {
	return !r.Discount.IsZero()
}

// ApplyDiscount applies an optional scheme to a total.
// A nil or inactive scheme gives no discount, and so does a scheme whose type
// has no rule; services check Rule before choosing a scheme. The final amount is not floored,
// so a misconfigured flat scheme can produce a negative final amount.
func ApplyDiscount(total decimal.Decimal, scheme *DiscountScheme) DiscountResult {
	result := DiscountResult{Total: total, Discount: decimal.Zero, Final: total.Round(2)}
	if scheme == nil || !scheme.IsActive {
		return result
	}

	rule, err := scheme.Rule()
	if err != nil {
		return result
	}

	result.Discount = rule.discountOn(total).Round(2)
	result.Final = total.Sub(result.Discount).Round(2)
	return result
}
