package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DiscountService manages a society's discount schemes
type DiscountService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewDiscountService creates a new discount service
func NewDiscountService(st store.Store) *DiscountService {
	return &DiscountService{
		store: st,
		log:   logger.WithComponent("discount"),
		now:   time.Now,
	}
}

// SchemeRequest contains the fields of a discount scheme
type SchemeRequest struct {
	Name           string
	EligibleMonths int
	FreeMonths     int
	DiscountType   models.DiscountType
	DiscountValue  decimal.Decimal
	IsActive       bool
}

func (r SchemeRequest) validate(op string) error {
	if strings.TrimSpace(r.Name) == "" {
		return validationError(op, "scheme_name is required")
	}
	switch r.DiscountType {
	case models.DiscountTypeFreeMonths:
		if r.EligibleMonths <= 0 {
			return validationError(op, "eligible_months must be positive for free_months schemes")
		}
		if r.FreeMonths < 0 || r.FreeMonths > r.EligibleMonths {
			return validationError(op, "free_months must be between 0 and eligible_months")
		}
	case models.DiscountTypePercentage:
		if r.DiscountValue.IsNegative() || r.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return validationError(op, "percentage discount must be between 0 and 100")
		}
	case models.DiscountTypeFlat:
		if r.DiscountValue.IsNegative() {
			return validationError(op, "flat discount cannot be negative")
		}
	default:
		return validationError(op, "discount_type must be free_months, percentage or flat")
	}
	return nil
}

// ListSchemes returns the society's schemes. Any member may list.
func (s *DiscountService) ListSchemes(ctx context.Context, actorID, societyID uuid.UUID) ([]*models.DiscountScheme, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	schemes, err := s.store.ListDiscountSchemes(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discount schemes: %w", err)
	}
	return schemes, nil
}

// CreateScheme adds a discount scheme. Managers only.
func (s *DiscountService) CreateScheme(ctx context.Context, actorID, societyID uuid.UUID, req SchemeRequest) (*models.DiscountScheme, error) {
	const op = "CreateScheme"

	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if err := req.validate(op); err != nil {
		return nil, err
	}

	now := s.now()
	scheme := &models.DiscountScheme{
		ID:             uuid.New(),
		SocietyID:      societyID,
		Name:           strings.TrimSpace(req.Name),
		EligibleMonths: req.EligibleMonths,
		FreeMonths:     req.FreeMonths,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		IsActive:       req.IsActive,
		CreatedBy:      actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateDiscountScheme(ctx, scheme); err != nil {
		return nil, fmt.Errorf("failed to create discount scheme: %w", err)
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("scheme_id", scheme.ID.String()).
		Str("type", string(scheme.DiscountType)).
		Msg("Discount scheme created")

	return scheme, nil
}

// UpdateScheme replaces a scheme's fields. Managers only.
func (s *DiscountService) UpdateScheme(ctx context.Context, actorID, societyID, schemeID uuid.UUID, req SchemeRequest) (*models.DiscountScheme, error) {
	const op = "UpdateScheme"

	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if err := req.validate(op); err != nil {
		return nil, err
	}

	scheme, err := s.store.GetDiscountScheme(ctx, societyID, schemeID)
	if err != nil {
		return nil, lookupError(op, "discount scheme", err)
	}

	scheme.Name = strings.TrimSpace(req.Name)
	scheme.EligibleMonths = req.EligibleMonths
	scheme.FreeMonths = req.FreeMonths
	scheme.DiscountType = req.DiscountType
	scheme.DiscountValue = req.DiscountValue
	scheme.IsActive = req.IsActive
	scheme.UpdatedAt = s.now()

	if err := s.store.UpdateDiscountScheme(ctx, scheme); err != nil {
		return nil, lookupError(op, "discount scheme", err)
	}
	return scheme, nil
}

// DeleteScheme removes a scheme. Bills keep the id of the scheme that discounted them.
func (s *DiscountService) DeleteScheme(ctx context.Context, actorID, societyID, schemeID uuid.UUID) error {
	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return err
	}
	if err := s.store.DeleteDiscountScheme(ctx, societyID, schemeID); err != nil {
		return lookupError("DeleteScheme", "discount scheme", err)
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("scheme_id", schemeID.String()).
		Msg("Discount scheme deleted")
	return nil
}

// activeScheme resolves an optional scheme id. A missing or inactive scheme,
// or one requested while discounts are disabled, yields nil. A stored scheme
// whose type has no rule is a validation error rather than a silent zero discount.
func activeScheme(ctx context.Context, st store.SettingsStore, settings *models.MaintenanceSettings, schemeID *uuid.UUID) (*models.DiscountScheme, error) {
	if schemeID == nil || *schemeID == uuid.Nil || !settings.DiscountSchemesEnabled {
		return nil, nil
	}
	scheme, err := st.GetDiscountScheme(ctx, settings.SocietyID, *schemeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load discount scheme: %w", err)
	}
	if !scheme.IsActive {
		return nil, nil
	}
	if _, err := scheme.Rule(); err != nil {
		return nil, &Error{
			Kind:    ErrValidation,
			Op:      "ResolveDiscountScheme",
			Message: fmt.Sprintf("discount scheme %q cannot be applied", scheme.Name),
			Err:     err,
		}
	}
	return scheme, nil
}
