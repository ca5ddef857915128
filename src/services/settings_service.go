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

// SettingsService provides each society's maintenance settings
type SettingsService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewSettingsService creates a new settings service
func NewSettingsService(st store.Store) *SettingsService {
	return &SettingsService{
		store: st,
		log:   logger.WithComponent("settings"),
		now:   time.Now,
	}
}

// GetOrDefault returns the stored settings, or the defaults when the society
// has none. Nothing is written.
func (s *SettingsService) GetOrDefault(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	return settingsOrDefault(ctx, s.store, societyID)
}

func settingsOrDefault(ctx context.Context, st store.SettingsStore, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	settings, err := st.GetSettings(ctx, societyID)
	if errors.Is(err, store.ErrNotFound) {
		defaults := models.DefaultMaintenanceSettings(societyID)
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load maintenance settings: %w", err)
	}
	return settings, nil
}

// Initialize persists the default settings for a society. Existing settings
// are returned unchanged.
func (s *SettingsService) Initialize(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	return s.initialize(ctx, s.store, societyID)
}

func (s *SettingsService) initialize(ctx context.Context, st store.SettingsStore, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	existing, err := st.GetSettings(ctx, societyID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load maintenance settings: %w", err)
	}

	settings := models.DefaultMaintenanceSettings(societyID)
	settings.CreatedAt = s.now()
	settings.UpdatedAt = settings.CreatedAt
	if err := st.CreateSettings(ctx, &settings); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with another initializer; theirs wins
			return settingsOrDefault(ctx, st, societyID)
		}
		return nil, fmt.Errorf("failed to create maintenance settings: %w", err)
	}

	s.log.Info().Str("society_id", societyID.String()).Msg("Maintenance settings initialized")
	return &settings, nil
}

// GetOrCreate initializes the settings if needed and returns them
func (s *SettingsService) GetOrCreate(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	return s.Initialize(ctx, societyID)
}

// Get returns the settings of a society the actor belongs to
func (s *SettingsService) Get(ctx context.Context, actorID, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	return s.GetOrDefault(ctx, societyID)
}

// UpdateSettingsRequest holds the fields to change. Nil fields are left as they are.
type UpdateSettingsRequest struct {
	RatePerArea            *decimal.Decimal
	BillingCycle           *models.BillingCycle
	DueDay                 *int
	LateFeeAmount          *decimal.Decimal
	LateFeeType            *models.LateFeeType
	DiscountSchemesEnabled *bool
}

// IsEmpty returns true if no field is set
func (r UpdateSettingsRequest) IsEmpty() bool {
	return r.RatePerArea == nil && r.BillingCycle == nil && r.DueDay == nil &&
		r.LateFeeAmount == nil && r.LateFeeType == nil && r.DiscountSchemesEnabled == nil
}

// Update changes a society's settings. Managers only.
func (s *SettingsService) Update(ctx context.Context, actorID, societyID uuid.UUID, req UpdateSettingsRequest) (*models.MaintenanceSettings, error) {
	const op = "UpdateSettings"

	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, validationError(op, "no settings provided")
	}

	if req.RatePerArea != nil && req.RatePerArea.IsNegative() {
		return nil, validationError(op, "rate per area cannot be negative")
	}
	if req.BillingCycle != nil && !req.BillingCycle.IsValid() {
		return nil, validationError(op, "billing_cycle must be monthly, quarterly or yearly")
	}
	if req.DueDay != nil && (*req.DueDay < 1 || *req.DueDay > 31) {
		return nil, validationError(op, "due day must be between 1 and 31")
	}
	if req.LateFeeAmount != nil && req.LateFeeAmount.IsNegative() {
		return nil, validationError(op, "late fee amount cannot be negative")
	}
	if req.LateFeeType != nil && !req.LateFeeType.IsValid() {
		return nil, validationError(op, "late_fee_type must be flat or percentage")
	}

	var updated *models.MaintenanceSettings
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		settings, err := s.initialize(ctx, tx, societyID)
		if err != nil {
			return err
		}

		if req.RatePerArea != nil {
			settings.RatePerArea = *req.RatePerArea
		}
		if req.BillingCycle != nil {
			settings.BillingCycle = *req.BillingCycle
		}
		if req.DueDay != nil {
			settings.DueDay = *req.DueDay
		}
		if req.LateFeeAmount != nil {
			settings.LateFeeAmount = *req.LateFeeAmount
		}
		if req.LateFeeType != nil {
			settings.LateFeeType = *req.LateFeeType
		}
		if req.DiscountSchemesEnabled != nil {
			settings.DiscountSchemesEnabled = *req.DiscountSchemesEnabled
		}
		settings.UpdatedAt = s.now()

		if err := tx.UpdateSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to update maintenance settings: %w", err)
		}
		updated = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("rate_per_area", updated.RatePerArea.String()).
		Int("due_day", updated.DueDay).
		Msg("Maintenance settings updated")

	return updated, nil
}
