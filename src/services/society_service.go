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

// SocietyService manages societies, memberships and flats, and answers the
// access checks every other service relies on.
type SocietyService struct {
	store    store.Store
	settings *SettingsService
	log      zerolog.Logger
	now      func() time.Time
}

// NewSocietyService creates a new society service
func NewSocietyService(st store.Store, settings *SettingsService) *SocietyService {
	return &SocietyService{
		store:    st,
		settings: settings,
		log:      logger.WithComponent("society"),
		now:      time.Now,
	}
}

// RequireMember checks that userID is an active member of the society and,
// when roles are given, holds one of them.
func (s *SocietyService) RequireMember(ctx context.Context, userID, societyID uuid.UUID, roles ...models.Role) (*models.Membership, error) {
	return requireMember(ctx, s.store, userID, societyID, roles...)
}

func requireMember(ctx context.Context, st store.DirectoryStore, userID, societyID uuid.UUID, roles ...models.Role) (*models.Membership, error) {
	const op = "RequireMember"

	membership, err := st.GetMembership(ctx, societyID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, forbiddenError(op, "not a member of this society")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !membership.IsActive() {
		return nil, forbiddenError(op, "not a member of this society")
	}
	if !membership.HasRole(roles...) {
		return nil, forbiddenError(op, "insufficient permissions")
	}
	return membership, nil
}

// CreateSocietyRequest contains parameters for registering a society
type CreateSocietyRequest struct {
	Name              string
	Address           string
	TotalFlats        int
	Description       string
	ApprovalThreshold decimal.Decimal
}

// CreateSociety registers a society, makes the creator its manager and
// initializes default maintenance settings.
func (s *SocietyService) CreateSociety(ctx context.Context, actorID uuid.UUID, req CreateSocietyRequest) (*models.Society, error) {
	const op = "CreateSociety"

	if strings.TrimSpace(req.Name) == "" {
		return nil, validationError(op, "name is required")
	}
	if req.TotalFlats < 0 {
		return nil, validationError(op, "total_flats cannot be negative")
	}
	if req.ApprovalThreshold.IsNegative() {
		return nil, validationError(op, "approval_threshold cannot be negative")
	}
	if req.ApprovalThreshold.IsZero() {
		req.ApprovalThreshold = models.DefaultApprovalThreshold
	}

	now := s.now()
	society := &models.Society{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(req.Name),
		Address:           req.Address,
		TotalFlats:        req.TotalFlats,
		Description:       req.Description,
		ApprovalThreshold: req.ApprovalThreshold,
		CreatedBy:         actorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.CreateSociety(ctx, society); err != nil {
			return fmt.Errorf("failed to create society: %w", err)
		}

		membership := &models.Membership{
			ID:        uuid.New(),
			UserID:    actorID,
			SocietyID: society.ID,
			Role:      models.RoleManager,
			Status:    models.MembershipStatusActive,
			CreatedAt: now,
		}
		if err := tx.CreateMembership(ctx, membership); err != nil {
			return fmt.Errorf("failed to create manager membership: %w", err)
		}

		if _, err := s.settings.initialize(ctx, tx, society.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("society_id", society.ID.String()).
		Str("name", society.Name).
		Msg("Society created")

	return society, nil
}

// GetSociety returns a society the actor belongs to
func (s *SocietyService) GetSociety(ctx context.Context, actorID, societyID uuid.UUID) (*models.Society, error) {
	if _, err := s.RequireMember(ctx, actorID, societyID); err != nil {
		return nil, err
	}
	society, err := s.store.GetSociety(ctx, societyID)
	if err != nil {
		return nil, lookupError("GetSociety", "society", err)
	}
	return society, nil
}

// AddMembershipRequest contains parameters for adding a user to a society
type AddMembershipRequest struct {
	UserID uuid.UUID
	Role   models.Role
}

// AddMembership adds a user to the society. Managers only.
func (s *SocietyService) AddMembership(ctx context.Context, actorID, societyID uuid.UUID, req AddMembershipRequest) (*models.Membership, error) {
	const op = "AddMembership"

	if _, err := s.RequireMember(ctx, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if req.UserID == uuid.Nil {
		return nil, validationError(op, "user_id is required")
	}
	if req.Role != models.RoleManager && req.Role != models.RoleMember {
		return nil, validationError(op, "role must be manager or member")
	}

	membership := &models.Membership{
		ID:        uuid.New(),
		UserID:    req.UserID,
		SocietyID: societyID,
		Role:      req.Role,
		Status:    models.MembershipStatusActive,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateMembership(ctx, membership); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError(op, "user is already a member of this society")
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	return membership, nil
}

// AddFlatRequest contains parameters for registering a flat
type AddFlatRequest struct {
	FlatNumber string
	Floor      int
	Wing       string
	Area       decimal.Decimal
	FlatType   string
}

// AddFlat registers a flat in the society. Managers only.
func (s *SocietyService) AddFlat(ctx context.Context, actorID, societyID uuid.UUID, req AddFlatRequest) (*models.Flat, error) {
	const op = "AddFlat"

	if _, err := s.RequireMember(ctx, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.FlatNumber) == "" {
		return nil, validationError(op, "flat_number is required")
	}
	if req.Area.IsNegative() {
		return nil, validationError(op, "area cannot be negative")
	}

	flat := &models.Flat{
		ID:         uuid.New(),
		SocietyID:  societyID,
		FlatNumber: strings.TrimSpace(req.FlatNumber),
		Floor:      req.Floor,
		Wing:       req.Wing,
		Area:       req.Area,
		FlatType:   req.FlatType,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateFlat(ctx, flat); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError(op, "flat %s already exists", flat.FlatNumber)
		}
		return nil, fmt.Errorf("failed to create flat: %w", err)
	}
	return flat, nil
}

// ListFlats returns the society's flats ordered by flat number
func (s *SocietyService) ListFlats(ctx context.Context, actorID, societyID uuid.UUID) ([]*models.Flat, error) {
	if _, err := s.RequireMember(ctx, actorID, societyID); err != nil {
		return nil, err
	}
	flats, err := s.store.ListFlats(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}
	return flats, nil
}

// AssignFlatMemberRequest contains parameters for linking a user to a flat
type AssignFlatMemberRequest struct {
	FlatID       uuid.UUID
	UserID       uuid.UUID
	RelationType string
	IsPrimary    bool
}

// AssignFlatMember links a society member to a flat. A primary assignment
// replaces the flat's previous primary occupant. Managers only.
func (s *SocietyService) AssignFlatMember(ctx context.Context, actorID, societyID uuid.UUID, req AssignFlatMemberRequest) (*models.FlatMember, error) {
	const op = "AssignFlatMember"

	if _, err := s.RequireMember(ctx, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if _, err := s.store.GetFlat(ctx, societyID, req.FlatID); err != nil {
		return nil, lookupError(op, "flat", err)
	}
	if _, err := requireMember(ctx, s.store, req.UserID, societyID); err != nil {
		return nil, validationError(op, "user must be an active member of the society")
	}

	member := &models.FlatMember{
		ID:           uuid.New(),
		FlatID:       req.FlatID,
		UserID:       req.UserID,
		SocietyID:    societyID,
		RelationType: req.RelationType,
		IsPrimary:    req.IsPrimary,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateFlatMember(ctx, member); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError(op, "user is already assigned to this flat")
		}
		return nil, fmt.Errorf("failed to assign flat member: %w", err)
	}
	return member, nil
}

// primaryOccupant returns the flat's primary member's user id, or uuid.Nil
func primaryOccupant(ctx context.Context, st store.DirectoryStore, flatID uuid.UUID) (uuid.UUID, error) {
	member, err := st.GetPrimaryMember(ctx, flatID)
	if errors.Is(err, store.ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load primary occupant: %w", err)
	}
	return member.UserID, nil
}

// SocietyWithRole is a society together with the caller's membership in it
type SocietyWithRole struct {
	*models.Society
	Role         models.Role `json:"role"`
	MembershipID uuid.UUID   `json:"membership_id"`
}

// ListMySocieties returns every society the actor is an active member of
func (s *SocietyService) ListMySocieties(ctx context.Context, actorID uuid.UUID) ([]SocietyWithRole, error) {
	memberships, err := s.store.ListUserMemberships(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	result := make([]SocietyWithRole, 0, len(memberships))
	for _, m := range memberships {
		if !m.IsActive() {
			continue
		}
		society, err := s.store.GetSociety(ctx, m.SocietyID)
		if err != nil {
			return nil, lookupError("ListMySocieties", "society", err)
		}
		result = append(result, SocietyWithRole{Society: society, Role: m.Role, MembershipID: m.ID})
	}
	return result, nil
}

// UpdateSocietyRequest contains the society fields to change. Nil fields are kept.
type UpdateSocietyRequest struct {
	Name              *string
	Address           *string
	TotalFlats        *int
	Description       *string
	ApprovalThreshold *decimal.Decimal
}

// UpdateSociety changes the society's details. Managers only.
func (s *SocietyService) UpdateSociety(ctx context.Context, actorID, societyID uuid.UUID, req UpdateSocietyRequest) (*models.Society, error) {
	const op = "UpdateSociety"

	if _, err := s.RequireMember(ctx, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if req.Name == nil && req.Address == nil && req.TotalFlats == nil &&
		req.Description == nil && req.ApprovalThreshold == nil {
		return nil, validationError(op, "nothing to update")
	}

	var updated *models.Society
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		society, err := tx.GetSociety(ctx, societyID)
		if err != nil {
			return lookupError(op, "society", err)
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return validationError(op, "name cannot be empty")
			}
			society.Name = name
		}
		if req.Address != nil {
			society.Address = *req.Address
		}
		if req.TotalFlats != nil {
			if *req.TotalFlats < 0 {
				return validationError(op, "total_flats cannot be negative")
			}
			society.TotalFlats = *req.TotalFlats
		}
		if req.Description != nil {
			society.Description = *req.Description
		}
		if req.ApprovalThreshold != nil {
			if req.ApprovalThreshold.IsNegative() {
				return validationError(op, "approval_threshold cannot be negative")
			}
			society.ApprovalThreshold = req.ApprovalThreshold.Round(2)
		}
		society.UpdatedAt = s.now()

		if err := tx.UpdateSociety(ctx, society); err != nil {
			return fmt.Errorf("failed to update society: %w", err)
		}
		updated = society
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("society_id", societyID.String()).Msg("Society updated")
	return updated, nil
}

// ListMembers returns the society's memberships, oldest first
func (s *SocietyService) ListMembers(ctx context.Context, actorID, societyID uuid.UUID) ([]*models.Membership, error) {
	if _, err := s.RequireMember(ctx, actorID, societyID); err != nil {
		return nil, err
	}
	memberships, err := s.store.ListMemberships(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if memberships == nil {
		memberships = []*models.Membership{}
	}
	return memberships, nil
}

// UpdateMembershipRequest contains the membership fields to change. Nil fields are kept.
type UpdateMembershipRequest struct {
	Role   *models.Role
	Status *models.MembershipStatus
}

// UpdateMembership changes a member's role or status. A society always keeps
// at least one active manager. Managers only.
func (s *SocietyService) UpdateMembership(ctx context.Context, actorID, societyID, membershipID uuid.UUID, req UpdateMembershipRequest) (*models.Membership, error) {
	const op = "UpdateMembership"

	if _, err := s.RequireMember(ctx, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	if req.Role == nil && req.Status == nil {
		return nil, validationError(op, "nothing to update")
	}
	if req.Role != nil && !req.Role.IsValid() {
		return nil, validationError(op, "role must be manager or member")
	}
	if req.Status != nil && !req.Status.IsValid() {
		return nil, validationError(op, "status must be active or inactive")
	}

	var updated *models.Membership
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		membership, err := tx.GetMembershipByID(ctx, societyID, membershipID)
		if err != nil {
			return lookupError(op, "membership", err)
		}
		wasManager := membership.IsActive() && membership.Role == models.RoleManager
		if req.Role != nil {
			membership.Role = *req.Role
		}
		if req.Status != nil {
			membership.Status = *req.Status
		}

		if wasManager && !(membership.IsActive() && membership.Role == models.RoleManager) {
			managers, err := activeManagers(ctx, tx, societyID)
			if err != nil {
				return err
			}
			if managers <= 1 {
				return conflictError(op, "society must keep at least one active manager")
			}
		}

		if err := tx.UpdateMembership(ctx, membership); err != nil {
			return fmt.Errorf("failed to update membership: %w", err)
		}
		updated = membership
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("membership_id", membershipID.String()).
		Str("role", string(updated.Role)).
		Str("status", string(updated.Status)).
		Msg("Membership updated")

	return updated, nil
}

func activeManagers(ctx context.Context, st store.DirectoryStore, societyID uuid.UUID) (int, error) {
	memberships, err := st.ListMemberships(ctx, societyID)
	if err != nil {
		return 0, fmt.Errorf("failed to list memberships: %w", err)
	}
	count := 0
	for _, m := range memberships {
		if m.IsActive() && m.Role == models.RoleManager {
			count++
		}
	}
	return count, nil
}

// ListFlatMembers returns the members linked to a flat, primary first
func (s *SocietyService) ListFlatMembers(ctx context.Context, actorID, societyID, flatID uuid.UUID) ([]*models.FlatMember, error) {
	const op = "ListFlatMembers"

	if _, err := s.RequireMember(ctx, actorID, societyID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetFlat(ctx, societyID, flatID); err != nil {
		return nil, lookupError(op, "flat", err)
	}
	members, err := s.store.ListFlatMembers(ctx, societyID, flatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flat members: %w", err)
	}
	if members == nil {
		members = []*models.FlatMember{}
	}
	return members, nil
}

// RemoveFlatMember unlinks a member from a flat. Managers only.
func (s *SocietyService) RemoveFlatMember(ctx context.Context, actorID, societyID, flatID, flatMemberID uuid.UUID) error {
	const op = "RemoveFlatMember"

	if _, err := s.RequireMember(ctx, actorID, societyID, models.RoleManager); err != nil {
		return err
	}
	if err := s.store.DeleteFlatMember(ctx, societyID, flatID, flatMemberID); err != nil {
		return lookupError(op, "flat member", err)
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Str("flat_id", flatID.String()).
		Str("flat_member_id", flatMemberID.String()).
		Msg("Flat member removed")
	return nil
}
