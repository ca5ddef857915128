package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/shopspring/decimal"
)

func TestCreateSociety(t *testing.T) {
	f := newFixture(t)

	membership, err := f.svc.Society.RequireMember(f.ctx, f.manager, f.society.ID, models.RoleManager)
	f.must(err)
	if membership.Role != models.RoleManager {
		t.Errorf("creator role = %s, want manager", membership.Role)
	}

	settings, err := f.store.GetSettings(f.ctx, f.society.ID)
	if err != nil {
		t.Fatalf("settings not initialized: %v", err)
	}
	assertDecimal(t, "RatePerArea", settings.RatePerArea, dec(5))
	if settings.DueDay != 10 || !settings.DiscountSchemesEnabled {
		t.Errorf("settings = %+v", settings)
	}

	_, err = f.svc.Society.CreateSociety(f.ctx, f.manager, CreateSocietyRequest{Name: "  "})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("blank name error = %v, want validation", err)
	}
}

func TestRequireMember(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		user    uuid.UUID
		roles   []models.Role
		wantErr error
		wantMsg string
	}{
		{"manager any role", f.manager, nil, nil, ""},
		{"member any role", f.member, nil, nil, ""},
		{"member needs manager", f.member, []models.Role{models.RoleManager}, ErrForbidden, "insufficient permissions"},
		{"outsider", f.outsider, nil, ErrForbidden, "not a member of this society"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Society.RequireMember(f.ctx, tt.user, f.society.ID, tt.roles...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RequireMember() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && MessageOf(err) != tt.wantMsg {
				t.Errorf("message = %q, want %q", MessageOf(err), tt.wantMsg)
			}
		})
	}
}

func TestInactiveMembershipIsRejected(t *testing.T) {
	f := newFixture(t)
	inactive := uuid.New()
	f.must(f.store.CreateMembership(f.ctx, &models.Membership{
		ID:        uuid.New(),
		UserID:    inactive,
		SocietyID: f.society.ID,
		Role:      models.RoleManager,
		Status:    models.MembershipStatusInactive,
	}))

	_, err := f.svc.Bill.ListBills(f.ctx, inactive, f.society.ID, ListBillsRequest{})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("inactive manager error = %v, want forbidden", err)
	}
}

func TestSocietyDirectory(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"duplicate flat", func() error {
			_, err := f.svc.Society.AddFlat(f.ctx, f.manager, f.society.ID, AddFlatRequest{FlatNumber: "A-101", Area: dec(900)})
			return err
		}, ErrConflict},
		{"negative area", func() error {
			_, err := f.svc.Society.AddFlat(f.ctx, f.manager, f.society.ID, AddFlatRequest{FlatNumber: "Z-1", Area: dec(-1)})
			return err
		}, ErrValidation},
		{"member cannot add flats", func() error {
			_, err := f.svc.Society.AddFlat(f.ctx, f.member, f.society.ID, AddFlatRequest{FlatNumber: "Z-2", Area: dec(100)})
			return err
		}, ErrForbidden},
		{"duplicate membership", func() error {
			_, err := f.svc.Society.AddMembership(f.ctx, f.manager, f.society.ID, AddMembershipRequest{UserID: f.member, Role: models.RoleMember})
			return err
		}, ErrConflict},
		{"unknown role", func() error {
			_, err := f.svc.Society.AddMembership(f.ctx, f.manager, f.society.ID, AddMembershipRequest{UserID: uuid.New(), Role: "owner"})
			return err
		}, ErrValidation},
		{"occupant must be a member", func() error {
			_, err := f.svc.Society.AssignFlatMember(f.ctx, f.manager, f.society.ID, AssignFlatMemberRequest{FlatID: f.flatB.ID, UserID: f.outsider, IsPrimary: true})
			return err
		}, ErrValidation},
		{"unknown flat", func() error {
			_, err := f.svc.Society.AssignFlatMember(f.ctx, f.manager, f.society.ID, AssignFlatMemberRequest{FlatID: uuid.New(), UserID: f.member})
			return err
		}, ErrNotFound},
		{"outsider cannot read society", func() error {
			_, err := f.svc.Society.GetSociety(f.ctx, f.outsider, f.society.ID)
			return err
		}, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	flats, err := f.svc.Society.ListFlats(f.ctx, f.member, f.society.ID)
	f.must(err)
	if len(flats) != 3 || flats[0].FlatNumber != "A-101" {
		t.Errorf("ListFlats() = %d flats", len(flats))
	}
}

func TestPrimaryOccupantIsReplaced(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	_, err := f.svc.Society.AddMembership(f.ctx, f.manager, f.society.ID, AddMembershipRequest{UserID: tenant, Role: models.RoleMember})
	f.must(err)
	_, err = f.svc.Society.AssignFlatMember(f.ctx, f.manager, f.society.ID, AssignFlatMemberRequest{
		FlatID: f.flatA.ID, UserID: tenant, RelationType: "Tenant", IsPrimary: true,
	})
	f.must(err)

	f.generate(models.MonthlyPeriod(3, 2026))
	if got := f.billFor(f.flatA, models.MonthlyPeriod(3, 2026)).MemberID; got != tenant {
		t.Errorf("bill addressed to %s, want the new primary %s", got, tenant)
	}
}

func TestSettingsGetOrDefaultHasNoSideEffect(t *testing.T) {
	f := newFixture(t)
	bare := &models.Society{ID: uuid.New(), Name: "Bare"}
	f.must(f.store.CreateSociety(f.ctx, bare))

	settings, err := f.svc.Settings.GetOrDefault(f.ctx, bare.ID)
	f.must(err)
	assertDecimal(t, "RatePerArea", settings.RatePerArea, dec(5))

	if _, err := f.store.GetSettings(f.ctx, bare.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetOrDefault() persisted settings: %v", err)
	}

	created, err := f.svc.Settings.GetOrCreate(f.ctx, bare.ID)
	f.must(err)
	again, err := f.svc.Settings.GetOrCreate(f.ctx, bare.ID)
	f.must(err)
	if !created.CreatedAt.Equal(again.CreatedAt) {
		t.Error("GetOrCreate() replaced existing settings")
	}
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	rate := decimal.RequireFromString("4.5")
	due := 31

	updated, err := f.svc.Settings.Update(f.ctx, f.manager, f.society.ID, UpdateSettingsRequest{RatePerArea: &rate, DueDay: &due})
	f.must(err)
	assertDecimal(t, "RatePerArea", updated.RatePerArea, rate)
	if updated.EffectiveDueDay() != 28 {
		t.Errorf("EffectiveDueDay() = %d, want 28", updated.EffectiveDueDay())
	}
	if !updated.DiscountSchemesEnabled {
		t.Error("untouched field changed")
	}

	f.generate(models.MonthlyPeriod(2, 2026))
	bill := f.billFor(f.flatA, models.MonthlyPeriod(2, 2026))
	assertDecimal(t, "FinalPayableAmount", bill.FinalPayableAmount, dec(4500))
	if bill.DueDate.Day() != 28 {
		t.Errorf("due day = %d, want 28", bill.DueDate.Day())
	}

	badDay := 32
	badType := models.LateFeeType("compound")
	negative := dec(-1)
	tests := []struct {
		name    string
		actor   uuid.UUID
		req     UpdateSettingsRequest
		wantErr error
	}{
		{"empty request", f.manager, UpdateSettingsRequest{}, ErrValidation},
		{"due day 32", f.manager, UpdateSettingsRequest{DueDay: &badDay}, ErrValidation},
		{"unknown late fee type", f.manager, UpdateSettingsRequest{LateFeeType: &badType}, ErrValidation},
		{"negative rate", f.manager, UpdateSettingsRequest{RatePerArea: &negative}, ErrValidation},
		{"member", f.member, UpdateSettingsRequest{RatePerArea: &rate}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Settings.Update(f.ctx, tt.actor, f.society.ID, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// lateSettingsStore hides stored settings from the next hide reads, as if
// another initializer committed them after the read
type lateSettingsStore struct {
	store.Store
	hide *int
}

func (s *lateSettingsStore) GetSettings(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	if *s.hide > 0 {
		*s.hide--
		return nil, store.ErrNotFound
	}
	return s.Store.GetSettings(ctx, societyID)
}

func (s *lateSettingsStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx store.Store) error {
		return fn(&lateSettingsStore{Store: tx, hide: s.hide})
	})
}

func TestUpdateSettingsAfterLosingInitializationRace(t *testing.T) {
	f := newFixture(t)
	existing, err := f.store.GetSettings(f.ctx, f.society.ID)
	f.must(err)

	hide := 1
	settings := NewSettingsService(&lateSettingsStore{Store: f.store, hide: &hide})
	rate := decimal.RequireFromString("6.5")

	updated, err := settings.Update(f.ctx, f.manager, f.society.ID, UpdateSettingsRequest{RatePerArea: &rate})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != existing.ID {
		t.Errorf("settings id = %s, want the stored %s", updated.ID, existing.ID)
	}
	stored, err := f.store.GetSettings(f.ctx, f.society.ID)
	f.must(err)
	assertDecimal(t, "RatePerArea", stored.RatePerArea, rate)
}

func TestDiscountSchemeLifecycle(t *testing.T) {
	f := newFixture(t)
	scheme := f.freeMonthScheme()

	invalid := []SchemeRequest{
		{Name: "", DiscountType: models.DiscountTypeFlat},
		{Name: "too many free", DiscountType: models.DiscountTypeFreeMonths, EligibleMonths: 12, FreeMonths: 13},
		{Name: "over 100", DiscountType: models.DiscountTypePercentage, DiscountValue: dec(101)},
		{Name: "unknown", DiscountType: "bogo"},
	}
	for _, req := range invalid {
		if _, err := f.svc.Discount.CreateScheme(f.ctx, f.manager, f.society.ID, req); !errors.Is(err, ErrValidation) {
			t.Errorf("CreateScheme(%q) error = %v, want validation", req.Name, err)
		}
	}

	updated, err := f.svc.Discount.UpdateScheme(f.ctx, f.manager, f.society.ID, scheme.ID, SchemeRequest{
		Name: "Ten percent", DiscountType: models.DiscountTypePercentage, DiscountValue: dec(10), IsActive: false,
	})
	f.must(err)
	if updated.IsActive {
		t.Error("scheme still active")
	}

	// an inactive scheme is ignored by generation
	_, err = f.svc.Bill.Generate(f.ctx, f.manager, f.society.ID, GenerateRequest{
		Period: models.MonthlyPeriod(3, 2026), ApplyDiscountScheme: true, DiscountSchemeID: &scheme.ID,
	})
	f.must(err)
	assertDecimal(t, "DiscountAmount", f.billFor(f.flatA, models.MonthlyPeriod(3, 2026)).DiscountAmount, dec(0))

	schemes, err := f.svc.Discount.ListSchemes(f.ctx, f.member, f.society.ID)
	f.must(err)
	if len(schemes) != 1 {
		t.Errorf("schemes = %d, want 1", len(schemes))
	}

	f.must(f.svc.Discount.DeleteScheme(f.ctx, f.manager, f.society.ID, scheme.ID))
	if err := f.svc.Discount.DeleteScheme(f.ctx, f.manager, f.society.ID, scheme.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteScheme() error = %v, want not found", err)
	}
}

func TestListMySocieties(t *testing.T) {
	f := newFixture(t)

	other, err := f.svc.Society.CreateSociety(f.ctx, f.member, CreateSocietyRequest{Name: "Hill View"})
	f.must(err)

	mine, err := f.svc.Society.ListMySocieties(f.ctx, f.member)
	f.must(err)
	roles := make(map[uuid.UUID]models.Role)
	for _, s := range mine {
		roles[s.ID] = s.Role
	}
	if len(mine) != 2 || roles[f.society.ID] != models.RoleMember || roles[other.ID] != models.RoleManager {
		t.Errorf("member societies = %v", roles)
	}

	none, err := f.svc.Society.ListMySocieties(f.ctx, f.outsider)
	f.must(err)
	if len(none) != 0 {
		t.Errorf("outsider societies = %d, want 0", len(none))
	}
}

func TestUpdateSociety(t *testing.T) {
	f := newFixture(t)

	name, blank, negative := "Green Meadows II", " ", dec(-1)
	threshold := dec(20000)
	tests := []struct {
		name    string
		actor   uuid.UUID
		req     UpdateSocietyRequest
		wantErr error
	}{
		{"member", f.member, UpdateSocietyRequest{Name: &name}, ErrForbidden},
		{"nothing to update", f.manager, UpdateSocietyRequest{}, ErrValidation},
		{"blank name", f.manager, UpdateSocietyRequest{Name: &blank}, ErrValidation},
		{"negative threshold", f.manager, UpdateSocietyRequest{ApprovalThreshold: &negative}, ErrValidation},
		{"rename and lower threshold", f.manager, UpdateSocietyRequest{Name: &name, ApprovalThreshold: &threshold}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Society.UpdateSociety(f.ctx, tt.actor, f.society.ID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	society, err := f.svc.Society.GetSociety(f.ctx, f.member, f.society.ID)
	f.must(err)
	if society.Name != name || society.Address != "12 Lake Road" {
		t.Errorf("society = %+v", society)
	}
	assertDecimal(t, "ApprovalThreshold", society.ApprovalThreshold, threshold)

	txn, err := f.svc.Transaction.Create(f.ctx, f.manager, f.society.ID, CreateTransactionRequest{
		Type: models.TransactionOutward, Category: "Lift AMC", Amount: dec(25000),
	})
	f.must(err)
	if !txn.IsPending() {
		t.Errorf("expense above lowered threshold is %s, want pending", txn.ApprovalStatus)
	}
}

func TestUpdateMembership(t *testing.T) {
	f := newFixture(t)

	members, err := f.svc.Society.ListMembers(f.ctx, f.member, f.society.ID)
	f.must(err)
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
	var managerID, memberID uuid.UUID
	for _, m := range members {
		switch m.UserID {
		case f.manager:
			managerID = m.ID
		case f.member:
			memberID = m.ID
		}
	}

	manager, member, inactive, bogus := models.RoleManager, models.RoleMember, models.MembershipStatusInactive, models.Role("owner")
	tests := []struct {
		name         string
		actor        uuid.UUID
		membershipID uuid.UUID
		req          UpdateMembershipRequest
		wantErr      error
	}{
		{"member cannot update", f.member, memberID, UpdateMembershipRequest{Role: &manager}, ErrForbidden},
		{"nothing to update", f.manager, memberID, UpdateMembershipRequest{}, ErrValidation},
		{"unknown role", f.manager, memberID, UpdateMembershipRequest{Role: &bogus}, ErrValidation},
		{"unknown membership", f.manager, uuid.New(), UpdateMembershipRequest{Role: &manager}, ErrNotFound},
		{"last manager demoted", f.manager, managerID, UpdateMembershipRequest{Role: &member}, ErrConflict},
		{"last manager deactivated", f.manager, managerID, UpdateMembershipRequest{Status: &inactive}, ErrConflict},
		{"promote member", f.manager, memberID, UpdateMembershipRequest{Role: &manager}, nil},
		{"demote former sole manager", f.member, managerID, UpdateMembershipRequest{Role: &member}, nil},
		{"deactivate old manager", f.member, managerID, UpdateMembershipRequest{Status: &inactive}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Society.UpdateMembership(f.ctx, tt.actor, f.society.ID, tt.membershipID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := f.svc.Society.RequireMember(f.ctx, f.manager, f.society.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("deactivated member access error = %v, want forbidden", err)
	}
	if _, err := f.svc.Society.RequireMember(f.ctx, f.member, f.society.ID, models.RoleManager); err != nil {
		t.Errorf("promoted member is not a manager: %v", err)
	}
}

func TestFlatMembers(t *testing.T) {
	f := newFixture(t)

	tenant := uuid.New()
	_, err := f.svc.Society.AddMembership(f.ctx, f.manager, f.society.ID, AddMembershipRequest{UserID: tenant, Role: models.RoleMember})
	f.must(err)
	added, err := f.svc.Society.AssignFlatMember(f.ctx, f.manager, f.society.ID, AssignFlatMemberRequest{
		FlatID: f.flatA.ID, UserID: tenant, RelationType: "Tenant",
	})
	f.must(err)

	members, err := f.svc.Society.ListFlatMembers(f.ctx, f.member, f.society.ID, f.flatA.ID)
	f.must(err)
	if len(members) != 2 || !members[0].IsPrimary || members[0].UserID != f.member {
		t.Fatalf("flat members = %+v, want primary first", members)
	}

	tests := []struct {
		name    string
		actor   uuid.UUID
		flatID  uuid.UUID
		id      uuid.UUID
		wantErr error
	}{
		{"member cannot remove", f.member, f.flatA.ID, added.ID, ErrForbidden},
		{"wrong flat", f.manager, f.flatB.ID, added.ID, ErrNotFound},
		{"remove tenant", f.manager, f.flatA.ID, added.ID, nil},
		{"already removed", f.manager, f.flatA.ID, added.ID, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Society.RemoveFlatMember(f.ctx, tt.actor, f.society.ID, tt.flatID, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	members, err = f.svc.Society.ListFlatMembers(f.ctx, f.member, f.society.ID, f.flatA.ID)
	f.must(err)
	if len(members) != 1 {
		t.Errorf("len(flat members) = %d after removal, want 1", len(members))
	}
	if _, err := f.svc.Society.ListFlatMembers(f.ctx, f.member, f.society.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown flat error = %v, want not found", err)
	}
}
