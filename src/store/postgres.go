package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore is the Store backed by PostgreSQL through lib/pq
type PostgresStore struct {
	db *sql.DB
	q  querier
	tx *sql.Tx // set on transactional views
}

// NewPostgresStore creates a new postgres store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a database transaction
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError converts driver errors into store sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// expectRow returns ErrNotFound when an update touched nothing
func expectRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullUUIDPtr(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return nullUUID(*id)
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

// Directory

func (s *PostgresStore) CreateSociety(ctx context.Context, society *models.Society) error {
	query := `
		INSERT INTO societies (
			id, name, address, total_flats, description, approval_threshold,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q.ExecContext(ctx, query,
		society.ID,
		society.Name,
		society.Address,
		society.TotalFlats,
		society.Description,
		society.ApprovalThreshold,
		society.CreatedBy,
		society.CreatedAt,
		society.UpdatedAt,
	)
	return mapError(err)
}

func (s *PostgresStore) GetSociety(ctx context.Context, societyID uuid.UUID) (*models.Society, error) {
	query := `
		SELECT id, name, address, total_flats, description, approval_threshold,
		       created_by, created_at, updated_at
		FROM societies WHERE id = $1
	`
	var society models.Society
	err := s.q.QueryRowContext(ctx, query, societyID).Scan(
		&society.ID,
		&society.Name,
		&society.Address,
		&society.TotalFlats,
		&society.Description,
		&society.ApprovalThreshold,
		&society.CreatedBy,
		&society.CreatedAt,
		&society.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &society, nil
}

func (s *PostgresStore) UpdateSociety(ctx context.Context, society *models.Society) error {
	query := `
		UPDATE societies
		SET name = $1, address = $2, total_flats = $3, description = $4,
		    approval_threshold = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := s.q.ExecContext(ctx, query,
		society.Name,
		society.Address,
		society.TotalFlats,
		society.Description,
		society.ApprovalThreshold,
		society.UpdatedAt,
		society.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *PostgresStore) ListSocietyIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id FROM societies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) CreateMembership(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, society_id, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.q.ExecContext(ctx, query,
		membership.ID,
		membership.UserID,
		membership.SocietyID,
		membership.Role,
		membership.Status,
		membership.CreatedAt,
	)
	return mapError(err)
}

const membershipColumns = `id, user_id, society_id, role, status, created_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (*models.Membership, error) {
	var m models.Membership
	if err := row.Scan(&m.ID, &m.UserID, &m.SocietyID, &m.Role, &m.Status, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) GetMembership(ctx context.Context, societyID, userID uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE society_id = $1 AND user_id = $2`
	m, err := scanMembership(s.q.QueryRowContext(ctx, query, societyID, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (s *PostgresStore) GetMembershipByID(ctx context.Context, societyID, membershipID uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE society_id = $1 AND id = $2`
	m, err := scanMembership(s.q.QueryRowContext(ctx, query, societyID, membershipID))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (s *PostgresStore) UpdateMembership(ctx context.Context, membership *models.Membership) error {
	query := `UPDATE memberships SET role = $1, status = $2 WHERE society_id = $3 AND id = $4`
	result, err := s.q.ExecContext(ctx, query,
		membership.Role,
		membership.Status,
		membership.SocietyID,
		membership.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *PostgresStore) ListMemberships(ctx context.Context, societyID uuid.UUID) ([]*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE society_id = $1 ORDER BY created_at, id`
	return s.queryMemberships(ctx, query, societyID)
}

func (s *PostgresStore) ListUserMemberships(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1 ORDER BY created_at, id`
	return s.queryMemberships(ctx, query, userID)
}

func (s *PostgresStore) queryMemberships(ctx context.Context, query string, arg interface{}) ([]*models.Membership, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (s *PostgresStore) CreateFlat(ctx context.Context, flat *models.Flat) error {
	query := `
		INSERT INTO flats (id, society_id, flat_number, floor, wing, area_sqft, flat_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q.ExecContext(ctx, query,
		flat.ID,
		flat.SocietyID,
		flat.FlatNumber,
		flat.Floor,
		flat.Wing,
		flat.Area,
		flat.FlatType,
		flat.CreatedAt,
	)
	return mapError(err)
}

const flatColumns = `id, society_id, flat_number, floor, wing, area_sqft, flat_type, created_at`

func scanFlat(row interface{ Scan(...interface{}) error }) (*models.Flat, error) {
	var f models.Flat
	err := row.Scan(&f.ID, &f.SocietyID, &f.FlatNumber, &f.Floor, &f.Wing, &f.Area, &f.FlatType, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) GetFlat(ctx context.Context, societyID, flatID uuid.UUID) (*models.Flat, error) {
	query := `SELECT ` + flatColumns + ` FROM flats WHERE society_id = $1 AND id = $2`
	flat, err := scanFlat(s.q.QueryRowContext(ctx, query, societyID, flatID))
	if err != nil {
		return nil, mapError(err)
	}
	return flat, nil
}

func (s *PostgresStore) ListFlats(ctx context.Context, societyID uuid.UUID) ([]*models.Flat, error) {
	query := `SELECT ` + flatColumns + ` FROM flats WHERE society_id = $1 ORDER BY flat_number`
	rows, err := s.q.QueryContext(ctx, query, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flats []*models.Flat
	for rows.Next() {
		flat, err := scanFlat(rows)
		if err != nil {
			return nil, err
		}
		flats = append(flats, flat)
	}
	return flats, rows.Err()
}

func (s *PostgresStore) CreateFlatMember(ctx context.Context, member *models.FlatMember) error {
	if member.IsPrimary {
		query := `UPDATE flat_members SET is_primary = FALSE WHERE flat_id = $1 AND is_primary`
		if _, err := s.q.ExecContext(ctx, query, member.FlatID); err != nil {
			return fmt.Errorf("failed to demote primary member: %w", err)
		}
	}

	query := `
		INSERT INTO flat_members (id, flat_id, user_id, society_id, relation_type, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q.ExecContext(ctx, query,
		member.ID,
		member.FlatID,
		member.UserID,
		member.SocietyID,
		member.RelationType,
		member.IsPrimary,
		member.CreatedAt,
	)
	return mapError(err)
}

const flatMemberColumns = `id, flat_id, user_id, society_id, relation_type, is_primary, created_at`

func scanFlatMember(row interface{ Scan(...interface{}) error }) (*models.FlatMember, error) {
	var m models.FlatMember
	err := row.Scan(&m.ID, &m.FlatID, &m.UserID, &m.SocietyID, &m.RelationType, &m.IsPrimary, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) GetPrimaryMember(ctx context.Context, flatID uuid.UUID) (*models.FlatMember, error) {
	query := `SELECT ` + flatMemberColumns + ` FROM flat_members WHERE flat_id = $1 AND is_primary LIMIT 1`
	m, err := scanFlatMember(s.q.QueryRowContext(ctx, query, flatID))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (s *PostgresStore) ListFlatMembers(ctx context.Context, societyID, flatID uuid.UUID) ([]*models.FlatMember, error) {
	query := `SELECT ` + flatMemberColumns + ` FROM flat_members
		WHERE society_id = $1 AND flat_id = $2
		ORDER BY is_primary DESC, created_at`
	rows, err := s.q.QueryContext(ctx, query, societyID, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.FlatMember
	for rows.Next() {
		m, err := scanFlatMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) DeleteFlatMember(ctx context.Context, societyID, flatID, flatMemberID uuid.UUID) error {
	query := `DELETE FROM flat_members WHERE society_id = $1 AND flat_id = $2 AND id = $3`
	result, err := s.q.ExecContext(ctx, query, societyID, flatID, flatMemberID)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// Settings and discount schemes

func (s *PostgresStore) GetSettings(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	query := `
		SELECT id, society_id, rate_per_area, billing_cycle, due_day, late_fee_amount,
		       late_fee_type, discount_schemes_enabled, created_at, updated_at
		FROM maintenance_settings WHERE society_id = $1
	`
	var ms models.MaintenanceSettings
	err := s.q.QueryRowContext(ctx, query, societyID).Scan(
		&ms.ID,
		&ms.SocietyID,
		&ms.RatePerArea,
		&ms.BillingCycle,
		&ms.DueDay,
		&ms.LateFeeAmount,
		&ms.LateFeeType,
		&ms.DiscountSchemesEnabled,
		&ms.CreatedAt,
		&ms.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &ms, nil
}

// CreateSettings inserts with ON CONFLICT DO NOTHING so that losing a race
// reports ErrDuplicate without aborting the enclosing transaction.
func (s *PostgresStore) CreateSettings(ctx context.Context, ms *models.MaintenanceSettings) error {
	query := `
		INSERT INTO maintenance_settings (
			id, society_id, rate_per_area, billing_cycle, due_day, late_fee_amount,
			late_fee_type, discount_schemes_enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (society_id) DO NOTHING
	`
	result, err := s.q.ExecContext(ctx, query,
		ms.ID,
		ms.SocietyID,
		ms.RatePerArea,
		ms.BillingCycle,
		ms.DueDay,
		ms.LateFeeAmount,
		ms.LateFeeType,
		ms.DiscountSchemesEnabled,
		ms.CreatedAt,
		ms.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: maintenance settings for society %s", ErrDuplicate, ms.SocietyID)
	}
	return nil
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, ms *models.MaintenanceSettings) error {
	query := `
		UPDATE maintenance_settings
		SET rate_per_area = $1, billing_cycle = $2, due_day = $3, late_fee_amount = $4,
		    late_fee_type = $5, discount_schemes_enabled = $6, updated_at = $7
		WHERE society_id = $8
	`
	result, err := s.q.ExecContext(ctx, query,
		ms.RatePerArea,
		ms.BillingCycle,
		ms.DueDay,
		ms.LateFeeAmount,
		ms.LateFeeType,
		ms.DiscountSchemesEnabled,
		ms.UpdatedAt,
		ms.SocietyID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

const schemeColumns = `id, society_id, name, eligible_months, free_months, discount_type,
	discount_value, is_active, created_by, created_at, updated_at`

func scanScheme(row interface{ Scan(...interface{}) error }) (*models.DiscountScheme, error) {
	var ds models.DiscountScheme
	err := row.Scan(
		&ds.ID,
		&ds.SocietyID,
		&ds.Name,
		&ds.EligibleMonths,
		&ds.FreeMonths,
		&ds.DiscountType,
		&ds.DiscountValue,
		&ds.IsActive,
		&ds.CreatedBy,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *PostgresStore) CreateDiscountScheme(ctx context.Context, ds *models.DiscountScheme) error {
	query := `INSERT INTO discount_schemes (` + schemeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.q.ExecContext(ctx, query,
		ds.ID,
		ds.SocietyID,
		ds.Name,
		ds.EligibleMonths,
		ds.FreeMonths,
		ds.DiscountType,
		ds.DiscountValue,
		ds.IsActive,
		ds.CreatedBy,
		ds.CreatedAt,
		ds.UpdatedAt,
	)
	return mapError(err)
}

func (s *PostgresStore) GetDiscountScheme(ctx context.Context, societyID, schemeID uuid.UUID) (*models.DiscountScheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM discount_schemes WHERE society_id = $1 AND id = $2`
	ds, err := scanScheme(s.q.QueryRowContext(ctx, query, societyID, schemeID))
	if err != nil {
		return nil, mapError(err)
	}
	return ds, nil
}

func (s *PostgresStore) ListDiscountSchemes(ctx context.Context, societyID uuid.UUID) ([]*models.DiscountScheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM discount_schemes WHERE society_id = $1 ORDER BY created_at DESC`
	rows, err := s.q.QueryContext(ctx, query, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemes []*models.DiscountScheme
	for rows.Next() {
		ds, err := scanScheme(rows)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, ds)
	}
	return schemes, rows.Err()
}

func (s *PostgresStore) UpdateDiscountScheme(ctx context.Context, ds *models.DiscountScheme) error {
	query := `
		UPDATE discount_schemes
		SET name = $1, eligible_months = $2, free_months = $3, discount_type = $4,
		    discount_value = $5, is_active = $6, updated_at = $7
		WHERE society_id = $8 AND id = $9
	`
	result, err := s.q.ExecContext(ctx, query,
		ds.Name,
		ds.EligibleMonths,
		ds.FreeMonths,
		ds.DiscountType,
		ds.DiscountValue,
		ds.IsActive,
		ds.UpdatedAt,
		ds.SocietyID,
		ds.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *PostgresStore) DeleteDiscountScheme(ctx context.Context, societyID, schemeID uuid.UUID) error {
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM discount_schemes WHERE society_id = $1 AND id = $2`, societyID, schemeID)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// Bills

const billColumns = `id, society_id, flat_id, flat_number, member_id, bill_period_type, month, year,
	area_sqft, rate_per_sqft, total_before_discount, discount_amount, discount_scheme_id,
	final_payable_amount, late_fee, due_date, status, paid_amount, created_by, created_at, updated_at`

func scanBill(row interface{ Scan(...interface{}) error }) (*models.MaintenanceBill, error) {
	var (
		b        models.MaintenanceBill
		memberID uuid.NullUUID
		schemeID uuid.NullUUID
	)
	err := row.Scan(
		&b.ID,
		&b.SocietyID,
		&b.FlatID,
		&b.FlatNumber,
		&memberID,
		&b.PeriodType,
		&b.Month,
		&b.Year,
		&b.Area,
		&b.RatePerArea,
		&b.TotalBeforeDiscount,
		&b.DiscountAmount,
		&schemeID,
		&b.FinalPayableAmount,
		&b.LateFee,
		&b.DueDate,
		&b.Status,
		&b.PaidAmount,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.MemberID = memberID.UUID
	b.DiscountSchemeID = uuidPtr(schemeID)
	return &b, nil
}

func (s *PostgresStore) CreateBill(ctx context.Context, b *models.MaintenanceBill) error {
	query := `INSERT INTO maintenance_bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := s.q.ExecContext(ctx, query,
		b.ID,
		b.SocietyID,
		b.FlatID,
		b.FlatNumber,
		nullUUID(b.MemberID),
		b.PeriodType,
		b.Month,
		b.Year,
		b.Area,
		b.RatePerArea,
		b.TotalBeforeDiscount,
		b.DiscountAmount,
		nullUUIDPtr(b.DiscountSchemeID),
		b.FinalPayableAmount,
		b.LateFee,
		b.DueDate,
		b.Status,
		b.PaidAmount,
		b.CreatedBy,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return mapError(err)
}

// GetBill takes a row lock when called on a transactional view
func (s *PostgresStore) GetBill(ctx context.Context, societyID, billID uuid.UUID) (*models.MaintenanceBill, error) {
	query := `SELECT ` + billColumns + ` FROM maintenance_bills WHERE society_id = $1 AND id = $2`
	if s.tx != nil {
		query += ` FOR UPDATE`
	}
	bill, err := scanBill(s.q.QueryRowContext(ctx, query, societyID, billID))
	if err != nil {
		return nil, mapError(err)
	}
	return bill, nil
}

// UpdateBill writes the mutable fields: amounts touched by late fees, status and paid amount
func (s *PostgresStore) UpdateBill(ctx context.Context, b *models.MaintenanceBill) error {
	query := `
		UPDATE maintenance_bills
		SET final_payable_amount = $1, late_fee = $2, status = $3, paid_amount = $4, updated_at = $5
		WHERE society_id = $6 AND id = $7
	`
	result, err := s.q.ExecContext(ctx, query,
		b.FinalPayableAmount,
		b.LateFee,
		b.Status,
		b.PaidAmount,
		time.Now(),
		b.SocietyID,
		b.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *PostgresStore) ListBills(ctx context.Context, societyID uuid.UUID, filter BillFilter) ([]*models.MaintenanceBill, error) {
	where := []string{"society_id = $1"}
	args := []interface{}{societyID}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.PeriodType != "" {
		add("bill_period_type = $%d", filter.PeriodType)
	}
	if filter.Month != 0 {
		add("month = $%d", filter.Month)
	}
	if filter.Year != 0 {
		add("year = $%d", filter.Year)
	}
	if filter.FlatID != uuid.Nil {
		add("flat_id = $%d", filter.FlatID)
	}
	if filter.MemberID != uuid.Nil {
		add("member_id = $%d", filter.MemberID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}

	query := `SELECT ` + billColumns + ` FROM maintenance_bills WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY year DESC, month DESC, flat_number`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []*models.MaintenanceBill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func (s *PostgresStore) CountBillsForPeriod(ctx context.Context, societyID uuid.UUID, period models.BillPeriod) (int, error) {
	period = period.Normalize()
	query := `
		SELECT COUNT(*) FROM maintenance_bills
		WHERE society_id = $1 AND bill_period_type = $2 AND month = $3 AND year = $4
	`
	var count int
	err := s.q.QueryRowContext(ctx, query, societyID, period.Type, period.Month, period.Year).Scan(&count)
	return count, err
}

// Payments

// NextReceiptSequence increments the counter with a single upsert, so two
// concurrent payments can never read the same value.
func (s *PostgresStore) NextReceiptSequence(ctx context.Context, societyID uuid.UUID, year int) (int64, error) {
	query := `
		INSERT INTO receipt_sequences (society_id, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (society_id, year)
		DO UPDATE SET last_value = receipt_sequences.last_value + 1
		RETURNING last_value
	`
	var next int64
	if err := s.q.QueryRowContext(ctx, query, societyID, year).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to allocate receipt number: %w", err)
	}
	return next, nil
}

const paymentColumns = `id, society_id, flat_id, bill_ids, amount_paid, discount_amount, discount_scheme_id,
	is_annual_payment, receipt_number, payment_mode, payment_date, transaction_reference, remarks,
	created_by, created_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (*models.Payment, error) {
	var (
		p        models.Payment
		schemeID uuid.NullUUID
	)
	err := row.Scan(
		&p.ID,
		&p.SocietyID,
		&p.FlatID,
		pq.Array(&p.BillIDs),
		&p.AmountPaid,
		&p.DiscountAmount,
		&schemeID,
		&p.IsAnnualPayment,
		&p.ReceiptNumber,
		&p.PaymentMode,
		&p.PaymentDate,
		&p.TransactionReference,
		&p.Remarks,
		&p.CreatedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.BillIDs == nil {
		p.BillIDs = []uuid.UUID{}
	}
	p.DiscountSchemeID = uuidPtr(schemeID)
	return &p, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := s.q.ExecContext(ctx, query,
		p.ID,
		p.SocietyID,
		p.FlatID,
		pq.Array(p.BillIDs),
		p.AmountPaid,
		p.DiscountAmount,
		nullUUIDPtr(p.DiscountSchemeID),
		p.IsAnnualPayment,
		p.ReceiptNumber,
		p.PaymentMode,
		p.PaymentDate,
		p.TransactionReference,
		p.Remarks,
		p.CreatedBy,
		p.CreatedAt,
	)
	return mapError(err)
}

func (s *PostgresStore) GetPayment(ctx context.Context, societyID, paymentID uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE society_id = $1 AND id = $2`
	payment, err := scanPayment(s.q.QueryRowContext(ctx, query, societyID, paymentID))
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (s *PostgresStore) ListPayments(ctx context.Context, societyID uuid.UUID, filter PaymentFilter) ([]*models.Payment, error) {
	where := []string{"society_id = $1"}
	args := []interface{}{societyID}

	if filter.FlatID != uuid.Nil {
		args = append(args, filter.FlatID)
		where = append(where, fmt.Sprintf("flat_id = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM payment_date) = $%d", len(args)))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY payment_date DESC, receipt_number DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// Ledger

// AppendLedgerEntry takes a transaction-scoped advisory lock on the flat, so
// concurrent appends for the same flat queue behind each other until commit.
func (s *PostgresStore) AppendLedgerEntry(ctx context.Context, societyID, flatID uuid.UUID, build LedgerBuildFunc) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.WithinTx(ctx, func(tx Store) error {
		pg := tx.(*PostgresStore)

		if _, err := pg.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, flatID.String()); err != nil {
			return fmt.Errorf("failed to lock flat ledger: %w", err)
		}

		// 1. Read the latest balance
		balance := decimal.Zero
		var sequence int64
		query := `
			SELECT balance_after_entry, sequence FROM flat_ledger_entries
			WHERE flat_id = $1
			ORDER BY sequence DESC
			LIMIT 1
		`
		err := pg.q.QueryRowContext(ctx, query, flatID).Scan(&balance, &sequence)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read ledger balance: %w", err)
		}
		sequence++

		// 2. Build the entry on top of it
		built, err := build(balance, sequence)
		if err != nil {
			return err
		}
		if built.SocietyID != societyID || built.FlatID != flatID || built.Sequence != sequence {
			return fmt.Errorf("ledger entry does not match flat %s at sequence %d", flatID, sequence)
		}

		// 3. Insert
		insert := `
			INSERT INTO flat_ledger_entries (
				id, society_id, flat_id, sequence, entry_type, entry_date, reference_id, reference_type,
				debit_amount, credit_amount, balance_after_entry, notes, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`
		_, err = pg.q.ExecContext(ctx, insert,
			built.ID,
			built.SocietyID,
			built.FlatID,
			built.Sequence,
			built.EntryType,
			built.EntryDate,
			built.ReferenceID,
			built.ReferenceType,
			built.DebitAmount,
			built.CreditAmount,
			built.BalanceAfterEntry,
			built.Notes,
			built.CreatedBy,
			built.CreatedAt,
		)
		if err != nil {
			return mapError(err)
		}
		entry = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *PostgresStore) ListLedgerEntries(ctx context.Context, societyID, flatID uuid.UUID) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, society_id, flat_id, sequence, entry_type, entry_date, reference_id, reference_type,
		       debit_amount, credit_amount, balance_after_entry, notes, created_by, created_at
		FROM flat_ledger_entries
		WHERE society_id = $1 AND flat_id = $2
		ORDER BY sequence ASC
	`
	rows, err := s.q.QueryContext(ctx, query, societyID, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		err := rows.Scan(
			&e.ID,
			&e.SocietyID,
			&e.FlatID,
			&e.Sequence,
			&e.EntryType,
			&e.EntryDate,
			&e.ReferenceID,
			&e.ReferenceType,
			&e.DebitAmount,
			&e.CreditAmount,
			&e.BalanceAfterEntry,
			&e.Notes,
			&e.CreatedBy,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Transactions

const transactionColumns = `id, society_id, type, category, amount, description, vendor_name, payment_mode,
	date, reference_id, approval_status, reviewed_by, review_comments, reviewed_at, created_by, created_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*models.Transaction, error) {
	var (
		t          models.Transaction
		refID      uuid.NullUUID
		reviewedBy uuid.NullUUID
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.SocietyID,
		&t.Type,
		&t.Category,
		&t.Amount,
		&t.Description,
		&t.VendorName,
		&t.PaymentMode,
		&t.Date,
		&refID,
		&t.ApprovalStatus,
		&reviewedBy,
		&t.ReviewComments,
		&reviewedAt,
		&t.CreatedBy,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ReferenceID = uuidPtr(refID)
	t.ReviewedBy = uuidPtr(reviewedBy)
	if reviewedAt.Valid {
		at := reviewedAt.Time
		t.ReviewedAt = &at
	}
	return &t, nil
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := s.q.ExecContext(ctx, query,
		t.ID,
		t.SocietyID,
		t.Type,
		t.Category,
		t.Amount,
		t.Description,
		t.VendorName,
		t.PaymentMode,
		t.Date,
		nullUUIDPtr(t.ReferenceID),
		t.ApprovalStatus,
		nullUUIDPtr(t.ReviewedBy),
		t.ReviewComments,
		nullTimePtr(t.ReviewedAt),
		t.CreatedBy,
		t.CreatedAt,
	)
	return mapError(err)
}

func (s *PostgresStore) GetTransaction(ctx context.Context, societyID, txnID uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE society_id = $1 AND id = $2`
	if s.tx != nil {
		query += ` FOR UPDATE`
	}
	t, err := scanTransaction(s.q.QueryRowContext(ctx, query, societyID, txnID))
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTransactionReview(ctx context.Context, t *models.Transaction) error {
	query := `
		UPDATE transactions
		SET approval_status = $1, reviewed_by = $2, review_comments = $3, reviewed_at = $4
		WHERE society_id = $5 AND id = $6
	`
	result, err := s.q.ExecContext(ctx, query,
		t.ApprovalStatus,
		nullUUIDPtr(t.ReviewedBy),
		t.ReviewComments,
		nullTimePtr(t.ReviewedAt),
		t.SocietyID,
		t.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// transactionWhere builds the WHERE clause shared by listing and counting
func transactionWhere(societyID uuid.UUID, filter TransactionFilter) (string, []interface{}) {
	where := []string{"society_id = $1"}
	args := []interface{}{societyID}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Status != "" {
		add("approval_status = $%d", filter.Status)
	}
	if filter.Year != 0 {
		add("EXTRACT(YEAR FROM date) = $%d", filter.Year)
	}
	if filter.Month != 0 {
		add("EXTRACT(MONTH FROM date) = $%d", filter.Month)
	}
	if filter.ApprovedOnly {
		add("approval_status = $%d", models.ApprovalApproved)
	}
	return strings.Join(where, " AND "), args
}

func (s *PostgresStore) ListTransactions(ctx context.Context, societyID uuid.UUID, filter TransactionFilter) ([]*models.Transaction, error) {
	where, args := transactionWhere(societyID, filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *PostgresStore) CountTransactions(ctx context.Context, societyID uuid.UUID, filter TransactionFilter) (int, error) {
	where, args := transactionWhere(societyID, filter)
	var count int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&count)
	return count, err
}

// Notifications

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, society_id, user_id, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q.ExecContext(ctx, query,
		n.ID, n.SocietyID, n.UserID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt,
	)
	return mapError(err)
}

func (s *PostgresStore) ListNotifications(ctx context.Context, societyID, userID uuid.UUID) ([]*models.Notification, error) {
	query := `
		SELECT id, society_id, user_id, title, message, type, read, created_at
		FROM notifications WHERE society_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.q.QueryContext(ctx, query, societyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.SocietyID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, societyID, userID, notificationID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE society_id = $1 AND user_id = $2 AND id = $3`
	result, err := s.q.ExecContext(ctx, query, societyID, userID, notificationID)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, societyID, userID uuid.UUID) (int, error) {
	query := `UPDATE notifications SET read = TRUE WHERE society_id = $1 AND user_id = $2 AND NOT read`
	result, err := s.q.ExecContext(ctx, query, societyID, userID)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	return int(rows), err
}
