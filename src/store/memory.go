package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/shopspring/decimal"
)

// memData is the state of a MemoryStore. Stored values are never mutated in
// place: writes replace the pointer with a fresh copy, so a shallow clone of
// the maps is a consistent snapshot.
type memData struct {
	societies     map[uuid.UUID]*models.Society
	memberships   map[string]*models.Membership // society/user
	flats         map[uuid.UUID]*models.Flat
	flatMembers   map[uuid.UUID][]*models.FlatMember // by flat
	settings      map[uuid.UUID]*models.MaintenanceSettings
	schemes       map[uuid.UUID]*models.DiscountScheme
	bills         map[uuid.UUID]*models.MaintenanceBill
	billPeriods   map[string]uuid.UUID // society/flat/period -> bill
	payments      map[uuid.UUID]*models.Payment
	receiptSeq    map[string]int64                    // society/year
	ledger        map[uuid.UUID][]*models.LedgerEntry // by flat
	transactions  map[uuid.UUID]*models.Transaction
	notifications map[uuid.UUID]*models.Notification
}

func newMemData() *memData {
	return &memData{
		societies:     make(map[uuid.UUID]*models.Society),
		memberships:   make(map[string]*models.Membership),
		flats:         make(map[uuid.UUID]*models.Flat),
		flatMembers:   make(map[uuid.UUID][]*models.FlatMember),
		settings:      make(map[uuid.UUID]*models.MaintenanceSettings),
		schemes:       make(map[uuid.UUID]*models.DiscountScheme),
		bills:         make(map[uuid.UUID]*models.MaintenanceBill),
		billPeriods:   make(map[string]uuid.UUID),
		payments:      make(map[uuid.UUID]*models.Payment),
		receiptSeq:    make(map[string]int64),
		ledger:        make(map[uuid.UUID][]*models.LedgerEntry),
		transactions:  make(map[uuid.UUID]*models.Transaction),
		notifications: make(map[uuid.UUID]*models.Notification),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		societies:     copyMap(d.societies),
		memberships:   copyMap(d.memberships),
		flats:         copyMap(d.flats),
		flatMembers:   make(map[uuid.UUID][]*models.FlatMember, len(d.flatMembers)),
		settings:      copyMap(d.settings),
		schemes:       copyMap(d.schemes),
		bills:         copyMap(d.bills),
		billPeriods:   copyMap(d.billPeriods),
		payments:      copyMap(d.payments),
		receiptSeq:    copyMap(d.receiptSeq),
		ledger:        make(map[uuid.UUID][]*models.LedgerEntry, len(d.ledger)),
		transactions:  copyMap(d.transactions),
		notifications: copyMap(d.notifications),
	}
	for k, v := range d.flatMembers {
		c.flatMembers[k] = append([]*models.FlatMember(nil), v...)
	}
	for k, v := range d.ledger {
		c.ledger[k] = append([]*models.LedgerEntry(nil), v...)
	}
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// MemoryStore is an in-memory Store used by tests, the demo flow and the
// memory driver of the server.
type MemoryStore struct {
	mu   *sync.RWMutex // nil for a transactional view; the parent holds the lock
	data *memData
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.RWMutex{},
		data: newMemData(),
	}
}

// read checks the context and takes the read lock
func (s *MemoryStore) read(ctx context.Context) (func(), error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if s.mu == nil {
		return func() {}, nil
	}
	s.mu.RLock()
	return s.mu.RUnlock, nil
}

// write checks the context and takes the write lock
func (s *MemoryStore) write(ctx context.Context) (func(), error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if s.mu == nil {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

// WithinTx runs fn on a snapshot and swaps it in on success.
// Other callers are blocked until fn returns.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.mu == nil {
		return fn(s)
	}

	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	snapshot := s.data.clone()
	if err := fn(&MemoryStore{data: snapshot}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func membershipKey(societyID, userID uuid.UUID) string {
	return societyID.String() + "/" + userID.String()
}

func billPeriodKey(societyID, flatID uuid.UUID, period models.BillPeriod) string {
	period = period.Normalize()
	return fmt.Sprintf("%s/%s/%s/%d/%d", societyID, flatID, period.Type, period.Month, period.Year)
}

// Directory

func (s *MemoryStore) CreateSociety(ctx context.Context, society *models.Society) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := s.data.societies[society.ID]; ok {
		return ErrDuplicate
	}
	c := *society
	s.data.societies[society.ID] = &c
	return nil
}

func (s *MemoryStore) GetSociety(ctx context.Context, societyID uuid.UUID) (*models.Society, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	society, ok := s.data.societies[societyID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *society
	return &c, nil
}

func (s *MemoryStore) UpdateSociety(ctx context.Context, society *models.Society) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := s.data.societies[society.ID]; !ok {
		return ErrNotFound
	}
	c := *society
	s.data.societies[society.ID] = &c
	return nil
}

func (s *MemoryStore) ListSocietyIDs(ctx context.Context) ([]uuid.UUID, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ids := make([]uuid.UUID, 0, len(s.data.societies))
	for id := range s.data.societies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (s *MemoryStore) CreateMembership(ctx context.Context, membership *models.Membership) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	key := membershipKey(membership.SocietyID, membership.UserID)
	if _, ok := s.data.memberships[key]; ok {
		return ErrDuplicate
	}
	c := *membership
	s.data.memberships[key] = &c
	return nil
}

func (s *MemoryStore) GetMembership(ctx context.Context, societyID, userID uuid.UUID) (*models.Membership, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	membership, ok := s.data.memberships[membershipKey(societyID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *membership
	return &c, nil
}

func (s *MemoryStore) GetMembershipByID(ctx context.Context, societyID, membershipID uuid.UUID) (*models.Membership, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, membership := range s.data.memberships {
		if membership.ID == membershipID && membership.SocietyID == societyID {
			c := *membership
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateMembership(ctx context.Context, membership *models.Membership) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	key := membershipKey(membership.SocietyID, membership.UserID)
	existing, ok := s.data.memberships[key]
	if !ok || existing.ID != membership.ID {
		return ErrNotFound
	}
	c := *membership
	s.data.memberships[key] = &c
	return nil
}

func (s *MemoryStore) ListMemberships(ctx context.Context, societyID uuid.UUID) ([]*models.Membership, error) {
	return s.listMemberships(ctx, func(m *models.Membership) bool { return m.SocietyID == societyID })
}

func (s *MemoryStore) ListUserMemberships(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	return s.listMemberships(ctx, func(m *models.Membership) bool { return m.UserID == userID })
}

func (s *MemoryStore) listMemberships(ctx context.Context, keep func(*models.Membership) bool) ([]*models.Membership, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var memberships []*models.Membership
	for _, membership := range s.data.memberships {
		if keep(membership) {
			c := *membership
			memberships = append(memberships, &c)
		}
	}
	sort.Slice(memberships, func(i, j int) bool {
		if !memberships[i].CreatedAt.Equal(memberships[j].CreatedAt) {
			return memberships[i].CreatedAt.Before(memberships[j].CreatedAt)
		}
		return memberships[i].ID.String() < memberships[j].ID.String()
	})
	return memberships, nil
}

func (s *MemoryStore) CreateFlat(ctx context.Context, flat *models.Flat) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range s.data.flats {
		if existing.SocietyID == flat.SocietyID && existing.FlatNumber == flat.FlatNumber {
			return ErrDuplicate
		}
	}
	c := *flat
	s.data.flats[flat.ID] = &c
	return nil
}

func (s *MemoryStore) GetFlat(ctx context.Context, societyID, flatID uuid.UUID) (*models.Flat, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	flat, ok := s.data.flats[flatID]
	if !ok || flat.SocietyID != societyID {
		return nil, ErrNotFound
	}
	c := *flat
	return &c, nil
}

func (s *MemoryStore) ListFlats(ctx context.Context, societyID uuid.UUID) ([]*models.Flat, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var flats []*models.Flat
	for _, flat := range s.data.flats {
		if flat.SocietyID == societyID {
			c := *flat
			flats = append(flats, &c)
		}
	}
	sort.Slice(flats, func(i, j int) bool { return flats[i].FlatNumber < flats[j].FlatNumber })
	return flats, nil
}

func (s *MemoryStore) CreateFlatMember(ctx context.Context, member *models.FlatMember) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	members := s.data.flatMembers[member.FlatID]
	updated := make([]*models.FlatMember, 0, len(members)+1)
	for _, existing := range members {
		if existing.UserID == member.UserID {
			return ErrDuplicate
		}
		if member.IsPrimary && existing.IsPrimary {
			demoted := *existing
			demoted.IsPrimary = false
			existing = &demoted
		}
		updated = append(updated, existing)
	}
	c := *member
	s.data.flatMembers[member.FlatID] = append(updated, &c)
	return nil
}

func (s *MemoryStore) GetPrimaryMember(ctx context.Context, flatID uuid.UUID) (*models.FlatMember, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, member := range s.data.flatMembers[flatID] {
		if member.IsPrimary {
			c := *member
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListFlatMembers(ctx context.Context, societyID, flatID uuid.UUID) ([]*models.FlatMember, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var members []*models.FlatMember
	for _, member := range s.data.flatMembers[flatID] {
		if member.SocietyID == societyID {
			c := *member
			members = append(members, &c)
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].IsPrimary && !members[j].IsPrimary })
	return members, nil
}

func (s *MemoryStore) DeleteFlatMember(ctx context.Context, societyID, flatID, flatMemberID uuid.UUID) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	members := s.data.flatMembers[flatID]
	for i, member := range members {
		if member.ID != flatMemberID || member.SocietyID != societyID {
			continue
		}
		remaining := make([]*models.FlatMember, 0, len(members)-1)
		remaining = append(remaining, members[:i]...)
		s.data.flatMembers[flatID] = append(remaining, members[i+1:]...)
		return nil
	}
	return ErrNotFound
}

// Settings and discount schemes

func (s *MemoryStore) GetSettings(ctx context.Context, societyID uuid.UUID) (*models.MaintenanceSettings, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	settings, ok := s.data.settings[societyID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *settings
	return &c, nil
}

func (s *MemoryStore) CreateSettings(ctx context.Context, settings *models.MaintenanceSettings) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := s.data.settings[settings.SocietyID]; ok {
		return ErrDuplicate
	}
	c := *settings
	s.data.settings[settings.SocietyID] = &c
	return nil
}

func (s *MemoryStore) UpdateSettings(ctx context.Context, settings *models.MaintenanceSettings) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := s.data.settings[settings.SocietyID]; !ok {
		return ErrNotFound
	}
	c := *settings
	s.data.settings[settings.SocietyID] = &c
	return nil
}

func (s *MemoryStore) CreateDiscountScheme(ctx context.Context, scheme *models.DiscountScheme) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	c := *scheme
	s.data.schemes[scheme.ID] = &c
	return nil
}

func (s *MemoryStore) GetDiscountScheme(ctx context.Context, societyID, schemeID uuid.UUID) (*models.DiscountScheme, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	scheme, ok := s.data.schemes[schemeID]
	if !ok || scheme.SocietyID != societyID {
		return nil, ErrNotFound
	}
	c := *scheme
	return &c, nil
}

func (s *MemoryStore) ListDiscountSchemes(ctx context.Context, societyID uuid.UUID) ([]*models.DiscountScheme, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var schemes []*models.DiscountScheme
	for _, scheme := range s.data.schemes {
		if scheme.SocietyID == societyID {
			c := *scheme
			schemes = append(schemes, &c)
		}
	}
	sort.Slice(schemes, func(i, j int) bool { return schemes[i].CreatedAt.After(schemes[j].CreatedAt) })
	return schemes, nil
}

func (s *MemoryStore) UpdateDiscountScheme(ctx context.Context, scheme *models.DiscountScheme) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := s.data.schemes[scheme.ID]
	if !ok || existing.SocietyID != scheme.SocietyID {
		return ErrNotFound
	}
	c := *scheme
	s.data.schemes[scheme.ID] = &c
	return nil
}

func (s *MemoryStore) DeleteDiscountScheme(ctx context.Context, societyID, schemeID uuid.UUID) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := s.data.schemes[schemeID]
	if !ok || existing.SocietyID != societyID {
		return ErrNotFound
	}
	delete(s.data.schemes, schemeID)
	return nil
}

// Bills

func (s *MemoryStore) CreateBill(ctx context.Context, bill *models.MaintenanceBill) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	key := billPeriodKey(bill.SocietyID, bill.FlatID, bill.Period())
	if _, ok := s.data.billPeriods[key]; ok {
		return ErrDuplicate
	}
	c := *bill
	s.data.bills[bill.ID] = &c
	s.data.billPeriods[key] = bill.ID
	return nil
}

func (s *MemoryStore) GetBill(ctx context.Context, societyID, billID uuid.UUID) (*models.MaintenanceBill, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	bill, ok := s.data.bills[billID]
	if !ok || bill.SocietyID != societyID {
		return nil, ErrNotFound
	}
	c := *bill
	return &c, nil
}

func (s *MemoryStore) UpdateBill(ctx context.Context, bill *models.MaintenanceBill) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := s.data.bills[bill.ID]
	if !ok || existing.SocietyID != bill.SocietyID {
		return ErrNotFound
	}
	c := *bill
	c.UpdatedAt = time.Now()
	s.data.bills[bill.ID] = &c
	return nil
}

func (s *MemoryStore) ListBills(ctx context.Context, societyID uuid.UUID, filter BillFilter) ([]*models.MaintenanceBill, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var bills []*models.MaintenanceBill
	for _, bill := range s.data.bills {
		if bill.SocietyID != societyID || !filter.matches(bill) {
			continue
		}
		c := *bill
		bills = append(bills, &c)
	}
	sort.Slice(bills, func(i, j int) bool {
		a, b := bills[i], bills[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.FlatNumber < b.FlatNumber
	})
	return paginate(bills, filter.Limit, filter.Offset), nil
}

func (f BillFilter) matches(bill *models.MaintenanceBill) bool {
	if f.PeriodType != "" && bill.PeriodType != f.PeriodType {
		return false
	}
	if f.Month != 0 && bill.Month != f.Month {
		return false
	}
	if f.Year != 0 && bill.Year != f.Year {
		return false
	}
	if f.FlatID != uuid.Nil && bill.FlatID != f.FlatID {
		return false
	}
	if f.MemberID != uuid.Nil && bill.MemberID != f.MemberID {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, status := range f.Statuses {
			if bill.Status == status {
				return true
			}
		}
		return false
	}
	return true
}

func (s *MemoryStore) CountBillsForPeriod(ctx context.Context, societyID uuid.UUID, period models.BillPeriod) (int, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	period = period.Normalize()
	count := 0
	for _, bill := range s.data.bills {
		if bill.SocietyID == societyID && bill.Period() == period {
			count++
		}
	}
	return count, nil
}

// Payments

func (s *MemoryStore) NextReceiptSequence(ctx context.Context, societyID uuid.UUID, year int) (int64, error) {
	unlock, err := s.write(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	key := fmt.Sprintf("%s/%d", societyID, year)
	s.data.receiptSeq[key]++
	return s.data.receiptSeq[key], nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range s.data.payments {
		if existing.SocietyID == payment.SocietyID && existing.ReceiptNumber == payment.ReceiptNumber {
			return ErrDuplicate
		}
	}
	c := *payment
	c.BillIDs = append([]uuid.UUID(nil), payment.BillIDs...)
	s.data.payments[payment.ID] = &c
	return nil
}

func (s *MemoryStore) GetPayment(ctx context.Context, societyID, paymentID uuid.UUID) (*models.Payment, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	payment, ok := s.data.payments[paymentID]
	if !ok || payment.SocietyID != societyID {
		return nil, ErrNotFound
	}
	c := *payment
	c.BillIDs = append([]uuid.UUID{}, payment.BillIDs...)
	return &c, nil
}

func (s *MemoryStore) ListPayments(ctx context.Context, societyID uuid.UUID, filter PaymentFilter) ([]*models.Payment, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var payments []*models.Payment
	for _, payment := range s.data.payments {
		if payment.SocietyID != societyID {
			continue
		}
		if filter.FlatID != uuid.Nil && payment.FlatID != filter.FlatID {
			continue
		}
		if filter.Year != 0 && payment.PaymentDate.Year() != filter.Year {
			continue
		}
		c := *payment
		c.BillIDs = append([]uuid.UUID{}, payment.BillIDs...)
		payments = append(payments, &c)
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		}
		return payments[i].ReceiptNumber > payments[j].ReceiptNumber
	})
	return paginate(payments, filter.Limit, filter.Offset), nil
}

// Ledger

// AppendLedgerEntry runs under the write lock, which serializes appends for every flat
func (s *MemoryStore) AppendLedgerEntry(ctx context.Context, societyID, flatID uuid.UUID, build LedgerBuildFunc) (*models.LedgerEntry, error) {
	unlock, err := s.write(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries := s.data.ledger[flatID]
	balance := decimal.Zero
	var sequence int64 = 1
	if n := len(entries); n > 0 {
		balance = entries[n-1].BalanceAfterEntry
		sequence = entries[n-1].Sequence + 1
	}

	entry, err := build(balance, sequence)
	if err != nil {
		return nil, err
	}
	if entry.SocietyID != societyID || entry.FlatID != flatID || entry.Sequence != sequence {
		return nil, fmt.Errorf("ledger entry does not match flat %s at sequence %d", flatID, sequence)
	}

	c := *entry
	s.data.ledger[flatID] = append(entries, &c)
	return entry, nil
}

func (s *MemoryStore) ListLedgerEntries(ctx context.Context, societyID, flatID uuid.UUID) ([]*models.LedgerEntry, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var entries []*models.LedgerEntry
	for _, entry := range s.data.ledger[flatID] {
		if entry.SocietyID != societyID {
			continue
		}
		c := *entry
		entries = append(entries, &c)
	}
	return entries, nil
}

// Transactions

func (s *MemoryStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	c := *txn
	s.data.transactions[txn.ID] = &c
	return nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, societyID, txnID uuid.UUID) (*models.Transaction, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	txn, ok := s.data.transactions[txnID]
	if !ok || txn.SocietyID != societyID {
		return nil, ErrNotFound
	}
	c := *txn
	return &c, nil
}

func (s *MemoryStore) UpdateTransactionReview(ctx context.Context, txn *models.Transaction) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := s.data.transactions[txn.ID]
	if !ok || existing.SocietyID != txn.SocietyID {
		return ErrNotFound
	}
	c := *existing
	c.ApprovalStatus = txn.ApprovalStatus
	c.ReviewedBy = txn.ReviewedBy
	c.ReviewComments = txn.ReviewComments
	c.ReviewedAt = txn.ReviewedAt
	s.data.transactions[txn.ID] = &c
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, societyID uuid.UUID, filter TransactionFilter) ([]*models.Transaction, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	txns := s.filterTransactions(societyID, filter)
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	return paginate(txns, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) CountTransactions(ctx context.Context, societyID uuid.UUID, filter TransactionFilter) (int, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	return len(s.filterTransactions(societyID, filter)), nil
}

// filterTransactions returns copies of the matching transactions; the caller holds the lock
func (s *MemoryStore) filterTransactions(societyID uuid.UUID, filter TransactionFilter) []*models.Transaction {
	var txns []*models.Transaction
	for _, txn := range s.data.transactions {
		if txn.SocietyID != societyID || !filter.matches(txn) {
			continue
		}
		c := *txn
		txns = append(txns, &c)
	}
	return txns
}

func (f TransactionFilter) matches(txn *models.Transaction) bool {
	switch {
	case f.Type != "" && txn.Type != f.Type:
		return false
	case f.Category != "" && txn.Category != f.Category:
		return false
	case f.Status != "" && txn.ApprovalStatus != f.Status:
		return false
	case f.Year != 0 && txn.Date.Year() != f.Year:
		return false
	case f.Month != 0 && int(txn.Date.Month()) != f.Month:
		return false
	case f.ApprovedOnly && !txn.IsApproved():
		return false
	}
	return true
}

// Notifications

func (s *MemoryStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	c := *notification
	s.data.notifications[notification.ID] = &c
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, societyID, userID uuid.UUID) ([]*models.Notification, error) {
	unlock, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var notifications []*models.Notification
	for _, n := range s.data.notifications {
		if n.SocietyID == societyID && n.UserID == userID {
			c := *n
			notifications = append(notifications, &c)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, societyID, userID, notificationID uuid.UUID) error {
	unlock, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	n, ok := s.data.notifications[notificationID]
	if !ok || n.SocietyID != societyID || n.UserID != userID {
		return ErrNotFound
	}
	c := *n
	c.Read = true
	s.data.notifications[notificationID] = &c
	return nil
}

func (s *MemoryStore) MarkAllNotificationsRead(ctx context.Context, societyID, userID uuid.UUID) (int, error) {
	unlock, err := s.write(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	marked := 0
	for id, n := range s.data.notifications {
		if n.SocietyID != societyID || n.UserID != userID || n.Read {
			continue
		}
		c := *n
		c.Read = true
		s.data.notifications[id] = &c
		marked++
	}
	return marked, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
