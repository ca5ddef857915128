package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService records and reads the per-flat running ledgers
type LedgerService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(st store.Store) *LedgerService {
	return &LedgerService{
		store: st,
		log:   logger.WithComponent("ledger"),
		now:   time.Now,
	}
}

// AppendRequest describes a single ledger movement. Exactly one of
// DebitAmount and CreditAmount is normally non-zero.
type AppendRequest struct {
	SocietyID     uuid.UUID
	FlatID        uuid.UUID
	EntryType     models.LedgerEntryType
	ReferenceID   uuid.UUID
	ReferenceType models.ReferenceType
	DebitAmount   decimal.Decimal
	CreditAmount  decimal.Decimal
	Notes         string
	CreatedBy     uuid.UUID
}

// Append records an entry on the flat's ledger
func (s *LedgerService) Append(ctx context.Context, req AppendRequest) (*models.LedgerEntry, error) {
	return appendLedgerEntry(ctx, s.store, req, s.now())
}

// appendLedgerEntry computes the running balance on top of the flat's latest
// entry. The store serializes the read and the insert per flat.
func appendLedgerEntry(ctx context.Context, st store.LedgerStore, req AppendRequest, at time.Time) (*models.LedgerEntry, error) {
	if req.DebitAmount.IsNegative() || req.CreditAmount.IsNegative() {
		return nil, fmt.Errorf("ledger amounts cannot be negative")
	}

	entry, err := st.AppendLedgerEntry(ctx, req.SocietyID, req.FlatID,
		func(previous decimal.Decimal, sequence int64) (*models.LedgerEntry, error) {
			return &models.LedgerEntry{
				ID:                uuid.New(),
				SocietyID:         req.SocietyID,
				FlatID:            req.FlatID,
				Sequence:          sequence,
				EntryType:         req.EntryType,
				EntryDate:         at,
				ReferenceID:       req.ReferenceID,
				ReferenceType:     req.ReferenceType,
				DebitAmount:       req.DebitAmount.Round(2),
				CreditAmount:      req.CreditAmount.Round(2),
				BalanceAfterEntry: models.NextBalance(previous, req.DebitAmount.Round(2), req.CreditAmount.Round(2)),
				Notes:             req.Notes,
				CreatedBy:         req.CreatedBy,
				CreatedAt:         at,
			}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to append %s ledger entry: %w", req.EntryType, err)
	}
	return entry, nil
}

// FlatLedger returns a flat's entries with totals. Members may only read the
// ledger of a flat they are the primary occupant of.
func (s *LedgerService) FlatLedger(ctx context.Context, actorID, societyID, flatID uuid.UUID) (*models.FlatLedgerSummary, error) {
	const op = "FlatLedger"

	membership, err := requireMember(ctx, s.store, actorID, societyID)
	if err != nil {
		return nil, err
	}

	flat, err := s.store.GetFlat(ctx, societyID, flatID)
	if err != nil {
		return nil, lookupError(op, "flat", err)
	}

	if membership.Role != models.RoleManager {
		occupant, err := primaryOccupant(ctx, s.store, flatID)
		if err != nil {
			return nil, err
		}
		if occupant != actorID {
			return nil, forbiddenError(op, "insufficient permissions")
		}
	}

	entries, err := s.store.ListLedgerEntries(ctx, societyID, flatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	summary := models.SummarizeLedger(flat, entries)
	return &summary, nil
}

// VerifyFlat replays a flat's ledger and reports the first entry whose stored
// balance disagrees with the replay.
func (s *LedgerService) VerifyFlat(ctx context.Context, societyID, flatID uuid.UUID) error {
	entries, err := s.store.ListLedgerEntries(ctx, societyID, flatID)
	if err != nil {
		return fmt.Errorf("failed to list ledger entries: %w", err)
	}

	for i, entry := range entries {
		if entry.Sequence != int64(i+1) {
			return fmt.Errorf("ledger of flat %s has sequence %d at position %d", flatID, entry.Sequence, i+1)
		}
	}

	if _, err := models.ReplayLedger(entries); err != nil {
		s.log.Error().
			Err(err).
			Str("society_id", societyID.String()).
			Str("flat_id", flatID.String()).
			Msg("Ledger replay mismatch")
		return fmt.Errorf("ledger of flat %s does not reconcile: %w", flatID, err)
	}
	return nil
}

// VerifySociety replays every flat ledger of a society and returns the
// flats that fail, keyed by flat number.
func (s *LedgerService) VerifySociety(ctx context.Context, actorID, societyID uuid.UUID) (map[string]string, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}

	flats, err := s.store.ListFlats(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}

	failures := make(map[string]string)
	for _, flat := range flats {
		if err := s.VerifyFlat(ctx, societyID, flat.ID); err != nil {
			failures[flat.FlatNumber] = err.Error()
		}
	}
	return failures, nil
}
