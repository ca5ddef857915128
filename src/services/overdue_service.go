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

// OverdueService marks bills past their due date as overdue and charges late fees
type OverdueService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewOverdueService creates a new overdue service
func NewOverdueService(st store.Store) *OverdueService {
	return &OverdueService{
		store: st,
		log:   logger.WithComponent("overdue"),
		now:   time.Now,
	}
}

// OverdueResult summarizes an overdue run
type OverdueResult struct {
	OverdueBillsProcessed int             `json:"overdue_bills_processed"`
	LateFeesCharged       int             `json:"late_fees_charged"`
	LateFeeTotal          decimal.Decimal `json:"late_fee_total"`
}

// Process marks the society's open bills that are past due as overdue. Managers only.
func (s *OverdueService) Process(ctx context.Context, actorID, societyID uuid.UUID) (*OverdueResult, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID, models.RoleManager); err != nil {
		return nil, err
	}
	return s.process(ctx, actorID, societyID)
}

// ProcessSociety runs the overdue pass for one society without an acting user.
// Used by the batch command.
func (s *OverdueService) ProcessSociety(ctx context.Context, societyID uuid.UUID) (*OverdueResult, error) {
	if _, err := s.store.GetSociety(ctx, societyID); err != nil {
		return nil, lookupError("ProcessSociety", "society", err)
	}
	return s.process(ctx, uuid.Nil, societyID)
}

// ProcessAll runs the overdue pass for every society. Used by the batch command.
func (s *OverdueService) ProcessAll(ctx context.Context) (map[uuid.UUID]*OverdueResult, error) {
	ids, err := s.store.ListSocietyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list societies: %w", err)
	}

	results := make(map[uuid.UUID]*OverdueResult, len(ids))
	for _, id := range ids {
		result, err := s.process(ctx, uuid.Nil, id)
		if err != nil {
			return results, fmt.Errorf("failed to process society %s: %w", id, err)
		}
		results[id] = result
	}
	return results, nil
}

// process is idempotent: a bill already overdue is not selected again, and a
// late fee is only charged while the bill carries none.
func (s *OverdueService) process(ctx context.Context, actorID, societyID uuid.UUID) (*OverdueResult, error) {
	settings, err := settingsOrDefault(ctx, s.store, societyID)
	if err != nil {
		return nil, err
	}

	bills, err := s.store.ListBills(ctx, societyID, store.BillFilter{
		Statuses: []models.BillStatus{models.BillStatusPending, models.BillStatusPartial},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open bills: %w", err)
	}

	today := s.now()
	result := &OverdueResult{LateFeeTotal: decimal.Zero}

	for _, listed := range bills {
		if !listed.IsOverdue(today) {
			continue
		}

		marked := false
		err := s.store.WithinTx(ctx, func(tx store.Store) error {
			// The listing is a snapshot; a payment may have landed since
			bill, err := tx.GetBill(ctx, societyID, listed.ID)
			if err != nil {
				return fmt.Errorf("failed to reload bill %s: %w", listed.ID, err)
			}
			if !bill.IsOverdue(today) {
				return nil
			}

			fee := decimal.Zero
			if settings.HasLateFee() {
				fee = settings.CalculateLateFee(bill.FinalPayableAmount)
			}

			charged := bill.MarkOverdue(fee)
			if err := tx.UpdateBill(ctx, bill); err != nil {
				return fmt.Errorf("failed to update bill %s: %w", bill.ID, err)
			}

			if charged.IsPositive() {
				_, err := appendLedgerEntry(ctx, tx, AppendRequest{
					SocietyID:     societyID,
					FlatID:        bill.FlatID,
					EntryType:     models.EntryTypeLateFee,
					ReferenceID:   bill.ID,
					ReferenceType: models.ReferenceBill,
					DebitAmount:   charged,
					Notes:         fmt.Sprintf("Late fee on maintenance bill for %s", bill.Period()),
					CreatedBy:     actorID,
				}, today)
				if err != nil {
					return err
				}
			}

			err = enqueueNotification(ctx, tx, societyID, bill.MemberID,
				"Maintenance Bill Overdue",
				fmt.Sprintf("Your maintenance bill for %s was due on %s. Outstanding: Rs.%s",
					bill.Period(), bill.DueDate.Format("2006-01-02"), bill.Outstanding().StringFixed(2)),
				models.NotificationOverdue, today)
			if err != nil {
				return err
			}

			marked = true
			if charged.IsPositive() {
				result.LateFeesCharged++
				result.LateFeeTotal = result.LateFeeTotal.Add(charged)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if marked {
			result.OverdueBillsProcessed++
		} else {
			s.log.Debug().Str("bill_id", listed.ID.String()).Msg("Bill settled during overdue run, skipped")
		}
	}

	s.log.Info().
		Str("society_id", societyID.String()).
		Int("overdue_bills", result.OverdueBillsProcessed).
		Int("late_fees", result.LateFeesCharged).
		Str("late_fee_total", result.LateFeeTotal.StringFixed(2)).
		Msg("Overdue bills processed")

	return result, nil
}
