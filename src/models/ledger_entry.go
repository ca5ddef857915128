package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryType represents the type of a flat ledger entry
type LedgerEntryType string

const (
	EntryTypeBillGenerated   LedgerEntryType = "bill_generated"
	EntryTypePaymentReceived LedgerEntryType = "payment_received"
	EntryTypeDiscountApplied LedgerEntryType = "discount_applied"
	EntryTypeLateFee         LedgerEntryType = "late_fee"
	EntryTypeAdjustment      LedgerEntryType = "adjustment"
)

// ReferenceType identifies what a ledger entry points back to
type ReferenceType string

const (
	ReferenceBill    ReferenceType = "bill"
	ReferencePayment ReferenceType = "payment"
)

// LedgerEntry is an immutable entry in a flat's running ledger.
// BalanceAfterEntry = previous balance + DebitAmount - CreditAmount.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	SocietyID     uuid.UUID       `json:"society_id" db:"society_id"`
	FlatID        uuid.UUID       `json:"flat_id" db:"flat_id"`
	Sequence      int64           `json:"sequence" db:"sequence"` // Per-flat, strictly increasing
	EntryType     LedgerEntryType `json:"entry_type" db:"entry_type"`
	EntryDate     time.Time       `json:"entry_date" db:"entry_date"`
	ReferenceID   uuid.UUID       `json:"reference_id" db:"reference_id"`
	ReferenceType ReferenceType   `json:"reference_type" db:"reference_type"`

	DebitAmount       decimal.Decimal `json:"debit_amount" db:"debit_amount"`
	CreditAmount      decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	BalanceAfterEntry decimal.Decimal `json:"balance_after_entry" db:"balance_after_entry"`

	Notes     string    `json:"notes" db:"notes"`
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NetAmount returns the signed effect of the entry on the balance
func (e *LedgerEntry) NetAmount() decimal.Decimal {
	return e.DebitAmount.Sub(e.CreditAmount)
}

// NextBalance computes the running balance after applying debit and credit
func NextBalance(previous, debit, credit decimal.Decimal) decimal.Decimal {
	return previous.Add(debit).Sub(credit).Round(2)
}

// ReplayLedger folds entries in ascending order from a zero balance and
// returns an error at the first entry whose stored balance disagrees.
func ReplayLedger(entries []*LedgerEntry) (decimal.Decimal, error) {
	balance := decimal.Zero
	for i, entry := range entries {
		balance = NextBalance(balance, entry.DebitAmount, entry.CreditAmount)
		if !balance.Equal(entry.BalanceAfterEntry) {
			return balance, fmt.Errorf("ledger entry %d (%s) has balance %s, replay gives %s",
				i, entry.ID, entry.BalanceAfterEntry.StringFixed(2), balance.StringFixed(2))
		}
	}
	return balance, nil
}

// FlatLedgerSummary is a flat's ledger with its totals
type FlatLedgerSummary struct {
	SocietyID          uuid.UUID       `json:"society_id"`
	FlatID             uuid.UUID       `json:"flat_id"`
	FlatNumber         string          `json:"flat_number"`
	TotalBilled        decimal.Decimal `json:"total_billed"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	TotalLateFees      decimal.Decimal `json:"total_late_fees"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Entries            []*LedgerEntry  `json:"entries"`
}

// SummarizeLedger totals entries (ascending order) by type
func SummarizeLedger(flat *Flat, entries []*LedgerEntry) FlatLedgerSummary {
	summary := FlatLedgerSummary{
		SocietyID:          flat.SocietyID,
		FlatID:             flat.ID,
		FlatNumber:         flat.FlatNumber,
		TotalBilled:        decimal.Zero,
		TotalPaid:          decimal.Zero,
		TotalDiscount:      decimal.Zero,
		TotalLateFees:      decimal.Zero,
		OutstandingBalance: decimal.Zero,
		Entries:            entries,
	}

	for _, entry := range entries {
		switch entry.EntryType {
		case EntryTypeBillGenerated:
			summary.TotalBilled = summary.TotalBilled.Add(entry.DebitAmount)
		case EntryTypePaymentReceived:
			summary.TotalPaid = summary.TotalPaid.Add(entry.CreditAmount)
		case EntryTypeDiscountApplied:
			summary.TotalDiscount = summary.TotalDiscount.Add(entry.CreditAmount)
		case EntryTypeLateFee:
			summary.TotalLateFees = summary.TotalLateFees.Add(entry.DebitAmount)
		}
	}
	if n := len(entries); n > 0 {
		summary.OutstandingBalance = entries[n-1].BalanceAfterEntry
	}
	return summary
}
