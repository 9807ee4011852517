package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// PaymentResult is the result of applying one payment to an entry.
type PaymentResult struct {
	Entry        models.LedgerEntry
	AppliedCents int64
	CreditCents  int64
	Cleared      bool
}

// ApplyPayment computes the entry state after a payment of amount cents. It
// does not persist anything. With allowCredit the excess over the balance is
// carried on the entry as credit and the entry clears.
func ApplyPayment(entry models.LedgerEntry, amount int64, allowCredit bool, now time.Time) (PaymentResult, error) {
	if amount <= 0 {
		return PaymentResult{}, ErrInvalidAmount
	}
	if entry.IsCleared() {
		return PaymentResult{}, ErrAlreadyCleared
	}

	applied := amount
	var credit int64
	if amount > entry.BalanceCents {
		if !allowCredit {
			return PaymentResult{}, ErrOverpaymentRejected
		}
		applied = entry.BalanceCents
		credit = amount - entry.BalanceCents
	}

	next := entry
	next.AmountPaidCents += applied
	next.BalanceCents = next.AmountRequiredCents - next.AmountPaidCents
	next.CreditCents += credit
	switch {
	case next.BalanceCents == 0:
		next.Status = enums.LedgerEntryStatusCleared
		cleared := now.UTC()
		next.ClearedAt = &cleared
	case next.AmountPaidCents > 0:
		next.Status = enums.LedgerEntryStatusPartial
	}
	if !entry.Status.CanAdvanceTo(next.Status) {
		return PaymentResult{}, fmt.Errorf("ledger status cannot move from %s to %s", entry.Status, next.Status)
	}
	if err := CheckInvariants(next); err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{
		Entry:        next,
		AppliedCents: applied,
		CreditCents:  credit,
		Cleared:      next.IsCleared(),
	}, nil
}

// CheckInvariants verifies the arithmetic and status rules every entry must hold.
func CheckInvariants(entry models.LedgerEntry) error {
	if entry.AmountPaidCents+entry.BalanceCents != entry.AmountRequiredCents {
		return fmt.Errorf("ledger entry %s: paid %d + balance %d != required %d",
			entry.ID, entry.AmountPaidCents, entry.BalanceCents, entry.AmountRequiredCents)
	}
	if entry.BalanceCents < 0 {
		return fmt.Errorf("ledger entry %s: negative balance %d", entry.ID, entry.BalanceCents)
	}
	if (entry.Status == enums.LedgerEntryStatusCleared) != (entry.BalanceCents == 0) {
		return fmt.Errorf("ledger entry %s: status %s with balance %d", entry.ID, entry.Status, entry.BalanceCents)
	}
	if entry.CreditCents < 0 {
		return fmt.Errorf("ledger entry %s: negative credit %d", entry.ID, entry.CreditCents)
	}
	return nil
}

// NewEntry builds a fresh pending obligation.
func NewEntry(organizationID uuid.UUID, purpose enums.FeePurpose, amountCents int64, description string) models.LedgerEntry {
	return models.LedgerEntry{
		OrganizationID:      organizationID,
		Purpose:             purpose,
		Description:         description,
		AmountRequiredCents: amountCents,
		BalanceCents:        amountCents,
		Status:              enums.LedgerEntryStatusPending,
	}
}
