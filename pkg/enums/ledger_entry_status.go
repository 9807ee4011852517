package enums

import "fmt"

// LedgerEntryStatus tracks payment progress of a single obligation.
type LedgerEntryStatus string

const (
	LedgerEntryStatusPending LedgerEntryStatus = "pending"
	LedgerEntryStatusPartial LedgerEntryStatus = "partial"
	LedgerEntryStatusCleared LedgerEntryStatus = "cleared"
)

var validLedgerEntryStatuses = []LedgerEntryStatus{
	LedgerEntryStatusPending,
	LedgerEntryStatusPartial,
	LedgerEntryStatusCleared,
}

// rank orders statuses so transitions can only move forward.
func (s LedgerEntryStatus) rank() int {
	switch s {
	case LedgerEntryStatusPending:
		return 0
	case LedgerEntryStatusPartial:
		return 1
	case LedgerEntryStatusCleared:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next respects forward-only ordering.
func (s LedgerEntryStatus) CanAdvanceTo(next LedgerEntryStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.rank() >= s.rank()
}

// String implements fmt.Stringer.
func (s LedgerEntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LedgerEntryStatus.
func (s LedgerEntryStatus) IsValid() bool {
	for _, candidate := range validLedgerEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerEntryStatus converts raw input into a LedgerEntryStatus.
func ParseLedgerEntryStatus(value string) (LedgerEntryStatus, error) {
	for _, candidate := range validLedgerEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry status %q", value)
}
