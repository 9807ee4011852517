package ledger

import "errors"

var (
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
	ErrOverpaymentRejected = errors.New("payment exceeds outstanding balance")
	ErrAlreadyCleared      = errors.New("ledger entry already cleared")
	ErrInvalidAmount       = errors.New("payment amount must be positive")
	ErrAmountTooLarge      = errors.New("payment amount is too large")
	ErrFeeNotConfigured    = errors.New("no active fee type configured")
)

// Reasons surfaced in error details for the presentation layer.
const (
	ReasonOverpaymentRejected = "overpayment_rejected"
	ReasonFeeNotConfigured    = "fee_not_configured"
)
