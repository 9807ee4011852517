package applications

import (
	"errors"

	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

var (
	ErrApplicationNotFound    = errors.New("application not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateApplication   = errors.New("application already exists for national id")
	ErrIdentifierExhausted    = errors.New("could not mint a unique trainee identifier")
)

// Reasons surfaced in error details for the presentation layer.
const (
	ReasonAlreadyScreened = "already_screened"
	ReasonNotRejectable   = "not_rejectable"
	ReasonNotAdmissible   = "not_admissible"
	ReasonPaymentNotDue   = "payment_not_due"
	ReasonNotQualified    = "insufficient_qualification_status"
	ReasonDuplicateNatID  = "duplicate_national_id"
	ReasonStatusChanged   = "status_changed"
)

// InvalidTransition wraps ErrInvalidStateTransition as a state conflict.
func InvalidTransition(reason, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrInvalidStateTransition, message).WithReason(reason)
}

func notFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrApplicationNotFound, "application not found")
}
