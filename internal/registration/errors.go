package registration

import (
	"errors"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

var (
	ErrTraineeNotFound       = errors.New("trainee not found")
	ErrRegistrationFeeAbsent = errors.New("registration fee not configured")
)

const (
	ReasonNotRegistrable     = "not_registrable"
	ReasonAccountMissing     = "account_not_provisioned"
	ReasonNotFinalizable     = "not_finalizable"
	ReasonIdentifiersMissing = "identifiers_missing"
)

func feeNotConfigured() error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrRegistrationFeeAbsent, "registration fee not configured").
		WithReason(ledger.ReasonFeeNotConfigured)
}
