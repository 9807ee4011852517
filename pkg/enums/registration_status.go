package enums

import "fmt"

// RegistrationStatus tracks the financial/registration progress of an application.
type RegistrationStatus string

const (
	RegistrationStatusApplied                RegistrationStatus = "applied"
	RegistrationStatusPendingPayment         RegistrationStatus = "pending_payment"
	RegistrationStatusPaymentCleared         RegistrationStatus = "payment_cleared"
	RegistrationStatusProvisionallyAdmitted  RegistrationStatus = "provisionally_admitted"
	RegistrationStatusRegistrationFeePending RegistrationStatus = "registration_fee_pending"
	RegistrationStatusRegistered             RegistrationStatus = "registered"
	RegistrationStatusFullyRegistered        RegistrationStatus = "fully_registered"
	RegistrationStatusRejected               RegistrationStatus = "rejected"
)

var validRegistrationStatuses = []RegistrationStatus{
	RegistrationStatusApplied,
	RegistrationStatusPendingPayment,
	RegistrationStatusPaymentCleared,
	RegistrationStatusProvisionallyAdmitted,
	RegistrationStatusRegistrationFeePending,
	RegistrationStatusRegistered,
	RegistrationStatusFullyRegistered,
	RegistrationStatusRejected,
}

// String implements fmt.Stringer.
func (r RegistrationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RegistrationStatus.
func (r RegistrationStatus) IsValid() bool {
	for _, candidate := range validRegistrationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further registration transition exists.
func (r RegistrationStatus) IsTerminal() bool {
	return r == RegistrationStatusFullyRegistered || r == RegistrationStatusRejected
}

// ParseRegistrationStatus converts raw input into a RegistrationStatus.
func ParseRegistrationStatus(value string) (RegistrationStatus, error) {
	for _, candidate := range validRegistrationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid registration status %q", value)
}
