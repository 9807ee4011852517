package applications

import "github.com/angelmondragon/enrollment-backend/pkg/enums"

var qualificationTransitions = map[enums.QualificationStatus][]enums.QualificationStatus{
	enums.QualificationStatusPending: {
		enums.QualificationStatusProvisionallyQualified,
		enums.QualificationStatusDoesNotQualify,
	},
}

var registrationTransitions = map[enums.RegistrationStatus][]enums.RegistrationStatus{
	enums.RegistrationStatusApplied: {
		enums.RegistrationStatusPendingPayment,
		enums.RegistrationStatusRejected,
	},
	enums.RegistrationStatusPendingPayment: {
		enums.RegistrationStatusPaymentCleared,
	},
	enums.RegistrationStatusPaymentCleared: {
		enums.RegistrationStatusProvisionallyAdmitted,
		enums.RegistrationStatusRegistrationFeePending,
	},
	enums.RegistrationStatusProvisionallyAdmitted: {
		enums.RegistrationStatusRegistrationFeePending,
	},
	enums.RegistrationStatusRegistrationFeePending: {
		enums.RegistrationStatusRegistered,
	},
	enums.RegistrationStatusRegistered: {
		enums.RegistrationStatusFullyRegistered,
	},
}

// provisioningUnset stands for the null provisioning status.
const provisioningUnset enums.AccountProvisioningStatus = ""

var provisioningTransitions = map[enums.AccountProvisioningStatus][]enums.AccountProvisioningStatus{
	provisioningUnset: {
		enums.AccountProvisioningPending,
	},
	enums.AccountProvisioningPending: {
		enums.AccountProvisioningProvisioned,
		enums.AccountProvisioningFailed,
	},
	enums.AccountProvisioningFailed: {
		enums.AccountProvisioningPending,
	},
	// forced re-provisioning
	enums.AccountProvisioningProvisioned: {
		enums.AccountProvisioningPending,
	},
}

func CanQualify(from, to enums.QualificationStatus) bool {
	return allowed(qualificationTransitions, from, to)
}

// CanAdvanceRegistration never leaves a terminal status.
func CanAdvanceRegistration(from, to enums.RegistrationStatus) bool {
	if from.IsTerminal() {
		return false
	}
	return allowed(registrationTransitions, from, to)
}

// CanAdvanceProvisioning treats a nil from as the unset status.
func CanAdvanceProvisioning(from *enums.AccountProvisioningStatus, to enums.AccountProvisioningStatus) bool {
	current := provisioningUnset
	if from != nil {
		current = *from
	}
	return allowed(provisioningTransitions, current, to)
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
