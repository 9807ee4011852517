package applications

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

func TestQualificationLeavesPendingOnce(t *testing.T) {
	require.True(t, CanQualify(enums.QualificationStatusPending, enums.QualificationStatusProvisionallyQualified))
	require.True(t, CanQualify(enums.QualificationStatusPending, enums.QualificationStatusDoesNotQualify))
	require.False(t, CanQualify(enums.QualificationStatusProvisionallyQualified, enums.QualificationStatusDoesNotQualify))
	require.False(t, CanQualify(enums.QualificationStatusDoesNotQualify, enums.QualificationStatusProvisionallyQualified))
	require.False(t, CanQualify(enums.QualificationStatusPending, enums.QualificationStatusPending))
}

func TestRegistrationPath(t *testing.T) {
	path := []enums.RegistrationStatus{
		enums.RegistrationStatusApplied,
		enums.RegistrationStatusPendingPayment,
		enums.RegistrationStatusPaymentCleared,
		enums.RegistrationStatusProvisionallyAdmitted,
		enums.RegistrationStatusRegistrationFeePending,
		enums.RegistrationStatusRegistered,
		enums.RegistrationStatusFullyRegistered,
	}
	for i := 0; i < len(path)-1; i++ {
		require.True(t, CanAdvanceRegistration(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
		require.False(t, CanAdvanceRegistration(path[i+1], path[i]), "%s -> %s", path[i+1], path[i])
	}
	require.True(t, CanAdvanceRegistration(enums.RegistrationStatusPaymentCleared, enums.RegistrationStatusRegistrationFeePending))
	require.True(t, CanAdvanceRegistration(enums.RegistrationStatusApplied, enums.RegistrationStatusRejected))
	require.False(t, CanAdvanceRegistration(enums.RegistrationStatusPendingPayment, enums.RegistrationStatusRejected))
	require.False(t, CanAdvanceRegistration(enums.RegistrationStatusRejected, enums.RegistrationStatusApplied))
	require.False(t, CanAdvanceRegistration(enums.RegistrationStatusFullyRegistered, enums.RegistrationStatusRegistered))
}

func TestTerminalRegistrationStatusesAreFinal(t *testing.T) {
	all := []enums.RegistrationStatus{
		enums.RegistrationStatusApplied,
		enums.RegistrationStatusPendingPayment,
		enums.RegistrationStatusPaymentCleared,
		enums.RegistrationStatusProvisionallyAdmitted,
		enums.RegistrationStatusRegistrationFeePending,
		enums.RegistrationStatusRegistered,
		enums.RegistrationStatusFullyRegistered,
		enums.RegistrationStatusRejected,
	}
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		require.Empty(t, registrationTransitions[from], from)
		for _, to := range all {
			require.False(t, CanAdvanceRegistration(from, to), "%s -> %s", from, to)
		}
	}
	require.True(t, enums.RegistrationStatusRejected.IsTerminal())
	require.False(t, enums.RegistrationStatusRegistered.IsTerminal())
}

func TestProvisioningTransitions(t *testing.T) {
	pending := enums.AccountProvisioningPending
	failed := enums.AccountProvisioningFailed
	provisioned := enums.AccountProvisioningProvisioned

	require.True(t, CanAdvanceProvisioning(nil, enums.AccountProvisioningPending))
	require.False(t, CanAdvanceProvisioning(nil, enums.AccountProvisioningProvisioned))
	require.True(t, CanAdvanceProvisioning(&pending, enums.AccountProvisioningProvisioned))
	require.True(t, CanAdvanceProvisioning(&pending, enums.AccountProvisioningFailed))
	require.True(t, CanAdvanceProvisioning(&failed, enums.AccountProvisioningPending))
	require.False(t, CanAdvanceProvisioning(&failed, enums.AccountProvisioningProvisioned))
	require.True(t, CanAdvanceProvisioning(&provisioned, enums.AccountProvisioningPending))
}
