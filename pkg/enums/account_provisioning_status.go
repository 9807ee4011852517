package enums

import "fmt"

// AccountProvisioningStatus tracks login identity creation for an application.
// A nil pointer on the model means provisioning was never attempted.
type AccountProvisioningStatus string

const (
	AccountProvisioningPending     AccountProvisioningStatus = "pending"
	AccountProvisioningProvisioned AccountProvisioningStatus = "provisioned"
	AccountProvisioningFailed      AccountProvisioningStatus = "failed"
)

var validAccountProvisioningStatuses = []AccountProvisioningStatus{
	AccountProvisioningPending,
	AccountProvisioningProvisioned,
	AccountProvisioningFailed,
}

// String implements fmt.Stringer.
func (a AccountProvisioningStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountProvisioningStatus.
func (a AccountProvisioningStatus) IsValid() bool {
	for _, candidate := range validAccountProvisioningStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountProvisioningStatus converts raw input into an AccountProvisioningStatus.
func ParseAccountProvisioningStatus(value string) (AccountProvisioningStatus, error) {
	for _, candidate := range validAccountProvisioningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account provisioning status %q", value)
}
