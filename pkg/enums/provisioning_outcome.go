package enums

// ProvisioningOutcome records the result of a single provisioning attempt.
type ProvisioningOutcome string

const (
	ProvisioningOutcomeCreated        ProvisioningOutcome = "created"
	ProvisioningOutcomeAlreadyExisted ProvisioningOutcome = "already_existed"
	ProvisioningOutcomeFailed         ProvisioningOutcome = "failed"
)

var validProvisioningOutcomes = []ProvisioningOutcome{
	ProvisioningOutcomeCreated,
	ProvisioningOutcomeAlreadyExisted,
	ProvisioningOutcomeFailed,
}

// IsValid reports whether the value is a known ProvisioningOutcome.
func (p ProvisioningOutcome) IsValid() bool {
	for _, candidate := range validProvisioningOutcomes {
		if candidate == p {
			return true
		}
	}
	return false
}
