package enums

import "fmt"

// OrganizationStatus tracks the tenant subscription lifecycle.
type OrganizationStatus string

const (
	OrganizationStatusTrial     OrganizationStatus = "trial"
	OrganizationStatusActive    OrganizationStatus = "active"
	OrganizationStatusExpired   OrganizationStatus = "expired"
	OrganizationStatusSuspended OrganizationStatus = "suspended"
)

var validOrganizationStatuses = []OrganizationStatus{
	OrganizationStatusTrial,
	OrganizationStatusActive,
	OrganizationStatusExpired,
	OrganizationStatusSuspended,
}

// IsValid reports whether the value is a known OrganizationStatus.
func (o OrganizationStatus) IsValid() bool {
	for _, candidate := range validOrganizationStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// AllowsPipelineWrites reports whether the tenant may run pipeline mutations.
func (o OrganizationStatus) AllowsPipelineWrites() bool {
	return o == OrganizationStatusTrial || o == OrganizationStatusActive
}

// ParseOrganizationStatus converts raw input into an OrganizationStatus.
func ParseOrganizationStatus(value string) (OrganizationStatus, error) {
	for _, candidate := range validOrganizationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid organization status %q", value)
}
