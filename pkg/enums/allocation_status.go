package enums

// AllocationStatus marks whether a recurring obligation source still bills.
type AllocationStatus string

const (
	AllocationStatusActive   AllocationStatus = "active"
	AllocationStatusInactive AllocationStatus = "inactive"
)

// IsValid reports whether the value is a known AllocationStatus.
func (a AllocationStatus) IsValid() bool {
	return a == AllocationStatusActive || a == AllocationStatusInactive
}
