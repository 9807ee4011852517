package enums

import "fmt"

// FeePurpose identifies what an obligation pays for and drives downstream effects on clearance.
type FeePurpose string

const (
	FeePurposeApplication  FeePurpose = "application"
	FeePurposeRegistration FeePurpose = "registration"
	FeePurposeHostel       FeePurpose = "hostel"
)

var validFeePurposes = []FeePurpose{
	FeePurposeApplication,
	FeePurposeRegistration,
	FeePurposeHostel,
}

// String implements fmt.Stringer.
func (f FeePurpose) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FeePurpose.
func (f FeePurpose) IsValid() bool {
	for _, candidate := range validFeePurposes {
		if candidate == f {
			return true
		}
	}
	return false
}

// IsRecurring reports whether obligations of this purpose are generated per period.
func (f FeePurpose) IsRecurring() bool {
	return f == FeePurposeHostel
}

// ParseFeePurpose converts raw input into a FeePurpose.
func ParseFeePurpose(value string) (FeePurpose, error) {
	for _, candidate := range validFeePurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fee purpose %q", value)
}
