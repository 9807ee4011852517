package enums

import "fmt"

// QualificationStatus is the academic screening axis of an application.
type QualificationStatus string

const (
	QualificationStatusPending                QualificationStatus = "pending"
	QualificationStatusProvisionallyQualified QualificationStatus = "provisionally_qualified"
	QualificationStatusDoesNotQualify         QualificationStatus = "does_not_qualify"
)

var validQualificationStatuses = []QualificationStatus{
	QualificationStatusPending,
	QualificationStatusProvisionallyQualified,
	QualificationStatusDoesNotQualify,
}

// String implements fmt.Stringer.
func (q QualificationStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QualificationStatus.
func (q QualificationStatus) IsValid() bool {
	for _, candidate := range validQualificationStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// IsScreeningDecision reports whether the value is an outcome a screener may record.
func (q QualificationStatus) IsScreeningDecision() bool {
	return q == QualificationStatusProvisionallyQualified || q == QualificationStatusDoesNotQualify
}

// ParseQualificationStatus converts raw input into a QualificationStatus.
func ParseQualificationStatus(value string) (QualificationStatus, error) {
	for _, candidate := range validQualificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid qualification status %q", value)
}
