package enums

// EnrollmentStatus tracks the trainee record created after registration.
type EnrollmentStatus string

const (
	EnrollmentStatusRegistered EnrollmentStatus = "registered"
	EnrollmentStatusEnrolled   EnrollmentStatus = "enrolled"
)

// IsValid reports whether the value is a known EnrollmentStatus.
func (e EnrollmentStatus) IsValid() bool {
	return e == EnrollmentStatusRegistered || e == EnrollmentStatusEnrolled
}
