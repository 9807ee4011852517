package enums

import "fmt"

// Role is an organization-scoped permission role held by an identity.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleRegistrar     Role = "registrar"
	RoleBursar        Role = "bursar"
	RoleHostelManager Role = "hostel_manager"
	RoleTrainee       Role = "trainee"
)

var validRoles = []Role{
	RoleAdmin,
	RoleRegistrar,
	RoleBursar,
	RoleHostelManager,
	RoleTrainee,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to institution staff rather than trainees.
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RoleTrainee
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
