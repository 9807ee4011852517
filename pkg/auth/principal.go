package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

// Principal is the acting identity handed to every pipeline operation. It is
// always passed explicitly and never read from ambient state.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.Role
}

// SystemPrincipal acts for scheduled jobs inside one organization.
func SystemPrincipal(organizationID uuid.UUID) Principal {
	return Principal{OrganizationID: organizationID, Role: enums.RoleAdmin}
}

// SchedulerPrincipal acts for jobs that sweep every organization at once.
func SchedulerPrincipal() Principal {
	return Principal{Role: enums.RoleAdmin}
}

// SpansAllOrganizations reports whether the principal is the cross-tenant scheduler.
func (p Principal) SpansAllOrganizations() bool {
	return p.IsSystem() && p.OrganizationID == uuid.Nil
}

// IsSystem reports whether the principal was created for a scheduled job.
func (p Principal) IsSystem() bool {
	return p.UserID == uuid.Nil && p.Role == enums.RoleAdmin
}

// Validate rejects principals missing an organization or carrying an unknown role.
func (p Principal) Validate() error {
	if p.OrganizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "organization context required")
	}
	if !p.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid role")
	}
	return nil
}

// Require returns a forbidden error unless the principal holds one of roles.
// Admins pass every check.
func (p Principal) Require(roles ...enums.Role) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Role == enums.RoleAdmin {
		return nil
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this operation")
}

// CanAccess reports whether the principal may touch rows owned by organizationID.
func (p Principal) CanAccess(organizationID uuid.UUID) bool {
	return p.OrganizationID != uuid.Nil && p.OrganizationID == organizationID
}
