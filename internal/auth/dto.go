package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/internal/users"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
// OrganizationID and Role pick a grant when the identity holds several.
type LoginRequest struct {
	Email          string     `json:"email" validate:"required,email"`
	Password       string     `json:"password" validate:"required"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Role           enums.Role `json:"role,omitempty"`
}

// Grant describes one organization-scoped role the identity can act as.
type Grant struct {
	OrganizationID uuid.UUID  `json:"organization_id"`
	Role           enums.Role `json:"role"`
}

// LoginResponse contains the token, the grant it carries and the other grants available.
type LoginResponse struct {
	AccessToken        string         `json:"access_token"`
	Active             Grant          `json:"active"`
	Grants             []Grant        `json:"grants"`
	MustChangePassword bool           `json:"must_change_password"`
	User               *users.UserDTO `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=10,max=128"`
}
