package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Recipient targets a specific identity or every holder of a role inside an
// organization. Role targets are expanded when the notice is delivered.
type Recipient struct {
	UserID         *uuid.UUID  `json:"user_id,omitempty"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Role           *enums.Role `json:"role,omitempty"`
}

// UserRecipient targets one identity.
func UserRecipient(organizationID, userID uuid.UUID) Recipient {
	id := userID
	return Recipient{UserID: &id, OrganizationID: organizationID}
}

// RoleRecipient targets every holder of role in the organization.
func RoleRecipient(organizationID uuid.UUID, role enums.Role) Recipient {
	r := role
	return Recipient{OrganizationID: organizationID, Role: &r}
}

// Notice is the human-facing part of an event.
type Notice struct {
	Type       enums.NotificationType `json:"type"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Recipients []Recipient            `json:"recipients"`
}

// Notifiable is implemented by payloads that may carry a notice.
type Notifiable interface {
	GetNotice() *Notice
}

// WithNotice is embedded by event payloads.
type WithNotice struct {
	Notice *Notice `json:"notice,omitempty"`
}

func (w WithNotice) GetNotice() *Notice {
	return w.Notice
}
