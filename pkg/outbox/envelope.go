package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID         uuid.UUID  `json:"userId"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	Role           string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ActorFromPrincipal builds the actor reference for an event. Scheduled jobs
// act as the system and carry no actor.
func ActorFromPrincipal(p auth.Principal) *ActorRef {
	if p.IsSystem() {
		return nil
	}
	orgID := p.OrganizationID
	return &ActorRef{UserID: p.UserID, OrganizationID: &orgID, Role: string(p.Role)}
}
