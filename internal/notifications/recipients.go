package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

type roleDirectory interface {
	ListUserIDsByRole(ctx context.Context, organizationID uuid.UUID, role enums.Role) ([]uuid.UUID, error)
}

// RecipientResolver expands notice targets into identities. Role targets are
// read at send time, so a role granted after the event still receives it.
type RecipientResolver struct {
	directory roleDirectory
}

func NewRecipientResolver(directory roleDirectory) (*RecipientResolver, error) {
	if directory == nil {
		return nil, fmt.Errorf("role directory required")
	}
	return &RecipientResolver{directory: directory}, nil
}

// Resolve returns the distinct identities targeted by recipients, in first-seen order.
func (r *RecipientResolver) Resolve(ctx context.Context, recipients []payloads.Recipient) ([]Recipient, error) {
	seen := map[uuid.UUID]struct{}{}
	var out []Recipient
	add := func(orgID, userID uuid.UUID) {
		if userID == uuid.Nil {
			return
		}
		if _, ok := seen[userID]; ok {
			return
		}
		seen[userID] = struct{}{}
		out = append(out, Recipient{UserID: userID, OrganizationID: orgID})
	}

	for _, target := range recipients {
		switch {
		case target.UserID != nil:
			add(target.OrganizationID, *target.UserID)
		case target.Role != nil:
			ids, err := r.directory.ListUserIDsByRole(ctx, target.OrganizationID, *target.Role)
			if err != nil {
				return nil, fmt.Errorf("resolve %s holders: %w", *target.Role, err)
			}
			for _, id := range ids {
				add(target.OrganizationID, id)
			}
		}
	}
	return out, nil
}
