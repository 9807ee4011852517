package provisioning

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

func provisionedEvent(principal auth.Principal, app *models.Application, userID uuid.UUID, email string, outcome enums.ProvisioningOutcome) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventAccountProvisioned,
		AggregateType: enums.AggregateApplication,
		AggregateID:   app.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.AccountProvisionedEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type:    enums.NotificationTypeAccount,
				Title:   "Welcome",
				Message: fmt.Sprintf("Your account %s is ready. You will be asked to change the default password at first sign-in.", email),
				Recipients: []payloads.Recipient{
					payloads.UserRecipient(app.OrganizationID, userID),
					payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar),
				},
			}},
			ApplicationID:  app.ID,
			OrganizationID: app.OrganizationID,
			UserID:         userID,
			SystemEmail:    email,
			Outcome:        outcome,
		},
	}
}

func provisioningFailedEvent(principal auth.Principal, app *models.Application, message string) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventAccountProvisioningFailed,
		AggregateType: enums.AggregateApplication,
		AggregateID:   app.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.AccountProvisioningFailedEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type:       enums.NotificationTypeAccount,
				Title:      "Account creation failed",
				Message:    fmt.Sprintf("Account creation for %s %s failed and can be retried.", app.FirstName, app.LastName),
				Recipients: []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar)},
			}},
			ApplicationID:  app.ID,
			OrganizationID: app.OrganizationID,
			Error:          message,
		},
	}
}
