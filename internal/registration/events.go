package registration

import (
	"fmt"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

func registrationStartedEvent(principal auth.Principal, app *models.Application, entry *models.LedgerEntry) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventRegistrationStarted,
		AggregateType: enums.AggregateApplication,
		AggregateID:   app.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.RegistrationStartedEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type:       enums.NotificationTypeFinance,
				Title:      "Registration fee due",
				Message:    fmt.Sprintf("%s %s started registration; the registration fee is awaiting payment.", app.FirstName, app.LastName),
				Recipients: []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleBursar)},
			}},
			ApplicationID:   app.ID,
			OrganizationID:  app.OrganizationID,
			QualificationID: *app.QualificationID,
			LedgerEntryID:   entry.ID,
		},
	}
}

func traineeNotice(app *models.Application, title, message string) *payloads.Notice {
	recipients := []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar)}
	if app.UserID != nil {
		recipients = append(recipients, payloads.UserRecipient(app.OrganizationID, *app.UserID))
	}
	return &payloads.Notice{
		Type:       enums.NotificationTypeRegistration,
		Title:      title,
		Message:    message,
		Recipients: recipients,
	}
}

func traineeRegisteredEvent(principal auth.Principal, app *models.Application, trainee *models.Trainee) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventTraineeRegistered,
		AggregateType: enums.AggregateTrainee,
		AggregateID:   trainee.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.TraineeRegisteredEvent{
			WithNotice: payloads.WithNotice{Notice: traineeNotice(app, "Registration complete",
				fmt.Sprintf("Trainee %s is registered and awaits class placement.", trainee.TraineeNumber))},
			TraineeID:      trainee.ID,
			ApplicationID:  app.ID,
			OrganizationID: app.OrganizationID,
			TraineeNumber:  trainee.TraineeNumber,
		},
	}
}

func traineeFullyRegisteredEvent(principal auth.Principal, app *models.Application, trainee *models.Trainee) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventTraineeFullyRegistered,
		AggregateType: enums.AggregateTrainee,
		AggregateID:   trainee.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.TraineeFullyRegisteredEvent{
			WithNotice: payloads.WithNotice{Notice: traineeNotice(app, "Enrollment confirmed",
				fmt.Sprintf("Trainee %s is fully registered.", trainee.TraineeNumber))},
			TraineeID:      trainee.ID,
			ApplicationID:  app.ID,
			OrganizationID: app.OrganizationID,
			ClassID:        trainee.ClassID,
		},
	}
}
