package applications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

func applicantName(app *models.Application) string {
	return app.FirstName + " " + app.LastName
}

func applicationEvent(principal auth.Principal, app *models.Application, eventType enums.OutboxEventType, data any) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateApplication,
		AggregateID:   app.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data:          data,
	}
}

func submittedEvent(principal auth.Principal, app *models.Application) outbox.DomainEvent {
	return applicationEvent(principal, app, enums.EventApplicationSubmitted, payloads.ApplicationSubmittedEvent{
		WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
			Type:       enums.NotificationTypeAdmissions,
			Title:      "New application",
			Message:    fmt.Sprintf("%s submitted an application and awaits screening.", applicantName(app)),
			Recipients: []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar)},
		}},
		ApplicationID:  app.ID,
		OrganizationID: app.OrganizationID,
		NationalID:     app.NationalID,
	})
}

func screenedEvent(principal auth.Principal, app *models.Application, feeEntryID *uuid.UUID, remarks string) outbox.DomainEvent {
	notice := &payloads.Notice{
		Type:       enums.NotificationTypeAdmissions,
		Title:      "Application screened",
		Message:    fmt.Sprintf("%s does not qualify.", applicantName(app)),
		Recipients: []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar)},
	}
	if app.QualificationStatus == enums.QualificationStatusProvisionallyQualified {
		notice.Type = enums.NotificationTypeFinance
		notice.Title = "Application fee due"
		notice.Message = fmt.Sprintf("%s provisionally qualified; the application fee is awaiting payment.", applicantName(app))
		notice.Recipients = []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleBursar)}
	}
	return applicationEvent(principal, app, enums.EventApplicationScreened, payloads.ApplicationScreenedEvent{
		WithNotice:         payloads.WithNotice{Notice: notice},
		ApplicationID:      app.ID,
		OrganizationID:     app.OrganizationID,
		Decision:           app.QualificationStatus,
		RegistrationStatus: app.RegistrationStatus,
		FeeEntryID:         feeEntryID,
		Remarks:            remarks,
	})
}

func rejectedEvent(principal auth.Principal, app *models.Application, remarks string) outbox.DomainEvent {
	return applicationEvent(principal, app, enums.EventApplicationRejected, payloads.ApplicationRejectedEvent{
		ApplicationID:  app.ID,
		OrganizationID: app.OrganizationID,
		Remarks:        remarks,
	})
}

func admittedEvent(principal auth.Principal, app *models.Application) outbox.DomainEvent {
	return applicationEvent(principal, app, enums.EventApplicationAdmitted, payloads.ApplicationAdmittedEvent{
		WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
			Type:       enums.NotificationTypeAdmissions,
			Title:      "Applicant admitted",
			Message:    fmt.Sprintf("%s was provisionally admitted and can be registered.", applicantName(app)),
			Recipients: []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar)},
		}},
		ApplicationID:  app.ID,
		OrganizationID: app.OrganizationID,
	})
}

func feeClearedEvent(principal auth.Principal, app *models.Application, ids Identifiers) outbox.DomainEvent {
	return applicationEvent(principal, app, enums.EventApplicationFeeCleared, payloads.ApplicationFeeClearedEvent{
		WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
			Type:       enums.NotificationTypeAdmissions,
			Title:      "Application fee cleared",
			Message:    fmt.Sprintf("%s cleared the application fee and was assigned %s. An account can now be created.", applicantName(app), ids.TraineeNumber),
			Recipients: []payloads.Recipient{payloads.RoleRecipient(app.OrganizationID, enums.RoleRegistrar)},
		}},
		ApplicationID:  app.ID,
		OrganizationID: app.OrganizationID,
		TraineeNumber:  ids.TraineeNumber,
		SystemEmail:    ids.SystemEmail,
	})
}
