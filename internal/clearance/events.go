package clearance

import (
	"fmt"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

// clearedAudience is who hears about a cleared obligation, by purpose.
var clearedAudience = map[enums.FeePurpose]enums.Role{
	enums.FeePurposeApplication:  enums.RoleRegistrar,
	enums.FeePurposeRegistration: enums.RoleRegistrar,
	enums.FeePurposeHostel:       enums.RoleHostelManager,
}

func paymentRecordedEvent(principal auth.Principal, entry *models.LedgerEntry, payment *models.LedgerPayment) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventPaymentRecorded,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   entry.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.PaymentRecordedEvent{
			LedgerEntryID:  entry.ID,
			PaymentID:      payment.ID,
			OrganizationID: entry.OrganizationID,
			Purpose:        entry.Purpose,
			AmountCents:    payment.AmountCents,
			BalanceCents:   entry.BalanceCents,
			CreditCents:    entry.CreditCents,
			Status:         entry.Status,
		},
	}
}

func entryClearedEvent(principal auth.Principal, entry *models.LedgerEntry) outbox.DomainEvent {
	recipients := []payloads.Recipient{payloads.RoleRecipient(entry.OrganizationID, enums.RoleBursar)}
	if role, ok := clearedAudience[entry.Purpose]; ok {
		recipients = append(recipients, payloads.RoleRecipient(entry.OrganizationID, role))
	}
	return outbox.DomainEvent{
		EventType:     enums.EventLedgerEntryCleared,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   entry.ID,
		Actor:         outbox.ActorFromPrincipal(principal),
		Data: payloads.LedgerEntryClearedEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type:       enums.NotificationTypeFinance,
				Title:      "Fee cleared",
				Message:    fmt.Sprintf("%s (%s) has been paid in full.", entry.Description, ledger.FormatCents(entry.AmountRequiredCents)),
				Recipients: recipients,
			}},
			LedgerEntryID:  entry.ID,
			OrganizationID: entry.OrganizationID,
			Purpose:        entry.Purpose,
			ApplicationID:  entry.ApplicationID,
			TraineeID:      entry.TraineeID,
		},
	}
}
