package recurring

import (
	"fmt"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

func generatedEvent(key string, period Period, total OrganizationTotal) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventRecurringFeesGenerated,
		AggregateType: enums.AggregateOrganization,
		AggregateID:   total.OrganizationID,
		Data: payloads.RecurringFeesGeneratedEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type:       enums.NotificationTypeFinance,
				Title:      "Hostel fees generated",
				Message:    fmt.Sprintf("%d hostel fee entries totalling %s were generated for %s.", total.Created, total.Total, period.Label()),
				Recipients: []payloads.Recipient{payloads.RoleRecipient(total.OrganizationID, enums.RoleBursar)},
			}},
			OrganizationID: total.OrganizationID,
			Period:         key,
			Created:        total.Created,
			TotalCents:     total.TotalCents,
			Total:          total.Total,
		},
	}
}
