package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateApplication  OutboxAggregateType = "application"
	AggregateLedgerEntry  OutboxAggregateType = "ledger_entry"
	AggregateTrainee      OutboxAggregateType = "trainee"
	AggregateOrganization OutboxAggregateType = "organization"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateApplication,
	AggregateLedgerEntry,
	AggregateTrainee,
	AggregateOrganization,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a pipeline state change queued for fan-out.
type OutboxEventType string

const (
	EventApplicationSubmitted      OutboxEventType = "application_submitted"
	EventApplicationScreened       OutboxEventType = "application_screened"
	EventApplicationRejected       OutboxEventType = "application_rejected"
	EventApplicationAdmitted       OutboxEventType = "application_admitted"
	EventPaymentRecorded           OutboxEventType = "payment_recorded"
	EventLedgerEntryCleared        OutboxEventType = "ledger_entry_cleared"
	EventApplicationFeeCleared     OutboxEventType = "application_fee_cleared"
	EventAccountProvisioned        OutboxEventType = "account_provisioned"
	EventAccountProvisioningFailed OutboxEventType = "account_provisioning_failed"
	EventRegistrationStarted       OutboxEventType = "registration_started"
	EventTraineeRegistered         OutboxEventType = "trainee_registered"
	EventTraineeFullyRegistered    OutboxEventType = "trainee_fully_registered"
	EventRecurringFeesGenerated    OutboxEventType = "recurring_fees_generated"
	EventOrganizationTrialExpired  OutboxEventType = "organization_trial_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventApplicationSubmitted,
	EventApplicationScreened,
	EventApplicationRejected,
	EventApplicationAdmitted,
	EventPaymentRecorded,
	EventLedgerEntryCleared,
	EventApplicationFeeCleared,
	EventAccountProvisioned,
	EventAccountProvisioningFailed,
	EventRegistrationStarted,
	EventTraineeRegistered,
	EventTraineeFullyRegistered,
	EventRecurringFeesGenerated,
	EventOrganizationTrialExpired,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
