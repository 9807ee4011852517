package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// Notice returns the payload's notice, if it carries one.
func (r *ResolvedEvent) Notice() *payloads.Notice {
	if r == nil {
		return nil
	}
	if n, ok := r.Payload.(payloads.Notifiable); ok {
		return n.GetNotice()
	}
	return nil
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// ErrUnsupportedEventType marks rows whose event type has no descriptor.
var ErrUnsupportedEventType = errors.New("unsupported event type")

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry of pipeline events.
func NewEventRegistry() *EventRegistry {
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventApplicationSubmitted,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.ApplicationSubmittedEvent{} },
		},
		{
			EventType:      enums.EventApplicationScreened,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.ApplicationScreenedEvent{} },
		},
		{
			EventType:      enums.EventApplicationRejected,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.ApplicationRejectedEvent{} },
		},
		{
			EventType:      enums.EventApplicationAdmitted,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.ApplicationAdmittedEvent{} },
		},
		{
			EventType:      enums.EventApplicationFeeCleared,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.ApplicationFeeClearedEvent{} },
		},
		{
			EventType:      enums.EventAccountProvisioned,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.AccountProvisionedEvent{} },
		},
		{
			EventType:      enums.EventAccountProvisioningFailed,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.AccountProvisioningFailedEvent{} },
		},
		{
			EventType:      enums.EventRegistrationStarted,
			AggregateType:  enums.AggregateApplication,
			PayloadFactory: func() interface{} { return &payloads.RegistrationStartedEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventPaymentRecorded,
			AggregateType:  enums.AggregateLedgerEntry,
			PayloadFactory: func() interface{} { return &payloads.PaymentRecordedEvent{} },
		},
		{
			EventType:      enums.EventLedgerEntryCleared,
			AggregateType:  enums.AggregateLedgerEntry,
			PayloadFactory: func() interface{} { return &payloads.LedgerEntryClearedEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventTraineeRegistered,
			AggregateType:  enums.AggregateTrainee,
			PayloadFactory: func() interface{} { return &payloads.TraineeRegisteredEvent{} },
		},
		{
			EventType:      enums.EventTraineeFullyRegistered,
			AggregateType:  enums.AggregateTrainee,
			PayloadFactory: func() interface{} { return &payloads.TraineeFullyRegisteredEvent{} },
		},
		{
			EventType:      enums.EventRecurringFeesGenerated,
			AggregateType:  enums.AggregateOrganization,
			PayloadFactory: func() interface{} { return &payloads.RecurringFeesGeneratedEvent{} },
		},
		{
			EventType:      enums.EventOrganizationTrialExpired,
			AggregateType:  enums.AggregateOrganization,
			PayloadFactory: func() interface{} { return &payloads.OrganizationTrialExpiredEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("%w %s", ErrUnsupportedEventType, event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
