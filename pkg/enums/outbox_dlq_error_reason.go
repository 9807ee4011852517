package enums

import "fmt"

// OutboxDLQErrorReason records why a dispatcher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts      OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable     OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnknownEvent     OutboxDLQErrorReason = "unknown_event"
	OutboxDLQReasonMalformedPayload OutboxDLQErrorReason = "malformed_payload"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable,
		OutboxDLQReasonUnknownEvent, OutboxDLQReasonMalformedPayload:
		return true
	}
	return false
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq reason %q", value)
	}
	return r, nil
}
