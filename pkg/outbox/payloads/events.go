package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// ApplicationSubmittedEvent records intake of a new application.
type ApplicationSubmittedEvent struct {
	WithNotice
	ApplicationID  uuid.UUID `json:"application_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	NationalID     string    `json:"national_id"`
}

// ApplicationScreenedEvent carries the screening decision.
type ApplicationScreenedEvent struct {
	WithNotice
	ApplicationID      uuid.UUID                 `json:"application_id"`
	OrganizationID     uuid.UUID                 `json:"organization_id"`
	Decision           enums.QualificationStatus `json:"decision"`
	RegistrationStatus enums.RegistrationStatus  `json:"registration_status"`
	FeeEntryID         *uuid.UUID                `json:"fee_entry_id,omitempty"`
	Remarks            string                    `json:"remarks,omitempty"`
}

type ApplicationRejectedEvent struct {
	WithNotice
	ApplicationID  uuid.UUID `json:"application_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Remarks        string    `json:"remarks,omitempty"`
}

type ApplicationAdmittedEvent struct {
	WithNotice
	ApplicationID  uuid.UUID `json:"application_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// PaymentRecordedEvent is emitted for every accepted payment.
type PaymentRecordedEvent struct {
	WithNotice
	LedgerEntryID  uuid.UUID               `json:"ledger_entry_id"`
	PaymentID      uuid.UUID               `json:"payment_id"`
	OrganizationID uuid.UUID               `json:"organization_id"`
	Purpose        enums.FeePurpose        `json:"purpose"`
	AmountCents    int64                   `json:"amount_cents"`
	BalanceCents   int64                   `json:"balance_cents"`
	CreditCents    int64                   `json:"credit_cents,omitempty"`
	Status         enums.LedgerEntryStatus `json:"status"`
}

type LedgerEntryClearedEvent struct {
	WithNotice
	LedgerEntryID  uuid.UUID        `json:"ledger_entry_id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	Purpose        enums.FeePurpose `json:"purpose"`
	ApplicationID  *uuid.UUID       `json:"application_id,omitempty"`
	TraineeID      *uuid.UUID       `json:"trainee_id,omitempty"`
}

// ApplicationFeeClearedEvent reports the identifiers minted at clearance.
type ApplicationFeeClearedEvent struct {
	WithNotice
	ApplicationID  uuid.UUID `json:"application_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	TraineeNumber  string    `json:"trainee_number"`
	SystemEmail    string    `json:"system_email"`
}

type AccountProvisionedEvent struct {
	WithNotice
	ApplicationID  uuid.UUID                 `json:"application_id"`
	OrganizationID uuid.UUID                 `json:"organization_id"`
	UserID         uuid.UUID                 `json:"user_id"`
	SystemEmail    string                    `json:"system_email"`
	Outcome        enums.ProvisioningOutcome `json:"outcome"`
}

type AccountProvisioningFailedEvent struct {
	WithNotice
	ApplicationID  uuid.UUID `json:"application_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Error          string    `json:"error"`
}

type RegistrationStartedEvent struct {
	WithNotice
	ApplicationID   uuid.UUID `json:"application_id"`
	OrganizationID  uuid.UUID `json:"organization_id"`
	QualificationID uuid.UUID `json:"qualification_id"`
	LedgerEntryID   uuid.UUID `json:"ledger_entry_id"`
}

type TraineeRegisteredEvent struct {
	WithNotice
	TraineeID      uuid.UUID `json:"trainee_id"`
	ApplicationID  uuid.UUID `json:"application_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	TraineeNumber  string    `json:"trainee_number"`
}

type TraineeFullyRegisteredEvent struct {
	WithNotice
	TraineeID      uuid.UUID  `json:"trainee_id"`
	ApplicationID  uuid.UUID  `json:"application_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	ClassID        *uuid.UUID `json:"class_id,omitempty"`
}

// RecurringFeesGeneratedEvent summarizes one organization's generator run.
type RecurringFeesGeneratedEvent struct {
	WithNotice
	OrganizationID uuid.UUID `json:"organization_id"`
	Period         string    `json:"period"`
	Created        int       `json:"created"`
	TotalCents     int64     `json:"total_cents"`
	Total          string    `json:"total"`
}

type OrganizationTrialExpiredEvent struct {
	WithNotice
	OrganizationID uuid.UUID `json:"organization_id"`
	TrialEndsAt    time.Time `json:"trial_ends_at"`
}
