package registration

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

type RegisterInput struct {
	QualificationID uuid.UUID `json:"qualification_id" validate:"required"`
}

type FinalizeInput struct {
	ClassID *uuid.UUID `json:"class_id,omitempty"`
}

// RegisterResult pairs the advanced application with its registration-fee entry.
type RegisterResult struct {
	ApplicationID      uuid.UUID                `json:"application_id"`
	RegistrationStatus enums.RegistrationStatus `json:"registration_status"`
	QualificationID    uuid.UUID                `json:"qualification_id"`
	LedgerEntryID      uuid.UUID                `json:"ledger_entry_id"`
	AmountRequired     string                   `json:"amount_required"`
	Balance            string                   `json:"balance"`
}

type TraineeDTO struct {
	ID               uuid.UUID              `json:"id"`
	OrganizationID   uuid.UUID              `json:"organization_id"`
	ApplicationID    uuid.UUID              `json:"application_id"`
	UserID           *uuid.UUID             `json:"user_id,omitempty"`
	TraineeNumber    string                 `json:"trainee_number"`
	QualificationID  uuid.UUID              `json:"qualification_id"`
	ClassID          *uuid.UUID             `json:"class_id,omitempty"`
	EnrollmentStatus enums.EnrollmentStatus `json:"enrollment_status"`
	EnrolledAt       *time.Time             `json:"enrolled_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

func TraineeFromModel(t *models.Trainee) *TraineeDTO {
	if t == nil {
		return nil
	}
	return &TraineeDTO{
		ID:               t.ID,
		OrganizationID:   t.OrganizationID,
		ApplicationID:    t.ApplicationID,
		UserID:           t.UserID,
		TraineeNumber:    t.TraineeNumber,
		QualificationID:  t.QualificationID,
		ClassID:          t.ClassID,
		EnrollmentStatus: t.EnrollmentStatus,
		EnrolledAt:       t.EnrolledAt,
		CreatedAt:        t.CreatedAt,
	}
}
