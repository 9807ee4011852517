package applications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// SubmitInput carries the applicant fields accepted at intake.
type SubmitInput struct {
	NationalID string     `json:"national_id" validate:"required,min=4,max=32"`
	FirstName  string     `json:"first_name" validate:"required,max=100"`
	LastName   string     `json:"last_name" validate:"required,max=100"`
	Email      *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	TradeID    *uuid.UUID `json:"trade_id,omitempty"`
}

// ScreenInput is the screener's decision.
type ScreenInput struct {
	Decision enums.QualificationStatus `json:"decision" validate:"required"`
	Remarks  string                    `json:"remarks" validate:"max=2000"`
}

// ApplicationDTO is the read model returned to the presentation layer.
type ApplicationDTO struct {
	ID                        uuid.UUID                        `json:"id"`
	OrganizationID            uuid.UUID                        `json:"organization_id"`
	NationalID                string                           `json:"national_id"`
	FirstName                 string                           `json:"first_name"`
	LastName                  string                           `json:"last_name"`
	Email                     *string                          `json:"email,omitempty"`
	Phone                     *string                          `json:"phone,omitempty"`
	TradeID                   *uuid.UUID                       `json:"trade_id,omitempty"`
	QualificationStatus       enums.QualificationStatus        `json:"qualification_status"`
	RegistrationStatus        enums.RegistrationStatus         `json:"registration_status"`
	AccountProvisioningStatus *enums.AccountProvisioningStatus `json:"account_provisioning_status"`
	ScreeningRemarks          *string                          `json:"screening_remarks,omitempty"`
	ScreenedAt                *time.Time                       `json:"screened_at,omitempty"`
	TraineeNumber             *string                          `json:"trainee_number,omitempty"`
	SystemEmail               *string                          `json:"system_email,omitempty"`
	UserID                    *uuid.UUID                       `json:"user_id,omitempty"`
	QualificationID           *uuid.UUID                       `json:"qualification_id,omitempty"`
	CreatedAt                 time.Time                        `json:"created_at"`
	UpdatedAt                 time.Time                        `json:"updated_at"`
}

func FromModel(a *models.Application) *ApplicationDTO {
	if a == nil {
		return nil
	}
	return &ApplicationDTO{
		ID:                        a.ID,
		OrganizationID:            a.OrganizationID,
		NationalID:                a.NationalID,
		FirstName:                 a.FirstName,
		LastName:                  a.LastName,
		Email:                     a.Email,
		Phone:                     a.Phone,
		TradeID:                   a.TradeID,
		QualificationStatus:       a.QualificationStatus,
		RegistrationStatus:        a.RegistrationStatus,
		AccountProvisioningStatus: a.AccountProvisioningStatus,
		ScreeningRemarks:          a.ScreeningRemarks,
		ScreenedAt:                a.ScreenedAt,
		TraineeNumber:             a.TraineeNumber,
		SystemEmail:               a.SystemEmail,
		UserID:                    a.UserID,
		QualificationID:           a.QualificationID,
		CreatedAt:                 a.CreatedAt,
		UpdatedAt:                 a.UpdatedAt,
	}
}
