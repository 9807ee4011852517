package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Application is a prospective trainee's record and its three status axes.
type Application struct {
	ID                        uuid.UUID                        `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID            uuid.UUID                        `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_applications_org_national_id,priority:1"`
	NationalID                string                           `gorm:"column:national_id;type:text;not null;uniqueIndex:ux_applications_org_national_id,priority:2"`
	FirstName                 string                           `gorm:"column:first_name;type:text;not null"`
	LastName                  string                           `gorm:"column:last_name;type:text;not null"`
	Email                     *string                          `gorm:"column:email;type:text"`
	Phone                     *string                          `gorm:"column:phone;type:text"`
	TradeID                   *uuid.UUID                       `gorm:"column:trade_id;type:uuid"`
	QualificationStatus       enums.QualificationStatus        `gorm:"column:qualification_status;type:text;not null"`
	RegistrationStatus        enums.RegistrationStatus         `gorm:"column:registration_status;type:text;not null"`
	AccountProvisioningStatus *enums.AccountProvisioningStatus `gorm:"column:account_provisioning_status;type:text"`
	ScreeningRemarks          *string                          `gorm:"column:screening_remarks;type:text"`
	ScreenedBy                *uuid.UUID                       `gorm:"column:screened_by;type:uuid"`
	ScreenedAt                *time.Time                       `gorm:"column:screened_at"`
	TraineeNumber             *string                          `gorm:"column:trainee_number;type:text;uniqueIndex"`
	SystemEmail               *string                          `gorm:"column:system_email;type:text;uniqueIndex"`
	UserID                    *uuid.UUID                       `gorm:"column:user_id;type:uuid"`
	QualificationID           *uuid.UUID                       `gorm:"column:qualification_id;type:uuid"`
	Version                   int64                            `gorm:"column:version;not null;default:0"`
	CreatedAt                 time.Time                        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time                        `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// IsProvisioned reports whether a login identity is linked.
func (a *Application) IsProvisioned() bool {
	return a.UserID != nil && a.AccountProvisioningStatus != nil &&
		*a.AccountProvisioningStatus == enums.AccountProvisioningProvisioned
}

// HasIdentifiers reports whether trainee number and system email were minted.
func (a *Application) HasIdentifiers() bool {
	return a.TraineeNumber != nil && *a.TraineeNumber != "" &&
		a.SystemEmail != nil && *a.SystemEmail != ""
}
