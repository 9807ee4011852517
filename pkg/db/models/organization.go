package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Organization is the tenant owning every pipeline record.
type Organization struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Code        string                   `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name        string                   `gorm:"column:name;type:text;not null"`
	EmailDomain string                   `gorm:"column:email_domain;type:text;not null"`
	Status      enums.OrganizationStatus `gorm:"column:status;type:text;not null"`
	TrialEndsAt *time.Time               `gorm:"column:trial_ends_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
