package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// FeeType is an organization-configured fee amount for a purpose.
type FeeType struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	Purpose        enums.FeePurpose `gorm:"column:purpose;type:text;not null"`
	Name           string           `gorm:"column:name;type:text;not null"`
	AmountCents    int64            `gorm:"column:amount_cents;not null"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *FeeType) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
