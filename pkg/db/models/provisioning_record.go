package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// ProvisioningRecord is one attempt in an application's identity provisioning history.
type ProvisioningRecord struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ApplicationID uuid.UUID                 `gorm:"column:application_id;type:uuid;not null;index"`
	Outcome       enums.ProvisioningOutcome `gorm:"column:outcome;type:text;not null"`
	UserID        *uuid.UUID                `gorm:"column:user_id;type:uuid"`
	SystemEmail   string                    `gorm:"column:system_email;type:text;not null"`
	Forced        bool                      `gorm:"column:forced;not null;default:false"`
	Error         *string                   `gorm:"column:error;type:text"`
	RequestedBy   uuid.UUID                 `gorm:"column:requested_by;type:uuid;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (p *ProvisioningRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
