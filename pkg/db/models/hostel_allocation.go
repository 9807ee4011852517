package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// HostelAllocation is a recurring obligation source billed once per month.
type HostelAllocation struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID     uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;index"`
	TraineeID          uuid.UUID              `gorm:"column:trainee_id;type:uuid;not null;index"`
	RoomID             *uuid.UUID             `gorm:"column:room_id;type:uuid"`
	MonthlyAmountCents int64                  `gorm:"column:monthly_amount_cents;not null"`
	Status             enums.AllocationStatus `gorm:"column:status;type:text;not null"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *HostelAllocation) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
