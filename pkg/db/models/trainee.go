package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Trainee is the enrolled record created once registration fees clear.
type Trainee struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID   uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;index"`
	ApplicationID    uuid.UUID              `gorm:"column:application_id;type:uuid;not null;uniqueIndex"`
	UserID           *uuid.UUID             `gorm:"column:user_id;type:uuid"`
	TraineeNumber    string                 `gorm:"column:trainee_number;type:text;not null;uniqueIndex"`
	QualificationID  uuid.UUID              `gorm:"column:qualification_id;type:uuid;not null"`
	ClassID          *uuid.UUID             `gorm:"column:class_id;type:uuid"`
	EnrollmentStatus enums.EnrollmentStatus `gorm:"column:enrollment_status;type:text;not null"`
	EnrolledAt       *time.Time             `gorm:"column:enrolled_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Trainee) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
