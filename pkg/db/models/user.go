package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// User represents the canonical login identity.
type User struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email              string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash       string     `gorm:"column:password_hash;not null"`
	MustChangePassword bool       `gorm:"column:must_change_password;not null;default:false"`
	FirstName          string     `gorm:"column:first_name;not null"`
	LastName           string     `gorm:"column:last_name;not null"`
	IsActive           bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// UserRole grants a role to a user inside one organization.
type UserRole struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_roles_user_org_role,priority:1"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_user_roles_user_org_role,priority:2;index"`
	Role           enums.Role `gorm:"column:role;type:text;not null;uniqueIndex:ux_user_roles_user_org_role,priority:3"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (r *UserRole) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
