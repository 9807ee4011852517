package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// LedgerEntry is a single monetary obligation linked to an application or a trainee.
type LedgerEntry struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID      uuid.UUID               `gorm:"column:organization_id;type:uuid;not null;index"`
	ApplicationID       *uuid.UUID              `gorm:"column:application_id;type:uuid;uniqueIndex:ux_ledger_entries_application_purpose,priority:1"`
	TraineeID           *uuid.UUID              `gorm:"column:trainee_id;type:uuid;index"`
	Purpose             enums.FeePurpose        `gorm:"column:purpose;type:text;not null;uniqueIndex:ux_ledger_entries_application_purpose,priority:2"`
	FeeTypeID           *uuid.UUID              `gorm:"column:fee_type_id;type:uuid"`
	SourceID            *uuid.UUID              `gorm:"column:source_id;type:uuid;uniqueIndex:ux_ledger_entries_source_period,priority:1"`
	Period              *string                 `gorm:"column:period;type:text;uniqueIndex:ux_ledger_entries_source_period,priority:2"`
	Description         string                  `gorm:"column:description;type:text;not null"`
	AmountRequiredCents int64                   `gorm:"column:amount_required_cents;not null"`
	AmountPaidCents     int64                   `gorm:"column:amount_paid_cents;not null;default:0"`
	BalanceCents        int64                   `gorm:"column:balance_cents;not null"`
	CreditCents         int64                   `gorm:"column:credit_cents;not null;default:0"`
	Status              enums.LedgerEntryStatus `gorm:"column:status;type:text;not null"`
	Version             int64                   `gorm:"column:version;not null;default:0"`
	ClearedAt           *time.Time              `gorm:"column:cleared_at"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *LedgerEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// IsCleared reports whether the obligation has been fully paid.
func (l *LedgerEntry) IsCleared() bool {
	return l.Status == enums.LedgerEntryStatusCleared
}
