package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// LedgerPayment is an append-only receipt applied to a ledger entry.
type LedgerPayment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	LedgerEntryID uuid.UUID           `gorm:"column:ledger_entry_id;type:uuid;not null;index"`
	AmountCents   int64               `gorm:"column:amount_cents;not null"`
	ReceivedCents int64               `gorm:"column:received_cents;not null"`
	Method        enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Reference     *string             `gorm:"column:reference;type:text"`
	Notes         *string             `gorm:"column:notes;type:text"`
	RecordedBy    uuid.UUID           `gorm:"column:recorded_by;type:uuid;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *LedgerPayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
