package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// EntryDTO is the read model of a ledger entry. Amounts are decimal strings.
type EntryDTO struct {
	ID             uuid.UUID               `json:"id"`
	OrganizationID uuid.UUID               `json:"organization_id"`
	ApplicationID  *uuid.UUID              `json:"application_id,omitempty"`
	TraineeID      *uuid.UUID              `json:"trainee_id,omitempty"`
	Purpose        enums.FeePurpose        `json:"purpose"`
	Period         *string                 `json:"period,omitempty"`
	Description    string                  `json:"description"`
	AmountRequired string                  `json:"amount_required"`
	AmountPaid     string                  `json:"amount_paid"`
	Balance        string                  `json:"balance"`
	Credit         string                  `json:"credit"`
	Status         enums.LedgerEntryStatus `json:"status"`
	ClearedAt      *time.Time              `json:"cleared_at,omitempty"`
	Payments       []PaymentDTO            `json:"payments,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

type PaymentDTO struct {
	ID         uuid.UUID           `json:"id"`
	Amount     string              `json:"amount"`
	Received   string              `json:"received"`
	Method     enums.PaymentMethod `json:"method"`
	Reference  *string             `json:"reference,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
	RecordedBy uuid.UUID           `json:"recorded_by"`
	CreatedAt  time.Time           `json:"created_at"`
}

func FromModel(e *models.LedgerEntry, payments []models.LedgerPayment) EntryDTO {
	dto := EntryDTO{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		ApplicationID:  e.ApplicationID,
		TraineeID:      e.TraineeID,
		Purpose:        e.Purpose,
		Period:         e.Period,
		Description:    e.Description,
		AmountRequired: FormatCents(e.AmountRequiredCents),
		AmountPaid:     FormatCents(e.AmountPaidCents),
		Balance:        FormatCents(e.BalanceCents),
		Credit:         FormatCents(e.CreditCents),
		Status:         e.Status,
		ClearedAt:      e.ClearedAt,
		CreatedAt:      e.CreatedAt,
	}
	for _, p := range payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:         p.ID,
			Amount:     FormatCents(p.AmountCents),
			Received:   FormatCents(p.ReceivedCents),
			Method:     p.Method,
			Reference:  p.Reference,
			Notes:      p.Notes,
			RecordedBy: p.RecordedBy,
			CreatedAt:  p.CreatedAt,
		})
	}
	return dto
}
