package controllers

import (
	"net/http"

	"github.com/angelmondragon/enrollment-backend/api/responses"
	"github.com/angelmondragon/enrollment-backend/api/validators"
	"github.com/angelmondragon/enrollment-backend/internal/clearance"
	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

// paymentRequest takes the amount as a decimal string in major units so no
// float ever touches money.
type paymentRequest struct {
	Amount    string  `json:"amount" validate:"required,money,max=32"`
	Method    string  `json:"method" validate:"required,max=32"`
	Reference *string `json:"reference,omitempty" validate:"omitempty,max=128"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type paymentResponse struct {
	*clearance.Result
	AmountPaid string `json:"amount_paid"`
	Balance    string `json:"balance"`
	Applied    string `json:"applied"`
	Credit     string `json:"credit"`
}

func GetLedgerEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "ledger")
			return
		}
		principal, ok := principalOrAbort(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "ledgerEntryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.GetEntry(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// TraineeLedger lists every obligation billed to a trainee, one-off fees and
// monthly hostel periods alike.
func TraineeLedger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "ledger")
			return
		}
		principal, ok := principalOrAbort(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "traineeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListForTrainee(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}

// RecordPayment clears a payment against one ledger entry. Replays of the same
// Idempotency-Key are answered by the idempotency middleware.
func RecordPayment(svc clearance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "clearance")
			return
		}
		principal, ok := principalOrAbort(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "ledgerEntryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cents, err := ledger.ParseAmount(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).WithDetails(map[string]any{"field": "amount"}))
			return
		}
		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method").WithDetails(map[string]any{"field": "method"}))
			return
		}

		result, err := svc.ClearPayment(r.Context(), principal, clearance.ClearPaymentInput{
			LedgerEntryID: id,
			AmountCents:   cents,
			Method:        method,
			Reference:     body.Reference,
			Notes:         body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentResponse{
			Result:     result,
			AmountPaid: ledger.FormatCents(result.AmountPaidCents),
			Balance:    ledger.FormatCents(result.BalanceCents),
			Applied:    ledger.FormatCents(result.AppliedCents),
			Credit:     ledger.FormatCents(result.CreditCents),
		})
	}
}
