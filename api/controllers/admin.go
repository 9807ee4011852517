package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/enrollment-backend/api/responses"
	"github.com/angelmondragon/enrollment-backend/internal/recurring"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

type recurringFeesResponse struct {
	*recurring.Summary
	Errors []string `json:"errors,omitempty"`
}

// GenerateRecurringFees runs the monthly hostel billing for the period in the
// path, limited to the caller's organization. Re-running a period only fills gaps.
func GenerateRecurringFees(gen recurring.Generator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gen == nil {
			unavailable(w, r, logg, "recurring fees")
			return
		}
		principal, ok := principalOrAbort(w, r, logg)
		if !ok {
			return
		}
		period, err := recurring.ParsePeriod(chi.URLParam(r, "period"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := gen.GenerateRecurringFees(r.Context(), principal, period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recurringFeesResponse{Summary: summary, Errors: summary.ErrorMessages()})
	}
}
