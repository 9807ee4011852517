package applications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

const maxMintAttempts = 5

// Identifiers are the trainee number and system e-mail minted at fee clearance.
type Identifiers struct {
	TraineeNumber string
	SystemEmail   string
}

// TraineeNumberPrefix is the organization/year scope sequences are counted in.
func TraineeNumberPrefix(orgCode string, year int) string {
	return fmt.Sprintf("%s/%d/", strings.ToUpper(strings.TrimSpace(orgCode)), year)
}

// FormatIdentifiers renders <ORG>/<YEAR>/<SEQ> and <org>.<year>.<seq>@<domain>.
// A non-zero suffix is appended as -N to both.
func FormatIdentifiers(orgCode, domain string, year int, seq int64, suffix int) Identifiers {
	seqPart := fmt.Sprintf("%05d", seq)
	if suffix > 0 {
		seqPart = fmt.Sprintf("%s-%d", seqPart, suffix)
	}
	local := fmt.Sprintf("%s.%d.%s", strings.ToLower(strings.TrimSpace(orgCode)), year, seqPart)
	return Identifiers{
		TraineeNumber: TraineeNumberPrefix(orgCode, year) + seqPart,
		SystemEmail:   local + "@" + strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@")),
	}
}

// mintAndClear assigns identifiers and flips pending_payment → payment_cleared
// in a single conditional update. Each attempt runs in a savepoint so a unique
// collision can be retried with a suffix inside the caller's transaction.
func mintAndClear(ctx context.Context, tx *gorm.DB, repo Repository, org *models.Organization, app *models.Application, now time.Time) (Identifiers, error) {
	year := now.UTC().Year()
	count, err := repo.CountTraineeNumbers(ctx, org.ID, TraineeNumberPrefix(org.Code, year))
	if err != nil {
		return Identifiers{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count trainee numbers")
	}
	seq := count + 1

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		ids := FormatIdentifiers(org.Code, org.EmailDomain, year, seq, attempt)
		taken, err := repo.IdentifierTaken(ctx, ids.TraineeNumber, ids.SystemEmail)
		if err != nil {
			return Identifiers{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check identifier")
		}
		if taken {
			continue
		}

		var changed bool
		err = tx.Transaction(func(inner *gorm.DB) error {
			var txErr error
			changed, txErr = repo.WithTx(inner).Transition(ctx, app.ID,
				map[string]any{
					"registration_status":  enums.RegistrationStatusPendingPayment,
					"qualification_status": enums.QualificationStatusProvisionallyQualified,
					"trainee_number":       nil,
				},
				map[string]any{
					"registration_status": enums.RegistrationStatusPaymentCleared,
					"trainee_number":      ids.TraineeNumber,
					"system_email":        ids.SystemEmail,
				})
			return txErr
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				continue
			}
			return Identifiers{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign identifiers")
		}
		if !changed {
			return Identifiers{}, InvalidTransition(ReasonStatusChanged, "application changed while clearing the application fee")
		}
		return ids, nil
	}
	return Identifiers{}, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrIdentifierExhausted, "identifier minting exhausted retries")
}
