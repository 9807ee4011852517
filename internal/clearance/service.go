package clearance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
)

const defaultMaxCASRetries = 3

// errVersionConflict signals that another writer updated the entry between
// our read and our conditional write.
var errVersionConflict = errors.New("ledger entry version changed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Handler applies the downstream effect of a cleared obligation. It runs inside
// the clearance transaction; an error rolls the payment back.
type Handler interface {
	HandleCleared(ctx context.Context, tx *gorm.DB, principal auth.Principal, entry *models.LedgerEntry) error
}

// ClearPaymentInput is one payment against one ledger entry.
type ClearPaymentInput struct {
	LedgerEntryID uuid.UUID
	AmountCents   int64
	Method        enums.PaymentMethod
	Reference     *string
	Notes         *string
}

// Result reports the entry state after the call. AlreadyCleared marks the
// idempotent no-op on an entry that was cleared before this call.
type Result struct {
	LedgerEntryID   uuid.UUID               `json:"ledger_entry_id"`
	PaymentID       *uuid.UUID              `json:"payment_id,omitempty"`
	Purpose         enums.FeePurpose        `json:"purpose"`
	AppliedCents    int64                   `json:"applied_cents"`
	CreditCents     int64                   `json:"credit_cents"`
	AmountPaidCents int64                   `json:"amount_paid_cents"`
	BalanceCents    int64                   `json:"balance_cents"`
	Status          enums.LedgerEntryStatus `json:"status"`
	AlreadyCleared  bool                    `json:"already_cleared"`
}

type Service interface {
	ClearPayment(ctx context.Context, principal auth.Principal, input ClearPaymentInput) (*Result, error)
}

type service struct {
	repo       ledger.Repository
	tx         txRunner
	outbox     outboxPublisher
	handlers   map[enums.FeePurpose]Handler
	cfg        config.ClearanceConfig
	metrics    *metrics.PipelineMetrics
	logg       *logger.Logger
	now        func() time.Time
	maxRetries int
}

// NewService builds the clearance processor. handlers maps a fee purpose to the
// effect its clearance has on the application; purposes without a handler only
// update the ledger.
func NewService(repo ledger.Repository, tx txRunner, outbox outboxPublisher, handlers map[enums.FeePurpose]Handler, cfg config.ClearanceConfig, m *metrics.PipelineMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	retries := cfg.MaxCASRetries
	if retries <= 0 {
		retries = defaultMaxCASRetries
	}
	registered := make(map[enums.FeePurpose]Handler, len(handlers))
	for purpose, h := range handlers {
		if h != nil {
			registered[purpose] = h
		}
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     outbox,
		handlers:   registered,
		cfg:        cfg,
		metrics:    m,
		logg:       logg,
		now:        time.Now,
		maxRetries: retries,
	}, nil
}

// ClearPayment applies a payment atomically: ledger update, receipt, purpose
// handler and outbox events commit together or not at all.
func (s *service) ClearPayment(ctx context.Context, principal auth.Principal, input ClearPaymentInput) (*Result, error) {
	if err := principal.Require(enums.RoleBursar); err != nil {
		return nil, err
	}
	if input.LedgerEntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger entry id is required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ledger.ErrInvalidAmount, "amount must be greater than zero")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		result, err := s.attempt(ctx, principal, input)
		if errors.Is(err, errVersionConflict) {
			s.metrics.IncCASRetry()
			continue
		}
		if err != nil {
			s.metrics.IncPayment(purposeLabel(result), "error")
			return nil, err
		}
		s.recordOutcome(ctx, principal, result)
		return result, nil
	}
	s.metrics.IncPayment("", "conflict")
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, errVersionConflict, "ledger entry is being updated concurrently; retry")
}

func (s *service) attempt(ctx context.Context, principal auth.Principal, input ClearPaymentInput) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindEntryForUpdate(ctx, input.LedgerEntryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, ledger.ErrLedgerEntryNotFound, "ledger entry not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
		}
		if !principal.CanAccess(entry.OrganizationID) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, ledger.ErrLedgerEntryNotFound, "ledger entry not found")
		}
		if entry.IsCleared() {
			result = snapshot(entry)
			result.AlreadyCleared = true
			return nil
		}

		applied, err := ledger.ApplyPayment(*entry, input.AmountCents, s.cfg.AllowCredit, s.now())
		if err != nil {
			return paymentError(err)
		}
		next := applied.Entry
		swapped, err := repo.CompareAndSwap(ctx, &next, entry.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger entry")
		}
		if !swapped {
			return errVersionConflict
		}

		payment := &models.LedgerPayment{
			LedgerEntryID: entry.ID,
			AmountCents:   applied.AppliedCents,
			ReceivedCents: input.AmountCents,
			Method:        input.Method,
			Reference:     input.Reference,
			Notes:         input.Notes,
			RecordedBy:    principal.UserID,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		if err := s.outbox.Emit(ctx, tx, paymentRecordedEvent(principal, &next, payment)); err != nil {
			return err
		}

		if applied.Cleared {
			if handler, ok := s.handlers[next.Purpose]; ok {
				if err := handler.HandleCleared(ctx, tx, principal, &next); err != nil {
					return err
				}
			}
			if err := s.outbox.Emit(ctx, tx, entryClearedEvent(principal, &next)); err != nil {
				return err
			}
		}

		result = snapshot(&next)
		result.PaymentID = &payment.ID
		result.AppliedCents = applied.AppliedCents
		result.CreditCents = applied.CreditCents
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

func snapshot(entry *models.LedgerEntry) *Result {
	return &Result{
		LedgerEntryID:   entry.ID,
		Purpose:         entry.Purpose,
		AmountPaidCents: entry.AmountPaidCents,
		BalanceCents:    entry.BalanceCents,
		Status:          entry.Status,
	}
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrOverpaymentRejected):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "payment exceeds the outstanding balance").
			WithReason(ledger.ReasonOverpaymentRejected)
	case errors.Is(err, ledger.ErrInvalidAmount):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be greater than zero")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply payment")
	}
}

func (s *service) recordOutcome(ctx context.Context, principal auth.Principal, result *Result) {
	outcome := "applied"
	switch {
	case result.AlreadyCleared:
		outcome = "already_cleared"
	case result.Status == enums.LedgerEntryStatusCleared:
		outcome = "cleared"
	}
	s.metrics.IncPayment(string(result.Purpose), outcome)
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrganizationID(ctx, principal.OrganizationID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"ledger_entry_id": result.LedgerEntryID.String(),
		"purpose":         result.Purpose,
		"balance_cents":   result.BalanceCents,
		"status":          result.Status,
		"outcome":         outcome,
	})
	s.logg.Info(logCtx, "payment processed")
}

func purposeLabel(result *Result) string {
	if result == nil {
		return ""
	}
	return string(result.Purpose)
}
