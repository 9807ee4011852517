package clearance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
)

type recordingHandler struct {
	calls []uuid.UUID
	err   error
}

func (h *recordingHandler) HandleCleared(_ context.Context, tx *gorm.DB, _ auth.Principal, entry *models.LedgerEntry) error {
	if tx == nil {
		return errors.New("handler called outside transaction")
	}
	h.calls = append(h.calls, entry.ID)
	return h.err
}

// flakyRepo loses the CAS race a fixed number of times.
type flakyRepo struct {
	ledger.Repository
	losses *int
}

func (f flakyRepo) WithTx(tx *gorm.DB) ledger.Repository {
	return flakyRepo{Repository: f.Repository.WithTx(tx), losses: f.losses}
}

func (f flakyRepo) CompareAndSwap(ctx context.Context, entry *models.LedgerEntry, expected int64) (bool, error) {
	if *f.losses > 0 {
		*f.losses--
		return false, nil
	}
	return f.Repository.CompareAndSwap(ctx, entry, expected)
}

type harness struct {
	conn    *gorm.DB
	handler *recordingHandler
	bursar  auth.Principal
	orgID   uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	orgID := uuid.New()
	return &harness{
		conn:    dbtest.Open(t),
		handler: &recordingHandler{},
		bursar:  auth.Principal{UserID: uuid.New(), OrganizationID: orgID, Role: enums.RoleBursar},
		orgID:   orgID,
	}
}

func (h *harness) service(t *testing.T, repo ledger.Repository, cfg config.ClearanceConfig) Service {
	t.Helper()
	svc, err := NewService(repo, db.NewFromConn(h.conn), outbox.NewService(outbox.NewRepository(h.conn), nil),
		map[enums.FeePurpose]Handler{enums.FeePurposeApplication: h.handler},
		cfg, metrics.NewPipelineMetrics(prometheus.NewRegistry()), nil)
	require.NoError(t, err)
	return svc
}

func (h *harness) entry(t *testing.T, purpose enums.FeePurpose, cents int64) *models.LedgerEntry {
	t.Helper()
	e := ledger.NewEntry(h.orgID, purpose, cents, string(purpose)+" fee")
	if purpose == enums.FeePurposeHostel {
		traineeID := uuid.New()
		e.TraineeID = &traineeID
	} else {
		appID := uuid.New()
		e.ApplicationID = &appID
	}
	require.NoError(t, h.conn.Create(&e).Error)
	return &e
}

func (h *harness) reload(t *testing.T, id uuid.UUID) models.LedgerEntry {
	t.Helper()
	var e models.LedgerEntry
	require.NoError(t, h.conn.First(&e, "id = ?", id).Error)
	return e
}

func (h *harness) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestClearPaymentPartialThenFull(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, ledger.NewRepository(h.conn), config.ClearanceConfig{})
	entry := h.entry(t, enums.FeePurposeApplication, 5000)
	ctx := context.Background()

	res, err := svc.ClearPayment(ctx, h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 2000, Method: enums.PaymentMethodCash})
	require.NoError(t, err)
	require.Equal(t, enums.LedgerEntryStatusPartial, res.Status)
	require.EqualValues(t, 3000, res.BalanceCents)
	require.Empty(t, h.handler.calls)

	res, err = svc.ClearPayment(ctx, h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 3000, Method: enums.PaymentMethodMobileMoney})
	require.NoError(t, err)
	require.Equal(t, enums.LedgerEntryStatusCleared, res.Status)
	require.Zero(t, res.BalanceCents)
	require.False(t, res.AlreadyCleared)
	require.Equal(t, []uuid.UUID{entry.ID}, h.handler.calls)

	stored := h.reload(t, entry.ID)
	require.NoError(t, ledger.CheckInvariants(stored))
	require.NotNil(t, stored.ClearedAt)
	require.EqualValues(t, 2, stored.Version)
	require.EqualValues(t, 2, h.count(t, &models.LedgerPayment{}, "ledger_entry_id = ?", entry.ID))
	require.EqualValues(t, 2, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventPaymentRecorded))
	require.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventLedgerEntryCleared))
}

func TestClearPaymentIsIdempotentOnceCleared(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, ledger.NewRepository(h.conn), config.ClearanceConfig{})
	entry := h.entry(t, enums.FeePurposeApplication, 5000)
	ctx := context.Background()
	input := ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 5000, Method: enums.PaymentMethodBankTransfer}

	first, err := svc.ClearPayment(ctx, h.bursar, input)
	require.NoError(t, err)
	require.False(t, first.AlreadyCleared)

	second, err := svc.ClearPayment(ctx, h.bursar, input)
	require.NoError(t, err)
	require.True(t, second.AlreadyCleared)
	require.Equal(t, first.BalanceCents, second.BalanceCents)
	require.Nil(t, second.PaymentID)

	require.Len(t, h.handler.calls, 1)
	require.EqualValues(t, 1, h.count(t, &models.LedgerPayment{}, "ledger_entry_id = ?", entry.ID))
	require.EqualValues(t, 5000, h.reload(t, entry.ID).AmountPaidCents)
}

func TestClearPaymentRejectsOverpayment(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, ledger.NewRepository(h.conn), config.ClearanceConfig{})
	entry := h.entry(t, enums.FeePurposeApplication, 5000)

	_, err := svc.ClearPayment(context.Background(), h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 5001, Method: enums.PaymentMethodCash})
	require.ErrorIs(t, err, ledger.ErrOverpaymentRejected)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, ledger.ReasonOverpaymentRejected, pkgerrors.ReasonOf(err))

	stored := h.reload(t, entry.ID)
	require.Zero(t, stored.AmountPaidCents)
	require.Equal(t, enums.LedgerEntryStatusPending, stored.Status)
	require.Zero(t, h.count(t, &models.LedgerPayment{}, "ledger_entry_id = ?", entry.ID))
}

func TestClearPaymentCreditForward(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, ledger.NewRepository(h.conn), config.ClearanceConfig{AllowCredit: true})
	entry := h.entry(t, enums.FeePurposeHostel, 4000)

	res, err := svc.ClearPayment(context.Background(), h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 4500, Method: enums.PaymentMethodCash})
	require.NoError(t, err)
	require.Equal(t, enums.LedgerEntryStatusCleared, res.Status)
	require.EqualValues(t, 500, res.CreditCents)
	require.EqualValues(t, 500, h.reload(t, entry.ID).CreditCents)
	require.Empty(t, h.handler.calls, "hostel clearance has no application effect")
}

func TestClearPaymentValidation(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, ledger.NewRepository(h.conn), config.ClearanceConfig{})
	ctx := context.Background()
	entry := h.entry(t, enums.FeePurposeApplication, 100)

	_, err := svc.ClearPayment(ctx, h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 0, Method: enums.PaymentMethodCash})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ClearPayment(ctx, h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 10, Method: "barter"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ClearPayment(ctx, h.bursar, ClearPaymentInput{LedgerEntryID: uuid.New(), AmountCents: 10, Method: enums.PaymentMethodCash})
	require.ErrorIs(t, err, ledger.ErrLedgerEntryNotFound)

	registrar := auth.Principal{UserID: uuid.New(), OrganizationID: h.orgID, Role: enums.RoleRegistrar}
	_, err = svc.ClearPayment(ctx, registrar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 10, Method: enums.PaymentMethodCash})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	outsider := auth.Principal{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleBursar}
	_, err = svc.ClearPayment(ctx, outsider, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 10, Method: enums.PaymentMethodCash})
	require.ErrorIs(t, err, ledger.ErrLedgerEntryNotFound)
}

// A failing downstream effect must not leave the entry cleared.
func TestClearPaymentRollsBackWhenHandlerFails(t *testing.T) {
	h := newHarness(t)
	h.handler.err = pkgerrors.New(pkgerrors.CodeDependency, "minting failed")
	svc := h.service(t, ledger.NewRepository(h.conn), config.ClearanceConfig{})
	entry := h.entry(t, enums.FeePurposeApplication, 5000)

	_, err := svc.ClearPayment(context.Background(), h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 5000, Method: enums.PaymentMethodCash})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.True(t, pkgerrors.MetadataFor(pkgerrors.CodeDependency).Retryable)

	stored := h.reload(t, entry.ID)
	require.Equal(t, enums.LedgerEntryStatusPending, stored.Status)
	require.EqualValues(t, 5000, stored.BalanceCents)
	require.Zero(t, h.count(t, &models.LedgerPayment{}, "ledger_entry_id = ?", entry.ID))
	require.Zero(t, h.count(t, &models.OutboxEvent{}, "1 = 1"))
}

func TestClearPaymentRetriesLostCASRace(t *testing.T) {
	h := newHarness(t)
	losses := 2
	svc := h.service(t, flakyRepo{Repository: ledger.NewRepository(h.conn), losses: &losses}, config.ClearanceConfig{MaxCASRetries: 3})
	entry := h.entry(t, enums.FeePurposeApplication, 5000)

	res, err := svc.ClearPayment(context.Background(), h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 1000, Method: enums.PaymentMethodCard})
	require.NoError(t, err)
	require.EqualValues(t, 4000, res.BalanceCents)
	require.Zero(t, losses)
	require.EqualValues(t, 1, h.count(t, &models.LedgerPayment{}, "ledger_entry_id = ?", entry.ID))
}

func TestClearPaymentGivesUpAfterMaxRetries(t *testing.T) {
	h := newHarness(t)
	losses := 10
	svc := h.service(t, flakyRepo{Repository: ledger.NewRepository(h.conn), losses: &losses}, config.ClearanceConfig{MaxCASRetries: 3})
	entry := h.entry(t, enums.FeePurposeApplication, 5000)

	_, err := svc.ClearPayment(context.Background(), h.bursar, ClearPaymentInput{LedgerEntryID: entry.ID, AmountCents: 1000, Method: enums.PaymentMethodCard})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, 6, losses)
	require.Zero(t, h.count(t, &models.LedgerPayment{}, "ledger_entry_id = ?", entry.ID))
}
