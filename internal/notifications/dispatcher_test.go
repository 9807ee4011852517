package notifications

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/users"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/registry"
)

type recordingSender struct {
	mu       sync.Mutex
	failures int
	sent     []Message
	onSend   func(ctx context.Context, msg Message)
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.onSend != nil {
		s.onSend(ctx, msg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp relay down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type memoryGuard struct {
	seen map[string]bool
}

func (g *memoryGuard) IsProcessed(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return g.seen[consumer+":"+eventID.String()], nil
}

func (g *memoryGuard) MarkProcessed(_ context.Context, consumer string, eventID uuid.UUID) error {
	g.seen[consumer+":"+eventID.String()] = true
	return nil
}

type harness struct {
	conn      *gorm.DB
	users     users.Repository
	publisher *outbox.Service
	sender    *recordingSender
	guard     *memoryGuard
	orgID     uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	return &harness{
		conn:      conn,
		users:     users.NewRepository(conn),
		publisher: outbox.NewService(outbox.NewRepository(conn), nil),
		sender:    &recordingSender{},
		guard:     &memoryGuard{seen: map[string]bool{}},
		orgID:     uuid.New(),
	}
}

func (h *harness) dispatcher(t *testing.T, maxAttempts int) *Dispatcher {
	t.Helper()
	resolver, err := NewRecipientResolver(h.users)
	require.NoError(t, err)
	d, err := NewDispatcher(DispatcherParams{
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		DB:            db.NewFromConn(h.conn),
		Outbox:        outbox.NewRepository(h.conn),
		DLQ:           outbox.NewDLQRepository(h.conn),
		Registry:      registry.NewEventRegistry(),
		Notifications: NewRepository(h.conn),
		Recipients:    resolver,
		Sender:        h.sender,
		Idempotency:   h.guard,
		Metrics:       metrics.NewPipelineMetrics(prometheus.NewRegistry()),
		Config:        config.OutboxConfig{BatchSize: 10, MaxAttempts: maxAttempts, SendTimeout: 2 * time.Second},
	})
	require.NoError(t, err)
	return d
}

func (h *harness) staff(t *testing.T, email string, role enums.Role) uuid.UUID {
	t.Helper()
	u, err := h.users.Create(context.Background(), users.CreateUserDTO{Email: email, PasswordHash: "x", FirstName: "Staff", LastName: "Member"})
	require.NoError(t, err)
	require.NoError(t, h.users.AssignRole(context.Background(), u.ID, h.orgID, role))
	return u.ID
}

func (h *harness) emit(t *testing.T, event outbox.DomainEvent) {
	t.Helper()
	require.NoError(t, h.conn.Transaction(func(tx *gorm.DB) error {
		return h.publisher.Emit(context.Background(), tx, event)
	}))
}

func (h *harness) submittedEvent(recipients ...payloads.Recipient) outbox.DomainEvent {
	appID := uuid.New()
	return outbox.DomainEvent{
		EventType:     enums.EventApplicationSubmitted,
		AggregateType: enums.AggregateApplication,
		AggregateID:   appID,
		Data: payloads.ApplicationSubmittedEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type: enums.NotificationTypeAdmissions, Title: "New application", Message: "Aline Uwase applied.",
				Recipients: recipients,
			}},
			ApplicationID:  appID,
			OrganizationID: h.orgID,
			NationalID:     "1199880012345678",
		},
	}
}

func (h *harness) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestDispatchFansOutToRoleHoldersAtSendTime(t *testing.T) {
	h := newHarness(t)
	first := h.staff(t, "registrar1@ktc.example", enums.RoleRegistrar)
	h.emit(t, h.submittedEvent(payloads.RoleRecipient(h.orgID, enums.RoleRegistrar)))
	// Granted after the event was written, still receives it.
	second := h.staff(t, "registrar2@ktc.example", enums.RoleRegistrar)
	h.staff(t, "bursar@ktc.example", enums.RoleBursar)

	processed, err := h.dispatcher(t, 5).DispatchPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	require.Len(t, h.sender.sent, 1)
	msg := h.sender.sent[0]
	require.Equal(t, "New application", msg.Subject)
	got := []uuid.UUID{}
	for _, r := range msg.Recipients {
		got = append(got, r.UserID)
	}
	require.ElementsMatch(t, []uuid.UUID{first, second}, got)

	require.EqualValues(t, 2, h.count(t, &models.Notification{}, "1 = 1"))
	require.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}, "published_at IS NULL"))
}

func TestDispatchDeduplicatesUserAndRoleTargets(t *testing.T) {
	h := newHarness(t)
	registrar := h.staff(t, "registrar@ktc.example", enums.RoleRegistrar)
	h.emit(t, h.submittedEvent(
		payloads.RoleRecipient(h.orgID, enums.RoleRegistrar),
		payloads.UserRecipient(h.orgID, registrar),
	))

	_, err := h.dispatcher(t, 5).DispatchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, h.sender.sent, 1)
	require.Len(t, h.sender.sent[0].Recipients, 1)
	require.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ?", registrar))
}

func TestDispatchRetriesThenDeadLetters(t *testing.T) {
	h := newHarness(t)
	h.staff(t, "registrar@ktc.example", enums.RoleRegistrar)
	h.emit(t, h.submittedEvent(payloads.RoleRecipient(h.orgID, enums.RoleRegistrar)))
	h.sender.failures = 10
	d := h.dispatcher(t, 2)
	ctx := context.Background()

	_, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "attempt_count = 1 AND published_at IS NULL"))
	require.Empty(t, h.guard.seen)

	_, err = d.DispatchPending(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, h.count(t, &models.OutboxDLQ{}, "error_reason = ?", enums.OutboxDLQReasonMaxAttempts))

	// Terminal rows are no longer fetched.
	processed, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Zero(t, processed)
}

func TestDispatchRecoversAfterTransientFailure(t *testing.T) {
	h := newHarness(t)
	h.staff(t, "registrar@ktc.example", enums.RoleRegistrar)
	h.emit(t, h.submittedEvent(payloads.RoleRecipient(h.orgID, enums.RoleRegistrar)))
	h.sender.failures = 1
	d := h.dispatcher(t, 5)

	_, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	_, err = d.DispatchPending(context.Background())
	require.NoError(t, err)

	require.Len(t, h.sender.sent, 1)
	// In-app rows written on the failed attempt are not duplicated.
	require.EqualValues(t, 1, h.count(t, &models.Notification{}, "1 = 1"))
	require.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}, "published_at IS NULL"))
}

func TestDispatchSkipsAlreadyDeliveredEvent(t *testing.T) {
	h := newHarness(t)
	h.staff(t, "registrar@ktc.example", enums.RoleRegistrar)
	h.emit(t, h.submittedEvent(payloads.RoleRecipient(h.orgID, enums.RoleRegistrar)))

	var row models.OutboxEvent
	require.NoError(t, h.conn.First(&row).Error)
	resolved, err := registry.NewEventRegistry().Resolve(row)
	require.NoError(t, err)
	h.guard.seen[dispatcherConsumer+":"+resolved.Envelope.EventID] = true

	_, err = h.dispatcher(t, 5).DispatchPending(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.sender.sent)
	require.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}, "published_at IS NULL"))
}

func TestDispatchMarksDeliveredOnlyAfterSend(t *testing.T) {
	h := newHarness(t)
	h.staff(t, "registrar@ktc.example", enums.RoleRegistrar)
	h.emit(t, h.submittedEvent(payloads.RoleRecipient(h.orgID, enums.RoleRegistrar)))

	var (
		markedDuringSend bool
		deadline         time.Time
		hasDeadline      bool
	)
	h.sender.onSend = func(ctx context.Context, msg Message) {
		markedDuringSend = h.guard.seen[dispatcherConsumer+":"+msg.EventID.String()]
		deadline, hasDeadline = ctx.Deadline()
	}
	started := time.Now()

	_, err := h.dispatcher(t, 5).DispatchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, h.sender.sent, 1)
	require.False(t, markedDuringSend)
	require.True(t, h.guard.seen[dispatcherConsumer+":"+h.sender.sent[0].EventID.String()])
	require.True(t, hasDeadline)
	require.WithinDuration(t, started.Add(2*time.Second), deadline, time.Second)
}

func TestDispatchDeadLettersUnknownEvents(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.conn.Create(&models.OutboxEvent{
		EventType:     enums.OutboxEventType("legacy_event"),
		AggregateType: enums.AggregateApplication,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1,"event_id":"x","data":{}}`),
	}).Error)

	_, err := h.dispatcher(t, 5).DispatchPending(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, h.count(t, &models.OutboxDLQ{}, "error_reason = ?", enums.OutboxDLQReasonUnknownEvent))
	require.Empty(t, h.sender.sent)
}

func TestDispatchMarksNoticeFreeEventsPublished(t *testing.T) {
	h := newHarness(t)
	appID := uuid.New()
	h.emit(t, outbox.DomainEvent{
		EventType:     enums.EventApplicationRejected,
		AggregateType: enums.AggregateApplication,
		AggregateID:   appID,
		Data:          payloads.ApplicationRejectedEvent{ApplicationID: appID, OrganizationID: h.orgID},
	})

	_, err := h.dispatcher(t, 5).DispatchPending(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.sender.sent)
	require.EqualValues(t, 0, h.count(t, &models.OutboxEvent{}, "published_at IS NULL"))
}
