package notifications

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/registry"
)

const (
	dispatcherConsumer = "notification-dispatcher"
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	defaultSendTimeout = 10 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublished(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	MarkFailed(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminal(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type recipientResolver interface {
	Resolve(ctx context.Context, recipients []payloads.Recipient) ([]Recipient, error)
}

type idempotencyGuard interface {
	IsProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type DispatcherParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Outbox        outboxRepository
	DLQ           dlqRepository
	Registry      registryResolver
	Notifications Repository
	Recipients    recipientResolver
	Sender        Sender
	Idempotency   idempotencyGuard
	Metrics       *metrics.PipelineMetrics
	Config        config.OutboxConfig
}

// Dispatcher drains the outbox: it writes in-app notifications for each
// notice and hands the message to the delivery Sender. Failures are retried
// up to the attempt ceiling and then parked in the DLQ.
//
// Delivery is at least once. An event is marked delivered in the guard only
// after Send returns, so a crash before that point resends it; the marker then
// suppresses the resend when the row's commit is what failed. Each Send is
// bounded by the configured timeout because the batch rows stay locked while
// it runs.
type Dispatcher struct {
	logg          *logger.Logger
	db            txRunner
	outbox        outboxRepository
	dlq           dlqRepository
	registry      registryResolver
	notifications Repository
	recipients    recipientResolver
	sender        Sender
	idempotency   idempotencyGuard
	metrics       *metrics.PipelineMetrics
	batchSize     int
	maxAttempts   int
	pollInterval  time.Duration
	sendTimeout   time.Duration
	now           func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Notifications == nil {
		return nil, errors.New("notifications repository is required")
	}
	if params.Recipients == nil {
		return nil, errors.New("recipient resolver is required")
	}
	if params.Sender == nil {
		return nil, errors.New("sender is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	sendTimeout := params.Config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Dispatcher{
		logg:          params.Logger,
		db:            params.DB,
		outbox:        params.Outbox,
		dlq:           params.DLQ,
		registry:      params.Registry,
		notifications: params.Notifications,
		recipients:    params.Recipients,
		sender:        params.Sender,
		idempotency:   params.Idempotency,
		metrics:       params.Metrics,
		batchSize:     batch,
		maxAttempts:   maxAttempts,
		pollInterval:  time.Duration(pollMs) * time.Millisecond,
		sendTimeout:   sendTimeout,
		now:           time.Now,
	}, nil
}

// Run polls until ctx is canceled, backing off after batch errors.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := d.pollInterval
	backoff := interval
	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "notification dispatcher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := d.DispatchPending(ctx)
		if err != nil {
			d.logg.Error(ctx, "notification dispatch batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = interval
		if processed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// DispatchPending handles one batch of undelivered outbox rows and reports how
// many rows it looked at.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	processed := 0
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := d.outbox.FetchUnpublished(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events)
		for _, event := range events {
			if err := d.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// dispatch returns an error only when bookkeeping fails; delivery errors are
// recorded on the row.
func (d *Dispatcher) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	fields := eventFields(event)
	resolved, err := d.registry.Resolve(event)
	if err != nil {
		return d.handleTerminal(ctx, tx, event, resolveFailureReason(err), err, fields)
	}
	fields["event_id"] = resolved.Envelope.EventID

	notice := resolved.Notice()
	if notice == nil || len(notice.Recipients) == 0 {
		return d.markPublished(tx, event)
	}

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		return d.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMalformedPayload, fmt.Errorf("invalid event id: %w", err), fields)
	}
	if d.idempotency != nil {
		delivered, err := d.idempotency.IsProcessed(ctx, dispatcherConsumer, eventID)
		if err != nil {
			return d.retry(ctx, tx, event, fmt.Errorf("idempotency check: %w", err), fields)
		}
		if delivered {
			d.logg.Info(d.logg.WithFields(ctx, fields), "notification already delivered")
			return d.markPublished(tx, event)
		}
	}

	if err := d.deliver(ctx, tx, event, eventID, notice); err != nil {
		return d.retry(ctx, tx, event, err, fields)
	}
	if d.idempotency != nil {
		if err := d.idempotency.MarkProcessed(ctx, dispatcherConsumer, eventID); err != nil {
			d.logg.Error(d.logg.WithFields(ctx, fields), "failed to record delivered notification", err)
		}
	}

	d.metrics.IncNotification("sent")
	d.logg.Info(d.logg.WithFields(ctx, fields), "notification dispatched")
	return d.markPublished(tx, event)
}

func (d *Dispatcher) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, eventID uuid.UUID, notice *payloads.Notice) error {
	recipients, err := d.recipients.Resolve(ctx, notice.Recipients)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		d.logg.Info(d.logg.WithFields(ctx, eventFields(event)), "notice has no current recipients")
		return nil
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, r := range recipients {
		rows = append(rows, models.Notification{
			OrganizationID: r.OrganizationID,
			UserID:         r.UserID,
			EventID:        eventID,
			Type:           notice.Type,
			Title:          notice.Title,
			Message:        notice.Message,
		})
	}
	// Savepoint keeps a failed insert from aborting the rest of the batch.
	err = tx.Transaction(func(inner *gorm.DB) error {
		_, err := d.notifications.WithTx(inner).CreateMany(ctx, rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.sender.Send(sendCtx, Message{
		EventID:    eventID,
		EventType:  event.EventType,
		Type:       notice.Type,
		Subject:    notice.Title,
		Body:       notice.Message,
		Recipients: recipients,
	})
}

func (d *Dispatcher) retry(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, err error, fields map[string]any) error {
	var permanent registry.NonRetryableError
	if errors.As(err, &permanent) {
		return d.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}
	d.metrics.IncNotification("failed")
	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= d.maxAttempts {
		return d.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max delivery attempts reached: %w", err), fields)
	}
	logCtx := d.logg.WithFields(ctx, fields)
	logCtx = d.logg.WithField(logCtx, "error", err.Error())
	d.logg.Warn(logCtx, "notification delivery failed")
	if markErr := d.outbox.MarkFailed(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return nil
}

func resolveFailureReason(err error) enums.OutboxDLQErrorReason {
	if errors.Is(err, registry.ErrUnsupportedEventType) {
		return enums.OutboxDLQReasonUnknownEvent
	}
	return enums.OutboxDLQReasonMalformedPayload
}

func (d *Dispatcher) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	d.metrics.IncNotification("dead_lettered")
	fields["error_reason"] = reason
	logCtx := d.logg.WithFields(ctx, fields)
	logCtx = d.logg.WithField(logCtx, "error", err.Error())
	d.logg.Warn(logCtx, "outbox event will not be retried")

	msg := err.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      d.now().UTC(),
	}
	if dlqErr := d.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := d.outbox.MarkTerminal(tx, event.ID, err, d.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (d *Dispatcher) markPublished(tx *gorm.DB, event models.OutboxEvent) error {
	if err := d.outbox.MarkPublished(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	return nil
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
