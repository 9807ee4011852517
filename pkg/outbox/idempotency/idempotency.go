package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/redis"
)

// DefaultTTL applies when no TTL is configured; redis treats zero as "never expire".
const DefaultTTL = 7 * 24 * time.Hour

// Manager remembers which events a consumer already delivered, so a row
// re-read after a crash between delivery and MarkPublished is not sent twice.
// Keys follow `enr:idempotency:evt:processed:<consumer>:<event_id>` and hold
// the time the delivery finished.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// IsProcessed reports whether consumer already delivered eventID.
func (m *Manager) IsProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	_, err = m.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check processed event")
	}
	return true, nil
}

// MarkProcessed records a finished delivery. Call it only after the consumer's
// side effect succeeded; an earlier marker would hide an event lost in a crash.
func (m *Manager) MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	if _, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark processed event")
	}
	return nil
}

func (m *Manager) processedKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:processed:%s", consumer), eventID.String()), nil
}
