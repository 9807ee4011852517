package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

const (
	defaultRetention = 30 * 24 * time.Hour
	// minRetention keeps a misconfigured window from wiping the last day.
	minRetention = 24 * time.Hour
)

func retentionWindow(configured time.Duration) time.Duration {
	switch {
	case configured <= 0:
		return defaultRetention
	case configured < minRetention:
		return minRetention
	default:
		return configured
	}
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository readNotificationPurger
	Retention  time.Duration
}

type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob purges in-app notifications that were read
// before the retention window. Unread rows stay until someone reads them.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Repository == nil:
		return nil, fmt.Errorf("notifications repository required")
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		purger:    params.Repository,
		retention: retentionWindow(params.Retention),
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	purger    readNotificationPurger
	retention time.Duration
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	purged, err := j.purger.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge notifications read before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": purged,
	}), "read notifications purged")
	return nil
}
