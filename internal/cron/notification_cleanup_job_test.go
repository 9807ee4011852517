package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNotificationCleanupJobDeletesReadNotifications(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{deletedRows: 42}
	job := newNotificationCleanupJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-defaultRetention)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestNotificationCleanupJobPropagatesError(t *testing.T) {
	job := newNotificationCleanupJob(t, &fakeNotificationRepo{err: errors.New("boom")})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetentionWindowBounds(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		0:                   defaultRetention,
		-time.Hour:          defaultRetention,
		time.Hour:           minRetention,
		90 * 24 * time.Hour: 90 * 24 * time.Hour,
	}
	for in, want := range cases {
		if got := retentionWindow(in); got != want {
			t.Fatalf("retentionWindow(%s) = %s, want %s", in, got, want)
		}
	}
}

func newNotificationCleanupJob(t *testing.T, repo *fakeNotificationRepo) *notificationCleanupJob {
	t.Helper()
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	return jobIface.(*notificationCleanupJob)
}

type fakeNotificationRepo struct {
	lastCutoff  time.Time
	called      int
	deletedRows int64
	err         error
}

func (f *fakeNotificationRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deletedRows, nil
}
