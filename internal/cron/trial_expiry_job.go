package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

type trialExpirer interface {
	ExpireTrials(ctx context.Context, now time.Time) (int, error)
}

type TrialExpiryJobParams struct {
	Logger        *logger.Logger
	Organizations trialExpirer
}

func NewTrialExpiryJob(params TrialExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Organizations == nil {
		return nil, fmt.Errorf("organization service required")
	}
	return &trialExpiryJob{
		logg: params.Logger,
		orgs: params.Organizations,
		now:  time.Now,
	}, nil
}

type trialExpiryJob struct {
	logg *logger.Logger
	orgs trialExpirer
	now  func() time.Time
}

func (j *trialExpiryJob) Name() string { return "trial-expiry" }

func (j *trialExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.orgs.ExpireTrials(ctx, now)
	if err != nil {
		return fmt.Errorf("trial expiry: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "trial expiry sweep complete")
	return nil
}
