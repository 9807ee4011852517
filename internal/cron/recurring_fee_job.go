package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/enrollment-backend/internal/recurring"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

type RecurringFeeJobParams struct {
	Logger    *logger.Logger
	Generator recurring.Generator
}

// NewRecurringFeeJob bills the current month's hostel fees for every
// organization. Re-running within the same month creates nothing new.
func NewRecurringFeeJob(params RecurringFeeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Generator == nil {
		return nil, fmt.Errorf("recurring fee generator required")
	}
	return &recurringFeeJob{
		logg:      params.Logger,
		generator: params.Generator,
		now:       time.Now,
	}, nil
}

type recurringFeeJob struct {
	logg      *logger.Logger
	generator recurring.Generator
	now       func() time.Time
}

func (j *recurringFeeJob) Name() string { return "recurring-fees" }

func (j *recurringFeeJob) Run(ctx context.Context) error {
	period := recurring.CurrentPeriod(j.now)
	summary, err := j.generator.GenerateRecurringFees(ctx, auth.SchedulerPrincipal(), period)
	if err != nil {
		return fmt.Errorf("recurring fees %s: %w", period, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period":        summary.Period,
		"created":       summary.Created,
		"skipped":       summary.Skipped,
		"failed":        summary.Failed,
		"organizations": len(summary.Organizations),
	})
	if summary.Errors != nil {
		return fmt.Errorf("recurring fees %s: %d sources failed: %w", period, summary.Failed, summary.Errors)
	}
	j.logg.Info(logCtx, "recurring fees job complete")
	return nil
}
