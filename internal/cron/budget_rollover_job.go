package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

type spendResetter interface {
	ResetMonthlySpend(ctx context.Context) (int64, error)
	ResetYearlySpend(ctx context.Context) (int64, error)
}

// BudgetRolloverJob zeroes the spend counters on month and year boundaries.
// The reset statements only touch non-zero rows, so running more than once
// on the first of the month changes nothing.
type BudgetRolloverJob struct {
	settings spendResetter
	logg     *logger.Logger
	now      func() time.Time
}

// NewBudgetRolloverJob builds the rollover job.
func NewBudgetRolloverJob(settings spendResetter, logg *logger.Logger, now func() time.Time) *BudgetRolloverJob {
	if now == nil {
		now = time.Now
	}
	return &BudgetRolloverJob{settings: settings, logg: logg, now: now}
}

// Name implements Job.
func (j *BudgetRolloverJob) Name() string { return "budget_rollover" }

// Run implements Job.
func (j *BudgetRolloverJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	if now.Day() != 1 {
		return nil
	}

	monthly, err := j.settings.ResetMonthlySpend(ctx)
	if err != nil {
		return fmt.Errorf("reset monthly spend: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows", monthly), "monthly spend counters reset")

	if now.Month() == time.January {
		yearly, err := j.settings.ResetYearlySpend(ctx)
		if err != nil {
			return fmt.Errorf("reset yearly spend: %w", err)
		}
		j.logg.Info(j.logg.WithField(ctx, "rows", yearly), "yearly spend counters reset")
	}
	return nil
}
