package cron

import (
	"context"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/google/uuid"
)

const expiredRequestBatchSize = 200

type expiredRequestLister interface {
	ListExpiredUncollected(ctx context.Context, now time.Time, limit int) ([]models.AddressRequest, error)
}

type executionFailer interface {
	Fail(ctx context.Context, executionID uuid.UUID, reason string) error
}

// AddressExpiryJob fails executions whose address-collection window lapsed
// without a submission.
type AddressExpiryJob struct {
	requests     expiredRequestLister
	orchestrator executionFailer
	logg         *logger.Logger
	now          func() time.Time
}

// NewAddressExpiryJob builds the expiry sweep.
func NewAddressExpiryJob(requests expiredRequestLister, orchestrator executionFailer, logg *logger.Logger, now func() time.Time) *AddressExpiryJob {
	if now == nil {
		now = time.Now
	}
	return &AddressExpiryJob{
		requests:     requests,
		orchestrator: orchestrator,
		logg:         logg,
		now:          now,
	}
}

// Name implements Job.
func (j *AddressExpiryJob) Name() string { return "address_request_expiry" }

// Run implements Job. Failing an already-terminal execution is a no-op, so
// requests whose executions moved on are skipped harmlessly.
func (j *AddressExpiryJob) Run(ctx context.Context) error {
	expired, err := j.requests.ListExpiredUncollected(ctx, j.now().UTC(), expiredRequestBatchSize)
	if err != nil {
		return err
	}

	for _, request := range expired {
		requestCtx := j.logg.WithExecutionID(ctx, request.ExecutionID.String())
		err := j.orchestrator.Fail(ctx, request.ExecutionID, "recipient did not provide a shipping address in time")
		if err != nil {
			j.logg.Error(requestCtx, "failed to expire execution", err)
			continue
		}
		j.logg.Info(requestCtx, "expired address request; execution failed")
	}
	return nil
}
