package cron

import (
	"context"
	"time"

	"github.com/giftwell-app/giftwell-backend/internal/executions"
	"github.com/giftwell-app/giftwell-backend/internal/rules"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type activeRuleLister interface {
	ListActiveRules(ctx context.Context) ([]models.GiftRule, error)
}

type birthdayLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type eventInserter interface {
	InsertEvent(ctx context.Context, event *models.GiftEvent) (bool, error)
}

type eventProcessor interface {
	ProcessEvent(ctx context.Context, eventID uuid.UUID) (*executions.ExecutionDTO, error)
}

// OccasionScanJob walks the active rules, records upcoming occasions as
// trigger events, and kicks off their executions. The rule+date unique
// index makes repeat scans of the same occasion no-ops.
type OccasionScanJob struct {
	rules        activeRuleLister
	users        birthdayLookup
	events       eventInserter
	orchestrator eventProcessor
	logg         *logger.Logger
	leadDays     int
	now          func() time.Time
}

// OccasionScanParams configure the occasion scan job.
type OccasionScanParams struct {
	Rules        activeRuleLister
	Users        birthdayLookup
	Events       eventInserter
	Orchestrator eventProcessor
	Logger       *logger.Logger
	LeadDays     int
	Now          func() time.Time
}

// NewOccasionScanJob builds the scan job.
func NewOccasionScanJob(params OccasionScanParams) *OccasionScanJob {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	leadDays := params.LeadDays
	if leadDays <= 0 {
		leadDays = 7
	}
	return &OccasionScanJob{
		rules:        params.Rules,
		users:        params.Users,
		events:       params.Events,
		orchestrator: params.Orchestrator,
		logg:         params.Logger,
		leadDays:     leadDays,
		now:          now,
	}
}

// Name implements Job.
func (j *OccasionScanJob) Name() string { return "occasion_scan" }

// Run implements Job. Per-rule failures are collected rather than returned
// early so one bad rule cannot stall the rest of the scan.
func (j *OccasionScanJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	horizon := now.AddDate(0, 0, j.leadDays)

	active, err := j.rules.ListActiveRules(ctx)
	if err != nil {
		return err
	}

	var scanErr error
	for _, rule := range active {
		if rule.RecipientID == nil {
			continue
		}

		var birthday *time.Time
		if recipient, err := j.users.FindByID(ctx, *rule.RecipientID); err == nil {
			birthday = recipient.Birthday
		}

		occasion, ok := rules.NextOccasion(rule, birthday, now)
		if !ok || occasion.After(horizon) {
			continue
		}

		ruleCtx := j.logg.WithRuleID(ctx, rule.ID.String())
		event := &models.GiftEvent{
			ID:           uuid.New(),
			RuleID:       rule.ID,
			UserID:       rule.UserID,
			OccasionDate: occasion,
		}
		created, err := j.events.InsertEvent(ctx, event)
		if err != nil {
			j.logg.Error(ruleCtx, "failed to record occasion event", err)
			scanErr = multierr.Append(scanErr, err)
			continue
		}
		if !created {
			continue
		}

		j.logg.Info(ruleCtx, "occasion detected; starting execution")
		if _, err := j.orchestrator.ProcessEvent(ctx, event.ID); err != nil {
			j.logg.Error(ruleCtx, "failed to process occasion event", err)
			scanErr = multierr.Append(scanErr, err)
		}
	}
	return scanErr
}
