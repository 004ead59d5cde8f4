package executions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giftwell-app/giftwell-backend/internal/addressing"
	"github.com/giftwell-app/giftwell-backend/internal/notifications"
	"github.com/giftwell-app/giftwell-backend/internal/orders"
	"github.com/giftwell-app/giftwell-backend/internal/selection"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/payloads"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orchestratorConsumer names this pipeline in the redis processed-event
// fast path. The database guards stay authoritative.
const orchestratorConsumer = "gift-orchestrator"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ruleStore interface {
	FindRuleByID(ctx context.Context, id uuid.UUID) (*models.GiftRule, error)
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.GiftSettings, error)
	AddSpend(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type giftSelector interface {
	SelectGift(ctx context.Context, input selection.Input) (types.SelectedProducts, error)
}

type orderMaterializer interface {
	Materialize(ctx context.Context, input orders.MaterializeInput) (*models.GiftOrder, error)
}

type addressRequester interface {
	IssueRequest(ctx context.Context, tx *gorm.DB, input addressing.IssueInput) (*models.AddressRequest, error)
	FindCollectedAddress(ctx context.Context, executionID uuid.UUID) (*types.Address, error)
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) error
}

type processedMarker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
}

// ServiceParams groups dependencies for the execution orchestrator.
type ServiceParams struct {
	Repo          *Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Rules         ruleStore
	Users         userStore
	Selector      giftSelector
	Orders        orderMaterializer
	Addressing    addressRequester
	Notifications notifier
	Idempotency   processedMarker
	Logger        *logger.Logger
	Gifting       config.GiftingConfig
}

// Service drives the auto-gift execution state machine from trigger event
// to completed order.
type Service interface {
	ProcessEvent(ctx context.Context, eventID uuid.UUID) (*ExecutionDTO, error)
	Approve(ctx context.Context, executionID, actorUserID uuid.UUID, keepProducts []uuid.UUID) (*ExecutionDTO, error)
	Decline(ctx context.Context, executionID, actorUserID uuid.UUID) (*ExecutionDTO, error)
	ResumeWithAddress(ctx context.Context, executionID uuid.UUID, address types.Address) error
	Fail(ctx context.Context, executionID uuid.UUID, reason string) error
	GetExecution(ctx context.Context, userID, executionID uuid.UUID) (*ExecutionDTO, error)
	ListExecutions(ctx context.Context, userID uuid.UUID, cursor string, limit int) (ExecutionPage, error)
}

type service struct {
	repo        *Repository
	tx          txRunner
	outbox      outboxPublisher
	rules       ruleStore
	users       userStore
	selector    giftSelector
	orders      orderMaterializer
	addressing  addressRequester
	notifier    notifier
	idempotency processedMarker
	logg        *logger.Logger
	gifting     config.GiftingConfig
}

// NewService builds the orchestrator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "executions repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	if params.Rules == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule store is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user store is required")
	}
	if params.Selector == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift selector is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order materializer is required")
	}
	if params.Addressing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address requester is required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifier is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		outbox:      params.Outbox,
		rules:       params.Rules,
		users:       params.Users,
		selector:    params.Selector,
		orders:      params.Orders,
		addressing:  params.Addressing,
		notifier:    params.Notifications,
		idempotency: params.Idempotency,
		logg:        params.Logger,
		gifting:     params.Gifting,
	}, nil
}

// ProcessEvent consumes one trigger event and runs the pipeline as far as
// it can go without human input. Re-processing a consumed event returns
// the existing execution unchanged.
func (s *service) ProcessEvent(ctx context.Context, eventID uuid.UUID) (*ExecutionDTO, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	ctx = s.logg.WithField(ctx, "event_id", eventID.String())

	if s.idempotency != nil {
		seen, err := s.idempotency.CheckAndMarkProcessed(ctx, orchestratorConsumer, eventID)
		if err != nil {
			s.logg.Warn(ctx, "idempotency fast path unavailable; relying on database guard")
		} else if seen {
			if existing, err := s.repo.FindByEventID(ctx, eventID); err == nil {
				dto := toExecutionDTO(*existing)
				return &dto, nil
			}
		}
	}

	event, err := s.repo.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "gift event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load gift event")
	}
	if event.ConsumedAt != nil {
		return s.existingExecution(ctx, eventID)
	}

	rule, err := s.rules.FindRuleByID(ctx, event.RuleID)
	ruleMissing := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !ruleMissing {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rule")
	}
	if !ruleMissing {
		if !rule.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rule is no longer active")
		}
		if rule.RecipientID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rule recipient has not joined yet")
		}
	}

	execution := &models.GiftExecution{
		ID:      uuid.New(),
		UserID:  event.UserID,
		RuleID:  event.RuleID,
		EventID: event.ID,
		Status:  enums.ExecutionStatusProcessing,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.ConsumeEvent(ctx, tx, event.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "event already consumed")
		}
		if _, err := s.repo.CreateExecution(ctx, tx, execution); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExecutionStarted,
			AggregateType: enums.AggregateExecution,
			AggregateID:   execution.ID,
			Actor:         &outbox.ActorRef{UserID: event.UserID, Kind: "system"},
			Version:       1,
			Data: payloads.ExecutionStartedEvent{
				ExecutionID: execution.ID,
				RuleID:      event.RuleID,
				EventID:     event.ID,
				UserID:      event.UserID,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "gift_executions_event_id_key") {
			return s.existingExecution(ctx, eventID)
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			return s.existingExecution(ctx, eventID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to start execution")
	}

	ctx = s.logg.WithExecutionID(ctx, execution.ID.String())
	s.logg.Info(ctx, "execution started")
	if ruleMissing {
		// configuration error, not transient: the event stays consumed and
		// the failed execution carries the story
		return s.failAndReturn(ctx, execution.ID, "Auto-gifting rule not found")
	}
	return s.runPipeline(ctx, execution, rule)
}

// runPipeline advances a fresh execution: select the gift, then either pause
// at the approval gate or complete under auto-approval. Pipeline failures
// land in the failed state rather than erroring back to the trigger.
func (s *service) runPipeline(ctx context.Context, execution *models.GiftExecution, rule *models.GiftRule) (*ExecutionDTO, error) {
	budgetCents := int(rule.BudgetLimit.Mul(decimal.NewFromInt(100)).IntPart())
	selected, err := s.selector.SelectGift(ctx, selection.Input{
		RecipientID:     *rule.RecipientID,
		BudgetCents:     budgetCents,
		CategoryFilters: rule.CategoryFilters,
	})
	if err != nil || len(selected) == 0 {
		if err != nil {
			s.logg.Error(ctx, "gift selection failed", err)
		}
		return s.failAndReturn(ctx, execution.ID, "No suitable gifts found")
	}

	recipient, err := s.users.FindByID(ctx, *rule.RecipientID)
	if err != nil {
		return s.failAndReturn(ctx, execution.ID, "recipient account could not be loaded")
	}

	settings, err := s.rules.GetSettings(ctx, execution.UserID)
	autoApprove := false
	if err == nil {
		autoApprove = settings.AutoApproveGifts
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load settings")
	}

	extra := map[string]any{
		"selected_products": selected,
		"total_cents":       selected.TotalCents(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.TransitionStatus(ctx, tx, execution.ID, enums.ExecutionStatusProcessing, enums.ExecutionStatusPendingApproval, extra)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "execution advanced concurrently")
		}
		if err := s.emitStateChange(ctx, tx, execution.ID, execution.RuleID, enums.ExecutionStatusProcessing, enums.ExecutionStatusPendingApproval); err != nil {
			return err
		}
		if !autoApprove {
			return s.notifier.Notify(ctx, tx, notifications.NotifyInput{
				UserID:  execution.UserID,
				Type:    enums.NotificationTypeApprovalNeeded,
				Title:   "A gift is ready for approval",
				Message: fmt.Sprintf("Your automated gift for %s is picked out and waiting on you.", recipient.FirstName),
			})
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to advance execution")
	}

	if autoApprove && selected.TotalCents() <= budgetCents {
		return s.approveInternal(ctx, execution.ID, nil, nil)
	}
	return s.existingExecutionByID(ctx, execution.ID)
}

// Approve moves a pending execution through the gate. Terminal executions
// return unchanged with no side effects. A non-empty keepProducts narrows the
// stored snapshot to that subset before the order is placed.
func (s *service) Approve(ctx context.Context, executionID, actorUserID uuid.UUID, keepProducts []uuid.UUID) (*ExecutionDTO, error) {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if actorUserID != uuid.Nil && execution.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "execution belongs to another user")
	}
	return s.approveInternal(ctx, executionID, nil, keepProducts)
}

// Decline rejects a pending gift. The execution lands in failed with the
// decline recorded as the reason; terminal executions return unchanged.
func (s *service) Decline(ctx context.Context, executionID, actorUserID uuid.UUID) (*ExecutionDTO, error) {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if actorUserID != uuid.Nil && execution.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "execution belongs to another user")
	}
	return s.failAndReturn(ctx, executionID, "declined by sender")
}

// ResumeWithAddress is the synchronous re-entry point invoked when a
// recipient submits their address through the capability link. Only an
// already-approved execution resumes toward the order: the address never
// substitutes for the sender's approval.
func (s *service) ResumeWithAddress(ctx context.Context, executionID uuid.UUID, address types.Address) error {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return err
	}
	if execution.Status.IsTerminal() {
		return nil
	}

	received := enums.AddressCollectionReceived
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).
			Model(&models.GiftExecution{}).
			Where("id = ? AND status NOT IN ?", executionID, []enums.ExecutionStatus{
				enums.ExecutionStatusCompleted,
				enums.ExecutionStatusFailed,
			}).
			Update("address_collection_status", received).
			Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record collected address")
	}

	if execution.Status != enums.ExecutionStatusApproved {
		s.logg.Info(s.logg.WithExecutionID(ctx, executionID.String()), "address collected; execution still awaits approval")
		return nil
	}
	_, err = s.approveInternal(ctx, executionID, &address, nil)
	return err
}

// Fail moves any non-terminal execution to failed and records the reason
// verbatim on the execution and the owner's notification.
func (s *service) Fail(ctx context.Context, executionID uuid.UUID, reason string) error {
	_, err := s.failAndReturn(ctx, executionID, reason)
	return err
}

// GetExecution returns an execution the user owns.
func (s *service) GetExecution(ctx context.Context, userID, executionID uuid.UUID) (*ExecutionDTO, error) {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if execution.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "execution belongs to another user")
	}
	dto := toExecutionDTO(*execution)
	return &dto, nil
}

// ListExecutions returns the user's executions, newest first.
func (s *service) ListExecutions(ctx context.Context, userID uuid.UUID, cursor string, limit int) (ExecutionPage, error) {
	if userID == uuid.Nil {
		return ExecutionPage{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	page, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return ExecutionPage{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list executions")
	}
	return page, nil
}

// approveInternal finishes the gate: approved first, then the order. An
// approved execution missing its shipping address parks and asks the
// recipient instead of failing. collectedAddress overrides the recipient's
// profile address when the capability flow supplied one.
func (s *service) approveInternal(ctx context.Context, executionID uuid.UUID, collectedAddress *types.Address, keepProducts []uuid.UUID) (*ExecutionDTO, error) {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithExecutionID(ctx, executionID.String())

	if execution.Status.IsTerminal() {
		dto := toExecutionDTO(*execution)
		return &dto, nil
	}
	if execution.Status == enums.ExecutionStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "execution is still selecting a gift")
	}
	if len(keepProducts) > 0 && execution.Status != enums.ExecutionStatusPendingApproval {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "selection can no longer be changed")
	}

	if execution.Status == enums.ExecutionStatusPendingApproval {
		var narrowed types.SelectedProducts
		if len(keepProducts) > 0 {
			narrowed, err = narrowSelection(execution.SelectedProducts, keepProducts)
			if err != nil {
				return nil, err
			}
		}
		var extra map[string]any
		if narrowed != nil {
			extra = map[string]any{
				"selected_products": narrowed,
				"total_cents":       narrowed.TotalCents(),
			}
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			affected, err := s.repo.TransitionStatus(ctx, tx, executionID, enums.ExecutionStatusPendingApproval, enums.ExecutionStatusApproved, extra)
			if err != nil {
				return err
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "execution advanced concurrently")
			}
			return s.emitStateChange(ctx, tx, executionID, execution.RuleID, enums.ExecutionStatusPendingApproval, enums.ExecutionStatusApproved)
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				// someone else approved or failed it; report the row as-is
				return s.existingExecutionByID(ctx, executionID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to approve execution")
		}
		s.logg.Info(ctx, "execution approved")
		execution.Status = enums.ExecutionStatusApproved
		if narrowed != nil {
			execution.SelectedProducts = narrowed
			execution.TotalCents = narrowed.TotalCents()
		}
	}

	shippingAddress, err := s.resolveShippingAddress(ctx, execution, collectedAddress)
	if err != nil {
		return nil, err
	}
	if shippingAddress == nil {
		return s.parkForAddress(ctx, execution)
	}
	return s.materialize(ctx, execution, *shippingAddress)
}

// parkForAddress keeps an approved execution waiting on the recipient: the
// capability token goes out once, later approval retries just report the
// parked row.
func (s *service) parkForAddress(ctx context.Context, execution *models.GiftExecution) (*ExecutionDTO, error) {
	if execution.AddressCollectionStatus != nil && *execution.AddressCollectionStatus == enums.AddressCollectionRequested {
		return s.existingExecutionByID(ctx, execution.ID)
	}

	rule, err := s.rules.FindRuleByID(ctx, execution.RuleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rule")
	}
	recipient, err := s.users.FindByID(ctx, *rule.RecipientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load recipient")
	}
	senderName := ""
	if sender, err := s.users.FindByID(ctx, execution.UserID); err == nil {
		senderName = sender.FirstName
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Model(&models.GiftExecution{}).
			Where("id = ? AND status = ? AND address_collection_status IS NULL", execution.ID, enums.ExecutionStatusApproved).
			Update("address_collection_status", enums.AddressCollectionRequested)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// a concurrent caller already parked or advanced it
			return nil
		}
		if _, err := s.addressing.IssueRequest(ctx, tx, addressing.IssueInput{
			ExecutionID:    execution.ID,
			RequestedBy:    execution.UserID,
			SenderName:     senderName,
			RecipientEmail: recipient.Email,
		}); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  execution.UserID,
			Type:    enums.NotificationTypeAddressRequested,
			Title:   "Waiting on a shipping address",
			Message: fmt.Sprintf("We asked %s for a shipping address before sending their gift.", recipient.FirstName),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to request recipient address")
	}

	s.logg.Info(ctx, "execution parked awaiting recipient address")
	return s.existingExecutionByID(ctx, execution.ID)
}

// materialize places the order and closes out the execution.
func (s *service) materialize(ctx context.Context, execution *models.GiftExecution, shippingAddress types.Address) (*ExecutionDTO, error) {
	rule, err := s.rules.FindRuleByID(ctx, execution.RuleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rule")
	}

	order, err := s.orders.Materialize(ctx, orders.MaterializeInput{
		ExecutionID:     execution.ID,
		UserID:          execution.UserID,
		RecipientID:     *rule.RecipientID,
		Items:           execution.SelectedProducts,
		ShippingAddress: shippingAddress,
	})
	if err != nil {
		reason := "order placement failed"
		if typed := pkgerrors.As(err); typed != nil {
			reason = fmt.Sprintf("order placement failed: %s", typed.Message())
		}
		return s.failAndReturn(ctx, execution.ID, reason)
	}

	spend := decimal.NewFromInt(int64(order.TotalCents)).Div(decimal.NewFromInt(100))
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.TransitionStatus(ctx, tx, execution.ID, enums.ExecutionStatusApproved, enums.ExecutionStatusCompleted, map[string]any{
			"order_id": order.ID,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			// a concurrent materialization already closed it out
			return nil
		}
		if err := s.rules.AddSpend(ctx, tx, execution.UserID, spend); err != nil {
			return err
		}
		if err := s.emitStateChange(ctx, tx, execution.ID, execution.RuleID, enums.ExecutionStatusApproved, enums.ExecutionStatusCompleted); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExecutionCompleted,
			AggregateType: enums.AggregateExecution,
			AggregateID:   execution.ID,
			Version:       1,
			Data: payloads.ExecutionCompletedEvent{
				ExecutionID: execution.ID,
				RuleID:      execution.RuleID,
				UserID:      execution.UserID,
				OrderID:     order.ID,
				TotalCents:  order.TotalCents,
			},
		}); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  execution.UserID,
			Type:    enums.NotificationTypeGiftCompleted,
			Title:   "Your gift is on its way",
			Message: fmt.Sprintf("We placed your automated gift order for $%s.", spend.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to complete execution")
	}

	s.logg.Info(ctx, "execution completed")
	return s.existingExecutionByID(ctx, execution.ID)
}

// failAndReturn is the shared failure edge: any non-terminal state may land
// here, terminal states are left untouched.
func (s *service) failAndReturn(ctx context.Context, executionID uuid.UUID, reason string) (*ExecutionDTO, error) {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if execution.Status.IsTerminal() {
		dto := toExecutionDTO(*execution)
		return &dto, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.MarkFailed(ctx, tx, executionID, reason)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExecutionFailed,
			AggregateType: enums.AggregateExecution,
			AggregateID:   executionID,
			Version:       1,
			Data: payloads.ExecutionFailedEvent{
				ExecutionID: executionID,
				RuleID:      execution.RuleID,
				UserID:      execution.UserID,
				Reason:      reason,
			},
		}); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  execution.UserID,
			Type:    enums.NotificationTypeGiftFailed,
			Title:   "An automated gift could not be sent",
			Message: reason,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record execution failure")
	}

	s.logg.Warn(s.logg.WithExecutionID(ctx, executionID.String()), "execution failed: "+reason)
	return s.existingExecutionByID(ctx, executionID)
}

// resolveShippingAddress finds where the gift ships: the freshly collected
// address, a previously collected one, or the recipient's profile. A nil
// address with nil error means nobody knows yet and the caller must park.
func (s *service) resolveShippingAddress(ctx context.Context, execution *models.GiftExecution, collected *types.Address) (*types.Address, error) {
	if collected != nil {
		normalized := collected.Normalized()
		return &normalized, nil
	}
	if execution.AddressCollectionStatus != nil && *execution.AddressCollectionStatus == enums.AddressCollectionReceived {
		address, err := s.addressing.FindCollectedAddress(ctx, execution.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load collected address")
		}
		if address != nil {
			normalized := address.Normalized()
			return &normalized, nil
		}
	}

	rule, err := s.rules.FindRuleByID(ctx, execution.RuleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load rule")
	}
	recipient, err := s.users.FindByID(ctx, *rule.RecipientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load recipient")
	}
	if recipient.ShippingAddress == nil || !recipient.ShippingAddress.IsComplete() {
		return nil, nil
	}
	normalized := recipient.ShippingAddress.Normalized()
	return &normalized, nil
}

func (s *service) emitStateChange(ctx context.Context, tx *gorm.DB, executionID, ruleID uuid.UUID, from, to enums.ExecutionStatus) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventExecutionStateChanged,
		AggregateType: enums.AggregateExecution,
		AggregateID:   executionID,
		Version:       1,
		Data: payloads.ExecutionStateChangedEvent{
			ExecutionID: executionID,
			RuleID:      ruleID,
			FromStatus:  from,
			ToStatus:    to,
		},
	})
}

func (s *service) loadExecution(ctx context.Context, executionID uuid.UUID) (*models.GiftExecution, error) {
	if executionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "execution id is required")
	}
	execution, err := s.repo.FindByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "execution not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load execution")
	}
	return execution, nil
}

func (s *service) existingExecution(ctx context.Context, eventID uuid.UUID) (*ExecutionDTO, error) {
	execution, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "event already consumed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load execution")
	}
	dto := toExecutionDTO(*execution)
	return &dto, nil
}

func (s *service) existingExecutionByID(ctx context.Context, executionID uuid.UUID) (*ExecutionDTO, error) {
	execution, err := s.loadExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	dto := toExecutionDTO(*execution)
	return &dto, nil
}

// narrowSelection keeps the subset of the stored snapshot named by keep.
// Every requested id must exist in the snapshot and at least one item must
// survive.
func narrowSelection(snapshot types.SelectedProducts, keep []uuid.UUID) (types.SelectedProducts, error) {
	wanted := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}
	narrowed := make(types.SelectedProducts, 0, len(keep))
	for _, stub := range snapshot {
		if wanted[stub.ProductID] {
			narrowed = append(narrowed, stub)
			delete(wanted, stub.ProductID)
		}
	}
	if len(wanted) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected products must come from the recommended set")
	}
	if len(narrowed) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one selected product is required")
	}
	return narrowed, nil
}
