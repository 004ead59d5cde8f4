package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/giftwell-app/giftwell-backend/pkg/db"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/payloads"
	"github.com/giftwell-app/giftwell-backend/pkg/square"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentCreator interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	LocationID() string
}

// MaterializeInput carries everything an approved execution knows when it
// becomes an order.
type MaterializeInput struct {
	ExecutionID     uuid.UUID
	UserID          uuid.UUID
	RecipientID     uuid.UUID
	Items           types.SelectedProducts
	ShippingAddress types.Address
	SourceID        string
	CustomerID      string
}

// OrderPageDTO carries a page of gift orders with a continuation cursor.
type OrderPageDTO struct {
	Items      []models.GiftOrder `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Payments paymentCreator
	Logger   *logger.Logger
}

// Service materializes approved executions into orders and serves order
// history.
type Service interface {
	Materialize(ctx context.Context, input MaterializeInput) (*models.GiftOrder, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.GiftOrder, error)
	ListOrders(ctx context.Context, userID uuid.UUID, cursor string, limit int) (OrderPageDTO, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	outbox   outboxPublisher
	payments paymentCreator
	logg     *logger.Logger
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment client is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		payments: params.Payments,
		logg:     params.Logger,
	}, nil
}

// PaymentIdempotencyKey is the deterministic key sent to the payment
// collaborator for an execution, so a retried materialization can never
// charge twice.
func PaymentIdempotencyKey(executionID uuid.UUID) string {
	return fmt.Sprintf("gift-%s", executionID)
}

// Materialize turns one approved execution into exactly one order. A second
// call for the same execution returns the first order unchanged: the charge
// is deduplicated remotely by the idempotency key and locally by the unique
// execution_id index.
func (s *service) Materialize(ctx context.Context, input MaterializeInput) (*models.GiftOrder, error) {
	if input.ExecutionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "execution id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if !input.ShippingAddress.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}

	existing, err := s.repo.FindByExecutionID(ctx, input.ExecutionID)
	if err == nil {
		s.logg.Info(s.logg.WithExecutionID(ctx, input.ExecutionID.String()), "order already materialized")
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to check existing order")
	}

	totalCents := input.Items.TotalCents()
	payment, err := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    int64(totalCents),
		Currency:       "USD",
		LocationID:     s.payments.LocationID(),
		CustomerID:     input.CustomerID,
		SourceID:       input.SourceID,
		IdempotencyKey: PaymentIdempotencyKey(input.ExecutionID),
		Note:           "giftwell automated gift",
		ReferenceID:    input.ExecutionID.String(),
	})
	if err != nil {
		return nil, err
	}
	paymentRef := payment.GetID()

	executionID := input.ExecutionID
	order := &models.GiftOrder{
		ID:              uuid.New(),
		UserID:          input.UserID,
		RecipientID:     input.RecipientID,
		ExecutionID:     &executionID,
		Status:          enums.OrderStatusSubmitted,
		IsGift:          true,
		Items:           input.Items,
		TotalCents:      totalCents,
		ShippingAddress: input.ShippingAddress.Normalized(),
		PaymentRef:      paymentRef,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGiftOrderCreated,
			AggregateType: enums.AggregateGiftOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Kind: "system"},
			Version:       1,
			Data: payloads.GiftOrderCreatedEvent{
				OrderID:     order.ID,
				ExecutionID: input.ExecutionID,
				UserID:      input.UserID,
				RecipientID: input.RecipientID,
				TotalCents:  totalCents,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "gift_orders_execution_id_key") {
			// lost the race; the winner's order is the order
			winner, findErr := s.repo.FindByExecutionID(ctx, input.ExecutionID)
			if findErr == nil {
				return winner, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to persist order")
	}

	s.logg.Info(s.logg.WithExecutionID(ctx, input.ExecutionID.String()), "gift order materialized")
	return order, nil
}

// GetOrder returns an order the user owns.
func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.GiftOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

// ListOrders returns the user's order history, newest first.
func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, cursor string, limit int) (OrderPageDTO, error) {
	if userID == uuid.Nil {
		return OrderPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	page, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return OrderPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list orders")
	}
	return page, nil
}
