package addressing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/mailer"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/payloads"
	"github.com/giftwell-app/giftwell-backend/pkg/security"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tokenByteLength = 32

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Approver resumes a paused execution once its recipient address arrives.
// The call is synchronous: the recipient's submit response reflects the
// re-approval outcome.
type Approver interface {
	ResumeWithAddress(ctx context.Context, executionID uuid.UUID, address types.Address) error
}

// IssueInput captures one capability link to mint.
type IssueInput struct {
	ExecutionID    uuid.UUID
	RequestedBy    uuid.UUID
	SenderName     string
	RecipientEmail string
}

// FormDTO is what the public collect page needs to render. A link that was
// already redeemed still resolves, with Collected set, so the page can show
// a friendly used-link message instead of an error.
type FormDTO struct {
	Token          string    `json:"token"`
	RecipientEmail string    `json:"recipient_email"`
	ExpiresAt      time.Time `json:"expires_at"`
	Collected      bool      `json:"collected"`
	Message        string    `json:"message,omitempty"`
}

// SubmitResult reports how a redeem attempt landed. Replaying an
// already-collected token is a no-op success, not an error.
type SubmitResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	SubmitStatusCollected        = "collected"
	SubmitStatusAlreadyCollected = "already_collected"
)

const usedLinkMessage = "this link has already been used"

// ServiceParams groups dependencies for the addressing service.
type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Mailer   mailer.Mailer
	Logger   *logger.Logger
	App      config.AppConfig
	Gifting  config.GiftingConfig
	Approver Approver
}

// Service mints and redeems the single-use address-collection tokens.
type Service interface {
	IssueRequest(ctx context.Context, tx *gorm.DB, input IssueInput) (*models.AddressRequest, error)
	GetForm(ctx context.Context, token string) (*FormDTO, error)
	Submit(ctx context.Context, token string, address types.Address) (*SubmitResult, error)
	FindCollectedAddress(ctx context.Context, executionID uuid.UUID) (*types.Address, error)
	SetApprover(approver Approver)
}

type service struct {
	repo     *Repository
	tx       txRunner
	outbox   outboxPublisher
	mail     mailer.Mailer
	logg     *logger.Logger
	app      config.AppConfig
	gifting  config.GiftingConfig
	approver Approver
}

// NewService builds an addressing service. The approver may be wired after
// construction to break the executions/addressing cycle.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "addressing repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mailer is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		mail:     params.Mailer,
		logg:     params.Logger,
		app:      params.App,
		gifting:  params.Gifting,
		approver: params.Approver,
	}, nil
}

func (s *service) SetApprover(approver Approver) {
	s.approver = approver
}

// FindCollectedAddress returns the address from the execution's most recent
// request, or nil when nothing has been collected yet.
func (s *service) FindCollectedAddress(ctx context.Context, executionID uuid.UUID) (*types.Address, error) {
	request, err := s.repo.FindLatestByExecution(ctx, executionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load address request")
	}
	if request.CollectedAt == nil || request.ShippingAddress == nil {
		return nil, nil
	}
	return request.ShippingAddress, nil
}

// IssueRequest mints a token inside the caller's transaction and emails the
// capability link to the recipient.
func (s *service) IssueRequest(ctx context.Context, tx *gorm.DB, input IssueInput) (*models.AddressRequest, error) {
	if input.ExecutionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "execution id is required")
	}
	if input.RecipientEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}

	token, err := security.GenerateOpaqueToken(tokenByteLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint token")
	}

	request := &models.AddressRequest{
		ID:             uuid.New(),
		Token:          token,
		ExecutionID:    input.ExecutionID,
		RequestedBy:    input.RequestedBy,
		RecipientEmail: input.RecipientEmail,
		ExpiresAt:      time.Now().UTC().Add(s.gifting.AddressTokenTTL),
	}
	if _, err := s.repo.Create(ctx, tx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create address request")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAddressRequestIssued,
		AggregateType: enums.AggregateExecution,
		AggregateID:   input.ExecutionID,
		Actor:         &outbox.ActorRef{UserID: input.RequestedBy, Kind: "system"},
		Version:       1,
		Data: payloads.AddressRequestIssuedEvent{
			RequestID:      request.ID,
			ExecutionID:    input.ExecutionID,
			RecipientEmail: input.RecipientEmail,
			ExpiresAt:      request.ExpiresAt,
		},
	})
	if err != nil {
		return nil, err
	}

	s.sendCollectionEmail(ctx, input, token, request.ExpiresAt)
	return request, nil
}

// GetForm validates a token for rendering without consuming it.
func (s *service) GetForm(ctx context.Context, token string) (*FormDTO, error) {
	request, err := s.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if request.CollectedAt != nil {
		return &FormDTO{
			Token:          request.Token,
			RecipientEmail: request.RecipientEmail,
			ExpiresAt:      request.ExpiresAt,
			Collected:      true,
			Message:        usedLinkMessage,
		}, nil
	}
	if !request.ExpiresAt.After(time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "this link has expired")
	}
	return &FormDTO{
		Token:          request.Token,
		RecipientEmail: request.RecipientEmail,
		ExpiresAt:      request.ExpiresAt,
	}, nil
}

// Submit redeems the token exactly once, stores the address, and resumes
// the paused execution before returning. A replay of an already-redeemed
// token comes back as an already_collected result instead of an error.
func (s *service) Submit(ctx context.Context, token string, address types.Address) (*SubmitResult, error) {
	normalized := address.Normalized()
	if !normalized.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	request, err := s.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if request.CollectedAt != nil {
		return &SubmitResult{Status: SubmitStatusAlreadyCollected, Message: usedLinkMessage}, nil
	}

	now := time.Now().UTC()
	replayed := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.Collect(ctx, tx, token, normalized, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store address")
		}
		if affected == 0 {
			// guard predicate lost: replay or expiry
			current, loadErr := s.repo.FindByToken(ctx, token)
			if loadErr == nil && current.CollectedAt != nil {
				replayed = true
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeNotFound, "this link has expired")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAddressCollected,
			AggregateType: enums.AggregateExecution,
			AggregateID:   request.ExecutionID,
			Version:       1,
			Data: payloads.AddressCollectedEvent{
				RequestID:   request.ID,
				ExecutionID: request.ExecutionID,
				CollectedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		return &SubmitResult{Status: SubmitStatusAlreadyCollected, Message: usedLinkMessage}, nil
	}

	if s.approver == nil {
		s.logg.Warn(s.logg.WithExecutionID(ctx, request.ExecutionID.String()), "no approver wired; execution stays paused")
		return &SubmitResult{Status: SubmitStatusCollected}, nil
	}
	if err := s.approver.ResumeWithAddress(ctx, request.ExecutionID, normalized); err != nil {
		return nil, err
	}
	return &SubmitResult{Status: SubmitStatusCollected}, nil
}

func (s *service) loadByToken(ctx context.Context, token string) (*models.AddressRequest, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	request, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown address request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load address request")
	}
	return request, nil
}

func (s *service) sendCollectionEmail(ctx context.Context, input IssueInput, token string, expiresAt time.Time) {
	link := fmt.Sprintf("%s/collect-address?token=%s", s.app.BaseURL, token)
	sender := input.SenderName
	if sender == "" {
		sender = "A friend"
	}
	message := mailer.Message{
		ToEmail: input.RecipientEmail,
		Subject: fmt.Sprintf("%s wants to send you a gift", sender),
		PlainText: fmt.Sprintf(
			"%s picked out a gift for you on Giftwell. Share your shipping address so we can deliver it: %s\n\nThis link expires %s.",
			sender, link, expiresAt.Format(time.RFC1123),
		),
	}
	if err := s.mail.Send(ctx, message); err != nil {
		// delivery problems must not roll back the execution
		s.logg.Error(ctx, "failed to send address collection email", err)
	}
}
