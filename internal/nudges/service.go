package nudges

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/giftwell-app/giftwell-backend/internal/connections"
	"github.com/giftwell-app/giftwell-backend/pkg/aitext"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/mailer"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SendInput captures one nudge to dispatch.
type SendInput struct {
	UserID         uuid.UUID
	ConnectionID   uuid.UUID
	SenderName     string
	RecipientName  string
	RecipientEmail string
	DataNeeded     []string
	Occasion       string
}

// DenialDetails explains a rate-limit denial to the caller.
type DenialDetails struct {
	Reason      string     `json:"reason"`
	RetryAfter  *time.Time `json:"retry_after,omitempty"`
	WindowCount int64      `json:"window_count,omitempty"`
}

// SendResult is the eligibility outcome of a send attempt. A rate-limit
// denial is a normal negative result, not an error: Eligible is false,
// Denial carries the reason, and nothing was sent.
type SendResult struct {
	Eligible bool           `json:"eligible"`
	Nudge    *NudgeDTO      `json:"nudge,omitempty"`
	Denial   *DenialDetails `json:"denial,omitempty"`
}

// NudgeDTO is the sent-nudge shape returned to API consumers.
type NudgeDTO struct {
	ID           uuid.UUID `json:"id"`
	ConnectionID uuid.UUID `json:"connection_id"`
	Channel      string    `json:"channel"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	DataNeeded   []string  `json:"data_needed,omitempty"`
	AIGenerated  bool      `json:"ai_generated"`
	SentAt       time.Time `json:"sent_at"`
}

// ServiceParams groups dependencies for the nudge dispatcher.
type ServiceParams struct {
	Repo            *Repository
	ConnectionsRepo *connections.Repository
	Tx              txRunner
	Outbox          outboxPublisher
	Composer        aitext.Composer
	Mailer          mailer.Mailer
	Logger          *logger.Logger
	Nudge           config.NudgeConfig
}

// Service sends data-repair nudges under a hard per-pair rate limit.
type Service interface {
	Send(ctx context.Context, input SendInput) (*SendResult, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]NudgeDTO, error)
}

type service struct {
	repo        *Repository
	connections *connections.Repository
	tx          txRunner
	outbox      outboxPublisher
	composer    aitext.Composer
	mail        mailer.Mailer
	logg        *logger.Logger
	cfg         config.NudgeConfig
}

// NewService builds a nudge dispatcher with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nudges repo is required")
	}
	if params.ConnectionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connections repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	if params.Composer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "composer is required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mailer is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:        params.Repo,
		connections: params.ConnectionsRepo,
		tx:          params.Tx,
		outbox:      params.Outbox,
		composer:    params.Composer,
		mail:        params.Mailer,
		logg:        params.Logger,
		cfg:         params.Nudge,
	}, nil
}

// Send dispatches one nudge. The rolling-window and minimum-gap checks are
// hard denies: the caller gets an ineligible result with the reason, never
// a silent drop and never a queued retry.
func (s *service) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	if input.UserID == uuid.Nil || input.ConnectionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user and connection ids are required")
	}
	if input.RecipientEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if len(input.DataNeeded) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one missing data item is required")
	}

	connected, err := s.connections.AreConnected(ctx, input.UserID, input.ConnectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to check connection")
	}
	if !connected {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "recipient is not a connection")
	}

	now := time.Now().UTC()
	denial, err := s.checkRateLimit(ctx, input, now)
	if err != nil {
		return nil, err
	}
	if denial != nil {
		s.logg.Info(ctx, "nudge denied: "+denial.Reason)
		return &SendResult{Eligible: false, Denial: denial}, nil
	}

	message, aiGenerated := s.composeMessage(ctx, input)
	subject := s.subjectFor(input)

	nudge := &models.ConnectionNudge{
		ID:           uuid.New(),
		UserID:       input.UserID,
		ConnectionID: input.ConnectionID,
		Channel:      "email",
		Subject:      subject,
		Message:      message,
		DataNeeded:   pq.StringArray(input.DataNeeded),
		AIGenerated:  aiGenerated,
		SentAt:       now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, nudge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record nudge")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNudgeSent,
			AggregateType: enums.AggregateNudge,
			AggregateID:   nudge.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Kind: "user"},
			Version:       1,
			Data: payloads.NudgeSentEvent{
				NudgeID:      nudge.ID,
				UserID:       input.UserID,
				ConnectionID: input.ConnectionID,
				Channel:      nudge.Channel,
				AIGenerated:  aiGenerated,
				SentAt:       now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.mail.Send(ctx, mailer.Message{
		ToEmail:   input.RecipientEmail,
		ToName:    input.RecipientName,
		Subject:   subject,
		PlainText: message,
	}); err != nil {
		// the nudge already counts against the window even if delivery flakes
		s.logg.Error(ctx, "failed to deliver nudge email", err)
	}

	dto := toNudgeDTO(*nudge)
	return &SendResult{Eligible: true, Nudge: &dto}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit int) ([]NudgeDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list nudges")
	}
	out := make([]NudgeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toNudgeDTO(row))
	}
	return out, nil
}

func (s *service) checkRateLimit(ctx context.Context, input SendInput, now time.Time) (*DenialDetails, error) {
	cutoff := now.Add(-s.cfg.Window)
	count, err := s.repo.CountSentSince(ctx, input.UserID, input.ConnectionID, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count recent nudges")
	}
	if count >= int64(s.cfg.MaxPerWindow) {
		return &DenialDetails{
			Reason:      fmt.Sprintf("at most %d nudges per %s per connection", s.cfg.MaxPerWindow, s.cfg.Window),
			WindowCount: count,
		}, nil
	}

	last, err := s.repo.LastSentAt(ctx, input.UserID, input.ConnectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load last nudge")
	}
	if last != nil {
		nextAllowed := last.Add(s.cfg.MinGap)
		if now.Before(nextAllowed) {
			return &DenialDetails{
				Reason:     fmt.Sprintf("wait at least %s between nudges to the same connection", s.cfg.MinGap),
				RetryAfter: &nextAllowed,
			}, nil
		}
	}
	return nil, nil
}

// composeMessage asks the AI backend first and falls back to the
// deterministic template whenever it cannot serve.
func (s *service) composeMessage(ctx context.Context, input SendInput) (string, bool) {
	message, err := s.composer.ComposeNudge(ctx, aitext.NudgePrompt{
		SenderName:    input.SenderName,
		RecipientName: input.RecipientName,
		DataNeeded:    input.DataNeeded,
		Occasion:      input.Occasion,
	})
	if err == nil && strings.TrimSpace(message) != "" {
		return strings.TrimSpace(message), true
	}
	if err != nil && err != aitext.ErrUnavailable {
		s.logg.Error(ctx, "nudge composer failed; using template", err)
	}
	return s.templateMessage(input), false
}

func (s *service) templateMessage(input SendInput) string {
	sender := input.SenderName
	if sender == "" {
		sender = "A friend"
	}
	recipient := input.RecipientName
	if recipient == "" {
		recipient = "there"
	}
	needs := strings.Join(input.DataNeeded, ", ")
	if input.Occasion != "" {
		return fmt.Sprintf(
			"Hi %s! %s is planning something for %s and needs your %s to make it happen. It only takes a minute to update your Giftwell profile.",
			recipient, sender, input.Occasion, needs,
		)
	}
	return fmt.Sprintf(
		"Hi %s! %s would love to surprise you but needs your %s first. It only takes a minute to update your Giftwell profile.",
		recipient, sender, needs,
	)
}

func (s *service) subjectFor(input SendInput) string {
	sender := input.SenderName
	if sender == "" {
		sender = "A friend"
	}
	return fmt.Sprintf("%s needs a quick favor", sender)
}

func toNudgeDTO(nudge models.ConnectionNudge) NudgeDTO {
	return NudgeDTO{
		ID:           nudge.ID,
		ConnectionID: nudge.ConnectionID,
		Channel:      nudge.Channel,
		Subject:      nudge.Subject,
		Message:      nudge.Message,
		DataNeeded:   nudge.DataNeeded,
		AIGenerated:  nudge.AIGenerated,
		SentAt:       nudge.SentAt,
	}
}
