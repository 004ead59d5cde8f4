package addressing

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/mailer"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type txRunnerDB struct {
	db *gorm.DB
}

func (r *txRunnerDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubMailer struct {
	sent []mailer.Message
}

func (s *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

type stubApprover struct {
	resumed []uuid.UUID
	err     error
}

func (s *stubApprover) ResumeWithAddress(ctx context.Context, executionID uuid.UUID, address types.Address) error {
	s.resumed = append(s.resumed, executionID)
	return s.err
}

type addressingFixture struct {
	svc      Service
	db       *gorm.DB
	mailer   *stubMailer
	outbox   *stubOutbox
	approver *stubApprover
}

func newAddressingFixture(t *testing.T) addressingFixture {
	t.Helper()
	db := setupAddressingTestDB(t)
	mail := &stubMailer{}
	out := &stubOutbox{}
	approver := &stubApprover{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Tx:       &txRunnerDB{db: db},
		Outbox:   out,
		Mailer:   mail,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
		App:      config.AppConfig{BaseURL: "https://giftwell.test"},
		Gifting:  config.GiftingConfig{AddressTokenTTL: 72 * time.Hour},
		Approver: approver,
	})
	require.NoError(t, err)
	return addressingFixture{svc: svc, db: db, mailer: mail, outbox: out, approver: approver}
}

func TestIssueRequestMintsTokenAndEmailsLink(t *testing.T) {
	fx := newAddressingFixture(t)
	ctx := context.Background()

	executionID := uuid.New()
	request, err := fx.svc.IssueRequest(ctx, fx.db, IssueInput{
		ExecutionID:    executionID,
		RequestedBy:    uuid.New(),
		SenderName:     "Alex",
		RecipientEmail: "friend@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, request.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(72*time.Hour), request.ExpiresAt, time.Minute)

	require.Len(t, fx.mailer.sent, 1)
	assert.Contains(t, fx.mailer.sent[0].PlainText, request.Token)
	assert.Contains(t, fx.mailer.sent[0].PlainText, "https://giftwell.test/collect-address?token=")

	require.Len(t, fx.outbox.events, 1)
	assert.Equal(t, enums.EventAddressRequestIssued, fx.outbox.events[0].EventType)
}

func TestSubmitRedeemsOnceAndResumesExecution(t *testing.T) {
	fx := newAddressingFixture(t)
	ctx := context.Background()

	executionID := uuid.New()
	request, err := fx.svc.IssueRequest(ctx, fx.db, IssueInput{
		ExecutionID:    executionID,
		RequestedBy:    uuid.New(),
		RecipientEmail: "friend@example.com",
	})
	require.NoError(t, err)

	result, err := fx.svc.Submit(ctx, request.Token, submittedAddress())
	require.NoError(t, err)
	assert.Equal(t, SubmitStatusCollected, result.Status)
	require.Equal(t, []uuid.UUID{executionID}, fx.approver.resumed)

	replay, err := fx.svc.Submit(ctx, request.Token, submittedAddress())
	require.NoError(t, err, "replay must not surface as an error")
	assert.Equal(t, SubmitStatusAlreadyCollected, replay.Status)
	assert.NotEmpty(t, replay.Message)
	assert.Len(t, fx.approver.resumed, 1, "replay must not re-approve")
}

func TestSubmitRejectsExpiredToken(t *testing.T) {
	fx := newAddressingFixture(t)
	ctx := context.Background()

	stale := seedRequest(t, fx.db, "tok-old", time.Now().UTC().Add(-time.Hour))

	_, err := fx.svc.Submit(ctx, stale.Token, submittedAddress())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code(), "expired links look like missing links")
	assert.Empty(t, fx.approver.resumed)
}

func TestSubmitValidatesAddress(t *testing.T) {
	fx := newAddressingFixture(t)

	_, err := fx.svc.Submit(context.Background(), "whatever", types.Address{Line1: "1 Main St"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetFormStates(t *testing.T) {
	fx := newAddressingFixture(t)
	ctx := context.Background()

	live := seedRequest(t, fx.db, "tok-live2", time.Now().UTC().Add(time.Hour))
	form, err := fx.svc.GetForm(ctx, live.Token)
	require.NoError(t, err)
	assert.Equal(t, live.RecipientEmail, form.RecipientEmail)

	_, err = fx.svc.GetForm(ctx, "missing")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	stale := seedRequest(t, fx.db, "tok-stale2", time.Now().UTC().Add(-time.Hour))
	_, err = fx.svc.GetForm(ctx, stale.Token)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = fx.svc.Submit(ctx, live.Token, submittedAddress())
	require.NoError(t, err)
	used, err := fx.svc.GetForm(ctx, live.Token)
	require.NoError(t, err, "used links still render, with a notice")
	assert.True(t, used.Collected)
	assert.NotEmpty(t, used.Message)
}
