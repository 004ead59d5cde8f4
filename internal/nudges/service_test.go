package nudges

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/internal/connections"
	"github.com/giftwell-app/giftwell-backend/pkg/aitext"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/mailer"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNudgesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`DROP TABLE IF EXISTS connection_nudges`,
		`DROP TABLE IF EXISTS connections`,
		`CREATE TABLE connection_nudges (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  connection_id TEXT NOT NULL,
  channel TEXT NOT NULL DEFAULT 'email',
  subject TEXT NOT NULL,
  message TEXT NOT NULL,
  data_needed TEXT,
  ai_generated INTEGER NOT NULL DEFAULT 0,
  sent_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE connections (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  connection_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'accepted',
  created_at DATETIME,
  UNIQUE (user_id, connection_id)
);`,
	}
	for _, stmt := range schemas {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

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

type stubComposer struct {
	message string
	err     error
	calls   int
}

func (s *stubComposer) ComposeNudge(ctx context.Context, prompt aitext.NudgePrompt) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.message, nil
}

type nudgeFixture struct {
	svc      Service
	db       *gorm.DB
	mailer   *stubMailer
	composer *stubComposer
	outbox   *stubOutbox
	userID   uuid.UUID
	friendID uuid.UUID
}

func newNudgeFixture(t *testing.T, composer *stubComposer) nudgeFixture {
	t.Helper()
	db := setupNudgesTestDB(t)
	mail := &stubMailer{}
	out := &stubOutbox{}
	svc, err := NewService(ServiceParams{
		Repo:            NewRepository(db),
		ConnectionsRepo: connections.NewRepository(db),
		Tx:              &txRunnerDB{db: db},
		Outbox:          out,
		Composer:        composer,
		Mailer:          mail,
		Logger:          logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
		Nudge: config.NudgeConfig{
			Window:       168 * time.Hour,
			MaxPerWindow: 3,
			MinGap:       24 * time.Hour,
		},
	})
	require.NoError(t, err)

	userID := uuid.New()
	friendID := uuid.New()
	require.NoError(t, connections.NewRepository(db).Link(context.Background(), userID, friendID))

	return nudgeFixture{svc: svc, db: db, mailer: mail, composer: composer, outbox: out, userID: userID, friendID: friendID}
}

func sendInput(fx nudgeFixture) SendInput {
	return SendInput{
		UserID:         fx.userID,
		ConnectionID:   fx.friendID,
		SenderName:     "Alex",
		RecipientName:  "Jamie",
		RecipientEmail: "jamie@example.com",
		DataNeeded:     []string{"shipping address"},
		Occasion:       "your birthday",
	}
}

func backdateNudges(t *testing.T, db *gorm.DB, userID, connectionID uuid.UUID, sentAt time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.ConnectionNudge{}).
		Where("user_id = ? AND connection_id = ?", userID, connectionID).
		Update("sent_at", sentAt).Error)
}

func TestSendUsesAIMessageWhenAvailable(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{message: "Hey Jamie, mind sharing your address?"})

	result, err := fx.svc.Send(context.Background(), sendInput(fx))
	require.NoError(t, err)
	require.True(t, result.Eligible)
	assert.True(t, result.Nudge.AIGenerated)
	assert.Equal(t, "Hey Jamie, mind sharing your address?", result.Nudge.Message)

	require.Len(t, fx.mailer.sent, 1)
	assert.Equal(t, "jamie@example.com", fx.mailer.sent[0].ToEmail)
	require.Len(t, fx.outbox.events, 1)
}

func TestSendFallsBackToTemplateWhenAIUnavailable(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{err: aitext.ErrUnavailable})

	result, err := fx.svc.Send(context.Background(), sendInput(fx))
	require.NoError(t, err)
	require.True(t, result.Eligible)
	assert.False(t, result.Nudge.AIGenerated)
	assert.Contains(t, result.Nudge.Message, "Alex")
	assert.Contains(t, result.Nudge.Message, "shipping address")
	assert.Equal(t, 1, fx.composer.calls)
}

func TestSendEnforcesMinimumGap(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{err: aitext.ErrUnavailable})
	ctx := context.Background()

	_, err := fx.svc.Send(ctx, sendInput(fx))
	require.NoError(t, err)

	result, err := fx.svc.Send(ctx, sendInput(fx))
	require.NoError(t, err, "a denial is a result, not an error")
	assert.False(t, result.Eligible)
	require.NotNil(t, result.Denial)
	require.NotNil(t, result.Denial.RetryAfter)
	assert.Len(t, fx.mailer.sent, 1, "denied nudge must not send mail")
}

func TestSendEnforcesRollingWindowCap(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{err: aitext.ErrUnavailable})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.svc.Send(ctx, sendInput(fx))
		require.NoError(t, err)
		// age past the minimum gap but keep all sends inside the window
		backdateNudges(t, fx.db, fx.userID, fx.friendID, time.Now().UTC().Add(-time.Duration(i+1)*25*time.Hour))
	}

	result, err := fx.svc.Send(ctx, sendInput(fx))
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	require.NotNil(t, result.Denial)
	assert.Equal(t, int64(3), result.Denial.WindowCount)
	assert.Len(t, fx.mailer.sent, 3, "the fourth nudge must not go out")
}

func TestSendAllowsAfterWindowExpires(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{err: aitext.ErrUnavailable})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.svc.Send(ctx, sendInput(fx))
		require.NoError(t, err)
		backdateNudges(t, fx.db, fx.userID, fx.friendID, time.Now().UTC().Add(-169*time.Hour))
	}

	result, err := fx.svc.Send(ctx, sendInput(fx))
	require.NoError(t, err, "nudges older than the window must not count")
	assert.True(t, result.Eligible)
}

func TestSendRejectsStrangers(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{})
	input := sendInput(fx)
	input.ConnectionID = uuid.New()

	_, err := fx.svc.Send(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestSendLimitIsPerConnection(t *testing.T) {
	fx := newNudgeFixture(t, &stubComposer{err: aitext.ErrUnavailable})
	ctx := context.Background()

	_, err := fx.svc.Send(ctx, sendInput(fx))
	require.NoError(t, err)

	otherFriend := uuid.New()
	require.NoError(t, connections.NewRepository(fx.db).Link(ctx, fx.userID, otherFriend))
	input := sendInput(fx)
	input.ConnectionID = otherFriend

	_, err = fx.svc.Send(ctx, input)
	require.NoError(t, err, "a different connection has its own window")
}
