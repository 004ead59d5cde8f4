package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS notifications`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`).Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeGiftCompleted,
		Title:     "Gift sent",
		Message:   "Your gift is on the way",
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	first := seedNotification(t, db, userID, base)
	second := seedNotification(t, db, userID, base.Add(time.Hour))
	third := seedNotification(t, db, userID, base.Add(2*time.Hour))
	seedNotification(t, db, uuid.New(), base.Add(3*time.Hour))

	page, err := repo.ListByUser(ctx, userID, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, third.ID, page.Items[0].ID)
	assert.Equal(t, second.ID, page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := repo.ListByUser(ctx, userID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, first.ID, next.Items[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestRepositoryMarkReadIsSingleShot(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	row := seedNotification(t, db, userID, time.Now().UTC())

	unread, err := repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	affected, err := repo.MarkRead(ctx, userID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.MarkRead(ctx, userID, row.ID)
	require.NoError(t, err)
	assert.Zero(t, affected, "second mark must be a no-op")

	affected, err = repo.MarkRead(ctx, uuid.New(), row.ID)
	require.NoError(t, err)
	assert.Zero(t, affected, "other users cannot mark the row")

	unread, err = repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
