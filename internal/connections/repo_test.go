package connections

import (
	"context"
	"testing"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupConnectionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS connections`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE connections (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  connection_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'accepted',
  created_at DATETIME,
  UNIQUE (user_id, connection_id)
);`).Error)
	return db
}

func TestRepositoryLinkCreatesBothDirections(t *testing.T) {
	db := setupConnectionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, repo.Link(ctx, alice, bob))
	require.NoError(t, repo.Link(ctx, alice, bob), "second link must be a no-op")

	var count int64
	require.NoError(t, db.Model(&models.Connection{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	forward, err := repo.AreConnected(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, forward)

	reverse, err := repo.AreConnected(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, reverse)

	stranger, err := repo.AreConnected(ctx, alice, uuid.New())
	require.NoError(t, err)
	assert.False(t, stranger)
}

func TestRepositoryLinkRejectsSelf(t *testing.T) {
	db := setupConnectionsTestDB(t)
	repo := NewRepository(db)

	id := uuid.New()
	err := repo.Link(context.Background(), id, id)
	require.ErrorIs(t, err, gorm.ErrInvalidValue)
}
