package addressing

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAddressingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS address_requests`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE address_requests (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  execution_id TEXT NOT NULL,
  requested_by TEXT NOT NULL,
  recipient_email TEXT NOT NULL,
  shipping_address TEXT,
  expires_at DATETIME NOT NULL,
  collected_at DATETIME,
  created_at DATETIME
);`).Error)
	return db
}

func seedRequest(t *testing.T, db *gorm.DB, token string, expiresAt time.Time) models.AddressRequest {
	t.Helper()
	request := models.AddressRequest{
		ID:             uuid.New(),
		Token:          token,
		ExecutionID:    uuid.New(),
		RequestedBy:    uuid.New(),
		RecipientEmail: "friend@example.com",
		ExpiresAt:      expiresAt,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(&request).Error)
	return request
}

func submittedAddress() types.Address {
	return types.Address{
		Line1:      "1 Main St",
		City:       "Tulsa",
		State:      "OK",
		PostalCode: "74104",
		Country:    "US",
	}
}

func TestRepositoryCollectIsSingleUse(t *testing.T) {
	db := setupAddressingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedRequest(t, db, "tok-live", now.Add(time.Hour))

	affected, err := repo.Collect(ctx, nil, "tok-live", submittedAddress(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.Collect(ctx, nil, "tok-live", submittedAddress(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, affected, "second redemption must change zero rows")

	stored, err := repo.FindByToken(ctx, "tok-live")
	require.NoError(t, err)
	require.NotNil(t, stored.CollectedAt)
	require.NotNil(t, stored.ShippingAddress)
	assert.Equal(t, "1 Main St", stored.ShippingAddress.Line1)
}

func TestRepositoryCollectRejectsExpiredToken(t *testing.T) {
	db := setupAddressingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedRequest(t, db, "tok-stale", now.Add(-time.Minute))

	affected, err := repo.Collect(ctx, nil, "tok-stale", submittedAddress(), now)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestRepositoryListExpiredUncollected(t *testing.T) {
	db := setupAddressingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	expired := seedRequest(t, db, "tok-expired", now.Add(-time.Hour))
	seedRequest(t, db, "tok-live", now.Add(time.Hour))
	collected := seedRequest(t, db, "tok-collected", now.Add(-time.Hour))
	_, err := repo.Collect(ctx, nil, "tok-collected", submittedAddress(), now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.AddressRequest{}).Where("id = ?", collected.ID).Update("collected_at", now.Add(-2*time.Hour)).Error)

	rows, err := repo.ListExpiredUncollected(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, expired.ID, rows[0].ID)
}
