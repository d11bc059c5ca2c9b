package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tutorbot/internal/database"
	"tutorbot/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestUsersGetMissingReturnsNil(t *testing.T) {
	users := NewUsers(testDB(t))
	u, err := users.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUsersSaveAndGet(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{
		TelegramID: 1,
		Name:       "Abebe Kebede",
		JoinedAt:   time.Now(),
	}))

	u, err := users.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Abebe Kebede", u.Name)
}

func TestUsersUpdateMergesFields(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1, Name: "Abebe", Phone: "+251911"}))
	require.NoError(t, users.Update(ctx, 1, map[string]any{"name": "Kebede"}))

	u, _ := users.Get(ctx, 1)
	assert.Equal(t, "Kebede", u.Name)
	assert.Equal(t, "+251911", u.Phone)
}

func TestSetReferrerIsWriteOnce(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1}))

	require.NoError(t, users.SetReferrer(ctx, 1, 100))
	require.NoError(t, users.SetReferrer(ctx, 1, 200))

	u, _ := users.Get(ctx, 1)
	require.NotNil(t, u.ReferrerID)
	assert.Equal(t, int64(100), *u.ReferrerID)
}

func TestSetReferrerRejectsSelf(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1}))
	require.NoError(t, users.SetReferrer(ctx, 1, 1))

	u, _ := users.Get(ctx, 1)
	assert.Nil(t, u.ReferrerID)
}

func TestCreditReferralBumpsAllThree(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1}))
	require.NoError(t, users.CreditReferral(ctx, 1, 30))
	require.NoError(t, users.CreditReferral(ctx, 1, 30))

	u, _ := users.Get(ctx, 1)
	assert.Equal(t, 2, u.ReferralCount)
	assert.Equal(t, 60.0, u.Rewards)
	assert.Equal(t, 60.0, u.TotalRewards)
}

func TestZeroRewardsCompareAndSwap(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1, Rewards: 150, TotalRewards: 150}))

	ok, err := users.ZeroRewards(ctx, 1, 150)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second swap with the stale expectation fails.
	ok, err = users.ZeroRewards(ctx, 1, 150)
	require.NoError(t, err)
	assert.False(t, ok)

	u, _ := users.Get(ctx, 1)
	assert.Zero(t, u.Rewards)
	assert.Equal(t, 150.0, u.TotalRewards)
}

func TestAddRewardsRefund(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1, Rewards: 10}))
	require.NoError(t, users.AddRewards(ctx, 1, 140))

	u, _ := users.Get(ctx, 1)
	assert.Equal(t, 150.0, u.Rewards)
}

func TestTopReferrersOrdering(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1, ReferralCount: 3}))
	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 2, ReferralCount: 9}))
	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 3, ReferralCount: 5}))

	top, err := users.TopReferrers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].TelegramID)
	assert.Equal(t, int64(3), top[1].TelegramID)
}

func TestByVerifiedSplitsUsers(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1, IsVerified: true}))
	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 2}))

	verified, err := users.ByVerified(ctx, true)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, int64(1), verified[0].TelegramID)

	unverified, err := users.ByVerified(ctx, false)
	require.NoError(t, err)
	require.Len(t, unverified, 1)
	assert.Equal(t, int64(2), unverified[0].TelegramID)
}

func TestCountJoinedSince(t *testing.T) {
	users := NewUsers(testDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 1, JoinedAt: now}))
	require.NoError(t, users.Save(ctx, &models.User{TelegramID: 2, JoinedAt: now.Add(-48 * time.Hour)}))

	count, err := users.CountJoinedSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
