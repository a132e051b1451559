package migration

import (
	"context"
	"testing"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Run(db))
	return db
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v.UTC()
}

func seed(t *testing.T, db *gorm.DB, id string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&domain.User{
		ID:                 id,
		Email:              id + "@example.com",
		Plan:               domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionInactive,
		CreatedAt:          createdAt,
	}).Error)
}

func TestBackfillBillingCycles(t *testing.T) {
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()
	now := mustTime(t, "2026-03-15T12:00:00Z")

	// 70 days before now: two whole cycles elapsed
	seed(t, db, "old", mustTime(t, "2026-01-04T12:00:00Z"))
	seed(t, db, "new", mustTime(t, "2026-03-10T09:30:00Z"))

	result, err := BackfillBillingCycles(ctx, users, 30, false, now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Updated)

	old, err := users.FindByID(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, old.BillingCycleStart)
	assert.True(t, old.BillingCycleStart.Equal(mustTime(t, "2026-03-05T12:00:00Z")))
	assert.True(t, old.BillingCycleEnd.Equal(mustTime(t, "2026-04-04T12:00:00Z")))

	fresh, err := users.FindByID(ctx, "new")
	require.NoError(t, err)
	assert.True(t, fresh.BillingCycleStart.Equal(mustTime(t, "2026-03-10T09:30:00Z")))

	again, err := BackfillBillingCycles(ctx, users, 30, false, now)
	require.NoError(t, err)
	assert.Zero(t, again.Scanned)
}

func TestBackfillBillingCycles_DryRun(t *testing.T) {
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()
	now := mustTime(t, "2026-03-15T12:00:00Z")
	seed(t, db, "a", mustTime(t, "2026-02-01T00:00:00Z"))
	seed(t, db, "b", mustTime(t, "2026-02-02T00:00:00Z"))

	result, err := BackfillBillingCycles(ctx, users, 30, true, now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Zero(t, result.Updated)

	user, err := users.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, user.BillingCycleStart)
}
