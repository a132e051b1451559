package repository

import (
	"testing"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
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
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Client{}, &domain.Report{}))
	return db
}

func testTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts.UTC()
}

func seedUser(t *testing.T, db *gorm.DB, id string, plan domain.Plan, createdAt time.Time) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                 id,
		Email:              id + "@example.com",
		Name:               id,
		Plan:               plan,
		SubscriptionStatus: domain.SubscriptionInactive,
		CreatedAt:          createdAt,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedClient(t *testing.T, db *gorm.DB, id, userID string) *domain.Client {
	t.Helper()
	client := &domain.Client{ID: id, UserID: userID, Name: id, Domain: id + ".example.com"}
	require.NoError(t, db.Create(client).Error)
	return client
}

func seedReport(t *testing.T, db *gorm.DB, id, userID, clientID string, createdAt time.Time, status domain.ReportStatus) *domain.Report {
	t.Helper()
	report := &domain.Report{
		ID:        id,
		UserID:    userID,
		ClientID:  clientID,
		Title:     id,
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(report).Error)
	return report
}
