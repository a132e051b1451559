package service

import (
	"context"
	"testing"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/pkg/cache"
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

	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Client{}, &domain.Report{}))
	return db
}

func mustTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts.UTC()
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// testEnv wires the real services over an in-memory database with a fixed clock
type testEnv struct {
	db         *gorm.DB
	now        time.Time
	userRepo   repository.UserRepository
	clientRepo repository.ClientRepository
	reportRepo repository.ReportRepository

	cycles  *billingCycleService
	plans   *planService
	usage   *usageService
	reports *reportService
	clients *clientService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	noCache := cache.NewService(nil)

	env := &testEnv{
		db:         db,
		now:        now,
		userRepo:   repository.NewUserRepository(db),
		clientRepo: repository.NewClientRepository(db),
		reportRepo: repository.NewReportRepository(db),
	}

	env.cycles = NewBillingCycleService(env.userRepo, 30).(*billingCycleService)
	env.cycles.now = fixedClock(now)

	env.plans = NewPlanService(env.userRepo, env.cycles, noCache, 14, 0).(*planService)
	env.plans.now = fixedClock(now)

	env.usage = NewUsageService(env.plans, env.cycles, env.reportRepo, noCache).(*usageService)
	env.usage.now = fixedClock(now)

	env.reports = NewReportService(env.plans, env.cycles, env.reportRepo, env.clientRepo, noCache, 4).(*reportService)
	env.reports.now = fixedClock(now)

	env.clients = NewClientService(env.plans, env.clientRepo, noCache, nil).(*clientService)
	env.clients.now = fixedClock(now)
	return env
}

func (e *testEnv) seedUser(t *testing.T, user *domain.User) *domain.User {
	t.Helper()
	if user.Email == "" {
		user.Email = user.ID + "@example.com"
	}
	if user.Plan == "" {
		user.Plan = domain.PlanFree
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = domain.SubscriptionInactive
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = e.now.Add(-10 * day)
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

func (e *testEnv) seedClient(t *testing.T, id, userID string) *domain.Client {
	t.Helper()
	client := &domain.Client{ID: id, UserID: userID, Name: id, Domain: id + ".example.com", CreatedAt: e.now}
	require.NoError(t, e.clientRepo.Create(context.Background(), client))
	return client
}

func (e *testEnv) seedReports(t *testing.T, userID, clientID string, n int, createdAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		report := &domain.Report{
			ID:        userID + "-seed-" + string(rune('a'+i)),
			UserID:    userID,
			ClientID:  clientID,
			Status:    domain.ReportStatusCompleted,
			CreatedAt: createdAt.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, e.db.Create(report).Error)
	}
}

func (e *testEnv) reload(t *testing.T, userID string) *domain.User {
	t.Helper()
	user, err := e.userRepo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return user
}
