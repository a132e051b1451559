package service

import (
	"context"
	"testing"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckQuota_Boundaries(t *testing.T) {
	limits := map[domain.Plan]int{
		domain.PlanFree:         5,
		domain.PlanStarter:      25,
		domain.PlanProfessional: 75,
		domain.PlanEnterprise:   250,
	}

	for plan, limit := range limits {
		t.Run(string(plan), func(t *testing.T) {
			below := CheckQuota(plan, int64(limit-1))
			assert.True(t, below.Allowed)
			assert.Equal(t, limit, below.Limit)
			assert.Equal(t, plan, below.Plan)

			at := CheckQuota(plan, int64(limit))
			assert.False(t, at.Allowed)

			over := CheckQuota(plan, int64(limit+3))
			assert.False(t, over.Allowed)
		})
	}
}

func TestCheckQuota_UnknownPlanUsesFree(t *testing.T) {
	d := CheckQuota(domain.Plan("LEGACY"), 2)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.Limit)
	assert.Equal(t, domain.PlanFree, d.Plan)
}

func TestBuildUsageWarning(t *testing.T) {
	cycle := domain.BillingCycleInfo{
		CycleStart:    mustTime("2026-03-01T00:00:00Z"),
		CycleEnd:      mustTime("2026-03-31T00:00:00Z"),
		DaysRemaining: 12,
	}

	assert.Nil(t, BuildUsageWarning(domain.PlanFree, 1, cycle, 4))
	assert.Nil(t, BuildUsageWarning(domain.PlanFree, 3, cycle, 4))
	assert.Nil(t, BuildUsageWarning(domain.PlanStarter, 24, cycle, 4), "paid plans never warn")

	w := BuildUsageWarning(domain.PlanFree, 4, cycle, 4)
	require.NotNil(t, w)
	assert.Equal(t, 1, w.ReportsRemaining)
	assert.True(t, w.UpgradePrompt)
	assert.Equal(t, domain.PlanFree, w.CurrentPlan)
	assert.Equal(t, 12, w.BillingCycle.DaysRemaining)
	assert.True(t, w.BillingCycle.ResetsOn.Equal(cycle.CycleEnd))
	assert.Contains(t, w.UpgradeOptions, "starter")
	assert.Contains(t, w.UpgradeOptions, "professional")
	assert.Contains(t, w.UpgradeOptions, "enterprise")
	assert.NotContains(t, w.UpgradeOptions, "free")

	last := BuildUsageWarning(domain.PlanFree, 5, cycle, 4)
	require.NotNil(t, last)
	assert.Equal(t, 0, last.ReportsRemaining)
}

func TestGetReportsInCurrentCycle(t *testing.T) {
	now := mustTime("2026-03-10T12:00:00Z")
	env := newTestEnv(t, now)

	start := mustTime("2026-03-01T00:00:00Z")
	end := start.Add(30 * day)
	env.seedUser(t, &domain.User{ID: "u1", BillingCycleStart: &start, BillingCycleEnd: &end})
	env.seedClient(t, "c1", "u1")

	env.seedReports(t, "u1", "c1", 3, start.Add(time.Hour))
	// previous cycle
	env.db.Create(&domain.Report{ID: "old", UserID: "u1", ClientID: "c1", CreatedAt: start.Add(-time.Hour)})

	count, err := env.usage.GetReportsInCurrentCycle(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUsageSummary(t *testing.T) {
	now := mustTime("2026-03-10T12:00:00Z")
	env := newTestEnv(t, now)

	start := mustTime("2026-03-01T00:00:00Z")
	end := start.Add(30 * day)
	env.seedUser(t, &domain.User{
		ID:                "u1",
		Plan:              domain.PlanStarter,
		TrialUsed:         true,
		TrialEndDate:      timePtr(now.Add(2 * day)),
		BillingCycleStart: &start,
		BillingCycleEnd:   &end,
	})
	env.seedClient(t, "c1", "u1")
	env.seedReports(t, "u1", "c1", 7, start.Add(time.Hour))

	summary, err := env.usage.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStarter, summary.Plan)
	assert.Equal(t, int64(7), summary.Used)
	assert.Equal(t, 25, summary.Limit)
	assert.Equal(t, 18, summary.Remaining)
	assert.True(t, summary.Trial.Used)
	assert.True(t, summary.Trial.Active)
	assert.Equal(t, 21, summary.BillingCycle.DaysRemaining)
}
