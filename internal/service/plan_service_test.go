package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluatePlanDeadline(t *testing.T) {
	now := mustTime("2026-03-10T00:00:00Z")
	past := now.Add(-day)
	future := now.Add(day)

	tests := []struct {
		name       string
		user       domain.User
		wantReason domain.TransitionReason
		wantTo     domain.Plan
	}{
		{
			name:       "trial lapsed",
			user:       domain.User{Plan: domain.PlanStarter, TrialEndDate: timePtr(past)},
			wantReason: domain.TransitionTrialExpired,
			wantTo:     domain.PlanFree,
		},
		{
			name:       "trial ends exactly now",
			user:       domain.User{Plan: domain.PlanProfessional, TrialEndDate: timePtr(now)},
			wantReason: domain.TransitionTrialExpired,
			wantTo:     domain.PlanFree,
		},
		{
			name:   "trial still running",
			user:   domain.User{Plan: domain.PlanStarter, TrialEndDate: timePtr(future)},
			wantTo: domain.PlanStarter,
		},
		{
			name: "trial converted to paid subscription",
			user: domain.User{
				Plan:               domain.PlanStarter,
				TrialEndDate:       timePtr(past),
				SubscriptionStatus: domain.SubscriptionActive,
			},
			wantTo: domain.PlanStarter,
		},
		{
			name: "cancelled subscription ended",
			user: domain.User{
				Plan:                domain.PlanEnterprise,
				SubscriptionStatus:  domain.SubscriptionCancelled,
				SubscriptionEndDate: timePtr(past),
			},
			wantReason: domain.TransitionSubscriptionEnded,
			wantTo:     domain.PlanFree,
		},
		{
			name: "cancelled but paid through the cycle",
			user: domain.User{
				Plan:                domain.PlanEnterprise,
				SubscriptionStatus:  domain.SubscriptionCancelled,
				SubscriptionEndDate: timePtr(future),
			},
			wantTo: domain.PlanEnterprise,
		},
		{
			name:   "free user has no deadline",
			user:   domain.User{Plan: domain.PlanFree, TrialEndDate: timePtr(past)},
			wantTo: domain.PlanFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluatePlanDeadline(&tt.user, now)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantTo, got.To)
			assert.Equal(t, tt.user.Plan, got.From)
			assert.Equal(t, tt.wantReason != domain.TransitionNone, got.Changed())
		})
	}
}

func TestCheckTrialExpiry_DowngradesToFreeQuota(t *testing.T) {
	now := mustTime("2026-03-10T00:00:00Z")
	env := newTestEnv(t, now)
	env.seedUser(t, &domain.User{
		ID:           "u1",
		Plan:         domain.PlanStarter,
		TrialUsed:    true,
		TrialEndDate: timePtr(now.Add(-day)),
	})

	user, err := env.plans.CheckTrialExpiry(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, user.Plan)
	assert.Nil(t, user.TrialEndDate)

	stored := env.reload(t, "u1")
	assert.Equal(t, domain.PlanFree, stored.Plan)
	assert.True(t, stored.TrialUsed)

	decision := CheckQuota(stored.Plan, 5)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 5, decision.Limit)
}

func TestCheckTrialExpiry_ActiveTrialUntouched(t *testing.T) {
	now := mustTime("2026-03-10T00:00:00Z")
	env := newTestEnv(t, now)
	env.seedUser(t, &domain.User{
		ID:           "u1",
		Plan:         domain.PlanProfessional,
		TrialUsed:    true,
		TrialEndDate: timePtr(now.Add(3 * day)),
	})

	user, err := env.plans.CheckTrialExpiry(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanProfessional, user.Plan)
}

func TestCheckTrialExpiry_UnknownUser(t *testing.T) {
	env := newTestEnv(t, mustTime("2026-03-10T00:00:00Z"))
	_, err := env.plans.CheckTrialExpiry(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestStartTrial(t *testing.T) {
	now := mustTime("2026-03-10T00:00:00Z")
	env := newTestEnv(t, now)
	env.seedUser(t, &domain.User{ID: "u1"})
	ctx := context.Background()

	_, err := env.plans.StartTrial(ctx, "u1", "free")
	assert.ErrorIs(t, err, common.ErrInvalidPlan)

	_, err = env.plans.StartTrial(ctx, "u1", "platinum")
	assert.ErrorIs(t, err, common.ErrInvalidPlan)

	user, err := env.plans.StartTrial(ctx, "u1", "professional")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanProfessional, user.Plan)
	require.NotNil(t, user.TrialEndDate)
	assert.True(t, user.TrialEndDate.Equal(now.Add(14*day)))
	assert.True(t, user.TrialActive(now))

	_, err = env.plans.StartTrial(ctx, "u1", "starter")
	assert.ErrorIs(t, err, common.ErrTrialAlreadyUsed)
}

func TestCancelSubscription(t *testing.T) {
	now := mustTime("2026-03-10T00:00:00Z")
	env := newTestEnv(t, now)
	ctx := context.Background()

	start := mustTime("2026-03-01T00:00:00Z")
	end := start.Add(30 * day)
	env.seedUser(t, &domain.User{
		ID:                 "paid",
		Plan:               domain.PlanStarter,
		SubscriptionStatus: domain.SubscriptionActive,
		BillingCycleStart:  &start,
		BillingCycleEnd:    &end,
	})
	env.seedUser(t, &domain.User{ID: "free"})

	user, err := env.plans.CancelSubscription(ctx, "paid")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, user.SubscriptionStatus)
	assert.Equal(t, domain.PlanStarter, user.Plan, "plan is kept until the window ends")
	require.NotNil(t, user.SubscriptionEndDate)
	assert.True(t, user.SubscriptionEndDate.Equal(end))

	_, err = env.plans.CancelSubscription(ctx, "paid")
	assert.ErrorIs(t, err, common.ErrAlreadyCancelled)

	_, err = env.plans.CancelSubscription(ctx, "free")
	assert.ErrorIs(t, err, common.ErrNotSubscribed)
}

type flakyTransitionRepo struct {
	repository.UserRepository
	failFor string
}

func (f flakyTransitionRepo) ApplyTransition(ctx context.Context, id string, t domain.PlanTransition) (bool, error) {
	if id == f.failFor {
		return false, errors.New("deadlock detected")
	}
	return f.UserRepository.ApplyTransition(ctx, id, t)
}

func TestProcessCancellations_IsolatesFailures(t *testing.T) {
	now := mustTime("2026-03-10T00:00:00Z")
	env := newTestEnv(t, now)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		env.seedUser(t, &domain.User{
			ID:                  id,
			Plan:                domain.PlanProfessional,
			SubscriptionStatus:  domain.SubscriptionCancelled,
			SubscriptionEndDate: timePtr(now.Add(-time.Hour)),
		})
	}
	env.seedUser(t, &domain.User{
		ID:                  "later",
		Plan:                domain.PlanProfessional,
		SubscriptionStatus:  domain.SubscriptionCancelled,
		SubscriptionEndDate: timePtr(now.Add(day)),
	})

	var pauses []time.Duration
	svc := &planService{
		userRepo:   flakyTransitionRepo{UserRepository: env.userRepo, failFor: "b"},
		cycles:     env.cycles,
		cache:      env.plans.cache,
		batchDelay: 100 * time.Millisecond,
		now:        fixedClock(now),
		sleep: func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		},
	}

	result, err := svc.ProcessCancellations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Downgraded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3)
	assert.Len(t, pauses, 2, "delay between users, not before the first")

	byUser := map[string]domain.CancellationResult{}
	for _, r := range result.Results {
		byUser[r.UserID] = r
	}
	assert.True(t, byUser["a"].Success)
	assert.False(t, byUser["b"].Success)
	assert.Contains(t, byUser["b"].Error, "deadlock detected")
	assert.True(t, byUser["c"].Success)

	assert.Equal(t, domain.PlanFree, env.reload(t, "a").Plan)
	assert.Equal(t, domain.PlanProfessional, env.reload(t, "b").Plan)
	assert.Equal(t, domain.PlanFree, env.reload(t, "c").Plan)
	assert.Equal(t, domain.PlanProfessional, env.reload(t, "later").Plan)
}
