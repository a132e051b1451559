package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/pkg/cache"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
)

// CheckQuota compares a cycle's usage against the plan quota.
// Creation is allowed while currentCount < limit.
func CheckQuota(plan domain.Plan, currentCount int64) domain.QuotaDecision {
	details := plan.Details()
	return domain.QuotaDecision{
		Allowed: currentCount < int64(details.Reports),
		Limit:   details.Reports,
		Plan:    details.Plan,
	}
}

// BuildUsageWarning returns the upgrade prompt for a FREE user whose count after
// creation is at or above threshold, or nil outside the warning band.
func BuildUsageWarning(plan domain.Plan, countAfter int64, cycle domain.BillingCycleInfo, threshold int) *domain.UsageWarning {
	if plan.IsPaid() || countAfter < int64(threshold) {
		return nil
	}

	limit := plan.ReportLimit()
	remaining := limit - int(countAfter)
	if remaining < 0 {
		remaining = 0
	}

	var message string
	if remaining == 0 {
		message = fmt.Sprintf("You've used all %d reports included in the Free plan this cycle. Upgrade to keep generating reports.", limit)
	} else {
		message = fmt.Sprintf("You have %d of %d free reports left this cycle. Upgrade for more reports and clients.", remaining, limit)
	}

	return &domain.UsageWarning{
		Message:          message,
		ReportsRemaining: remaining,
		UpgradePrompt:    true,
		CurrentPlan:      domain.PlanFree,
		BillingCycle: domain.WarningCycle{
			DaysRemaining: cycle.DaysRemaining,
			ResetsOn:      cycle.CycleEnd,
		},
		UpgradeOptions: plan.UpgradeOptions(),
	}
}

// UsageService reports how much of the plan quota a user has consumed
type UsageService interface {
	GetReportsInCurrentCycle(ctx context.Context, userID string) (int64, error)
	Summary(ctx context.Context, userID string) (*domain.UsageSummary, error)
}

type usageService struct {
	plans      PlanService
	cycles     BillingCycleService
	reportRepo repository.ReportRepository
	cache      cache.Service
	now        func() time.Time
}

// NewUsageService creates a new UsageService
func NewUsageService(
	plans PlanService,
	cycles BillingCycleService,
	reportRepo repository.ReportRepository,
	cacheService cache.Service,
) UsageService {
	return &usageService{
		plans:      plans,
		cycles:     cycles,
		reportRepo: reportRepo,
		cache:      cacheService,
		now:        utcNow,
	}
}

func (s *usageService) GetReportsInCurrentCycle(ctx context.Context, userID string) (int64, error) {
	cycle, err := s.cycles.GetBillingCycleInfo(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.reportRepo.CountInWindow(ctx, userID, cycle.CycleStart, cycle.CycleEnd)
}

// Summary is served from cache for a short TTL; every write path invalidates it
func (s *usageService) Summary(ctx context.Context, userID string) (*domain.UsageSummary, error) {
	var cached domain.UsageSummary
	err := s.cache.GetUsage(ctx, userID, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("usage cache read failed")
	}

	user, err := s.plans.CheckTrialExpiry(ctx, userID)
	if err != nil {
		return nil, err
	}
	cycle, err := s.cycles.CycleFor(ctx, user)
	if err != nil {
		return nil, err
	}
	used, err := s.reportRepo.CountInWindow(ctx, userID, cycle.CycleStart, cycle.CycleEnd)
	if err != nil {
		return nil, err
	}

	decision := CheckQuota(user.Plan, used)
	remaining := decision.Limit - int(used)
	if remaining < 0 {
		remaining = 0
	}

	summary := &domain.UsageSummary{
		Plan:         decision.Plan,
		Used:         used,
		Limit:        decision.Limit,
		Remaining:    remaining,
		BillingCycle: *cycle,
		Trial: domain.TrialInfo{
			Used:   user.TrialUsed,
			Active: user.TrialActive(s.now()),
			EndsAt: user.TrialEndDate,
		},
		SubscriptionStatus:  user.SubscriptionStatus,
		SubscriptionEndDate: user.SubscriptionEndDate,
	}

	if err := s.cache.SetUsage(ctx, userID, summary); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("usage cache write failed")
	}
	return summary, nil
}
