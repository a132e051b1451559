package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/pkg/cache"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
)

// EvaluatePlanDeadline decides whether a deadline has moved the user off a paid plan.
// It is the single rule behind both trial expiry and cancellation expiry.
func EvaluatePlanDeadline(user *domain.User, now time.Time) domain.PlanTransition {
	t := domain.PlanTransition{From: user.Plan, To: user.Plan, At: now}
	if !user.Plan.IsPaid() {
		return t
	}

	switch {
	case user.SubscriptionStatus == domain.SubscriptionCancelled &&
		user.SubscriptionEndDate != nil && !now.Before(*user.SubscriptionEndDate):
		t.Reason = domain.TransitionSubscriptionEnded
	case user.SubscriptionStatus != domain.SubscriptionActive &&
		user.TrialEndDate != nil && !now.Before(*user.TrialEndDate):
		t.Reason = domain.TransitionTrialExpired
	default:
		return t
	}

	t.To = domain.PlanFree
	return t
}

// PlanService drives plan changes: trials, cancellations and deadline downgrades
type PlanService interface {
	// CheckTrialExpiry downgrades the user in the same call when a deadline has passed
	// and returns the user as it is after the check.
	CheckTrialExpiry(ctx context.Context, userID string) (*domain.User, error)
	StartTrial(ctx context.Context, userID, plan string) (*domain.User, error)
	CancelSubscription(ctx context.Context, userID string) (*domain.User, error)
	ProcessCancellations(ctx context.Context) (*domain.CancellationBatchResult, error)
}

type planService struct {
	userRepo   repository.UserRepository
	cycles     BillingCycleService
	cache      cache.Service
	trialDays  int
	batchDelay time.Duration
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// NewPlanService creates a new PlanService
func NewPlanService(
	userRepo repository.UserRepository,
	cycles BillingCycleService,
	cacheService cache.Service,
	trialDays int,
	batchDelay time.Duration,
) PlanService {
	if trialDays <= 0 {
		trialDays = 14
	}
	return &planService{
		userRepo:   userRepo,
		cycles:     cycles,
		cache:      cacheService,
		trialDays:  trialDays,
		batchDelay: batchDelay,
		now:        utcNow,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *planService) CheckTrialExpiry(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyDeadline(ctx, user, s.now()); err != nil {
		return nil, err
	}
	return user, nil
}

// applyDeadline evaluates and persists a transition, updating user in place
func (s *planService) applyDeadline(ctx context.Context, user *domain.User, now time.Time) error {
	t := EvaluatePlanDeadline(user, now)
	if !t.Changed() {
		return nil
	}

	applied, err := s.userRepo.ApplyTransition(ctx, user.ID, t)
	if err != nil {
		return fmt.Errorf("downgrade %s: %w", user.ID, err)
	}
	if !applied {
		// a concurrent request already moved the plan; reload the truth
		fresh, err := s.userRepo.FindByID(ctx, user.ID)
		if err != nil {
			return err
		}
		*user = *fresh
		return nil
	}

	user.Plan = t.To
	user.SubscriptionStatus = domain.SubscriptionInactive
	if t.Reason == domain.TransitionTrialExpired {
		user.TrialEndDate = nil
	}
	planDowngradesTotal.WithLabelValues(string(t.Reason)).Inc()
	s.invalidateUsage(ctx, user.ID)

	pkglogger.GetLogger().Info().
		Str("user_id", user.ID).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("reason", string(t.Reason)).
		Msg("plan downgraded")
	return nil
}

func (s *planService) StartTrial(ctx context.Context, userID, planName string) (*domain.User, error) {
	plan, ok := domain.ParsePlan(planName)
	if !ok || !plan.IsPaid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidPlan, strings.TrimSpace(planName))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TrialUsed {
		return nil, common.ErrTrialAlreadyUsed
	}

	endsAt := s.now().Add(time.Duration(s.trialDays) * day)
	started, err := s.userRepo.StartTrial(ctx, userID, plan, endsAt)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, common.ErrTrialAlreadyUsed
	}

	user.Plan = plan
	user.TrialUsed = true
	user.TrialEndDate = &endsAt
	s.invalidateUsage(ctx, userID)
	return user, nil
}

// CancelSubscription keeps the paid plan until the end of the current billing window
func (s *planService) CancelSubscription(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case user.SubscriptionStatus == domain.SubscriptionCancelled:
		return nil, common.ErrAlreadyCancelled
	case user.SubscriptionStatus != domain.SubscriptionActive || !user.Plan.IsPaid():
		return nil, common.ErrNotSubscribed
	}

	cycle, err := s.cycles.CycleFor(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	endsAt := cycle.CycleEnd
	if err := s.userRepo.Cancel(ctx, userID, now, endsAt); err != nil {
		return nil, err
	}
	user.SubscriptionStatus = domain.SubscriptionCancelled
	user.CancelledAt = &now
	user.SubscriptionEndDate = &endsAt
	s.invalidateUsage(ctx, userID)
	return user, nil
}

// ProcessCancellations downgrades every cancelled subscription whose end date has passed.
// A failure for one user is recorded and the batch continues.
func (s *planService) ProcessCancellations(ctx context.Context) (*domain.CancellationBatchResult, error) {
	now := s.now()
	users, err := s.userRepo.FindCancellationsDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find cancellations due: %w", err)
	}

	result := &domain.CancellationBatchResult{Results: make([]domain.CancellationResult, 0, len(users))}
	log := pkglogger.GetLogger()

	for i, user := range users {
		if i > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				return result, err
			}
		}

		from := user.Plan
		row := domain.CancellationResult{UserID: user.ID, Email: user.Email, From: from}
		if err := s.applyDeadline(ctx, user, now); err != nil {
			row.Error = err.Error()
			result.Failed++
			log.Error().Err(err).Str("user_id", user.ID).Msg("cancellation downgrade failed")
		} else {
			row.Success = true
			if user.Plan != from {
				result.Downgraded++
			}
		}
		result.Processed++
		result.Results = append(result.Results, row)
	}

	log.Info().
		Int("processed", result.Processed).
		Int("downgraded", result.Downgraded).
		Int("failed", result.Failed).
		Msg("process-cancellations finished")
	return result, nil
}

func (s *planService) invalidateUsage(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUsage(ctx, userID); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("usage cache invalidation failed")
	}
}
