package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
)

const day = 24 * time.Hour

// BillingCycleService resolves a user's rolling billing window
type BillingCycleService interface {
	GetBillingCycleInfo(ctx context.Context, userID string) (*domain.BillingCycleInfo, error)
	// CycleFor works on an already loaded user and advances the window when it has elapsed
	CycleFor(ctx context.Context, user *domain.User) (*domain.BillingCycleInfo, error)
}

type billingCycleService struct {
	userRepo    repository.UserRepository
	cycleLength time.Duration
	now         func() time.Time
}

// NewBillingCycleService creates a new BillingCycleService
func NewBillingCycleService(userRepo repository.UserRepository, cycleDays int) BillingCycleService {
	if cycleDays <= 0 {
		cycleDays = 30
	}
	return &billingCycleService{
		userRepo:    userRepo,
		cycleLength: time.Duration(cycleDays) * day,
		now:         utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (s *billingCycleService) GetBillingCycleInfo(ctx context.Context, userID string) (*domain.BillingCycleInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.CycleFor(ctx, user)
}

func (s *billingCycleService) CycleFor(ctx context.Context, user *domain.User) (*domain.BillingCycleInfo, error) {
	now := s.now()

	if user.BillingCycleStart != nil && user.BillingCycleEnd != nil && user.BillingCycleEnd.After(now) {
		start, end := user.BillingCycleStart.UTC(), user.BillingCycleEnd.UTC()
		return &domain.BillingCycleInfo{
			CycleStart:    start,
			CycleEnd:      end,
			DaysRemaining: DaysRemaining(end, now),
		}, nil
	}

	start, end := ComputeCycle(CycleAnchor(user), now, s.cycleLength)
	if err := s.userRepo.UpdateBillingCycle(ctx, user.ID, start, end); err != nil {
		return nil, fmt.Errorf("persist billing cycle: %w", err)
	}
	user.BillingCycleStart = &start
	user.BillingCycleEnd = &end

	return &domain.BillingCycleInfo{
		CycleStart:    start,
		CycleEnd:      end,
		DaysRemaining: DaysRemaining(end, now),
	}, nil
}

// CycleAnchor is the instant all of a user's windows are aligned to.
// A previously stored start keeps its phase; otherwise the account creation time is used.
func CycleAnchor(user *domain.User) time.Time {
	if user.BillingCycleStart != nil && !user.BillingCycleStart.IsZero() {
		return user.BillingCycleStart.UTC()
	}
	return user.CreatedAt.UTC()
}

// ComputeCycle returns the window [start, start+length) that contains now,
// stepping from anchor in whole multiples of length.
func ComputeCycle(anchor, now time.Time, length time.Duration) (time.Time, time.Time) {
	anchor = anchor.UTC().Truncate(time.Second)
	now = now.UTC()
	if anchor.IsZero() {
		anchor = now.Truncate(time.Second)
	}

	steps := math.Floor(float64(now.Sub(anchor)) / float64(length))
	start := anchor.Add(time.Duration(steps) * length)
	// float rounding on very long spans
	for !start.After(now) && !now.Before(start.Add(length)) {
		start = start.Add(length)
	}
	for start.After(now) {
		start = start.Add(-length)
	}
	return start, start.Add(length)
}

// DaysRemaining is ceil((end-now)/24h), never negative
func DaysRemaining(end, now time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(day)))
}
