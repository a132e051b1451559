package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"gorm.io/gorm"
)

// UserRepository user data access interface
type UserRepository interface {
	// Read operations
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindCancellationsDue(ctx context.Context, now time.Time) ([]*domain.User, error)
	FindWithoutBillingCycle(ctx context.Context, afterID string, limit int) ([]*domain.User, error)

	// Write operations
	Create(ctx context.Context, user *domain.User) error
	UpdateBillingCycle(ctx context.Context, id string, start, end time.Time) error
	ApplyTransition(ctx context.Context, id string, t domain.PlanTransition) (bool, error)
	StartTrial(ctx context.Context, id string, plan domain.Plan, endsAt time.Time) (bool, error)
	Cancel(ctx context.Context, id string, cancelledAt, endsAt time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID finds a user by primary key
func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindCancellationsDue returns paid users whose cancelled subscription has ended
func (r *userRepository) FindCancellationsDue(ctx context.Context, now time.Time) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.WithContext(ctx).
		Where("subscription_status = ?", domain.SubscriptionCancelled).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date <= ?", now).
		Where("plan <> ?", domain.PlanFree).
		Order("subscription_end_date ASC").
		Find(&users).Error
	return users, err
}

// FindWithoutBillingCycle returns users that were never given a billing window,
// keyset-paged by id after afterID
func (r *userRepository) FindWithoutBillingCycle(ctx context.Context, afterID string, limit int) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.WithContext(ctx).
		Where("billing_cycle_start IS NULL OR billing_cycle_end IS NULL").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// Create inserts a user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// UpdateBillingCycle persists a new rolling window
func (r *userRepository) UpdateBillingCycle(ctx context.Context, id string, start, end time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"billing_cycle_start": start,
			"billing_cycle_end":   end,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

// ApplyTransition downgrades the user if it is still on t.From.
// Returns false when another writer already moved the plan.
func (r *userRepository) ApplyTransition(ctx context.Context, id string, t domain.PlanTransition) (bool, error) {
	updates := map[string]interface{}{
		"plan":                t.To,
		"subscription_status": domain.SubscriptionInactive,
	}
	if t.Reason == domain.TransitionTrialExpired {
		updates["trial_end_date"] = nil
	}

	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND plan = ?", id, t.From).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// StartTrial grants plan until endsAt, once per user
func (r *userRepository) StartTrial(ctx context.Context, id string, plan domain.Plan, endsAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND trial_used = ?", id, false).
		Updates(map[string]interface{}{
			"plan":           plan,
			"trial_used":     true,
			"trial_end_date": endsAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Cancel marks the subscription cancelled; the plan stays until endsAt
func (r *userRepository) Cancel(ctx context.Context, id string, cancelledAt, endsAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status":   domain.SubscriptionCancelled,
			"cancelled_at":          cancelledAt,
			"subscription_end_date": endsAt,
		}).Error
}
