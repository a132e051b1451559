package domain

import "time"

// Subscription status values
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionInactive  = "inactive"
)

// User is the tenant root
type User struct {
	CreatedAt           time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	BillingCycleStart   *time.Time `gorm:"column:billing_cycle_start" json:"billingCycleStart"`
	BillingCycleEnd     *time.Time `gorm:"column:billing_cycle_end" json:"billingCycleEnd"`
	TrialEndDate        *time.Time `gorm:"column:trial_end_date" json:"trialEndDate"`
	CancelledAt         *time.Time `gorm:"column:cancelled_at" json:"cancelledAt"`
	SubscriptionEndDate *time.Time `gorm:"column:subscription_end_date" json:"subscriptionEndDate"`

	ID                 string `gorm:"column:id;primaryKey;size:36" json:"id"`
	Email              string `gorm:"column:email;uniqueIndex;size:255" json:"email"`
	Name               string `gorm:"column:name;size:255" json:"name"`
	CompanyName        string `gorm:"column:company_name;size:255" json:"companyName"`
	Plan               Plan   `gorm:"column:plan;size:20;default:FREE;index" json:"plan"`
	SubscriptionStatus string `gorm:"column:subscription_status;size:20;default:inactive;index" json:"subscriptionStatus"`

	TrialUsed bool `gorm:"column:trial_used;default:false" json:"trialUsed"`
}

func (User) TableName() string {
	return "users"
}

// TrialActive reports whether an unexpired trial is in effect at now
func (u *User) TrialActive(now time.Time) bool {
	return u.TrialEndDate != nil && now.Before(*u.TrialEndDate)
}
