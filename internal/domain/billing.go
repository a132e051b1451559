package domain

import "time"

// BillingCycleInfo is the current rolling window of a user
type BillingCycleInfo struct {
	CycleStart    time.Time `json:"cycleStart"`
	CycleEnd      time.Time `json:"cycleEnd"`
	DaysRemaining int       `json:"daysRemaining"`
}

// Window converts the info into the quota-error payload shape
func (b BillingCycleInfo) Window() BillingCycleWindow {
	return BillingCycleWindow{Start: b.CycleStart, End: b.CycleEnd, DaysRemaining: b.DaysRemaining}
}

// BillingCycleWindow is the billingCycle object of the 403 quota payload
type BillingCycleWindow struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DaysRemaining int       `json:"daysRemaining"`
}

// QuotaDecision is the outcome of comparing usage against a plan quota
type QuotaDecision struct {
	Allowed bool `json:"allowed"`
	Limit   int  `json:"limit"`
	Plan    Plan `json:"plan"`
}

// UsageWarning is attached to a 201 report response inside the warning band
type UsageWarning struct {
	Message          string                 `json:"message"`
	ReportsRemaining int                    `json:"reportsRemaining"`
	UpgradePrompt    bool                   `json:"upgradePrompt"`
	CurrentPlan      Plan                   `json:"currentPlan"`
	BillingCycle     WarningCycle           `json:"billingCycle"`
	UpgradeOptions   map[string]PlanDetails `json:"upgradeOptions"`
}

type WarningCycle struct {
	DaysRemaining int       `json:"daysRemaining"`
	ResetsOn      time.Time `json:"resetsOn"`
}

// QuotaExceededResponse is the 403 body returned when the quota is used up
type QuotaExceededResponse struct {
	Error        string             `json:"error"`
	Message      string             `json:"message"`
	Upgrade      bool               `json:"upgrade"`
	CurrentUsage int64              `json:"currentUsage"`
	Limit        int                `json:"limit"`
	Plan         Plan               `json:"plan"`
	BillingCycle BillingCycleWindow `json:"billingCycle"`
}

// ReportCreatedResponse is the 201 body: the report fields plus an optional warning
type ReportCreatedResponse struct {
	*Report
	Warning *UsageWarning `json:"warning,omitempty"`
}

// UsageSummary backs GET /billing/usage
type UsageSummary struct {
	Plan                Plan             `json:"plan"`
	Used                int64            `json:"used"`
	Limit               int              `json:"limit"`
	Remaining           int              `json:"remaining"`
	BillingCycle        BillingCycleInfo `json:"billingCycle"`
	Trial               TrialInfo        `json:"trial"`
	SubscriptionStatus  string           `json:"subscriptionStatus"`
	SubscriptionEndDate *time.Time       `json:"subscriptionEndDate,omitempty"`
}

type TrialInfo struct {
	Used   bool       `json:"used"`
	Active bool       `json:"active"`
	EndsAt *time.Time `json:"endsAt,omitempty"`
}

// StartTrialRequest is the POST /billing/trial body
type StartTrialRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// TransitionReason explains why a plan changed on a deadline
type TransitionReason string

const (
	TransitionNone              TransitionReason = ""
	TransitionTrialExpired      TransitionReason = "trial_expired"
	TransitionSubscriptionEnded TransitionReason = "subscription_ended"
)

// PlanTransition is the result of evaluating a user's plan deadlines
type PlanTransition struct {
	From   Plan             `json:"from"`
	To     Plan             `json:"to"`
	Reason TransitionReason `json:"reason,omitempty"`
	At     time.Time        `json:"at"`
}

// Changed reports whether the transition downgrades the user
func (t PlanTransition) Changed() bool {
	return t.Reason != TransitionNone
}

// CancellationResult is one row of the process-cancellations batch
type CancellationResult struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Success bool   `json:"success"`
	From    Plan   `json:"from,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CancellationBatchResult summarizes one run of the batch
type CancellationBatchResult struct {
	Processed  int                  `json:"processed"`
	Downgraded int                  `json:"downgraded"`
	Failed     int                  `json:"failed"`
	Results    []CancellationResult `json:"results"`
}
