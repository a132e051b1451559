package domain

import "strings"

// Plan is a subscription tier
type Plan string

const (
	PlanFree         Plan = "FREE"
	PlanStarter      Plan = "STARTER"
	PlanProfessional Plan = "PROFESSIONAL"
	PlanEnterprise   Plan = "ENTERPRISE"
)

// PlanDetails describes what a tier grants. Reports is the per-cycle quota.
type PlanDetails struct {
	Plan       Plan     `json:"plan"`
	Reports    int      `json:"reports"`
	Clients    int      `json:"clients"`
	MonthlyUSD int      `json:"monthlyUsd"`
	Features   []string `json:"features"`
}

// PlanCatalog is the single source of truth for plan limits.
// The report quotas are part of the public contract.
var PlanCatalog = map[Plan]PlanDetails{
	PlanFree: {
		Plan:       PlanFree,
		Reports:    5,
		Clients:    1,
		MonthlyUSD: 0,
		Features:   []string{"Search Console data", "Standard PDF reports"},
	},
	PlanStarter: {
		Plan:       PlanStarter,
		Reports:    25,
		Clients:    5,
		MonthlyUSD: 19,
		Features:   []string{"Search Console + GA4 data", "White-label branding", "AI insights"},
	},
	PlanProfessional: {
		Plan:       PlanProfessional,
		Reports:    75,
		Clients:    15,
		MonthlyUSD: 39,
		Features:   []string{"Everything in Starter", "Custom metrics", "Priority generation"},
	},
	PlanEnterprise: {
		Plan:       PlanEnterprise,
		Reports:    250,
		Clients:    50,
		MonthlyUSD: 99,
		Features:   []string{"Everything in Professional", "Dedicated support", "API access"},
	},
}

// ParsePlan normalizes s into a known Plan
func ParsePlan(s string) (Plan, bool) {
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := PlanCatalog[p]
	return p, ok
}

// Details returns the catalog entry, falling back to FREE for unknown tiers
func (p Plan) Details() PlanDetails {
	if d, ok := PlanCatalog[p]; ok {
		return d
	}
	return PlanCatalog[PlanFree]
}

// ReportLimit returns the per-cycle report quota
func (p Plan) ReportLimit() int {
	return p.Details().Reports
}

// IsPaid reports whether p is above FREE
func (p Plan) IsPaid() bool {
	return p.Details().Plan != PlanFree
}

// UpgradeOptions lists the tiers above p, keyed by lower-case plan name
func (p Plan) UpgradeOptions() map[string]PlanDetails {
	order := []Plan{PlanFree, PlanStarter, PlanProfessional, PlanEnterprise}
	current := p.Details().Plan
	out := make(map[string]PlanDetails)
	above := false
	for _, tier := range order {
		if above {
			out[strings.ToLower(string(tier))] = PlanCatalog[tier]
		}
		if tier == current {
			above = true
		}
	}
	return out
}
