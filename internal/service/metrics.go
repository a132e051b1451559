package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_created_total",
			Help: "Reports accepted for generation",
		},
		[]string{"plan"},
	)

	quotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Report creations rejected by the plan quota",
		},
		[]string{"plan"},
	)

	planDowngradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_downgrades_total",
			Help: "Plan downgrades applied on a deadline",
		},
		[]string{"reason"},
	)

	reportGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_generation_total",
			Help: "Report generation outcomes",
		},
		[]string{"status"},
	)
)
