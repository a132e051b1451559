package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/middleware"
	"github.com/rankreport/rankreport-backend/internal/service"
)

// BillingHandler handles billing cycle, usage and plan changes
type BillingHandler struct {
	cycles service.BillingCycleService
	usage  service.UsageService
	plans  service.PlanService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(cycles service.BillingCycleService, usage service.UsageService, plans service.PlanService) *BillingHandler {
	return &BillingHandler{cycles: cycles, usage: usage, plans: plans}
}

// GetCycle handles GET /billing/cycle
// @Summary Current billing window
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.BillingCycleInfo}
// @Router /billing/cycle [get]
func (h *BillingHandler) GetCycle(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	info, err := h.cycles.GetBillingCycleInfo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, info, nil)
}

// GetUsage handles GET /billing/usage
// @Summary Quota usage in the current window
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.UsageSummary}
// @Router /billing/usage [get]
func (h *BillingHandler) GetUsage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	summary, err := h.usage.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, summary, nil)
}

// GetPlans handles GET /billing/plans
// @Summary Plan catalog
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /billing/plans [get]
func (h *BillingHandler) GetPlans(c *gin.Context) {
	plans := []domain.PlanDetails{
		domain.PlanCatalog[domain.PlanFree],
		domain.PlanCatalog[domain.PlanStarter],
		domain.PlanCatalog[domain.PlanProfessional],
		domain.PlanCatalog[domain.PlanEnterprise],
	}
	common.SuccessResponse(c, plans, nil)
}

// StartTrial handles POST /billing/trial
// @Summary Start the one-time paid plan trial
// @Tags billing
// @Accept json
// @Produce json
// @Param request body domain.StartTrialRequest true "Trial plan"
// @Success 200 {object} common.APIResponse{data=domain.User}
// @Failure 409 {object} common.APIResponse
// @Router /billing/trial [post]
func (h *BillingHandler) StartTrial(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req domain.StartTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ValidationErrorResponse(c, err)
		return
	}

	user, err := h.plans.StartTrial(c.Request.Context(), userID, req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, user, nil)
}

// Cancel handles POST /billing/cancel
// @Summary Cancel at the end of the current billing window
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.User}
// @Router /billing/cancel [post]
func (h *BillingHandler) Cancel(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	user, err := h.plans.CancelSubscription(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, user, nil)
}
