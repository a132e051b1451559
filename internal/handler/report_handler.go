package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/middleware"
	"github.com/rankreport/rankreport-backend/internal/service"
)

// ReportHandler handles report HTTP requests
type ReportHandler struct {
	service service.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// CreateReport handles POST /reports
// @Summary Queue a report for generation
// @Tags reports
// @Accept json
// @Produce json
// @Param request body domain.CreateReportRequest true "Report request"
// @Success 201 {object} domain.ReportCreatedResponse
// @Failure 403 {object} domain.QuotaExceededResponse
// @Router /reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req domain.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ValidationErrorResponse(c, err)
		return
	}

	result, err := h.service.CreateReport(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListReports handles GET /reports
// @Summary List reports
// @Tags reports
// @Produce json
// @Param clientId query string false "Client filter"
// @Param page query int false "Page (default 1)"
// @Param perPage query int false "Page size (default 20)"
// @Success 200 {object} common.APIResponse{data=[]domain.Report}
// @Router /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var query domain.ReportListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.ValidationErrorResponse(c, err)
		return
	}

	reports, meta, err := h.service.ListReports(c.Request.Context(), userID, query)
	if err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponse(c, reports, meta)
}

// GetReport handles GET /reports/:id
// @Summary Get a report
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} common.APIResponse{data=domain.Report}
// @Failure 404 {object} common.APIResponse
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponse(c, report, nil)
}
