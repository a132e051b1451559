package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/pkg/ginutil"
)

// CancellationProcessor runs the cancelled-subscription downgrade batch
type CancellationProcessor interface {
	ProcessCancellations(ctx context.Context) (*domain.CancellationBatchResult, error)
}

// PendingReportProcessor generates queued reports
type PendingReportProcessor interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// CronHandler exposes the scheduled jobs to an external scheduler
type CronHandler struct {
	cancellations CancellationProcessor
	reports       PendingReportProcessor
}

// NewCronHandler creates a new CronHandler. reports may be nil when generation is disabled.
func NewCronHandler(cancellations CancellationProcessor, reports PendingReportProcessor) *CronHandler {
	return &CronHandler{cancellations: cancellations, reports: reports}
}

// ProcessCancellations handles POST /api/cron/process-cancellations
func (h *CronHandler) ProcessCancellations(c *gin.Context) {
	result, err := h.cancellations.ProcessCancellations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, result, nil)
}

// GenerateReports handles POST /api/cron/generate-reports?limit=N
func (h *CronHandler) GenerateReports(c *gin.Context) {
	if h.reports == nil {
		common.SuccessResponse(c, gin.H{"completed": 0, "enabled": false}, nil)
		return
	}

	limit := ginutil.QueryIntInRange(c, "limit", 10, 1, 100)
	completed, err := h.reports.ProcessPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"completed": completed, "enabled": true}, nil)
}
