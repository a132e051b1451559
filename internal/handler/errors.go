package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/service"
	"github.com/rankreport/rankreport-backend/pkg/logger"
)

// respondError maps a service error onto the HTTP error taxonomy.
// Unknown errors are logged in full and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var quotaErr *service.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusForbidden, quotaErr.Response())
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrUnauthorized):
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
	case errors.Is(err, common.ErrClientNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Client not found", nil)
	case errors.Is(err, common.ErrReportNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Report not found", nil)
	case errors.Is(err, common.ErrNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrInvalidPlan):
		common.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, common.ErrClientLimitReached):
		common.ErrorResponse(c, http.StatusForbidden, "Client limit reached for your plan", gin.H{"upgrade": true})
	case errors.Is(err, common.ErrTrialAlreadyUsed),
		errors.Is(err, common.ErrAlreadyCancelled),
		errors.Is(err, common.ErrNotSubscribed):
		common.ErrorResponse(c, http.StatusConflict, err.Error(), nil)
	default:
		logger.GetLogger().Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("unhandled error")
		common.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}
