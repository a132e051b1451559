package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/pkg/cache"
	"gorm.io/gorm"
)

// HealthHandler reports dependency status
type HealthHandler struct {
	db    *gorm.DB
	cache cache.Service
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB, cacheService cache.Service) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheService}
}

// Health handles GET /health. Redis is optional and never fails the check.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "time": time.Now().UTC()}

	database := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		database = "down"
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	body["database"] = database

	switch {
	case !h.cache.IsAvailable():
		body["redis"] = "disabled"
	case h.cache.Ping(ctx) != nil:
		body["redis"] = "down"
	default:
		body["redis"] = "ok"
	}

	c.JSON(status, body)
}
