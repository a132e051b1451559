package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/middleware"
	"github.com/rankreport/rankreport-backend/internal/service"
)

// ClientHandler handles agency client HTTP requests
type ClientHandler struct {
	service service.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(service service.ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

// CreateClient handles POST /clients
// @Summary Add a client website
// @Tags clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client"
// @Success 201 {object} common.APIResponse{data=domain.Client}
// @Router /clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req domain.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ValidationErrorResponse(c, err)
		return
	}

	client, err := h.service.CreateClient(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.CreatedResponse(c, client)
}

// ListClients handles GET /clients
// @Summary List clients
// @Tags clients
// @Produce json
// @Success 200 {object} common.APIResponse{data=[]domain.Client}
// @Router /clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	clients, err := h.service.ListClients(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, clients, nil)
}

// GetClient handles GET /clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	client, err := h.service.GetClient(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, client, nil)
}

// DeleteClient handles DELETE /clients/:id. Reports of the client are removed with it.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	if err := h.service.DeleteClient(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
