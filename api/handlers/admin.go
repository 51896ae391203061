package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/internal/ws"
)

// AdminHandler exposes administrative operations.
type AdminHandler struct {
	svc *ws.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *ws.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Kick handles POST /admin/kick. Force-disconnects every session of the
// given user key across all server instances.
func (h *AdminHandler) Kick(c *gin.Context) {
	var req struct {
		UserKey string `json:"user_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "user_key is required")
		return
	}

	if err := h.svc.Kick(c.Request.Context(), req.UserKey); err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to kick user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Kick dispatched"})
}

// RegisterRoutes registers the admin routes on a Gin router group.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin/kick", RequireAuth(), h.Kick)
}
