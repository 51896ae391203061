package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/internal/ws"
)

// WebSocketHandler attaches collaboration connections to rooms.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Collab handles GET /groups/:group_id/projects/:project_id/collab.
// Identity comes from the auth middleware when present; guests pass a
// share_token query parameter. The gate decides, and rejections surface as
// WebSocket close codes rather than HTTP errors.
func (h *WebSocketHandler) Collab(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}

	user := currentUser(c)
	shareToken := c.Query("share_token")

	if err := h.wsHandler.HandleConnection(c.Writer, c.Request, groupID, projectID, user, shareToken); err != nil {
		// Error already handled by the WebSocket handler
		return
	}
}

// RegisterRoutes registers the WebSocket routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups/:group_id/projects/:project_id/collab", h.Collab)
}
