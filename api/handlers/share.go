package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/repository"
	"github.com/syncpad/backend/internal/token"
)

// ShareHandler issues and validates share-link and snippet tokens. The hub
// itself only ever verifies; issuance lives here in the HTTP layer.
type ShareHandler struct {
	projects *repository.ProjectRepository
	groups   *repository.GroupRepository
	signer   *token.Signer
	maxAge   time.Duration
	baseURL  string
}

// NewShareHandler creates a new ShareHandler. baseURL is the frontend
// origin embedded into generated links.
func NewShareHandler(projects *repository.ProjectRepository, groups *repository.GroupRepository, signer *token.Signer, maxAge time.Duration, baseURL string) *ShareHandler {
	return &ShareHandler{
		projects: projects,
		groups:   groups,
		signer:   signer,
		maxAge:   maxAge,
		baseURL:  baseURL,
	}
}

// GenerateShareLink handles GET /groups/:group_id/projects/:project_id/share-link.
// The link grants real-time edit access to the room, including to guests.
func (h *ShareHandler) GenerateShareLink(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}

	user := currentUser(c)
	if user == nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	isMember, err := h.projects.IsMember(c.Request.Context(), user.ID, groupID, projectID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check membership")
		return
	}
	if !isMember {
		sendError(c, http.StatusForbidden, "FORBIDDEN", "Not authorized")
		return
	}

	tok, err := h.signer.Sign(token.Claims{
		ProjectID: projectID,
		GroupID:   groupID,
		Type:      token.TypeShareLink,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"share_url": h.baseURL + "/join-shared/" + tok})
}

// ValidateShareLink handles POST /share-links/validate. It exchanges a
// token for project details so a guest can join; accessible anonymously.
func (h *ShareHandler) ValidateShareLink(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "token is required")
		return
	}

	claims, err := h.signer.Verify(req.Token, h.maxAge)
	if err != nil || claims.Type != token.TypeShareLink {
		sendError(c, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired link")
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), claims.ProjectID)
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id":   project.ID,
		"project_name": project.Name,
		"group_id":     claims.GroupID,
		"valid":        true,
	})
}

// GenerateSnippetLink handles GET /groups/:group_id/projects/:project_id/snippet-link.
// Snippet links grant read-only content access outside the hub.
func (h *ShareHandler) GenerateSnippetLink(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}

	user := currentUser(c)
	if user == nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	isMember, err := h.projects.IsGroupMember(c.Request.Context(), user.ID, groupID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check membership")
		return
	}
	if !isMember {
		sendError(c, http.StatusForbidden, "FORBIDDEN", "Not authorized")
		return
	}

	tok, err := h.signer.Sign(token.Claims{
		ProjectID: projectID,
		Type:      token.TypeSnippet,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"snippet_url": h.baseURL + "/snippet/" + tok})
}

// GetSnippetContent handles GET /snippets/:token. Anonymous read-only
// content fetch; validates token type snippet.
func (h *ShareHandler) GetSnippetContent(c *gin.Context) {
	claims, err := h.signer.Verify(c.Param("token"), h.maxAge)
	if err != nil || claims.Type != token.TypeSnippet {
		sendError(c, http.StatusNotFound, "SNIPPET_NOT_FOUND", "Snippet not found or expired")
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), claims.ProjectID)
	if err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			sendError(c, http.StatusNotFound, "SNIPPET_NOT_FOUND", "Snippet not found or expired")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get snippet")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": project.Content,
		"name": project.Name,
	})
}

// RegisterRoutes registers the share routes on a Gin router group.
func (h *ShareHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups/:group_id/projects/:project_id/share-link", h.GenerateShareLink)
	rg.POST("/share-links/validate", h.ValidateShareLink)
	rg.GET("/groups/:group_id/projects/:project_id/snippet-link", h.GenerateSnippetLink)
	rg.GET("/snippets/:token", h.GetSnippetContent)
}
