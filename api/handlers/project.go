package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/repository"
)

// ProjectHandler handles HTTP requests for project management.
type ProjectHandler struct {
	projects *repository.ProjectRepository
	groups   *repository.GroupRepository
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *repository.ProjectRepository, groups *repository.GroupRepository) *ProjectHandler {
	return &ProjectHandler{projects: projects, groups: groups}
}

// requireMember resolves the group and confirms the requester belongs to it.
func (h *ProjectHandler) requireMember(c *gin.Context, groupID int64) (*model.User, bool) {
	user := currentUser(c)
	if user == nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return nil, false
	}

	if _, err := h.groups.GetByID(c.Request.Context(), groupID); err != nil {
		if errors.Is(err, model.ErrGroupNotFound) {
			sendError(c, http.StatusNotFound, "GROUP_NOT_FOUND", "Group not found")
		} else {
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get group")
		}
		return nil, false
	}

	isMember, err := h.projects.IsGroupMember(c.Request.Context(), user.ID, groupID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check membership")
		return nil, false
	}
	if !isMember {
		sendError(c, http.StatusForbidden, "FORBIDDEN", "You are not in this group")
		return nil, false
	}

	return user, true
}

// List handles GET /groups/:group_id/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, groupID); !ok {
		return
	}

	projects, err := h.projects.List(c.Request.Context(), groupID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

// Create handles POST /groups/:group_id/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, groupID); !ok {
		return
	}

	var req model.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	project, err := h.projects.Create(c.Request.Context(), groupID, req.Name)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

// Update handles PUT /groups/:group_id/projects/:project_id.
func (h *ProjectHandler) Update(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, groupID); !ok {
		return
	}

	var req model.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	if err := h.projects.Rename(c.Request.Context(), projectID, req.Name); err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			sendError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update project")
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// Delete handles DELETE /groups/:group_id/projects/:project_id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, groupID); !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), projectID); err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			sendError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// RegisterRoutes registers the project routes on a Gin router group.
func (h *ProjectHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups/:group_id/projects", h.List)
	rg.POST("/groups/:group_id/projects", h.Create)
	rg.PUT("/groups/:group_id/projects/:project_id", h.Update)
	rg.DELETE("/groups/:group_id/projects/:project_id", h.Delete)
}
