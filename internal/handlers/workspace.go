package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/dto"
	apierrors "github.com/stridehq/product-lifecycle-api/internal/errors"
	"github.com/stridehq/product-lifecycle-api/internal/middleware"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/services"
)

// WorkspaceHandler coordinates workspace-related HTTP handlers.
type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(workspaceService *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
	}
}

// CreateWorkspace creates a workspace inside a team.
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	type CreateWorkspaceRequest struct {
		TeamID      uint64               `json:"team_id" binding:"required"`
		Name        string               `json:"name" binding:"required,max=255"`
		Description string               `json:"description"`
		Mode        models.WorkspaceMode `json:"mode"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(services.CreateWorkspaceInput{
		TeamID:      req.TeamID,
		Name:        req.Name,
		Description: req.Description,
		Mode:        req.Mode,
		ActorID:     userID,
	})
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkspaceDTO(*workspace))
}

// ListWorkspaces returns the team's workspaces.
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	teamID, err := strconv.ParseUint(c.Query("team_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "team_id is required")
		return
	}

	workspaces, err := h.workspaceService.ListWorkspaces(teamID, userID)
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspaces": dto.ToWorkspaceDTOs(workspaces),
	})
}

// GetWorkspace returns the workspace loaded by the access middleware.
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	workspace, ok := getContextWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not loaded")
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(workspace))
}

// UpdateWorkspace applies a partial update to the workspace.
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	type UpdateWorkspaceRequest struct {
		Name        *string               `json:"name" binding:"omitempty,max=255"`
		Description *string               `json:"description"`
		Mode        *models.WorkspaceMode `json:"mode"`
	}

	workspace, ok := getContextWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not loaded")
		return
	}

	var req UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.workspaceService.UpdateWorkspace(workspace.ID, services.UpdateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
		Mode:        req.Mode,
	})
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*updated))
}

// DeleteWorkspace deletes the workspace and its contents.
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	workspace, ok := getContextWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not loaded")
		return
	}

	if err := h.workspaceService.DeleteWorkspace(workspace.ID); err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Workspace deleted successfully",
	})
}

func getContextWorkspace(c *gin.Context) (models.Workspace, bool) {
	v, exists := c.Get("workspace")
	if !exists {
		return models.Workspace{}, false
	}
	workspace, ok := v.(models.Workspace)
	return workspace, ok
}

func respondWorkspaceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidWorkspaceName),
		errors.Is(err, services.ErrInvalidWorkspaceMode):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrWorkspaceNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember):
		// Non-members should not learn the team exists
		apierrors.NotFound(c, "Team not found")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
