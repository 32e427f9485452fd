package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/dto"
	apierrors "github.com/stridehq/product-lifecycle-api/internal/errors"
	"github.com/stridehq/product-lifecycle-api/internal/middleware"
	"github.com/stridehq/product-lifecycle-api/internal/mindmap"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/services"
)

// MindMapHandler coordinates mind-map-related HTTP handlers.
type MindMapHandler struct {
	mindMapService *services.MindMapService
}

// NewMindMapHandler creates a new MindMapHandler.
func NewMindMapHandler(mindMapService *services.MindMapService) *MindMapHandler {
	return &MindMapHandler{
		mindMapService: mindMapService,
	}
}

// CreateMindMap creates a mind map inside a workspace.
func (h *MindMapHandler) CreateMindMap(c *gin.Context) {
	type CreateMindMapRequest struct {
		WorkspaceID uint64         `json:"workspace_id" binding:"required"`
		Title       string         `json:"title" binding:"required,max=255"`
		Nodes       []mindmap.Node `json:"nodes"`
		Edges       []mindmap.Edge `json:"edges"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req CreateMindMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	m, err := h.mindMapService.CreateMindMap(services.CreateMindMapInput{
		WorkspaceID: req.WorkspaceID,
		Title:       req.Title,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		CreatorID:   userID,
	})
	if err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMindMapDTO(*m))
}

// ListMindMaps returns the workspace's mind maps without content.
func (h *MindMapHandler) ListMindMaps(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	workspaceID, err := strconv.ParseUint(c.Query("workspace_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "workspace_id is required")
		return
	}

	maps, err := h.mindMapService.ListMindMaps(userID, workspaceID)
	if err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mind_maps": dto.ToMindMapListItemDTOs(maps),
	})
}

// GetMindMap returns the mind map with its full graph content.
func (h *MindMapHandler) GetMindMap(c *gin.Context) {
	m, ok := getContextMindMap(c)
	if !ok {
		apierrors.InternalError(c, "Mind map not loaded")
		return
	}

	c.JSON(http.StatusOK, dto.ToMindMapDTO(m))
}

// UpdateContent replaces the mind map's nodes and edges wholesale.
func (h *MindMapHandler) UpdateContent(c *gin.Context) {
	type UpdateContentRequest struct {
		Title *string        `json:"title" binding:"omitempty,max=255"`
		Nodes []mindmap.Node `json:"nodes"`
		Edges []mindmap.Edge `json:"edges"`
	}

	m, ok := getContextMindMap(c)
	if !ok {
		apierrors.InternalError(c, "Mind map not loaded")
		return
	}

	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.mindMapService.UpdateMindMap(m.ID, services.UpdateMindMapInput{
		Title:        req.Title,
		Nodes:        req.Nodes,
		Edges:        req.Edges,
		ReplaceGraph: true,
	})
	if err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMindMapDTO(*updated))
}

// DeleteMindMap deletes a mind map.
func (h *MindMapHandler) DeleteMindMap(c *gin.Context) {
	m, ok := getContextMindMap(c)
	if !ok {
		apierrors.InternalError(c, "Mind map not loaded")
		return
	}

	if err := h.mindMapService.DeleteMindMap(m.ID); err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Mind map deleted successfully",
	})
}

// GetTree converts the graph to tree form, reporting lost structure.
func (h *MindMapHandler) GetTree(c *gin.Context) {
	m, ok := getContextMindMap(c)
	if !ok {
		apierrors.InternalError(c, "Mind map not loaded")
		return
	}

	root, warnings, err := h.mindMapService.GetTree(m.ID)
	if err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MindMapTreeResponse{
		Root:     root,
		Warnings: warnings,
	})
}

// ReplaceFromTree flattens a nested tree back into the stored graph.
func (h *MindMapHandler) ReplaceFromTree(c *gin.Context) {
	type ReplaceTreeRequest struct {
		Root *mindmap.TreeNode `json:"root" binding:"required"`
	}

	m, ok := getContextMindMap(c)
	if !ok {
		apierrors.InternalError(c, "Mind map not loaded")
		return
	}

	var req ReplaceTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.mindMapService.ReplaceFromTree(m.ID, req.Root)
	if err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMindMapDTO(*updated))
}

// ClassifyNodes suggests a work-item type for each node in the map.
func (h *MindMapHandler) ClassifyNodes(c *gin.Context) {
	m, ok := getContextMindMap(c)
	if !ok {
		apierrors.InternalError(c, "Mind map not loaded")
		return
	}

	suggestions, err := h.mindMapService.ClassifyNodes(c.Request.Context(), m.ID)
	if err != nil {
		respondMindMapError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
	})
}

func getContextMindMap(c *gin.Context) (models.MindMap, bool) {
	v, exists := c.Get("mind_map")
	if !exists {
		return models.MindMap{}, false
	}
	m, ok := v.(models.MindMap)
	return m, ok
}

func respondMindMapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMindMapTitleRequired),
		errors.Is(err, services.ErrEmptyTree),
		errors.Is(err, services.ErrTooManyClassifyNodes):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrMindMapNotFound),
		errors.Is(err, services.ErrWorkspaceNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember):
		// Non-members should not learn the workspace exists
		apierrors.NotFound(c, "Workspace not found")
	case errors.Is(err, services.ErrAIUnavailable):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
