package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/dto"
	apierrors "github.com/stridehq/product-lifecycle-api/internal/errors"
	"github.com/stridehq/product-lifecycle-api/internal/middleware"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/services"
	"github.com/stridehq/product-lifecycle-api/internal/utils"
)

// WorkItemHandler coordinates work-item-related HTTP handlers.
type WorkItemHandler struct {
	workItemService *services.WorkItemService
}

// NewWorkItemHandler creates a new WorkItemHandler.
func NewWorkItemHandler(workItemService *services.WorkItemService) *WorkItemHandler {
	return &WorkItemHandler{
		workItemService: workItemService,
	}
}

// CreateWorkItem creates a work item inside a workspace.
func (h *WorkItemHandler) CreateWorkItem(c *gin.Context) {
	type CreateWorkItemRequest struct {
		WorkspaceID uint64                  `json:"workspace_id" binding:"required"`
		Type        models.WorkItemType     `json:"type"`
		Title       string                  `json:"title" binding:"required,max=500"`
		Description string                  `json:"description"`
		Status      models.WorkItemStatus   `json:"status"`
		Priority    models.WorkItemPriority `json:"priority"`
		StrategyID  *uint64                 `json:"strategy_id"`
		DueDate     *time.Time              `json:"due_date"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req CreateWorkItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	item, err := h.workItemService.CreateWorkItem(services.CreateWorkItemInput{
		WorkspaceID: req.WorkspaceID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StrategyID:  req.StrategyID,
		DueDate:     req.DueDate,
		CreatorID:   userID,
	})
	if err != nil {
		respondWorkItemError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkItemDTO(*item))
}

// ListWorkItems returns a filtered, paginated list of the team's work items.
func (h *WorkItemHandler) ListWorkItems(c *gin.Context) {
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

	pagination := utils.GetPaginationParams(c)

	input := services.ListWorkItemsInput{
		TeamID:     teamID,
		ActorID:    userID,
		Pagination: pagination,
	}

	if v := c.Query("workspace_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace_id")
			return
		}
		input.WorkspaceID = &id
	}
	if v := c.Query("type"); v != "" {
		t := models.WorkItemType(v)
		if !models.ValidWorkItemType(t) {
			apierrors.BadRequest(c, "Invalid type")
			return
		}
		input.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := models.WorkItemStatus(v)
		if !models.ValidWorkItemStatus(s) {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &s
	}
	if v := c.Query("strategy_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid strategy_id")
			return
		}
		input.StrategyID = &id
	}
	if v := c.Query("creator_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid creator_id")
			return
		}
		input.CreatorID = &id
	}
	if v := c.Query("due_before"); v != "" {
		due, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_before")
			return
		}
		input.DueBefore = &due
	}

	items, total, err := h.workItemService.ListWorkItems(input)
	if err != nil {
		respondWorkItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkItemListResponse(items, pagination.Page, pagination.Limit, total))
}

// GetWorkItem returns a work item with creator, strategy and alignments.
func (h *WorkItemHandler) GetWorkItem(c *gin.Context) {
	item, ok := getContextWorkItem(c)
	if !ok {
		apierrors.InternalError(c, "Work item not loaded")
		return
	}

	// Reload with alignments; the middleware only preloads the basics.
	full, err := h.workItemService.GetWorkItem(item.ID)
	if err != nil {
		respondWorkItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkItemDTO(*full))
}

// UpdateWorkItem applies a partial update. An explicit JSON null clears the
// due date or the primary strategy.
func (h *WorkItemHandler) UpdateWorkItem(c *gin.Context) {
	type UpdateWorkItemRequest struct {
		Type        *models.WorkItemType     `json:"type"`
		Title       *string                  `json:"title" binding:"omitempty,max=500"`
		Description *string                  `json:"description"`
		Status      *models.WorkItemStatus   `json:"status"`
		Priority    *models.WorkItemPriority `json:"priority"`
		StrategyID  *uint64                  `json:"strategy_id"`
		DesignNotes *string                  `json:"design_notes"`
		BuildNotes  *string                  `json:"build_notes"`
		RefineNotes *string                  `json:"refine_notes"`
		LaunchNotes *string                  `json:"launch_notes"`
		DueDate     *time.Time               `json:"due_date"`
	}

	item, ok := getContextWorkItem(c)
	if !ok {
		apierrors.InternalError(c, "Work item not loaded")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var req UpdateWorkItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	// A second decode into raw JSON distinguishes "field: null" from the
	// field being absent.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateWorkItemInput{
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		StrategyID:    req.StrategyID,
		DesignNotes:   req.DesignNotes,
		BuildNotes:    req.BuildNotes,
		RefineNotes:   req.RefineNotes,
		LaunchNotes:   req.LaunchNotes,
		DueDate:       req.DueDate,
		ClearStrategy: hasNullField(raw, "strategy_id"),
		ClearDueDate:  hasNullField(raw, "due_date"),
	}

	updated, err := h.workItemService.UpdateWorkItem(item.ID, input)
	if err != nil {
		respondWorkItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkItemDTO(*updated))
}

// DeleteWorkItem deletes a work item and its alignments.
func (h *WorkItemHandler) DeleteWorkItem(c *gin.Context) {
	item, ok := getContextWorkItem(c)
	if !ok {
		apierrors.InternalError(c, "Work item not loaded")
		return
	}

	if err := h.workItemService.DeleteWorkItem(item.ID); err != nil {
		respondWorkItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work item deleted successfully",
	})
}

func getContextWorkItem(c *gin.Context) (models.WorkItem, bool) {
	v, exists := c.Get("work_item")
	if !exists {
		return models.WorkItem{}, false
	}
	item, ok := v.(models.WorkItem)
	return item, ok
}

func hasNullField(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && string(v) == "null"
}

func respondWorkItemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWorkItemTitleRequired),
		errors.Is(err, services.ErrInvalidWorkItemType),
		errors.Is(err, services.ErrInvalidWorkItemStatus),
		errors.Is(err, services.ErrStrategyTeamMismatch):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrWorkItemNotFound),
		errors.Is(err, services.ErrWorkspaceNotFound),
		errors.Is(err, services.ErrStrategyNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember):
		// Non-members should not learn the team exists
		apierrors.NotFound(c, "Team not found")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
