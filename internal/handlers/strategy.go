package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/dto"
	apierrors "github.com/stridehq/product-lifecycle-api/internal/errors"
	"github.com/stridehq/product-lifecycle-api/internal/middleware"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
	"github.com/stridehq/product-lifecycle-api/internal/services"
)

// StrategyHandler coordinates strategy-related HTTP handlers.
type StrategyHandler struct {
	strategyService *services.StrategyService
}

// NewStrategyHandler creates a new StrategyHandler.
func NewStrategyHandler(strategyService *services.StrategyService) *StrategyHandler {
	return &StrategyHandler{
		strategyService: strategyService,
	}
}

// CreateStrategy creates a strategy node.
func (h *StrategyHandler) CreateStrategy(c *gin.Context) {
	type CreateStrategyRequest struct {
		TeamID        uint64                `json:"team_id" binding:"required"`
		WorkspaceID   *uint64               `json:"workspace_id"`
		ParentID      *uint64               `json:"parent_id"`
		Type          models.StrategyType   `json:"type" binding:"required"`
		Title         string                `json:"title" binding:"required,max=500"`
		Description   string                `json:"description"`
		Status        models.StrategyStatus `json:"status"`
		ProgressMode  models.ProgressMode   `json:"progress_mode"`
		MetricName    string                `json:"metric_name" binding:"max=255"`
		MetricUnit    string                `json:"metric_unit" binding:"max=50"`
		MetricTarget  *float64              `json:"metric_target"`
		MetricCurrent *float64              `json:"metric_current"`
		SortIndex     int                   `json:"sort_index"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req CreateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	strategy, err := h.strategyService.CreateStrategy(services.CreateStrategyInput{
		TeamID:        req.TeamID,
		WorkspaceID:   req.WorkspaceID,
		ParentID:      req.ParentID,
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		ProgressMode:  req.ProgressMode,
		MetricName:    req.MetricName,
		MetricUnit:    req.MetricUnit,
		MetricTarget:  req.MetricTarget,
		MetricCurrent: req.MetricCurrent,
		SortIndex:     req.SortIndex,
		CreatorID:     userID,
	})
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToStrategyDTO(*strategy))
}

// ListStrategies returns the team's strategies as a flat list.
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	filter, ok := parseStrategyFilter(c)
	if !ok {
		return
	}

	strategies, err := h.strategyService.ListStrategies(userID, filter)
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStrategyListResponse(strategies))
}

// GetTree returns the team's strategy hierarchy as nested roots.
func (h *StrategyHandler) GetTree(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	filter, ok := parseStrategyFilter(c)
	if !ok {
		return
	}

	roots, total, err := h.strategyService.GetTree(c.Request.Context(), userID, filter)
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        roots,
		"total_count": total,
	})
}

// GetStrategy returns a single strategy with parent and children.
func (h *StrategyHandler) GetStrategy(c *gin.Context) {
	strategy, ok := getContextStrategy(c)
	if !ok {
		apierrors.InternalError(c, "Strategy not loaded")
		return
	}

	full, err := h.strategyService.GetStrategy(strategy.ID)
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStrategyDTO(*full))
}

// UpdateStrategy applies a partial update. An explicit JSON null for
// parent_id detaches the node to root level.
func (h *StrategyHandler) UpdateStrategy(c *gin.Context) {
	type UpdateStrategyRequest struct {
		Title         *string                `json:"title" binding:"omitempty,max=500"`
		Description   *string                `json:"description"`
		Status        *models.StrategyStatus `json:"status"`
		ParentID      *uint64                `json:"parent_id"`
		ProgressMode  *models.ProgressMode   `json:"progress_mode"`
		Progress      *float64               `json:"progress"`
		MetricName    *string                `json:"metric_name" binding:"omitempty,max=255"`
		MetricUnit    *string                `json:"metric_unit" binding:"omitempty,max=50"`
		MetricTarget  *float64               `json:"metric_target"`
		MetricCurrent *float64               `json:"metric_current"`
		SortIndex     *int                   `json:"sort_index"`
	}

	strategy, ok := getContextStrategy(c)
	if !ok {
		apierrors.InternalError(c, "Strategy not loaded")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var req UpdateStrategyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.strategyService.UpdateStrategy(strategy.ID, services.UpdateStrategyInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		ParentID:      req.ParentID,
		ClearParent:   hasNullField(raw, "parent_id"),
		ProgressMode:  req.ProgressMode,
		Progress:      req.Progress,
		MetricName:    req.MetricName,
		MetricUnit:    req.MetricUnit,
		MetricTarget:  req.MetricTarget,
		MetricCurrent: req.MetricCurrent,
		SortIndex:     req.SortIndex,
	})
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStrategyDTO(*updated))
}

// DeleteStrategy deletes a strategy and its descendants.
func (h *StrategyHandler) DeleteStrategy(c *gin.Context) {
	strategy, ok := getContextStrategy(c)
	if !ok {
		apierrors.InternalError(c, "Strategy not loaded")
		return
	}

	if err := h.strategyService.DeleteStrategy(strategy.ID); err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Strategy deleted successfully",
	})
}

// AlignWorkItem aligns a work item to the strategy.
func (h *StrategyHandler) AlignWorkItem(c *gin.Context) {
	type AlignRequest struct {
		WorkItemID uint64                   `json:"work_item_id" binding:"required"`
		Strength   models.AlignmentStrength `json:"alignment_strength"`
		IsPrimary  bool                     `json:"is_primary"`
		Notes      string                   `json:"notes"`
	}

	strategy, ok := getContextStrategy(c)
	if !ok {
		apierrors.InternalError(c, "Strategy not loaded")
		return
	}

	var req AlignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.strategyService.AlignWorkItem(services.AlignInput{
		StrategyID: strategy.ID,
		WorkItemID: req.WorkItemID,
		Strength:   req.Strength,
		IsPrimary:  req.IsPrimary,
		Notes:      req.Notes,
	})
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"message": "Work item aligned successfully",
	})
}

// UnalignWorkItem removes an alignment from the strategy.
func (h *StrategyHandler) UnalignWorkItem(c *gin.Context) {
	strategy, ok := getContextStrategy(c)
	if !ok {
		apierrors.InternalError(c, "Strategy not loaded")
		return
	}

	workItemID, err := strconv.ParseUint(c.Param("work_item_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid work item ID")
		return
	}

	if err := h.strategyService.UnalignWorkItem(strategy.ID, workItemID); err != nil {
		respondStrategyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Work item unaligned successfully",
	})
}

// ListAlignedWorkItems returns the work items aligned to the strategy.
func (h *StrategyHandler) ListAlignedWorkItems(c *gin.Context) {
	strategy, ok := getContextStrategy(c)
	if !ok {
		apierrors.InternalError(c, "Strategy not loaded")
		return
	}

	items, err := h.strategyService.ListAlignedWorkItems(strategy.ID)
	if err != nil {
		respondStrategyError(c, err)
		return
	}

	listItems := make([]dto.WorkItemListItemDTO, len(items))
	for i, item := range items {
		listItems[i] = dto.ToWorkItemListItemDTO(item)
	}

	c.JSON(http.StatusOK, gin.H{
		"work_items":  listItems,
		"total_count": len(items),
	})
}

func parseStrategyFilter(c *gin.Context) (repository.StrategyFilter, bool) {
	teamID, err := strconv.ParseUint(c.Query("team_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "team_id is required")
		return repository.StrategyFilter{}, false
	}

	filter := repository.StrategyFilter{TeamID: teamID}

	if v := c.Query("workspace_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace_id")
			return repository.StrategyFilter{}, false
		}
		filter.WorkspaceID = &id
	}
	if v := c.Query("status"); v != "" {
		s := models.StrategyStatus(v)
		if !models.ValidStrategyStatus(s) {
			apierrors.BadRequest(c, "Invalid status")
			return repository.StrategyFilter{}, false
		}
		filter.Status = &s
	}
	if v := c.Query("include_completed"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid include_completed")
			return repository.StrategyFilter{}, false
		}
		filter.IncludeCompleted = include
	}

	return filter, true
}

func getContextStrategy(c *gin.Context) (models.Strategy, bool) {
	v, exists := c.Get("strategy")
	if !exists {
		return models.Strategy{}, false
	}
	strategy, ok := v.(models.Strategy)
	return strategy, ok
}

func respondStrategyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrStrategyTitleRequired),
		errors.Is(err, services.ErrInvalidStrategyType),
		errors.Is(err, services.ErrInvalidStrategyStatus),
		errors.Is(err, services.ErrInvalidProgressMode),
		errors.Is(err, services.ErrInvalidStrength),
		errors.Is(err, services.ErrSelfParent),
		errors.Is(err, services.ErrParentTeamMismatch),
		errors.Is(err, services.ErrWorkItemTeamMismatch),
		errors.Is(err, services.ErrHierarchyTooDeep):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrHierarchyViolation):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeHierarchyViolation, err.Error())
	case errors.Is(err, services.ErrCircularReference):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeCircularReference, err.Error())
	case errors.Is(err, services.ErrStrategyNotFound),
		errors.Is(err, services.ErrParentNotFound),
		errors.Is(err, services.ErrWorkItemNotFound),
		errors.Is(err, services.ErrAlignmentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember):
		// Non-members should not learn the team exists
		apierrors.NotFound(c, "Team not found")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
