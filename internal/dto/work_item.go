package dto

import (
	"time"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// StrategyRefDTO is a minimal strategy reference embedded in other DTOs
type StrategyRefDTO struct {
	ID    uint64              `json:"id"`
	Type  models.StrategyType `json:"type"`
	Title string              `json:"title"`
}

// AlignmentDTO represents one additional alignment on a work item
type AlignmentDTO struct {
	StrategyID uint64                   `json:"strategy_id"`
	Strength   models.AlignmentStrength `json:"alignment_strength"`
	Notes      string                   `json:"notes,omitempty"`
	Strategy   *StrategyRefDTO          `json:"strategy,omitempty"`
}

// WorkItemDTO represents a work item in API responses
type WorkItemDTO struct {
	ID          uint64                  `json:"id"`
	TeamID      uint64                  `json:"team_id"`
	WorkspaceID uint64                  `json:"workspace_id"`
	Type        models.WorkItemType     `json:"type"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Status      models.WorkItemStatus   `json:"status"`
	Priority    models.WorkItemPriority `json:"priority"`
	StrategyID  *uint64                 `json:"strategy_id"`
	DesignNotes string                  `json:"design_notes"`
	BuildNotes  string                  `json:"build_notes"`
	RefineNotes string                  `json:"refine_notes"`
	LaunchNotes string                  `json:"launch_notes"`
	DueDate     *time.Time              `json:"due_date"`
	CreatorID   uint64                  `json:"creator_id"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Creator     *UserDTO                `json:"creator,omitempty"`
	Strategy    *StrategyRefDTO         `json:"strategy,omitempty"`
	Alignments  []AlignmentDTO          `json:"alignments,omitempty"`
}

// WorkItemListItemDTO represents a work item in list responses (minimal data)
type WorkItemListItemDTO struct {
	ID          uint64                  `json:"id"`
	WorkspaceID uint64                  `json:"workspace_id"`
	Type        models.WorkItemType     `json:"type"`
	Title       string                  `json:"title"`
	Status      models.WorkItemStatus   `json:"status"`
	Priority    models.WorkItemPriority `json:"priority"`
	StrategyID  *uint64                 `json:"strategy_id"`
	DueDate     *time.Time              `json:"due_date"`
	CreatorID   uint64                  `json:"creator_id"`
	Creator     *UserDTO                `json:"creator,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// WorkItemListResponse represents a paginated list of work items
type WorkItemListResponse struct {
	WorkItems  []WorkItemListItemDTO `json:"work_items"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalCount int64                 `json:"total_count"`
	TotalPages int                   `json:"total_pages"`
}

// ToStrategyRefDTO converts a Strategy model to its minimal reference form
func ToStrategyRefDTO(strategy models.Strategy) StrategyRefDTO {
	return StrategyRefDTO{
		ID:    strategy.ID,
		Type:  strategy.Type,
		Title: strategy.Title,
	}
}

// ToWorkItemDTO converts a WorkItem model to WorkItemDTO
func ToWorkItemDTO(item models.WorkItem) WorkItemDTO {
	dto := WorkItemDTO{
		ID:          item.ID,
		TeamID:      item.TeamID,
		WorkspaceID: item.WorkspaceID,
		Type:        item.Type,
		Title:       item.Title,
		Description: item.Description,
		Status:      item.Status,
		Priority:    item.Priority,
		StrategyID:  item.StrategyID,
		DesignNotes: item.DesignNotes,
		BuildNotes:  item.BuildNotes,
		RefineNotes: item.RefineNotes,
		LaunchNotes: item.LaunchNotes,
		DueDate:     item.DueDate,
		CreatorID:   item.CreatorID,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}

	// Include creator if preloaded
	if item.Creator.ID != 0 {
		creator := ToUserDTO(item.Creator)
		dto.Creator = &creator
	}

	// Include primary strategy if preloaded
	if item.Strategy != nil && item.Strategy.ID != 0 {
		ref := ToStrategyRefDTO(*item.Strategy)
		dto.Strategy = &ref
	}

	// Include additional alignments if preloaded
	if len(item.Alignments) > 0 {
		dto.Alignments = make([]AlignmentDTO, len(item.Alignments))
		for i, alignment := range item.Alignments {
			a := AlignmentDTO{
				StrategyID: alignment.StrategyID,
				Strength:   alignment.Strength,
				Notes:      alignment.Notes,
			}
			if alignment.Strategy.ID != 0 {
				ref := ToStrategyRefDTO(alignment.Strategy)
				a.Strategy = &ref
			}
			dto.Alignments[i] = a
		}
	}

	return dto
}

// ToWorkItemListItemDTO converts a WorkItem model to WorkItemListItemDTO
func ToWorkItemListItemDTO(item models.WorkItem) WorkItemListItemDTO {
	dto := WorkItemListItemDTO{
		ID:          item.ID,
		WorkspaceID: item.WorkspaceID,
		Type:        item.Type,
		Title:       item.Title,
		Status:      item.Status,
		Priority:    item.Priority,
		StrategyID:  item.StrategyID,
		DueDate:     item.DueDate,
		CreatorID:   item.CreatorID,
		CreatedAt:   item.CreatedAt,
	}

	// Include creator if preloaded
	if item.Creator.ID != 0 {
		creator := ToUserDTO(item.Creator)
		dto.Creator = &creator
	}

	return dto
}

// ToWorkItemListResponse converts a slice of work items to WorkItemListResponse
func ToWorkItemListResponse(items []models.WorkItem, page, pageSize int, totalCount int64) WorkItemListResponse {
	listItems := make([]WorkItemListItemDTO, len(items))
	for i, item := range items {
		listItems[i] = ToWorkItemListItemDTO(item)
	}

	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return WorkItemListResponse{
		WorkItems:  listItems,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
