package dto

import (
	"time"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// StrategyDTO represents a strategy node in API responses
type StrategyDTO struct {
	ID                 uint64                `json:"id"`
	TeamID             uint64                `json:"team_id"`
	WorkspaceID        *uint64               `json:"workspace_id"`
	ParentID           *uint64               `json:"parent_id"`
	Type               models.StrategyType   `json:"type"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Status             models.StrategyStatus `json:"status"`
	ProgressMode       models.ProgressMode   `json:"progress_mode"`
	CalculatedProgress float64               `json:"calculated_progress"`
	MetricName         string                `json:"metric_name,omitempty"`
	MetricUnit         string                `json:"metric_unit,omitempty"`
	MetricTarget       *float64              `json:"metric_target,omitempty"`
	MetricCurrent      *float64              `json:"metric_current,omitempty"`
	SortIndex          int                   `json:"sort_index"`
	CreatorID          uint64                `json:"creator_id"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	Parent             *StrategyRefDTO       `json:"parent,omitempty"`
	Children           []StrategyRefDTO      `json:"children,omitempty"`
}

// StrategyListResponse represents a flat list of strategies
type StrategyListResponse struct {
	Strategies []StrategyDTO `json:"strategies"`
	TotalCount int           `json:"total_count"`
}

// ToStrategyDTO converts a Strategy model to StrategyDTO
func ToStrategyDTO(strategy models.Strategy) StrategyDTO {
	dto := StrategyDTO{
		ID:                 strategy.ID,
		TeamID:             strategy.TeamID,
		WorkspaceID:        strategy.WorkspaceID,
		ParentID:           strategy.ParentID,
		Type:               strategy.Type,
		Title:              strategy.Title,
		Description:        strategy.Description,
		Status:             strategy.Status,
		ProgressMode:       strategy.ProgressMode,
		CalculatedProgress: strategy.CalculatedProgress,
		MetricName:         strategy.MetricName,
		MetricUnit:         strategy.MetricUnit,
		MetricTarget:       strategy.MetricTarget,
		MetricCurrent:      strategy.MetricCurrent,
		SortIndex:          strategy.SortIndex,
		CreatorID:          strategy.CreatorID,
		CreatedAt:          strategy.CreatedAt,
		UpdatedAt:          strategy.UpdatedAt,
	}

	// Include parent if preloaded
	if strategy.Parent != nil && strategy.Parent.ID != 0 {
		ref := ToStrategyRefDTO(*strategy.Parent)
		dto.Parent = &ref
	}

	// Include children if preloaded
	if len(strategy.Children) > 0 {
		dto.Children = make([]StrategyRefDTO, len(strategy.Children))
		for i, child := range strategy.Children {
			dto.Children[i] = ToStrategyRefDTO(child)
		}
	}

	return dto
}

// ToStrategyListResponse converts a slice of strategies to StrategyListResponse
func ToStrategyListResponse(strategies []models.Strategy) StrategyListResponse {
	dtos := make([]StrategyDTO, len(strategies))
	for i, s := range strategies {
		dtos[i] = ToStrategyDTO(s)
	}

	return StrategyListResponse{
		Strategies: dtos,
		TotalCount: len(strategies),
	}
}
