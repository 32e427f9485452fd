package dto

import (
	"time"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// WorkspaceDTO represents a workspace in API responses
type WorkspaceDTO struct {
	ID          uint64               `json:"id"`
	TeamID      uint64               `json:"team_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Mode        models.WorkspaceMode `json:"mode"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ToWorkspaceDTO converts a Workspace model to WorkspaceDTO
func ToWorkspaceDTO(workspace models.Workspace) WorkspaceDTO {
	return WorkspaceDTO{
		ID:          workspace.ID,
		TeamID:      workspace.TeamID,
		Name:        workspace.Name,
		Description: workspace.Description,
		Mode:        workspace.Mode,
		CreatedAt:   workspace.CreatedAt,
		UpdatedAt:   workspace.UpdatedAt,
	}
}

// ToWorkspaceDTOs converts a slice of workspaces
func ToWorkspaceDTOs(workspaces []models.Workspace) []WorkspaceDTO {
	dtos := make([]WorkspaceDTO, len(workspaces))
	for i, w := range workspaces {
		dtos[i] = ToWorkspaceDTO(w)
	}
	return dtos
}
