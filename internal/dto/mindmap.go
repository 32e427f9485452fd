package dto

import (
	"encoding/json"
	"time"

	"github.com/stridehq/product-lifecycle-api/internal/mindmap"
	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// MindMapDTO represents a mind map in API responses
type MindMapDTO struct {
	ID          uint64          `json:"id"`
	TeamID      uint64          `json:"team_id"`
	WorkspaceID uint64          `json:"workspace_id"`
	Title       string          `json:"title"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	CreatorID   uint64          `json:"creator_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MindMapListItemDTO represents a mind map in list responses (no content)
type MindMapListItemDTO struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	CreatorID uint64    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MindMapTreeResponse carries the tree form of a mind map plus any
// structure lost during conversion.
type MindMapTreeResponse struct {
	Root     *mindmap.TreeNode `json:"root"`
	Warnings []mindmap.Warning `json:"warnings"`
}

// ToMindMapDTO converts a MindMap model to MindMapDTO
func ToMindMapDTO(m models.MindMap) MindMapDTO {
	nodes := json.RawMessage(m.Nodes)
	if len(nodes) == 0 {
		nodes = json.RawMessage("[]")
	}
	edges := json.RawMessage(m.Edges)
	if len(edges) == 0 {
		edges = json.RawMessage("[]")
	}

	return MindMapDTO{
		ID:          m.ID,
		TeamID:      m.TeamID,
		WorkspaceID: m.WorkspaceID,
		Title:       m.Title,
		Nodes:       nodes,
		Edges:       edges,
		CreatorID:   m.CreatorID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ToMindMapListItemDTO converts a MindMap model to its list form
func ToMindMapListItemDTO(m models.MindMap) MindMapListItemDTO {
	return MindMapListItemDTO{
		ID:        m.ID,
		Title:     m.Title,
		CreatorID: m.CreatorID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToMindMapListItemDTOs converts a slice of mind maps
func ToMindMapListItemDTOs(maps []models.MindMap) []MindMapListItemDTO {
	dtos := make([]MindMapListItemDTO, len(maps))
	for i, m := range maps {
		dtos[i] = ToMindMapListItemDTO(m)
	}
	return dtos
}
