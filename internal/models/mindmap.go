package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MindMap stores free-form ideation content as a flat node/edge graph
// (canvas-editor style). Nodes and Edges hold JSON arrays of
// mindmap.Node / mindmap.Edge.
type MindMap struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TeamID      uint64         `gorm:"not null;index" json:"team_id"`
	WorkspaceID uint64         `gorm:"not null;index" json:"workspace_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Nodes       datatypes.JSON `json:"nodes"`
	Edges       datatypes.JSON `json:"edges"`
	CreatorID   uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Workspace Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Creator   User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}
