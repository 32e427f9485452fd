package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkspaceMode is the lifecycle phase of a workspace. The UI gates which
// work-item fields are visible by phase; the API stores all of them flat.
type WorkspaceMode string

const (
	ModeDesign WorkspaceMode = "design"
	ModeBuild  WorkspaceMode = "build"
	ModeRefine WorkspaceMode = "refine"
	ModeLaunch WorkspaceMode = "launch"
)

// ValidWorkspaceMode reports whether m is one of the four lifecycle phases.
func ValidWorkspaceMode(m WorkspaceMode) bool {
	switch m {
	case ModeDesign, ModeBuild, ModeRefine, ModeLaunch:
		return true
	}
	return false
}

type Workspace struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TeamID      uint64         `gorm:"not null;index" json:"team_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Mode        WorkspaceMode  `gorm:"type:varchar(20);not null;default:'design'" json:"mode"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Team      Team       `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	WorkItems []WorkItem `gorm:"foreignKey:WorkspaceID" json:"work_items,omitempty"`
	MindMaps  []MindMap  `gorm:"foreignKey:WorkspaceID" json:"mind_maps,omitempty"`
}
