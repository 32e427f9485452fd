package models

import (
	"time"

	"gorm.io/gorm"
)

type WorkItemType string

const (
	TypeIdea      WorkItemType = "idea"
	TypeEpic      WorkItemType = "epic"
	TypeFeature   WorkItemType = "feature"
	TypeUserStory WorkItemType = "user_story"
	TypeTask      WorkItemType = "task"
	TypeBug       WorkItemType = "bug"
)

// ValidWorkItemType reports whether t is a known work-item type.
func ValidWorkItemType(t WorkItemType) bool {
	switch t {
	case TypeIdea, TypeEpic, TypeFeature, TypeUserStory, TypeTask, TypeBug:
		return true
	}
	return false
}

type WorkItemStatus string

const (
	StatusBacklog    WorkItemStatus = "backlog"
	StatusPlanned    WorkItemStatus = "planned"
	StatusInProgress WorkItemStatus = "in_progress"
	StatusInReview   WorkItemStatus = "in_review"
	StatusDone       WorkItemStatus = "done"
	StatusArchived   WorkItemStatus = "archived"
)

// ValidWorkItemStatus reports whether s is a known work-item status.
func ValidWorkItemStatus(s WorkItemStatus) bool {
	switch s {
	case StatusBacklog, StatusPlanned, StatusInProgress, StatusInReview, StatusDone, StatusArchived:
		return true
	}
	return false
}

// IsComplete reports whether the status counts toward strategy progress.
func (s WorkItemStatus) IsComplete() bool {
	return s == StatusDone || s == StatusArchived
}

type WorkItemPriority string

const (
	PriorityLow      WorkItemPriority = "low"
	PriorityMedium   WorkItemPriority = "medium"
	PriorityHigh     WorkItemPriority = "high"
	PriorityCritical WorkItemPriority = "critical"
)

// WorkItem is a trackable unit of product work. StrategyID is the primary
// strategy alignment; additional alignments live in strategy_alignments.
type WorkItem struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	TeamID      uint64           `gorm:"not null;index" json:"team_id"`
	WorkspaceID uint64           `gorm:"not null;index" json:"workspace_id"`
	Type        WorkItemType     `gorm:"type:varchar(20);not null;default:'task'" json:"type"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Status      WorkItemStatus   `gorm:"type:varchar(20);not null;default:'backlog'" json:"status"`
	Priority    WorkItemPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	StrategyID  *uint64          `gorm:"index" json:"strategy_id"`

	// Phase-scoped notes; the workspace mode decides which one the UI shows.
	DesignNotes string `gorm:"type:text" json:"design_notes"`
	BuildNotes  string `gorm:"type:text" json:"build_notes"`
	RefineNotes string `gorm:"type:text" json:"refine_notes"`
	LaunchNotes string `gorm:"type:text" json:"launch_notes"`

	DueDate   *time.Time     `json:"due_date"`
	CreatorID uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator    User                `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Workspace  Workspace           `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Strategy   *Strategy           `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
	Alignments []StrategyAlignment `gorm:"foreignKey:WorkItemID" json:"alignments,omitempty"`
}
