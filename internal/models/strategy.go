package models

import (
	"time"

	"gorm.io/gorm"
)

// StrategyType is the level of a node in the strategy hierarchy. The order is
// fixed: a child must always be strictly deeper than its parent.
type StrategyType string

const (
	TypePillar     StrategyType = "pillar"
	TypeObjective  StrategyType = "objective"
	TypeKeyResult  StrategyType = "key_result"
	TypeInitiative StrategyType = "initiative"
)

var strategyDepths = map[StrategyType]int{
	TypePillar:     0,
	TypeObjective:  1,
	TypeKeyResult:  2,
	TypeInitiative: 3,
}

// Depth returns the fixed depth of the type (pillar 0 .. initiative 3) and
// whether the type is known.
func (t StrategyType) Depth() (int, bool) {
	d, ok := strategyDepths[t]
	return d, ok
}

// ValidStrategyType reports whether t is one of the four hierarchy levels.
func ValidStrategyType(t StrategyType) bool {
	_, ok := strategyDepths[t]
	return ok
}

type StrategyStatus string

const (
	StrategyDraft     StrategyStatus = "draft"
	StrategyActive    StrategyStatus = "active"
	StrategyCompleted StrategyStatus = "completed"
	StrategyArchived  StrategyStatus = "archived"
)

// ValidStrategyStatus reports whether s is a known strategy status.
func ValidStrategyStatus(s StrategyStatus) bool {
	switch s {
	case StrategyDraft, StrategyActive, StrategyCompleted, StrategyArchived:
		return true
	}
	return false
}

type ProgressMode string

const (
	ProgressAuto   ProgressMode = "auto"
	ProgressManual ProgressMode = "manual"
)

// Strategy is a node in the 4-level OKR-style hierarchy. WorkspaceID is
// optional: team-wide strategies have none.
type Strategy struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TeamID      uint64         `gorm:"not null;index" json:"team_id"`
	WorkspaceID *uint64        `gorm:"index" json:"workspace_id"`
	ParentID    *uint64        `gorm:"index" json:"parent_id"`
	Type        StrategyType   `gorm:"type:varchar(20);not null" json:"type"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      StrategyStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`

	ProgressMode       ProgressMode `gorm:"type:varchar(10);not null;default:'auto'" json:"progress_mode"`
	CalculatedProgress float64      `gorm:"not null;default:0" json:"calculated_progress"`

	MetricName    string   `gorm:"type:varchar(255)" json:"metric_name"`
	MetricUnit    string   `gorm:"type:varchar(50)" json:"metric_unit"`
	MetricTarget  *float64 `json:"metric_target"`
	MetricCurrent *float64 `json:"metric_current"`

	SortIndex int            `gorm:"not null;default:0" json:"sort_index"`
	CreatorID uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Parent     *Strategy           `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children   []Strategy          `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Alignments []StrategyAlignment `gorm:"foreignKey:StrategyID" json:"alignments,omitempty"`
}
