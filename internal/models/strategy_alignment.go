package models

import (
	"time"

	"gorm.io/gorm"
)

type AlignmentStrength string

const (
	StrengthWeak     AlignmentStrength = "weak"
	StrengthModerate AlignmentStrength = "moderate"
	StrengthStrong   AlignmentStrength = "strong"
)

// ValidAlignmentStrength reports whether s is a known alignment strength.
func ValidAlignmentStrength(s AlignmentStrength) bool {
	switch s {
	case StrengthWeak, StrengthModerate, StrengthStrong:
		return true
	}
	return false
}

// StrategyAlignment is the junction row for "additional" (non-primary)
// work-item-to-strategy alignments. The primary alignment lives on
// WorkItem.StrategyID.
type StrategyAlignment struct {
	StrategyID uint64            `gorm:"primarykey" json:"strategy_id"`
	WorkItemID uint64            `gorm:"primarykey" json:"work_item_id"`
	Strength   AlignmentStrength `gorm:"type:varchar(20);not null;default:'moderate'" json:"alignment_strength"`
	Notes      string            `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time         `json:"created_at"`
	DeletedAt  gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	Strategy Strategy `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
	WorkItem WorkItem `gorm:"foreignKey:WorkItemID" json:"work_item,omitempty"`
}
