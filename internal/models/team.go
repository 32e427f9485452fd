package models

import (
	"time"

	"gorm.io/gorm"
)

type TeamPlan string

const (
	PlanFree       TeamPlan = "free"
	PlanPro        TeamPlan = "pro"
	PlanEnterprise TeamPlan = "enterprise"
)

// Team is the tenant boundary. Every team-scoped resource carries a TeamID
// and is only visible to the team's members.
type Team struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Plan       TeamPlan       `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	InviteCode string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Members    []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Workspaces []Workspace  `gorm:"foreignKey:TeamID" json:"workspaces,omitempty"`
	Strategies []Strategy   `gorm:"foreignKey:TeamID" json:"strategies,omitempty"`
}
