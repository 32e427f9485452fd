package repository

import (
	"time"

	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// CreateWithPersonalTeam creates a user, their personal team, and the
	// owner membership within a single transaction.
	CreateWithPersonalTeam(user *models.User, team *models.Team, member *models.TeamMember) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a new team
	Create(team *models.Team) error

	// FindByID finds a team by ID
	FindByID(id uint64) (*models.Team, error)

	// FindByInviteCode finds a team by invite code
	FindByInviteCode(code string) (*models.Team, error)

	// Update updates a team
	Update(team *models.Team) error

	// Delete deletes a team and everything it owns in one transaction
	Delete(id uint64) error

	// AddMember adds a member to a team
	AddMember(member *models.TeamMember) error

	// RemoveMember removes a member from a team
	RemoveMember(teamID, userID uint64) error

	// FindMember finds a specific team member
	FindMember(teamID, userID uint64) (*models.TeamMember, error)

	// ListMembershipsByUserID lists all teams a user is a member of
	ListMembershipsByUserID(userID uint64) ([]models.TeamMember, error)

	// ListMembers lists all members of a team
	ListMembers(teamID uint64) ([]models.TeamMember, error)
}

// WorkspaceRepository defines the interface for workspace data access
type WorkspaceRepository interface {
	Create(ws *models.Workspace) error
	FindByID(id uint64) (*models.Workspace, error)
	ListByTeam(teamID uint64) ([]models.Workspace, error)
	Update(ws *models.Workspace) error

	// Delete removes the workspace, its work items and mind maps, and
	// detaches workspace-scoped strategies, in one transaction.
	Delete(id uint64) error
}

// WorkItemFilter holds filtering options for listing work items
type WorkItemFilter struct {
	TeamID      uint64
	WorkspaceID *uint64
	Type        *models.WorkItemType
	Status      *models.WorkItemStatus
	StrategyID  *uint64
	CreatorID   *uint64
	DueBefore   *time.Time
	Pagination  utils.PaginationParams
}

// WorkItemRepository defines the interface for work-item data access
type WorkItemRepository interface {
	Create(item *models.WorkItem) error

	// FindByID finds a work item by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.WorkItem, error)

	List(filter WorkItemFilter) ([]models.WorkItem, int64, error)
	Update(item *models.WorkItem) error

	// Delete soft deletes a work item together with its alignments
	Delete(id uint64) error
}

// StrategyFilter holds filtering options for listing strategies
type StrategyFilter struct {
	TeamID           uint64
	WorkspaceID      *uint64
	Status           *models.StrategyStatus
	IncludeCompleted bool
}

// StrategyRepository defines the interface for strategy data access
type StrategyRepository interface {
	Create(strategy *models.Strategy) error
	FindByID(id uint64, preload ...string) (*models.Strategy, error)

	// ListByTeam returns all strategies matching the filter, ordered by
	// sort_index then created_at, for in-memory tree assembly.
	ListByTeam(filter StrategyFilter) ([]models.Strategy, error)

	ListChildren(parentID uint64) ([]models.Strategy, error)
	Update(strategy *models.Strategy) error

	// UpdateProgress writes only the calculated_progress column.
	UpdateProgress(id uint64, progress float64) error

	// Delete removes the strategy and all of its descendants, their
	// alignments, and clears primary alignments pointing at them, in one
	// transaction.
	Delete(id uint64) error

	// UpsertAlignment creates or revives an additional alignment row
	UpsertAlignment(alignment *models.StrategyAlignment) error

	RemoveAlignment(strategyID, workItemID uint64) error
	FindAlignment(strategyID, workItemID uint64) (*models.StrategyAlignment, error)

	// ListAlignedWorkItems returns work items aligned to the strategy,
	// primary alignments first, deduplicated by work-item ID.
	ListAlignedWorkItems(strategyID uint64) ([]models.WorkItem, error)
}

// MindMapRepository defines the interface for mind-map data access
type MindMapRepository interface {
	Create(m *models.MindMap) error
	FindByID(id uint64) (*models.MindMap, error)
	ListByWorkspace(workspaceID uint64) ([]models.MindMap, error)
	Update(m *models.MindMap) error
	Delete(id uint64) error
}
