package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
	"github.com/stridehq/product-lifecycle-api/internal/utils"
)

var (
	ErrWorkItemNotFound      = errors.New("work item not found")
	ErrWorkItemTitleRequired = errors.New("title is required")
	ErrInvalidWorkItemType   = errors.New("unknown work item type")
	ErrInvalidWorkItemStatus = errors.New("unknown work item status")
	ErrStrategyTeamMismatch  = errors.New("strategy does not belong to the same team")
)

// WorkItemService handles work-item business logic.
type WorkItemService struct {
	workItemRepo  repository.WorkItemRepository
	workspaceRepo repository.WorkspaceRepository
	strategyRepo  repository.StrategyRepository
	teamRepo      repository.TeamRepository
	strategySvc   *StrategyService
}

// NewWorkItemService creates a new WorkItemService.
func NewWorkItemService(
	workItemRepo repository.WorkItemRepository,
	workspaceRepo repository.WorkspaceRepository,
	strategyRepo repository.StrategyRepository,
	teamRepo repository.TeamRepository,
	strategySvc *StrategyService,
) *WorkItemService {
	return &WorkItemService{
		workItemRepo:  workItemRepo,
		workspaceRepo: workspaceRepo,
		strategyRepo:  strategyRepo,
		teamRepo:      teamRepo,
		strategySvc:   strategySvc,
	}
}

// CreateWorkItemInput represents input for creating a work item.
type CreateWorkItemInput struct {
	WorkspaceID uint64
	Type        models.WorkItemType
	Title       string
	Description string
	Status      models.WorkItemStatus
	Priority    models.WorkItemPriority
	StrategyID  *uint64
	DueDate     *time.Time
	CreatorID   uint64
}

// CreateWorkItem creates a work item inside a workspace. The team is derived
// from the workspace; the creator must be a member.
func (s *WorkItemService) CreateWorkItem(input CreateWorkItemInput) (*models.WorkItem, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrWorkItemTitleRequired
	}

	ws, err := s.workspaceRepo.FindByID(input.WorkspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	if err := s.ensureTeamMember(ws.TeamID, input.CreatorID); err != nil {
		return nil, err
	}

	if input.Type == "" {
		input.Type = models.TypeTask
	}
	if !models.ValidWorkItemType(input.Type) {
		return nil, ErrInvalidWorkItemType
	}
	if input.Status == "" {
		input.Status = models.StatusBacklog
	}
	if !models.ValidWorkItemStatus(input.Status) {
		return nil, ErrInvalidWorkItemStatus
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	if input.StrategyID != nil {
		if err := s.ensureStrategyInTeam(*input.StrategyID, ws.TeamID); err != nil {
			return nil, err
		}
	}

	item := &models.WorkItem{
		TeamID:      ws.TeamID,
		WorkspaceID: ws.ID,
		Type:        input.Type,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		StrategyID:  input.StrategyID,
		DueDate:     input.DueDate,
		CreatorID:   input.CreatorID,
	}

	if err := s.workItemRepo.Create(item); err != nil {
		return nil, fmt.Errorf("failed to create work item: %w", err)
	}

	if item.StrategyID != nil {
		s.strategySvc.RecalculateProgress(*item.StrategyID)
	}

	return s.workItemRepo.FindByID(item.ID, "Creator", "Strategy")
}

// ListWorkItemsInput represents filters for listing work items.
type ListWorkItemsInput struct {
	TeamID      uint64
	ActorID     uint64
	WorkspaceID *uint64
	Type        *models.WorkItemType
	Status      *models.WorkItemStatus
	StrategyID  *uint64
	CreatorID   *uint64
	DueBefore   *time.Time
	Pagination  utils.PaginationParams
}

// ListWorkItems returns work items visible to a team member.
func (s *WorkItemService) ListWorkItems(input ListWorkItemsInput) ([]models.WorkItem, int64, error) {
	if err := s.ensureTeamMember(input.TeamID, input.ActorID); err != nil {
		return nil, 0, err
	}

	filter := repository.WorkItemFilter{
		TeamID:      input.TeamID,
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Status:      input.Status,
		StrategyID:  input.StrategyID,
		CreatorID:   input.CreatorID,
		DueBefore:   input.DueBefore,
		Pagination:  input.Pagination,
	}

	items, total, err := s.workItemRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work items: %w", err)
	}

	return items, total, nil
}

// GetWorkItem returns a work item with related data.
func (s *WorkItemService) GetWorkItem(itemID uint64) (*models.WorkItem, error) {
	item, err := s.workItemRepo.FindByID(itemID, "Creator", "Strategy", "Alignments", "Alignments.Strategy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkItemNotFound
		}
		return nil, fmt.Errorf("failed to find work item: %w", err)
	}

	return item, nil
}

// UpdateWorkItemInput represents input for a partial work-item update.
type UpdateWorkItemInput struct {
	Type          *models.WorkItemType
	Title         *string
	Description   *string
	Status        *models.WorkItemStatus
	Priority      *models.WorkItemPriority
	StrategyID    *uint64
	ClearStrategy bool
	DesignNotes   *string
	BuildNotes    *string
	RefineNotes   *string
	LaunchNotes   *string
	DueDate       *time.Time
	ClearDueDate  bool
}

// UpdateWorkItem applies a partial update, revalidating type, status and the
// strategy's team. Progress of affected strategies is recalculated.
func (s *WorkItemService) UpdateWorkItem(itemID uint64, input UpdateWorkItemInput) (*models.WorkItem, error) {
	item, err := s.workItemRepo.FindByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkItemNotFound
		}
		return nil, fmt.Errorf("failed to find work item: %w", err)
	}

	prevStrategyID := item.StrategyID
	prevComplete := item.Status.IsComplete()

	if input.Type != nil {
		if !models.ValidWorkItemType(*input.Type) {
			return nil, ErrInvalidWorkItemType
		}
		item.Type = *input.Type
	}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrWorkItemTitleRequired
		}
		item.Title = *input.Title
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Status != nil {
		if !models.ValidWorkItemStatus(*input.Status) {
			return nil, ErrInvalidWorkItemStatus
		}
		item.Status = *input.Status
	}
	if input.Priority != nil {
		item.Priority = *input.Priority
	}
	if input.ClearStrategy {
		item.StrategyID = nil
	} else if input.StrategyID != nil {
		if err := s.ensureStrategyInTeam(*input.StrategyID, item.TeamID); err != nil {
			return nil, err
		}
		item.StrategyID = input.StrategyID
	}
	if input.DesignNotes != nil {
		item.DesignNotes = *input.DesignNotes
	}
	if input.BuildNotes != nil {
		item.BuildNotes = *input.BuildNotes
	}
	if input.RefineNotes != nil {
		item.RefineNotes = *input.RefineNotes
	}
	if input.LaunchNotes != nil {
		item.LaunchNotes = *input.LaunchNotes
	}
	if input.ClearDueDate {
		item.DueDate = nil
	} else if input.DueDate != nil {
		item.DueDate = input.DueDate
	}

	if err := s.workItemRepo.Update(item); err != nil {
		return nil, fmt.Errorf("failed to update work item: %w", err)
	}

	statusChanged := prevComplete != item.Status.IsComplete()
	if prevStrategyID != nil && (item.StrategyID == nil || *item.StrategyID != *prevStrategyID || statusChanged) {
		s.strategySvc.RecalculateProgress(*prevStrategyID)
	}
	if item.StrategyID != nil && (prevStrategyID == nil || *item.StrategyID != *prevStrategyID || statusChanged) {
		s.strategySvc.RecalculateProgress(*item.StrategyID)
	}
	if statusChanged {
		s.recalculateAdditionalAlignments(item.ID)
	}

	return s.workItemRepo.FindByID(item.ID, "Creator", "Strategy")
}

// DeleteWorkItem soft deletes a work item and its alignments.
func (s *WorkItemService) DeleteWorkItem(itemID uint64) error {
	item, err := s.workItemRepo.FindByID(itemID, "Alignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkItemNotFound
		}
		return fmt.Errorf("failed to find work item: %w", err)
	}

	affected := make([]uint64, 0, len(item.Alignments)+1)
	if item.StrategyID != nil {
		affected = append(affected, *item.StrategyID)
	}
	for _, a := range item.Alignments {
		affected = append(affected, a.StrategyID)
	}

	if err := s.workItemRepo.Delete(itemID); err != nil {
		return fmt.Errorf("failed to delete work item: %w", err)
	}

	for _, id := range affected {
		s.strategySvc.RecalculateProgress(id)
	}

	return nil
}

func (s *WorkItemService) recalculateAdditionalAlignments(itemID uint64) {
	item, err := s.workItemRepo.FindByID(itemID, "Alignments")
	if err != nil {
		return
	}
	for _, a := range item.Alignments {
		s.strategySvc.RecalculateProgress(a.StrategyID)
	}
}

func (s *WorkItemService) ensureStrategyInTeam(strategyID, teamID uint64) error {
	strategy, err := s.strategyRepo.FindByID(strategyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStrategyNotFound
		}
		return fmt.Errorf("failed to find strategy: %w", err)
	}
	if strategy.TeamID != teamID {
		return ErrStrategyTeamMismatch
	}
	return nil
}

func (s *WorkItemService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}
