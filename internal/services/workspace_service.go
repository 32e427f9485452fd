package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
)

var (
	ErrWorkspaceNotFound    = errors.New("workspace not found")
	ErrInvalidWorkspaceName = errors.New("workspace name cannot be empty")
	ErrInvalidWorkspaceMode = errors.New("unknown workspace mode")
	ErrNotTeamMember        = errors.New("user is not a member of the team")
)

// WorkspaceService provides business logic for workspace operations.
type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	teamRepo      repository.TeamRepository
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, teamRepo repository.TeamRepository) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		teamRepo:      teamRepo,
	}
}

// CreateWorkspaceInput represents parameters to create a workspace.
type CreateWorkspaceInput struct {
	TeamID      uint64
	Name        string
	Description string
	Mode        models.WorkspaceMode
	ActorID     uint64
}

// CreateWorkspace creates a workspace inside a team.
func (s *WorkspaceService) CreateWorkspace(input CreateWorkspaceInput) (*models.Workspace, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidWorkspaceName
	}
	if input.Mode == "" {
		input.Mode = models.ModeDesign
	}
	if !models.ValidWorkspaceMode(input.Mode) {
		return nil, ErrInvalidWorkspaceMode
	}

	if err := s.ensureTeamMember(input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	ws := &models.Workspace{
		TeamID:      input.TeamID,
		Name:        input.Name,
		Description: input.Description,
		Mode:        input.Mode,
	}

	if err := s.workspaceRepo.Create(ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return ws, nil
}

// ListWorkspaces lists a team's workspaces for a member.
func (s *WorkspaceService) ListWorkspaces(teamID, actorID uint64) ([]models.Workspace, error) {
	if err := s.ensureTeamMember(teamID, actorID); err != nil {
		return nil, err
	}

	workspaces, err := s.workspaceRepo.ListByTeam(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// UpdateWorkspaceInput holds the updatable workspace fields.
type UpdateWorkspaceInput struct {
	Name        *string
	Description *string
	Mode        *models.WorkspaceMode
}

// UpdateWorkspace applies a partial update to a workspace.
func (s *WorkspaceService) UpdateWorkspace(workspaceID uint64, input UpdateWorkspaceInput) (*models.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidWorkspaceName
		}
		ws.Name = *input.Name
	}
	if input.Description != nil {
		ws.Description = *input.Description
	}
	if input.Mode != nil {
		if !models.ValidWorkspaceMode(*input.Mode) {
			return nil, ErrInvalidWorkspaceMode
		}
		ws.Mode = *input.Mode
	}

	if err := s.workspaceRepo.Update(ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}

	return ws, nil
}

// DeleteWorkspace removes a workspace and its contents.
func (s *WorkspaceService) DeleteWorkspace(workspaceID uint64) error {
	if _, err := s.workspaceRepo.FindByID(workspaceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("failed to find workspace: %w", err)
	}

	if err := s.workspaceRepo.Delete(workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	return nil
}

func (s *WorkspaceService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}
