package repository

import (
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// Create creates a new workspace
func (r *GormWorkspaceRepository) Create(ws *models.Workspace) error {
	return r.db.Create(ws).Error
}

// FindByID finds a workspace by ID
func (r *GormWorkspaceRepository) FindByID(id uint64) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.First(&ws, id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// ListByTeam lists all workspaces of a team, newest first
func (r *GormWorkspaceRepository) ListByTeam(teamID uint64) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	if err := r.db.Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}

// Update updates a workspace
func (r *GormWorkspaceRepository) Update(ws *models.Workspace) error {
	return r.db.Save(ws).Error
}

// Delete removes the workspace and its contents in a transaction.
// Workspace-scoped strategies survive as team-wide strategies.
func (r *GormWorkspaceRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var itemIDs []uint64
		if err := tx.Model(&models.WorkItem{}).Where("workspace_id = ?", id).Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("work_item_id IN ?", itemIDs).Delete(&models.StrategyAlignment{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", id).Delete(&models.MindMap{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Strategy{}).Where("workspace_id = ?", id).
			Update("workspace_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Workspace{}, id).Error
	})
}
