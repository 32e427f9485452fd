package repository

import (
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// GormMindMapRepository is a GORM implementation of MindMapRepository
type GormMindMapRepository struct {
	db *gorm.DB
}

// NewMindMapRepository creates a new MindMapRepository
func NewMindMapRepository(db *gorm.DB) MindMapRepository {
	return &GormMindMapRepository{db: db}
}

// Create creates a new mind map
func (r *GormMindMapRepository) Create(m *models.MindMap) error {
	return r.db.Create(m).Error
}

// FindByID finds a mind map by ID
func (r *GormMindMapRepository) FindByID(id uint64) (*models.MindMap, error) {
	var m models.MindMap
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByWorkspace lists all mind maps of a workspace, newest first
func (r *GormMindMapRepository) ListByWorkspace(workspaceID uint64) ([]models.MindMap, error) {
	var maps []models.MindMap
	if err := r.db.Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&maps).Error; err != nil {
		return nil, err
	}
	return maps, nil
}

// Update updates a mind map
func (r *GormMindMapRepository) Update(m *models.MindMap) error {
	return r.db.Save(m).Error
}

// Delete soft deletes a mind map
func (r *GormMindMapRepository) Delete(id uint64) error {
	return r.db.Delete(&models.MindMap{}, id).Error
}
