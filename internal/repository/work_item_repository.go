package repository

import (
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/database"
	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// GormWorkItemRepository is a GORM implementation of WorkItemRepository
type GormWorkItemRepository struct {
	db *gorm.DB
}

// NewWorkItemRepository creates a new WorkItemRepository
func NewWorkItemRepository(db *gorm.DB) WorkItemRepository {
	return &GormWorkItemRepository{db: db}
}

// Create creates a new work item
func (r *GormWorkItemRepository) Create(item *models.WorkItem) error {
	return r.db.Create(item).Error
}

// FindByID finds a work item by ID with optional preloading
func (r *GormWorkItemRepository) FindByID(id uint64, preload ...string) (*models.WorkItem, error) {
	var item models.WorkItem
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&item, id).Error; err != nil {
		return nil, err
	}

	return &item, nil
}

// List retrieves work items with filtering and pagination
func (r *GormWorkItemRepository) List(filter WorkItemFilter) ([]models.WorkItem, int64, error) {
	var items []models.WorkItem

	query := r.db.Model(&models.WorkItem{}).Where("work_items.team_id = ?", filter.TeamID)

	if filter.WorkspaceID != nil {
		query = query.Where("work_items.workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.Type != nil {
		query = query.Where("work_items.type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("work_items.status = ?", *filter.Status)
	}
	if filter.StrategyID != nil {
		// Primary alignment or an additional alignment row.
		alignmentSubQuery := r.db.Model(&models.StrategyAlignment{}).
			Select("1").
			Where("strategy_alignments.work_item_id = work_items.id").
			Where("strategy_alignments.strategy_id = ?", *filter.StrategyID).
			Where("strategy_alignments.deleted_at IS NULL")
		query = query.Where("work_items.strategy_id = ? OR EXISTS (?)", *filter.StrategyID, alignmentSubQuery)
	}
	if filter.CreatorID != nil {
		query = query.Where("work_items.creator_id = ?", *filter.CreatorID)
	}
	if filter.DueBefore != nil {
		query = query.Where("work_items.due_date < ?", *filter.DueBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("work_items.created_at DESC")
	if filter.Pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(filter.Pagination))
	}

	if err := listQuery.Preload("Creator").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update updates a work item
func (r *GormWorkItemRepository) Update(item *models.WorkItem) error {
	return r.db.Save(item).Error
}

// Delete soft deletes a work item and its alignment rows
func (r *GormWorkItemRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("work_item_id = ?", id).Delete(&models.StrategyAlignment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.WorkItem{}, id).Error
	})
}
