package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// GormStrategyRepository is a GORM implementation of StrategyRepository
type GormStrategyRepository struct {
	db *gorm.DB
}

// NewStrategyRepository creates a new StrategyRepository
func NewStrategyRepository(db *gorm.DB) StrategyRepository {
	return &GormStrategyRepository{db: db}
}

// Create creates a new strategy
func (r *GormStrategyRepository) Create(strategy *models.Strategy) error {
	return r.db.Create(strategy).Error
}

// FindByID finds a strategy by ID with optional preloading
func (r *GormStrategyRepository) FindByID(id uint64, preload ...string) (*models.Strategy, error) {
	var strategy models.Strategy
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&strategy, id).Error; err != nil {
		return nil, err
	}

	return &strategy, nil
}

// ListByTeam returns all strategies matching the filter for tree assembly
func (r *GormStrategyRepository) ListByTeam(filter StrategyFilter) ([]models.Strategy, error) {
	query := r.db.Where("team_id = ?", filter.TeamID)

	if filter.WorkspaceID != nil {
		query = query.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	} else if !filter.IncludeCompleted {
		query = query.Where("status NOT IN ?", []models.StrategyStatus{
			models.StrategyCompleted,
			models.StrategyArchived,
		})
	}

	var strategies []models.Strategy
	if err := query.Order("sort_index ASC, created_at ASC").Find(&strategies).Error; err != nil {
		return nil, err
	}
	return strategies, nil
}

// ListChildren lists the direct children of a strategy
func (r *GormStrategyRepository) ListChildren(parentID uint64) ([]models.Strategy, error) {
	var children []models.Strategy
	if err := r.db.Where("parent_id = ?", parentID).
		Order("sort_index ASC, created_at ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

// Update updates a strategy
func (r *GormStrategyRepository) Update(strategy *models.Strategy) error {
	return r.db.Save(strategy).Error
}

// UpdateProgress writes only the calculated_progress column
func (r *GormStrategyRepository) UpdateProgress(id uint64, progress float64) error {
	return r.db.Model(&models.Strategy{}).
		Where("id = ?", id).
		Update("calculated_progress", progress).Error
}

// Delete removes the strategy subtree and its alignments in a transaction
func (r *GormStrategyRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Collect the subtree level by level.
		ids := []uint64{id}
		frontier := []uint64{id}
		for len(frontier) > 0 {
			var next []uint64
			if err := tx.Model(&models.Strategy{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			frontier = next
		}

		if err := tx.Where("strategy_id IN ?", ids).Delete(&models.StrategyAlignment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.WorkItem{}).
			Where("strategy_id IN ?", ids).
			Update("strategy_id", nil).Error; err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Delete(&models.Strategy{}).Error
	})
}

// UpsertAlignment creates an additional alignment or revives/updates an existing row
func (r *GormStrategyRepository) UpsertAlignment(alignment *models.StrategyAlignment) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "strategy_id"}, {Name: "work_item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"strength":   alignment.Strength,
				"notes":      alignment.Notes,
				"deleted_at": gorm.Expr("NULL"),
			}),
		}).
		Create(alignment).Error
}

// RemoveAlignment removes an additional alignment row
func (r *GormStrategyRepository) RemoveAlignment(strategyID, workItemID uint64) error {
	return r.db.Where("strategy_id = ? AND work_item_id = ?", strategyID, workItemID).
		Delete(&models.StrategyAlignment{}).Error
}

// FindAlignment finds a specific alignment row
func (r *GormStrategyRepository) FindAlignment(strategyID, workItemID uint64) (*models.StrategyAlignment, error) {
	var alignment models.StrategyAlignment
	if err := r.db.Where("strategy_id = ? AND work_item_id = ?", strategyID, workItemID).
		First(&alignment).Error; err != nil {
		return nil, err
	}
	return &alignment, nil
}

// ListAlignedWorkItems returns work items aligned to the strategy, primary
// first, deduplicated by work-item ID.
func (r *GormStrategyRepository) ListAlignedWorkItems(strategyID uint64) ([]models.WorkItem, error) {
	var primaries []models.WorkItem
	if err := r.db.Where("strategy_id = ?", strategyID).
		Order("created_at ASC").
		Find(&primaries).Error; err != nil {
		return nil, err
	}

	var additional []models.WorkItem
	if err := r.db.
		Joins("JOIN strategy_alignments ON strategy_alignments.work_item_id = work_items.id").
		Where("strategy_alignments.strategy_id = ? AND strategy_alignments.deleted_at IS NULL", strategyID).
		Order("work_items.created_at ASC").
		Find(&additional).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(primaries)+len(additional))
	items := make([]models.WorkItem, 0, len(primaries)+len(additional))
	for _, it := range primaries {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	for _, it := range additional {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}

	return items, nil
}
