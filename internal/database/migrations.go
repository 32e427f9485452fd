package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds composite indexes AutoMigrate does not create.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"work_items", "idx_work_items_team_status", "team_id, status"},
		{"work_items", "idx_work_items_workspace_type", "workspace_id, type"},
		{"work_items", "idx_work_items_strategy_id", "strategy_id"},
		{"strategies", "idx_strategies_team_parent", "team_id, parent_id"},
		{"strategies", "idx_strategies_team_status", "team_id, status"},
		{"strategy_alignments", "idx_alignments_work_item_id", "work_item_id"},
		{"team_members", "idx_team_members_user_id", "user_id"},
		{"mind_maps", "idx_mind_maps_workspace_id", "workspace_id"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?
		`, idx.table, idx.name).Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}
		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
