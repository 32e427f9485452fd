package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB opens a gorm connection backed by sqlmock so the exact SQL
// issued by the repository can be asserted.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestGormStrategyRepository_UpdateProgress(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStrategyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `strategies` SET `calculated_progress`=(.+) WHERE id = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateProgress(42, 75)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStrategyRepository_RemoveAlignment(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStrategyRepository(db)

	// Alignment rows soft delete; removal is an UPDATE of deleted_at.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `strategy_alignments` SET `deleted_at`=(.+) WHERE \\(strategy_id = (.+) AND work_item_id = (.+)\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RemoveAlignment(7, 13)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
