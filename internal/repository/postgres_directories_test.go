package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revit-qc/internal/domain"
)

func TestListDirectories(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDirectoriesRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM directories\s+ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "created_at"}).
			AddRow(2, "B-200", now).
			AddRow(1, "A-100", now.Add(-time.Hour)))

	dirs, err := repo.ListDirectories(context.Background())

	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "B-200", dirs[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDirectory_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDirectoriesRepository(db)

	mock.ExpectQuery(`FROM directories WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "created_at"}))

	_, err := repo.GetDirectory(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListModels_ScopedToDirectory(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresModelsRepository(db)

	mock.ExpectQuery(`FROM models WHERE directory_id = \$1 ORDER BY model_name, id`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "directory_id", "model_name", "updated_at"}).
			AddRow(10, 3, "ARCH", time.Now()).
			AddRow(11, 3, domain.ReferenceModelName, time.Now()))

	models, err := repo.ListModels(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.True(t, models[1].IsReference())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListModels_AllDirectories(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresModelsRepository(db)

	mock.ExpectQuery(`SELECT id, directory_id, model_name, updated_at FROM models ORDER BY model_name, id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "directory_id", "model_name", "updated_at"}))

	models, err := repo.ListModels(context.Background(), 0)

	require.NoError(t, err)
	assert.NotNil(t, models)
	assert.Empty(t, models)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectModelCascade(mock sqlmock.Sqlmock, modelID int64) {
	for _, tbl := range []string{"axis", "level"} {
		mock.ExpectExec(`DELETE FROM ` + tbl + `_errors WHERE check_result_id IN \(SELECT id FROM ` + tbl + `_check_results WHERE model_id = \$1\)`).
			WithArgs(modelID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM ` + tbl + `_check_results WHERE model_id = \$1`).
			WithArgs(modelID).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(`DELETE FROM axes WHERE model_id = \$1`).
		WithArgs(modelID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM levels WHERE model_id = \$1`).
		WithArgs(modelID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestDeleteModel_Cascades(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresModelsRepository(db)

	mock.ExpectBegin()
	expectModelCascade(mock, 4)
	mock.ExpectExec(`DELETE FROM models WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteModel(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteModel_FailureRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresModelsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM axis_errors`).
		WithArgs(int64(4)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.DeleteModel(context.Background(), 4)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceAxes(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresReferenceRepository(db)

	mock.ExpectQuery(`FROM axes a\s+JOIN models m ON a.model_id = m.id\s+WHERE m.directory_id = \$1 AND m.model_name = \$2`).
		WithArgs(int64(1), domain.ReferenceModelName).
		WillReturnRows(sqlmock.NewRows([]string{"id", "model_id", "axis_name", "x1", "y1", "x2", "y2", "created_at"}).
			AddRow(1, 5, "A", 0.0, 0.0, 0.0, 12000.0, time.Now()))

	axes, err := repo.ReferenceAxes(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, axes, 1)
	assert.Equal(t, 12000.0, axes[0].Y2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceLevels(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresReferenceRepository(db)

	mock.ExpectQuery(`FROM levels l`).
		WithArgs(int64(1), domain.ReferenceModelName).
		WillReturnRows(sqlmock.NewRows([]string{"id", "model_id", "level_name", "elevation", "created_at"}).
			AddRow(1, 5, "L01", 0.0, time.Now()).
			AddRow(2, 5, "L02", 3600.0, time.Now()))

	levels, err := repo.ReferenceLevels(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, 3600.0, levels[1].Elevation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
