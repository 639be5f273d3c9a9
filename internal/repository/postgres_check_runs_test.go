package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revit-qc/internal/domain"
)

var runCols = []string{"id", "model_id", "check_date", "check_type", "total_in_model", "total_reference", "error_count"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestLatestRuns_AllModels(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(runCols).
		AddRow(12, 1, at, "manual", 20, 18, 3).
		AddRow(7, 2, at, nil, 10, 10, 0)

	mock.ExpectQuery(`FROM axis_check_results r\s+INNER JOIN \(SELECT model_id, MAX\(id\) AS latest_id FROM axis_check_results GROUP BY model_id\)`).
		WillReturnRows(rows)

	latest, err := repo.LatestRuns(context.Background(), domain.CheckKindAxis, nil)

	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(12), latest[1].ID)
	assert.Equal(t, 3, latest[1].ErrorCount)
	assert.Equal(t, domain.CheckKindAxis, latest[1].Kind)
	assert.Equal(t, "", latest[2].CheckType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRuns_RestrictedToModels(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	mock.ExpectQuery(`FROM level_check_results WHERE model_id = ANY\(\$1\) GROUP BY model_id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(runCols).AddRow(4, 3, time.Now(), "auto", 5, 6, 1))

	latest, err := repo.LatestRuns(context.Background(), domain.CheckKindLevel, []int64{3, 9})

	require.NoError(t, err)
	assert.Len(t, latest, 1)
	assert.Equal(t, domain.CheckKindLevel, latest[3].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRuns_EmptyModelSetSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	latest, err := repo.LatestRuns(context.Background(), domain.CheckKindAxis, []int64{})

	require.NoError(t, err)
	assert.Empty(t, latest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRuns_UnknownKind(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	_, err := repo.LatestRuns(context.Background(), domain.CheckKind("grid"), nil)
	assert.Error(t, err)
}

func TestLatestRun_OrdersByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	mock.ExpectQuery(`FROM axis_check_results\s+WHERE model_id = \$1\s+ORDER BY id DESC\s+LIMIT 1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(runCols).AddRow(30, 5, time.Now(), "manual", 8, 8, 2))

	run, err := repo.LatestRun(context.Background(), domain.CheckKindAxis, 5)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, int64(30), run.ID)
	assert.Equal(t, 6, run.SuccessCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRun_NeverChecked(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	mock.ExpectQuery(`FROM level_check_results`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(runCols))

	run, err := repo.LatestRun(context.Background(), domain.CheckKindLevel, 5)

	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns_WithWindowAndLimit(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE model_id = \$1 AND check_date >= \$2 AND check_date <= \$3 ORDER BY id DESC LIMIT \$4`).
		WithArgs(int64(2), from, to, 10).
		WillReturnRows(sqlmock.NewRows(runCols).
			AddRow(9, 2, to, "manual", 4, 4, 0).
			AddRow(3, 2, from, "manual", 4, 4, 1))

	runs, err := repo.ListRuns(context.Background(), domain.CheckKindAxis, 2, RunFilter{From: &from, To: &to, Limit: 10})

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(9), runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListErrors_NullableColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	rows := sqlmock.NewRows([]string{"id", "check_result_id", "axis_name", "element_id", "error_types", "deviation_mm", "is_pinned", "workset_name"}).
		AddRow(1, 12, "A", "3301", "Offset;Angle", 12.5, true, "Shared Levels").
		AddRow(2, 12, "B", nil, nil, nil, nil, nil).
		AddRow(3, 12, "C", "77", "Missing", nil, false, nil)

	mock.ExpectQuery(`SELECT id, check_result_id, axis_name, element_id, error_types, deviation_mm, is_pinned, workset_name\s+FROM axis_errors\s+WHERE check_result_id = \$1\s+ORDER BY axis_name, id`).
		WithArgs(int64(12)).
		WillReturnRows(rows)

	recs, err := repo.ListErrors(context.Background(), domain.CheckKindAxis, 12)

	require.NoError(t, err)
	require.Len(t, recs, 3)

	require.NotNil(t, recs[0].ElementID)
	assert.Equal(t, "3301", *recs[0].ElementID)
	require.NotNil(t, recs[0].DeviationMM)
	assert.Equal(t, 12.5, *recs[0].DeviationMM)
	assert.Equal(t, domain.PinPinned, recs[0].Pin)
	require.NotNil(t, recs[0].Workset)

	assert.Nil(t, recs[1].ElementID)
	assert.Equal(t, "", recs[1].ErrorTypes)
	assert.Nil(t, recs[1].DeviationMM)
	assert.Equal(t, domain.PinUnknown, recs[1].Pin)
	assert.Nil(t, recs[1].Workset)

	assert.Equal(t, domain.PinUnpinned, recs[2].Pin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRun_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM level_errors WHERE check_result_id = \$1`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM level_check_results WHERE id = \$1`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteRun(context.Background(), domain.CheckKindLevel, 8)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRun_NotFoundRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresCheckRunsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM axis_errors`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM axis_check_results`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteRun(context.Background(), domain.CheckKindAxis, 8)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
