package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"revit-qc/internal/domain"
)

// ErrNotFound is returned when the addressed row does not exist
var ErrNotFound = errors.New("not found")

// pageOffset row offset of a 1-based page. Saturates at math.MaxInt instead of overflowing.
func pageOffset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

// DirectoriesRepository directories table
type DirectoriesRepository interface {
	// ListDirectories newest first
	ListDirectories(ctx context.Context) ([]domain.Directory, error)
	GetDirectory(ctx context.Context, directoryID int64) (*domain.Directory, error)
}

// ModelsRepository models table. Reference models are returned too; filtering is the caller's job.
type ModelsRepository interface {
	// ListModels returns the models of a directory, or of every directory when directoryID is 0
	ListModels(ctx context.Context, directoryID int64) ([]domain.Model, error)
	GetModel(ctx context.Context, modelID int64) (*domain.Model, error)
	// DeleteModel removes the model with its runs, error rows and reference geometry in one transaction
	DeleteModel(ctx context.Context, modelID int64) error
}

// RunFilter optional window for ListRuns
type RunFilter struct {
	From  *time.Time // check_date >= From
	To    *time.Time // check_date <= To
	Limit int
}

// CheckRunsRepository <kind>_check_results and <kind>_errors tables.
// "Latest" always means highest id.
type CheckRunsRepository interface {
	// LatestRuns resolves the latest run per model. nil modelIDs means every model.
	// Models never checked are absent from the map.
	LatestRuns(ctx context.Context, kind domain.CheckKind, modelIDs []int64) (map[int64]domain.CheckRun, error)
	// LatestRun returns nil, nil when the model has no runs
	LatestRun(ctx context.Context, kind domain.CheckKind, modelID int64) (*domain.CheckRun, error)
	// ListRuns newest id first
	ListRuns(ctx context.Context, kind domain.CheckKind, modelID int64, filter RunFilter) ([]domain.CheckRun, error)
	ListErrors(ctx context.Context, kind domain.CheckKind, runID int64) ([]domain.ErrorRecord, error)
	// DeleteRun removes the run and its error rows in one transaction
	DeleteRun(ctx context.Context, kind domain.CheckKind, runID int64) error
}

// ReferenceRepository reference geometry of a directory's reference model
type ReferenceRepository interface {
	ReferenceAxes(ctx context.Context, directoryID int64) ([]domain.ReferenceAxis, error)
	ReferenceLevels(ctx context.Context, directoryID int64) ([]domain.ReferenceLevel, error)
}

// ClashResultFilter optional filters of ListClashResults
type ClashResultFilter struct {
	Status string
}

// ClashRepository clash_files, clash_tests, clash_test_history, clash_results
type ClashRepository interface {
	// ListClashFiles of a directory, or of every directory when directoryID is 0
	ListClashFiles(ctx context.Context, directoryID int64) ([]domain.ClashFile, error)
	// ListClashTests of a directory (0 = all). A non-empty testIDs restricts the result to those ids.
	ListClashTests(ctx context.Context, directoryID int64, testIDs []int64) ([]domain.ClashTest, error)
	// ListClashSnapshots archived rows of testIDs with since <= snapshot_date <= until. Empty testIDs yields nothing.
	ListClashSnapshots(ctx context.Context, testIDs []int64, since, until time.Time) ([]domain.ClashHistorySnapshot, error)
	// ListClashResults paged results of one test ordered by id; returns the unpaged total as well
	ListClashResults(ctx context.Context, testID int64, filter ClashResultFilter, page, size int) ([]domain.ClashResult, int, error)
	// DeleteClashFile removes the file, its tests, their snapshots and results in one transaction
	DeleteClashFile(ctx context.Context, fileID int64) error
}

// Repositories bundles every repository the services need
type Repositories struct {
	Directories DirectoriesRepository
	Models      ModelsRepository
	Runs        CheckRunsRepository
	References  ReferenceRepository
	Clash       ClashRepository
}
