package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"revit-qc/internal/aggregator"
	"revit-qc/internal/audit"
	"revit-qc/internal/domain"
	"revit-qc/internal/repository"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// InspectionService directory / model rollups, reports and axis-level deletions.
// Every call recomputes from storage; the service keeps no state between requests.
type InspectionService struct {
	repos     repository.Repositories
	deletions *DeletionNotifier
	logger    *zap.Logger
}

func NewInspectionService(repos repository.Repositories, deletions *DeletionNotifier, logger *zap.Logger) *InspectionService {
	return &InspectionService{
		repos:     repos,
		deletions: deletions,
		logger:    logger,
	}
}

// portfolio everything ListDirectories and OverallStats fold over
type portfolio struct {
	dirs   []domain.Directory
	models []domain.Model
	latest map[domain.CheckKind]map[int64]domain.CheckRun
	files  []domain.ClashFile
	tests  []domain.ClashTest
}

func (s *InspectionService) loadPortfolio(ctx context.Context) (*portfolio, error) {
	p := &portfolio{latest: make(map[domain.CheckKind]map[int64]domain.CheckRun, len(domain.CheckKinds))}
	var err error

	if p.dirs, err = s.repos.Directories.ListDirectories(ctx); err != nil {
		return nil, err
	}
	if p.models, err = s.repos.Models.ListModels(ctx, 0); err != nil {
		return nil, err
	}
	for _, kind := range domain.CheckKinds {
		latest, err := s.repos.Runs.LatestRuns(ctx, kind, nil)
		if err != nil {
			return nil, err
		}
		p.latest[kind] = latest
	}
	if p.files, err = s.repos.Clash.ListClashFiles(ctx, 0); err != nil {
		return nil, err
	}
	if p.tests, err = s.repos.Clash.ListClashTests(ctx, 0, nil); err != nil {
		return nil, err
	}
	return p, nil
}

// ListDirectories rollups of every directory, newest first
func (s *InspectionService) ListDirectories(ctx context.Context) ([]DirectorySummary, error) {
	p, err := s.loadPortfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load directories: %w", err)
	}

	axis := aggregator.RollupByDirectory(p.models, p.latest[domain.CheckKindAxis])
	level := aggregator.RollupByDirectory(p.models, p.latest[domain.CheckKindLevel])
	clash := aggregator.RollupClashByDirectory(p.files, p.tests)

	out := make([]DirectorySummary, 0, len(p.dirs))
	for _, d := range p.dirs {
		a, l, c := axis[d.ID], level[d.ID], clash[d.ID]
		out = append(out, DirectorySummary{
			ID:                    d.ID,
			Name:                  d.Code,
			CreatedAt:             d.CreatedAt,
			TotalModels:           a.TotalModels,
			AxisCheckedModels:     a.CheckedModels,
			AxisModelsWithErrors:  a.ErrorModels,
			AxisTotalErrors:       a.TotalErrors,
			LevelCheckedModels:    l.CheckedModels,
			LevelModelsWithErrors: l.ErrorModels,
			LevelTotalErrors:      l.TotalErrors,
			ClashFiles:            c.Files,
			ClashTests:            c.Tests,
			ClashActive:           c.Active(),
		})
	}
	return out, nil
}

// OverallStats portfolio-wide rollup
func (s *InspectionService) OverallStats(ctx context.Context) (*OverallStats, error) {
	p, err := s.loadPortfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	axis := aggregator.RollupModels(p.models, p.latest[domain.CheckKindAxis])
	level := aggregator.RollupModels(p.models, p.latest[domain.CheckKindLevel])

	var clash ClashStats
	for _, c := range aggregator.RollupClashByDirectory(p.files, p.tests) {
		clash.Files += c.Files
		clash.Tests += c.Tests
		clash.Active += c.Active()
	}

	return &OverallStats{
		TotalDirectories: len(p.dirs),
		TotalModels:      axis.TotalModels,
		Axis:             domainStats(axis),
		Level:            domainStats(level),
		Clash:            clash,
	}, nil
}

// ListDirectoryModels non-reference models of a directory with their latest axis and level runs,
// most recently axis-checked first (never checked last), then by name.
// An unknown directory yields an empty list.
func (s *InspectionService) ListDirectoryModels(ctx context.Context, directoryID int64) ([]ModelSummary, error) {
	models, err := s.repos.Models.ListModels(ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models = aggregator.InScope(models)

	ids := make([]int64, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	latest := make(map[domain.CheckKind]map[int64]domain.CheckRun, len(domain.CheckKinds))
	for _, kind := range domain.CheckKinds {
		runs, err := s.repos.Runs.LatestRuns(ctx, kind, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest %s runs: %w", kind, err)
		}
		latest[kind] = runs
	}

	out := make([]ModelSummary, 0, len(models))
	for _, m := range models {
		out = append(out, ModelSummary{
			ID:        m.ID,
			ModelName: m.Name,
			UpdatedAt: m.UpdatedAt,
			Axis:      runSummary(runOf(latest[domain.CheckKindAxis], m.ID)),
			Level:     runSummary(runOf(latest[domain.CheckKindLevel], m.ID)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Axis, out[j].Axis
		switch {
		case a != nil && b != nil && !a.CheckDate.Equal(b.CheckDate):
			return a.CheckDate.After(b.CheckDate)
		case (a == nil) != (b == nil):
			return a != nil
		}
		if out[i].ModelName != out[j].ModelName {
			return out[i].ModelName < out[j].ModelName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func runOf(latest map[int64]domain.CheckRun, modelID int64) *domain.CheckRun {
	if run, ok := latest[modelID]; ok {
		return &run
	}
	return nil
}

// GetCheckReport latest-run report of a model. Unknown or never-checked models yield HasData=false.
func (s *InspectionService) GetCheckReport(ctx context.Context, modelID int64, kind domain.CheckKind) (*CheckReport, error) {
	model, err := s.repos.Models.GetModel(ctx, modelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return checkReport(nil, modelID, kind, aggregator.AssembleReport(nil, nil)), nil
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	run, err := s.repos.Runs.LatestRun(ctx, kind, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest %s run: %w", kind, err)
	}
	if run == nil {
		return checkReport(model, modelID, kind, aggregator.AssembleReport(nil, nil)), nil
	}

	records, err := s.repos.Runs.ListErrors(ctx, kind, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s errors: %w", kind, err)
	}
	return checkReport(model, modelID, kind, aggregator.AssembleReport(run, records)), nil
}

// HistoryQuery window of ListCheckHistory
type HistoryQuery struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// ListCheckHistory runs of one model, newest first. Limit defaults to 20 and is capped at 200.
func (s *InspectionService) ListCheckHistory(ctx context.Context, modelID int64, kind domain.CheckKind, q HistoryQuery) ([]RunSummary, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	runs, err := s.repos.Runs.ListRuns(ctx, kind, modelID, repository.RunFilter{From: q.From, To: q.To, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s runs: %w", kind, err)
	}
	out := make([]RunSummary, 0, len(runs))
	for i := range runs {
		out = append(out, *runSummary(&runs[i]))
	}
	return out, nil
}

func (s *InspectionService) ReferenceAxes(ctx context.Context, directoryID int64) ([]ReferenceAxisItem, error) {
	axes, err := s.repos.References.ReferenceAxes(ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference axes: %w", err)
	}
	out := make([]ReferenceAxisItem, 0, len(axes))
	for _, a := range axes {
		out = append(out, ReferenceAxisItem{
			ID: a.ID, AxisName: a.Name,
			X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2,
			CreatedAt: a.CreatedAt,
		})
	}
	return out, nil
}

func (s *InspectionService) ReferenceLevels(ctx context.Context, directoryID int64) ([]ReferenceLevelItem, error) {
	levels, err := s.repos.References.ReferenceLevels(ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference levels: %w", err)
	}
	out := make([]ReferenceLevelItem, 0, len(levels))
	for _, l := range levels {
		out = append(out, ReferenceLevelItem{ID: l.ID, LevelName: l.Name, Elevation: l.Elevation, CreatedAt: l.CreatedAt})
	}
	return out, nil
}

// DeleteCheckRun removes one run with its error rows. repository.ErrNotFound is returned unwrapped.
func (s *InspectionService) DeleteCheckRun(ctx context.Context, kind domain.CheckKind, runID int64, actor Actor) error {
	if err := s.repos.Runs.DeleteRun(ctx, kind, runID); err != nil {
		return err
	}
	s.deletions.committed(ctx, actor, audit.EntityCheckRun, runID, string(kind))
	return nil
}

// DeleteModel removes a model with its runs, error rows and reference geometry
func (s *InspectionService) DeleteModel(ctx context.Context, modelID int64, actor Actor) error {
	if err := s.repos.Models.DeleteModel(ctx, modelID); err != nil {
		return err
	}
	s.deletions.committed(ctx, actor, audit.EntityModel, modelID, "")
	return nil
}
