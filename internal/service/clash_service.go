package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"revit-qc/internal/aggregator"
	"revit-qc/internal/audit"
	"revit-qc/internal/repository"
)

const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 366

	DefaultResultsPageSize = 50
	MaxResultsPageSize     = 500
	// pages past this are empty for any realistic test; keeps the row offset small
	MaxResultsPage = 1_000_000
)

// ClashHistoryConfig defaults of the clash history merge
type ClashHistoryConfig struct {
	Days     int
	Policy   aggregator.SameDayPolicy
	Location *time.Location // calendar used for "today"
}

// ClashService clash files, test ranking, merged history and results
type ClashService struct {
	repo      repository.ClashRepository
	history   ClashHistoryConfig
	clock     Clock
	deletions *DeletionNotifier
	logger    *zap.Logger
}

func NewClashService(repo repository.ClashRepository, history ClashHistoryConfig, clock Clock, deletions *DeletionNotifier, logger *zap.Logger) *ClashService {
	if history.Days <= 0 {
		history.Days = DefaultHistoryDays
	}
	if history.Location == nil {
		history.Location = time.UTC
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &ClashService{
		repo:      repo,
		history:   history,
		clock:     clock,
		deletions: deletions,
		logger:    logger,
	}
}

// ListClashFiles files of a directory with their summed live counters, newest import first
func (s *ClashService) ListClashFiles(ctx context.Context, directoryID int64) ([]ClashFileSummary, error) {
	files, err := s.repo.ListClashFiles(ctx, directoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash files: %w", err)
	}
	tests, err := s.repo.ListClashTests(ctx, directoryID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash tests: %w", err)
	}

	rollups := aggregator.RollupClashFiles(files, tests)
	out := make([]ClashFileSummary, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, ClashFileSummary{
			ID:            r.File.ID,
			FileName:      r.File.FileName,
			ImportedAt:    r.File.ImportedAt,
			TestCount:     r.Tests,
			ClashCounters: r.Counters,
		})
	}
	return out, nil
}

// RankClashTests tests of a directory ordered by key
func (s *ClashService) RankClashTests(ctx context.Context, directoryID int64, key aggregator.ClashSortKey, order aggregator.SortOrder) ([]ClashTestItem, error) {
	tests, err := s.repo.ListClashTests(ctx, directoryID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash tests: %w", err)
	}

	ranked := aggregator.RankClashTests(tests, key, order)
	out := make([]ClashTestItem, 0, len(ranked))
	for _, t := range ranked {
		out = append(out, ClashTestItem{
			ID:            t.ID,
			FileID:        t.FileID,
			TestName:      t.Name,
			TestType:      t.TestType,
			ClashCounters: t.Counters,
			Open:          t.Counters.Open(),
		})
	}
	return out, nil
}

// ClashHistoryQuery Days <= 0 uses the configured default; TestIDs empty means every test of the directory
type ClashHistoryQuery struct {
	Days    int
	TestIDs []int64
}

// ClashHistory merges archived snapshots inside the trailing window with today's live counters
func (s *ClashService) ClashHistory(ctx context.Context, directoryID int64, q ClashHistoryQuery) (*ClashHistory, error) {
	days := q.Days
	if days <= 0 {
		days = s.history.Days
	}
	if days > MaxHistoryDays {
		days = MaxHistoryDays
	}

	tests, err := s.repo.ListClashTests(ctx, directoryID, q.TestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve clash tests: %w", err)
	}
	out := &ClashHistory{History: []HistoryPointItem{}, Raw: []HistoryRawItem{}}
	if len(tests) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(tests))
	for _, t := range tests {
		ids = append(ids, t.ID)
	}
	now := s.clock.Now()
	snaps, err := s.repo.ListClashSnapshots(ctx, ids,
		aggregator.WindowStart(now, s.history.Location, days), aggregator.Today(now, s.history.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to list clash snapshots: %w", err)
	}

	archived := aggregator.ArchivedRows(snaps)
	live := aggregator.LiveRows(tests, now, s.history.Location)

	for _, p := range aggregator.MergeHistory(archived, live, s.history.Policy) {
		item := HistoryPointItem{Date: p.Date, ClashCounters: p.Counters, Tests: make([]HistoryTestItem, 0, len(p.Tests))}
		for _, t := range p.Tests {
			item.Tests = append(item.Tests, HistoryTestItem{
				TestID:   t.TestID,
				TestName: t.TestName,
				Total:    t.Counters.Total,
				New:      t.Counters.New,
				Active:   t.Counters.Active,
			})
		}
		out.History = append(out.History, item)
	}
	for _, rows := range [][]aggregator.HistoryRow{archived, live} {
		for _, r := range rows {
			out.Raw = append(out.Raw, HistoryRawItem{
				Date:          r.Date,
				TestID:        r.TestID,
				TestName:      r.TestName,
				Source:        string(r.Source),
				ClashCounters: r.Counters,
			})
		}
	}
	return out, nil
}

// ListClashResults paged results of one test; size defaults to 50 and is capped at 500.
// A page past the end is empty.
func (s *ClashService) ListClashResults(ctx context.Context, testID int64, status string, page, size int) (*ClashResultsPage, error) {
	if page <= 0 {
		page = 1
	}
	if page > MaxResultsPage {
		page = MaxResultsPage
	}
	if size <= 0 {
		size = DefaultResultsPageSize
	}
	if size > MaxResultsPageSize {
		size = MaxResultsPageSize
	}

	results, total, err := s.repo.ListClashResults(ctx, testID, repository.ClashResultFilter{Status: status}, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash results: %w", err)
	}
	items := make([]ClashResultItem, 0, len(results))
	for _, c := range results {
		items = append(items, ClashResultItem{
			ID:       c.ID,
			Name:     c.Name,
			Status:   c.Status,
			Point:    c.Point,
			Item1:    c.Item1,
			Item2:    c.Item2,
			HasImage: c.HasImage,
			FoundAt:  c.FoundAt,
		})
	}
	return &ClashResultsPage{Items: items, Total: total, Page: page, Size: size}, nil
}

// DeleteClashFile removes a file with its tests, snapshots and results
func (s *ClashService) DeleteClashFile(ctx context.Context, fileID int64, actor Actor) error {
	if err := s.repo.DeleteClashFile(ctx, fileID); err != nil {
		return err
	}
	s.deletions.committed(ctx, actor, audit.EntityClashFile, fileID, "")
	return nil
}
