package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"revit-qc/internal/audit"
	"revit-qc/internal/domain"
	"revit-qc/internal/repository"
	"revit-qc/internal/testutil"
)

type recordingPublisher struct {
	events []audit.DeletionEvent
	err    error
}

func (p *recordingPublisher) PublishDeletion(_ context.Context, ev audit.DeletionEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type countingMetrics struct {
	deletions     map[string]int
	publishErrors int
}

func (m *countingMetrics) RecordDeletion(entity string) {
	if m.deletions == nil {
		m.deletions = map[string]int{}
	}
	m.deletions[entity]++
}

func (m *countingMetrics) RecordAuditPublishError() { m.publishErrors++ }

type fixture struct {
	store     *repository.MemoryStore
	ids       testutil.Portfolio
	inspect   *InspectionService
	clash     *ClashService
	publisher *recordingPublisher
	metrics   *countingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	ids := testutil.SeedPortfolio(store)
	pub := &recordingPublisher{}
	m := &countingMetrics{}
	clock := testutil.FixedClock()
	logger := zap.NewNop()

	notifier := NewDeletionNotifier(pub, m, clock, logger)
	return &fixture{
		store:     store,
		ids:       ids,
		inspect:   NewInspectionService(store.Repositories(), notifier, logger),
		clash:     NewClashService(store, ClashHistoryConfig{}, clock, notifier, logger),
		publisher: pub,
		metrics:   m,
	}
}

func TestListDirectories_Rollups(t *testing.T) {
	f := newFixture(t)

	dirs, err := f.inspect.ListDirectories(context.Background())
	require.NoError(t, err)
	require.Len(t, dirs, 2)

	// newest first
	assert.Equal(t, "B-200", dirs[0].Name)
	a := dirs[1]
	assert.Equal(t, f.ids.DirA, a.ID)

	assert.Equal(t, 3, a.TotalModels, "reference model excluded, unchecked model counted")
	assert.Equal(t, 2, a.AxisCheckedModels)
	assert.Equal(t, 1, a.AxisModelsWithErrors, "ARCH latest run has 0 errors")
	assert.Equal(t, 2, a.AxisTotalErrors, "only latest runs are summed")
	assert.Equal(t, 1, a.LevelCheckedModels)
	assert.Equal(t, 1, a.LevelModelsWithErrors)
	assert.Equal(t, 4, a.LevelTotalErrors)
	assert.Equal(t, 2, a.ClashFiles)
	assert.Equal(t, 3, a.ClashTests)
	assert.Equal(t, 20, a.ClashActive)

	b := dirs[0]
	assert.Equal(t, 1, b.TotalModels)
	assert.Equal(t, 1, b.AxisTotalErrors)
	assert.Zero(t, b.LevelCheckedModels)
	assert.Zero(t, b.ClashFiles)
}

func TestListDirectories_Idempotent(t *testing.T) {
	f := newFixture(t)
	first, err := f.inspect.ListDirectories(context.Background())
	require.NoError(t, err)
	second, err := f.inspect.ListDirectories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOverallStats(t *testing.T) {
	f := newFixture(t)

	stats, err := f.inspect.OverallStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalDirectories)
	assert.Equal(t, 4, stats.TotalModels)
	assert.Equal(t, DomainStats{CheckedModels: 3, ModelsWithErrors: 2, TotalErrors: 3}, stats.Axis)
	assert.Equal(t, DomainStats{CheckedModels: 1, ModelsWithErrors: 1, TotalErrors: 4}, stats.Level)
	assert.Equal(t, ClashStats{Files: 2, Tests: 3, Active: 20}, stats.Clash)
}

func TestListDirectoryModels(t *testing.T) {
	f := newFixture(t)

	models, err := f.inspect.ListDirectoryModels(context.Background(), f.ids.DirA)
	require.NoError(t, err)
	require.Len(t, models, 3)

	byName := map[string]ModelSummary{}
	for _, m := range models {
		byName[m.ModelName] = m
	}
	assert.NotContains(t, byName, domain.ReferenceModelName)

	arch := byName["ARCH"]
	require.NotNil(t, arch.Axis)
	assert.Equal(t, f.ids.ArchAxisLatest, arch.Axis.CheckID)
	assert.Equal(t, 24, arch.Axis.SuccessCount)
	require.NotNil(t, arch.Level)
	assert.Equal(t, 8, arch.Level.SuccessCount)

	str := byName["STR"]
	require.NotNil(t, str.Axis)
	assert.Equal(t, f.ids.StructAxisLatest, str.Axis.CheckID, "highest id wins over newest check_date")
	assert.Nil(t, str.Level)

	mep := byName["MEP"]
	assert.Nil(t, mep.Axis)
	assert.Nil(t, mep.Level)

	raw, err := json.Marshal(mep)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"axis":null`)
}

func TestListDirectoryModels_OrderedByLatestAxisCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// STR latest run is dated 10-05, ARCH 10-03, MEP never checked
	models, err := f.inspect.ListDirectoryModels(ctx, f.ids.DirA)
	require.NoError(t, err)
	names := []string{}
	for _, m := range models {
		names = append(names, m.ModelName)
	}
	assert.Equal(t, []string{"STR", "ARCH", "MEP"}, names)

	// same check date falls back to the name
	f.store.AddRun(domain.CheckRun{ModelID: f.ids.Arch, Kind: domain.CheckKindAxis,
		CheckDate: time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC), TotalInModel: 24, TotalReference: 24})
	models, err = f.inspect.ListDirectoryModels(ctx, f.ids.DirA)
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "ARCH", models[0].ModelName)
	assert.Equal(t, "STR", models[1].ModelName)
}

func TestListDirectoryModels_UnknownDirectory(t *testing.T) {
	f := newFixture(t)
	models, err := f.inspect.ListDirectoryModels(context.Background(), 9999)
	require.NoError(t, err)
	assert.NotNil(t, models)
	assert.Empty(t, models)
}

func TestGetCheckReport(t *testing.T) {
	f := newFixture(t)

	report, err := f.inspect.GetCheckReport(context.Background(), f.ids.Arch, domain.CheckKindLevel)
	require.NoError(t, err)

	assert.True(t, report.HasData)
	assert.Equal(t, "ARCH", report.ModelName)
	require.NotNil(t, report.RunSummary)
	assert.Equal(t, f.ids.ArchLevelLatest, report.CheckID)
	assert.Equal(t, 8, report.SuccessCount)

	require.Len(t, report.Errors, 2)
	assert.Equal(t, "L01", report.Errors[0].Name)
	assert.Equal(t, []string{"Missing"}, report.Errors[0].ErrorTypesArray)
	assert.Equal(t, domain.PinUnknown, report.Errors[0].IsPinned)
	assert.Equal(t, "L02", report.Errors[1].Name)
	assert.Equal(t, []string{"Deviation", "NotPinned"}, report.Errors[1].ErrorTypesArray)
	assert.Equal(t, domain.PinUnpinned, report.Errors[1].IsPinned)
}

func TestGetCheckReport_NoData(t *testing.T) {
	f := newFixture(t)

	for name, modelID := range map[string]int64{"never checked": f.ids.MEP, "unknown model": 9999} {
		t.Run(name, func(t *testing.T) {
			report, err := f.inspect.GetCheckReport(context.Background(), modelID, domain.CheckKindAxis)
			require.NoError(t, err)
			assert.False(t, report.HasData)
			assert.Nil(t, report.RunSummary)
			assert.NotNil(t, report.Errors)
			assert.Empty(t, report.Errors)

			raw, err := json.Marshal(report)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"has_data":false`)
			assert.Contains(t, string(raw), `"errors":[]`)
			assert.NotContains(t, string(raw), "check_id")
		})
	}
}

func TestListCheckHistory(t *testing.T) {
	f := newFixture(t)

	runs, err := f.inspect.ListCheckHistory(context.Background(), f.ids.Arch, domain.CheckKindAxis, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, f.ids.ArchAxisLatest, runs[0].CheckID)
	assert.Equal(t, []int{0, 1, 3}, []int{runs[0].ErrorCount, runs[1].ErrorCount, runs[2].ErrorCount})

	from := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	runs, err = f.inspect.ListCheckHistory(context.Background(), f.ids.Arch, domain.CheckKindAxis, HistoryQuery{From: &from, Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].ErrorCount)
}

func TestListCheckHistory_LimitCapped(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < MaxHistoryLimit+10; i++ {
		f.store.AddRun(domain.CheckRun{ModelID: f.ids.MEP, Kind: domain.CheckKindAxis})
	}

	runs, err := f.inspect.ListCheckHistory(context.Background(), f.ids.MEP, domain.CheckKindAxis, HistoryQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, runs, MaxHistoryLimit)

	runs, err = f.inspect.ListCheckHistory(context.Background(), f.ids.MEP, domain.CheckKindAxis, HistoryQuery{})
	require.NoError(t, err)
	assert.Len(t, runs, DefaultHistoryLimit)
}

func TestReferenceGeometry(t *testing.T) {
	f := newFixture(t)

	axes, err := f.inspect.ReferenceAxes(context.Background(), f.ids.DirA)
	require.NoError(t, err)
	require.Len(t, axes, 2)
	assert.Equal(t, "A", axes[0].AxisName)

	levels, err := f.inspect.ReferenceLevels(context.Background(), f.ids.DirA)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, 3600.0, levels[1].Elevation)

	none, err := f.inspect.ReferenceAxes(context.Background(), f.ids.DirB)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteCheckRun_FallsBackToPreviousRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.inspect.DeleteCheckRun(ctx, domain.CheckKindAxis, f.ids.StructAxisLatest, Actor{Name: "admin", RequestID: "r1"})
	require.NoError(t, err)

	report, err := f.inspect.GetCheckReport(ctx, f.ids.Struct, domain.CheckKindAxis)
	require.NoError(t, err)
	assert.Equal(t, 7, report.ErrorCount, "next highest id becomes latest")

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, audit.EntityCheckRun, ev.Entity)
	assert.Equal(t, f.ids.StructAxisLatest, ev.EntityID)
	assert.Equal(t, "axis", ev.Kind)
	assert.Equal(t, "admin", ev.Actor)
	assert.Equal(t, "r1", ev.RequestID)
	assert.True(t, testutil.FixedClock().Now().Equal(ev.DeletedAt))
	assert.Equal(t, 1, f.metrics.deletions[audit.EntityCheckRun])

	err = f.inspect.DeleteCheckRun(ctx, domain.CheckKindAxis, f.ids.StructAxisLatest, Actor{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Len(t, f.publisher.events, 1, "no event for a failed delete")
}

func TestDeleteModel_CascadeThenNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.inspect.DeleteModel(ctx, f.ids.Arch, Actor{Name: "admin"}))

	report, err := f.inspect.GetCheckReport(ctx, f.ids.Arch, domain.CheckKindLevel)
	require.NoError(t, err)
	assert.False(t, report.HasData)

	stats, err := f.inspect.OverallStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalModels)
	assert.Zero(t, stats.Level.CheckedModels)

	assert.ErrorIs(t, f.inspect.DeleteModel(ctx, f.ids.Arch, Actor{}), repository.ErrNotFound)
}

func TestDelete_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("redis down")

	require.NoError(t, f.inspect.DeleteModel(context.Background(), f.ids.MEP, Actor{Name: "admin"}))
	assert.Equal(t, 1, f.metrics.publishErrors)
	assert.Equal(t, 1, f.metrics.deletions[audit.EntityModel])
}
