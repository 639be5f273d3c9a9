package aggregator

import (
	"testing"
	"time"

	"revit-qc/internal/domain"

	"github.com/stretchr/testify/assert"
)

func models() []domain.Model {
	return []domain.Model{
		{ID: 1, DirectoryID: 10, Name: "AR_A"},
		{ID: 2, DirectoryID: 10, Name: "ST_A"},
		{ID: 3, DirectoryID: 10, Name: domain.ReferenceModelName},
		{ID: 4, DirectoryID: 20, Name: "AR_B"},
	}
}

func TestRollupModels_UsesOnlyLatestRun(t *testing.T) {
	// model 1 runs inserted with error counts 3, 1, 0
	runs := []domain.CheckRun{run(1, 1, 3, day0), run(2, 1, 1, day0), run(3, 1, 0, day0)}

	got := RollupModels(models()[:1], LatestByModel(runs))
	assert.Equal(t, DomainRollup{TotalModels: 1, CheckedModels: 1, ErrorModels: 0, TotalErrors: 0}, got)
}

func TestRollupModels_UncheckedAndReference(t *testing.T) {
	runs := []domain.CheckRun{
		run(1, 1, 4, day0),
		run(2, 3, 50, day0), // reference model never counts
	}

	got := RollupModels(models(), LatestByModel(runs))
	assert.Equal(t, DomainRollup{TotalModels: 3, CheckedModels: 1, ErrorModels: 1, TotalErrors: 4}, got)
}

func TestRollupByDirectory(t *testing.T) {
	runs := []domain.CheckRun{run(1, 1, 4, day0), run(2, 2, 0, day0), run(3, 4, 2, day0), run(4, 4, 5, day0)}

	got := RollupByDirectory(models(), LatestByModel(runs))
	assert.Equal(t, DomainRollup{TotalModels: 2, CheckedModels: 2, ErrorModels: 1, TotalErrors: 4}, got[10])
	assert.Equal(t, DomainRollup{TotalModels: 1, CheckedModels: 1, ErrorModels: 1, TotalErrors: 5}, got[20])
	_, ok := got[30]
	assert.False(t, ok)
}

func TestRollup_Idempotent(t *testing.T) {
	runs := []domain.CheckRun{run(1, 1, 4, day0), run(2, 4, 1, day0)}
	latest := LatestByModel(runs)
	assert.Equal(t, RollupByDirectory(models(), latest), RollupByDirectory(models(), latest))
}

func TestRollupClash(t *testing.T) {
	files := []domain.ClashFile{
		{ID: 1, DirectoryID: 10, FileName: "old.xml", ImportedAt: day0},
		{ID: 2, DirectoryID: 10, FileName: "new.xml", ImportedAt: day0.Add(time.Hour)},
		{ID: 3, DirectoryID: 20, FileName: "other.xml", ImportedAt: day0},
	}
	tests := []domain.ClashTest{
		{ID: 1, FileID: 1, Name: "AR vs ST", Counters: domain.ClashCounters{Total: 10, New: 2, Active: 3}},
		{ID: 2, FileID: 2, Name: "MEP vs ST", Counters: domain.ClashCounters{Total: 5, New: 1, Active: 1, Resolved: 3}},
		{ID: 3, FileID: 99, Name: "orphan", Counters: domain.ClashCounters{Total: 100}},
	}

	byDir := RollupClashByDirectory(files, tests)
	assert.Equal(t, 2, byDir[10].Files)
	assert.Equal(t, 2, byDir[10].Tests)
	assert.Equal(t, 15, byDir[10].Counters.Total)
	assert.Equal(t, 7, byDir[10].Active())
	assert.Equal(t, 1, byDir[20].Files)
	assert.Equal(t, 0, byDir[20].Tests)

	perFile := RollupClashFiles(files, tests)
	assert.Len(t, perFile, 3)
	assert.Equal(t, int64(2), perFile[0].File.ID) // newest import first
	assert.Equal(t, 1, perFile[0].Tests)
	assert.Equal(t, 3, perFile[0].Counters.Resolved)
	assert.Equal(t, int64(3), perFile[1].File.ID) // same import time: higher id first
	assert.Equal(t, 0, perFile[1].Tests)
	assert.Equal(t, 1, perFile[2].Tests)
}
