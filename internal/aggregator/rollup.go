package aggregator

import (
	"sort"

	"revit-qc/internal/domain"
)

// DomainRollup summary counters of one check domain over a scope
type DomainRollup struct {
	TotalModels   int `json:"total_models"`
	CheckedModels int `json:"checked_models"`
	ErrorModels   int `json:"error_models"`
	TotalErrors   int `json:"total_errors"`
}

// add folds one model. A nil run means "not checked": counted as a model only.
func (r *DomainRollup) add(run *domain.CheckRun) {
	r.TotalModels++
	if run == nil {
		return
	}
	r.CheckedModels++
	if run.ErrorCount > 0 {
		r.ErrorModels++
	}
	r.TotalErrors += run.ErrorCount
}

// InScope drops reference models
func InScope(models []domain.Model) []domain.Model {
	out := make([]domain.Model, 0, len(models))
	for _, m := range models {
		if !m.IsReference() {
			out = append(out, m)
		}
	}
	return out
}

// RollupModels aggregates the latest run of every non-reference model in models.
// latest must hold at most one run per model (see LatestByModel).
func RollupModels(models []domain.Model, latest map[int64]domain.CheckRun) DomainRollup {
	var r DomainRollup
	for _, m := range InScope(models) {
		r.add(lookup(latest, m.ID))
	}
	return r
}

// RollupByDirectory is RollupModels split per directory. Directories without
// models are absent from the map; callers treat a missing entry as the zero rollup.
func RollupByDirectory(models []domain.Model, latest map[int64]domain.CheckRun) map[int64]DomainRollup {
	out := make(map[int64]DomainRollup)
	for _, m := range InScope(models) {
		r := out[m.DirectoryID]
		r.add(lookup(latest, m.ID))
		out[m.DirectoryID] = r
	}
	return out
}

func lookup(latest map[int64]domain.CheckRun, modelID int64) *domain.CheckRun {
	run, ok := latest[modelID]
	if !ok {
		return nil
	}
	return &run
}

// ClashRollup clash figures of a scope, summed from live test rows
type ClashRollup struct {
	Files    int                  `json:"files"`
	Tests    int                  `json:"tests"`
	Counters domain.ClashCounters `json:"counters"`
}

// Active is new + active over every test in scope
func (c ClashRollup) Active() int {
	return c.Counters.Open()
}

// RollupClashByDirectory sums live clash tests per owning directory.
// Tests whose file is not in files are ignored.
func RollupClashByDirectory(files []domain.ClashFile, tests []domain.ClashTest) map[int64]ClashRollup {
	dirOf := make(map[int64]int64, len(files))
	out := make(map[int64]ClashRollup)
	for _, f := range files {
		dirOf[f.ID] = f.DirectoryID
		r := out[f.DirectoryID]
		r.Files++
		out[f.DirectoryID] = r
	}
	for _, t := range tests {
		dirID, ok := dirOf[t.FileID]
		if !ok {
			continue
		}
		r := out[dirID]
		r.Tests++
		r.Counters.Add(t.Counters)
		out[dirID] = r
	}
	return out
}

// ClashFileRollup live counters summed over the tests of one file
type ClashFileRollup struct {
	File     domain.ClashFile
	Tests    int
	Counters domain.ClashCounters
}

// RollupClashFiles sums tests per file, newest import first.
func RollupClashFiles(files []domain.ClashFile, tests []domain.ClashTest) []ClashFileRollup {
	idx := make(map[int64]int, len(files))
	out := make([]ClashFileRollup, len(files))
	for i, f := range files {
		idx[f.ID] = i
		out[i].File = f
	}
	for _, t := range tests {
		i, ok := idx[t.FileID]
		if !ok {
			continue
		}
		out[i].Tests++
		out[i].Counters.Add(t.Counters)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].File, out[j].File
		if !a.ImportedAt.Equal(b.ImportedAt) {
			return a.ImportedAt.After(b.ImportedAt)
		}
		return a.ID > b.ID
	})
	return out
}
