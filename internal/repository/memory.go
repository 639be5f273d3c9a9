package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"revit-qc/internal/aggregator"
	"revit-qc/internal/domain"
)

// MemoryStore implements every repository in memory.
// Used when DB is disabled (local dev) and by service / handler tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64

	directories  map[int64]domain.Directory
	models       map[int64]domain.Model
	runs         map[domain.CheckKind]map[int64]domain.CheckRun
	errors       map[domain.CheckKind]map[int64]domain.ErrorRecord
	axes         map[int64]domain.ReferenceAxis
	levels       map[int64]domain.ReferenceLevel
	clashFiles   map[int64]domain.ClashFile
	clashTests   map[int64]domain.ClashTest
	snapshots    map[int64]domain.ClashHistorySnapshot
	clashResults map[int64]domain.ClashResult
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		directories:  map[int64]domain.Directory{},
		models:       map[int64]domain.Model{},
		runs:         map[domain.CheckKind]map[int64]domain.CheckRun{},
		errors:       map[domain.CheckKind]map[int64]domain.ErrorRecord{},
		axes:         map[int64]domain.ReferenceAxis{},
		levels:       map[int64]domain.ReferenceLevel{},
		clashFiles:   map[int64]domain.ClashFile{},
		clashTests:   map[int64]domain.ClashTest{},
		snapshots:    map[int64]domain.ClashHistorySnapshot{},
		clashResults: map[int64]domain.ClashResult{},
	}
	for _, kind := range domain.CheckKinds {
		s.runs[kind] = map[int64]domain.CheckRun{}
		s.errors[kind] = map[int64]domain.ErrorRecord{}
	}
	return s
}

var (
	_ DirectoriesRepository = (*MemoryStore)(nil)
	_ ModelsRepository      = (*MemoryStore)(nil)
	_ CheckRunsRepository   = (*MemoryStore)(nil)
	_ ReferenceRepository   = (*MemoryStore)(nil)
	_ ClashRepository       = (*MemoryStore)(nil)
)

// Repositories exposes the store through every repository interface
func (s *MemoryStore) Repositories() Repositories {
	return Repositories{
		Directories: s,
		Models:      s,
		Runs:        s,
		References:  s,
		Clash:       s,
	}
}

// assign gives *id the next sequence value when unset, and keeps the sequence ahead of explicit ids.
// Caller holds s.mu.
func (s *MemoryStore) assign(id *int64) {
	if *id == 0 {
		s.nextID++
		*id = s.nextID
		return
	}
	if *id > s.nextID {
		s.nextID = *id
	}
}

// ---- seeding ----

func (s *MemoryStore) AddDirectory(d domain.Directory) domain.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&d.ID)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.directories[d.ID] = d
	return d
}

func (s *MemoryStore) AddModel(m domain.Model) domain.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&m.ID)
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	s.models[m.ID] = m
	return m
}

// AddRun stores a run; Kind defaults to axis
func (s *MemoryStore) AddRun(run domain.CheckRun) domain.CheckRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.Kind == "" {
		run.Kind = domain.CheckKindAxis
	}
	s.assign(&run.ID)
	s.runs[run.Kind][run.ID] = run
	return run
}

func (s *MemoryStore) AddError(kind domain.CheckKind, rec domain.ErrorRecord) domain.ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&rec.ID)
	s.errors[kind][rec.ID] = rec
	return rec
}

func (s *MemoryStore) AddReferenceAxis(a domain.ReferenceAxis) domain.ReferenceAxis {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&a.ID)
	s.axes[a.ID] = a
	return a
}

func (s *MemoryStore) AddReferenceLevel(l domain.ReferenceLevel) domain.ReferenceLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&l.ID)
	s.levels[l.ID] = l
	return l
}

func (s *MemoryStore) AddClashFile(f domain.ClashFile) domain.ClashFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&f.ID)
	if f.ImportedAt.IsZero() {
		f.ImportedAt = time.Now().UTC()
	}
	s.clashFiles[f.ID] = f
	return f
}

func (s *MemoryStore) AddClashTest(t domain.ClashTest) domain.ClashTest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&t.ID)
	s.clashTests[t.ID] = t
	return t
}

// AddSnapshot archives one day of a test; a second snapshot for the same test and date replaces the first
func (s *MemoryStore) AddSnapshot(snap domain.ClashHistorySnapshot) domain.ClashHistorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	y, m, d := snap.SnapshotDate.Date()
	snap.SnapshotDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for id, existing := range s.snapshots {
		if existing.TestID == snap.TestID && existing.SnapshotDate.Equal(snap.SnapshotDate) {
			delete(s.snapshots, id)
		}
	}
	s.assign(&snap.ID)
	s.snapshots[snap.ID] = snap
	return snap
}

func (s *MemoryStore) AddClashResult(c domain.ClashResult) domain.ClashResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assign(&c.ID)
	s.clashResults[c.ID] = c
	return c
}

// ---- directories / models ----

func (s *MemoryStore) ListDirectories(_ context.Context) ([]domain.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Directory, 0, len(s.directories))
	for _, d := range s.directories {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetDirectory(_ context.Context, directoryID int64) (*domain.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.directories[directoryID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListModels(_ context.Context, directoryID int64) ([]domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Model{}
	for _, m := range s.models {
		if directoryID != 0 && m.DirectoryID != directoryID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetModel(_ context.Context, modelID int64) (*domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[modelID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) DeleteModel(_ context.Context, modelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[modelID]; !ok {
		return ErrNotFound
	}
	for _, kind := range domain.CheckKinds {
		for id, run := range s.runs[kind] {
			if run.ModelID == modelID {
				s.deleteRunLocked(kind, id)
			}
		}
	}
	for id, a := range s.axes {
		if a.ModelID == modelID {
			delete(s.axes, id)
		}
	}
	for id, l := range s.levels {
		if l.ModelID == modelID {
			delete(s.levels, id)
		}
	}
	delete(s.models, modelID)
	return nil
}

// ---- check runs ----

func (s *MemoryStore) runsOf(kind domain.CheckKind, keep func(domain.CheckRun) bool) []domain.CheckRun {
	out := []domain.CheckRun{}
	for _, run := range s.runs[kind] {
		if keep(run) {
			out = append(out, run)
		}
	}
	return out
}

func (s *MemoryStore) LatestRuns(_ context.Context, kind domain.CheckKind, modelIDs []int64) (map[int64]domain.CheckRun, error) {
	if _, err := tablesFor(kind); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wanted map[int64]bool
	if modelIDs != nil {
		wanted = make(map[int64]bool, len(modelIDs))
		for _, id := range modelIDs {
			wanted[id] = true
		}
	}
	runs := s.runsOf(kind, func(r domain.CheckRun) bool {
		return wanted == nil || wanted[r.ModelID]
	})
	return aggregator.LatestByModel(runs), nil
}

func (s *MemoryStore) LatestRun(_ context.Context, kind domain.CheckKind, modelID int64) (*domain.CheckRun, error) {
	if _, err := tablesFor(kind); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := aggregator.LatestRun(s.runsOf(kind, func(domain.CheckRun) bool { return true }), modelID)
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, kind domain.CheckKind, modelID int64, filter RunFilter) ([]domain.CheckRun, error) {
	if _, err := tablesFor(kind); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.runsOf(kind, func(r domain.CheckRun) bool {
		if r.ModelID != modelID {
			return false
		}
		if filter.From != nil && r.CheckDate.Before(*filter.From) {
			return false
		}
		if filter.To != nil && r.CheckDate.After(*filter.To) {
			return false
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) ListErrors(_ context.Context, kind domain.CheckKind, runID int64) ([]domain.ErrorRecord, error) {
	if _, err := tablesFor(kind); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ErrorRecord{}
	for _, rec := range s.errors[kind] {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, kind domain.CheckKind, runID int64) error {
	if _, err := tablesFor(kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[kind][runID]; !ok {
		return ErrNotFound
	}
	s.deleteRunLocked(kind, runID)
	return nil
}

func (s *MemoryStore) deleteRunLocked(kind domain.CheckKind, runID int64) {
	for id, rec := range s.errors[kind] {
		if rec.RunID == runID {
			delete(s.errors[kind], id)
		}
	}
	delete(s.runs[kind], runID)
}

// ---- reference geometry ----

func (s *MemoryStore) referenceModels(directoryID int64) map[int64]bool {
	refs := map[int64]bool{}
	for _, m := range s.models {
		if m.DirectoryID == directoryID && m.IsReference() {
			refs[m.ID] = true
		}
	}
	return refs
}

func (s *MemoryStore) ReferenceAxes(_ context.Context, directoryID int64) ([]domain.ReferenceAxis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.referenceModels(directoryID)
	out := []domain.ReferenceAxis{}
	for _, a := range s.axes {
		if refs[a.ModelID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ReferenceLevels(_ context.Context, directoryID int64) ([]domain.ReferenceLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.referenceModels(directoryID)
	out := []domain.ReferenceLevel{}
	for _, l := range s.levels {
		if refs[l.ModelID] {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- clash ----

func (s *MemoryStore) ListClashFiles(_ context.Context, directoryID int64) ([]domain.ClashFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ClashFile{}
	for _, f := range s.clashFiles {
		if directoryID != 0 && f.DirectoryID != directoryID {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ImportedAt.Equal(out[j].ImportedAt) {
			return out[i].ImportedAt.After(out[j].ImportedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListClashTests(_ context.Context, directoryID int64, testIDs []int64) ([]domain.ClashTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := map[int64]bool{}
	for _, id := range testIDs {
		wanted[id] = true
	}
	out := []domain.ClashTest{}
	for _, t := range s.clashTests {
		f, ok := s.clashFiles[t.FileID]
		if !ok {
			continue
		}
		if directoryID != 0 && f.DirectoryID != directoryID {
			continue
		}
		if len(wanted) > 0 && !wanted[t.ID] {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListClashSnapshots(_ context.Context, testIDs []int64, since, until time.Time) ([]domain.ClashHistorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ClashHistorySnapshot{}
	if len(testIDs) == 0 {
		return out, nil
	}
	wanted := map[int64]bool{}
	for _, id := range testIDs {
		wanted[id] = true
	}
	for _, snap := range s.snapshots {
		if !wanted[snap.TestID] || snap.SnapshotDate.Before(since) || snap.SnapshotDate.After(until) {
			continue
		}
		if t, ok := s.clashTests[snap.TestID]; ok {
			snap.TestName = t.Name
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SnapshotDate.Equal(out[j].SnapshotDate) {
			return out[i].SnapshotDate.Before(out[j].SnapshotDate)
		}
		return out[i].TestID < out[j].TestID
	})
	return out, nil
}

func (s *MemoryStore) ListClashResults(_ context.Context, testID int64, filter ClashResultFilter, page, size int) ([]domain.ClashResult, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := []domain.ClashResult{}
	for _, c := range s.clashResults {
		if c.TestID != testID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if size <= 0 {
		size = 50
	}
	start := pageOffset(page, size)
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) DeleteClashFile(_ context.Context, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clashFiles[fileID]; !ok {
		return ErrNotFound
	}
	for testID, t := range s.clashTests {
		if t.FileID != fileID {
			continue
		}
		for id, c := range s.clashResults {
			if c.TestID == testID {
				delete(s.clashResults, id)
			}
		}
		for id, snap := range s.snapshots {
			if snap.TestID == testID {
				delete(s.snapshots, id)
			}
		}
		delete(s.clashTests, testID)
	}
	delete(s.clashFiles, fileID)
	return nil
}
