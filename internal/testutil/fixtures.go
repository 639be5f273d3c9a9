package testutil

import (
	"time"

	"revit-qc/internal/domain"
	"revit-qc/internal/repository"
)

// Portfolio ids of the entities created by SeedPortfolio
type Portfolio struct {
	DirA, DirB int64

	Arch, Struct, MEP, Reference int64 // DirA models; MEP is never checked
	Tower                        int64 // DirB model

	ArchAxisLatest, StructAxisLatest, ArchLevelLatest int64

	FileOld, FileNew           int64
	DuctsVsBeams, PipesVsWalls int64 // FileOld tests
	CableTrays                 int64 // FileNew test
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// SeedPortfolio fills store with two directories. Relative to FixedClock:
//
//	DirA axis:  Arch latest 0 errors (history 3,1,0), Struct latest 2 errors (run with the
//	            older check_date has the higher id), MEP unchecked, Reference 5 errors (excluded)
//	DirA level: Arch latest 4 errors with two error rows
//	DirA clash: Ducts vs Beams {40,3,10,5,2,20}, Pipes vs Walls {10,1,1,0,0,8}, Cable Trays {5,5,0,0,0,0};
//	            snapshots Ducts vs Beams 2026-10-16 total 38 and 2026-10-18 total 2,
//	            Pipes vs Walls 2026-09-01 (outside the 30 day window)
//	DirB axis:  Tower latest 1 error
func SeedPortfolio(s *repository.MemoryStore) Portfolio {
	var p Portfolio

	p.DirA = s.AddDirectory(domain.Directory{Code: "A-100", CreatedAt: day(2026, 1, 1)}).ID
	p.DirB = s.AddDirectory(domain.Directory{Code: "B-200", CreatedAt: day(2026, 2, 1)}).ID

	p.Arch = s.AddModel(domain.Model{DirectoryID: p.DirA, Name: "ARCH"}).ID
	p.Struct = s.AddModel(domain.Model{DirectoryID: p.DirA, Name: "STR"}).ID
	p.MEP = s.AddModel(domain.Model{DirectoryID: p.DirA, Name: "MEP"}).ID
	p.Reference = s.AddModel(domain.Model{DirectoryID: p.DirA, Name: domain.ReferenceModelName}).ID
	p.Tower = s.AddModel(domain.Model{DirectoryID: p.DirB, Name: "TOWER"}).ID

	for i, errs := range []int{3, 1, 0} {
		run := s.AddRun(domain.CheckRun{
			ModelID: p.Arch, Kind: domain.CheckKindAxis, CheckDate: day(2026, 10, 1+i),
			CheckType: "manual", TotalInModel: 24, TotalReference: 24, ErrorCount: errs,
		})
		p.ArchAxisLatest = run.ID
	}
	s.AddRun(domain.CheckRun{
		ModelID: p.Struct, Kind: domain.CheckKindAxis, CheckDate: day(2026, 10, 15),
		CheckType: "manual", TotalInModel: 24, TotalReference: 24, ErrorCount: 7,
	})
	p.StructAxisLatest = s.AddRun(domain.CheckRun{
		ModelID: p.Struct, Kind: domain.CheckKindAxis, CheckDate: day(2026, 10, 5),
		CheckType: "auto", TotalInModel: 24, TotalReference: 24, ErrorCount: 2,
	}).ID
	s.AddRun(domain.CheckRun{
		ModelID: p.Reference, Kind: domain.CheckKindAxis, CheckDate: day(2026, 10, 5),
		TotalInModel: 24, TotalReference: 24, ErrorCount: 5,
	})

	p.ArchLevelLatest = s.AddRun(domain.CheckRun{
		ModelID: p.Arch, Kind: domain.CheckKindLevel, CheckDate: day(2026, 10, 6),
		CheckType: "manual", TotalInModel: 12, TotalReference: 11, ErrorCount: 4,
	}).ID
	s.AddError(domain.CheckKindLevel, domain.ErrorRecord{
		RunID: p.ArchLevelLatest, Name: "L02", ElementID: strPtr("311"),
		ErrorTypes: "Deviation; NotPinned;; ", DeviationMM: floatPtr(14.5),
		Pin: domain.PinUnpinned, Workset: strPtr("Shared Levels"),
	})
	s.AddError(domain.CheckKindLevel, domain.ErrorRecord{
		RunID: p.ArchLevelLatest, Name: "L01", ErrorTypes: "Missing",
	})

	s.AddRun(domain.CheckRun{
		ModelID: p.Tower, Kind: domain.CheckKindAxis, CheckDate: day(2026, 10, 2),
		TotalInModel: 8, TotalReference: 8, ErrorCount: 1,
	})

	s.AddReferenceAxis(domain.ReferenceAxis{ModelID: p.Reference, Name: "B", X1: 6000, Y1: 0, X2: 6000, Y2: 12000})
	s.AddReferenceAxis(domain.ReferenceAxis{ModelID: p.Reference, Name: "A", X1: 0, Y1: 0, X2: 0, Y2: 12000})
	s.AddReferenceLevel(domain.ReferenceLevel{ModelID: p.Reference, Name: "L01", Elevation: 0})
	s.AddReferenceLevel(domain.ReferenceLevel{ModelID: p.Reference, Name: "L02", Elevation: 3600})

	p.FileOld = s.AddClashFile(domain.ClashFile{DirectoryID: p.DirA, FileName: "MEP_vs_STR.xml", ImportedAt: day(2026, 10, 1)}).ID
	p.FileNew = s.AddClashFile(domain.ClashFile{DirectoryID: p.DirA, FileName: "ELEC_vs_ARCH.xml", ImportedAt: day(2026, 10, 10)}).ID

	p.DuctsVsBeams = s.AddClashTest(domain.ClashTest{FileID: p.FileOld, Name: "Ducts vs Beams", TestType: "hard",
		Counters: domain.ClashCounters{Total: 40, New: 3, Active: 10, Reviewed: 5, Approved: 2, Resolved: 20}}).ID
	p.PipesVsWalls = s.AddClashTest(domain.ClashTest{FileID: p.FileOld, Name: "Pipes vs Walls", TestType: "hard",
		Counters: domain.ClashCounters{Total: 10, New: 1, Active: 1, Resolved: 8}}).ID
	p.CableTrays = s.AddClashTest(domain.ClashTest{FileID: p.FileNew, Name: "Cable Trays", TestType: "clearance",
		Counters: domain.ClashCounters{Total: 5, New: 5}}).ID

	s.AddSnapshot(domain.ClashHistorySnapshot{TestID: p.DuctsVsBeams, SnapshotDate: day(2026, 10, 16),
		Counters: domain.ClashCounters{Total: 38, New: 6, Active: 12, Resolved: 20}})
	s.AddSnapshot(domain.ClashHistorySnapshot{TestID: p.DuctsVsBeams, SnapshotDate: day(2026, 10, 18),
		Counters: domain.ClashCounters{Total: 2, New: 2}})
	s.AddSnapshot(domain.ClashHistorySnapshot{TestID: p.PipesVsWalls, SnapshotDate: day(2026, 9, 1),
		Counters: domain.ClashCounters{Total: 9}})

	found := day(2026, 10, 1)
	for i, status := range []string{"new", "active", "active"} {
		s.AddClashResult(domain.ClashResult{
			TestID: p.DuctsVsBeams, Name: "Clash" + string(rune('1'+i)), Status: status,
			Point:    domain.ClashPoint{X: float64(i), Y: 1, Z: 2},
			Item1:    domain.ClashItem{ElementID: "1001", Name: "Duct", Layer: "M-Duct"},
			Item2:    domain.ClashItem{ElementID: "2002", Name: "Beam", Layer: "S-Beam"},
			HasImage: i == 0,
			FoundAt:  &found,
		})
	}
	return p
}
