package service

import (
	"time"

	"revit-qc/internal/aggregator"
	"revit-qc/internal/domain"
)

// DirectorySummary one row of the directory listing
type DirectorySummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	TotalModels int       `json:"total_models"`

	AxisCheckedModels    int `json:"axis_checked_models"`
	AxisModelsWithErrors int `json:"axis_models_with_errors"`
	AxisTotalErrors      int `json:"axis_total_errors"`

	LevelCheckedModels    int `json:"level_checked_models"`
	LevelModelsWithErrors int `json:"level_models_with_errors"`
	LevelTotalErrors      int `json:"level_total_errors"`

	ClashFiles  int `json:"clash_files"`
	ClashTests  int `json:"clash_tests"`
	ClashActive int `json:"clash_active"`
}

// DomainStats portfolio figures of one versioned domain
type DomainStats struct {
	CheckedModels    int `json:"checked_models"`
	ModelsWithErrors int `json:"models_with_errors"`
	TotalErrors      int `json:"total_errors"`
}

func domainStats(r aggregator.DomainRollup) DomainStats {
	return DomainStats{
		CheckedModels:    r.CheckedModels,
		ModelsWithErrors: r.ErrorModels,
		TotalErrors:      r.TotalErrors,
	}
}

// ClashStats portfolio clash figures
type ClashStats struct {
	Files  int `json:"files"`
	Tests  int `json:"tests"`
	Active int `json:"active"`
}

// OverallStats portfolio-wide statistics
type OverallStats struct {
	TotalDirectories int         `json:"total_directories"`
	TotalModels      int         `json:"total_models"`
	Axis             DomainStats `json:"axis"`
	Level            DomainStats `json:"level"`
	Clash            ClashStats  `json:"clash"`
}

// RunSummary wire shape of one check run
type RunSummary struct {
	CheckID        int64     `json:"check_id"`
	CheckDate      time.Time `json:"check_date"`
	CheckType      string    `json:"check_type"`
	TotalInModel   int       `json:"total_in_model"`
	TotalReference int       `json:"total_reference"`
	ErrorCount     int       `json:"error_count"`
	SuccessCount   int       `json:"success_count"`
}

func runSummary(run *domain.CheckRun) *RunSummary {
	if run == nil {
		return nil
	}
	return &RunSummary{
		CheckID:        run.ID,
		CheckDate:      run.CheckDate,
		CheckType:      run.CheckType,
		TotalInModel:   run.TotalInModel,
		TotalReference: run.TotalReference,
		ErrorCount:     run.ErrorCount,
		SuccessCount:   run.SuccessCount(),
	}
}

// ModelSummary one row of a directory's model listing; Axis / Level are null when never checked
type ModelSummary struct {
	ID        int64       `json:"id"`
	ModelName string      `json:"model_name"`
	UpdatedAt time.Time   `json:"updated_at"`
	Axis      *RunSummary `json:"axis"`
	Level     *RunSummary `json:"level"`
}

// ReportError one error row of a report
type ReportError struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	ElementID       *string         `json:"element_id"`
	ErrorTypes      string          `json:"error_types"`
	ErrorTypesArray []string        `json:"error_types_array"`
	DeviationMM     *float64        `json:"deviation_mm"`
	IsPinned        domain.PinState `json:"is_pinned"`
	WorksetName     *string         `json:"workset_name"`
}

// CheckReport latest-run report. Run fields are inlined and absent when HasData is false.
type CheckReport struct {
	HasData   bool   `json:"has_data"`
	ModelID   int64  `json:"model_id"`
	ModelName string `json:"model_name,omitempty"`
	Kind      string `json:"kind"`
	*RunSummary
	Errors []ReportError `json:"errors"`
}

func checkReport(model *domain.Model, modelID int64, kind domain.CheckKind, r aggregator.Report) *CheckReport {
	out := &CheckReport{
		HasData:    r.HasData,
		ModelID:    modelID,
		Kind:       string(kind),
		RunSummary: runSummary(r.Run),
		Errors:     make([]ReportError, 0, len(r.Errors)),
	}
	if model != nil {
		out.ModelName = model.Name
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, ReportError{
			ID:              e.ID,
			Name:            e.Name,
			ElementID:       e.ElementID,
			ErrorTypes:      e.ErrorRecord.ErrorTypes,
			ErrorTypesArray: e.ErrorTypes,
			DeviationMM:     e.DeviationMM,
			IsPinned:        e.Pin,
			WorksetName:     e.Workset,
		})
	}
	return out
}

// ReferenceAxisItem reference axis of a directory
type ReferenceAxisItem struct {
	ID        int64     `json:"id"`
	AxisName  string    `json:"axis_name"`
	X1        float64   `json:"x1"`
	Y1        float64   `json:"y1"`
	X2        float64   `json:"x2"`
	Y2        float64   `json:"y2"`
	CreatedAt time.Time `json:"created_at"`
}

// ReferenceLevelItem reference level of a directory
type ReferenceLevelItem struct {
	ID        int64     `json:"id"`
	LevelName string    `json:"level_name"`
	Elevation float64   `json:"elevation"`
	CreatedAt time.Time `json:"created_at"`
}

// ClashFileSummary one clash file with its summed live counters
type ClashFileSummary struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	ImportedAt time.Time `json:"imported_at"`
	TestCount  int       `json:"test_count"`
	domain.ClashCounters
}

// ClashTestItem one row of the clash test ranking
type ClashTestItem struct {
	ID       int64  `json:"id"`
	FileID   int64  `json:"clash_file_id"`
	TestName string `json:"test_name"`
	TestType string `json:"test_type"`
	domain.ClashCounters
	Open int `json:"open"` // new + active
}

// HistoryTestItem per-test breakdown of a history point
type HistoryTestItem struct {
	TestID   int64  `json:"test_id"`
	TestName string `json:"test_name"`
	Total    int    `json:"total"`
	New      int    `json:"new"`
	Active   int    `json:"active"`
}

// HistoryPointItem one date of the merged clash series
type HistoryPointItem struct {
	Date string `json:"date"`
	domain.ClashCounters
	Tests []HistoryTestItem `json:"tests"`
}

// HistoryRawItem one input row of the merge, tagged with its producer
type HistoryRawItem struct {
	Date     string `json:"date"`
	TestID   int64  `json:"test_id"`
	TestName string `json:"test_name"`
	Source   string `json:"source"`
	domain.ClashCounters
}

// ClashHistory merged clash series plus the rows it was built from
type ClashHistory struct {
	History []HistoryPointItem `json:"history"`
	Raw     []HistoryRawItem   `json:"raw"`
}

// ClashResultItem one clash instance; the image blob is reduced to a flag
type ClashResultItem struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Status   string            `json:"status"`
	Point    domain.ClashPoint `json:"point"`
	Item1    domain.ClashItem  `json:"item1"`
	Item2    domain.ClashItem  `json:"item2"`
	HasImage bool              `json:"has_image"`
	FoundAt  *time.Time        `json:"found_at"`
}

// ClashResultsPage paged clash results
type ClashResultsPage struct {
	Items []ClashResultItem `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}
