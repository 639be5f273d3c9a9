package aggregator

import (
	"sort"
	"strings"

	"revit-qc/internal/domain"
)

// ErrorTypeSeparator separates error-type tags in storage
const ErrorTypeSeparator = ";"

// ParseErrorTypes splits the stored tag list, trimming whitespace and dropping empty tokens.
// The result is never nil.
func ParseErrorTypes(s string) []string {
	out := []string{}
	for _, tok := range strings.Split(s, ErrorTypeSeparator) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ReportEntry an error record with its parsed tag set
type ReportEntry struct {
	domain.ErrorRecord
	ErrorTypes []string
}

// Report latest-run report of one model in one domain.
// HasData is false when the model was never checked; Run is nil then.
type Report struct {
	HasData      bool
	Run          *domain.CheckRun
	SuccessCount int
	Errors       []ReportEntry
}

// AssembleReport joins a resolved run with its error rows. A nil run yields the
// "no data" report. Rows are ordered by entity name, then id.
func AssembleReport(run *domain.CheckRun, records []domain.ErrorRecord) Report {
	if run == nil {
		return Report{HasData: false, Errors: []ReportEntry{}}
	}

	sorted := make([]domain.ErrorRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})

	entries := make([]ReportEntry, 0, len(sorted))
	for _, rec := range sorted {
		entries = append(entries, ReportEntry{
			ErrorRecord: rec,
			ErrorTypes:  ParseErrorTypes(rec.ErrorTypes),
		})
	}

	return Report{
		HasData:      true,
		Run:          run,
		SuccessCount: run.SuccessCount(),
		Errors:       entries,
	}
}
