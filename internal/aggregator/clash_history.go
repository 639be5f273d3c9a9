package aggregator

import (
	"fmt"
	"sort"
	"time"

	"revit-qc/internal/domain"
)

// DateLayout calendar-date key of the history series
const DateLayout = "2006-01-02"

// SameDayPolicy decides what happens when a date has both an archived
// snapshot and the live counters of the same test (the snapshot job already ran today).
type SameDayPolicy int

const (
	// SameDaySum adds archived and live rows together (current behaviour).
	SameDaySum SameDayPolicy = iota
	// SameDayPreferLive drops the archived row of a test when its live row shares the date.
	SameDayPreferLive
)

// ParseSameDayPolicy accepts "sum" (default when empty) or "prefer-live"
func ParseSameDayPolicy(s string) (SameDayPolicy, error) {
	switch s {
	case "", "sum":
		return SameDaySum, nil
	case "prefer-live":
		return SameDayPreferLive, nil
	default:
		return SameDaySum, fmt.Errorf("unknown same-day policy: %q", s)
	}
}

func (p SameDayPolicy) String() string {
	if p == SameDayPreferLive {
		return "prefer-live"
	}
	return "sum"
}

// HistorySource producer of a history row
type HistorySource string

const (
	SourceArchive HistorySource = "archive"
	SourceLive    HistorySource = "live"
)

// HistoryRow one (date, test, counters) observation from either producer
type HistoryRow struct {
	Date     string
	TestID   int64
	TestName string
	Source   HistorySource
	Counters domain.ClashCounters
}

// ArchivedRows tags snapshots with their archive date. Snapshot dates are calendar
// dates stored without a zone, so they are formatted as-is.
func ArchivedRows(snaps []domain.ClashHistorySnapshot) []HistoryRow {
	rows := make([]HistoryRow, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, HistoryRow{
			Date:     s.SnapshotDate.Format(DateLayout),
			TestID:   s.TestID,
			TestName: s.TestName,
			Source:   SourceArchive,
			Counters: s.Counters,
		})
	}
	return rows
}

// LiveRows tags the current counters of tests with today's date in loc.
func LiveRows(tests []domain.ClashTest, now time.Time, loc *time.Location) []HistoryRow {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc).Format(DateLayout)
	rows := make([]HistoryRow, 0, len(tests))
	for _, t := range tests {
		rows = append(rows, HistoryRow{
			Date:     today,
			TestID:   t.ID,
			TestName: t.Name,
			Source:   SourceLive,
			Counters: t.Counters,
		})
	}
	return rows
}

// TestBreakdown per-test contribution to one history point
type TestBreakdown struct {
	TestID   int64
	TestName string
	Counters domain.ClashCounters
}

// HistoryPoint all matching tests summed for one calendar date
type HistoryPoint struct {
	Date     string
	Counters domain.ClashCounters
	Tests    []TestBreakdown
}

// MergeHistory folds archived and live rows into one series, one point per date,
// ascending. Dates without rows produce no point.
func MergeHistory(archived, live []HistoryRow, policy SameDayPolicy) []HistoryPoint {
	type key struct {
		date string
		test int64
	}

	rows := make([]HistoryRow, 0, len(archived)+len(live))
	if policy == SameDayPreferLive {
		shadowed := make(map[key]bool, len(live))
		for _, r := range live {
			shadowed[key{r.Date, r.TestID}] = true
		}
		for _, r := range archived {
			if !shadowed[key{r.Date, r.TestID}] {
				rows = append(rows, r)
			}
		}
	} else {
		rows = append(rows, archived...)
	}
	rows = append(rows, live...)

	points := make(map[string]*HistoryPoint)
	perTest := make(map[key]int) // index into points[date].Tests
	for _, r := range rows {
		p, ok := points[r.Date]
		if !ok {
			p = &HistoryPoint{Date: r.Date}
			points[r.Date] = p
		}
		p.Counters.Add(r.Counters)

		k := key{r.Date, r.TestID}
		if i, seen := perTest[k]; seen {
			p.Tests[i].Counters.Add(r.Counters)
			continue
		}
		perTest[k] = len(p.Tests)
		p.Tests = append(p.Tests, TestBreakdown{TestID: r.TestID, TestName: r.TestName, Counters: r.Counters})
	}

	series := make([]HistoryPoint, 0, len(points))
	for _, p := range points {
		sort.Slice(p.Tests, func(i, j int) bool {
			if p.Tests[i].TestName != p.Tests[j].TestName {
				return p.Tests[i].TestName < p.Tests[j].TestName
			}
			return p.Tests[i].TestID < p.Tests[j].TestID
		})
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// Today calendar date of now in loc, as UTC midnight (the form snapshot dates are stored in)
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowStart first calendar day of a trailing window covering exactly days dates,
// today included: [today-(days-1), today]. days < 1 is treated as 1.
func WindowStart(now time.Time, loc *time.Location, days int) time.Time {
	if days < 1 {
		days = 1
	}
	return Today(now, loc).AddDate(0, 0, -(days - 1))
}
