package domain

import "time"

// ClashCounters the six summary counters shared by live tests and archived snapshots
type ClashCounters struct {
	Total    int `json:"total"`
	New      int `json:"new"`
	Active   int `json:"active"`
	Reviewed int `json:"reviewed"`
	Approved int `json:"approved"`
	Resolved int `json:"resolved"`
}

// Add accumulates o into c
func (c *ClashCounters) Add(o ClashCounters) {
	c.Total += o.Total
	c.New += o.New
	c.Active += o.Active
	c.Reviewed += o.Reviewed
	c.Approved += o.Approved
	c.Resolved += o.Resolved
}

// Open is new + active, the "active" figure of rankings and directory cards
func (c ClashCounters) Open() int {
	return c.New + c.Active
}

// ClashFile one clash import batch of a directory (clash_files table)
type ClashFile struct {
	ID          int64     `db:"id"`
	DirectoryID int64     `db:"directory_id"`
	FileName    string    `db:"file_name"`
	ImportedAt  time.Time `db:"imported_at"`
}

// ClashTest live clash test; counters are overwritten on every import
type ClashTest struct {
	ID       int64  `db:"id"`
	FileID   int64  `db:"clash_file_id"`
	Name     string `db:"test_name"`
	TestType string `db:"test_type"`
	Counters ClashCounters
}

// ClashHistorySnapshot archived, immutable copy of a test's counters for one calendar day
type ClashHistorySnapshot struct {
	ID           int64     `db:"id"`
	TestID       int64     `db:"clash_test_id"`
	TestName     string    `db:"test_name"`
	SnapshotDate time.Time `db:"snapshot_date"`
	Counters     ClashCounters
}

// ClashPoint clash location in model coordinates
type ClashPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ClashItem one participant element of a clash
type ClashItem struct {
	ElementID string `json:"element_id"`
	Name      string `json:"name"`
	Layer     string `json:"layer,omitempty"`
}

// ClashResult single clash instance of a test
type ClashResult struct {
	ID       int64  `db:"id"`
	TestID   int64  `db:"clash_test_id"`
	Name     string `db:"result_name"`
	Status   string `db:"status"`
	Point    ClashPoint
	Item1    ClashItem
	Item2    ClashItem
	HasImage bool       `db:"has_image"`
	FoundAt  *time.Time `db:"found_at"`
}
