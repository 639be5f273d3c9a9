package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CheckKind identifies a versioned check domain
type CheckKind string

const (
	CheckKindAxis  CheckKind = "axis"
	CheckKindLevel CheckKind = "level"
)

// CheckKinds lists every versioned domain, in display order
var CheckKinds = []CheckKind{CheckKindAxis, CheckKindLevel}

// ParseCheckKind parses a kind; empty input defaults to axis
func ParseCheckKind(s string) (CheckKind, error) {
	switch s {
	case "", string(CheckKindAxis):
		return CheckKindAxis, nil
	case string(CheckKindLevel):
		return CheckKindLevel, nil
	default:
		return "", fmt.Errorf("unknown check kind: %q", s)
	}
}

// CheckRun one inspection result of a model (axis_check_results / level_check_results).
// ID is assigned at insertion and is the only recency key.
type CheckRun struct {
	ID             int64     `db:"id"`
	ModelID        int64     `db:"model_id"`
	Kind           CheckKind `db:"-"`
	CheckDate      time.Time `db:"check_date"`
	CheckType      string    `db:"check_type"`
	TotalInModel   int       `db:"total_in_model"`
	TotalReference int       `db:"total_reference"`
	ErrorCount     int       `db:"error_count"`
}

// SuccessCount is total_in_model - error_count, unclamped
func (r CheckRun) SuccessCount() int {
	return r.TotalInModel - r.ErrorCount
}

// PinState tri-state pin flag of an element
type PinState int

const (
	PinUnknown PinState = iota
	PinPinned
	PinUnpinned
)

// PinStateFromBool maps a nullable boolean column
func PinStateFromBool(valid, pinned bool) PinState {
	switch {
	case !valid:
		return PinUnknown
	case pinned:
		return PinPinned
	default:
		return PinUnpinned
	}
}

func (p PinState) String() string {
	switch p {
	case PinPinned:
		return "pinned"
	case PinUnpinned:
		return "unpinned"
	default:
		return "unknown"
	}
}

// MarshalJSON keeps the wire shape of is_pinned: true, false or null
func (p PinState) MarshalJSON() ([]byte, error) {
	switch p {
	case PinPinned:
		return []byte("true"), nil
	case PinUnpinned:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false or null
func (p *PinState) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*p = PinUnknown
	} else {
		*p = PinStateFromBool(true, *v)
	}
	return nil
}

// ErrorRecord one failed element of a run (axis_errors / level_errors)
type ErrorRecord struct {
	ID          int64    `db:"id"`
	RunID       int64    `db:"check_result_id"`
	Name        string   `db:"entity_name"` // axis_name or level_name
	ElementID   *string  `db:"element_id"`
	ErrorTypes  string   `db:"error_types"` // ';' delimited
	DeviationMM *float64 `db:"deviation_mm"`
	Pin         PinState `db:"is_pinned"`
	Workset     *string  `db:"workset_name"`
}

// ReferenceAxis ground-truth axis of a directory's reference model
type ReferenceAxis struct {
	ID        int64     `db:"id"`
	ModelID   int64     `db:"model_id"`
	Name      string    `db:"axis_name"`
	X1        float64   `db:"x1"`
	Y1        float64   `db:"y1"`
	X2        float64   `db:"x2"`
	Y2        float64   `db:"y2"`
	CreatedAt time.Time `db:"created_at"`
}

// ReferenceLevel ground-truth level of a directory's reference model
type ReferenceLevel struct {
	ID        int64     `db:"id"`
	ModelID   int64     `db:"model_id"`
	Name      string    `db:"level_name"`
	Elevation float64   `db:"elevation"`
	CreatedAt time.Time `db:"created_at"`
}
