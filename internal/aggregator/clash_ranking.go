package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"revit-qc/internal/domain"
)

// ClashSortKey ranking key of clash tests
type ClashSortKey string

const (
	SortByName   ClashSortKey = "name"
	SortByTotal  ClashSortKey = "total"
	SortByActive ClashSortKey = "active" // new + active
	SortByNew    ClashSortKey = "new"
)

// ParseClashSortKey defaults to name
func ParseClashSortKey(s string) (ClashSortKey, error) {
	switch k := ClashSortKey(strings.ToLower(s)); k {
	case "":
		return SortByName, nil
	case SortByName, SortByTotal, SortByActive, SortByNew:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key: %q", s)
	}
}

// SortOrder asc or desc
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder defaults to asc
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case "":
		return OrderAsc, nil
	case OrderAsc, OrderDesc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order: %q", s)
	}
}

// RankClashTests returns a sorted copy of tests. Ties are broken by name then id,
// always ascending, so the order is deterministic in both directions.
func RankClashTests(tests []domain.ClashTest, key ClashSortKey, order SortOrder) []domain.ClashTest {
	out := make([]domain.ClashTest, len(tests))
	copy(out, tests)

	metric := func(t domain.ClashTest) int {
		switch key {
		case SortByTotal:
			return t.Counters.Total
		case SortByActive:
			return t.Counters.Open()
		case SortByNew:
			return t.Counters.New
		}
		return 0
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if key != SortByName && key != "" {
			if ma, mb := metric(a), metric(b); ma != mb {
				if order == OrderDesc {
					return ma > mb
				}
				return ma < mb
			}
		} else if a.Name != b.Name {
			if order == OrderDesc {
				return a.Name > b.Name
			}
			return a.Name < b.Name
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}
