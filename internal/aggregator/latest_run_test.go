package aggregator

import (
	"testing"
	"time"

	"revit-qc/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func run(id, modelID int64, errors int, at time.Time) domain.CheckRun {
	return domain.CheckRun{ID: id, ModelID: modelID, Kind: domain.CheckKindAxis, CheckDate: at, TotalInModel: 10, ErrorCount: errors}
}

func TestLatestRun_HighestIDWinsOverTimestamp(t *testing.T) {
	runs := []domain.CheckRun{
		run(4, 1, 2, day0.Add(48*time.Hour)),
		run(5, 1, 9, day0), // backfilled: older timestamp, newer id
		run(3, 1, 0, day0.Add(24*time.Hour)),
	}

	got, ok := LatestRun(runs, 1)
	require.True(t, ok)
	assert.Equal(t, int64(5), got.ID)

	latest := LatestByModel(runs)
	assert.Equal(t, int64(5), latest[1].ID)
}

func TestLatestRun_NeverChecked(t *testing.T) {
	runs := []domain.CheckRun{run(1, 2, 0, day0)}

	_, ok := LatestRun(runs, 1)
	assert.False(t, ok)

	_, ok = LatestByModel(runs)[1]
	assert.False(t, ok)

	_, ok = LatestRun(nil, 1)
	assert.False(t, ok)
}

func TestLatestByModel_OrderIndependent(t *testing.T) {
	a := []domain.CheckRun{run(1, 1, 3, day0), run(2, 2, 1, day0), run(7, 1, 0, day0), run(6, 2, 4, day0)}
	b := []domain.CheckRun{a[3], a[2], a[1], a[0]}

	assert.Equal(t, LatestByModel(a), LatestByModel(b))
	assert.Equal(t, int64(7), LatestByModel(a)[1].ID)
	assert.Equal(t, int64(6), LatestByModel(a)[2].ID)
}
