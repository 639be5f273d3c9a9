// Package aggregator holds the read-side engine of the dashboard: latest-run
// resolution, domain rollups, report assembly and clash history merging.
// Everything here is a pure function over already-fetched rows.
package aggregator

import "revit-qc/internal/domain"

// LatestByModel indexes runs by owning model and keeps the run with the highest id.
// Recency is insertion order; check_date is never consulted, since ingestion may
// backfill a run with an older timestamp.
func LatestByModel(runs []domain.CheckRun) map[int64]domain.CheckRun {
	latest := make(map[int64]domain.CheckRun, len(runs))
	for _, run := range runs {
		if cur, ok := latest[run.ModelID]; !ok || run.ID > cur.ID {
			latest[run.ModelID] = run
		}
	}
	return latest
}

// LatestRun returns the highest-id run of modelID; ok is false when the model was never checked.
func LatestRun(runs []domain.CheckRun, modelID int64) (run domain.CheckRun, ok bool) {
	for _, r := range runs {
		if r.ModelID != modelID {
			continue
		}
		if !ok || r.ID > run.ID {
			run, ok = r, true
		}
	}
	return run, ok
}
