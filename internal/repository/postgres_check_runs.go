package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"revit-qc/internal/domain"
)

// checkTables table and column names of one check kind
type checkTables struct {
	results      string
	errors       string
	totalCol     string
	referenceCol string
	nameCol      string
}

var checkTablesByKind = map[domain.CheckKind]checkTables{
	domain.CheckKindAxis: {
		results:      "axis_check_results",
		errors:       "axis_errors",
		totalCol:     "total_axes_in_model",
		referenceCol: "total_reference_axes",
		nameCol:      "axis_name",
	},
	domain.CheckKindLevel: {
		results:      "level_check_results",
		errors:       "level_errors",
		totalCol:     "total_levels_in_model",
		referenceCol: "total_reference_levels",
		nameCol:      "level_name",
	},
}

func tablesFor(kind domain.CheckKind) (checkTables, error) {
	t, ok := checkTablesByKind[kind]
	if !ok {
		return checkTables{}, fmt.Errorf("unknown check kind: %q", kind)
	}
	return t, nil
}

func (t checkTables) runColumns(alias string) string {
	cols := []string{"id", "model_id", "check_date", "check_type", t.totalCol, t.referenceCol, "error_count"}
	if alias != "" {
		for i, c := range cols {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner, kind domain.CheckKind) (domain.CheckRun, error) {
	var (
		run       domain.CheckRun
		checkType sql.NullString
	)
	if err := s.Scan(&run.ID, &run.ModelID, &run.CheckDate, &checkType,
		&run.TotalInModel, &run.TotalReference, &run.ErrorCount); err != nil {
		return run, err
	}
	run.Kind = kind
	run.CheckType = checkType.String
	return run, nil
}

// PostgresCheckRunsRepository axis/level check results
type PostgresCheckRunsRepository struct {
	db *sql.DB
}

func NewPostgresCheckRunsRepository(db *sql.DB) *PostgresCheckRunsRepository {
	return &PostgresCheckRunsRepository{db: db}
}

var _ CheckRunsRepository = (*PostgresCheckRunsRepository)(nil)

func (r *PostgresCheckRunsRepository) LatestRuns(ctx context.Context, kind domain.CheckKind, modelIDs []int64) (map[int64]domain.CheckRun, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	latest := make(map[int64]domain.CheckRun)
	if modelIDs != nil && len(modelIDs) == 0 {
		return latest, nil
	}

	inner := `SELECT model_id, MAX(id) AS latest_id FROM ` + t.results
	args := []any{}
	if modelIDs != nil {
		inner += ` WHERE model_id = ANY($1)`
		args = append(args, pq.Array(modelIDs))
	}
	inner += ` GROUP BY model_id`

	query := `SELECT ` + t.runColumns("r") + ` FROM ` + t.results + ` r
		INNER JOIN (` + inner + `) latest ON r.id = latest.latest_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest %s runs: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		run, err := scanRun(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s run: %w", kind, err)
		}
		latest[run.ModelID] = run
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s runs: %w", kind, err)
	}
	return latest, nil
}

func (r *PostgresCheckRunsRepository) LatestRun(ctx context.Context, kind domain.CheckKind, modelID int64) (*domain.CheckRun, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + t.runColumns("") + ` FROM ` + t.results + `
		WHERE model_id = $1
		ORDER BY id DESC
		LIMIT 1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, modelID), kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest %s run: %w", kind, err)
	}
	return &run, nil
}

func (r *PostgresCheckRunsRepository) ListRuns(ctx context.Context, kind domain.CheckKind, modelID int64, filter RunFilter) ([]domain.CheckRun, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	where := []string{"model_id = $1"}
	args := []any{modelID}
	argN := 2
	if filter.From != nil {
		where = append(where, fmt.Sprintf("check_date >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("check_date <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}
	query := `SELECT ` + t.runColumns("") + ` FROM ` + t.results +
		` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s runs: %w", kind, err)
	}
	defer rows.Close()

	runs := []domain.CheckRun{}
	for rows.Next() {
		run, err := scanRun(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s run: %w", kind, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s runs: %w", kind, err)
	}
	return runs, nil
}

func (r *PostgresCheckRunsRepository) ListErrors(ctx context.Context, kind domain.CheckKind, runID int64) ([]domain.ErrorRecord, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, check_result_id, ` + t.nameCol + `, element_id, error_types, deviation_mm, is_pinned, workset_name
		FROM ` + t.errors + `
		WHERE check_result_id = $1
		ORDER BY ` + t.nameCol + `, id`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s errors: %w", kind, err)
	}
	defer rows.Close()

	records := []domain.ErrorRecord{}
	for rows.Next() {
		var (
			rec        domain.ErrorRecord
			elementID  sql.NullString
			errorTypes sql.NullString
			deviation  sql.NullFloat64
			pinned     sql.NullBool
			workset    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Name, &elementID, &errorTypes,
			&deviation, &pinned, &workset); err != nil {
			return nil, fmt.Errorf("failed to scan %s error: %w", kind, err)
		}
		if elementID.Valid {
			rec.ElementID = &elementID.String
		}
		rec.ErrorTypes = errorTypes.String
		if deviation.Valid {
			rec.DeviationMM = &deviation.Float64
		}
		rec.Pin = domain.PinStateFromBool(pinned.Valid, pinned.Bool)
		if workset.Valid {
			rec.Workset = &workset.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s errors: %w", kind, err)
	}
	return records, nil
}

func (r *PostgresCheckRunsRepository) DeleteRun(ctx context.Context, kind domain.CheckKind, runID int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.errors+` WHERE check_result_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete %s errors: %w", kind, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM `+t.results+` WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete %s run: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s run delete: %w", kind, err)
	}
	return nil
}
