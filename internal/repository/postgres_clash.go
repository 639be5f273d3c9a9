package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"revit-qc/internal/domain"
)

const counterColumns = "summary_total, summary_new, summary_active, summary_reviewed, summary_approved, summary_resolved"

func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func counterDest(c *domain.ClashCounters) []any {
	return []any{&c.Total, &c.New, &c.Active, &c.Reviewed, &c.Approved, &c.Resolved}
}

// PostgresClashRepository clash import tables
type PostgresClashRepository struct {
	db *sql.DB
}

func NewPostgresClashRepository(db *sql.DB) *PostgresClashRepository {
	return &PostgresClashRepository{db: db}
}

var _ ClashRepository = (*PostgresClashRepository)(nil)

func (r *PostgresClashRepository) ListClashFiles(ctx context.Context, directoryID int64) ([]domain.ClashFile, error) {
	query := `SELECT id, directory_id, file_name, imported_at FROM clash_files`
	args := []any{}
	if directoryID != 0 {
		query += ` WHERE directory_id = $1`
		args = append(args, directoryID)
	}
	query += ` ORDER BY imported_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash files: %w", err)
	}
	defer rows.Close()

	files := []domain.ClashFile{}
	for rows.Next() {
		var f domain.ClashFile
		if err := rows.Scan(&f.ID, &f.DirectoryID, &f.FileName, &f.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan clash file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clash files: %w", err)
	}
	return files, nil
}

func (r *PostgresClashRepository) ListClashTests(ctx context.Context, directoryID int64, testIDs []int64) ([]domain.ClashTest, error) {
	where := []string{}
	args := []any{}
	if directoryID != 0 {
		args = append(args, directoryID)
		where = append(where, fmt.Sprintf("f.directory_id = $%d", len(args)))
	}
	if len(testIDs) > 0 {
		args = append(args, pq.Array(testIDs))
		where = append(where, fmt.Sprintf("t.id = ANY($%d)", len(args)))
	}

	query := `SELECT t.id, t.clash_file_id, t.test_name, t.test_type, ` + prefixed("t", counterColumns) + `
		FROM clash_tests t
		JOIN clash_files f ON t.clash_file_id = f.id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash tests: %w", err)
	}
	defer rows.Close()

	tests := []domain.ClashTest{}
	for rows.Next() {
		var (
			t        domain.ClashTest
			testType sql.NullString
		)
		dest := append([]any{&t.ID, &t.FileID, &t.Name, &testType}, counterDest(&t.Counters)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan clash test: %w", err)
		}
		t.TestType = testType.String
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clash tests: %w", err)
	}
	return tests, nil
}

func (r *PostgresClashRepository) ListClashSnapshots(ctx context.Context, testIDs []int64, since, until time.Time) ([]domain.ClashHistorySnapshot, error) {
	if len(testIDs) == 0 {
		return []domain.ClashHistorySnapshot{}, nil
	}
	query := `SELECT h.id, h.clash_test_id, t.test_name, h.snapshot_date, ` + prefixed("h", counterColumns) + `
		FROM clash_test_history h
		JOIN clash_tests t ON h.clash_test_id = t.id
		WHERE h.clash_test_id = ANY($1) AND h.snapshot_date >= $2 AND h.snapshot_date <= $3
		ORDER BY h.snapshot_date, h.clash_test_id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(testIDs), since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list clash snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []domain.ClashHistorySnapshot{}
	for rows.Next() {
		var s domain.ClashHistorySnapshot
		dest := append([]any{&s.ID, &s.TestID, &s.TestName, &s.SnapshotDate}, counterDest(&s.Counters)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan clash snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clash snapshots: %w", err)
	}
	return snaps, nil
}

func (r *PostgresClashRepository) ListClashResults(ctx context.Context, testID int64, filter ClashResultFilter, page, size int) ([]domain.ClashResult, int, error) {
	where := "clash_test_id = $1"
	args := []any{testID}
	if filter.Status != "" {
		where += " AND status = $2"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clash_results WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clash results: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, clash_test_id, result_name, status, point_x, point_y, point_z,
			item1_element_id, item1_name, item1_layer, item2_element_id, item2_name, item2_layer,
			(image IS NOT NULL) AS has_image, found_at
		FROM clash_results
		WHERE %s
		ORDER BY id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, size, pageOffset(page, size))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clash results: %w", err)
	}
	defer rows.Close()

	results := []domain.ClashResult{}
	for rows.Next() {
		var (
			c       domain.ClashResult
			foundAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.TestID, &c.Name, &c.Status,
			&c.Point.X, &c.Point.Y, &c.Point.Z,
			&c.Item1.ElementID, &c.Item1.Name, &c.Item1.Layer,
			&c.Item2.ElementID, &c.Item2.Name, &c.Item2.Layer,
			&c.HasImage, &foundAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan clash result: %w", err)
		}
		if foundAt.Valid {
			c.FoundAt = &foundAt.Time
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate clash results: %w", err)
	}
	return results, total, nil
}

func (r *PostgresClashRepository) DeleteClashFile(ctx context.Context, fileID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const testsOfFile = `SELECT id FROM clash_tests WHERE clash_file_id = $1`
	steps := []struct {
		what  string
		query string
	}{
		{"clash results", `DELETE FROM clash_results WHERE clash_test_id IN (` + testsOfFile + `)`},
		{"clash history", `DELETE FROM clash_test_history WHERE clash_test_id IN (` + testsOfFile + `)`},
		{"clash tests", `DELETE FROM clash_tests WHERE clash_file_id = $1`},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.query, fileID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", s.what, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM clash_files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete clash file: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clash file delete: %w", err)
	}
	return nil
}
