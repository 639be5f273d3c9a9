package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"revit-qc/internal/domain"
)

// PostgresDirectoriesRepository directories table
type PostgresDirectoriesRepository struct {
	db *sql.DB
}

func NewPostgresDirectoriesRepository(db *sql.DB) *PostgresDirectoriesRepository {
	return &PostgresDirectoriesRepository{db: db}
}

var _ DirectoriesRepository = (*PostgresDirectoriesRepository)(nil)

func (r *PostgresDirectoriesRepository) ListDirectories(ctx context.Context) ([]domain.Directory, error) {
	query := `
		SELECT id, code, created_at
		FROM directories
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	defer rows.Close()

	dirs := []domain.Directory{}
	for rows.Next() {
		var d domain.Directory
		if err := rows.Scan(&d.ID, &d.Code, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		dirs = append(dirs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate directories: %w", err)
	}
	return dirs, nil
}

func (r *PostgresDirectoriesRepository) GetDirectory(ctx context.Context, directoryID int64) (*domain.Directory, error) {
	var d domain.Directory
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, created_at FROM directories WHERE id = $1`, directoryID,
	).Scan(&d.ID, &d.Code, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}
	return &d, nil
}

// PostgresModelsRepository models table
type PostgresModelsRepository struct {
	db *sql.DB
}

func NewPostgresModelsRepository(db *sql.DB) *PostgresModelsRepository {
	return &PostgresModelsRepository{db: db}
}

var _ ModelsRepository = (*PostgresModelsRepository)(nil)

func (r *PostgresModelsRepository) ListModels(ctx context.Context, directoryID int64) ([]domain.Model, error) {
	query := `SELECT id, directory_id, model_name, updated_at FROM models`
	args := []any{}
	if directoryID != 0 {
		query += ` WHERE directory_id = $1`
		args = append(args, directoryID)
	}
	query += ` ORDER BY model_name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	models := []domain.Model{}
	for rows.Next() {
		var m domain.Model
		if err := rows.Scan(&m.ID, &m.DirectoryID, &m.Name, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate models: %w", err)
	}
	return models, nil
}

func (r *PostgresModelsRepository) GetModel(ctx context.Context, modelID int64) (*domain.Model, error) {
	var m domain.Model
	err := r.db.QueryRowContext(ctx,
		`SELECT id, directory_id, model_name, updated_at FROM models WHERE id = $1`, modelID,
	).Scan(&m.ID, &m.DirectoryID, &m.Name, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return &m, nil
}

// DeleteModel deletes dependents explicitly so the cascade does not rely on FK options
func (r *PostgresModelsRepository) DeleteModel(ctx context.Context, modelID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range domain.CheckKinds {
		t := checkTablesByKind[kind]
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+t.errors+` WHERE check_result_id IN (SELECT id FROM `+t.results+` WHERE model_id = $1)`,
			modelID,
		); err != nil {
			return fmt.Errorf("failed to delete %s errors: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.results+` WHERE model_id = $1`, modelID); err != nil {
			return fmt.Errorf("failed to delete %s runs: %w", kind, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM axes WHERE model_id = $1`, modelID); err != nil {
		return fmt.Errorf("failed to delete reference axes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM levels WHERE model_id = $1`, modelID); err != nil {
		return fmt.Errorf("failed to delete reference levels: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM models WHERE id = $1`, modelID)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model delete: %w", err)
	}
	return nil
}

// PostgresReferenceRepository axes / levels of the reference model
type PostgresReferenceRepository struct {
	db *sql.DB
}

func NewPostgresReferenceRepository(db *sql.DB) *PostgresReferenceRepository {
	return &PostgresReferenceRepository{db: db}
}

var _ ReferenceRepository = (*PostgresReferenceRepository)(nil)

func (r *PostgresReferenceRepository) ReferenceAxes(ctx context.Context, directoryID int64) ([]domain.ReferenceAxis, error) {
	query := `
		SELECT a.id, a.model_id, a.axis_name, a.x1, a.y1, a.x2, a.y2, a.created_at
		FROM axes a
		JOIN models m ON a.model_id = m.id
		WHERE m.directory_id = $1 AND m.model_name = $2
		ORDER BY a.axis_name, a.id
	`
	rows, err := r.db.QueryContext(ctx, query, directoryID, domain.ReferenceModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference axes: %w", err)
	}
	defer rows.Close()

	axes := []domain.ReferenceAxis{}
	for rows.Next() {
		var a domain.ReferenceAxis
		if err := rows.Scan(&a.ID, &a.ModelID, &a.Name, &a.X1, &a.Y1, &a.X2, &a.Y2, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reference axis: %w", err)
		}
		axes = append(axes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reference axes: %w", err)
	}
	return axes, nil
}

func (r *PostgresReferenceRepository) ReferenceLevels(ctx context.Context, directoryID int64) ([]domain.ReferenceLevel, error) {
	query := `
		SELECT l.id, l.model_id, l.level_name, l.elevation, l.created_at
		FROM levels l
		JOIN models m ON l.model_id = m.id
		WHERE m.directory_id = $1 AND m.model_name = $2
		ORDER BY l.level_name, l.id
	`
	rows, err := r.db.QueryContext(ctx, query, directoryID, domain.ReferenceModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference levels: %w", err)
	}
	defer rows.Close()

	levels := []domain.ReferenceLevel{}
	for rows.Next() {
		var l domain.ReferenceLevel
		if err := rows.Scan(&l.ID, &l.ModelID, &l.Name, &l.Elevation, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reference level: %w", err)
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reference levels: %w", err)
	}
	return levels, nil
}

// NewPostgresRepositories wires every Postgres repository over one pool
func NewPostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Directories: NewPostgresDirectoriesRepository(db),
		Models:      NewPostgresModelsRepository(db),
		Runs:        NewPostgresCheckRunsRepository(db),
		References:  NewPostgresReferenceRepository(db),
		Clash:       NewPostgresClashRepository(db),
	}
}
