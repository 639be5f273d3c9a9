package domain

import "time"

// ReferenceModelName marks the ground-truth model of a directory.
// The reference model never takes part in rollups.
const ReferenceModelName = "_Reference"

// Directory project grouping of models (directories table)
type Directory struct {
	ID        int64     `db:"id"`
	Code      string    `db:"code"` // display name
	CreatedAt time.Time `db:"created_at"`
}

// Model one exported building model (models table)
type Model struct {
	ID          int64     `db:"id"`
	DirectoryID int64     `db:"directory_id"`
	Name        string    `db:"model_name"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// IsReference reports whether m is its directory's reference model
func (m Model) IsReference() bool {
	return m.Name == ReferenceModelName
}
