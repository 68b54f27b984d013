package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SupervisionRepository implements the supervision directory: which
// supervisor reviews which trainee.
type SupervisionRepository struct {
	db *sqlx.DB
}

// NewSupervisionRepository constructs the repository.
func NewSupervisionRepository(db *sqlx.DB) *SupervisionRepository {
	return &SupervisionRepository{db: db}
}

// AssignedSupervisor returns the supervisor id assigned to a trainee.
func (r *SupervisionRepository) AssignedSupervisor(ctx context.Context, traineeID string) (string, error) {
	const query = `SELECT supervisor_id FROM supervisor_assignments WHERE trainee_id = $1 LIMIT 1`
	var supervisorID string
	if err := r.db.GetContext(ctx, &supervisorID, query, traineeID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find assigned supervisor: %w", err)
	}
	return supervisorID, nil
}

// IsAssigned reports whether the supervisor is assigned to the trainee.
func (r *SupervisionRepository) IsAssigned(ctx context.Context, supervisorID, traineeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM supervisor_assignments WHERE supervisor_id = $1 AND trainee_id = $2)`
	var assigned bool
	if err := r.db.GetContext(ctx, &assigned, query, supervisorID, traineeID); err != nil {
		return false, fmt.Errorf("check supervisor assignment: %w", err)
	}
	return assigned, nil
}
