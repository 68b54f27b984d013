package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinpath/logbook-api/internal/models"
)

const unlockColumns = `id, logbook_id, requested_by, reason, requested_at, granted_by, granted_at, duration_minutes`

// outstandingCondition matches requests that are still pending or carry
// an unexpired grant. Expiry is computed from the stored timestamps.
const outstandingCondition = `(granted_at IS NULL OR granted_at + duration_minutes * interval '1 minute' > $2)`

// UnlockRepository persists the unlock request lifecycle.
type UnlockRepository struct {
	db *sqlx.DB
}

// NewUnlockRepository constructs the repository.
func NewUnlockRepository(db *sqlx.DB) *UnlockRepository {
	return &UnlockRepository{db: db}
}

// Create inserts a pending request and its audit entry, guarded against
// an already outstanding request for the same logbook. Returns
// sql.ErrNoRows when the guard rejects the insert.
func (r *UnlockRepository) Create(ctx context.Context, request *models.UnlockRequest, audit *models.AuditEntry) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unlock create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO unlock_requests (id, logbook_id, requested_by, reason, requested_at)
	SELECT $1, $2, $3, $4, $5
	WHERE NOT EXISTS (
		SELECT 1 FROM unlock_requests
		WHERE logbook_id = $2
		  AND (granted_at IS NULL OR granted_at + duration_minutes * interval '1 minute' > $5)
	)`
	result, err := tx.ExecContext(ctx, query, request.ID, request.LogbookID, request.RequestedBy, request.Reason, request.RequestedAt)
	if err != nil {
		return fmt.Errorf("create unlock request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check unlock create rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	audit.LogbookID = request.LogbookID
	if err = insertAuditEntry(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit unlock create: %w", err)
	}
	return nil
}

// GrantParams carries the supervisor decision.
type GrantParams struct {
	ID              string
	GrantedBy       string
	GrantedAt       time.Time
	DurationMinutes int
}

// Grant stamps the grant onto a still-pending request together with its
// audit entry. Returns sql.ErrNoRows when the request was already
// granted (or does not exist), so a double grant can never produce two
// active windows.
func (r *UnlockRepository) Grant(ctx context.Context, params GrantParams, audit *models.AuditEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unlock grant: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE unlock_requests
	SET granted_by = $2, granted_at = $3, duration_minutes = $4
	WHERE id = $1 AND granted_at IS NULL`
	result, err := tx.ExecContext(ctx, query, params.ID, params.GrantedBy, params.GrantedAt, params.DurationMinutes)
	if err != nil {
		return fmt.Errorf("grant unlock request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check unlock grant rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = insertAuditEntry(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit unlock grant: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *UnlockRepository) GetByID(ctx context.Context, id string) (*models.UnlockRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM unlock_requests WHERE id = $1`, unlockColumns)
	var request models.UnlockRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindOutstanding returns the pending or active request for a logbook,
// or nil when a new unlock cycle may start.
func (r *UnlockRepository) FindOutstanding(ctx context.Context, logbookID string, now time.Time) (*models.UnlockRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM unlock_requests WHERE logbook_id = $1 AND %s ORDER BY requested_at DESC LIMIT 1`,
		unlockColumns, outstandingCondition)
	var request models.UnlockRequest
	if err := r.db.GetContext(ctx, &request, query, logbookID, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find outstanding unlock request: %w", err)
	}
	return &request, nil
}

// ActiveGrant returns the currently active grant for a logbook, or nil.
func (r *UnlockRepository) ActiveGrant(ctx context.Context, logbookID string, now time.Time) (*models.UnlockRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM unlock_requests
	WHERE logbook_id = $1 AND granted_at IS NOT NULL AND granted_at + duration_minutes * interval '1 minute' > $2
	ORDER BY granted_at DESC LIMIT 1`, unlockColumns)
	var request models.UnlockRequest
	if err := r.db.GetContext(ctx, &request, query, logbookID, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active unlock grant: %w", err)
	}
	return &request, nil
}

// ListByLogbook returns the unlock history, newest first.
func (r *UnlockRepository) ListByLogbook(ctx context.Context, logbookID string) ([]models.UnlockRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM unlock_requests WHERE logbook_id = $1 ORDER BY requested_at DESC`, unlockColumns)
	requests := []models.UnlockRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, logbookID); err != nil {
		return nil, fmt.Errorf("list unlock requests: %w", err)
	}
	return requests, nil
}
