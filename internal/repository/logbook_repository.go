package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinpath/logbook-api/internal/models"
)

const logbookColumns = `id, trainee_id, week_start, status, section_totals, review_comments, reviewer_id,
       submitted_at, reviewed_at, approved_at, locked_at, version, created_at, updated_at`

// LogbookRepository persists the weekly logbook aggregate.
type LogbookRepository struct {
	db *sqlx.DB
}

// NewLogbookRepository constructs the repository.
func NewLogbookRepository(db *sqlx.DB) *LogbookRepository {
	return &LogbookRepository{db: db}
}

// EnsureDraft creates the draft row for a (trainee, week) pair if it does
// not exist yet and returns the aggregate either way.
func (r *LogbookRepository) EnsureDraft(ctx context.Context, traineeID string, weekStart time.Time) (*models.Logbook, error) {
	now := time.Now().UTC()
	const insert = `INSERT INTO logbooks (id, trainee_id, week_start, status, section_totals, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
	ON CONFLICT (trainee_id, week_start) DO NOTHING`
	totals := models.SectionTotals{}
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), traineeID, weekStart, models.StatusDraft, totals, now); err != nil {
		return nil, fmt.Errorf("ensure draft logbook: %w", err)
	}
	return r.GetByTraineeWeek(ctx, traineeID, weekStart)
}

// GetByID fetches a logbook by identifier.
func (r *LogbookRepository) GetByID(ctx context.Context, id string) (*models.Logbook, error) {
	query := fmt.Sprintf(`SELECT %s FROM logbooks WHERE id = $1`, logbookColumns)
	var logbook models.Logbook
	if err := r.db.GetContext(ctx, &logbook, query, id); err != nil {
		return nil, err
	}
	return &logbook, nil
}

// GetByTraineeWeek fetches the aggregate for a trainee's week.
func (r *LogbookRepository) GetByTraineeWeek(ctx context.Context, traineeID string, weekStart time.Time) (*models.Logbook, error) {
	query := fmt.Sprintf(`SELECT %s FROM logbooks WHERE trainee_id = $1 AND week_start = $2`, logbookColumns)
	var logbook models.Logbook
	if err := r.db.GetContext(ctx, &logbook, query, traineeID, weekStart); err != nil {
		return nil, err
	}
	return &logbook, nil
}

// List returns logbooks matching the filter, most recent week first.
func (r *LogbookRepository) List(ctx context.Context, filter models.LogbookFilter) ([]models.Logbook, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM logbooks`, logbookColumns))

	conditions := make([]string, 0, 4)
	if filter.TraineeID != "" {
		args = append(args, filter.TraineeID)
		conditions = append(conditions, fmt.Sprintf("trainee_id = $%d", len(args)))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		conditions = append(conditions, fmt.Sprintf("trainee_id IN (SELECT trainee_id FROM supervisor_assignments WHERE supervisor_id = $%d)", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.WeekStart != nil {
		args = append(args, *filter.WeekStart)
		conditions = append(conditions, fmt.Sprintf("week_start = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY week_start DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	logbooks := []models.Logbook{}
	if err := r.db.SelectContext(ctx, &logbooks, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list logbooks: %w", err)
	}
	return logbooks, nil
}

// TransitionParams groups the columns a workflow transition may set. The
// update is guarded by the aggregate version so concurrent transitions
// on the same logbook serialize: the loser sees sql.ErrNoRows.
type TransitionParams struct {
	ID              string
	ExpectedVersion int
	Status          models.LogbookStatus
	SubmittedAt     *time.Time
	ReviewedAt      *time.Time
	ApprovedAt      *time.Time
	LockedAt        *time.Time
	ReviewerID      *string
	ReviewComments  *string
	SectionTotals   *models.SectionTotals
	Audit           models.AuditEntry
}

// Transition applies a guarded status update and appends the matching
// audit entry in one transaction. No state change is ever committed
// without its audit record.
func (r *LogbookRepository) Transition(ctx context.Context, params TransitionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	setParts := []string{
		"status = :status",
		"version = version + 1",
		"updated_at = :updated_at",
	}
	namedArgs := map[string]interface{}{
		"id":         params.ID,
		"version":    params.ExpectedVersion,
		"status":     params.Status,
		"updated_at": time.Now().UTC(),
	}
	if params.SubmittedAt != nil {
		setParts = append(setParts, "submitted_at = :submitted_at")
		namedArgs["submitted_at"] = *params.SubmittedAt
	}
	if params.ReviewedAt != nil {
		setParts = append(setParts, "reviewed_at = :reviewed_at")
		namedArgs["reviewed_at"] = *params.ReviewedAt
	}
	if params.ApprovedAt != nil {
		setParts = append(setParts, "approved_at = :approved_at")
		namedArgs["approved_at"] = *params.ApprovedAt
	}
	if params.LockedAt != nil {
		setParts = append(setParts, "locked_at = :locked_at")
		namedArgs["locked_at"] = *params.LockedAt
	}
	if params.ReviewerID != nil {
		setParts = append(setParts, "reviewer_id = :reviewer_id")
		namedArgs["reviewer_id"] = *params.ReviewerID
	}
	if params.ReviewComments != nil {
		setParts = append(setParts, "review_comments = :review_comments")
		namedArgs["review_comments"] = *params.ReviewComments
	}
	if params.SectionTotals != nil {
		setParts = append(setParts, "section_totals = :section_totals")
		namedArgs["section_totals"] = *params.SectionTotals
	}

	query := fmt.Sprintf("UPDATE logbooks SET %s WHERE id = :id AND version = :version", strings.Join(setParts, ", "))
	result, err := tx.NamedExecContext(ctx, query, namedArgs)
	if err != nil {
		return fmt.Errorf("update logbook status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check logbook update rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	audit := params.Audit
	audit.LogbookID = params.ID
	if err = insertAuditEntry(ctx, tx, &audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}
