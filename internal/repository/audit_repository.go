package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinpath/logbook-api/internal/models"
)

const auditColumns = `id, logbook_id, seq, actor_id, action, from_status, to_status, description, diff_snapshot, created_at`

// AuditRepository reads the append-only logbook audit trail. Writes go
// through insertAuditEntry so every repository can append inside the
// same transaction as the mutation it describes.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// ListByLogbook returns the full trail ordered by the server-assigned
// sequence number. Ordering by seq, not wall clock, is what makes the
// trail replayable.
func (r *AuditRepository) ListByLogbook(ctx context.Context, logbookID string) ([]models.AuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM logbook_audit WHERE logbook_id = $1 ORDER BY seq ASC`, auditColumns)
	entries := []models.AuditEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, logbookID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// insertAuditEntry appends one entry using the caller's transaction or
// connection. The seq column is a BIGSERIAL assigned by the database.
func insertAuditEntry(ctx context.Context, ext sqlx.ExtContext, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO logbook_audit
	(id, logbook_id, actor_id, action, from_status, to_status, description, diff_snapshot, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING seq`
	row := ext.QueryRowxContext(ctx, query,
		entry.ID,
		entry.LogbookID,
		entry.ActorID,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Description,
		entry.DiffSnapshot,
		entry.CreatedAt,
	)
	if err := row.Scan(&entry.Seq); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
