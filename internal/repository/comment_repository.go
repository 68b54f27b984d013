package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinpath/logbook-api/internal/models"
)

const commentColumns = `id, logbook_id, scope, section, record_id, parent_id, author_id, author_role, body, created_at`

// CommentRepository persists threaded logbook feedback.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment and its audit entry in one transaction.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment, audit *models.AuditEntry) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin comment create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO logbook_comments
	(id, logbook_id, scope, section, record_id, parent_id, author_id, author_role, body, created_at)
	VALUES (:id, :logbook_id, :scope, :section, :record_id, :parent_id, :author_id, :author_role, :body, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	audit.LogbookID = comment.LogbookID
	if err = insertAuditEntry(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit comment create: %w", err)
	}
	return nil
}

// GetByID fetches a comment by identifier.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM logbook_comments WHERE id = $1`, commentColumns)
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByLogbook returns the full thread in creation order.
func (r *CommentRepository) ListByLogbook(ctx context.Context, logbookID string) ([]models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM logbook_comments WHERE logbook_id = $1 ORDER BY created_at ASC, id ASC`, commentColumns)
	comments := []models.Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, logbookID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
