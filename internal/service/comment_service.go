package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type commentStore interface {
	Create(ctx context.Context, comment *models.Comment, audit *models.AuditEntry) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByLogbook(ctx context.Context, logbookID string) ([]models.Comment, error)
}

type commentLogbookStore interface {
	GetByID(ctx context.Context, id string) (*models.Logbook, error)
}

type entryLookup interface {
	GetByID(ctx context.Context, id string) (*models.PracticeEntry, error)
}

// CommentService manages the threaded feedback attached to logbooks.
// Comments are append-only and never change the workflow status.
type CommentService struct {
	comments  commentStore
	logbooks  commentLogbookStore
	entries   entryLookup
	directory SupervisionDirectory
	cache     ViewCacheInvalidator
	logger    *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(comments commentStore, logbooks commentLogbookStore, entries entryLookup, directory SupervisionDirectory, cache ViewCacheInvalidator, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		comments:  comments,
		logbooks:  logbooks,
		entries:   entries,
		directory: directory,
		cache:     cache,
		logger:    logger,
	}
}

// Add appends a comment at the given target and records the audit entry.
func (s *CommentService) Add(ctx context.Context, actor models.Actor, logbookID string, target models.CommentTarget, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment needs text")
	}

	logbook, err := s.loadLogbook(ctx, logbookID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureParticipant(ctx, actor, logbook); err != nil {
		return nil, err
	}
	if err := s.validateTarget(ctx, logbook, target); err != nil {
		return nil, err
	}

	comment := commentFromTarget(logbook.ID, target)
	comment.AuthorID = actor.ID
	comment.AuthorRole = actor.Role
	comment.Body = text

	audit := &models.AuditEntry{
		ActorID:     &actor.ID,
		Action:      models.ActionCommentAdded,
		Description: "comment added",
	}
	if err := s.comments.Create(ctx, comment, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	if s.cache != nil {
		s.cache.InvalidateView(ctx, logbook.ID)
	}

	s.logger.Info("comment_added",
		zap.String("logbook_id", logbook.ID),
		zap.String("comment_id", comment.ID),
		zap.String("scope", string(comment.Scope)),
	)
	return comment, nil
}

// Reply appends a reply to an existing comment. Threads are one level
// deep: a reply to a reply is re-parented onto the original top-level
// comment, flattening the thread.
func (s *CommentService) Reply(ctx context.Context, actor models.Actor, parentID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reply needs text")
	}

	parent, err := s.comments.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent comment")
	}

	logbook, err := s.loadLogbook(ctx, parent.LogbookID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureParticipant(ctx, actor, logbook); err != nil {
		return nil, err
	}

	topLevelID := parent.ID
	if parent.ParentID != nil {
		topLevelID = *parent.ParentID
	}

	comment := commentFromTarget(logbook.ID, parent.Target())
	comment.ParentID = &topLevelID
	comment.AuthorID = actor.ID
	comment.AuthorRole = actor.Role
	comment.Body = text

	audit := &models.AuditEntry{
		ActorID:     &actor.ID,
		Action:      models.ActionCommentAdded,
		Description: "reply added",
	}
	if err := s.comments.Create(ctx, comment, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reply")
	}
	if s.cache != nil {
		s.cache.InvalidateView(ctx, logbook.ID)
	}

	s.logger.Info("comment_reply_added",
		zap.String("logbook_id", logbook.ID),
		zap.String("comment_id", comment.ID),
		zap.String("parent_id", topLevelID),
	)
	return comment, nil
}

// List returns the full thread for a logbook in creation order.
func (s *CommentService) List(ctx context.Context, actor models.Actor, logbookID string) ([]models.Comment, error) {
	logbook, err := s.loadLogbook(ctx, logbookID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, logbook); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByLogbook(ctx, logbookID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// ensureParticipant authorises writing: owner or assigned supervisor.
// Admins read the thread but do not take part in it.
func (s *CommentService) ensureParticipant(ctx context.Context, actor models.Actor, logbook *models.Logbook) error {
	if actor.Role == models.RoleTrainee {
		if actor.ID != logbook.TraineeID {
			return appErrors.Clone(appErrors.ErrForbidden, "you may only comment on your own logbook")
		}
		return nil
	}
	if actor.IsSupervisor() {
		assigned, err := s.directory.IsAssigned(ctx, actor.ID, logbook.TraineeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervisor assignment")
		}
		if !assigned {
			return appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this trainee")
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the trainee and their supervisor may comment")
}

func (s *CommentService) ensureVisible(ctx context.Context, actor models.Actor, logbook *models.Logbook) error {
	if actor.IsAdmin() {
		return nil
	}
	return s.ensureParticipant(ctx, actor, logbook)
}

// validateTarget rejects record targets that point outside this logbook's
// week.
func (s *CommentService) validateTarget(ctx context.Context, logbook *models.Logbook, target models.CommentTarget) error {
	recordID, ok := target.RecordID()
	if !ok {
		return nil
	}
	entry, err := s.entries.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "record_id does not reference an entry of this logbook")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referenced entry")
	}
	if entry.TraineeID != logbook.TraineeID || !entry.WeekStart.Equal(logbook.WeekStart) {
		return appErrors.Clone(appErrors.ErrValidation, "record_id does not reference an entry of this logbook")
	}
	return nil
}

func (s *CommentService) loadLogbook(ctx context.Context, logbookID string) (*models.Logbook, error) {
	logbook, err := s.logbooks.GetByID(ctx, logbookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load logbook")
	}
	return logbook, nil
}

func commentFromTarget(logbookID string, target models.CommentTarget) *models.Comment {
	comment := &models.Comment{
		LogbookID: logbookID,
		Scope:     target.Scope(),
	}
	if section, ok := target.Section(); ok {
		comment.Section = &section
	}
	if recordID, ok := target.RecordID(); ok {
		comment.RecordID = &recordID
	}
	return comment
}
