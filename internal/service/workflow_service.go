package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinpath/logbook-api/internal/models"
	"github.com/clinpath/logbook-api/internal/repository"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type workflowLogbookStore interface {
	GetByID(ctx context.Context, id string) (*models.Logbook, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

// EntryStore is the collaborator contract for per-section practice
// records. Totals snapshots are taken at submit/resubmit time and frozen
// onto the aggregate.
type EntryStore interface {
	SnapshotTotals(ctx context.Context, traineeID string, weekStart time.Time) (models.SectionTotals, error)
	CountForWeek(ctx context.Context, traineeID string, weekStart time.Time) (int, error)
}

// SupervisionDirectory resolves the trainee/supervisor relationship.
type SupervisionDirectory interface {
	IsAssigned(ctx context.Context, supervisorID, traineeID string) (bool, error)
}

// ViewCacheInvalidator drops the cached read model after a mutation.
type ViewCacheInvalidator interface {
	InvalidateView(ctx context.Context, logbookID string)
}

// TransitionObserver receives one observation per attempted transition.
type TransitionObserver interface {
	ObserveTransition(action models.WorkflowAction, outcome string)
}

// WorkflowService is the review workflow engine: it validates the actor
// and the current state against the transition table, mutates the
// aggregate and appends the audit entry in one transaction.
type WorkflowService struct {
	repo      workflowLogbookStore
	entries   EntryStore
	directory SupervisionDirectory
	cache     ViewCacheInvalidator
	observer  TransitionObserver
	logger    *zap.Logger
	now       func() time.Time
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowClock overrides the time source, mainly for tests.
func WithWorkflowClock(now func() time.Time) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithViewCacheInvalidator wires read-model cache invalidation.
func WithViewCacheInvalidator(cache ViewCacheInvalidator) WorkflowServiceOption {
	return func(s *WorkflowService) { s.cache = cache }
}

// WithTransitionObserver wires metrics for workflow transitions.
func WithTransitionObserver(observer TransitionObserver) WorkflowServiceOption {
	return func(s *WorkflowService) { s.observer = observer }
}

// NewWorkflowService constructs the engine.
func NewWorkflowService(repo workflowLogbookStore, entries EntryStore, directory SupervisionDirectory, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{
		repo:      repo,
		entries:   entries,
		directory: directory,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit moves a draft or rejected logbook into the review queue,
// freezing the section totals as the reviewer will see them.
func (s *WorkflowService) Submit(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error) {
	return s.submitWith(ctx, actor, logbookID, models.ActionSubmit, "logbook submitted for review")
}

// Resubmit returns a rejected or changes-requested logbook to the queue
// with a fresh totals snapshot. The engine deliberately does not check
// whether the requested changes were addressed; that judgment stays with
// the reviewer.
func (s *WorkflowService) Resubmit(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error) {
	return s.submitWith(ctx, actor, logbookID, models.ActionResubmit, "logbook resubmitted after review feedback")
}

func (s *WorkflowService) submitWith(ctx context.Context, actor models.Actor, logbookID string, action models.WorkflowAction, description string) (*models.Logbook, error) {
	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}
	if err := s.ensureOwner(actor, logbook); err != nil {
		return nil, s.observed(action, err)
	}
	next, ok := models.NextStatus(logbook.Status, action)
	if !ok {
		return nil, s.observed(action, s.conflict(logbook, action))
	}

	now := s.now()
	if action == models.ActionSubmit {
		if !logbook.WeekStart.Before(weekStartOf(now)) {
			return nil, s.observed(action, appErrors.Clone(appErrors.ErrValidation, "the current week cannot be submitted until it has ended"))
		}
		count, err := s.entries.CountForWeek(ctx, logbook.TraineeID, logbook.WeekStart)
		if err != nil {
			return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count week entries"))
		}
		if count == 0 {
			return nil, s.observed(action, appErrors.Clone(appErrors.ErrValidation, "a logbook needs at least one entry before submission"))
		}
	}

	totals, err := s.entries.SnapshotTotals(ctx, logbook.TraineeID, logbook.WeekStart)
	if err != nil {
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot section totals"))
	}

	params := repository.TransitionParams{
		ID:              logbook.ID,
		ExpectedVersion: logbook.Version,
		Status:          next,
		SubmittedAt:     &now,
		SectionTotals:   &totals,
		Audit: models.AuditEntry{
			ActorID:      &actor.ID,
			Action:       action,
			FromStatus:   &logbook.Status,
			ToStatus:     &next,
			Description:  description,
			DiffSnapshot: diffSnapshot(logbook, next, &totals),
		},
	}
	return s.apply(ctx, logbook, action, params)
}

// ClaimReview assigns a submitted logbook to the calling supervisor.
func (s *WorkflowService) ClaimReview(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error) {
	const action = models.ActionClaimReview
	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}
	if err := s.ensureAssignedSupervisor(ctx, actor, logbook); err != nil {
		return nil, s.observed(action, err)
	}
	next, ok := models.NextStatus(logbook.Status, action)
	if !ok {
		return nil, s.observed(action, s.conflict(logbook, action))
	}

	params := repository.TransitionParams{
		ID:              logbook.ID,
		ExpectedVersion: logbook.Version,
		Status:          next,
		ReviewerID:      &actor.ID,
		Audit: models.AuditEntry{
			ActorID:      &actor.ID,
			Action:       action,
			FromStatus:   &logbook.Status,
			ToStatus:     &next,
			Description:  "review claimed",
			DiffSnapshot: diffSnapshot(logbook, next, nil),
		},
	}
	return s.apply(ctx, logbook, action, params)
}

// Approve records the reviewer's approval. Locking remains a separate,
// explicit follow-on action.
func (s *WorkflowService) Approve(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error) {
	const action = models.ActionApprove
	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}
	if err := s.ensureReviewer(ctx, actor, logbook); err != nil {
		return nil, s.observed(action, err)
	}
	next, ok := models.NextStatus(logbook.Status, action)
	if !ok {
		return nil, s.observed(action, s.conflict(logbook, action))
	}

	now := s.now()
	params := repository.TransitionParams{
		ID:              logbook.ID,
		ExpectedVersion: logbook.Version,
		Status:          next,
		ApprovedAt:      &now,
		ReviewedAt:      &now,
		ReviewerID:      &actor.ID,
		Audit: models.AuditEntry{
			ActorID:      &actor.ID,
			Action:       action,
			FromStatus:   &logbook.Status,
			ToStatus:     &next,
			Description:  "logbook approved",
			DiffSnapshot: diffSnapshot(logbook, next, nil),
		},
	}
	return s.apply(ctx, logbook, action, params)
}

// Reject returns the logbook to the trainee with a mandatory rationale.
func (s *WorkflowService) Reject(ctx context.Context, actor models.Actor, logbookID, comment string) (*models.Logbook, error) {
	return s.decline(ctx, actor, logbookID, comment, models.ActionReject, "a rejection comment is required")
}

// RequestChanges asks the trainee for amendments with a mandatory
// rationale.
func (s *WorkflowService) RequestChanges(ctx context.Context, actor models.Actor, logbookID, comment string) (*models.Logbook, error) {
	return s.decline(ctx, actor, logbookID, comment, models.ActionRequestChanges, "a comment describing the requested changes is required")
}

func (s *WorkflowService) decline(ctx context.Context, actor models.Actor, logbookID, comment string, action models.WorkflowAction, emptyMessage string) (*models.Logbook, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		// Validation failures must leave no audit entry and no state change.
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrValidation, emptyMessage))
	}

	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}
	if err := s.ensureReviewer(ctx, actor, logbook); err != nil {
		return nil, s.observed(action, err)
	}
	next, ok := models.NextStatus(logbook.Status, action)
	if !ok {
		return nil, s.observed(action, s.conflict(logbook, action))
	}

	now := s.now()
	description := "logbook rejected"
	if action == models.ActionRequestChanges {
		description = "changes requested"
	}
	params := repository.TransitionParams{
		ID:              logbook.ID,
		ExpectedVersion: logbook.Version,
		Status:          next,
		ReviewedAt:      &now,
		ReviewerID:      &actor.ID,
		ReviewComments:  &comment,
		Audit: models.AuditEntry{
			ActorID:      &actor.ID,
			Action:       action,
			FromStatus:   &logbook.Status,
			ToStatus:     &next,
			Description:  fmt.Sprintf("%s: %s", description, comment),
			DiffSnapshot: diffSnapshot(logbook, next, nil),
		},
	}
	return s.apply(ctx, logbook, action, params)
}

// Lock freezes an approved logbook. The reviewer locks as themselves;
// admins lock on behalf of the system and the audit entry carries no
// actor.
func (s *WorkflowService) Lock(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error) {
	const action = models.ActionLock
	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}

	var auditActor *string
	switch {
	case logbook.ReviewerID != nil && *logbook.ReviewerID == actor.ID:
		auditActor = &actor.ID
	case actor.IsAdmin():
		auditActor = nil
	default:
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrForbidden, "only the reviewer may lock this logbook"))
	}

	next, ok := models.NextStatus(logbook.Status, action)
	if !ok {
		return nil, s.observed(action, s.conflict(logbook, action))
	}

	now := s.now()
	params := repository.TransitionParams{
		ID:              logbook.ID,
		ExpectedVersion: logbook.Version,
		Status:          next,
		LockedAt:        &now,
		Audit: models.AuditEntry{
			ActorID:      auditActor,
			Action:       action,
			FromStatus:   &logbook.Status,
			ToStatus:     &next,
			Description:  "logbook locked",
			DiffSnapshot: diffSnapshot(logbook, next, nil),
		},
	}
	return s.apply(ctx, logbook, action, params)
}

func (s *WorkflowService) apply(ctx context.Context, logbook *models.Logbook, action models.WorkflowAction, params repository.TransitionParams) (*models.Logbook, error) {
	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent transition won the version check; report the
			// state the winner produced.
			current, loadErr := s.repo.GetByID(ctx, logbook.ID)
			if loadErr != nil {
				return nil, s.observed(action, appErrors.Clone(appErrors.ErrStateConflict, "this logbook was modified concurrently"))
			}
			return nil, s.observed(action, s.conflict(current, action))
		}
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply workflow transition"))
	}

	updated, err := s.repo.GetByID(ctx, logbook.ID)
	if err != nil {
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload logbook"))
	}

	if s.cache != nil {
		s.cache.InvalidateView(ctx, updated.ID)
	}
	if s.observer != nil {
		s.observer.ObserveTransition(action, "success")
	}
	s.logger.Info("workflow_transition",
		zap.String("logbook_id", updated.ID),
		zap.String("trainee_id", updated.TraineeID),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func (s *WorkflowService) load(ctx context.Context, logbookID string) (*models.Logbook, error) {
	logbook, err := s.repo.GetByID(ctx, logbookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load logbook")
	}
	return logbook, nil
}

func (s *WorkflowService) ensureOwner(actor models.Actor, logbook *models.Logbook) error {
	if actor.Role != models.RoleTrainee || actor.ID != logbook.TraineeID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the logbook owner may perform this action")
	}
	return nil
}

func (s *WorkflowService) ensureAssignedSupervisor(ctx context.Context, actor models.Actor, logbook *models.Logbook) error {
	if !actor.IsSupervisor() {
		return appErrors.Clone(appErrors.ErrForbidden, "only a supervisor may review logbooks")
	}
	assigned, err := s.directory.IsAssigned(ctx, actor.ID, logbook.TraineeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervisor assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this trainee")
	}
	return nil
}

// ensureReviewer authorises review decisions: on a submitted logbook any
// assigned supervisor may decide (implicitly claiming it); once under
// review only the claiming reviewer may.
func (s *WorkflowService) ensureReviewer(ctx context.Context, actor models.Actor, logbook *models.Logbook) error {
	if logbook.Status == models.StatusUnderReview && logbook.ReviewerID != nil {
		if *logbook.ReviewerID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "this logbook is being reviewed by another supervisor")
		}
		return nil
	}
	return s.ensureAssignedSupervisor(ctx, actor, logbook)
}

func (s *WorkflowService) conflict(logbook *models.Logbook, action models.WorkflowAction) error {
	verb := strings.ToLower(strings.ReplaceAll(string(action), "_", " "))
	status := strings.ToLower(strings.ReplaceAll(string(logbook.Status), "_", " "))
	return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("cannot %s: this logbook is already %s", verb, status))
}

func (s *WorkflowService) observed(action models.WorkflowAction, err error) error {
	if err != nil && s.observer != nil {
		s.observer.ObserveTransition(action, appErrors.FromError(err).Code)
	}
	return err
}

// weekStartOf returns the Monday-aligned start of the week containing t.
func weekStartOf(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// diffSnapshot captures before/after state for compliance review.
func diffSnapshot(before *models.Logbook, next models.LogbookStatus, totals *models.SectionTotals) []byte {
	payload := map[string]interface{}{
		"before": map[string]interface{}{
			"status":         before.Status,
			"section_totals": before.SectionTotals,
		},
		"after": map[string]interface{}{
			"status": next,
		},
	}
	if totals != nil {
		payload["after"].(map[string]interface{})["section_totals"] = *totals
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
