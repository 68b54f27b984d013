package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinpath/logbook-api/internal/models"
	"github.com/clinpath/logbook-api/internal/repository"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type unlockStore interface {
	Create(ctx context.Context, request *models.UnlockRequest, audit *models.AuditEntry) error
	Grant(ctx context.Context, params repository.GrantParams, audit *models.AuditEntry) error
	GetByID(ctx context.Context, id string) (*models.UnlockRequest, error)
	FindOutstanding(ctx context.Context, logbookID string, now time.Time) (*models.UnlockRequest, error)
	ActiveGrant(ctx context.Context, logbookID string, now time.Time) (*models.UnlockRequest, error)
	ListByLogbook(ctx context.Context, logbookID string) ([]models.UnlockRequest, error)
}

type unlockLogbookStore interface {
	GetByID(ctx context.Context, id string) (*models.Logbook, error)
}

// UnlockService manages the time-boxed unlock cycle on locked logbooks.
// At most one request per logbook is outstanding at a time; expiry is
// computed from the grant timestamps, never swept by a background job.
type UnlockService struct {
	requests   unlockStore
	logbooks   unlockLogbookStore
	directory  SupervisionDirectory
	cache      ViewCacheInvalidator
	observer   TransitionObserver
	logger     *zap.Logger
	maxMinutes int
	now        func() time.Time
}

// UnlockServiceOption configures the service.
type UnlockServiceOption func(*UnlockService)

// WithUnlockClock overrides the time source.
func WithUnlockClock(now func() time.Time) UnlockServiceOption {
	return func(s *UnlockService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUnlockObserver wires transition metrics.
func WithUnlockObserver(observer TransitionObserver) UnlockServiceOption {
	return func(s *UnlockService) { s.observer = observer }
}

// WithUnlockViewCache wires read-model cache invalidation. A cached
// locked view carries the unlock state, so every request and grant
// must drop it.
func WithUnlockViewCache(cache ViewCacheInvalidator) UnlockServiceOption {
	return func(s *UnlockService) { s.cache = cache }
}

// NewUnlockService constructs the service. maxDuration caps the grant
// window a supervisor may hand out.
func NewUnlockService(requests unlockStore, logbooks unlockLogbookStore, directory SupervisionDirectory, maxDuration time.Duration, logger *zap.Logger, opts ...UnlockServiceOption) *UnlockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxMinutes := int(maxDuration.Minutes())
	if maxMinutes <= 0 {
		maxMinutes = 24 * 60
	}
	svc := &UnlockService{
		requests:   requests,
		logbooks:   logbooks,
		directory:  directory,
		logger:     logger,
		maxMinutes: maxMinutes,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Request opens an unlock request on a locked logbook for its owner.
func (s *UnlockService) Request(ctx context.Context, actor models.Actor, logbookID, reason string) (*models.UnlockRequest, error) {
	const action = models.ActionUnlockRequested

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrValidation, "an unlock request needs a reason"))
	}

	logbook, err := s.loadLogbook(ctx, logbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}
	if actor.Role != models.RoleTrainee || actor.ID != logbook.TraineeID {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrForbidden, "only the logbook owner may request an unlock"))
	}
	if !logbook.Locked() {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrStateConflict, "only a locked logbook can be unlocked"))
	}

	request := &models.UnlockRequest{
		LogbookID:   logbook.ID,
		RequestedBy: actor.ID,
		Reason:      reason,
		RequestedAt: s.now(),
	}
	audit := &models.AuditEntry{
		ActorID:     &actor.ID,
		Action:      action,
		Description: fmt.Sprintf("unlock requested: %s", reason),
	}
	if err := s.requests.Create(ctx, request, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.observed(action, appErrors.Clone(appErrors.ErrDuplicateRequest, "an unlock request is already outstanding for this logbook"))
		}
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create unlock request"))
	}
	if s.cache != nil {
		s.cache.InvalidateView(ctx, logbook.ID)
	}

	if s.observer != nil {
		s.observer.ObserveTransition(action, "success")
	}
	s.logger.Info("unlock_requested",
		zap.String("logbook_id", logbook.ID),
		zap.String("request_id", request.ID),
		zap.String("requested_by", actor.ID),
	)
	return request, nil
}

// Grant approves a pending unlock request for the given number of
// minutes. The edit window opens immediately and closes when it expires;
// no further action consumes it.
func (s *UnlockService) Grant(ctx context.Context, actor models.Actor, requestID string, durationMinutes int) (*models.UnlockRequest, error) {
	const action = models.ActionUnlockGranted

	if durationMinutes < 1 || durationMinutes > s.maxMinutes {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("duration_minutes must be between 1 and %d", s.maxMinutes)))
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.observed(action, appErrors.ErrNotFound)
		}
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unlock request"))
	}

	logbook, err := s.loadLogbook(ctx, request.LogbookID)
	if err != nil {
		return nil, s.observed(action, err)
	}
	if !actor.IsSupervisor() {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrForbidden, "only a supervisor may grant an unlock"))
	}
	assigned, err := s.directory.IsAssigned(ctx, actor.ID, logbook.TraineeID)
	if err != nil {
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervisor assignment"))
	}
	if !assigned {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this trainee"))
	}
	if !request.Pending() {
		return nil, s.observed(action, appErrors.Clone(appErrors.ErrStateConflict, "this unlock request was already granted"))
	}

	grantedAt := s.now()
	params := repository.GrantParams{
		ID:              request.ID,
		GrantedBy:       actor.ID,
		GrantedAt:       grantedAt,
		DurationMinutes: durationMinutes,
	}
	audit := &models.AuditEntry{
		LogbookID:   logbook.ID,
		ActorID:     &actor.ID,
		Action:      action,
		Description: fmt.Sprintf("unlock granted for %d minutes", durationMinutes),
	}
	if err := s.requests.Grant(ctx, params, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a concurrent grant.
			return nil, s.observed(action, appErrors.Clone(appErrors.ErrStateConflict, "this unlock request was already granted"))
		}
		return nil, s.observed(action, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant unlock request"))
	}

	request.GrantedBy = &actor.ID
	request.GrantedAt = &grantedAt
	request.DurationMinutes = &durationMinutes
	if s.cache != nil {
		s.cache.InvalidateView(ctx, logbook.ID)
	}

	if s.observer != nil {
		s.observer.ObserveTransition(action, "success")
	}
	s.logger.Info("unlock_granted",
		zap.String("logbook_id", logbook.ID),
		zap.String("request_id", request.ID),
		zap.String("granted_by", actor.ID),
		zap.Int("duration_minutes", durationMinutes),
	)
	return request, nil
}

// State summarises the unlock mechanism for a logbook at this instant.
func (s *UnlockService) State(ctx context.Context, logbookID string) (pending, active *models.UnlockRequest, err error) {
	now := s.now()
	outstanding, err := s.requests.FindOutstanding(ctx, logbookID, now)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect unlock state")
	}
	if outstanding == nil {
		return nil, nil, nil
	}
	if outstanding.Pending() {
		return outstanding, nil, nil
	}
	return nil, outstanding, nil
}

// ActiveGrant reports the currently active edit window, or nil.
func (s *UnlockService) ActiveGrant(ctx context.Context, logbookID string) (*models.UnlockRequest, error) {
	grant, err := s.requests.ActiveGrant(ctx, logbookID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect unlock grants")
	}
	return grant, nil
}

func (s *UnlockService) loadLogbook(ctx context.Context, logbookID string) (*models.Logbook, error) {
	logbook, err := s.logbooks.GetByID(ctx, logbookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load logbook")
	}
	return logbook, nil
}

func (s *UnlockService) observed(action models.WorkflowAction, err error) error {
	if err != nil && s.observer != nil {
		s.observer.ObserveTransition(action, appErrors.FromError(err).Code)
	}
	return err
}
