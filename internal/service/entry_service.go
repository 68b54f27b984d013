package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type entryWriter interface {
	GetByID(ctx context.Context, id string) (*models.PracticeEntry, error)
	Update(ctx context.Context, id string, hours *float64, activity *string) error
}

type entryLogbookStore interface {
	GetByTraineeWeek(ctx context.Context, traineeID string, weekStart time.Time) (*models.Logbook, error)
}

type grantLookup interface {
	ActiveGrant(ctx context.Context, logbookID string) (*models.UnlockRequest, error)
}

// EntryService exposes the editability gate over practice entries. Full
// entry CRUD lives in the external entry editor; this service only
// applies hours/activity updates behind the workflow gate.
type EntryService struct {
	entries  entryWriter
	logbooks entryLogbookStore
	grants   grantLookup
	cache    ViewCacheInvalidator
	logger   *zap.Logger
}

// NewEntryService constructs the service.
func NewEntryService(entries entryWriter, logbooks entryLogbookStore, grants grantLookup, cache ViewCacheInvalidator, logger *zap.Logger) *EntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryService{
		entries:  entries,
		logbooks: logbooks,
		grants:   grants,
		cache:    cache,
		logger:   logger,
	}
}

// IsEditable reports whether entries for the logbook's week may change:
// either the owner-editable statuses, or an active unlock grant.
func (s *EntryService) IsEditable(ctx context.Context, logbook *models.Logbook) (bool, error) {
	if logbook.OwnerEditable() {
		return true, nil
	}
	if !logbook.Locked() {
		return false, nil
	}
	grant, err := s.grants.ActiveGrant(ctx, logbook.ID)
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// UpdateEntry applies an hours/activity change for the owner. Edits never
// touch a frozen totals snapshot; the next submit or resubmit recomputes
// it.
func (s *EntryService) UpdateEntry(ctx context.Context, actor models.Actor, entryID string, hours *float64, activity *string) (*models.PracticeEntry, error) {
	if hours == nil && activity == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if hours != nil && (*hours < 0 || *hours > 24) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hours must be between 0 and 24")
	}

	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	if actor.Role != models.RoleTrainee || actor.ID != entry.TraineeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the entry owner may edit it")
	}

	logbook, err := s.logbooks.GetByTraineeWeek(ctx, entry.TraineeID, entry.WeekStart)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week logbook")
	}

	// No compiled logbook yet means the week is still freely editable.
	if logbook != nil && err == nil {
		editable, gateErr := s.IsEditable(ctx, logbook)
		if gateErr != nil {
			return nil, appErrors.Wrap(gateErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate edit gate")
		}
		if !editable {
			if logbook.Locked() {
				return nil, appErrors.Clone(appErrors.ErrLocked, "this week is locked; request an unlock to edit it")
			}
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "entries cannot be edited while the logbook is in review")
		}
	}

	if err := s.entries.Update(ctx, entryID, hours, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update entry")
	}
	if logbook != nil && s.cache != nil {
		s.cache.InvalidateView(ctx, logbook.ID)
	}

	updated, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload entry")
	}

	s.logger.Info("entry_updated",
		zap.String("entry_id", entryID),
		zap.String("trainee_id", entry.TraineeID),
	)
	return updated, nil
}
