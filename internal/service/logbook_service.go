package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinpath/logbook-api/internal/dto"
	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type logbookReader interface {
	EnsureDraft(ctx context.Context, traineeID string, weekStart time.Time) (*models.Logbook, error)
	GetByID(ctx context.Context, id string) (*models.Logbook, error)
	List(ctx context.Context, filter models.LogbookFilter) ([]models.Logbook, error)
}

type auditReader interface {
	ListByLogbook(ctx context.Context, logbookID string) ([]models.AuditEntry, error)
}

type commentReader interface {
	ListByLogbook(ctx context.Context, logbookID string) ([]models.Comment, error)
}

type unlockStateProvider interface {
	State(ctx context.Context, logbookID string) (pending, active *models.UnlockRequest, err error)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LogbookReadConfig tunes the read model assembly.
type LogbookReadConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	// RAG thresholds measured from the end of the logbook week.
	GreenAfter time.Duration
	AmberAfter time.Duration
}

// LogbookService assembles the logbook read model and enforces
// per-role visibility on listings.
type LogbookService struct {
	logbooks  logbookReader
	comments  commentReader
	audit     auditReader
	unlock    unlockStateProvider
	entries   EntryStore
	directory SupervisionDirectory
	cache     viewCache
	cfg       LogbookReadConfig
	logger    *zap.Logger
	now       func() time.Time
}

// LogbookServiceOption configures the service.
type LogbookServiceOption func(*LogbookService)

// WithLogbookClock overrides the time source.
func WithLogbookClock(now func() time.Time) LogbookServiceOption {
	return func(s *LogbookService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithViewCache wires the read-model cache.
func WithViewCache(cache viewCache) LogbookServiceOption {
	return func(s *LogbookService) { s.cache = cache }
}

// NewLogbookService constructs the service.
func NewLogbookService(logbooks logbookReader, comments commentReader, audit auditReader, unlock unlockStateProvider, entries EntryStore, directory SupervisionDirectory, cfg LogbookReadConfig, logger *zap.Logger, opts ...LogbookServiceOption) *LogbookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GreenAfter <= 0 {
		cfg.GreenAfter = 7 * 24 * time.Hour
	}
	if cfg.AmberAfter <= cfg.GreenAfter {
		cfg.AmberAfter = 14 * 24 * time.Hour
	}
	svc := &LogbookService{
		logbooks:  logbooks,
		comments:  comments,
		audit:     audit,
		unlock:    unlock,
		entries:   entries,
		directory: directory,
		cfg:       cfg,
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

// CreateDraft opens (or returns) the draft logbook for one of the
// caller's weeks. Weeks are identified by their Monday.
func (s *LogbookService) CreateDraft(ctx context.Context, actor models.Actor, weekStartRaw string) (*models.Logbook, error) {
	if actor.Role != models.RoleTrainee {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only trainees create logbooks")
	}

	weekStart, err := time.ParseInLocation("2006-01-02", weekStartRaw, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week_start must be a YYYY-MM-DD date")
	}
	if weekStart.Weekday() != time.Monday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week_start must be a Monday")
	}
	if weekStart.After(weekStartOf(s.now())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a logbook cannot be opened for a future week")
	}

	logbook, err := s.logbooks.EnsureDraft(ctx, actor.ID, weekStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open draft logbook")
	}
	return logbook, nil
}

// Get assembles the full read model for one logbook. The frozen totals
// snapshot is served as stored; live totals are attached only while the
// week is still editable.
func (s *LogbookService) Get(ctx context.Context, actor models.Actor, logbookID string) (*dto.LogbookView, error) {
	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, logbook); err != nil {
		return nil, err
	}

	if s.cacheUsable() {
		var cached dto.LogbookView
		if err := s.cache.Get(ctx, viewCacheKey(logbookID), &cached); err == nil {
			return &cached, nil
		}
	}

	comments, err := s.comments.ListByLogbook(ctx, logbookID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	audit, err := s.audit.ListByLogbook(ctx, logbookID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	pending, active, err := s.unlock.State(ctx, logbookID)
	if err != nil {
		return nil, err
	}

	view := &dto.LogbookView{
		Logbook:  *logbook,
		Editable: logbook.OwnerEditable() || active != nil,
		Comments: comments,
		Audit:    audit,
		Unlock:   dto.UnlockState{PendingRequest: pending, ActiveGrant: active},
	}
	if active != nil {
		view.Unlock.ExpiresAt = active.ExpiresAt()
	}
	if view.Editable {
		totals, err := s.entries.SnapshotTotals(ctx, logbook.TraineeID, logbook.WeekStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute live totals")
		}
		view.LiveTotals = &totals
	}

	// Only stable, review-phase views are worth caching; editable views
	// change underneath the cache with every entry edit.
	if s.cacheUsable() && !view.Editable && pending == nil {
		if err := s.cache.Set(ctx, viewCacheKey(logbookID), view, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("view_cache_set_failed", zap.String("logbook_id", logbookID), zap.Error(err))
		}
	}
	return view, nil
}

// List returns logbooks scoped to the caller's role: trainees see their
// own, supervisors their assigned trainees, admins everything.
func (s *LogbookService) List(ctx context.Context, actor models.Actor, query dto.LogbookQuery) ([]models.Logbook, error) {
	filter, err := s.scopedFilter(actor, query)
	if err != nil {
		return nil, err
	}
	logbooks, err := s.logbooks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list logbooks")
	}
	return logbooks, nil
}

// Audit returns the ordered audit trail for a visible logbook.
func (s *LogbookService) Audit(ctx context.Context, actor models.Actor, logbookID string) ([]models.AuditEntry, error) {
	logbook, err := s.load(ctx, logbookID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, logbook); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByLogbook(ctx, logbookID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, nil
}

// Dashboard lists scoped logbooks with their submission-timeliness RAG
// status.
func (s *LogbookService) Dashboard(ctx context.Context, actor models.Actor, query dto.LogbookQuery) ([]dto.DashboardRow, error) {
	logbooks, err := s.List(ctx, actor, query)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rows := make([]dto.DashboardRow, 0, len(logbooks))
	for _, logbook := range logbooks {
		rows = append(rows, dto.DashboardRow{
			Logbook: logbook,
			RAG:     s.ragStatus(&logbook, now),
		})
	}
	return rows, nil
}

// ViewInvalidator drops cached logbook read models after a mutation.
// Every service that writes to a logbook (workflow transitions, entry
// edits, comments, unlock requests and grants) holds one so a cached
// stable view never outlives the state it was assembled from.
type ViewInvalidator struct {
	cache  viewCache
	logger *zap.Logger
}

// NewViewInvalidator constructs the invalidator. A nil cache is a no-op.
func NewViewInvalidator(cache viewCache, logger *zap.Logger) *ViewInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewInvalidator{cache: cache, logger: logger}
}

// InvalidateView drops the cached read model for one logbook.
func (v *ViewInvalidator) InvalidateView(ctx context.Context, logbookID string) {
	if v.cache == nil {
		return
	}
	if err := v.cache.Delete(ctx, viewCacheKey(logbookID)); err != nil {
		v.logger.Warn("view_cache_invalidate_failed", zap.String("logbook_id", logbookID), zap.Error(err))
	}
}

// ragStatus measures lateness from the end of the logbook week: how long
// submission took, or how overdue an unsubmitted week is.
func (s *LogbookService) ragStatus(logbook *models.Logbook, now time.Time) dto.RAGStatus {
	weekEnd := logbook.WeekStart.AddDate(0, 0, 7)
	reference := now
	if logbook.SubmittedAt != nil {
		reference = *logbook.SubmittedAt
	}
	lateness := reference.Sub(weekEnd)
	switch {
	case lateness <= s.cfg.GreenAfter:
		return dto.RAGGreen
	case lateness <= s.cfg.AmberAfter:
		return dto.RAGAmber
	default:
		return dto.RAGRed
	}
}

func (s *LogbookService) scopedFilter(actor models.Actor, query dto.LogbookQuery) (models.LogbookFilter, error) {
	filter := models.LogbookFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.WeekStart != "" {
		weekStart, err := time.ParseInLocation("2006-01-02", query.WeekStart, time.UTC)
		if err != nil {
			return models.LogbookFilter{}, appErrors.Clone(appErrors.ErrValidation, "week_start must be a YYYY-MM-DD date")
		}
		filter.WeekStart = &weekStart
	}

	switch {
	case actor.Role == models.RoleTrainee:
		filter.TraineeID = actor.ID
	case actor.IsSupervisor():
		filter.SupervisorID = actor.ID
		if query.TraineeID != "" {
			filter.TraineeID = query.TraineeID
		}
	case actor.IsAdmin():
		filter.TraineeID = query.TraineeID
	default:
		return models.LogbookFilter{}, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
	return filter, nil
}

func (s *LogbookService) ensureVisible(ctx context.Context, actor models.Actor, logbook *models.Logbook) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.Role == models.RoleTrainee:
		if actor.ID == logbook.TraineeID {
			return nil
		}
	case actor.IsSupervisor():
		assigned, err := s.directory.IsAssigned(ctx, actor.ID, logbook.TraineeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervisor assignment")
		}
		if assigned {
			return nil
		}
	}
	// Hide the existence of logbooks outside the caller's scope.
	return appErrors.ErrNotFound
}

func (s *LogbookService) load(ctx context.Context, logbookID string) (*models.Logbook, error) {
	logbook, err := s.logbooks.GetByID(ctx, logbookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load logbook")
	}
	return logbook, nil
}

func (s *LogbookService) cacheUsable() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}

func viewCacheKey(logbookID string) string {
	return fmt.Sprintf("logbook:view:%s", logbookID)
}
