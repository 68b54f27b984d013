package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinpath/logbook-api/internal/models"
	"github.com/clinpath/logbook-api/internal/repository"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type unlockStoreStub struct {
	requests map[string]*models.UnlockRequest
	audits   []models.AuditEntry
	nextID   int

	// forceGrantConflict makes the next Grant lose the guarded update.
	forceGrantConflict bool
}

func newUnlockStoreStub() *unlockStoreStub {
	return &unlockStoreStub{requests: make(map[string]*models.UnlockRequest)}
}

func (s *unlockStoreStub) Create(ctx context.Context, request *models.UnlockRequest, audit *models.AuditEntry) error {
	for _, existing := range s.requests {
		if existing.LogbookID == request.LogbookID && existing.OutstandingAt(request.RequestedAt) {
			return sql.ErrNoRows
		}
	}
	s.nextID++
	request.ID = fmt.Sprintf("req-%d", s.nextID)
	copied := *request
	s.requests[request.ID] = &copied
	s.audits = append(s.audits, *audit)
	return nil
}

func (s *unlockStoreStub) Grant(ctx context.Context, params repository.GrantParams, audit *models.AuditEntry) error {
	request, ok := s.requests[params.ID]
	if !ok || !request.Pending() || s.forceGrantConflict {
		s.forceGrantConflict = false
		return sql.ErrNoRows
	}
	request.GrantedBy = &params.GrantedBy
	grantedAt := params.GrantedAt
	request.GrantedAt = &grantedAt
	minutes := params.DurationMinutes
	request.DurationMinutes = &minutes
	s.audits = append(s.audits, *audit)
	return nil
}

func (s *unlockStoreStub) GetByID(ctx context.Context, id string) (*models.UnlockRequest, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (s *unlockStoreStub) FindOutstanding(ctx context.Context, logbookID string, now time.Time) (*models.UnlockRequest, error) {
	for _, request := range s.requests {
		if request.LogbookID == logbookID && request.OutstandingAt(now) {
			copied := *request
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *unlockStoreStub) ActiveGrant(ctx context.Context, logbookID string, now time.Time) (*models.UnlockRequest, error) {
	for _, request := range s.requests {
		if request.LogbookID == logbookID && request.ActiveAt(now) {
			copied := *request
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *unlockStoreStub) ListByLogbook(ctx context.Context, logbookID string) ([]models.UnlockRequest, error) {
	var out []models.UnlockRequest
	for _, request := range s.requests {
		if request.LogbookID == logbookID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func newTestUnlockService(store *unlockStoreStub, logbooks *logbookStoreStub, opts ...UnlockServiceOption) *UnlockService {
	directory := &directoryStub{assigned: map[string]string{"trainee-1": "super-1"}}
	base := []UnlockServiceOption{WithUnlockClock(func() time.Time { return testNow })}
	return NewUnlockService(store, logbooks, directory, 24*time.Hour, nil, append(base, opts...)...)
}

func lockedLogbook() *models.Logbook {
	lb := testLogbook(models.StatusLocked)
	lockedAt := testNow.Add(-48 * time.Hour)
	lb.LockedAt = &lockedAt
	return lb
}

func TestUnlockRequestOnLockedLogbook(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "forgot to record Thursday clinic")
	require.NoError(t, err)
	require.NotEmpty(t, request.ID)
	require.True(t, request.Pending())
	require.Equal(t, testNow, request.RequestedAt)

	require.Len(t, store.audits, 1)
	require.Equal(t, models.ActionUnlockRequested, store.audits[0].Action)
}

func TestUnlockRequestNeedsReason(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	_, err := svc.Request(context.Background(), owner, "lb-1", "  ")
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Empty(t, store.requests)
}

func TestUnlockRequestOwnerOnly(t *testing.T) {
	svc := newTestUnlockService(newUnlockStoreStub(), newLogbookStoreStub(lockedLogbook()))

	_, err := svc.Request(context.Background(), models.Actor{ID: "trainee-2", Role: models.RoleTrainee}, "lb-1", "reason")
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Request(context.Background(), models.Actor{ID: "super-1", Role: models.RoleSupervisor}, "lb-1", "reason")
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUnlockRequestOnlyWhenLocked(t *testing.T) {
	svc := newTestUnlockService(newUnlockStoreStub(), newLogbookStoreStub(testLogbook(models.StatusApproved)))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	_, err := svc.Request(context.Background(), owner, "lb-1", "reason")
	require.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestUnlockRequestDuplicateRejected(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	_, err := svc.Request(context.Background(), owner, "lb-1", "first")
	require.NoError(t, err)

	_, err = svc.Request(context.Background(), owner, "lb-1", "second")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrDuplicateRequest.Code, appErrors.FromError(err).Code)
	require.Len(t, store.requests, 1)
}

func TestUnlockGrant(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	granted, err := svc.Grant(context.Background(), supervisor, request.ID, 120)
	require.NoError(t, err)
	require.False(t, granted.Pending())
	require.Equal(t, "super-1", *granted.GrantedBy)
	require.Equal(t, 120, *granted.DurationMinutes)
	require.Equal(t, testNow.Add(2*time.Hour), *granted.ExpiresAt())

	active, err := svc.ActiveGrant(context.Background(), "lb-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, request.ID, active.ID)
}

func TestUnlockGrantDurationBounds(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))
	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}

	for _, minutes := range []int{0, -5, 24*60 + 1} {
		_, err := svc.Grant(context.Background(), supervisor, "req-1", minutes)
		require.Error(t, err, "minutes=%d", minutes)
		require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestUnlockGrantRequiresAssignment(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)

	_, err = svc.Grant(context.Background(), models.Actor{ID: "super-2", Role: models.RoleSupervisor}, request.ID, 60)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUnlockDoubleGrantConflict(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	_, err = svc.Grant(context.Background(), supervisor, request.ID, 60)
	require.NoError(t, err)

	_, err = svc.Grant(context.Background(), supervisor, request.ID, 60)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestUnlockConcurrentGrantConflict(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)

	store.forceGrantConflict = true
	_, err = svc.Grant(context.Background(), models.Actor{ID: "super-1", Role: models.RoleSupervisor}, request.ID, 60)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestUnlockMutationsInvalidateReadModel(t *testing.T) {
	store := newUnlockStoreStub()
	cache := &invalidatorStub{}
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()),
		WithUnlockViewCache(cache))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)
	require.Equal(t, []string{"lb-1"}, cache.invalidated)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	_, err = svc.Grant(context.Background(), supervisor, request.ID, 60)
	require.NoError(t, err)
	require.Equal(t, []string{"lb-1", "lb-1"}, cache.invalidated)
}

func TestUnlockState(t *testing.T) {
	store := newUnlockStoreStub()
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()))

	pending, active, err := svc.State(context.Background(), "lb-1")
	require.NoError(t, err)
	require.Nil(t, pending)
	require.Nil(t, active)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)

	pending, active, err = svc.State(context.Background(), "lb-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Nil(t, active)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	_, err = svc.Grant(context.Background(), supervisor, request.ID, 60)
	require.NoError(t, err)

	pending, active, err = svc.State(context.Background(), "lb-1")
	require.NoError(t, err)
	require.Nil(t, pending)
	require.NotNil(t, active)
}

func TestUnlockExpiredGrantAllowsNewRequest(t *testing.T) {
	store := newUnlockStoreStub()
	clock := testNow
	svc := newTestUnlockService(store, newLogbookStoreStub(lockedLogbook()),
		WithUnlockClock(func() time.Time { return clock }))

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	request, err := svc.Request(context.Background(), owner, "lb-1", "missed entries")
	require.NoError(t, err)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	_, err = svc.Grant(context.Background(), supervisor, request.ID, 30)
	require.NoError(t, err)

	clock = clock.Add(31 * time.Minute)
	active, err := svc.ActiveGrant(context.Background(), "lb-1")
	require.NoError(t, err)
	require.Nil(t, active)

	_, err = svc.Request(context.Background(), owner, "lb-1", "still missing Thursday")
	require.NoError(t, err)
	require.Len(t, store.requests, 2)
}
