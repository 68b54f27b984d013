package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type commentStoreStub struct {
	comments map[string]*models.Comment
	audits   []models.AuditEntry
	nextID   int
}

func newCommentStoreStub() *commentStoreStub {
	return &commentStoreStub{comments: make(map[string]*models.Comment)}
}

func (s *commentStoreStub) Create(ctx context.Context, comment *models.Comment, audit *models.AuditEntry) error {
	s.nextID++
	comment.ID = fmt.Sprintf("c-%d", s.nextID)
	copied := *comment
	s.comments[comment.ID] = &copied
	s.audits = append(s.audits, *audit)
	return nil
}

func (s *commentStoreStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *comment
	return &copied, nil
}

func (s *commentStoreStub) ListByLogbook(ctx context.Context, logbookID string) ([]models.Comment, error) {
	var out []models.Comment
	for i := 1; i <= s.nextID; i++ {
		if comment, ok := s.comments[fmt.Sprintf("c-%d", i)]; ok && comment.LogbookID == logbookID {
			out = append(out, *comment)
		}
	}
	return out, nil
}

type entryLookupStub struct {
	entries map[string]*models.PracticeEntry
}

func (s *entryLookupStub) GetByID(ctx context.Context, id string) (*models.PracticeEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *entry
	return &copied, nil
}

func newTestCommentService(comments *commentStoreStub, entries *entryLookupStub) *CommentService {
	if entries == nil {
		entries = &entryLookupStub{entries: map[string]*models.PracticeEntry{}}
	}
	logbooks := newLogbookStoreStub(testLogbook(models.StatusSubmitted))
	directory := &directoryStub{assigned: map[string]string{"trainee-1": "super-1"}}
	return NewCommentService(comments, logbooks, entries, directory, nil, nil)
}

func TestCommentAddWithAudit(t *testing.T) {
	store := newCommentStoreStub()
	svc := newTestCommentService(store, nil)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	comment, err := svc.Add(context.Background(), owner, "lb-1", models.DocumentTarget(), "I was on leave Wednesday")
	require.NoError(t, err)
	require.Equal(t, models.ScopeDocument, comment.Scope)
	require.Nil(t, comment.ParentID)
	require.Equal(t, owner.ID, comment.AuthorID)
	require.Equal(t, models.RoleTrainee, comment.AuthorRole)

	require.Len(t, store.audits, 1)
	require.Equal(t, models.ActionCommentAdded, store.audits[0].Action)
}

func TestCommentAddSectionScope(t *testing.T) {
	store := newCommentStoreStub()
	svc := newTestCommentService(store, nil)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	comment, err := svc.Add(context.Background(), supervisor, "lb-1",
		models.SectionTarget(models.SectionDirectClientContact), "hours look low this week")
	require.NoError(t, err)
	require.Equal(t, models.ScopeSection, comment.Scope)
	require.Equal(t, models.SectionDirectClientContact, *comment.Section)
}

func TestCommentAddNeedsText(t *testing.T) {
	store := newCommentStoreStub()
	svc := newTestCommentService(store, nil)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	_, err := svc.Add(context.Background(), owner, "lb-1", models.DocumentTarget(), "   ")
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Empty(t, store.comments)
}

func TestCommentAddParticipantsOnly(t *testing.T) {
	svc := newTestCommentService(newCommentStoreStub(), nil)

	cases := []models.Actor{
		{ID: "trainee-2", Role: models.RoleTrainee},
		{ID: "super-2", Role: models.RoleSupervisor},
		{ID: "admin-1", Role: models.RoleAdmin},
	}
	for _, actor := range cases {
		_, err := svc.Add(context.Background(), actor, "lb-1", models.DocumentTarget(), "text")
		require.Error(t, err, "%s/%s", actor.ID, actor.Role)
		require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
}

func TestCommentRecordTargetMustBelongToLogbook(t *testing.T) {
	entries := &entryLookupStub{entries: map[string]*models.PracticeEntry{
		"e-ok": {ID: "e-ok", TraineeID: "trainee-1", WeekStart: testWeekStart, Section: models.SectionDirectClientContact},
		"e-other-week": {ID: "e-other-week", TraineeID: "trainee-1",
			WeekStart: testWeekStart.AddDate(0, 0, -7), Section: models.SectionDirectClientContact},
		"e-other-trainee": {ID: "e-other-trainee", TraineeID: "trainee-2",
			WeekStart: testWeekStart, Section: models.SectionDirectClientContact},
	}}
	svc := newTestCommentService(newCommentStoreStub(), entries)
	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}

	comment, err := svc.Add(context.Background(), owner, "lb-1", models.RecordTarget("e-ok"), "this one")
	require.NoError(t, err)
	require.Equal(t, "e-ok", *comment.RecordID)

	for _, recordID := range []string{"e-other-week", "e-other-trainee", "e-missing"} {
		_, err := svc.Add(context.Background(), owner, "lb-1", models.RecordTarget(recordID), "text")
		require.Error(t, err, recordID)
		require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCommentReplyInheritsTarget(t *testing.T) {
	store := newCommentStoreStub()
	svc := newTestCommentService(store, nil)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	parent, err := svc.Add(context.Background(), supervisor, "lb-1",
		models.SectionTarget(models.SectionSupervision), "missing supervision notes")
	require.NoError(t, err)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	reply, err := svc.Reply(context.Background(), owner, parent.ID, "added them now")
	require.NoError(t, err)
	require.Equal(t, parent.ID, *reply.ParentID)
	require.Equal(t, models.ScopeSection, reply.Scope)
	require.Equal(t, models.SectionSupervision, *reply.Section)
}

func TestCommentReplyToReplyFlattens(t *testing.T) {
	store := newCommentStoreStub()
	svc := newTestCommentService(store, nil)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}

	top, err := svc.Add(context.Background(), supervisor, "lb-1", models.DocumentTarget(), "first")
	require.NoError(t, err)
	reply, err := svc.Reply(context.Background(), owner, top.ID, "second")
	require.NoError(t, err)

	nested, err := svc.Reply(context.Background(), supervisor, reply.ID, "third")
	require.NoError(t, err)
	require.Equal(t, top.ID, *nested.ParentID)
}

func TestCommentWritesInvalidateReadModel(t *testing.T) {
	store := newCommentStoreStub()
	cache := &invalidatorStub{}
	svc := NewCommentService(store, newLogbookStoreStub(testLogbook(models.StatusSubmitted)),
		&entryLookupStub{}, &directoryStub{assigned: map[string]string{"trainee-1": "super-1"}}, cache, nil)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	comment, err := svc.Add(context.Background(), owner, "lb-1", models.DocumentTarget(), "I was on leave Wednesday")
	require.NoError(t, err)
	require.Equal(t, []string{"lb-1"}, cache.invalidated)

	supervisor := models.Actor{ID: "super-1", Role: models.RoleSupervisor}
	_, err = svc.Reply(context.Background(), supervisor, comment.ID, "noted, thanks")
	require.NoError(t, err)
	require.Equal(t, []string{"lb-1", "lb-1"}, cache.invalidated)
}

func TestCommentReplyUnknownParent(t *testing.T) {
	svc := newTestCommentService(newCommentStoreStub(), nil)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	_, err := svc.Reply(context.Background(), owner, "c-404", "text")
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCommentListVisibility(t *testing.T) {
	store := newCommentStoreStub()
	svc := newTestCommentService(store, nil)

	owner := models.Actor{ID: "trainee-1", Role: models.RoleTrainee}
	_, err := svc.Add(context.Background(), owner, "lb-1", models.DocumentTarget(), "first")
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), owner, "lb-1", models.DocumentTarget(), "second")
	require.NoError(t, err)

	// Admins may read the thread even though they cannot post to it.
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	comments, err := svc.List(context.Background(), admin, "lb-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "first", comments[0].Body)

	_, err = svc.List(context.Background(), models.Actor{ID: "super-2", Role: models.RoleSupervisor}, "lb-1")
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
