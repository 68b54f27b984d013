package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/clinpath/logbook-api/internal/dto"
	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

type stubCommentService struct {
	comment    *models.Comment
	list       []models.Comment
	err        error
	lastTarget models.CommentTarget
	lastText   string
	lastParent string
}

func (s *stubCommentService) Add(ctx context.Context, actor models.Actor, logbookID string, target models.CommentTarget, text string) (*models.Comment, error) {
	s.lastTarget = target
	s.lastText = text
	return s.comment, s.err
}

func (s *stubCommentService) Reply(ctx context.Context, actor models.Actor, parentID, text string) (*models.Comment, error) {
	s.lastParent = parentID
	s.lastText = text
	return s.comment, s.err
}

func (s *stubCommentService) List(ctx context.Context, actor models.Actor, logbookID string) ([]models.Comment, error) {
	return s.list, s.err
}

func TestCommentHandlerCreateSectionScope(t *testing.T) {
	service := &stubCommentService{comment: &models.Comment{ID: "c-1", Scope: models.ScopeSection}}
	handler := NewCommentHandler(service)

	c, recorder := testContext(t, http.MethodPost, "/logbooks/lb-1/comments",
		dto.CreateCommentRequest{Scope: "section", Section: "b", Text: "hours look low"}, supervisorClaims())
	c.Params = gin.Params{{Key: "id", Value: "lb-1"}}

	handler.Create(c)

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Equal(t, models.ScopeSection, service.lastTarget.Scope())
	section, ok := service.lastTarget.Section()
	require.True(t, ok)
	require.Equal(t, models.SectionProfessionalDevelopment, section)
	require.Equal(t, "hours look low", service.lastText)
}

func TestCommentHandlerCreateInvalidTarget(t *testing.T) {
	service := &stubCommentService{}
	handler := NewCommentHandler(service)

	cases := []dto.CreateCommentRequest{
		{Scope: "SECTION", Text: "missing section"},
		{Scope: "SECTION", Section: "D", Text: "bad section"},
		{Scope: "RECORD", Text: "missing record id"},
		{Scope: "PARAGRAPH", Text: "unknown scope"},
	}
	for _, payload := range cases {
		c, recorder := testContext(t, http.MethodPost, "/logbooks/lb-1/comments", payload, traineeClaims())
		c.Params = gin.Params{{Key: "id", Value: "lb-1"}}

		handler.Create(c)

		require.Equal(t, http.StatusBadRequest, recorder.Code, "%+v", payload)
		envelope := decodeEnvelope(t, recorder)
		require.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
	}
}

func TestCommentHandlerReply(t *testing.T) {
	service := &stubCommentService{comment: &models.Comment{ID: "c-2"}}
	handler := NewCommentHandler(service)

	c, recorder := testContext(t, http.MethodPost, "/comments/c-1/replies",
		dto.ReplyCommentRequest{Text: "fixed it"}, traineeClaims())
	c.Params = gin.Params{{Key: "id", Value: "c-1"}}

	handler.Reply(c)

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Equal(t, "c-1", service.lastParent)
	require.Equal(t, "fixed it", service.lastText)
}

func TestCommentHandlerList(t *testing.T) {
	service := &stubCommentService{list: []models.Comment{{ID: "c-1"}, {ID: "c-2"}}}
	handler := NewCommentHandler(service)

	c, recorder := testContext(t, http.MethodGet, "/logbooks/lb-1/comments", nil, supervisorClaims())
	c.Params = gin.Params{{Key: "id", Value: "lb-1"}}

	handler.List(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	require.Nil(t, envelope.Error)
	require.NotNil(t, envelope.Data)
}

func TestCommentHandlerForbiddenPassesThrough(t *testing.T) {
	service := &stubCommentService{err: appErrors.Clone(appErrors.ErrForbidden, "only the trainee and their supervisor may comment")}
	handler := NewCommentHandler(service)

	c, recorder := testContext(t, http.MethodPost, "/logbooks/lb-1/comments",
		dto.CreateCommentRequest{Scope: "DOCUMENT", Text: "hello"}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "lb-1"}}

	handler.Create(c)

	require.Equal(t, http.StatusForbidden, recorder.Code)
}
