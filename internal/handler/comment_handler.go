package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinpath/logbook-api/internal/dto"
	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
	"github.com/clinpath/logbook-api/pkg/response"
)

type commentService interface {
	Add(ctx context.Context, actor models.Actor, logbookID string, target models.CommentTarget, text string) (*models.Comment, error)
	Reply(ctx context.Context, actor models.Actor, parentID, text string) (*models.Comment, error)
	List(ctx context.Context, actor models.Actor, logbookID string) ([]models.Comment, error)
}

// CommentHandler exposes the comment thread endpoints.
type CommentHandler struct {
	service commentService
}

// NewCommentHandler constructs the handler.
func NewCommentHandler(service commentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// Create godoc
// @Summary Add a comment to a logbook
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Logbook ID"
// @Param payload body dto.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /logbooks/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	target, err := req.Target()
	if err != nil {
		response.Error(c, err)
		return
	}
	comment, err := h.service.Add(c.Request.Context(), actor, c.Param("id"), target, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, comment, nil)
}

// Reply godoc
// @Summary Reply to a comment
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Parent comment ID"
// @Param payload body dto.ReplyCommentRequest true "Reply payload"
// @Success 201 {object} response.Envelope
// @Router /comments/{id}/replies [post]
func (h *CommentHandler) Reply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReplyCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reply payload"))
		return
	}
	comment, err := h.service.Reply(c.Request.Context(), actor, c.Param("id"), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, comment, nil)
}

// List godoc
// @Summary List the comment thread for a logbook
// @Tags Comments
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	comments, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}
