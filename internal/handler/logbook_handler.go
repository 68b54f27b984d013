package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinpath/logbook-api/internal/dto"
	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
	"github.com/clinpath/logbook-api/pkg/response"
)

type workflowService interface {
	Submit(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error)
	Resubmit(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error)
	ClaimReview(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error)
	Approve(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error)
	Reject(ctx context.Context, actor models.Actor, logbookID, comment string) (*models.Logbook, error)
	RequestChanges(ctx context.Context, actor models.Actor, logbookID, comment string) (*models.Logbook, error)
	Lock(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error)
}

type logbookReadService interface {
	CreateDraft(ctx context.Context, actor models.Actor, weekStart string) (*models.Logbook, error)
	Get(ctx context.Context, actor models.Actor, logbookID string) (*dto.LogbookView, error)
	List(ctx context.Context, actor models.Actor, query dto.LogbookQuery) ([]models.Logbook, error)
	Audit(ctx context.Context, actor models.Actor, logbookID string) ([]models.AuditEntry, error)
}

// LogbookHandler exposes REST endpoints for the review workflow and the
// logbook read model.
type LogbookHandler struct {
	workflow workflowService
	reads    logbookReadService
}

// NewLogbookHandler constructs the handler.
func NewLogbookHandler(workflow workflowService, reads logbookReadService) *LogbookHandler {
	return &LogbookHandler{workflow: workflow, reads: reads}
}

// Create godoc
// @Summary Open a draft logbook for a week
// @Tags Logbooks
// @Accept json
// @Produce json
// @Param payload body dto.CreateLogbookRequest true "Week start (Monday)"
// @Success 201 {object} response.Envelope
// @Router /logbooks [post]
func (h *LogbookHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateLogbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid logbook payload"))
		return
	}
	logbook, err := h.reads.CreateDraft(c.Request.Context(), actor, req.WeekStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, logbook, nil)
}

// List godoc
// @Summary List logbooks visible to the caller
// @Tags Logbooks
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param trainee_id query string false "Trainee filter (supervisor/admin)"
// @Param week_start query string false "Week start date"
// @Success 200 {object} response.Envelope
// @Router /logbooks [get]
func (h *LogbookHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	logbooks, err := h.reads.List(c.Request.Context(), actor, logbookQueryFromRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logbooks, nil)
}

// Get godoc
// @Summary Get the full logbook read model
// @Tags Logbooks
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id} [get]
func (h *LogbookHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.reads.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Audit godoc
// @Summary List the audit trail for a logbook
// @Tags Logbooks
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/audit [get]
func (h *LogbookHandler) Audit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.reads.Audit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Submit godoc
// @Summary Submit a logbook for review
// @Tags Workflow
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/submit [post]
func (h *LogbookHandler) Submit(c *gin.Context) {
	h.transition(c, h.workflow.Submit)
}

// Resubmit godoc
// @Summary Resubmit a logbook after feedback
// @Tags Workflow
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/resubmit [post]
func (h *LogbookHandler) Resubmit(c *gin.Context) {
	h.transition(c, h.workflow.Resubmit)
}

// ClaimReview godoc
// @Summary Claim a submitted logbook for review
// @Tags Workflow
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/claim [post]
func (h *LogbookHandler) ClaimReview(c *gin.Context) {
	h.transition(c, h.workflow.ClaimReview)
}

// Approve godoc
// @Summary Approve a logbook
// @Tags Workflow
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/approve [post]
func (h *LogbookHandler) Approve(c *gin.Context) {
	h.transition(c, h.workflow.Approve)
}

// Lock godoc
// @Summary Lock an approved logbook
// @Tags Workflow
// @Produce json
// @Param id path string true "Logbook ID"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/lock [post]
func (h *LogbookHandler) Lock(c *gin.Context) {
	h.transition(c, h.workflow.Lock)
}

// Reject godoc
// @Summary Reject a logbook with a rationale
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Logbook ID"
// @Param payload body dto.ReviewCommentRequest true "Rejection comment"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/reject [post]
func (h *LogbookHandler) Reject(c *gin.Context) {
	h.decision(c, h.workflow.Reject)
}

// RequestChanges godoc
// @Summary Request changes on a logbook
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Logbook ID"
// @Param payload body dto.ReviewCommentRequest true "Requested changes"
// @Success 200 {object} response.Envelope
// @Router /logbooks/{id}/request-changes [post]
func (h *LogbookHandler) RequestChanges(c *gin.Context) {
	h.decision(c, h.workflow.RequestChanges)
}

func (h *LogbookHandler) transition(c *gin.Context, op func(ctx context.Context, actor models.Actor, logbookID string) (*models.Logbook, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	logbook, err := op(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logbook, nil)
}

func (h *LogbookHandler) decision(c *gin.Context, op func(ctx context.Context, actor models.Actor, logbookID, comment string) (*models.Logbook, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReviewCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	logbook, err := op(c.Request.Context(), actor, c.Param("id"), req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logbook, nil)
}

func logbookQueryFromRequest(c *gin.Context) dto.LogbookQuery {
	query := dto.LogbookQuery{
		TraineeID: strings.TrimSpace(c.Query("trainee_id")),
		WeekStart: strings.TrimSpace(c.Query("week_start")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.LogbookStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.LogbookStatus(part))
		}
		query.Status = statuses
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			query.Offset = offset
		}
	}
	return query
}
