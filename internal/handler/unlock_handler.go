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

type unlockService interface {
	Request(ctx context.Context, actor models.Actor, logbookID, reason string) (*models.UnlockRequest, error)
	Grant(ctx context.Context, actor models.Actor, requestID string, durationMinutes int) (*models.UnlockRequest, error)
}

// UnlockHandler exposes the unlock request lifecycle.
type UnlockHandler struct {
	service unlockService
}

// NewUnlockHandler constructs the handler.
func NewUnlockHandler(service unlockService) *UnlockHandler {
	return &UnlockHandler{service: service}
}

// Create godoc
// @Summary Request a temporary unlock of a locked logbook
// @Tags Unlock
// @Accept json
// @Produce json
// @Param id path string true "Logbook ID"
// @Param payload body dto.CreateUnlockRequest true "Unlock reason"
// @Success 201 {object} response.Envelope
// @Router /logbooks/{id}/unlock-requests [post]
func (h *UnlockHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid unlock payload"))
		return
	}
	request, err := h.service.Request(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// Grant godoc
// @Summary Grant a pending unlock request
// @Tags Unlock
// @Accept json
// @Produce json
// @Param id path string true "Unlock request ID"
// @Param payload body dto.GrantUnlockRequest true "Grant window"
// @Success 200 {object} response.Envelope
// @Router /unlock-requests/{id}/grant [post]
func (h *UnlockHandler) Grant(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GrantUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid grant payload"))
		return
	}
	request, err := h.service.Grant(c.Request.Context(), actor, c.Param("id"), req.DurationMinutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
