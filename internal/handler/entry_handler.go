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

type entryService interface {
	UpdateEntry(ctx context.Context, actor models.Actor, entryID string, hours *float64, activity *string) (*models.PracticeEntry, error)
}

// EntryHandler exposes the gated entry update endpoint.
type EntryHandler struct {
	service entryService
}

// NewEntryHandler constructs the handler.
func NewEntryHandler(service entryService) *EntryHandler {
	return &EntryHandler{service: service}
}

// Update godoc
// @Summary Update a practice entry behind the workflow edit gate
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.UpdateEntryRequest true "Entry changes"
// @Success 200 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid entry payload"))
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), actor, c.Param("id"), req.Hours, req.Activity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
