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

type dashboardService interface {
	Dashboard(ctx context.Context, actor models.Actor, query dto.LogbookQuery) ([]dto.DashboardRow, error)
}

// DashboardHandler serves the RAG timeliness dashboard.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Logbooks godoc
// @Summary List logbooks with submission-timeliness RAG status
// @Tags Dashboard
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param trainee_id query string false "Trainee filter (supervisor/admin)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/logbooks [get]
func (h *DashboardHandler) Logbooks(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.service.Dashboard(c.Request.Context(), actor, logbookQueryFromRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
