package dto

import (
	"time"

	"github.com/clinpath/logbook-api/internal/models"
)

// CreateLogbookRequest opens a draft logbook for a week.
type CreateLogbookRequest struct {
	WeekStart string `json:"week_start" validate:"required"`
}

// ReviewCommentRequest carries the mandatory rationale for reject and
// request-changes decisions.
type ReviewCommentRequest struct {
	Comment string `json:"comment"`
}

// UnlockState summarises the unlock mechanism for the read model.
type UnlockState struct {
	PendingRequest *models.UnlockRequest `json:"pending_request,omitempty"`
	ActiveGrant    *models.UnlockRequest `json:"active_grant,omitempty"`
	ExpiresAt      *time.Time            `json:"expires_at,omitempty"`
}

// LogbookView is the full read model returned by GET /logbooks/{id}.
type LogbookView struct {
	models.Logbook
	// Editable reports whether entry edits are currently possible, either
	// through an owner-editable status or an active unlock grant.
	Editable bool `json:"editable"`
	// LiveTotals is only populated while the owner may still edit
	// entries; the frozen SectionTotals snapshot is never recomputed on
	// read.
	LiveTotals *models.SectionTotals `json:"live_totals,omitempty"`
	Comments   []models.Comment      `json:"comments"`
	Audit      []models.AuditEntry   `json:"audit"`
	Unlock     UnlockState           `json:"unlock"`
}

// LogbookQuery mirrors supported listing filters.
type LogbookQuery struct {
	TraineeID string
	Status    []models.LogbookStatus
	WeekStart string
	Limit     int
	Offset    int
}
