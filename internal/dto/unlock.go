package dto

// CreateUnlockRequest payload for an owner requesting a temporary edit
// window on a locked logbook.
type CreateUnlockRequest struct {
	Reason string `json:"reason"`
}

// GrantUnlockRequest payload for the supervisor decision.
type GrantUnlockRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}
