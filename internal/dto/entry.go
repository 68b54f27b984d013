package dto

// UpdateEntryRequest adjusts an existing practice entry. Only hours and
// the activity description are mutable through this service; full entry
// CRUD lives in the entry-editor application.
type UpdateEntryRequest struct {
	Hours    *float64 `json:"hours,omitempty"`
	Activity *string  `json:"activity,omitempty"`
}
