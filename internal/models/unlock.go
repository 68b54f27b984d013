package models

import "time"

// UnlockRequest is a time-boxed grant allowing edits to a locked
// logbook. A request starts pending; granting stamps granted_at and a
// duration. Expiry is a pure function of the stored timestamps, no
// background sweep exists.
type UnlockRequest struct {
	ID              string     `db:"id" json:"id"`
	LogbookID       string     `db:"logbook_id" json:"logbook_id"`
	RequestedBy     string     `db:"requested_by" json:"requested_by"`
	Reason          string     `db:"reason" json:"reason"`
	RequestedAt     time.Time  `db:"requested_at" json:"requested_at"`
	GrantedBy       *string    `db:"granted_by" json:"granted_by,omitempty"`
	GrantedAt       *time.Time `db:"granted_at" json:"granted_at,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
}

// Pending reports whether the request awaits a supervisor decision.
func (u *UnlockRequest) Pending() bool {
	return u.GrantedAt == nil
}

// ExpiresAt computes the grant expiry, nil while pending.
func (u *UnlockRequest) ExpiresAt() *time.Time {
	if u.GrantedAt == nil || u.DurationMinutes == nil {
		return nil
	}
	t := u.GrantedAt.Add(time.Duration(*u.DurationMinutes) * time.Minute)
	return &t
}

// ActiveAt reports whether the grant permits edits at the given instant.
func (u *UnlockRequest) ActiveAt(now time.Time) bool {
	exp := u.ExpiresAt()
	return exp != nil && now.Before(*exp)
}

// OutstandingAt reports whether the request blocks a new unlock cycle:
// either still pending or granted and not yet expired.
func (u *UnlockRequest) OutstandingAt(now time.Time) bool {
	return u.Pending() || u.ActiveAt(now)
}
