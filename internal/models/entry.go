package models

import "time"

// EntrySection identifies the logbook section a practice entry belongs to.
type EntrySection string

const (
	SectionDirectClientContact     EntrySection = "A"
	SectionProfessionalDevelopment EntrySection = "B"
	SectionSupervision             EntrySection = "C"
)

// ValidSection reports whether the value is one of the three sections.
func ValidSection(s EntrySection) bool {
	switch s {
	case SectionDirectClientContact, SectionProfessionalDevelopment, SectionSupervision:
		return true
	}
	return false
}

// PracticeEntry is one logged activity inside a logbook week. Entry CRUD
// forms live outside this service; the engine reads totals from these
// rows and gates edits on the owning logbook's state.
type PracticeEntry struct {
	ID        string       `db:"id" json:"id"`
	TraineeID string       `db:"trainee_id" json:"trainee_id"`
	WeekStart time.Time    `db:"week_start" json:"week_start"`
	Section   EntrySection `db:"section" json:"section"`
	Activity  string       `db:"activity" json:"activity"`
	Hours     float64      `db:"hours" json:"hours"`
	EntryDate time.Time    `db:"entry_date" json:"entry_date"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
