package models

import "time"

// CommentScope identifies what a comment is attached to.
type CommentScope string

const (
	ScopeDocument CommentScope = "DOCUMENT"
	ScopeSection  CommentScope = "SECTION"
	ScopeRecord   CommentScope = "RECORD"
)

// CommentTarget is a tagged variant over the three comment scopes.
// Construct it only through the constructors below so that invalid
// scope/field combinations are unrepresentable.
type CommentTarget struct {
	scope    CommentScope
	section  EntrySection
	recordID string
}

// DocumentTarget attaches a comment at logbook level.
func DocumentTarget() CommentTarget {
	return CommentTarget{scope: ScopeDocument}
}

// SectionTarget attaches a comment to one of the three sections.
func SectionTarget(section EntrySection) CommentTarget {
	return CommentTarget{scope: ScopeSection, section: section}
}

// RecordTarget attaches a comment to a specific practice entry.
func RecordTarget(recordID string) CommentTarget {
	return CommentTarget{scope: ScopeRecord, recordID: recordID}
}

// Scope returns the target scope tag.
func (t CommentTarget) Scope() CommentScope { return t.scope }

// Section returns the section identifier for section-scoped targets.
func (t CommentTarget) Section() (EntrySection, bool) {
	return t.section, t.scope == ScopeSection
}

// RecordID returns the entry identifier for record-scoped targets.
func (t CommentTarget) RecordID() (string, bool) {
	return t.recordID, t.scope == ScopeRecord
}

// Comment is one message in a logbook's feedback thread. Comments are
// never deleted; corrections happen through follow-up comments.
type Comment struct {
	ID         string        `db:"id" json:"id"`
	LogbookID  string        `db:"logbook_id" json:"logbook_id"`
	Scope      CommentScope  `db:"scope" json:"scope"`
	Section    *EntrySection `db:"section" json:"section,omitempty"`
	RecordID   *string       `db:"record_id" json:"record_id,omitempty"`
	ParentID   *string       `db:"parent_id" json:"parent_id,omitempty"`
	AuthorID   string        `db:"author_id" json:"author_id"`
	AuthorRole UserRole      `db:"author_role" json:"author_role"`
	Body       string        `db:"body" json:"body"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// Target reconstructs the tagged target from stored columns.
func (c *Comment) Target() CommentTarget {
	switch c.Scope {
	case ScopeSection:
		if c.Section != nil {
			return SectionTarget(*c.Section)
		}
	case ScopeRecord:
		if c.RecordID != nil {
			return RecordTarget(*c.RecordID)
		}
	}
	return DocumentTarget()
}
