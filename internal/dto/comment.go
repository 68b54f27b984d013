package dto

import (
	"strings"

	"github.com/clinpath/logbook-api/internal/models"
	appErrors "github.com/clinpath/logbook-api/pkg/errors"
)

// CreateCommentRequest payload for attaching feedback to a logbook.
type CreateCommentRequest struct {
	Scope    string `json:"scope"`
	Section  string `json:"section,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Text     string `json:"text"`
}

// Target parses the loose wire fields into the tagged comment target,
// rejecting invalid scope/field combinations up front.
func (r CreateCommentRequest) Target() (models.CommentTarget, error) {
	switch models.CommentScope(strings.ToUpper(strings.TrimSpace(r.Scope))) {
	case models.ScopeDocument:
		return models.DocumentTarget(), nil
	case models.ScopeSection:
		section := models.EntrySection(strings.ToUpper(strings.TrimSpace(r.Section)))
		if !models.ValidSection(section) {
			return models.CommentTarget{}, appErrors.Clone(appErrors.ErrValidation, "section comments require a section identifier (A, B or C)")
		}
		return models.SectionTarget(section), nil
	case models.ScopeRecord:
		if strings.TrimSpace(r.RecordID) == "" {
			return models.CommentTarget{}, appErrors.Clone(appErrors.ErrValidation, "record comments require a record_id")
		}
		return models.RecordTarget(strings.TrimSpace(r.RecordID)), nil
	default:
		return models.CommentTarget{}, appErrors.Clone(appErrors.ErrValidation, "scope must be DOCUMENT, SECTION or RECORD")
	}
}

// ReplyCommentRequest payload for replying to an existing comment.
type ReplyCommentRequest struct {
	Text string `json:"text"`
}
