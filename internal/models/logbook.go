package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LogbookStatus captures the review workflow states of a weekly logbook.
type LogbookStatus string

const (
	StatusDraft            LogbookStatus = "DRAFT"
	StatusSubmitted        LogbookStatus = "SUBMITTED"
	StatusUnderReview      LogbookStatus = "UNDER_REVIEW"
	StatusChangesRequested LogbookStatus = "CHANGES_REQUESTED"
	StatusApproved         LogbookStatus = "APPROVED"
	StatusRejected         LogbookStatus = "REJECTED"
	StatusLocked           LogbookStatus = "LOCKED"
)

// WorkflowAction enumerates every state-changing action recorded in the
// audit trail.
type WorkflowAction string

const (
	ActionSubmit          WorkflowAction = "SUBMIT"
	ActionResubmit        WorkflowAction = "RESUBMIT"
	ActionClaimReview     WorkflowAction = "CLAIM_REVIEW"
	ActionApprove         WorkflowAction = "APPROVE"
	ActionReject          WorkflowAction = "REJECT"
	ActionRequestChanges  WorkflowAction = "REQUEST_CHANGES"
	ActionLock            WorkflowAction = "LOCK"
	ActionCommentAdded    WorkflowAction = "COMMENT_ADDED"
	ActionUnlockRequested WorkflowAction = "UNLOCK_REQUESTED"
	ActionUnlockGranted   WorkflowAction = "UNLOCK_GRANTED"
)

// transitions is the closed transition table of the review workflow.
// An action absent for a given status is an illegal transition.
var transitions = map[WorkflowAction]map[LogbookStatus]LogbookStatus{
	ActionSubmit: {
		StatusDraft:    StatusSubmitted,
		StatusRejected: StatusSubmitted,
	},
	ActionResubmit: {
		StatusRejected:         StatusSubmitted,
		StatusChangesRequested: StatusSubmitted,
	},
	ActionClaimReview: {
		StatusSubmitted: StatusUnderReview,
	},
	ActionApprove: {
		StatusSubmitted:   StatusApproved,
		StatusUnderReview: StatusApproved,
	},
	ActionReject: {
		StatusSubmitted:   StatusRejected,
		StatusUnderReview: StatusRejected,
	},
	ActionRequestChanges: {
		StatusSubmitted:   StatusChangesRequested,
		StatusUnderReview: StatusChangesRequested,
	},
	ActionLock: {
		StatusApproved: StatusLocked,
	},
}

// nonMutating actions are recorded in the audit trail but leave the
// logbook status untouched.
var nonMutating = map[WorkflowAction]struct{}{
	ActionCommentAdded:    {},
	ActionUnlockRequested: {},
	ActionUnlockGranted:   {},
}

// NextStatus resolves the target status for an action from the given
// status. ok is false when the transition table forbids the action.
func NextStatus(from LogbookStatus, action WorkflowAction) (LogbookStatus, bool) {
	if _, ok := nonMutating[action]; ok {
		return from, true
	}
	targets, ok := transitions[action]
	if !ok {
		return from, false
	}
	to, ok := targets[from]
	return to, ok
}

// ReplayStatus folds a sequence of audit actions from the initial draft
// state. Unknown or illegal actions stop the fold with an error; a clean
// audit trail must replay to the logbook's current status.
func ReplayStatus(actions []WorkflowAction) (LogbookStatus, error) {
	status := StatusDraft
	for i, action := range actions {
		next, ok := NextStatus(status, action)
		if !ok {
			return status, fmt.Errorf("audit entry %d: action %s illegal from status %s", i, action, status)
		}
		status = next
	}
	return status, nil
}

// SectionHours is the frozen per-section totals snapshot.
type SectionHours struct {
	WeeklyHours float64 `json:"weekly_hours"`
	EntryCount  int     `json:"entry_count"`
}

// SectionTotals holds the snapshot of hours per logbook section taken at
// submission time. Section A is direct client contact (DCC/CRA),
// section B professional development, section C supervision.
type SectionTotals struct {
	SectionA SectionHours `json:"section_a"`
	SectionB SectionHours `json:"section_b"`
	SectionC SectionHours `json:"section_c"`
}

// Value implements driver.Valuer for JSONB storage.
func (t SectionTotals) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB storage.
func (t *SectionTotals) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = SectionTotals{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported section totals source type %T", src)
	}
}

// Logbook is the aggregate record for one trainee and one ISO week.
type Logbook struct {
	ID            string        `db:"id" json:"id"`
	TraineeID     string        `db:"trainee_id" json:"trainee_id"`
	WeekStart     time.Time     `db:"week_start" json:"week_start"`
	Status        LogbookStatus `db:"status" json:"status"`
	SectionTotals SectionTotals `db:"section_totals" json:"section_totals"`
	// ReviewComments carries the latest rejection or changes-requested
	// rationale, distinct from the threaded comments.
	ReviewComments *string    `db:"review_comments" json:"review_comments,omitempty"`
	ReviewerID     *string    `db:"reviewer_id" json:"reviewer_id,omitempty"`
	SubmittedAt    *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt     *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ApprovedAt     *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	LockedAt       *time.Time `db:"locked_at" json:"locked_at,omitempty"`
	Version        int        `db:"version" json:"version"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// OwnerEditable reports whether the owner may edit entries for this week
// without an unlock grant.
func (l *Logbook) OwnerEditable() bool {
	switch l.Status {
	case StatusDraft, StatusRejected, StatusChangesRequested:
		return true
	default:
		return false
	}
}

// Locked reports whether the logbook has reached its terminal locked state.
func (l *Logbook) Locked() bool {
	return l.Status == StatusLocked
}

// LogbookFilter constrains listing queries. SupervisorID scopes results
// to the supervisor's assigned trainees.
type LogbookFilter struct {
	TraineeID    string
	SupervisorID string
	Status       []LogbookStatus
	WeekStart    *time.Time
	Limit        int
	Offset       int
}
