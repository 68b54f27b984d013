package models

import "time"

// AuditEntry is one append-only record in a logbook's audit trail.
// Seq is server-assigned and monotonically increasing; listing by seq
// reconstructs the exact transition history even when wall-clock
// timestamps collide. A nil ActorID marks a system-generated entry.
type AuditEntry struct {
	ID           string         `db:"id" json:"id"`
	LogbookID    string         `db:"logbook_id" json:"logbook_id"`
	Seq          int64          `db:"seq" json:"seq"`
	ActorID      *string        `db:"actor_id" json:"actor_id,omitempty"`
	Action       WorkflowAction `db:"action" json:"action"`
	FromStatus   *LogbookStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus     *LogbookStatus `db:"to_status" json:"to_status,omitempty"`
	Description  string         `db:"description" json:"description"`
	DiffSnapshot []byte         `db:"diff_snapshot" json:"diff_snapshot,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
