package models

import "time"

// AuditAction constants represent actions recorded against an idea.
const (
	AuditActionCreated       = "Created"
	AuditActionStatusChanged = "StatusChanged"
	AuditActionApproved      = "Approved"
	AuditActionRejected      = "Rejected"
	AuditActionUpdated       = "Updated"
	AuditActionClassified    = "Classified"
	AuditActionEvaluated     = "Evaluated"
)

// AuditLog is an immutable record of one action taken against an idea.
// Entries are append-only; nothing updates or deletes them. IdeaID is a
// weak reference used for lookup only.
type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	IdeaID      string    `db:"idea_id" json:"idea_id"`
	Action      string    `db:"action" json:"action"`
	PerformedBy string    `db:"performed_by" json:"performed_by"`
	PerformedAt time.Time `db:"performed_at" json:"performed_at"`
	Details     string    `db:"details" json:"details"`
}

// AuditLogFilter captures filtering criteria for the activity log view.
type AuditLogFilter struct {
	IdeaID   string
	Action   string
	Page     int
	PageSize int
}
