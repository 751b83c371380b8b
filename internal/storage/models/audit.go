// Package models contains the persisted records of the application.
package models

import (
	"time"
)

// AuditAction names a mutation issued through the panel.
type AuditAction string

const (
	ActionSaveRange   AuditAction = "price_range.save"
	ActionDeleteRange AuditAction = "price_range.delete"
	ActionCreateDaily AuditAction = "price_range.daily"
	ActionBulkDelete  AuditAction = "price_range.bulk_delete"
)

// AuditOutcome records whether the mutation succeeded.
type AuditOutcome string

const (
	OutcomeOK    AuditOutcome = "ok"
	OutcomeError AuditOutcome = "error"
)

// AuditEntry is one journaled mutation.
type AuditEntry struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Action    AuditAction  `json:"action"`
	CourseID  string       `json:"course_id"`
	RangeIDs  []string     `json:"range_ids"`
	Outcome   AuditOutcome `json:"outcome"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Failed reports whether the mutation was rejected.
func (e *AuditEntry) Failed() bool {
	return e.Outcome == OutcomeError
}
