package models

import "time"

// MaxLogEntries caps both the structural and audit logs.
const MaxLogEntries = 100

// AuditEntry is one append-only record of an irreversible action.
type AuditEntry struct {
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Admin     string         `json:"admin"`
	Details   map[string]any `json:"details,omitempty"`
}

// AppendCapped appends entry and evicts the oldest entries beyond max.
func AppendCapped(log []AuditEntry, entry AuditEntry, max int) []AuditEntry {
	log = append(log, entry)
	if max > 0 && len(log) > max {
		log = append([]AuditEntry(nil), log[len(log)-max:]...)
	}
	return log
}
