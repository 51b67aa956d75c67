package models

import (
	"encoding/json"
	"time"
)

// AuditEntry represents one audit_logs row. UserID and Role are nil for
// unauthenticated actions.
type AuditEntry struct {
	ID         int64           `json:"id"`
	UserID     *int            `json:"user_id"`
	Username   string          `json:"username,omitempty"` // joined at read time, empty if the user is gone
	Role       *string         `json:"role"`
	ActionType string          `json:"action_type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditFilter narrows an audit report.
type AuditFilter struct {
	ActionType string
	UserID     int
	Limit      int
	Offset     int
}
