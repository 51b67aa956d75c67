package models

import "time"

// SessionReport is one row of the sessions report. The token itself is never
// reported; TokenPrefix identifies the session.
type SessionReport struct {
	TokenPrefix     string    `json:"token_prefix"`
	UserID          int       `json:"user_id"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
	LastPath        string    `json:"last_path,omitempty"`
	IP              string    `json:"ip,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
	DurationSeconds int64     `json:"duration_seconds"`
}
