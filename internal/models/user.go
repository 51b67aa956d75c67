package models

import "time"

// User is an account row. PasswordHash never leaves the server.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserUpdate holds the mutable user fields; nil means unchanged.
type UserUpdate struct {
	Role         *string
	IsActive     *bool
	PasswordHash *string
}

// Empty reports whether no field is set.
func (u UserUpdate) Empty() bool {
	return u.Role == nil && u.IsActive == nil && u.PasswordHash == nil
}
