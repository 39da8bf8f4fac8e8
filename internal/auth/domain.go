// Package auth resolves API tokens to users and their accessible site sets.
package auth

import "time"

// User represents an authenticated API user account.
type User struct {
	ID        int64
	Email     string
	TokenHash string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SiteGrant links a user to one accessible site.
type SiteGrant struct {
	UserID   int64
	SiteType string
	SiteKey  string
}
