// ABOUTME: User and Session models for the authenticated account.
// ABOUTME: Sessions are bearer tokens with an expiry.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Provider       string    `json:"provider"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session is a signed-in user's bearer token.
type Session struct {
	AccessToken string    `json:"access_token"`
	User        User      `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
