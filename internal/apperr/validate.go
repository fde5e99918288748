// ABOUTME: Input validators that report failures as validation errors.
// ABOUTME: Used by services before any store call.
package apperr

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateEmail returns a validation error for a malformed address.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return Validation("email", "enter an email address")
	}
	if !ValidEmail(email) {
		return Validation("email", "enter a valid email address")
	}
	return nil
}

// ValidatePassword returns a validation error for an empty or short password.
func ValidatePassword(password string) error {
	if password == "" {
		return Validation("password", "enter a password")
	}
	if len(password) < MinPasswordLength {
		return Validation("password", "password must be at least 6 characters")
	}
	return nil
}
