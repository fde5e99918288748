// ABOUTME: UserSettings model with per-user display and notification preferences.
// ABOUTME: Defaults match a freshly created account.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Theme is the preferred color scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValidTheme checks if a string is a supported theme.
func IsValidTheme(s string) bool {
	switch Theme(s) {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

const (
	MinFontSize         = 12
	MaxFontSize         = 24
	DefaultFontSize     = 16
	DefaultReminderTime = "09:00:00"
)

// UserSettings holds one user's preferences.
type UserSettings struct {
	ID                      uuid.UUID `json:"id" yaml:"id"`
	UserID                  uuid.UUID `json:"user_id" yaml:"user_id"`
	FontSize                int       `json:"font_size" yaml:"font_size"`
	WeekStartsMonday        bool      `json:"week_starts_monday" yaml:"week_starts_monday"`
	Theme                   Theme     `json:"theme" yaml:"theme"`
	NotificationsEnabled    bool      `json:"notifications_enabled" yaml:"notifications_enabled"`
	ReminderTime            string    `json:"reminder_time" yaml:"reminder_time"`
	GoogleCalendarConnected bool      `json:"google_calendar_connected" yaml:"google_calendar_connected"`
	AppleCalendarConnected  bool      `json:"apple_calendar_connected" yaml:"apple_calendar_connected"`
	CreatedAt               time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" yaml:"updated_at"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(userID uuid.UUID) *UserSettings {
	now := time.Now().UTC()
	return &UserSettings{
		ID:                   uuid.New(),
		UserID:               userID,
		FontSize:             DefaultFontSize,
		WeekStartsMonday:     false,
		Theme:                ThemeLight,
		NotificationsEnabled: true,
		ReminderTime:         DefaultReminderTime,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Clone returns a copy that shares no memory with s.
func (s *UserSettings) Clone() *UserSettings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
