// ABOUTME: Settings service: lazy per-user defaults and validated field updates.
// ABOUTME: Concurrent first reads converge on a single settings row.
package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

// Settings is the service for the signed-in user's settings.
type Settings struct {
	store store.Store
}

// NewSettings creates a Settings service over st.
func NewSettings(st store.Store) *Settings {
	return &Settings{store: st}
}

// Get returns the user's settings, creating the defaults on first use.
func (s *Settings) Get(ctx context.Context) (*models.UserSettings, error) {
	current, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fail("settings.get", err)
	}
	if current != nil {
		return current, nil
	}
	return s.initDefaults(ctx)
}

func (s *Settings) initDefaults(ctx context.Context) (*models.UserSettings, error) {
	user, err := s.store.CurrentUser(ctx)
	if err != nil {
		return nil, fail("settings.init", err)
	}
	if user == nil {
		return nil, fail("settings.init", apperr.AuthRequired())
	}
	created, err := s.store.InsertSettings(ctx, models.DefaultSettings(user.ID))
	if err != nil {
		return nil, fail("settings.init", err)
	}
	return created, nil
}

// UpdateFontSize sets the display font size.
func (s *Settings) UpdateFontSize(ctx context.Context, size int) (*models.UserSettings, error) {
	if size < models.MinFontSize || size > models.MaxFontSize {
		return nil, fail("settings.update", apperr.Validation("font_size",
			"font size must be between "+strconv.Itoa(models.MinFontSize)+" and "+strconv.Itoa(models.MaxFontSize)))
	}
	return s.update(ctx, store.SettingsPatch{FontSize: &size})
}

// UpdateWeekStartsMonday sets the first day of the week in calendar views.
func (s *Settings) UpdateWeekStartsMonday(ctx context.Context, monday bool) (*models.UserSettings, error) {
	return s.update(ctx, store.SettingsPatch{WeekStartsMonday: &monday})
}

// UpdateTheme sets the color theme.
func (s *Settings) UpdateTheme(ctx context.Context, theme models.Theme) (*models.UserSettings, error) {
	if !models.IsValidTheme(string(theme)) {
		return nil, fail("settings.update", apperr.Validation("theme", "theme must be one of light, dark, system"))
	}
	return s.update(ctx, store.SettingsPatch{Theme: &theme})
}

// UpdateNotifications toggles reminders. An empty reminder keeps the current time.
func (s *Settings) UpdateNotifications(ctx context.Context, enabled bool, reminder string) (*models.UserSettings, error) {
	p := store.SettingsPatch{NotificationsEnabled: &enabled}
	if reminder != "" {
		n, err := models.ParseClock(reminder)
		if err != nil {
			return nil, fail("settings.update", apperr.Validation("reminder_time", err.Error()))
		}
		p.ReminderTime = &n
	}
	return s.update(ctx, p)
}

// UpdateCalendarIntegration records which external calendars are connected.
// Nil arguments leave that flag unchanged.
func (s *Settings) UpdateCalendarIntegration(ctx context.Context, google, apple *bool) (*models.UserSettings, error) {
	return s.update(ctx, store.SettingsPatch{GoogleCalendarConnected: google, AppleCalendarConnected: apple})
}

// Reset restores every setting to its default.
func (s *Settings) Reset(ctx context.Context) (*models.UserSettings, error) {
	return s.Apply(ctx, models.DefaultSettings(uuid.Nil))
}

// Apply overwrites the user's settings with the values in v.
func (s *Settings) Apply(ctx context.Context, v *models.UserSettings) (*models.UserSettings, error) {
	if v == nil {
		return s.Get(ctx)
	}
	if v.FontSize < models.MinFontSize || v.FontSize > models.MaxFontSize {
		return nil, fail("settings.apply", apperr.Validation("font_size", "font size out of range"))
	}
	if !models.IsValidTheme(string(v.Theme)) {
		return nil, fail("settings.apply", apperr.Validation("theme", "theme must be one of light, dark, system"))
	}
	reminder, err := models.ParseClock(v.ReminderTime)
	if err != nil {
		return nil, fail("settings.apply", apperr.Validation("reminder_time", err.Error()))
	}

	return s.update(ctx, store.SettingsPatch{
		FontSize:                &v.FontSize,
		WeekStartsMonday:        &v.WeekStartsMonday,
		Theme:                   &v.Theme,
		NotificationsEnabled:    &v.NotificationsEnabled,
		ReminderTime:            &reminder,
		GoogleCalendarConnected: &v.GoogleCalendarConnected,
		AppleCalendarConnected:  &v.AppleCalendarConnected,
	})
}

// update makes sure the row exists, then applies p.
func (s *Settings) update(ctx context.Context, p store.SettingsPatch) (*models.UserSettings, error) {
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return s.Get(ctx)
	}
	updated, err := s.store.UpdateSettings(ctx, p)
	if err != nil {
		return nil, fail("settings.update", err)
	}
	return updated, nil
}
