// ABOUTME: SettingsCache keeps the signed-in user's settings in memory.
// ABOUTME: Every update replaces the cached settings wholesale.
package sync

import (
	"context"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
)

// SettingsCache mirrors one user's settings row.
type SettingsCache struct {
	c   *cache[*models.UserSettings]
	svc *service.Settings
}

// NewSettingsCache creates a cache over svc. Call Start to load it.
func NewSettingsCache(st store.Store, svc *service.Settings, opts ...Option) *SettingsCache {
	return &SettingsCache{
		c:   newCache("user_settings", st, store.TableSettings, svc.Get, (*models.UserSettings).Clone, opts),
		svc: svc,
	}
}

// Start loads settings for the current user, creating defaults if needed.
func (s *SettingsCache) Start(ctx context.Context) error { return s.c.start(ctx) }

// Refresh refetches the settings row.
func (s *SettingsCache) Refresh(ctx context.Context) error { return s.c.refresh(ctx) }

// Close drops all subscriptions.
func (s *SettingsCache) Close() { s.c.close() }

// State returns a snapshot.
func (s *SettingsCache) State() State[*models.UserSettings] { return s.c.snapshot() }

// OnChange registers fn to receive every new snapshot.
func (s *SettingsCache) OnChange(fn func(State[*models.UserSettings])) store.Subscription {
	return s.c.onChange(fn)
}

// UpdateFontSize sets the font size.
func (s *SettingsCache) UpdateFontSize(ctx context.Context, size int) (*models.UserSettings, error) {
	return s.apply(ctx, func(ctx context.Context) (*models.UserSettings, error) {
		return s.svc.UpdateFontSize(ctx, size)
	})
}

// UpdateWeekStartsMonday sets the first weekday.
func (s *SettingsCache) UpdateWeekStartsMonday(ctx context.Context, monday bool) (*models.UserSettings, error) {
	return s.apply(ctx, func(ctx context.Context) (*models.UserSettings, error) {
		return s.svc.UpdateWeekStartsMonday(ctx, monday)
	})
}

// UpdateTheme sets the theme.
func (s *SettingsCache) UpdateTheme(ctx context.Context, theme models.Theme) (*models.UserSettings, error) {
	return s.apply(ctx, func(ctx context.Context) (*models.UserSettings, error) {
		return s.svc.UpdateTheme(ctx, theme)
	})
}

// UpdateNotifications toggles reminders and optionally sets their time.
func (s *SettingsCache) UpdateNotifications(ctx context.Context, enabled bool, reminder string) (*models.UserSettings, error) {
	return s.apply(ctx, func(ctx context.Context) (*models.UserSettings, error) {
		return s.svc.UpdateNotifications(ctx, enabled, reminder)
	})
}

// UpdateCalendarIntegration records connected calendars.
func (s *SettingsCache) UpdateCalendarIntegration(ctx context.Context, google, apple *bool) (*models.UserSettings, error) {
	return s.apply(ctx, func(ctx context.Context) (*models.UserSettings, error) {
		return s.svc.UpdateCalendarIntegration(ctx, google, apple)
	})
}

// Reset restores the defaults.
func (s *SettingsCache) Reset(ctx context.Context) (*models.UserSettings, error) {
	return s.apply(ctx, s.svc.Reset)
}

func (s *SettingsCache) apply(ctx context.Context, op func(context.Context) (*models.UserSettings, error)) (*models.UserSettings, error) {
	return mutate(ctx, s.c, op, func(_ *models.UserSettings, next *models.UserSettings) *models.UserSettings {
		return next
	})
}
