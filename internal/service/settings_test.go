// ABOUTME: Tests for the settings service.
// ABOUTME: Covers lazy defaults, concurrent first reads, and field validation.
package service

import (
	"context"
	"sync"
	"testing"

	"github.com/harperreed/healthcal/internal/models"
)

func TestSettingsGetCreatesDefaults(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSettings(db)

	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FontSize != models.DefaultFontSize || got.Theme != models.ThemeLight || got.ReminderTime != models.DefaultReminderTime {
		t.Errorf("unexpected defaults: %+v", got)
	}
}

func TestSettingsConcurrentGetSingleRow(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSettings(db)

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.Get(context.Background())
			errs[i] = err
			if s != nil {
				ids[i] = s.ID.String()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Get #%d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("Get #%d returned row %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestUpdateFontSizeRejectsOutOfRange(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSettings(db)
	ctx := context.Background()

	if _, err := svc.UpdateFontSize(ctx, 20); err != nil {
		t.Fatalf("UpdateFontSize(20): %v", err)
	}
	for _, size := range []int{30, 11, 0} {
		_, err := svc.UpdateFontSize(ctx, size)
		requireField(t, err, "font_size")
	}

	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FontSize != 20 {
		t.Errorf("font size changed by rejected update: %d", got.FontSize)
	}
}

func TestSettingsUpdaters(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSettings(db)
	ctx := context.Background()
	yes := true

	if _, err := svc.UpdateTheme(ctx, models.ThemeDark); err != nil {
		t.Fatalf("UpdateTheme: %v", err)
	}
	if _, err := svc.UpdateWeekStartsMonday(ctx, true); err != nil {
		t.Fatalf("UpdateWeekStartsMonday: %v", err)
	}
	if _, err := svc.UpdateNotifications(ctx, false, "7:45"); err != nil {
		t.Fatalf("UpdateNotifications: %v", err)
	}
	got, err := svc.UpdateCalendarIntegration(ctx, &yes, nil)
	if err != nil {
		t.Fatalf("UpdateCalendarIntegration: %v", err)
	}

	if got.Theme != models.ThemeDark || !got.WeekStartsMonday || got.NotificationsEnabled ||
		got.ReminderTime != "07:45:00" || !got.GoogleCalendarConnected || got.AppleCalendarConnected {
		t.Errorf("unexpected settings after updates: %+v", got)
	}

	_, err = svc.UpdateTheme(ctx, "neon")
	requireField(t, err, "theme")
	_, err = svc.UpdateNotifications(ctx, true, "noon")
	requireField(t, err, "reminder_time")

	reset, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset.Theme != models.ThemeLight || reset.WeekStartsMonday || reset.GoogleCalendarConnected {
		t.Errorf("Reset did not restore defaults: %+v", reset)
	}
	if reset.ID != got.ID {
		t.Error("Reset replaced the settings row")
	}
}
