// ABOUTME: User settings operations for the SQLite store.
// ABOUTME: One row per user; inserts never overwrite an existing row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
)

const settingsColumns = `id, user_id, font_size, week_starts_monday, theme, notifications_enabled,
	reminder_time, google_calendar_connected, apple_calendar_connected, created_at, updated_at`

// GetSettings returns the user's settings, or nil when none exist yet.
func (d *DB) GetSettings(ctx context.Context) (*models.UserSettings, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}
	s, err := scanSettings(d.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = ?`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", decode(err))
	}
	return s, nil
}

// InsertSettings creates the user's settings row unless one already exists,
// then returns whichever row is stored. Concurrent callers converge on one row.
func (d *DB) InsertSettings(ctx context.Context, s *models.UserSettings) (*models.UserSettings, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := formatTime(d.clock.now())
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO user_settings (id, user_id, font_size, week_starts_monday, theme,
				notifications_enabled, reminder_time, google_calendar_connected,
				apple_calendar_connected, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO NOTHING
		`, id.String(), uid, s.FontSize, s.WeekStartsMonday, string(s.Theme), s.NotificationsEnabled,
			s.ReminderTime, s.GoogleCalendarConnected, s.AppleCalendarConnected, now, now)
		if err != nil {
			return fmt.Errorf("insert settings: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return d.logChange(ctx, tx, TableSettings, OpInsert, uid, id.String())
	})
	if err != nil {
		return nil, fmt.Errorf("insert settings: %w", err)
	}

	return d.GetSettings(ctx)
}

// UpdateSettings applies p to the user's settings row.
func (d *DB) UpdateSettings(ctx context.Context, p SettingsPatch) (*models.UserSettings, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		s, err := scanSettings(tx.QueryRowContext(ctx,
			`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = ?`, uid))
		if err != nil {
			return err
		}
		applySettingsPatch(s, p)
		_, err = tx.ExecContext(ctx, `
			UPDATE user_settings SET font_size = ?, week_starts_monday = ?, theme = ?,
				notifications_enabled = ?, reminder_time = ?, google_calendar_connected = ?,
				apple_calendar_connected = ?, updated_at = ?
			WHERE user_id = ?
		`, s.FontSize, s.WeekStartsMonday, string(s.Theme), s.NotificationsEnabled, s.ReminderTime,
			s.GoogleCalendarConnected, s.AppleCalendarConnected, formatTime(d.clock.now()), uid)
		if err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		return d.logChange(ctx, tx, TableSettings, OpUpdate, uid, s.ID.String())
	})
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return d.GetSettings(ctx)
}

func applySettingsPatch(s *models.UserSettings, p SettingsPatch) {
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.WeekStartsMonday != nil {
		s.WeekStartsMonday = *p.WeekStartsMonday
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.ReminderTime != nil {
		s.ReminderTime = *p.ReminderTime
	}
	if p.GoogleCalendarConnected != nil {
		s.GoogleCalendarConnected = *p.GoogleCalendarConnected
	}
	if p.AppleCalendarConnected != nil {
		s.AppleCalendarConnected = *p.AppleCalendarConnected
	}
}

func scanSettings(row scanner) (*models.UserSettings, error) {
	var s models.UserSettings
	var idStr, userID, theme, createdAt, updatedAt string

	err := row.Scan(&idStr, &userID, &s.FontSize, &s.WeekStartsMonday, &theme, &s.NotificationsEnabled,
		&s.ReminderTime, &s.GoogleCalendarConnected, &s.AppleCalendarConnected, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan settings: %w", err)
	}

	s.ID, _ = uuid.Parse(idStr)
	s.UserID, _ = uuid.Parse(userID)
	s.Theme = models.Theme(theme)
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}
