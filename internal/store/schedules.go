// ABOUTME: Schedule operations for the SQLite store.
// ABOUTME: Imported schedules are unique per (user, calendar_source, external_id).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
)

const scheduleColumns = `id, user_id, title, description, date, end_date, start_time, end_time,
	is_all_day, calendar_source, external_id, created_at, updated_at`

// ListSchedules returns the user's schedules ordered by date, then start time.
func (d *DB) ListSchedules(ctx context.Context, f ScheduleFilter) ([]*models.Schedule, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = ?`
	args := []interface{}{uid}
	if f.From != "" {
		query += " AND date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND date <= ?"
		args = append(args, f.To)
	}
	if f.Source != "" {
		query += " AND calendar_source = ?"
		args = append(args, f.Source)
	}
	query += " ORDER BY date ASC, COALESCE(start_time, '') ASC, created_at ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", decode(err))
	}
	defer rows.Close()

	schedules := []*models.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules: %w", decode(err))
	}
	return schedules, nil
}

// GetSchedule returns one schedule by id, or a not-found error.
func (d *DB) GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}
	s, err := scanSchedule(d.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ? AND user_id = ?`, id.String(), uid))
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", decode(err))
	}
	return s, nil
}

// FindScheduleByExternalID returns the imported schedule for (source, externalID), or nil.
func (d *DB) FindScheduleByExternalID(ctx context.Context, source, externalID string) (*models.Schedule, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}
	s, err := scanSchedule(d.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = ? AND calendar_source = ? AND external_id = ?`,
		uid, source, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", decode(err))
	}
	return s, nil
}

// CreateSchedule inserts a schedule.
func (d *DB) CreateSchedule(ctx context.Context, in ScheduleInput) (*models.Schedule, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	var id string
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = d.insertSchedule(ctx, tx, uid, in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return d.GetSchedule(ctx, uuid.MustParse(id))
}

// UpdateSchedule applies p to the schedule with id.
func (d *DB) UpdateSchedule(ctx context.Context, id uuid.UUID, p SchedulePatch) (*models.Schedule, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		s, err := scanSchedule(tx.QueryRowContext(ctx,
			`SELECT `+scheduleColumns+` FROM schedules WHERE id = ? AND user_id = ?`, id.String(), uid))
		if err != nil {
			return err
		}
		applySchedulePatch(s, p)
		_, err = tx.ExecContext(ctx, `
			UPDATE schedules SET title = ?, description = ?, date = ?, end_date = ?,
				start_time = ?, end_time = ?, is_all_day = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`, s.Title, nullString(s.Description), s.Date, nullString(s.EndDate),
			nullString(s.StartTime), nullString(s.EndTime), s.IsAllDay, formatTime(d.clock.now()),
			id.String(), uid)
		if err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		return d.logChange(ctx, tx, TableSchedules, OpUpdate, uid, id.String())
	})
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return d.GetSchedule(ctx, id)
}

// DeleteSchedule removes the schedule with id.
func (d *DB) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	uid, err := d.currentUserID()
	if err != nil {
		return err
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = ? AND user_id = ?`, id.String(), uid)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.NotFound()
		}
		return d.logChange(ctx, tx, TableSchedules, OpDelete, uid, id.String())
	})
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// ReplaceSchedulesBySource atomically replaces every schedule from source with in.
func (d *DB) ReplaceSchedulesBySource(ctx context.Context, source string, in []ScheduleInput) ([]*models.Schedule, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM schedules WHERE user_id = ? AND calendar_source = ?`, uid, source)
		if err != nil {
			return err
		}
		var old []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			old = append(old, id)
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM schedules WHERE user_id = ? AND calendar_source = ?`, uid, source); err != nil {
			return fmt.Errorf("clear schedules: %w", err)
		}
		for _, id := range old {
			if err := d.logChange(ctx, tx, TableSchedules, OpDelete, uid, id); err != nil {
				return err
			}
		}

		for _, s := range in {
			s.CalendarSource = source
			if _, err := d.insertSchedule(ctx, tx, uid, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace schedules: %w", err)
	}

	return d.ListSchedules(ctx, ScheduleFilter{Source: source})
}

func (d *DB) insertSchedule(ctx context.Context, tx *sql.Tx, uid string, in ScheduleInput) (string, error) {
	source := in.CalendarSource
	if source == "" {
		source = models.SourceManual
	}
	now := formatTime(d.clock.now())
	id := uuid.New().String()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, title, description, date, end_date, start_time, end_time,
			is_all_day, calendar_source, external_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, uid, in.Title, nullString(in.Description), in.Date, nullString(in.EndDate),
		nullString(in.StartTime), nullString(in.EndTime), in.IsAllDay, source,
		nullString(in.ExternalID), now, now)
	if err != nil {
		return "", fmt.Errorf("insert schedule: %w", err)
	}
	if err := d.logChange(ctx, tx, TableSchedules, OpInsert, uid, id); err != nil {
		return "", err
	}
	return id, nil
}

func applySchedulePatch(s *models.Schedule, p SchedulePatch) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = optional(*p.Description)
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.EndDate != nil {
		s.EndDate = optional(*p.EndDate)
	}
	if p.StartTime != nil {
		s.StartTime = optional(*p.StartTime)
	}
	if p.EndTime != nil {
		s.EndTime = optional(*p.EndTime)
	}
	if p.IsAllDay != nil {
		s.IsAllDay = *p.IsAllDay
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func scanSchedule(row scanner) (*models.Schedule, error) {
	var s models.Schedule
	var idStr, userID, createdAt, updatedAt string
	var desc, endDate, startTime, endTime, externalID sql.NullString

	err := row.Scan(&idStr, &userID, &s.Title, &desc, &s.Date, &endDate, &startTime, &endTime,
		&s.IsAllDay, &s.CalendarSource, &externalID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	s.ID, _ = uuid.Parse(idStr)
	s.UserID, _ = uuid.Parse(userID)
	s.Description = stringPtr(desc)
	s.EndDate = stringPtr(endDate)
	s.StartTime = stringPtr(startTime)
	s.EndTime = stringPtr(endTime)
	s.ExternalID = stringPtr(externalID)
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}
