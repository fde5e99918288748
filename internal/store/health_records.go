// ABOUTME: Health record operations for the SQLite store.
// ABOUTME: Records are unique per (user_id, date); upserts are keyed on that pair.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
)

const healthRecordColumns = `id, user_id, date, status, notes, created_at, updated_at`

// ListHealthRecords returns the user's records, newest date first.
func (d *DB) ListHealthRecords(ctx context.Context, f RecordFilter) ([]*models.HealthRecord, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + healthRecordColumns + ` FROM health_records WHERE user_id = ?`
	args := []interface{}{uid}
	if f.From != "" {
		query += " AND date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND date <= ?"
		args = append(args, f.To)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY date DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", decode(err))
	}
	defer rows.Close()

	records := []*models.HealthRecord{}
	for rows.Next() {
		r, err := scanHealthRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list health records: %w", decode(err))
	}
	return records, nil
}

// GetHealthRecord returns one record by id, or a not-found error.
func (d *DB) GetHealthRecord(ctx context.Context, id uuid.UUID) (*models.HealthRecord, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}
	r, err := scanHealthRecord(d.db.QueryRowContext(ctx,
		`SELECT `+healthRecordColumns+` FROM health_records WHERE id = ? AND user_id = ?`,
		id.String(), uid))
	if err != nil {
		return nil, fmt.Errorf("get health record: %w", decode(err))
	}
	return r, nil
}

// GetHealthRecordByDate returns the record for date, or nil when there is none.
func (d *DB) GetHealthRecordByDate(ctx context.Context, date string) (*models.HealthRecord, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}
	r, err := scanHealthRecord(d.db.QueryRowContext(ctx,
		`SELECT `+healthRecordColumns+` FROM health_records WHERE user_id = ? AND date = ?`,
		uid, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get health record by date: %w", decode(err))
	}
	return r, nil
}

// CreateHealthRecord inserts a record. A second record for the same date is a conflict.
func (d *DB) CreateHealthRecord(ctx context.Context, in HealthRecordInput) (*models.HealthRecord, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	now := d.clock.now()
	id := uuid.New().String()
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO health_records (id, user_id, date, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, uid, in.Date, string(in.Status), nullString(in.Notes), formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert health record: %w", err)
		}
		return d.logChange(ctx, tx, TableHealthRecords, OpInsert, uid, id)
	})
	if err != nil {
		return nil, fmt.Errorf("create health record: %w", err)
	}

	return d.GetHealthRecord(ctx, uuid.MustParse(id))
}

// UpdateHealthRecord applies p to the record with id.
func (d *DB) UpdateHealthRecord(ctx context.Context, id uuid.UUID, p HealthRecordPatch) (*models.HealthRecord, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanHealthRecord(tx.QueryRowContext(ctx,
			`SELECT `+healthRecordColumns+` FROM health_records WHERE id = ? AND user_id = ?`,
			id.String(), uid))
		if err != nil {
			return err
		}
		if p.Status != nil {
			existing.Status = *p.Status
		}
		if p.Notes != nil {
			existing.WithNotes(*p.Notes)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE health_records SET status = ?, notes = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			string(existing.Status), nullString(existing.Notes), formatTime(d.clock.now()), id.String(), uid)
		if err != nil {
			return fmt.Errorf("update health record: %w", err)
		}
		return d.logChange(ctx, tx, TableHealthRecords, OpUpdate, uid, id.String())
	})
	if err != nil {
		return nil, fmt.Errorf("update health record: %w", err)
	}

	return d.GetHealthRecord(ctx, id)
}

// UpsertHealthRecords writes all inputs in one transaction, keyed on
// (user_id, date). Existing rows keep their id and created_at. When the batch
// repeats a date, the last entry wins.
func (d *DB) UpsertHealthRecords(ctx context.Context, in []HealthRecordInput) ([]*models.HealthRecord, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return nil, err
	}
	inputs := dedupeByDate(in)
	if len(inputs) == 0 {
		return []*models.HealthRecord{}, nil
	}

	var results []*models.HealthRecord
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		results = results[:0]
		for _, rec := range inputs {
			now := formatTime(d.clock.now())
			newID := uuid.New().String()
			_, err := tx.ExecContext(ctx, `
				INSERT INTO health_records (id, user_id, date, status, notes, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(user_id, date) DO UPDATE SET
					status = excluded.status,
					notes = excluded.notes,
					updated_at = excluded.updated_at
			`, newID, uid, rec.Date, string(rec.Status), nullString(rec.Notes), now, now)
			if err != nil {
				return fmt.Errorf("upsert health record %s: %w", rec.Date, err)
			}

			saved, err := scanHealthRecord(tx.QueryRowContext(ctx,
				`SELECT `+healthRecordColumns+` FROM health_records WHERE user_id = ? AND date = ?`,
				uid, rec.Date))
			if err != nil {
				return err
			}
			op := OpUpdate
			if saved.ID.String() == newID {
				op = OpInsert
			}
			if err := d.logChange(ctx, tx, TableHealthRecords, op, uid, saved.ID.String()); err != nil {
				return err
			}
			results = append(results, saved)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert health records: %w", err)
	}
	return results, nil
}

// DeleteHealthRecord removes the record with id.
func (d *DB) DeleteHealthRecord(ctx context.Context, id uuid.UUID) error {
	uid, err := d.currentUserID()
	if err != nil {
		return err
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM health_records WHERE id = ? AND user_id = ?`, id.String(), uid)
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
		return d.logChange(ctx, tx, TableHealthRecords, OpDelete, uid, id.String())
	})
	if err != nil {
		return fmt.Errorf("delete health record: %w", err)
	}
	return nil
}

// ResolveID finds the full ID from a prefix among the user's rows.
func (d *DB) ResolveID(ctx context.Context, table Table, prefix string) (uuid.UUID, error) {
	uid, err := d.currentUserID()
	if err != nil {
		return uuid.Nil, err
	}
	if id, err := uuid.Parse(prefix); err == nil {
		return id, nil
	}

	switch table {
	case TableHealthRecords, TableSchedules:
	default:
		return uuid.Nil, fmt.Errorf("resolve id: unsupported table %q", table)
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return uuid.Nil, apperr.Validation("id", "id must not be empty")
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id FROM `+string(table)+` WHERE user_id = ? AND id LIKE ? || '%'`, uid, prefix)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve id: %w", decode(err))
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("scan id: %w", decode(err))
		}
		matches = append(matches, id)
	}

	switch len(matches) {
	case 0:
		return uuid.Nil, apperr.NotFound()
	case 1:
		return uuid.Parse(matches[0])
	default:
		return uuid.Nil, apperr.Validation("id", fmt.Sprintf("ambiguous prefix %s: matches multiple records", prefix))
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHealthRecord(row scanner) (*models.HealthRecord, error) {
	var r models.HealthRecord
	var idStr, userID, status, createdAt, updatedAt string
	var notes sql.NullString

	err := row.Scan(&idStr, &userID, &r.Date, &status, &notes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan health record: %w", err)
	}

	r.ID, _ = uuid.Parse(idStr)
	r.UserID, _ = uuid.Parse(userID)
	r.Status = models.HealthStatus(status)
	r.Notes = stringPtr(notes)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func dedupeByDate(in []HealthRecordInput) []HealthRecordInput {
	index := make(map[string]int, len(in))
	out := make([]HealthRecordInput, 0, len(in))
	for _, rec := range in {
		if i, ok := index[rec.Date]; ok {
			out[i] = rec
			continue
		}
		index[rec.Date] = len(out)
		out = append(out, rec)
	}
	return out
}
