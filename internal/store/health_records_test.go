// ABOUTME: Tests for health record store operations.
// ABOUTME: Covers upsert idempotence, per-user scoping, and conflict detection.
package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
)

func TestUpsertIdempotent(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()
	signUp(t, d, "a@example.com")

	first, err := d.UpsertHealthRecords(ctx, []HealthRecordInput{{Date: "2024-03-01", Status: models.StatusGood}})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := d.UpsertHealthRecords(ctx, []HealthRecordInput{{Date: "2024-03-01", Status: models.StatusBad}})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	all, err := d.ListHealthRecords(ctx, RecordFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
	if first[0].ID != second[0].ID {
		t.Error("upsert changed the record id")
	}
	if all[0].Status != models.StatusBad {
		t.Errorf("status = %s, want bad from the second upsert", all[0].Status)
	}
	if !second[0].CreatedAt.Equal(first[0].CreatedAt) {
		t.Error("upsert changed created_at")
	}
	if !second[0].UpdatedAt.After(first[0].UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", first[0].UpdatedAt, second[0].UpdatedAt)
	}
}

func TestUpsertBatchLastWins(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()
	signUp(t, d, "a@example.com")

	got, err := d.UpsertHealthRecords(ctx, []HealthRecordInput{
		{Date: "2024-03-01", Status: models.StatusGood},
		{Date: "2024-03-02", Status: models.StatusBad, Notes: strPtr("stressed")},
		{Date: "2024-03-01", Status: models.StatusNormal},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Status != models.StatusNormal {
		t.Errorf("2024-03-01 status = %s, want normal", got[0].Status)
	}
	if got[1].NotesOrEmpty() != "stressed" {
		t.Errorf("notes = %q", got[1].NotesOrEmpty())
	}

	empty, err := d.UpsertHealthRecords(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty upsert = %v, %v", empty, err)
	}
}

func TestCreateConflict(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()
	signUp(t, d, "a@example.com")

	in := HealthRecordInput{Date: "2024-03-01", Status: models.StatusGood}
	if _, err := d.CreateHealthRecord(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := d.CreateHealthRecord(ctx, in)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestRecordsScopedToUser(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()

	signUp(t, d, "a@example.com")
	rec, err := d.CreateHealthRecord(ctx, HealthRecordInput{Date: "2024-03-01", Status: models.StatusGood})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = d.SignOut(ctx)

	signUp(t, d, "b@example.com")
	list, err := d.ListHealthRecords(ctx, RecordFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("user b sees %d of user a's records", len(list))
	}
	if _, err := d.GetHealthRecord(ctx, rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for another user's record, got %v", err)
	}
	if err := d.DeleteHealthRecord(ctx, rec.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found deleting another user's record, got %v", err)
	}
	// Same date is free for a different user.
	if _, err := d.CreateHealthRecord(ctx, HealthRecordInput{Date: "2024-03-01", Status: models.StatusBad}); err != nil {
		t.Errorf("create same date for user b: %v", err)
	}
}

func TestSignedOutOperations(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()

	_, err := d.ListHealthRecords(ctx, RecordFilter{})
	if !errors.Is(err, apperr.ErrAuthRequired) || !errors.Is(err, apperr.ErrDatabase) {
		t.Errorf("expected authentication required database error, got %v", err)
	}
	if _, err := d.GetSettings(ctx); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Errorf("settings: expected auth required, got %v", err)
	}
	if _, err := d.ListSchedules(ctx, ScheduleFilter{}); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Errorf("schedules: expected auth required, got %v", err)
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()
	signUp(t, d, "a@example.com")

	_, err := d.UpsertHealthRecords(ctx, []HealthRecordInput{
		{Date: "2024-03-01", Status: models.StatusGood},
		{Date: "2024-03-03", Status: models.StatusBad},
		{Date: "2024-03-02", Status: models.StatusGood},
		{Date: "2024-02-28", Status: models.StatusNormal},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tests := []struct {
		name   string
		filter RecordFilter
		want   []string
	}{
		{"all newest first", RecordFilter{}, []string{"2024-03-03", "2024-03-02", "2024-03-01", "2024-02-28"}},
		{"range", RecordFilter{From: "2024-03-01", To: "2024-03-02"}, []string{"2024-03-02", "2024-03-01"}},
		{"status", RecordFilter{Status: models.StatusGood}, []string{"2024-03-02", "2024-03-01"}},
		{"limit", RecordFilter{Limit: 1}, []string{"2024-03-03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ListHealthRecords(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Date != tt.want[i] {
					t.Errorf("position %d = %s, want %s", i, r.Date, tt.want[i])
				}
			}
		})
	}
}

func TestUpdateAndDelete(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()
	signUp(t, d, "a@example.com")

	rec, err := d.CreateHealthRecord(ctx, HealthRecordInput{Date: "2024-03-01", Status: models.StatusGood, Notes: strPtr("exercised")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := models.StatusBad
	updated, err := d.UpdateHealthRecord(ctx, rec.ID, HealthRecordPatch{Status: &bad, Notes: strPtr("")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != models.StatusBad || updated.Notes != nil {
		t.Errorf("update result = %+v", updated)
	}

	byDate, err := d.GetHealthRecordByDate(ctx, "2024-03-01")
	if err != nil || byDate == nil || byDate.ID != rec.ID {
		t.Fatalf("GetHealthRecordByDate = %v, %v", byDate, err)
	}

	if err := d.DeleteHealthRecord(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	missing, err := d.GetHealthRecordByDate(ctx, "2024-03-01")
	if err != nil || missing != nil {
		t.Errorf("expected nil after delete, got %v, %v", missing, err)
	}
	if _, err := d.UpdateHealthRecord(ctx, uuid.New(), HealthRecordPatch{Status: &bad}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing: expected not found, got %v", err)
	}
}

func TestResolveID(t *testing.T) {
	d := setupTestStore(t)
	ctx := context.Background()
	signUp(t, d, "a@example.com")

	rec, err := d.CreateHealthRecord(ctx, HealthRecordInput{Date: "2024-03-01", Status: models.StatusGood})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	id, err := d.ResolveID(ctx, TableHealthRecords, rec.ID.String()[:8])
	if err != nil {
		t.Fatalf("ResolveID: %v", err)
	}
	if id != rec.ID {
		t.Errorf("resolved %s, want %s", id, rec.ID)
	}

	if _, err := d.ResolveID(ctx, TableHealthRecords, "zzzzzzzz"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
