// ABOUTME: Tests for export and import.
// ABOUTME: Round-trips a user's data through each format into a second account.
package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

func newTestExporter(st store.Store) *Exporter {
	return NewExporter(NewHealthRecords(st), NewSchedules(st), NewSettings(st))
}

func seedUser(t *testing.T, db *store.DB) {
	t.Helper()
	ctx := context.Background()
	records := NewHealthRecords(db)
	if _, err := records.UpsertByDate(ctx, "2024-01-01", models.StatusGood, "slept, well"); err != nil {
		t.Fatalf("UpsertByDate: %v", err)
	}
	if _, err := records.UpsertByDate(ctx, "2024-01-02", models.StatusBad, ""); err != nil {
		t.Fatalf("UpsertByDate: %v", err)
	}
	if _, err := NewSchedules(db).Create(ctx, store.ScheduleInput{Title: "Yoga", Date: "2024-01-03", StartTime: strPtr("18:00")}); err != nil {
		t.Fatalf("Create schedule: %v", err)
	}
	if _, err := NewSettings(db).UpdateTheme(ctx, models.ThemeDark); err != nil {
		t.Fatalf("UpdateTheme: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			db := setupSignedIn(t, "a@example.com")
			ctx := context.Background()
			seedUser(t, db)

			var buf bytes.Buffer
			if err := newTestExporter(db).Export(ctx, &buf, format); err != nil {
				t.Fatalf("Export: %v", err)
			}

			if err := db.SignOut(ctx); err != nil {
				t.Fatalf("SignOut: %v", err)
			}
			if _, err := db.SignUp(ctx, "b@example.com", "secret123"); err != nil {
				t.Fatalf("SignUp: %v", err)
			}

			data := buf.String()
			exp := newTestExporter(db)
			for i := 0; i < 2; i++ {
				res, err := exp.Import(ctx, strings.NewReader(data), format)
				if err != nil {
					t.Fatalf("Import #%d: %v", i, err)
				}
				if res.Records != 2 || !res.SettingsRestored {
					t.Errorf("Import #%d result = %+v", i, res)
				}
			}

			snap, err := exp.Snapshot(ctx)
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if len(snap.Records) != 2 {
				t.Errorf("expected 2 records after double import, got %d", len(snap.Records))
			}
			if len(snap.Schedules) != 1 {
				t.Errorf("expected 1 schedule after double import, got %d", len(snap.Schedules))
			}
			if snap.Settings == nil || snap.Settings.Theme != models.ThemeDark {
				t.Errorf("settings not restored: %+v", snap.Settings)
			}
		})
	}
}

func TestExportCSV(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	ctx := context.Background()
	seedUser(t, db)

	var buf bytes.Buffer
	if err := newTestExporter(db).Export(ctx, &buf, FormatCSV); err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "date,status,notes,created_at,updated_at" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(buf.String(), `"slept, well"`) {
		t.Error("notes with commas not quoted")
	}

	res, err := newTestExporter(db).Import(ctx, strings.NewReader(buf.String()), FormatCSV)
	if err != nil {
		t.Fatalf("Import csv: %v", err)
	}
	if res.Records != 2 {
		t.Errorf("expected 2 records imported, got %d", res.Records)
	}
}

func TestExportMarkdown(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	seedUser(t, db)

	var buf bytes.Buffer
	if err := newTestExporter(db).Export(context.Background(), &buf, FormatMarkdown); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2024-01-01", "Yoga"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	_, err := newTestExporter(db).Import(context.Background(), strings.NewReader("{}"), "xml")
	requireField(t, err, "format")
}

func TestImportRejectsBadRecord(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	doc := `{"health_records":[{"date":"2024-01-01","status":"amazing"}]}`
	_, err := newTestExporter(db).Import(context.Background(), strings.NewReader(doc), FormatJSON)
	requireField(t, err, "status")
}
