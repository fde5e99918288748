// ABOUTME: Tests for the schedule service and calendar imports.
// ABOUTME: Covers validation, ordering, external sync, and .ics parsing.
package service

import (
	"context"
	"strings"
	"testing"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

func TestScheduleCreateValidation(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)

	tests := []struct {
		name  string
		in    store.ScheduleInput
		field string
	}{
		{"missing title", store.ScheduleInput{Title: "  ", Date: "2024-01-01"}, "title"},
		{"bad date", store.ScheduleInput{Title: "x", Date: "01/01/2024"}, "date"},
		{"end before start date", store.ScheduleInput{Title: "x", Date: "2024-01-05", EndDate: strPtr("2024-01-04")}, "end_date"},
		{"bad start time", store.ScheduleInput{Title: "x", Date: "2024-01-05", StartTime: strPtr("25:00")}, "start_time"},
		{"end before start time", store.ScheduleInput{Title: "x", Date: "2024-01-05", StartTime: strPtr("10:00"), EndTime: strPtr("09:00")}, "end_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			requireField(t, err, tt.field)
		})
	}
}

func TestScheduleCreateNormalizes(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)

	sched, err := svc.Create(context.Background(), store.ScheduleInput{
		Title:     "Dentist",
		Date:      "2024-01-05",
		StartTime: strPtr("9:30"),
		EndTime:   strPtr("10:15"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sched.IsAllDay {
		t.Error("timed schedule stored as all-day")
	}
	if sched.StartTime == nil || *sched.StartTime != "09:30:00" {
		t.Errorf("expected start 09:30:00, got %v", sched.StartTime)
	}
	if sched.CalendarSource != models.SourceManual {
		t.Errorf("expected manual source, got %s", sched.CalendarSource)
	}
}

func TestScheduleListOrdering(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)
	ctx := context.Background()

	for _, in := range []store.ScheduleInput{
		{Title: "late", Date: "2024-01-02", StartTime: strPtr("15:00")},
		{Title: "early", Date: "2024-01-02", StartTime: strPtr("08:00")},
		{Title: "allday", Date: "2024-01-02"},
		{Title: "yesterday", Date: "2024-01-01", StartTime: strPtr("23:00")},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create(%s): %v", in.Title, err)
		}
	}

	got, err := svc.ListByDateRange(ctx, "2024-01-01", "2024-01-02")
	if err != nil {
		t.Fatalf("ListByDateRange: %v", err)
	}
	var titles []string
	for _, s := range got {
		titles = append(titles, s.Title)
	}
	want := "yesterday,allday,early,late"
	if strings.Join(titles, ",") != want {
		t.Errorf("order = %v, want %s", titles, want)
	}

	day, err := svc.ListByDate(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(day) != 1 {
		t.Errorf("expected 1 schedule on 2024-01-01, got %d", len(day))
	}
}

func TestScheduleUpdateClearsTimes(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)
	ctx := context.Background()

	sched, err := svc.Create(ctx, store.ScheduleInput{Title: "Run", Date: "2024-01-01", StartTime: strPtr("07:00")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := svc.Update(ctx, sched.ID, store.SchedulePatch{StartTime: strPtr(""), Title: strPtr("Long run")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.StartTime != nil || !updated.IsAllDay {
		t.Errorf("expected all-day after clearing start, got %+v", updated)
	}
	if updated.Title != "Long run" {
		t.Errorf("expected title updated, got %s", updated.Title)
	}

	_, err = svc.Update(ctx, sched.ID, store.SchedulePatch{Title: strPtr("")})
	requireField(t, err, "title")
}

func TestSyncFromExternalReplacesSource(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)
	ctx := context.Background()

	if _, err := svc.Create(ctx, store.ScheduleInput{Title: "mine", Date: "2024-01-01"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := []store.ScheduleInput{
		{Title: "a", Date: "2024-01-01", ExternalID: strPtr("1")},
		{Title: "b", Date: "2024-01-02", ExternalID: strPtr("2")},
		{Title: "b again", Date: "2024-01-02", ExternalID: strPtr("2")},
	}
	got, err := svc.SyncFromExternal(ctx, "google", first)
	if err != nil {
		t.Fatalf("SyncFromExternal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected duplicates collapsed to 2, got %d", len(got))
	}

	second := []store.ScheduleInput{{Title: "c", Date: "2024-01-03", ExternalID: strPtr("3")}}
	if _, err := svc.SyncFromExternal(ctx, "google", second); err != nil {
		t.Fatalf("SyncFromExternal: %v", err)
	}

	google, err := svc.List(ctx, store.ScheduleFilter{Source: "google"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(google) != 1 || google[0].Title != "c" {
		t.Errorf("expected only c from google, got %+v", google)
	}
	manual, err := svc.List(ctx, store.ScheduleFilter{Source: models.SourceManual})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(manual) != 1 {
		t.Errorf("manual schedules touched by sync: %d", len(manual))
	}

	_, err = svc.SyncFromExternal(ctx, models.SourceManual, nil)
	requireField(t, err, "calendar_source")
}

func TestImportExternalUpdatesExisting(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)
	ctx := context.Background()

	in := []store.ScheduleInput{{Title: "standup", Date: "2024-01-01", ExternalID: strPtr("evt-1")}}
	created, updated, err := svc.ImportExternal(ctx, "apple", in)
	if err != nil || created != 1 || updated != 0 {
		t.Fatalf("first import: created=%d updated=%d err=%v", created, updated, err)
	}

	in[0].Title = "standup (moved)"
	in[0].Date = "2024-01-02"
	created, updated, err = svc.ImportExternal(ctx, "apple", in)
	if err != nil || created != 0 || updated != 1 {
		t.Fatalf("second import: created=%d updated=%d err=%v", created, updated, err)
	}

	all, err := svc.List(ctx, store.ScheduleFilter{Source: "apple"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Date != "2024-01-02" || all[0].Title != "standup (moved)" {
		t.Errorf("unexpected schedules after re-import: %+v", all)
	}
}

const testICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:allday-1
DTSTAMP:20240101T000000Z
SUMMARY:Vacation
DTSTART;VALUE=DATE:20240110
DTEND;VALUE=DATE:20240113
END:VEVENT
BEGIN:VEVENT
UID:timed-1
DTSTAMP:20240101T000000Z
SUMMARY:Checkup
DESCRIPTION:Bring forms
DTSTART:20240115T093000
DTEND:20240115T101500
END:VEVENT
BEGIN:VEVENT
UID:single-1
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240120
DTEND;VALUE=DATE:20240121
END:VEVENT
END:VCALENDAR
`

func TestParseICS(t *testing.T) {
	inputs, err := ParseICS(strings.NewReader(strings.ReplaceAll(testICS, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("expected 3 events, got %d", len(inputs))
	}

	vacation := inputs[0]
	if !vacation.IsAllDay || vacation.Date != "2024-01-10" || vacation.EndDate == nil || *vacation.EndDate != "2024-01-12" {
		t.Errorf("all-day event parsed wrong: %+v", vacation)
	}
	if vacation.ExternalID == nil || *vacation.ExternalID != "allday-1" {
		t.Errorf("expected UID as external id, got %v", vacation.ExternalID)
	}

	checkup := inputs[1]
	if checkup.IsAllDay || checkup.Date != "2024-01-15" {
		t.Errorf("timed event parsed wrong: %+v", checkup)
	}
	if checkup.StartTime == nil || *checkup.StartTime != "09:30:00" || checkup.EndTime == nil || *checkup.EndTime != "10:15:00" {
		t.Errorf("unexpected times: %v %v", checkup.StartTime, checkup.EndTime)
	}
	if checkup.Description == nil || *checkup.Description != "Bring forms" {
		t.Errorf("expected description, got %v", checkup.Description)
	}

	single := inputs[2]
	if single.EndDate != nil {
		t.Errorf("single-day event should have no end date, got %s", *single.EndDate)
	}
	if single.Title != "(no title)" {
		t.Errorf("expected placeholder title, got %q", single.Title)
	}
}

func TestImportICS(t *testing.T) {
	db := setupSignedIn(t, "a@example.com")
	svc := NewSchedules(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.ImportICS(ctx, "", strings.NewReader(testICS))
		if err != nil {
			t.Fatalf("ImportICS #%d: %v", i, err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 schedules, got %d", len(got))
		}
	}
	all, err := svc.List(ctx, store.ScheduleFilter{Source: SourceICS})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("re-import duplicated schedules: %d", len(all))
	}
}

func TestParseICSRejectsGarbage(t *testing.T) {
	_, err := ParseICS(strings.NewReader("not a calendar"))
	requireField(t, err, "file")
}
