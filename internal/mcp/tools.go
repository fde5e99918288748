// ABOUTME: MCP tool implementations for health records, schedules, and settings.
// ABOUTME: Each handler delegates to the entity services and reports taxonomy messages.
package mcp

import (
	"context"
	"fmt"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_health",
		Description: "Record the health status (good, normal, bad) for a day, replacing any existing entry",
	}, s.handleRecordHealth)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "cycle_health",
		Description: "Advance a day's status good -> normal -> bad -> cleared",
	}, s.handleCycleHealth)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_records",
		Description: "List health records newest first, optionally filtered by date range or status",
	}, s.handleListRecords)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_stats",
		Description: "Count good, normal and bad days with rounded percentages",
	}, s.handleGetStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_record",
		Description: "Delete a health record by ID prefix or by date",
	}, s.handleDeleteRecord)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_schedule",
		Description: "Create a calendar entry; omit times for an all-day entry",
	}, s.handleAddSchedule)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_schedules",
		Description: "List calendar entries ordered by date and start time",
	}, s.handleListSchedules)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_schedule",
		Description: "Delete a calendar entry by ID prefix",
	}, s.handleDeleteSchedule)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_settings",
		Description: "Show the user's settings, creating defaults on first use",
	}, s.handleGetSettings)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_settings",
		Description: "Change font size, theme, week start, or reminder settings",
	}, s.handleUpdateSettings)
}

// Tool input/output types

type recordHealthInput struct {
	Date   string `json:"date,omitempty" jsonschema:"Day to record (YYYY-MM-DD), defaults to today"`
	Status string `json:"status" jsonschema:"One of good, normal, bad"`
	Notes  string `json:"notes,omitempty" jsonschema:"Optional notes"`
}

type dateInput struct {
	Date string `json:"date,omitempty" jsonschema:"Day (YYYY-MM-DD), defaults to today"`
}

type recordOutput struct {
	ID      string `json:"id,omitempty"`
	Date    string `json:"date"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

type listRecordsInput struct {
	From   string `json:"from,omitempty" jsonschema:"First day (YYYY-MM-DD)"`
	To     string `json:"to,omitempty" jsonschema:"Last day (YYYY-MM-DD)"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 30)"`
}

type rangeInput struct {
	From string `json:"from,omitempty" jsonschema:"First day (YYYY-MM-DD)"`
	To   string `json:"to,omitempty" jsonschema:"Last day (YYYY-MM-DD)"`
}

type deleteRecordInput struct {
	ID   string `json:"id,omitempty" jsonschema:"Record ID or prefix"`
	Date string `json:"date,omitempty" jsonschema:"Delete the record for this day instead"`
}

type addScheduleInput struct {
	Title       string `json:"title" jsonschema:"Entry title"`
	Date        string `json:"date" jsonschema:"Start day (YYYY-MM-DD)"`
	EndDate     string `json:"end_date,omitempty" jsonschema:"Last day for multi-day entries"`
	StartTime   string `json:"start_time,omitempty" jsonschema:"Start time (HH:MM)"`
	EndTime     string `json:"end_time,omitempty" jsonschema:"End time (HH:MM)"`
	Description string `json:"description,omitempty" jsonschema:"Optional description"`
}

type scheduleOutput struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

type listSchedulesInput struct {
	From   string `json:"from,omitempty" jsonschema:"First day (YYYY-MM-DD)"`
	To     string `json:"to,omitempty" jsonschema:"Last day (YYYY-MM-DD)"`
	Source string `json:"source,omitempty" jsonschema:"Filter by calendar source (manual, google, ics)"`
}

type deleteScheduleInput struct {
	ID string `json:"id" jsonschema:"Schedule ID or prefix"`
}

type updateSettingsInput struct {
	FontSize             *int   `json:"font_size,omitempty" jsonschema:"Font size between 12 and 24"`
	Theme                string `json:"theme,omitempty" jsonschema:"light, dark, or system"`
	WeekStartsMonday     *bool  `json:"week_starts_monday,omitempty" jsonschema:"Start weeks on Monday"`
	NotificationsEnabled *bool  `json:"notifications_enabled,omitempty" jsonschema:"Enable the daily reminder"`
	ReminderTime         string `json:"reminder_time,omitempty" jsonschema:"Reminder time (HH:MM)"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// toolError turns a service error into the user-facing taxonomy message.
func toolError(action string, err error) error {
	return fmt.Errorf("failed to %s: %s", action, apperr.Message(err))
}

func orToday(date string) string {
	if date == "" {
		return models.Today()
	}
	return date
}

// Tool handlers

func (s *Server) handleRecordHealth(ctx context.Context, req *mcp.CallToolRequest, input recordHealthInput) (*mcp.CallToolResult, recordOutput, error) {
	date := orToday(input.Date)
	rec, err := s.svc.Records.UpsertByDate(ctx, date, models.HealthStatus(input.Status), input.Notes)
	if err != nil {
		return nil, recordOutput{}, toolError("record health", err)
	}

	return nil, recordOutput{
		ID:      rec.ID.String()[:8],
		Date:    rec.Date,
		Status:  string(rec.Status),
		Message: fmt.Sprintf("Recorded %s for %s (ID: %s)", rec.Status, rec.Date, rec.ID.String()[:8]),
	}, nil
}

func (s *Server) handleCycleHealth(ctx context.Context, req *mcp.CallToolRequest, input dateInput) (*mcp.CallToolResult, recordOutput, error) {
	date := orToday(input.Date)
	rec, err := s.svc.Records.CycleStatus(ctx, date)
	if err != nil {
		return nil, recordOutput{}, toolError("cycle health", err)
	}
	if rec == nil {
		return nil, recordOutput{Date: date, Message: fmt.Sprintf("Cleared %s", date)}, nil
	}

	return nil, recordOutput{
		ID:      rec.ID.String()[:8],
		Date:    rec.Date,
		Status:  string(rec.Status),
		Message: fmt.Sprintf("%s is now %s", rec.Date, rec.Status),
	}, nil
}

func (s *Server) handleListRecords(ctx context.Context, req *mcp.CallToolRequest, input listRecordsInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = 30
	}

	recs, err := s.svc.Records.List(ctx, store.RecordFilter{
		From:   input.From,
		To:     input.To,
		Status: models.HealthStatus(input.Status),
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, nil, toolError("list records", err)
	}

	if len(recs) == 0 {
		return nil, map[string]interface{}{"message": "No health records found."}, nil
	}

	return nil, map[string]interface{}{"records": recs}, nil
}

func (s *Server) handleGetStats(ctx context.Context, req *mcp.CallToolRequest, input rangeInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.svc.Records.Stats(ctx, input.From, input.To)
	if err != nil {
		return nil, nil, toolError("compute stats", err)
	}
	return nil, stats, nil
}

func (s *Server) handleDeleteRecord(ctx context.Context, req *mcp.CallToolRequest, input deleteRecordInput) (*mcp.CallToolResult, simpleOutput, error) {
	switch {
	case input.ID != "":
		id, err := s.svc.Records.DeleteByPrefix(ctx, input.ID)
		if err != nil {
			return nil, simpleOutput{}, toolError("delete record", err)
		}
		return nil, simpleOutput{Message: fmt.Sprintf("Deleted record: %s", id.String()[:8])}, nil
	case input.Date != "":
		if err := s.svc.Records.DeleteByDate(ctx, input.Date); err != nil {
			return nil, simpleOutput{}, toolError("delete record", err)
		}
		return nil, simpleOutput{Message: fmt.Sprintf("Deleted record for %s", input.Date)}, nil
	default:
		return nil, simpleOutput{}, fmt.Errorf("either id or date is required")
	}
}

func (s *Server) handleAddSchedule(ctx context.Context, req *mcp.CallToolRequest, input addScheduleInput) (*mcp.CallToolResult, scheduleOutput, error) {
	sched, err := s.svc.Schedules.Create(ctx, store.ScheduleInput{
		Title:       input.Title,
		Description: optional(input.Description),
		Date:        input.Date,
		EndDate:     optional(input.EndDate),
		StartTime:   optional(input.StartTime),
		EndTime:     optional(input.EndTime),
	})
	if err != nil {
		return nil, scheduleOutput{}, toolError("add schedule", err)
	}

	return nil, scheduleOutput{
		ID:      sched.ID.String()[:8],
		Title:   sched.Title,
		Date:    sched.Date,
		Message: fmt.Sprintf("Added %q on %s (ID: %s)", sched.Title, sched.Date, sched.ID.String()[:8]),
	}, nil
}

func (s *Server) handleListSchedules(ctx context.Context, req *mcp.CallToolRequest, input listSchedulesInput) (*mcp.CallToolResult, any, error) {
	scheds, err := s.svc.Schedules.List(ctx, store.ScheduleFilter{
		From:   input.From,
		To:     input.To,
		Source: input.Source,
	})
	if err != nil {
		return nil, nil, toolError("list schedules", err)
	}

	if len(scheds) == 0 {
		return nil, map[string]interface{}{"message": "No schedules found."}, nil
	}

	return nil, map[string]interface{}{"schedules": scheds}, nil
}

func (s *Server) handleDeleteSchedule(ctx context.Context, req *mcp.CallToolRequest, input deleteScheduleInput) (*mcp.CallToolResult, simpleOutput, error) {
	id, err := s.svc.Schedules.DeleteByPrefix(ctx, input.ID)
	if err != nil {
		return nil, simpleOutput{}, toolError("delete schedule", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted schedule: %s", id.String()[:8]),
	}, nil
}

func (s *Server) handleGetSettings(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	settings, err := s.svc.Settings.Get(ctx)
	if err != nil {
		return nil, nil, toolError("load settings", err)
	}
	return nil, settings, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, req *mcp.CallToolRequest, input updateSettingsInput) (*mcp.CallToolResult, any, error) {
	current, err := s.svc.Settings.Get(ctx)
	if err != nil {
		return nil, nil, toolError("load settings", err)
	}

	next := current.Clone()
	if input.FontSize != nil {
		next.FontSize = *input.FontSize
	}
	if input.Theme != "" {
		next.Theme = models.Theme(input.Theme)
	}
	if input.WeekStartsMonday != nil {
		next.WeekStartsMonday = *input.WeekStartsMonday
	}
	if input.NotificationsEnabled != nil {
		next.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.ReminderTime != "" {
		next.ReminderTime = input.ReminderTime
	}

	updated, err := s.svc.Settings.Apply(ctx, next)
	if err != nil {
		return nil, nil, toolError("update settings", err)
	}
	return nil, updated, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
