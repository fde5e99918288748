// ABOUTME: Export and import of a user's health data.
// ABOUTME: Supports JSON, YAML, CSV (records only), and Markdown export formats.
package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

var csvHeader = []string{"date", "status", "notes", "created_at", "updated_at"}

// ExportData is the full export document.
type ExportData struct {
	Version    string                 `json:"version" yaml:"version"`
	ExportedAt time.Time              `json:"exported_at" yaml:"exported_at"`
	Tool       string                 `json:"tool" yaml:"tool"`
	Records    []*models.HealthRecord `json:"health_records" yaml:"health_records"`
	Schedules  []*models.Schedule     `json:"schedules,omitempty" yaml:"schedules,omitempty"`
	Settings   *models.UserSettings   `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// ImportResult counts what an import wrote.
type ImportResult struct {
	Records          int
	Schedules        int
	SettingsRestored bool
}

// Exporter moves a user's data in and out of files.
type Exporter struct {
	records   *HealthRecords
	schedules *Schedules
	settings  *Settings
}

// NewExporter creates an Exporter over the given services.
func NewExporter(records *HealthRecords, schedules *Schedules, settings *Settings) *Exporter {
	return &Exporter{records: records, schedules: schedules, settings: settings}
}

// Snapshot gathers everything the signed-in user owns.
func (e *Exporter) Snapshot(ctx context.Context) (*ExportData, error) {
	recs, err := e.records.List(ctx, store.RecordFilter{})
	if err != nil {
		return nil, err
	}
	scheds, err := e.schedules.List(ctx, store.ScheduleFilter{})
	if err != nil {
		return nil, err
	}
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "healthcal",
		Records:    recs,
		Schedules:  scheds,
		Settings:   settings,
	}, nil
}

// Export writes the user's data to w in format.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format string) error {
	data, err := e.Snapshot(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(data)
		if err == nil {
			err = enc.Close()
		}
	case FormatCSV:
		err = writeCSV(w, data.Records)
	case FormatMarkdown, "md":
		_, err = io.WriteString(w, renderMarkdown(data))
	default:
		return fail("export", apperr.Validation("format", fmt.Sprintf("unknown format %q", format)))
	}
	if err != nil {
		return fail("export", fmt.Errorf("write %s export: %w", format, err))
	}
	return nil
}

// Import reads an export from r and writes it for the signed-in user.
// Records are upserted by date, so importing the same file twice is harmless.
func (e *Exporter) Import(ctx context.Context, r io.Reader, format string) (*ImportResult, error) {
	var data ExportData
	var err error
	switch strings.ToLower(format) {
	case FormatJSON, "":
		err = json.NewDecoder(r).Decode(&data)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&data)
	case FormatCSV:
		data.Records, err = readCSV(r)
	default:
		return nil, fail("import", apperr.Validation("format", fmt.Sprintf("unknown format %q", format)))
	}
	if err != nil {
		return nil, fail("import", apperr.Validation("file", fmt.Sprintf("could not parse %s: %v", format, err)))
	}
	return e.Restore(ctx, &data)
}

// Restore writes data for the signed-in user, ignoring the ids and owner it carries.
func (e *Exporter) Restore(ctx context.Context, data *ExportData) (*ImportResult, error) {
	res := &ImportResult{}

	inputs := make([]store.HealthRecordInput, 0, len(data.Records))
	for _, rec := range data.Records {
		if err := validateDate("date", rec.Date); err != nil {
			return nil, fail("import", err)
		}
		if err := validateStatus(rec.Status); err != nil {
			return nil, fail("import", err)
		}
		inputs = append(inputs, store.HealthRecordInput{Date: rec.Date, Status: rec.Status, Notes: rec.Notes})
	}
	if len(inputs) > 0 {
		saved, err := e.records.store.UpsertHealthRecords(ctx, inputs)
		if err != nil {
			return nil, fail("import", err)
		}
		res.Records = len(saved)
	}

	n, err := e.schedules.restore(ctx, data.Schedules)
	if err != nil {
		return nil, err
	}
	res.Schedules = n

	if data.Settings != nil {
		if _, err := e.settings.Apply(ctx, data.Settings); err != nil {
			return nil, err
		}
		res.SettingsRestored = true
	}
	return res, nil
}

func writeCSV(w io.Writer, records []*models.HealthRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date,
			string(r.Status),
			r.NotesOrEmpty(),
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([]*models.HealthRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"date", "status"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	var out []*models.HealthRecord
	for _, row := range rows[1:] {
		rec := &models.HealthRecord{
			Date:   row[col["date"]],
			Status: models.HealthStatus(row[col["status"]]),
		}
		if i, ok := col["notes"]; ok && i < len(row) {
			rec.WithNotes(row[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func renderMarkdown(data *ExportData) string {
	var sb strings.Builder
	sb.WriteString("# Health Calendar\n\n")
	sb.WriteString(fmt.Sprintf("Exported %s\n\n", data.ExportedAt.Format("2006-01-02 15:04")))

	stats := ComputeStats(data.Records)
	sb.WriteString(fmt.Sprintf("**%d days recorded** · good %d%% · normal %d%% · bad %d%%\n\n",
		stats.Total, stats.GoodPct, stats.NormalPct, stats.BadPct))

	month := ""
	for _, r := range data.Records {
		if m := r.Date[:7]; m != month {
			month = m
			sb.WriteString(fmt.Sprintf("## %s\n\n| Date | Status | Notes |\n|------|--------|-------|\n", month))
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", r.Date, r.Status, r.NotesOrEmpty()))
	}

	if len(data.Schedules) > 0 {
		sb.WriteString("\n## Schedules\n\n")
		for _, s := range data.Schedules {
			when := "all day"
			if s.StartTime != nil {
				when = *s.StartTime
			}
			sb.WriteString(fmt.Sprintf("- %s %s: %s\n", s.Date, when, s.Title))
		}
	}
	return sb.String()
}
