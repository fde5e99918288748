// ABOUTME: Month calendar view colored by each day's health status.
// ABOUTME: Loads records, schedules, and settings through the sync caches.
package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/sync"
	"github.com/spf13/cobra"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar [YYYY-MM]",
	Aliases: []string{"cal"},
	Short:   "Show a month with each day's status",
	Long: `Show a month grid. Days are colored green (good), yellow (normal), or
red (bad); a * marks days with calendar entries. The week starts on Sunday
unless week_starts_monday is set.

EXAMPLES:

  healthcal calendar            # This month
  healthcal cal 2024-06         # June 2024`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		month := time.Now()
		if len(args) == 1 {
			t, err := time.ParseInLocation("2006-01", args[0], time.Local)
			if err != nil {
				return fmt.Errorf("invalid month %q (use YYYY-MM)", args[0])
			}
			month = t
		}

		ctx := cmd.Context()
		opts := []sync.Option{sync.WithLogger(app.logger)}
		records := sync.NewRecordsCache(app.store, app.records, opts...)
		defer records.Close()
		schedules := sync.NewSchedulesCache(app.store, app.schedules, opts...)
		defer schedules.Close()
		settings := sync.NewSettingsCache(app.store, app.settings, opts...)
		defer settings.Close()

		for _, start := range []func() error{
			func() error { return records.Start(ctx) },
			func() error { return schedules.Start(ctx) },
			func() error { return settings.Start(ctx) },
		} {
			if err := start(); err != nil {
				return err
			}
		}
		if records.UserID() == uuid.Nil {
			return fmt.Errorf("not signed in (run 'healthcal auth signin')")
		}

		monday := false
		if s := settings.State().Data; s != nil {
			monday = s.WeekStartsMonday
		}

		renderMonth(cmd.OutOrStdout(), month, monday, models.Today(), func(date string) dayInfo {
			info := dayInfo{Schedules: len(schedules.SchedulesByDate(date))}
			if rec := records.RecordByDate(date); rec != nil {
				info.Status = rec.Status
			}
			return info
		})

		first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.Local)
		last := first.AddDate(0, 1, -1)
		printMonthStats(cmd.OutOrStdout(), records.State().Data, models.FormatDate(first), models.FormatDate(last))
		return nil
	},
}

// dayInfo is what the grid shows for one date.
type dayInfo struct {
	Status    models.HealthStatus
	Schedules int
}

// renderMonth writes a month grid for month. Each cell is five columns:
// the day number, brackets around today, and * when entries exist.
func renderMonth(w io.Writer, month time.Time, weekStartsMonday bool, today string, lookup func(date string) dayInfo) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.Local)
	days := first.AddDate(0, 1, -1).Day()

	fmt.Fprintln(w, centered(first.Format("January 2006"), 35))

	names := []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}
	offset := int(first.Weekday())
	if weekStartsMonday {
		names = append(names[1:], names[0])
		offset = (offset + 6) % 7
	}
	var header strings.Builder
	for _, n := range names {
		header.WriteString(" " + n + "  ")
	}
	fmt.Fprintln(w, strings.TrimRight(header.String(), " "))

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", 5*offset))
	col := offset
	for d := 1; d <= days; d++ {
		date := models.FormatDate(first.AddDate(0, 0, d-1))
		info := lookup(date)

		left, right, mark := " ", " ", " "
		if date == today {
			left, right = "[", "]"
		}
		if info.Schedules > 0 {
			mark = "*"
		}
		num := fmt.Sprintf("%2d", d)
		if info.Status != "" {
			num = statusColor(info.Status).Sprint(num)
		}
		sb.WriteString(left + num + right + mark)

		col++
		if col == 7 && d != days {
			sb.WriteString("\n")
			col = 0
		}
	}
	for _, line := range strings.Split(sb.String(), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func printMonthStats(w io.Writer, recs []*models.HealthRecord, from, to string) {
	var inMonth []*models.HealthRecord
	for _, r := range recs {
		if r.Date >= from && r.Date <= to {
			inMonth = append(inMonth, r)
		}
	}
	if len(inMonth) == 0 {
		return
	}
	st := service.ComputeStats(inMonth)
	fmt.Fprintf(w, "\n%s %d (%d%%)  %s %d (%d%%)  %s %d (%d%%)\n",
		statusColor(models.StatusGood).Sprint("good"), st.Good, st.GoodPct,
		statusColor(models.StatusNormal).Sprint("normal"), st.Normal, st.NormalPct,
		statusColor(models.StatusBad).Sprint("bad"), st.Bad, st.BadPct)
}

func centered(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

func init() {
	rootCmd.AddCommand(calendarCmd)
}
