// ABOUTME: CLI commands for daily health records: record, cycle, list, delete, stats, sample.
// ABOUTME: Dates accept YYYY-MM-DD, today, or yesterday.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/spf13/cobra"
)

var (
	recordDate  string
	recordNotes string

	listFrom   string
	listTo     string
	listStatus string
	listLimit  int

	statsFrom string
	statsTo   string
	statsDays int

	sampleDays int
)

var recordCmd = &cobra.Command{
	Use:       "record <good|normal|bad>",
	Aliases:   []string{"r"},
	Short:     "Record how a day went",
	ValidArgs: []string{"good", "normal", "bad"},
	Long: `Record the health status for a day. Recording the same day again replaces
the earlier entry.

EXAMPLES:

  healthcal record good
  healthcal record bad --date yesterday --notes "migraine"
  healthcal record normal --date 2024-06-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDay(recordDate)
		if err != nil {
			return err
		}
		rec, err := app.records.UpsertByDate(cmd.Context(), date, models.HealthStatus(args[0]), recordNotes)
		if err != nil {
			return err
		}
		printRecordLine(cmd, "✓ Recorded", rec)
		return nil
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle [date]",
	Short: "Advance a day's status: good -> normal -> bad -> cleared",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		date, err := parseDay(arg)
		if err != nil {
			return err
		}
		rec, err := app.records.CycleStatus(cmd.Context(), date)
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Cleared %s", date))
			return nil
		}
		printRecordLine(cmd, "↻", rec)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List health records",
	Long: `List health records, newest first.

OUTPUT FORMAT:

  Each line shows: ID  DATE  STATUS  (NOTES)

  The ID is an 8-character prefix you can use with 'healthcal delete'.

EXAMPLES:

  healthcal list                         # Last 30 records
  healthcal list --status bad            # Only bad days
  healthcal list --from 2024-06-01 -n 0  # Everything since June`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := app.records.List(cmd.Context(), store.RecordFilter{
			From:   listFrom,
			To:     listTo,
			Status: models.HealthStatus(listStatus),
			Limit:  listLimit,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No health records found.")
			return nil
		}
		for _, r := range recs {
			notes := ""
			if n := r.NotesOrEmpty(); n != "" {
				notes = faint.Sprintf(" (%s)", truncate(n, 40))
			}
			fmt.Fprintf(out, "%s %s %s%s\n",
				faint.Sprint(shortID(r.ID)),
				r.Date,
				statusColor(r.Status).Sprint(padRight(string(r.Status), 6)),
				notes)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id|date>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a health record",
	Long: `Delete a health record by ID prefix or by date.

EXAMPLES:

  healthcal delete abc12345      # By the ID shown in 'healthcal list'
  healthcal delete 2024-06-01    # By date
  healthcal rm yesterday`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if date, err := parseDay(args[0]); err == nil {
			rec, err := app.records.GetByDate(ctx, date)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no record for %s", date)
			}
			if err := app.records.Delete(ctx, rec.ID); err != nil {
				return err
			}
			printRecordLine(cmd, "✗ Deleted", rec)
			return nil
		}

		id, err := app.records.DeleteByPrefix(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Deleted %s", shortID(id)))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show good, normal, and bad day percentages",
	Long: `Count good, normal, and bad days. Each percentage is rounded on its own,
so they may not add up to exactly 100.

EXAMPLES:

  healthcal stats                 # All time
  healthcal stats --days 30       # The last 30 days
  healthcal stats --from 2024-01-01 --to 2024-06-30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := statsFrom, statsTo
		if statsDays > 0 {
			from, to = daysBack(time.Now(), statsDays)
		}
		stats, err := app.records.Stats(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		printStats(cmd, stats)
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Fill recent days with random sample records",
	Long: `Generate random records for the last N days, ending today. Existing records
in that range are overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := app.records.GenerateSampleData(cmd.Context(), sampleDays)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Generated %d sample records", len(recs)))
		return nil
	},
}

func printRecordLine(cmd *cobra.Command, verb string, rec *models.HealthRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s %s\n", verb, rec.Date, statusColor(rec.Status).Sprint(rec.Status))
	if n := rec.NotesOrEmpty(); n != "" {
		fmt.Fprintf(out, "  %s %s\n", faint.Sprint(shortID(rec.ID)), n)
	} else {
		fmt.Fprintf(out, "  %s\n", faint.Sprint(shortID(rec.ID)))
	}
}

func printStats(cmd *cobra.Command, s service.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Days recorded: %d\n", s.Total)
	rows := []struct {
		status models.HealthStatus
		count  int
		pct    int
	}{
		{models.StatusGood, s.Good, s.GoodPct},
		{models.StatusNormal, s.Normal, s.NormalPct},
		{models.StatusBad, s.Bad, s.BadPct},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %s %4d  %3d%%\n", statusColor(r.status).Sprint(padRight(string(r.status), 6)), r.count, r.pct)
	}
}

func init() {
	recordCmd.Flags().StringVarP(&recordDate, "date", "d", "", "day to record (default today)")
	recordCmd.Flags().StringVar(&recordNotes, "notes", "", "notes for the day")

	listCmd.Flags().StringVar(&listFrom, "from", "", "first day (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "last day (YYYY-MM-DD)")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 30, "max number of results (0 for all)")

	statsCmd.Flags().StringVar(&statsFrom, "from", "", "first day (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "last day (YYYY-MM-DD)")
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "only the last N days")

	sampleCmd.Flags().IntVar(&sampleDays, "days", 90, "number of days to fill")

	rootCmd.AddCommand(recordCmd, cycleCmd, listCmd, deleteCmd, statsCmd, sampleCmd)
}
