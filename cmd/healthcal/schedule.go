// ABOUTME: CLI commands for calendar entries: add, edit, list, delete, ICS import, Google sync.
// ABOUTME: Imported entries are grouped by calendar source and replaced on each sync.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/config"
	"github.com/harperreed/healthcal/internal/gcal"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var (
	schedEndDate     string
	schedStart       string
	schedEnd         string
	schedDescription string
	schedTitle       string
	schedDate        string

	schedListFrom   string
	schedListTo     string
	schedListSource string

	icsSource string

	googleDays int
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Aliases: []string{"sched"},
	Short:   "Manage calendar entries",
	Long: `Manage calendar entries shown alongside your health records.

COMMANDS:

  add             Create an entry (all-day unless --start is given)
  edit            Change an entry's title, date, or times
  list            List entries ordered by date and start time
  delete          Delete an entry by ID prefix
  import-ics      Import an .ics file, replacing earlier imports from it
  connect-google  Authorize read-only access to Google Calendar
  sync-google     Replace imported Google events with the current ones`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <title> [date]",
	Short: "Create a calendar entry",
	Long: `Create a calendar entry. Without --start the entry is all-day.

EXAMPLES:

  healthcal schedule add "Dentist" 2024-06-03 --start 09:00 --end 09:30
  healthcal schedule add "Vacation" 2024-07-01 --end-date 2024-07-07
  healthcal schedule add "Call mom" today`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var day string
		if len(args) == 2 {
			day = args[1]
		}
		date, err := parseDay(day)
		if err != nil {
			return err
		}
		sched, err := app.schedules.Create(cmd.Context(), store.ScheduleInput{
			Title:       args[0],
			Description: optional(schedDescription),
			Date:        date,
			EndDate:     optional(schedEndDate),
			StartTime:   optional(schedStart),
			EndTime:     optional(schedEnd),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Added %q", sched.Title))
		printScheduleLine(cmd, sched)
		return nil
	},
}

var scheduleEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a calendar entry",
	Long: `Change selected fields of an entry. Pass an empty string to clear a time.

EXAMPLES:

  healthcal schedule edit abc12345 --title "Dentist (moved)" --date 2024-06-04
  healthcal schedule edit abc12345 --start "" --end ""   # make it all-day`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := app.store.ResolveID(ctx, store.TableSchedules, args[0])
		if err != nil {
			return err
		}

		var p store.SchedulePatch
		flags := cmd.Flags()
		if flags.Changed("title") {
			p.Title = &schedTitle
		}
		if flags.Changed("date") {
			date, err := parseDay(schedDate)
			if err != nil {
				return err
			}
			p.Date = &date
		}
		if flags.Changed("end-date") {
			p.EndDate = &schedEndDate
		}
		if flags.Changed("start") {
			p.StartTime = &schedStart
		}
		if flags.Changed("end") {
			p.EndTime = &schedEnd
		}
		if flags.Changed("description") {
			p.Description = &schedDescription
		}

		sched, err := app.schedules.Update(ctx, id, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Updated %q", sched.Title))
		printScheduleLine(cmd, sched)
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List calendar entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		scheds, err := app.schedules.List(cmd.Context(), store.ScheduleFilter{
			From:   schedListFrom,
			To:     schedListTo,
			Source: schedListSource,
		})
		if err != nil {
			return err
		}
		if len(scheds) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No schedules found.")
			return nil
		}
		for _, s := range scheds {
			printScheduleLine(cmd, s)
		}
		return nil
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a calendar entry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := app.schedules.DeleteByPrefix(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Deleted schedule %s", shortID(id)))
		return nil
	},
}

var scheduleImportICSCmd = &cobra.Command{
	Use:   "import-ics <file>",
	Short: "Import events from an .ics file",
	Long: `Import events from an iCalendar file. Entries previously imported under the
same --source are replaced, so re-importing an updated file is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		scheds, err := app.schedules.ImportICS(cmd.Context(), icsSource, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Imported %d events", len(scheds)))
		return nil
	},
}

var scheduleConnectGoogleCmd = &cobra.Command{
	Use:   "connect-google",
	Short: "Authorize read-only Google Calendar access",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := googleCredentials(app.cfg)
		if !creds.Configured() {
			return errors.New("google_client_id and google_client_secret are not configured")
		}
		ctx := cmd.Context()
		cfg := gcal.OAuthConfig(creds)

		state := uuid.NewString()
		fmt.Fprintln(cmd.OutOrStdout(), "Open this URL to authorize Google Calendar:")
		fmt.Fprintln(cmd.OutOrStdout(), "  "+cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

		res, err := gcal.AwaitCallback(ctx, creds.RedirectURL)
		if err != nil {
			return err
		}
		if res.State != state {
			return errors.New("oauth state mismatch")
		}
		tok, err := cfg.Exchange(ctx, res.Code)
		if err != nil {
			return fmt.Errorf("token exchange failed: %w", err)
		}
		if err := gcal.SaveToken(config.GoogleTokenPath(), tok); err != nil {
			return err
		}

		connected := true
		if _, err := app.settings.UpdateCalendarIntegration(ctx, &connected, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Google Calendar connected"))
		return nil
	},
}

var scheduleSyncGoogleCmd = &cobra.Command{
	Use:   "sync-google",
	Short: "Replace imported Google events with the current ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := gcal.LoadToken(config.GoogleTokenPath())
		if errors.Is(err, fs.ErrNotExist) {
			return errors.New("google calendar is not connected (run 'healthcal schedule connect-google')")
		}
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, err := gcal.NewClient(ctx, gcal.OAuthConfig(googleCredentials(app.cfg)), tok)
		if err != nil {
			return err
		}

		now := time.Now()
		scheds, err := client.Sync(ctx, app.schedules, now.AddDate(0, 0, -googleDays), now.AddDate(0, 0, googleDays))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Synced %d Google events", len(scheds)))
		return nil
	},
}

func printScheduleLine(cmd *cobra.Command, s *models.Schedule) {
	when := s.Date
	if s.EndDate != nil && *s.EndDate != s.Date {
		when += ".." + *s.EndDate
	}
	times := "all day"
	if !s.IsAllDay {
		times = hhmm(s.StartTime)
		if s.EndTime != nil {
			times += "-" + hhmm(s.EndTime)
		}
	}
	source := ""
	if s.CalendarSource != models.SourceManual {
		source = faint.Sprintf(" [%s]", s.CalendarSource)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s%s\n",
		faint.Sprint(shortID(s.ID)),
		when,
		padRight(times, 11),
		s.Title,
		source)
}

// hhmm trims a stored HH:MM:SS time to HH:MM.
func hhmm(p *string) string {
	v := deref(p)
	if len(v) > 5 {
		return v[:5]
	}
	return v
}

func init() {
	for _, c := range []*cobra.Command{scheduleAddCmd, scheduleEditCmd} {
		c.Flags().StringVar(&schedEndDate, "end-date", "", "last day for multi-day entries")
		c.Flags().StringVar(&schedStart, "start", "", "start time (HH:MM)")
		c.Flags().StringVar(&schedEnd, "end", "", "end time (HH:MM)")
		c.Flags().StringVar(&schedDescription, "description", "", "description")
	}
	scheduleEditCmd.Flags().StringVar(&schedTitle, "title", "", "new title")
	scheduleEditCmd.Flags().StringVar(&schedDate, "date", "", "new date")

	scheduleListCmd.Flags().StringVar(&schedListFrom, "from", "", "first day (YYYY-MM-DD)")
	scheduleListCmd.Flags().StringVar(&schedListTo, "to", "", "last day (YYYY-MM-DD)")
	scheduleListCmd.Flags().StringVar(&schedListSource, "source", "", "filter by calendar source")

	scheduleImportICSCmd.Flags().StringVar(&icsSource, "source", "", "calendar source name (default ics)")
	scheduleSyncGoogleCmd.Flags().IntVar(&googleDays, "days", 90, "days before and after today to sync")

	scheduleCmd.AddCommand(scheduleAddCmd, scheduleEditCmd, scheduleListCmd, scheduleDeleteCmd,
		scheduleImportICSCmd, scheduleConnectGoogleCmd, scheduleSyncGoogleCmd)
	rootCmd.AddCommand(scheduleCmd)
}
