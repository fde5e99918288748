// ABOUTME: CLI commands for user settings: show, set, and reset.
// ABOUTME: Only flags that are passed to 'set' are changed.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/spf13/cobra"
)

var (
	setFontSize      int
	setTheme         string
	setMonday        bool
	setNotifications bool
	setReminder      string
	setGoogle        bool
	setApple         bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change your settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := app.settings.Get(cmd.Context())
		if err != nil {
			return err
		}
		printSettings(cmd, s)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	Long: `Change one or more settings.

EXAMPLES:

  healthcal settings set --font-size 18
  healthcal settings set --theme dark --week-starts-monday
  healthcal settings set --notifications --reminder 08:30
  healthcal settings set --notifications=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		var (
			s   *models.UserSettings
			err error
		)
		changed := false

		if flags.Changed("font-size") {
			if s, err = app.settings.UpdateFontSize(ctx, setFontSize); err != nil {
				return err
			}
			changed = true
		}
		if flags.Changed("theme") {
			if s, err = app.settings.UpdateTheme(ctx, models.Theme(setTheme)); err != nil {
				return err
			}
			changed = true
		}
		if flags.Changed("week-starts-monday") {
			if s, err = app.settings.UpdateWeekStartsMonday(ctx, setMonday); err != nil {
				return err
			}
			changed = true
		}
		if flags.Changed("notifications") || flags.Changed("reminder") {
			enabled := setNotifications
			if !flags.Changed("notifications") {
				current, err := app.settings.Get(ctx)
				if err != nil {
					return err
				}
				enabled = current.NotificationsEnabled
			}
			if s, err = app.settings.UpdateNotifications(ctx, enabled, setReminder); err != nil {
				return err
			}
			changed = true
		}
		if flags.Changed("google-calendar") || flags.Changed("apple-calendar") {
			var google, apple *bool
			if flags.Changed("google-calendar") {
				google = &setGoogle
			}
			if flags.Changed("apple-calendar") {
				apple = &setApple
			}
			if s, err = app.settings.UpdateCalendarIntegration(ctx, google, apple); err != nil {
				return err
			}
			changed = true
		}

		if !changed {
			return fmt.Errorf("nothing to change (see 'healthcal settings set --help')")
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Settings updated"))
		printSettings(cmd, s)
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := app.settings.Reset(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✓ Settings reset"))
		printSettings(cmd, s)
		return nil
	},
}

func printSettings(cmd *cobra.Command, s *models.UserSettings) {
	out := cmd.OutOrStdout()
	onOff := func(b bool) string {
		if b {
			return color.GreenString("on")
		}
		return faint.Sprint("off")
	}
	fmt.Fprintf(out, "  %s %d\n", padRight("font size", 20), s.FontSize)
	fmt.Fprintf(out, "  %s %s\n", padRight("theme", 20), s.Theme)
	fmt.Fprintf(out, "  %s %s\n", padRight("week starts monday", 20), onOff(s.WeekStartsMonday))
	fmt.Fprintf(out, "  %s %s at %s\n", padRight("daily reminder", 20), onOff(s.NotificationsEnabled), hhmm(&s.ReminderTime))
	fmt.Fprintf(out, "  %s %s\n", padRight("google calendar", 20), onOff(s.GoogleCalendarConnected))
	fmt.Fprintf(out, "  %s %s\n", padRight("apple calendar", 20), onOff(s.AppleCalendarConnected))
}

func init() {
	f := settingsSetCmd.Flags()
	f.IntVar(&setFontSize, "font-size", models.DefaultFontSize, "font size (12-24)")
	f.StringVar(&setTheme, "theme", "", "light, dark, or system")
	f.BoolVar(&setMonday, "week-starts-monday", false, "start weeks on Monday")
	f.BoolVar(&setNotifications, "notifications", false, "enable the daily reminder")
	f.StringVar(&setReminder, "reminder", "", "reminder time (HH:MM)")
	f.BoolVar(&setGoogle, "google-calendar", false, "mark Google Calendar as connected")
	f.BoolVar(&setApple, "apple-calendar", false, "mark Apple Calendar as connected")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}
