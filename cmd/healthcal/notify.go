// ABOUTME: CLI commands for notifications: the HTTP test endpoint and daily reminders.
// ABOUTME: Reminders follow the settings cache, so changes apply without a restart.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/notify"
	"github.com/harperreed/healthcal/internal/sync"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	notifyAddr  string
	notifyDelay time.Duration
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification server and daily reminders",
	Long: `Run the notification service.

COMMANDS:

  serve    HTTP API with POST /api/send-test-notification, plus the daily
           reminder for the signed-in account
  remind   Only the daily reminder, scheduled from your settings
  test     Send one test notification to the signed-in account

Notifications are written to the log; delivery is simulated.`,
}

var notifyServeCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Serve the notification API",
	Annotations: map[string]string{annotationWatch: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		notifier := &notify.LogNotifier{Logger: app.logger, Delay: notifyDelay}

		addr := notifyAddr
		if addr == "" {
			addr = app.cfg.GetNotifyAddr()
		}
		server := notify.NewServer(notifier, app.logger)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return server.ListenAndServe(ctx, addr) })
		g.Go(func() error { return runReminder(ctx, cmd, notifier) })
		return g.Wait()
	},
}

var notifyRemindCmd = &cobra.Command{
	Use:         "remind",
	Short:       "Run the daily reminder",
	Annotations: map[string]string{annotationWatch: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		notifier := &notify.LogNotifier{Logger: app.logger, Delay: notifyDelay}
		return runReminder(cmd.Context(), cmd, notifier)
	},
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification to yourself",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, err := app.auth.CurrentUser(ctx)
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.AuthRequired()
		}
		notifier := &notify.LogNotifier{Logger: app.logger, Delay: notifyDelay}
		if err := notifier.Send(ctx, notify.Notification{
			UserID:  user.ID.String(),
			Email:   user.Email,
			Subject: "Health Calendar App - Test Notification",
			Body:    "This is a test notification from healthcal.",
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent successfully (simulated).")
		return nil
	},
}

// runReminder keeps the reminder in step with the settings cache until ctx ends.
// Signed out, it idles until a session appears.
func runReminder(ctx context.Context, cmd *cobra.Command, n notify.Notifier) error {
	reminder := notify.NewReminder(n, app.logger, time.Local)
	reminder.Start()
	defer reminder.Stop()

	settings := sync.NewSettingsCache(app.store, app.settings, sync.WithLogger(app.logger))
	defer settings.Close()
	if err := settings.Start(ctx); err != nil {
		return err
	}

	sub := reminder.Follow(settings, app.auth.CurrentUser)
	defer sub.Unsubscribe()

	if next, ok := reminder.NextRun(time.Now()); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Next reminder at %s\n", next.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No reminder scheduled (notifications are off or you are signed out).")
	}

	<-ctx.Done()
	return nil
}

func init() {
	notifyServeCmd.Flags().StringVar(&notifyAddr, "addr", "", "listen address (default from config)")
	for _, c := range []*cobra.Command{notifyServeCmd, notifyRemindCmd, notifyTestCmd} {
		c.Flags().DurationVar(&notifyDelay, "delay", time.Second, "simulated delivery time")
	}
	notifyCmd.AddCommand(notifyServeCmd, notifyRemindCmd, notifyTestCmd)
	rootCmd.AddCommand(notifyCmd)
}
