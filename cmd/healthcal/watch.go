// ABOUTME: Live view that prints record, schedule, and settings changes as they happen.
// ABOUTME: Picks up writes from other healthcal processes through the file watcher.
package main

import (
	"fmt"
	"io"
	gosync "sync"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/harperreed/healthcal/internal/sync"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes to your data live",
	Long: `Keep your records, schedules, and settings loaded and print a line each time
they change, including changes made by other healthcal commands. Stop with
Ctrl-C.`,
	Annotations: map[string]string{annotationWatch: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := &lockedWriter{w: cmd.OutOrStdout()}

		opts := []sync.Option{sync.WithLogger(app.logger)}
		records := sync.NewRecordsCache(app.store, app.records, opts...)
		defer records.Close()
		schedules := sync.NewSchedulesCache(app.store, app.schedules, opts...)
		defer schedules.Close()
		settings := sync.NewSettingsCache(app.store, app.settings, opts...)
		defer settings.Close()

		subs := []store.Subscription{
			records.OnChange(func(st sync.State[[]*models.HealthRecord]) {
				if st.Phase() != sync.PhaseReady {
					reportPhase(out, "records", st.Phase(), st.Err)
					return
				}
				s := records.Stats()
				fmt.Fprintf(out, "records    %d days (good %d%%, normal %d%%, bad %d%%)\n", s.Total, s.GoodPct, s.NormalPct, s.BadPct)
			}),
			schedules.OnChange(func(st sync.State[[]*models.Schedule]) {
				if st.Phase() != sync.PhaseReady {
					reportPhase(out, "schedules", st.Phase(), st.Err)
					return
				}
				fmt.Fprintf(out, "schedules  %d entries, %d today\n", len(st.Data), len(schedules.SchedulesByDate(models.Today())))
			}),
			settings.OnChange(func(st sync.State[*models.UserSettings]) {
				if st.Phase() != sync.PhaseReady || st.Data == nil {
					reportPhase(out, "settings", st.Phase(), st.Err)
					return
				}
				fmt.Fprintf(out, "settings   theme %s, font %d, reminder %s\n", st.Data.Theme, st.Data.FontSize, hhmm(&st.Data.ReminderTime))
			}),
		}
		defer func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		}()

		for _, start := range []func() error{
			func() error { return records.Start(ctx) },
			func() error { return schedules.Start(ctx) },
			func() error { return settings.Start(ctx) },
		} {
			if err := start(); err != nil {
				return err
			}
		}

		fmt.Fprintln(out, faint.Sprint("watching for changes (Ctrl-C to stop)"))
		<-ctx.Done()
		return nil
	},
}

func reportPhase(w io.Writer, name string, phase sync.Phase, err error) {
	switch phase {
	case sync.PhaseError:
		fmt.Fprintf(w, "%s %s\n", padRight(name, 10), statusColor(models.StatusBad).Sprint(err))
	case sync.PhaseIdle:
		fmt.Fprintf(w, "%s %s\n", padRight(name, 10), faint.Sprint("signed out"))
	}
}

// lockedWriter serializes writes from cache listeners on different goroutines.
type lockedWriter struct {
	mu gosync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
