// ABOUTME: Daily reminder scheduled with robfig/cron from the user's settings.
// ABOUTME: Rescheduled whenever the settings cache publishes a new snapshot.
package notify

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/harperreed/healthcal/internal/sync"
	"github.com/robfig/cron/v3"
)

const (
	reminderSubject = "Health Calendar App - Daily Reminder"
	reminderBody    = "How are you feeling today? Record your status in Health Calendar."
)

// Reminder sends one notification a day at the configured reminder time.
type Reminder struct {
	cron     *cron.Cron
	notifier Notifier
	logger   *log.Logger

	mu    gosync.Mutex
	entry cron.EntryID
	spec  string
}

// NewReminder creates a stopped Reminder in loc.
func NewReminder(n Notifier, logger *log.Logger, loc *time.Location) *Reminder {
	c := cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger}))
	return &Reminder{cron: c, notifier: n, logger: logger}
}

// Start runs the scheduler in the background.
func (r *Reminder) Start() { r.cron.Start() }

// Stop halts the scheduler and waits for a running reminder to finish.
func (r *Reminder) Stop() {
	<-r.cron.Stop().Done()
}

// SpecFor converts an HH:MM[:SS] reminder time to a daily cron spec.
func SpecFor(reminder string) (string, error) {
	clock, err := models.ParseClock(reminder)
	if err != nil {
		return "", err
	}
	t, _ := time.Parse("15:04:05", clock)
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// Apply schedules the reminder for user according to s. Disabled
// notifications, a nil user, or nil settings clear the schedule.
func (r *Reminder) Apply(user *models.User, s *models.UserSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entry != 0 {
		r.cron.Remove(r.entry)
		r.entry = 0
		r.spec = ""
	}
	if user == nil || s == nil || !s.NotificationsEnabled {
		r.logger.Debug("reminder cleared")
		return nil
	}

	spec, err := SpecFor(s.ReminderTime)
	if err != nil {
		return err
	}
	n := Notification{UserID: user.ID.String(), Email: user.Email, Subject: reminderSubject, Body: reminderBody}
	id, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.notifier.Send(ctx, n); err != nil {
			r.logger.Error("reminder failed", "user", n.UserID, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	r.entry = id
	r.spec = spec
	r.logger.Info("reminder scheduled", "user", user.Email, "at", s.ReminderTime)
	return nil
}

// Spec returns the active cron spec, or "" when no reminder is scheduled.
func (r *Reminder) Spec() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spec
}

// NextRun returns when the reminder fires next after t.
func (r *Reminder) NextRun(t time.Time) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entry == 0 {
		return time.Time{}, false
	}
	return r.cron.Entry(r.entry).Schedule.Next(t), true
}

// Follow reapplies the reminder whenever the settings cache changes.
// users resolves the signed-in user for the notification address.
func (r *Reminder) Follow(c *sync.SettingsCache, users func(context.Context) (*models.User, error)) store.Subscription {
	apply := func(st sync.State[*models.UserSettings]) {
		if st.Loading {
			return
		}
		user, err := users(context.Background())
		if err != nil {
			r.logger.Warn("reminder: no user", "err", err)
			user = nil
		}
		if err := r.Apply(user, st.Data); err != nil {
			r.logger.Error("reminder: apply settings", "err", err)
		}
	}
	apply(c.State())
	return c.OnChange(apply)
}

type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
