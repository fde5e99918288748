// ABOUTME: Notification sink used by the test endpoint and daily reminders.
// ABOUTME: LogNotifier writes the message to the log and simulates delivery time.
package notify

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Notification is one message for one user.
type Notification struct {
	UserID  string
	Email   string
	Subject string
	Body    string
}

// Notifier delivers notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier logs notifications instead of delivering them.
type LogNotifier struct {
	Logger *log.Logger
	Delay  time.Duration
}

// Send logs n after waiting Delay, or returns early if ctx ends.
func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	l.Logger.Info("sending notification", "to", n.Email, "user", n.UserID, "subject", n.Subject)
	l.Logger.Debug("notification body", "body", n.Body)
	if l.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(l.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
