// ABOUTME: Google Calendar import: OAuth config, token persistence, and event listing.
// ABOUTME: Events from the primary calendar become schedules with source "google".
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// Source is the calendar source recorded on imported schedules.
	Source = "google"

	primaryCalendarID = "primary"
	userInfoURL       = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Credentials identify the OAuth client registered with Google.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether a client id and secret are present.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OAuthConfig returns the OAuth2 config for read-only calendar access.
func OAuthConfig(c Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}
}

// SignInProvider returns a store OAuth provider that signs users in with
// their Google account email.
func SignInProvider(c Credentials) store.OAuthProvider {
	cfg := OAuthConfig(c)
	cfg.Scopes = []string{"openid", "email"}
	return store.OAuthProvider{Config: cfg, UserInfoURL: userInfoURL}
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Client lists events from a user's primary calendar.
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Client authorized by tok. Extra options are passed to
// the calendar service and override the token source when they set a client.
func NewClient(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, opts ...option.ClientOption) (*Client, error) {
	if tok != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx, tok))}, opts...)
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Events returns schedule inputs for events starting between from and to.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]store.ScheduleInput, error) {
	call := c.svc.Events.List(primaryCalendarID).
		ShowDeleted(false).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339))

	var out []store.ScheduleInput
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, ev := range page.Items {
			if in, ok := ToInput(ev); ok {
				out = append(out, in)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// ToInput converts a Google event to a schedule input. Cancelled events and
// events without a start are skipped.
func ToInput(ev *calendar.Event) (store.ScheduleInput, bool) {
	if ev == nil || ev.Status == "cancelled" || ev.Start == nil {
		return store.ScheduleInput{}, false
	}

	in := store.ScheduleInput{
		Title:          strings.TrimSpace(ev.Summary),
		CalendarSource: Source,
	}
	if in.Title == "" {
		in.Title = "(no title)"
	}
	if ev.Description != "" {
		d := ev.Description
		in.Description = &d
	}
	if ev.Id != "" {
		id := ev.Id
		in.ExternalID = &id
	}

	if ev.Start.Date != "" {
		in.Date = ev.Start.Date
		in.IsAllDay = true
		// End.Date is exclusive.
		if ev.End != nil && ev.End.Date != "" {
			if end, err := models.ParseDate(ev.End.Date); err == nil {
				if last := models.FormatDate(end.AddDate(0, 0, -1)); last > in.Date {
					in.EndDate = &last
				}
			}
		}
		return in, true
	}

	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return store.ScheduleInput{}, false
	}
	start = start.In(time.Local)
	in.Date = models.FormatDate(start)
	st := start.Format("15:04:05")
	in.StartTime = &st

	if ev.End != nil && ev.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			end = end.In(time.Local)
			et := end.Format("15:04:05")
			in.EndTime = &et
			if d := models.FormatDate(end); d != in.Date {
				in.EndDate = &d
			}
		}
	}
	return in, true
}

// Sync replaces the user's Google schedules with the events between from and to.
func (c *Client) Sync(ctx context.Context, schedules *service.Schedules, from, to time.Time) ([]*models.Schedule, error) {
	inputs, err := c.Events(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return schedules.SyncFromExternal(ctx, Source, inputs)
}
