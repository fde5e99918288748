// ABOUTME: Root Cobra command for the healthcal CLI.
// ABOUTME: Opens config, logger, store, and session in PersistentPreRunE and closes them after.
package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/config"
	"github.com/harperreed/healthcal/internal/gcal"
	"github.com/harperreed/healthcal/internal/logging"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/spf13/cobra"
)

// annotationWatch marks commands that need writes from other processes.
const annotationWatch = "healthcal/watch"

// appContext holds everything a command needs for one invocation.
type appContext struct {
	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer
	store     *store.DB

	auth      *service.Auth
	records   *service.HealthRecords
	schedules *service.Schedules
	settings  *service.Settings
	exporter  *service.Exporter
}

var (
	app       *appContext
	logLevel  string
	storePath string
)

var rootCmd = &cobra.Command{
	Use:   "healthcal",
	Short: "Daily health tracking calendar",
	Long: `healthcal tracks how each day went (good, normal, or bad) alongside your
calendar, and syncs it with Google Calendar and ICS feeds.

QUICK START:

  $ healthcal auth signup you@example.com   # Create an account
  $ healthcal record good                   # Today was a good day
  $ healthcal record bad --date 2024-06-01 --notes "migraine"
  $ healthcal cycle                         # good -> normal -> bad -> cleared
  $ healthcal calendar                      # Month grid with statuses
  $ healthcal stats --days 30               # Good/normal/bad percentages

SCHEDULES:

  $ healthcal schedule add "Dentist" 2024-06-03 --start 09:00 --end 09:30
  $ healthcal schedule import-ics calendar.ics
  $ healthcal schedule connect-google       # One-time Google authorization
  $ healthcal schedule sync-google          # Replace imported Google events

DATA:

  $ healthcal export json -o backup.json
  $ healthcal import backup.json
  $ healthcal backup push                   # Encrypted snapshot to Charm Cloud

MCP INTEGRATION:

  Run 'healthcal mcp' to expose records, schedules, and settings to
  MCP-compatible assistants over stdio.

CONFIGURATION:

  ~/.config/healthcal/config.json, overridden by HEALTHCAL_* environment
  variables. The session is kept in ~/.config/healthcal/session.json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version", "install-skill", "completion":
			return nil
		}
		var err error
		app, err = openApp(cmd)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storePath, "db", "", "database path (overrides config)")
}

func openApp(cmd *cobra.Command) (*appContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if storePath != "" {
		cfg.StoreURL = storePath
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.GetLogLevel(),
		File:   cfg.GetLogFile(),
		Writer: cmd.ErrOrStderr(),
		Prefix: "healthcal",
	})
	if err != nil {
		return nil, err
	}
	apperr.SetLogger(logger)

	opts := store.Options{
		APIKey: cfg.APIKey,
		Watch:  cmd.Annotations[annotationWatch] == "true",
		Logger: logger,
	}
	if creds := googleCredentials(cfg); creds.Configured() {
		opts.OAuth = map[string]store.OAuthProvider{gcal.Source: gcal.SignInProvider(creds)}
	}

	db, err := store.Open(cfg.GetStorePath(), opts)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &appContext{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
		store:     db,
		auth:      service.NewAuth(db),
		records:   service.NewHealthRecords(db),
		schedules: service.NewSchedules(db),
		settings:  service.NewSettings(db),
	}
	a.exporter = service.NewExporter(a.records, a.schedules, a.settings)

	a.restoreSession(cmd)
	return a, nil
}

// restoreSession resumes the saved session. A stale session file is removed.
func (a *appContext) restoreSession(cmd *cobra.Command) {
	path := config.SessionPath()
	saved, err := config.LoadSession(path)
	if err != nil {
		a.logger.Warn("ignoring unreadable session", "err", err)
		return
	}
	if saved == nil {
		return
	}
	if _, err := a.auth.RestoreSession(cmd.Context(), saved.AccessToken); err != nil {
		a.logger.Debug("saved session rejected", "err", err)
		_ = config.ClearSession(path)
	}
}

// saveSession persists sess so later invocations stay signed in.
func (a *appContext) saveSession(sess *models.Session) error {
	return config.SaveSession(config.SessionPath(), &config.Session{
		AccessToken: sess.AccessToken,
		Email:       sess.User.Email,
		ExpiresAt:   sess.ExpiresAt,
	})
}

func closeApp() error {
	if app == nil {
		return nil
	}
	a := app
	app = nil

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	if err := a.logCloser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func googleCredentials(cfg *config.Config) gcal.Credentials {
	return gcal.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GetGoogleRedirectURL(),
	}
}
