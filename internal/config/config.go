// ABOUTME: healthcal configuration: JSON file with environment overrides.
// ABOUTME: Also persists the signed-in session so CLI invocations share it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/harperreed/healthcal/internal/store"
)

const (
	appDir            = "healthcal"
	DefaultNotifyAddr = "127.0.0.1:8787"
	DefaultLogLevel   = "info"
)

// Config stores healthcal configuration. Environment variables take
// precedence over values from the config file.
type Config struct {
	// StoreURL locates the record store. Accepts a path or sqlite:// URL and
	// supports ~ expansion. Defaults to the XDG data directory.
	StoreURL string `json:"store_url,omitempty" env:"HEALTHCAL_STORE_URL"`

	// APIKey is the store's public key. An empty key skips the check.
	APIKey string `json:"api_key,omitempty" env:"HEALTHCAL_API_KEY"`

	GoogleClientID     string `json:"google_client_id,omitempty" env:"HEALTHCAL_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `json:"google_client_secret,omitempty" env:"HEALTHCAL_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `json:"google_redirect_url,omitempty" env:"HEALTHCAL_GOOGLE_REDIRECT_URL"`

	LogLevel string `json:"log_level,omitempty" env:"HEALTHCAL_LOG_LEVEL"`
	LogFile  string `json:"log_file,omitempty" env:"HEALTHCAL_LOG_FILE"`

	NotifyAddr string `json:"notify_addr,omitempty" env:"HEALTHCAL_NOTIFY_ADDR"`
	CharmHost  string `json:"charm_host,omitempty" env:"HEALTHCAL_CHARM_HOST"`
}

// GetStorePath returns the database path with ~ expanded.
func (c *Config) GetStorePath() string {
	if c.StoreURL == "" {
		return store.DefaultDBPath()
	}
	return ExpandPath(strings.TrimPrefix(c.StoreURL, "sqlite://"))
}

// GetLogLevel returns the configured log level, defaulting to info.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}

// GetLogFile returns the log file path with ~ expanded, or "".
func (c *Config) GetLogFile() string {
	return ExpandPath(c.LogFile)
}

// GetNotifyAddr returns the notification server listen address.
func (c *Config) GetNotifyAddr() string {
	if c.NotifyAddr == "" {
		return DefaultNotifyAddr
	}
	return c.NotifyAddr
}

// GetGoogleRedirectURL returns the OAuth callback URL.
func (c *Config) GetGoogleRedirectURL() string {
	if c.GoogleRedirectURL == "" {
		return "http://" + c.GetNotifyAddr() + "/oauth/callback"
	}
	return c.GoogleRedirectURL
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// Dir returns the healthcal config directory.
func Dir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, appDir)
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// SessionPath returns where the CLI keeps its session.
func SessionPath() string {
	return filepath.Join(Dir(), "session.json")
}

// GoogleTokenPath returns where the Google Calendar token is kept.
func GoogleTokenPath() string {
	return filepath.Join(Dir(), "google-token.json")
}

// Load reads the config file and applies environment overrides.
func Load() (*Config, error) {
	return LoadFile(GetConfigPath(), nil)
}

// LoadFile reads path and applies overrides from environ, or from the
// process environment when environ is nil.
func LoadFile(path string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := env.Parse(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	return c.SaveFile(GetConfigPath())
}

// SaveFile writes config to path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Session is the persisted sign-in state.
type Session struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoadSession reads the session at path. A missing file returns nil, nil.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &s, nil
}

// SaveSession writes s to path, readable only by the owner.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ClearSession removes the session file. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
