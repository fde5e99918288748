// ABOUTME: Tests for configuration loading, env overrides, and sessions.
// ABOUTME: Uses temp directories and injected environments.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setXDG(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde prefix", "~/healthcal", filepath.Join(home, "healthcal")},
		{"absolute", "/tmp/healthcal.db", "/tmp/healthcal.db"},
		{"relative", "data/healthcal.db", "data/healthcal.db"},
		{"tilde in middle", "/tmp/~/x", "/tmp/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetStorePath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"tilde", "~/hc.db", filepath.Join(home, "hc.db")},
		{"sqlite url", "sqlite:///var/lib/hc.db", "/var/lib/hc.db"},
		{"plain", "/tmp/hc.db", "/tmp/hc.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{StoreURL: tt.url}
			if got := cfg.GetStorePath(); got != tt.want {
				t.Errorf("GetStorePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if cfg.GetStorePath() == "" {
		t.Error("expected a default store path")
	}
	if got := cfg.GetLogLevel(); got != DefaultLogLevel {
		t.Errorf("GetLogLevel() = %q", got)
	}
	if got := cfg.GetNotifyAddr(); got != DefaultNotifyAddr {
		t.Errorf("GetNotifyAddr() = %q", got)
	}
	if got := cfg.GetGoogleRedirectURL(); got != "http://"+DefaultNotifyAddr+"/oauth/callback" {
		t.Errorf("GetGoogleRedirectURL() = %q", got)
	}
	if got := cfg.GetLogFile(); got != "" {
		t.Errorf("GetLogFile() = %q", got)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), map[string]string{})
	if err != nil {
		t.Fatalf("LoadFile() with no config file should not error: %v", err)
	}
	if cfg.StoreURL != "" || cfg.APIKey != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	setXDG(t, t.TempDir())

	cfg := &Config{
		StoreURL:   "/tmp/hc.db",
		APIKey:     "pk_test",
		LogLevel:   "debug",
		NotifyAddr: "127.0.0.1:9999",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := LoadFile(GetConfigPath(), map[string]string{})
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := (&Config{StoreURL: "/from/file.db", LogLevel: "warn"}).SaveFile(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path, map[string]string{
		"HEALTHCAL_STORE_URL":        "/from/env.db",
		"HEALTHCAL_API_KEY":          "pk_env",
		"HEALTHCAL_GOOGLE_CLIENT_ID": "client-id",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreURL != "/from/env.db" {
		t.Errorf("StoreURL = %q, want env value", cfg.StoreURL)
	}
	if cfg.APIKey != "pk_env" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.GoogleClientID != "client-id" {
		t.Errorf("GoogleClientID = %q", cfg.GoogleClientID)
	}
	// Unset variables keep file values.
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want file value", cfg.LogLevel)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	setXDG(t, filepath.Join(tmpDir, "nonexistent"))

	if err := (&Config{LogLevel: "info"}).Save(); err != nil {
		t.Fatalf("Save() should create directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "nonexistent", "healthcal")); os.IsNotExist(err) {
		t.Error("expected config directory to be created")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("invalid json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, map[string]string{}); err == nil {
		t.Error("expected error for invalid JSON config")
	}
}

func TestPaths(t *testing.T) {
	tmpDir := t.TempDir()
	setXDG(t, tmpDir)

	if got, want := GetConfigPath(), filepath.Join(tmpDir, "healthcal", "config.json"); got != want {
		t.Errorf("GetConfigPath() = %q, want %q", got, want)
	}
	if got, want := SessionPath(), filepath.Join(tmpDir, "healthcal", "session.json"); got != want {
		t.Errorf("SessionPath() = %q, want %q", got, want)
	}
	if got, want := GoogleTokenPath(), filepath.Join(tmpDir, "healthcal", "google-token.json"); got != want {
		t.Errorf("GoogleTokenPath() = %q, want %q", got, want)
	}
}

func TestConfigJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(&Config{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("expected empty JSON object, got %s", string(data))
	}
}

func TestSessionLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	got, err := LoadSession(path)
	if err != nil || got != nil {
		t.Fatalf("LoadSession() on missing file = %v, %v", got, err)
	}

	want := &Session{
		AccessToken: "tok",
		Email:       "a@example.com",
		ExpiresAt:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SaveSession(path, want); err != nil {
		t.Fatalf("SaveSession() failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file mode = %o, want 600", perm)
	}

	got, err = LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != want.AccessToken || got.Email != want.Email || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("LoadSession() = %+v, want %+v", got, want)
	}

	if err := ClearSession(path); err != nil {
		t.Fatal(err)
	}
	if err := ClearSession(path); err != nil {
		t.Errorf("second ClearSession() should be a no-op: %v", err)
	}
}
