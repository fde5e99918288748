// ABOUTME: SQLite-backed Store implementation lifecycle and shared helpers.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO required).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"golang.org/x/oauth2"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultSessionTTL is how long a sign-in stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Options configures Open.
type Options struct {
	// APIKey is the project key. The first open stamps it; later opens must match.
	APIKey string

	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration

	// DisableSignup rejects new accounts with signup_disabled.
	DisableSignup bool

	// PasswordCost is the bcrypt cost; zero uses bcrypt.DefaultCost.
	PasswordCost int

	// OAuth maps provider names to their OAuth configuration.
	OAuth map[string]OAuthProvider

	// Watch enables the file watcher so writes from other processes reach subscribers.
	Watch bool

	Logger *log.Logger
}

// OAuthProvider is an OAuth2 sign-in provider.
type OAuthProvider struct {
	Config      *oauth2.Config
	UserInfoURL string // returns JSON with an "email" field
}

// DB is the SQLite implementation of Store.
type DB struct {
	db     *sql.DB
	dbPath string
	opts   Options
	logger *log.Logger
	clock  *clock
	feed   *feed

	watcher *Watcher

	mu         sync.RWMutex
	session    *models.Session
	listeners  map[uint64]func(AuthEvent)
	nextID     uint64
	oauthState map[string]string
}

var _ Store = (*DB)(nil)

// Open opens or creates a store at the given path.
func Open(dbPath string, opts Options) (*DB, error) {
	dbPath = strings.TrimPrefix(dbPath, "sqlite://")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	d := &DB{
		db:         db,
		dbPath:     dbPath,
		opts:       opts,
		logger:     logger,
		clock:      &clock{},
		listeners:  make(map[uint64]func(AuthEvent)),
		oauthState: make(map[string]string),
	}

	if err := d.db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	if err := d.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	if err := d.checkAPIKey(opts.APIKey); err != nil {
		_ = db.Close()
		return nil, err
	}

	d.feed, err = newFeed(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("start change feed: %w", err)
	}

	if opts.Watch {
		d.watcher, err = NewWatcher(dbPath, d.feed.poll, logger)
		if err != nil {
			d.feed.close()
			_ = db.Close()
			return nil, fmt.Errorf("start watcher: %w", err)
		}
	}

	return d, nil
}

// DataDir returns the default data directory following XDG spec.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "healthcal")
}

// DefaultDBPath returns the default database path following XDG spec.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "healthcal.db")
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// Close stops realtime delivery and closes the database connection.
func (d *DB) Close() error {
	if d.watcher != nil {
		_ = d.watcher.Close()
	}
	if d.feed != nil {
		d.feed.close()
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// pragmas apply to every pooled connection, so they travel in the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	q := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		q = append(q, "_pragma="+p)
	}
	return path + "?" + strings.Join(q, "&")
}

// checkAPIKey stamps the project key on first use and verifies it afterwards.
// An empty key skips the check.
func (d *DB) checkAPIKey(key string) error {
	if key == "" {
		return nil
	}
	var stored string
	err := d.db.QueryRow(`SELECT value FROM project WHERE key = 'api_key'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		if _, err := d.db.Exec(`INSERT INTO project (key, value) VALUES ('api_key', ?)`, key); err != nil {
			return fmt.Errorf("stamp api key: %w", decode(err))
		}
		return nil
	case err != nil:
		return fmt.Errorf("read api key: %w", decode(err))
	case stored != key:
		return rawErr(apperr.CodeInvalidAPIKey, "api key does not match this store")
	}
	return nil
}

// inTx runs fn in a transaction, retrying on busy, and publishes logged changes after commit.
func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := withRetry(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return decode(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return decode(err)
		}
		return decode(tx.Commit())
	})
	if err != nil {
		return err
	}
	d.feed.poll()
	return nil
}

// logChange appends a realtime change inside tx.
func (d *DB) logChange(ctx context.Context, tx *sql.Tx, table Table, op Op, userID, recordID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO changes (table_name, op, user_id, record_id, at) VALUES (?, ?, ?, ?, ?)`,
		string(table), string(op), userID, recordID, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("log change: %w", err)
	}
	return nil
}

// clock hands out strictly increasing timestamps so updated_at always advances.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
