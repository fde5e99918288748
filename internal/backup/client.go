// ABOUTME: Charm KV wrapper for cloud snapshots of a user's health data.
// ABOUTME: Keys are snapshot:<user>:<ulid>, so listing by prefix is chronological.
package backup

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultDBName is the Charm KV database holding snapshots.
	DefaultDBName = "healthcal"

	snapshotPrefix = "snapshot:"
)

// ErrReadOnly is returned for writes while another process holds the KV lock.
var ErrReadOnly = errors.New("cannot write: backup database is locked by another process")

// KV is the subset of *kv.KV used for snapshots.
type KV interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	IsReadOnly() bool
	Close() error
}

// Client stores snapshots in a KV database.
type Client struct {
	kv       KV
	autoSync bool
	mu       sync.RWMutex
}

// Open opens the Charm KV database name. A non-empty host overrides the
// Charm server.
func Open(name, host string) (*Client, error) {
	if host != "" {
		if err := os.Setenv("CHARM_HOST", host); err != nil {
			return nil, err
		}
	}
	db, err := kv.OpenWithDefaultsFallback(name)
	if err != nil {
		return nil, fmt.Errorf("open charm kv: %w", err)
	}
	c := NewClient(db, true)
	if !db.IsReadOnly() {
		_ = db.Sync()
	}
	return c, nil
}

// NewClient wraps an open KV. With autoSync every write is pushed immediately.
func NewClient(store KV, autoSync bool) *Client {
	return &Client{kv: store, autoSync: autoSync}
}

// Close closes the KV database.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Close()
}

// Sync pulls and pushes pending changes.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

func (c *Client) set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := c.kv.Set([]byte(key), data); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

func (c *Client) delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := c.kv.Delete([]byte(key)); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

func (c *Client) get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get([]byte(key))
}

// keysWithPrefix returns matching keys in ascending order.
func (c *Client) keysWithPrefix(prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}
	var out []string
	p := []byte(prefix)
	for _, k := range keys {
		if bytes.HasPrefix(k, p) {
			out = append(out, string(k))
		}
	}
	sort.Strings(out)
	return out, nil
}

// keyByIDPrefix resolves a snapshot id prefix under userPrefix to one key.
func (c *Client) keyByIDPrefix(userPrefix, idPrefix string) (string, error) {
	keys, err := c.keysWithPrefix(userPrefix + strings.ToUpper(idPrefix))
	if err != nil {
		return "", err
	}
	switch len(keys) {
	case 0:
		return "", fmt.Errorf("snapshot not found: %s", idPrefix)
	case 1:
		return keys[0], nil
	default:
		return "", fmt.Errorf("ambiguous prefix %s: matches %d snapshots", idPrefix, len(keys))
	}
}
