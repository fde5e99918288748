// ABOUTME: Shared test helpers for cache tests.
// ABOUTME: Provides temp-dir stores, services, and a store that can stall fetches.
package sync

import (
	"context"
	"path/filepath"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func signUp(t *testing.T, db *store.DB, email string) *models.Session {
	t.Helper()
	sess, err := db.SignUp(context.Background(), email, "secret123")
	require.NoError(t, err)
	return sess
}

func signIn(t *testing.T, db *store.DB, email string) {
	t.Helper()
	_, err := db.SignIn(context.Background(), email, "secret123")
	require.NoError(t, err)
}

// stallingStore holds ListHealthRecords open until released. The result is
// read before stalling, so it belongs to whoever was signed in at the start.
type stallingStore struct {
	store.Store
	stall   atomic.Bool
	started chan struct{}
	release chan struct{}
	once    gosync.Once
}

func newStallingStore(st store.Store) *stallingStore {
	return &stallingStore{Store: st, started: make(chan struct{}), release: make(chan struct{})}
}

func (s *stallingStore) ListHealthRecords(ctx context.Context, f store.RecordFilter) ([]*models.HealthRecord, error) {
	recs, err := s.Store.ListHealthRecords(context.Background(), f)
	if s.stall.Load() {
		s.once.Do(func() { close(s.started) })
		<-s.release
	}
	return recs, err
}

// silentStore has no realtime feed, so only explicit refreshes reach the cache.
type silentStore struct {
	*stallingStore
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

func (silentStore) Subscribe(store.Table, uuid.UUID, func(store.Change)) store.Subscription {
	return noopSubscription{}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, msg)
}
