// ABOUTME: Tests for snapshot push, list, restore, and pruning.
// ABOUTME: Uses an in-memory KV in place of Charm Cloud.
package backup

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	readOnly bool
	syncs    int
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Set(k, v []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(k)] = append([]byte(nil), v...)
	return nil
}

func (m *memKV) Get(k []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[string(k)], nil
}

func (m *memKV) Delete(k []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(k))
	return nil
}

func (m *memKV) Keys() ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out, nil
}

func (m *memKV) Sync() error      { m.syncs++; return nil }
func (m *memKV) IsReadOnly() bool { return m.readOnly }
func (m *memKV) Close() error     { return nil }

func setup(t *testing.T) (*store.DB, *Service, *memKV) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.SignUp(context.Background(), "a@example.com", "secret123")
	require.NoError(t, err)

	mem := newMemKV()
	exp := service.NewExporter(service.NewHealthRecords(db), service.NewSchedules(db), service.NewSettings(db))
	return db, NewService(NewClient(mem, true), exp, db.CurrentUser), mem
}

func TestPushListRestore(t *testing.T) {
	db, svc, mem := setup(t)
	ctx := context.Background()
	records := service.NewHealthRecords(db)

	_, err := records.UpsertByDate(ctx, "2024-01-01", models.StatusGood, "")
	require.NoError(t, err)
	first, err := svc.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Records)
	assert.Positive(t, mem.syncs, "writes sync to the cloud")

	_, err = records.UpsertByDate(ctx, "2024-01-02", models.StatusBad, "")
	require.NoError(t, err)
	second, err := svc.Push(ctx)
	require.NoError(t, err)

	snaps, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, second.ID, snaps[0].ID, "newest first")
	assert.Equal(t, 2, snaps[0].Records)

	require.NoError(t, records.DeleteByDate(ctx, "2024-01-01"))
	require.NoError(t, records.DeleteByDate(ctx, "2024-01-02"))

	for i := 0; i < 2; i++ {
		res, err := svc.Restore(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Records)
	}
	all, err := records.List(ctx, store.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "restoring twice does not duplicate records")
}

func TestSnapshotsScopedToUser(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Push(ctx)
	require.NoError(t, err)

	require.NoError(t, db.SignOut(ctx))
	_, err = svc.List(ctx)
	require.Error(t, err)

	_, err = db.SignUp(ctx, "b@example.com", "secret123")
	require.NoError(t, err)
	snaps, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestDeleteAndPrune(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		s, err := svc.Push(ctx)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	require.NoError(t, svc.Delete(ctx, ids[0]))
	assert.Error(t, svc.Delete(ctx, ids[0]), "already deleted")

	removed, err := svc.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snaps, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, ids[3], snaps[0].ID)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	_, svc, mem := setup(t)
	mem.readOnly = true

	_, err := svc.Push(context.Background())
	assert.ErrorIs(t, err, ErrReadOnly)
}
