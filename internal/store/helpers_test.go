// ABOUTME: Shared test helpers for store tests.
// ABOUTME: Provides isolated temp-dir stores and signed-in users.
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/healthcal/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func setupTestStore(t *testing.T) *DB {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"), Options{})
}

func openTestStore(t *testing.T, path string, opts Options) *DB {
	t.Helper()
	opts.PasswordCost = bcrypt.MinCost
	d, err := Open(path, opts)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func signUp(t *testing.T, d *DB, email string) *models.Session {
	t.Helper()
	sess, err := d.SignUp(context.Background(), email, "secret123")
	if err != nil {
		t.Fatalf("SignUp(%s): %v", email, err)
	}
	return sess
}

func strPtr(s string) *string { return &s }

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
