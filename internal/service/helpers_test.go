// ABOUTME: Shared test helpers for service tests.
// ABOUTME: Opens a temp-dir store with a signed-in user.
package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func setupTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.Options{PasswordCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setupSignedIn opens a store and signs up email.
func setupSignedIn(t *testing.T, email string) *store.DB {
	t.Helper()
	db := setupTestStore(t)
	if _, err := db.SignUp(context.Background(), email, "secret123"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	return db
}

// requireField asserts err is a validation error naming field.
func requireField(t *testing.T, err error, field string) {
	t.Helper()
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var e *apperr.Error
	if !errors.As(err, &e) || e.Field != field {
		t.Fatalf("expected field %q, got %+v", field, e)
	}
}

func strPtr(s string) *string { return &s }
