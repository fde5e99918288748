// ABOUTME: Maps SQLite driver errors to store error codes and the taxonomy.
// ABOUTME: Also provides bounded retry for transient busy errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/harperreed/healthcal/internal/apperr"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	retryAttempts = 4
	retryBase     = 25 * time.Millisecond
)

// rawErr builds a taxonomy error from a store code.
func rawErr(code, msg string) error {
	return apperr.Decode(&apperr.RawError{Code: code, Message: msg})
}

// decode converts driver errors into taxonomy errors. Taxonomy errors pass through.
func decode(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Decode(&apperr.RawError{Code: apperr.CodeNotFound, Message: "no rows returned", Err: err})
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.From(err)
	}

	raw := &apperr.RawError{Message: err.Error(), Err: err}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			raw.Code = apperr.CodeUniqueViolation
		case code&0xff == sqlite3.SQLITE_BUSY || code&0xff == sqlite3.SQLITE_LOCKED:
			raw.Code = apperr.CodeBusy
		case code&0xff == sqlite3.SQLITE_READONLY || code&0xff == sqlite3.SQLITE_PERM || code&0xff == sqlite3.SQLITE_AUTH:
			raw.Code = apperr.CodePermissionDenied
		}
	}
	return apperr.Decode(raw)
}

// withRetry runs fn, retrying with backoff while it fails with a busy error.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		err = fn()
		if err == nil || !apperr.Retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return apperr.From(ctx.Err())
		case <-time.After(retryBase << attempt):
		}
	}
	return err
}
