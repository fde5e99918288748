// ABOUTME: Error taxonomy shared by the store, services, and caches.
// ABOUTME: Every failure that crosses a boundary is one of four kinds.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindValidation  Kind = "validation"
	KindDatabase    Kind = "database"
	KindApplication Kind = "application"
)

// Codes reported by the record store.
const (
	CodeSessionMissing     = "auth_session_missing"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeSignupDisabled     = "signup_disabled"
	CodeEmailInvalid       = "email_address_invalid"
	CodePasswordTooShort   = "password_too_short"
	CodeUserExists         = "user_already_exists"
	CodeInvalidAPIKey      = "invalid_api_key"
	CodeOAuthFailed        = "oauth_failed"
	CodeNotFound           = "PGRST116"
	CodeUniqueViolation    = "23505"
	CodePermissionDenied   = "42501"
	CodeAuthRequired       = "auth_required"
	CodeBusy               = "SQLITE_BUSY"
)

// Sentinels for errors.Is matching by kind or by well-known code.
var (
	ErrAuth        = errors.New("auth error")
	ErrValidation  = errors.New("validation error")
	ErrDatabase    = errors.New("database error")
	ErrApplication = errors.New("application error")

	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAuthRequired     = errors.New("authentication required")
)

var kindSentinels = map[Kind]error{
	KindAuth:        ErrAuth,
	KindValidation:  ErrValidation,
	KindDatabase:    ErrDatabase,
	KindApplication: ErrApplication,
}

var codeSentinels = map[string]error{
	CodeNotFound:         ErrNotFound,
	CodeUniqueViolation:  ErrConflict,
	CodePermissionDenied: ErrPermissionDenied,
	CodeAuthRequired:     ErrAuthRequired,
}

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Code    string // store code, when one was reported
	Field   string // offending input field, for validation errors
	Message string
	Err     error // underlying cause, never shown to users
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels and the well-known code sentinels.
func (e *Error) Is(target error) bool {
	if target == kindSentinels[e.Kind] {
		return true
	}
	if e.Code != "" && target == codeSentinels[e.Code] {
		return true
	}
	return false
}

// Auth returns an authentication error.
func Auth(code, msg string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: msg}
}

// Validation returns an input validation error for field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// Database returns a persistence error.
func Database(code, msg string) *Error {
	return &Error{Kind: KindDatabase, Code: code, Message: msg}
}

// Application returns an unclassified application error.
func Application(msg string) *Error {
	return &Error{Kind: KindApplication, Message: msg}
}

// NotFound returns the database error reported when a row does not exist.
func NotFound() *Error {
	return Database(CodeNotFound, "data not found")
}

// Conflict returns the database error reported on a uniqueness violation.
func Conflict() *Error {
	return Database(CodeUniqueViolation, "data already exists")
}

// PermissionDenied returns the database error reported on an access violation.
func PermissionDenied() *Error {
	return Database(CodePermissionDenied, "no permission to access the database")
}

// AuthRequired is returned by data operations attempted while signed out.
func AuthRequired() *Error {
	return Database(CodeAuthRequired, "authentication required")
}

// Wrap attaches a cause to e and returns it.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// RawError is the loosely typed error shape reported by the record store.
type RawError struct {
	Code    string
	Message string
	Err     error
}

func (r *RawError) Error() string {
	if r.Code == "" {
		return r.Message
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func (r *RawError) Unwrap() error {
	return r.Err
}

// Decode maps a raw store error to exactly one taxonomy error.
func Decode(raw *RawError) *Error {
	if raw == nil {
		return nil
	}
	var e *Error
	switch raw.Code {
	case CodeSessionMissing:
		e = Auth(raw.Code, "authentication session missing, please sign in again")
	case CodeInvalidCredentials:
		e = Auth(raw.Code, "incorrect email address or password")
	case CodeEmailNotConfirmed:
		e = Auth(raw.Code, "email address has not been confirmed")
	case CodeSignupDisabled:
		e = Auth(raw.Code, "sign-up is currently disabled")
	case CodeEmailInvalid:
		e = Auth(raw.Code, "enter a valid email address")
	case CodePasswordTooShort:
		e = Auth(raw.Code, "password must be at least 6 characters")
	case CodeUserExists:
		e = Auth(raw.Code, "an account with this email already exists")
	case CodeInvalidAPIKey:
		e = Auth(raw.Code, "invalid API key for this store")
	case CodeOAuthFailed:
		e = Auth(raw.Code, "sign-in with provider failed")
	case CodeNotFound:
		e = NotFound()
	case CodeUniqueViolation:
		e = Conflict()
	case CodePermissionDenied:
		e = PermissionDenied()
	case CodeAuthRequired:
		e = AuthRequired()
	case CodeBusy:
		e = Database(raw.Code, "database is busy, try again")
	default:
		if raw.Message != "" {
			e = Database(raw.Code, "database error: "+raw.Message)
		} else {
			e = Database(raw.Code, "unexpected error occurred")
		}
	}
	e.Err = raw
	return e
}

// From maps any error to the taxonomy. It is idempotent.
func From(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var raw *RawError
	if errors.As(err, &raw) {
		return Decode(raw)
	}
	if errors.Is(err, context.Canceled) {
		return Application("operation canceled").Wrap(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Application("operation timed out").Wrap(err)
	}
	return Application("unexpected error occurred").Wrap(err)
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unexpected error occurred"
}

// KindOf returns the kind of err after mapping it to the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(From(err), &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether err is a transient store failure worth retrying.
// Auth and validation failures are never retried.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		var raw *RawError
		if errors.As(err, &raw) {
			return raw.Code == CodeBusy
		}
		return false
	}
	return e.Kind == KindDatabase && e.Code == CodeBusy
}
