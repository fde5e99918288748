// ABOUTME: Tests for the error taxonomy decode and boundary mapping.
// ABOUTME: Every store code maps to exactly one kind with a fixed message.
package apperr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      *RawError
		wantKind Kind
		wantCode string
		wantMsg  string
	}{
		{"session missing", &RawError{Code: CodeSessionMissing}, KindAuth, CodeSessionMissing, "authentication session missing, please sign in again"},
		{"bad credentials", &RawError{Code: CodeInvalidCredentials}, KindAuth, CodeInvalidCredentials, "incorrect email address or password"},
		{"not confirmed", &RawError{Code: CodeEmailNotConfirmed}, KindAuth, CodeEmailNotConfirmed, "email address has not been confirmed"},
		{"signup disabled", &RawError{Code: CodeSignupDisabled}, KindAuth, CodeSignupDisabled, "sign-up is currently disabled"},
		{"invalid email", &RawError{Code: CodeEmailInvalid}, KindAuth, CodeEmailInvalid, "enter a valid email address"},
		{"short password", &RawError{Code: CodePasswordTooShort}, KindAuth, CodePasswordTooShort, "password must be at least 6 characters"},
		{"not found", &RawError{Code: CodeNotFound, Message: "0 rows"}, KindDatabase, CodeNotFound, "data not found"},
		{"unique", &RawError{Code: CodeUniqueViolation, Message: "dup"}, KindDatabase, CodeUniqueViolation, "data already exists"},
		{"permission", &RawError{Code: CodePermissionDenied}, KindDatabase, CodePermissionDenied, "no permission to access the database"},
		{"message only", &RawError{Message: "disk I/O error"}, KindDatabase, "", "database error: disk I/O error"},
		{"unknown code with message", &RawError{Code: "XX000", Message: "boom"}, KindDatabase, "XX000", "database error: boom"},
		{"empty", &RawError{}, KindDatabase, "", "unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Decode(tt.raw)
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", e.Kind, tt.wantKind)
			}
			if e.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", e.Code, tt.wantCode)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", e.Message, tt.wantMsg)
			}
			var raw *RawError
			if !errors.As(e, &raw) || raw != tt.raw {
				t.Error("expected raw error to be preserved as cause")
			}
		})
	}
}

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"auth kind", Auth(CodeInvalidCredentials, "x"), ErrAuth, true},
		{"auth not database", Auth(CodeInvalidCredentials, "x"), ErrDatabase, false},
		{"validation kind", Validation("date", "x"), ErrValidation, true},
		{"not found code", NotFound(), ErrNotFound, true},
		{"not found kind", NotFound(), ErrDatabase, true},
		{"conflict", Conflict(), ErrConflict, true},
		{"auth required", AuthRequired(), ErrAuthRequired, true},
		{"wrapped", fmt.Errorf("list: %w", PermissionDenied()), ErrPermissionDenied, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if From(nil) != nil {
			t.Error("From(nil) should be nil")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		orig := Validation("title", "title is required")
		once := From(orig)
		twice := From(once)
		if once != error(orig) || twice != once {
			t.Error("taxonomy errors should pass through unchanged")
		}
	})

	t.Run("raw decoded", func(t *testing.T) {
		err := From(fmt.Errorf("insert: %w", &RawError{Code: CodeUniqueViolation}))
		if !errors.Is(err, ErrConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		err := From(context.Canceled)
		if KindOf(err) != KindApplication {
			t.Errorf("kind = %s, want application", KindOf(err))
		}
		if !errors.Is(err, context.Canceled) {
			t.Error("expected cause to be preserved")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		err := From(errors.New("kaboom"))
		if Message(err) != "unexpected error occurred" {
			t.Errorf("Message = %q", Message(err))
		}
	})
}

func TestMessage(t *testing.T) {
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message(plain) = %q", got)
	}
	if got := Message(fmt.Errorf("ctx: %w", Validation("x", "bad x"))); got != "bad x" {
		t.Errorf("Message(wrapped) = %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Decode(&RawError{Code: CodeBusy})) {
		t.Error("busy should be retryable")
	}
	if Retryable(Auth(CodeInvalidCredentials, "x")) {
		t.Error("auth should never be retryable")
	}
	if Retryable(Validation("x", "y")) {
		t.Error("validation should never be retryable")
	}
	if Retryable(Conflict()) {
		t.Error("conflict should not be retryable")
	}
}

func TestValidators(t *testing.T) {
	emails := []struct {
		in   string
		want bool
	}{
		{"a@b.co", true},
		{"user.name@example.com", true},
		{"no-at.example.com", false},
		{"two words@example.com", false},
		{"a@b", false},
		{"", false},
	}
	for _, tt := range emails {
		t.Run("email "+tt.in, func(t *testing.T) {
			err := ValidateEmail(tt.in)
			if (err == nil) != tt.want {
				t.Errorf("ValidateEmail(%q) = %v", tt.in, err)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Error("expected validation kind")
			}
		})
	}

	if err := ValidatePassword("12345"); err == nil {
		t.Error("5-char password should fail")
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("6-char password should pass: %v", err)
	}
	var e *Error
	if !errors.As(ValidatePassword(""), &e) || e.Field != "password" {
		t.Error("expected password field on validation error")
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(log.NewWithOptions(&buf, log.Options{}))
	defer SetLogger(nil)

	Log("records.fetch", NotFound())
	out := buf.String()
	for _, want := range []string{"records.fetch", "database", CodeNotFound} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}

	buf.Reset()
	Log("noop", nil)
	if buf.Len() != 0 {
		t.Error("Log(nil) should not write")
	}
}
