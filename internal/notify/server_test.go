// ABOUTME: Tests for the notification HTTP endpoint.
// ABOUTME: Exercises the 200, 400, and 500 responses through the mux router.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harperreed/healthcal/internal/logging"
)

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func TestSendTestNotification(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		sendErr    error
		wantStatus int
		wantMsg    string
		wantSent   int
	}{
		{"ok", `{"userId":"u1","email":"a@example.com"}`, nil, http.StatusOK, "Test notification sent successfully (simulated).", 1},
		{"missing email", `{"userId":"u1"}`, nil, http.StatusBadRequest, "User ID and email are required.", 0},
		{"missing user", `{"email":"a@example.com"}`, nil, http.StatusBadRequest, "User ID and email are required.", 0},
		{"malformed", `{not json`, nil, http.StatusInternalServerError, "Failed to send test notification.", 0},
		{"send fails", `{"userId":"u1","email":"a@example.com"}`, errors.New("smtp down"), http.StatusInternalServerError, "Failed to send test notification.", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{err: tt.sendErr}
			srv := NewServer(n, logging.Discard())

			req := httptest.NewRequest(http.MethodPost, "/api/send-test-notification", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp messageResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
			if len(n.sent) != tt.wantSent {
				t.Errorf("sent %d notifications, want %d", len(n.sent), tt.wantSent)
			}
		})
	}
}

func TestSendTestNotificationMethod(t *testing.T) {
	srv := NewServer(&recordingNotifier{}, logging.Discard())
	req := httptest.NewRequest(http.MethodGet, "/api/send-test-notification", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := NewServer(&recordingNotifier{}, logging.Discard())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLogNotifierHonorsContext(t *testing.T) {
	n := &LogNotifier{Logger: logging.Discard(), Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, Notification{Email: "a@example.com"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
