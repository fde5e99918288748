// ABOUTME: Tests for the OAuth redirect listener.
// ABOUTME: Drives the handler with httptest requests.
package gcal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		status  int
		code    string
		wantErr bool
	}{
		{"success", "?state=s1&code=c1", http.StatusOK, "c1", false},
		{"denied", "?state=s1&error=access_denied", http.StatusBadRequest, "", true},
		{"missing code", "?state=s1", http.StatusBadRequest, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan CallbackResult, 1)
			h := CallbackHandler("/oauth/callback", results)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback"+tt.query, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			res := <-results
			if (res.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", res.Err, tt.wantErr)
			}
			if res.Code != tt.code || res.State != "s1" {
				t.Errorf("unexpected result: %+v", res)
			}
		})
	}
}

func TestCallbackHandlerRejectsOtherRoutes(t *testing.T) {
	results := make(chan CallbackResult, 1)
	h := CallbackHandler("/oauth/callback", results)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/oauth/callback?code=x", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere?code=x", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("other path status = %d, want 404", rec.Code)
	}
	if len(results) != 0 {
		t.Error("unexpected callback result")
	}
}

func TestAwaitCallbackHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := AwaitCallback(ctx, "http://127.0.0.1:0/oauth/callback")
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
