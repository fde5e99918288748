// ABOUTME: Tests for OAuth sign-in against a fake provider.
// ABOUTME: Exercises state checking, code exchange, and account creation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/harperreed/healthcal/internal/apperr"
	"golang.org/x/oauth2"
)

func fakeProvider(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": email})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuthSignIn(t *testing.T) {
	srv := fakeProvider(t, "Oauth.User@Example.com")
	d := openTestStore(t, filepath.Join(t.TempDir(), "test.db"), Options{
		OAuth: map[string]OAuthProvider{
			"google": {
				Config: &oauth2.Config{
					ClientID:     "client",
					ClientSecret: "secret",
					RedirectURL:  "http://localhost/callback",
					Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
					Scopes:       []string{"email"},
				},
				UserInfoURL: srv.URL + "/userinfo",
			},
		},
	})
	ctx := context.Background()

	authURL, err := d.SignInWithOAuth(ctx, "google")
	if err != nil {
		t.Fatalf("SignInWithOAuth: %v", err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("auth url has no state")
	}

	if _, err := d.CompleteOAuth(ctx, "google", "forged", "good-code"); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("forged state: expected auth error, got %v", err)
	}

	sess, err := d.CompleteOAuth(ctx, "google", state, "good-code")
	if err != nil {
		t.Fatalf("CompleteOAuth: %v", err)
	}
	if sess.User.Email != "oauth.user@example.com" || sess.User.Provider != "google" {
		t.Errorf("user = %+v", sess.User)
	}

	// A second sign-in reuses the account.
	authURL, _ = d.SignInWithOAuth(ctx, "google")
	u, _ = url.Parse(authURL)
	again, err := d.CompleteOAuth(ctx, "google", u.Query().Get("state"), "good-code")
	if err != nil {
		t.Fatalf("second CompleteOAuth: %v", err)
	}
	if again.User.ID != sess.User.ID {
		t.Error("second oauth sign-in created a new account")
	}
}

func TestOAuthUnknownProvider(t *testing.T) {
	d := setupTestStore(t)
	_, err := d.SignInWithOAuth(context.Background(), "myspace")
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code != apperr.CodeOAuthFailed {
		t.Errorf("expected oauth_failed, got %v", err)
	}
}
