// ABOUTME: OAuth2 sign-in: authorization URL generation and code exchange.
// ABOUTME: Accounts are matched by the email the provider reports.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"golang.org/x/oauth2"
)

// SignInWithOAuth returns the provider URL the user must visit to sign in.
func (d *DB) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	p, ok := d.opts.OAuth[provider]
	if !ok || p.Config == nil {
		return "", rawErr(apperr.CodeOAuthFailed, fmt.Sprintf("provider %q is not enabled", provider))
	}

	state, err := randomToken(16)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.oauthState[state] = provider
	d.mu.Unlock()

	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// CompleteOAuth exchanges the authorization code and signs the user in,
// creating the account on first use.
func (d *DB) CompleteOAuth(ctx context.Context, provider, state, code string) (*models.Session, error) {
	d.mu.Lock()
	expected, ok := d.oauthState[state]
	delete(d.oauthState, state)
	d.mu.Unlock()
	if !ok || expected != provider {
		return nil, rawErr(apperr.CodeOAuthFailed, "oauth state mismatch")
	}
	p := d.opts.OAuth[provider]

	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Decode(&apperr.RawError{Code: apperr.CodeOAuthFailed, Message: "code exchange failed", Err: err})
	}

	email, err := fetchEmail(ctx, p, tok)
	if err != nil {
		return nil, apperr.Decode(&apperr.RawError{Code: apperr.CodeOAuthFailed, Message: "userinfo failed", Err: err})
	}
	email = normalizeEmail(email)
	if !apperr.ValidEmail(email) {
		return nil, rawErr(apperr.CodeEmailInvalid, "provider returned an invalid email")
	}

	var sess *models.Session
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		user, err := findOrCreateOAuthUser(ctx, tx, email, provider)
		if err != nil {
			return err
		}
		sess, err = d.createSession(ctx, tx, *user)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("complete oauth: %w", err)
	}

	d.setSession(sess, SignedIn)
	return sess, nil
}

func fetchEmail(ctx context.Context, p OAuthProvider, tok *oauth2.Token) (string, error) {
	client := p.Config.Client(ctx, tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	return info.Email, nil
}

func findOrCreateOAuthUser(ctx context.Context, tx *sql.Tx, email, provider string) (*models.User, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err == nil {
		return loadUser(ctx, tx, id)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user := models.User{
		ID:             uuid.New(),
		Email:          email,
		EmailConfirmed: true,
		Provider:       provider,
		CreatedAt:      time.Now().UTC(),
	}
	if err := insertUser(ctx, tx, user, ""); err != nil {
		return nil, err
	}
	return &user, nil
}
