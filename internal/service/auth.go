// ABOUTME: Auth service: validates credentials before reaching the store.
// ABOUTME: A successful sign-in also initializes the user's settings row.
package service

import (
	"context"
	"strings"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

// Auth wraps the store's auth operations.
type Auth struct {
	store    store.Store
	settings *Settings
}

// NewAuth creates an Auth service over st.
func NewAuth(st store.Store) *Auth {
	return &Auth{store: st, settings: NewSettings(st)}
}

// SignUp registers a new account and signs it in.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if err := apperr.ValidateEmail(email); err != nil {
		return nil, fail("auth.signup", err)
	}
	if err := apperr.ValidatePassword(password); err != nil {
		return nil, fail("auth.signup", err)
	}
	sess, err := a.store.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, fail("auth.signup", err)
	}
	a.initSettings(ctx)
	return sess, nil
}

// SignIn authenticates with email and password.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := apperr.ValidateEmail(email); err != nil {
		return nil, fail("auth.signin", err)
	}
	if password == "" {
		return nil, fail("auth.signin", apperr.Validation("password", "password is required"))
	}
	sess, err := a.store.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, fail("auth.signin", err)
	}
	a.initSettings(ctx)
	return sess, nil
}

// SignInWithOAuth starts an OAuth flow and returns the URL to visit.
func (a *Auth) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	if provider == "" {
		return "", fail("auth.oauth", apperr.Validation("provider", "provider is required"))
	}
	url, err := a.store.SignInWithOAuth(ctx, provider)
	if err != nil {
		return "", fail("auth.oauth", err)
	}
	return url, nil
}

// CompleteOAuth finishes an OAuth flow with the callback's state and code.
func (a *Auth) CompleteOAuth(ctx context.Context, provider, state, code string) (*models.Session, error) {
	if code == "" {
		return nil, fail("auth.oauth", apperr.Validation("code", "authorization code is required"))
	}
	sess, err := a.store.CompleteOAuth(ctx, provider, state, code)
	if err != nil {
		return nil, fail("auth.oauth", err)
	}
	a.initSettings(ctx)
	return sess, nil
}

// SignOut ends the current session. Signing out twice is not an error.
func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.store.SignOut(ctx); err != nil {
		return fail("auth.signout", err)
	}
	return nil
}

// ResetPassword issues a recovery token for email. Unknown addresses return
// an empty token and no error.
func (a *Auth) ResetPassword(ctx context.Context, email string) (string, error) {
	if err := apperr.ValidateEmail(email); err != nil {
		return "", fail("auth.reset", err)
	}
	token, err := a.store.ResetPassword(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", fail("auth.reset", err)
	}
	return token, nil
}

// VerifyRecovery exchanges a recovery token for a session.
func (a *Auth) VerifyRecovery(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, fail("auth.recover", apperr.Validation("token", "recovery token is required"))
	}
	sess, err := a.store.VerifyRecovery(ctx, token)
	if err != nil {
		return nil, fail("auth.recover", err)
	}
	return sess, nil
}

// UpdatePassword changes the signed-in user's password.
func (a *Auth) UpdatePassword(ctx context.Context, password string) error {
	if err := apperr.ValidatePassword(password); err != nil {
		return fail("auth.update_password", err)
	}
	if err := a.store.UpdatePassword(ctx, password); err != nil {
		return fail("auth.update_password", err)
	}
	return nil
}

// CurrentUser returns the signed-in user, or nil when signed out.
func (a *Auth) CurrentUser(ctx context.Context) (*models.User, error) {
	u, err := a.store.CurrentUser(ctx)
	if err != nil {
		return nil, fail("auth.current_user", err)
	}
	return u, nil
}

// RestoreSession resumes a session from a saved access token.
func (a *Auth) RestoreSession(ctx context.Context, token string) (*models.Session, error) {
	sess, err := a.store.RestoreSession(ctx, token)
	if err != nil {
		return nil, fail("auth.restore", err)
	}
	return sess, nil
}

// initSettings creates default settings. Failures are logged, not returned:
// the settings service retries on the next read.
func (a *Auth) initSettings(ctx context.Context) {
	_, _ = a.settings.Get(ctx)
}
