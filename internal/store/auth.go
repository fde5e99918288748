// ABOUTME: Email/password authentication, sessions, and auth state listeners.
// ABOUTME: Passwords are bcrypt hashes; sessions are random bearer tokens.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const recoveryTTL = time.Hour

// SignUp creates an account and signs it in.
func (d *DB) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)
	if d.opts.DisableSignup {
		return nil, rawErr(apperr.CodeSignupDisabled, "signups not allowed for this instance")
	}
	if !apperr.ValidEmail(email) {
		return nil, rawErr(apperr.CodeEmailInvalid, "email address is invalid")
	}
	if len(password) < apperr.MinPasswordLength {
		return nil, rawErr(apperr.CodePasswordTooShort, "password should be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.passwordCost())
	if err != nil {
		return nil, apperr.Application("could not secure password").Wrap(err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:             uuid.New(),
		Email:          email,
		EmailConfirmed: true,
		Provider:       "email",
		CreatedAt:      now,
	}

	var sess *models.Session
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertUser(ctx, tx, user, string(hash)); err != nil {
			return err
		}
		sess, err = d.createSession(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, rawErr(apperr.CodeUserExists, "user already registered")
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	d.logger.Info("user signed up", "user", user.ID)
	d.setSession(sess, SignedIn)
	return sess, nil
}

// SignIn verifies credentials and starts a session.
func (d *DB) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)

	var idStr, createdAt, provider string
	var hash sql.NullString
	var confirmed bool
	err := d.db.QueryRowContext(ctx,
		`SELECT id, password_hash, provider, email_confirmed, created_at FROM users WHERE email = ?`, email,
	).Scan(&idStr, &hash, &provider, &confirmed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rawErr(apperr.CodeInvalidCredentials, "invalid login credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", decode(err))
	}
	if !hash.Valid || bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)) != nil {
		return nil, rawErr(apperr.CodeInvalidCredentials, "invalid login credentials")
	}
	if !confirmed {
		return nil, rawErr(apperr.CodeEmailNotConfirmed, "email not confirmed")
	}

	id, _ := uuid.Parse(idStr)
	user := models.User{ID: id, Email: email, EmailConfirmed: confirmed, Provider: provider, CreatedAt: parseTime(createdAt)}

	var sess *models.Session
	err = d.inTx(ctx, func(tx *sql.Tx) error {
		sess, err = d.createSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	d.setSession(sess, SignedIn)
	return sess, nil
}

// SignOut ends the current session. Signing out while signed out is a no-op.
func (d *DB) SignOut(ctx context.Context) error {
	d.mu.RLock()
	sess := d.session
	d.mu.RUnlock()
	if sess == nil {
		return nil
	}

	if _, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, sess.AccessToken); err != nil {
		d.logger.Warn("failed to revoke session", "err", err)
	}

	d.setSession(nil, SignedOut)
	return nil
}

// ResetPassword issues a one-time recovery token for email. Unknown addresses
// return an empty token and no error so account existence is not revealed.
func (d *DB) ResetPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if !apperr.ValidEmail(email) {
		return "", rawErr(apperr.CodeEmailInvalid, "email address is invalid")
	}

	var userID string
	err := d.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reset password: %w", decode(err))
	}

	token, err := randomToken(16)
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(recoveryTTL)
	err = withRetry(ctx, func() error {
		_, err := d.db.ExecContext(ctx,
			`INSERT INTO recovery_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
			token, userID, formatTime(expires))
		return decode(err)
	})
	if err != nil {
		return "", fmt.Errorf("reset password: %w", err)
	}

	d.logger.Info("password recovery issued", "user", userID)
	return token, nil
}

// VerifyRecovery exchanges a recovery token for a session.
func (d *DB) VerifyRecovery(ctx context.Context, token string) (*models.Session, error) {
	var sess *models.Session
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var userID, expiresAt string
		err := tx.QueryRowContext(ctx,
			`SELECT user_id, expires_at FROM recovery_tokens WHERE token = ?`, token,
		).Scan(&userID, &expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return rawErr(apperr.CodeSessionMissing, "recovery token not found")
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_tokens WHERE token = ?`, token); err != nil {
			return err
		}
		if !time.Now().Before(parseTime(expiresAt)) {
			return rawErr(apperr.CodeSessionMissing, "recovery token expired")
		}
		user, err := loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		sess, err = d.createSession(ctx, tx, *user)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verify recovery: %w", err)
	}

	d.setSession(sess, PasswordRecovery)
	return sess, nil
}

// UpdatePassword changes the signed-in user's password.
func (d *DB) UpdatePassword(ctx context.Context, newPassword string) error {
	d.mu.RLock()
	sess := d.session
	d.mu.RUnlock()
	if sess == nil {
		return rawErr(apperr.CodeSessionMissing, "auth session missing")
	}
	if len(newPassword) < apperr.MinPasswordLength {
		return rawErr(apperr.CodePasswordTooShort, "password should be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), d.passwordCost())
	if err != nil {
		return apperr.Application("could not secure password").Wrap(err)
	}
	err = withRetry(ctx, func() error {
		_, err := d.db.ExecContext(ctx,
			`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
			string(hash), formatTime(d.clock.now()), sess.User.ID.String())
		return decode(err)
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	d.setSession(sess, UserUpdated)
	return nil
}

// CurrentUser returns the signed-in user, or nil when signed out or expired.
func (d *DB) CurrentUser(ctx context.Context) (*models.User, error) {
	sess, err := d.CurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	u := sess.User
	return &u, nil
}

// CurrentSession returns the active session, or nil when signed out or expired.
func (d *DB) CurrentSession(ctx context.Context) (*models.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil || d.session.Expired(time.Now()) {
		return nil, nil
	}
	s := *d.session
	return &s, nil
}

// RestoreSession resumes a previously issued session token.
func (d *DB) RestoreSession(ctx context.Context, token string) (*models.Session, error) {
	var userID, expiresAt string
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rawErr(apperr.CodeSessionMissing, "auth session missing")
	}
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", decode(err))
	}

	expires := parseTime(expiresAt)
	if !time.Now().Before(expires) {
		_, _ = d.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
		return nil, rawErr(apperr.CodeSessionMissing, "auth session expired")
	}

	user, err := loadUser(ctx, d.db, userID)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", decode(err))
	}

	sess := &models.Session{AccessToken: token, User: *user, ExpiresAt: expires}
	d.setSession(sess, SignedIn)
	return sess, nil
}

// OnAuthStateChange registers cb for auth transitions. Callbacks run
// synchronously on the goroutine that caused the transition.
func (d *DB) OnAuthStateChange(cb func(AuthEvent)) Subscription {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = cb
	d.mu.Unlock()

	return newSubscription(func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	})
}

// setSession swaps the current session and notifies listeners outside the lock.
func (d *DB) setSession(sess *models.Session, event AuthEventType) {
	d.mu.Lock()
	d.session = sess
	listeners := make([]func(AuthEvent), 0, len(d.listeners))
	for _, cb := range d.listeners {
		listeners = append(listeners, cb)
	}
	d.mu.Unlock()

	ev := AuthEvent{Type: event}
	if sess != nil {
		s := *sess
		ev.Session = &s
	}
	for _, cb := range listeners {
		cb(ev)
	}
}

// currentUserID resolves the signed-in user for data operations.
func (d *DB) currentUserID() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil || d.session.Expired(time.Now()) {
		return "", apperr.AuthRequired()
	}
	return d.session.User.ID.String(), nil
}

func (d *DB) createSession(ctx context.Context, tx *sql.Tx, user models.User) (*models.Session, error) {
	token, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	expires := now.Add(d.opts.SessionTTL)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, user.ID.String(), formatTime(expires), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &models.Session{AccessToken: token, User: user, ExpiresAt: expires}, nil
}

func (d *DB) passwordCost() int {
	if d.opts.PasswordCost > 0 {
		return d.opts.PasswordCost
	}
	return bcrypt.DefaultCost
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertUser(ctx context.Context, tx *sql.Tx, u models.User, passwordHash string) error {
	hash := sql.NullString{String: passwordHash, Valid: passwordHash != ""}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, provider, email_confirmed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID.String(), u.Email, hash, u.Provider, u.EmailConfirmed,
		formatTime(u.CreatedAt), formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func loadUser(ctx context.Context, q queryer, id string) (*models.User, error) {
	var u models.User
	var idStr, createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT id, email, email_confirmed, provider, created_at FROM users WHERE id = ?`, id,
	).Scan(&idStr, &u.Email, &u.EmailConfirmed, &u.Provider, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.ID, _ = uuid.Parse(idStr)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", apperr.Application("could not generate token").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

type subscription struct {
	once sync.Once
	fn   func()
}

func newSubscription(fn func()) *subscription {
	return &subscription{fn: fn}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.fn)
}
