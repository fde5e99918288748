// ABOUTME: Store interface for the hosted record backend: auth, tables, realtime.
// ABOUTME: Services and caches depend on this interface, never on SQLite directly.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
)

// Store is the record store adapter. Every entity operation is scoped to the
// signed-in user; calling one while signed out fails with apperr.ErrAuthRequired.
type Store interface {
	// Auth
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignInWithOAuth(ctx context.Context, provider string) (authURL string, err error)
	CompleteOAuth(ctx context.Context, provider, state, code string) (*models.Session, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) (token string, err error)
	VerifyRecovery(ctx context.Context, token string) (*models.Session, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	CurrentUser(ctx context.Context) (*models.User, error)
	CurrentSession(ctx context.Context) (*models.Session, error)
	RestoreSession(ctx context.Context, token string) (*models.Session, error)
	OnAuthStateChange(cb func(AuthEvent)) Subscription

	// Health records
	ListHealthRecords(ctx context.Context, f RecordFilter) ([]*models.HealthRecord, error)
	GetHealthRecord(ctx context.Context, id uuid.UUID) (*models.HealthRecord, error)
	GetHealthRecordByDate(ctx context.Context, date string) (*models.HealthRecord, error)
	CreateHealthRecord(ctx context.Context, in HealthRecordInput) (*models.HealthRecord, error)
	UpdateHealthRecord(ctx context.Context, id uuid.UUID, p HealthRecordPatch) (*models.HealthRecord, error)
	UpsertHealthRecords(ctx context.Context, in []HealthRecordInput) ([]*models.HealthRecord, error)
	DeleteHealthRecord(ctx context.Context, id uuid.UUID) error

	// Schedules
	ListSchedules(ctx context.Context, f ScheduleFilter) ([]*models.Schedule, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	FindScheduleByExternalID(ctx context.Context, source, externalID string) (*models.Schedule, error)
	CreateSchedule(ctx context.Context, in ScheduleInput) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, p SchedulePatch) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
	ReplaceSchedulesBySource(ctx context.Context, source string, in []ScheduleInput) ([]*models.Schedule, error)

	// Settings
	GetSettings(ctx context.Context) (*models.UserSettings, error)
	InsertSettings(ctx context.Context, s *models.UserSettings) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, p SettingsPatch) (*models.UserSettings, error)

	// ResolveID expands an ID prefix within the current user's rows of table.
	ResolveID(ctx context.Context, table Table, prefix string) (uuid.UUID, error)

	// Realtime
	Subscribe(table Table, userID uuid.UUID, onChange func(Change)) Subscription

	Close() error
}

// Table names a realtime-observable table.
type Table string

const (
	TableHealthRecords Table = "health_records"
	TableSchedules     Table = "schedules"
	TableSettings      Table = "user_settings"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is one realtime notification.
type Change struct {
	Seq      int64
	Table    Table
	Op       Op
	UserID   uuid.UUID
	RecordID uuid.UUID
	At       time.Time
}

// AuthEventType names an auth state transition.
type AuthEventType string

const (
	SignedIn         AuthEventType = "SIGNED_IN"
	SignedOut        AuthEventType = "SIGNED_OUT"
	UserUpdated      AuthEventType = "USER_UPDATED"
	PasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
)

// AuthEvent is delivered to OnAuthStateChange listeners.
// Session is nil for SignedOut.
type AuthEvent struct {
	Type    AuthEventType
	Session *models.Session
}

// Subscription is returned by listener registrations.
type Subscription interface {
	// Unsubscribe stops delivery. It is idempotent.
	Unsubscribe()
}

// RecordFilter narrows ListHealthRecords. Zero fields are ignored.
type RecordFilter struct {
	From   string
	To     string
	Status models.HealthStatus
	Limit  int
}

// ScheduleFilter narrows ListSchedules. Zero fields are ignored.
type ScheduleFilter struct {
	From   string
	To     string
	Source string
}

// HealthRecordInput is the writable part of a health record.
type HealthRecordInput struct {
	Date   string
	Status models.HealthStatus
	Notes  *string
}

// HealthRecordPatch updates selected fields. A Notes pointer to "" clears notes.
type HealthRecordPatch struct {
	Status *models.HealthStatus
	Notes  *string
}

// ScheduleInput is the writable part of a schedule.
type ScheduleInput struct {
	Title          string
	Description    *string
	Date           string
	EndDate        *string
	StartTime      *string
	EndTime        *string
	IsAllDay       bool
	CalendarSource string
	ExternalID     *string
}

// SchedulePatch updates selected fields. Pointers to "" clear nullable fields.
type SchedulePatch struct {
	Title       *string
	Description *string
	Date        *string
	EndDate     *string
	StartTime   *string
	EndTime     *string
	IsAllDay    *bool
}

// SettingsPatch updates selected settings.
type SettingsPatch struct {
	FontSize                *int
	WeekStartsMonday        *bool
	Theme                   *models.Theme
	NotificationsEnabled    *bool
	ReminderTime            *string
	GoogleCalendarConnected *bool
	AppleCalendarConnected  *bool
}

// IsEmpty reports whether p changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p == SettingsPatch{}
}
