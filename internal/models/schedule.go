// ABOUTME: Schedule model for calendar events, manual or imported from providers.
// ABOUTME: Includes time-of-day parsing shared by validation and sorting.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceManual marks schedules created by the user rather than imported.
const SourceManual = "manual"

// Schedule is a calendar entry belonging to a user.
type Schedule struct {
	ID             uuid.UUID `json:"id" yaml:"id"`
	UserID         uuid.UUID `json:"user_id" yaml:"user_id"`
	Title          string    `json:"title" yaml:"title"`
	Description    *string   `json:"description,omitempty" yaml:"description,omitempty"`
	Date           string    `json:"date" yaml:"date"`
	EndDate        *string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	StartTime      *string   `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime        *string   `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	IsAllDay       bool      `json:"is_all_day" yaml:"is_all_day"`
	CalendarSource string    `json:"calendar_source" yaml:"calendar_source"`
	ExternalID     *string   `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewSchedule creates a manual all-day Schedule with a generated UUID.
func NewSchedule(userID uuid.UUID, title, date string) *Schedule {
	now := time.Now().UTC()
	return &Schedule{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          title,
		Date:           date,
		IsAllDay:       true,
		CalendarSource: SourceManual,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// WithTimes sets start and end times and clears the all-day flag.
func (s *Schedule) WithTimes(start, end string) *Schedule {
	if start != "" {
		s.StartTime = &start
	}
	if end != "" {
		s.EndTime = &end
	}
	s.IsAllDay = s.StartTime == nil && s.EndTime == nil
	return s
}

// WithDescription sets the description.
func (s *Schedule) WithDescription(desc string) *Schedule {
	s.Description = &desc
	return s
}

// WithExternal marks the schedule as imported from a provider.
func (s *Schedule) WithExternal(source, externalID string) *Schedule {
	s.CalendarSource = source
	s.ExternalID = &externalID
	return s
}

// SortKey returns the start time used for ordering within a day.
// All-day entries sort before timed ones.
func (s *Schedule) SortKey() string {
	if s.StartTime == nil {
		return ""
	}
	return NormalizeClock(*s.StartTime)
}

// Less orders schedules by date, then by start time.
func (s *Schedule) Less(other *Schedule) bool {
	if s.Date != other.Date {
		return s.Date < other.Date
	}
	return s.SortKey() < other.SortKey()
}
