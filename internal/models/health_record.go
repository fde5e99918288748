// ABOUTME: HealthRecord model and HealthStatus enum for daily health tracking.
// ABOUTME: One record per user per calendar day with a qualitative status.
package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthStatus is the qualitative rating recorded for a day.
type HealthStatus string

const (
	StatusGood   HealthStatus = "good"
	StatusNormal HealthStatus = "normal"
	StatusBad    HealthStatus = "bad"
)

// AllHealthStatuses returns every valid status in display order.
var AllHealthStatuses = []HealthStatus{StatusGood, StatusNormal, StatusBad}

// IsValidHealthStatus checks if a string is a valid health status.
func IsValidHealthStatus(s string) bool {
	for _, st := range AllHealthStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Next returns the status that follows s when cycling through the calendar.
// The second return value is false when the cycle ends and the record should be cleared.
func (s HealthStatus) Next() (HealthStatus, bool) {
	switch s {
	case "":
		return StatusGood, true
	case StatusGood:
		return StatusNormal, true
	case StatusNormal:
		return StatusBad, true
	default:
		return "", false
	}
}

// HealthRecord is one day's health entry for a user.
type HealthRecord struct {
	ID        uuid.UUID    `json:"id" yaml:"id"`
	UserID    uuid.UUID    `json:"user_id" yaml:"user_id"`
	Date      string       `json:"date" yaml:"date"`
	Status    HealthStatus `json:"status" yaml:"status"`
	Notes     *string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at"`
}

// NewHealthRecord creates a HealthRecord with a generated UUID and current timestamps.
func NewHealthRecord(userID uuid.UUID, date string, status HealthStatus) *HealthRecord {
	now := time.Now().UTC()
	return &HealthRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithNotes sets notes on the record. Empty notes clear the field.
func (r *HealthRecord) WithNotes(notes string) *HealthRecord {
	if notes == "" {
		r.Notes = nil
		return r
	}
	r.Notes = &notes
	return r
}

// NotesOrEmpty returns the notes text, or "" when none is set.
func (r *HealthRecord) NotesOrEmpty() string {
	if r.Notes == nil {
		return ""
	}
	return *r.Notes
}
