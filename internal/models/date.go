// ABOUTME: Calendar date and clock-time helpers.
// ABOUTME: Dates are yyyy-MM-dd strings in local time; clock times are HH:MM[:SS].
package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical date format for records and schedules.
const DateLayout = "2006-01-02"

// ParseDate parses a yyyy-MM-dd string in local time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate formats t as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current local date.
func Today() string {
	return FormatDate(time.Now())
}

// ParseClock parses HH:MM or HH:MM:SS and returns the normalized HH:MM:SS form.
func ParseClock(s string) (string, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", s)
}

// NormalizeClock returns s in HH:MM:SS form, or s unchanged if it does not parse.
func NormalizeClock(s string) string {
	n, err := ParseClock(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return n
}
