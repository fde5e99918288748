// ABOUTME: Shared CLI helpers: date arguments, status colors, and text layout.
// ABOUTME: Used by the record, schedule, and calendar commands.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthcal/internal/models"
)

var faint = color.New(color.Faint)

// parseDay accepts YYYY-MM-DD, "today", "yesterday", "tomorrow", or an empty
// string for today.
func parseDay(s string) (string, error) {
	now := time.Now()
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return models.FormatDate(now), nil
	case "yesterday":
		return models.FormatDate(now.AddDate(0, 0, -1)), nil
	case "tomorrow":
		return models.FormatDate(now.AddDate(0, 0, 1)), nil
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD, today, or yesterday)", s)
	}
	return models.FormatDate(t), nil
}

// daysBack returns the inclusive range covering the last n days.
func daysBack(now time.Time, n int) (from, to string) {
	return models.FormatDate(now.AddDate(0, 0, -(n - 1))), models.FormatDate(now)
}

func statusColor(s models.HealthStatus) *color.Color {
	switch s {
	case models.StatusGood:
		return color.New(color.FgGreen)
	case models.StatusNormal:
		return color.New(color.FgYellow)
	case models.StatusBad:
		return color.New(color.FgRed)
	}
	return faint
}

func shortID(id fmt.Stringer) string {
	return id.String()[:8]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
