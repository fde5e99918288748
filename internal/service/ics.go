// ABOUTME: iCalendar (.ics) import for schedules using golang-ical.
// ABOUTME: VEVENT UIDs become external ids so re-imports update in place.
package service

import (
	"context"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

// SourceICS is the calendar source recorded for imported .ics files.
const SourceICS = "ics"

// ParseICS converts the VEVENTs in r into schedule inputs. Events without a
// start date are skipped.
func ParseICS(r io.Reader) ([]store.ScheduleInput, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, apperr.Validation("file", "invalid calendar file: "+err.Error())
	}

	var out []store.ScheduleInput
	for _, ev := range cal.Events() {
		in, ok := eventToInput(ev)
		if !ok {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func eventToInput(ev *ical.VEvent) (store.ScheduleInput, bool) {
	dtstart := ev.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return store.ScheduleInput{}, false
	}

	in := store.ScheduleInput{
		Title:          propValue(ev, ical.ComponentPropertySummary),
		CalendarSource: SourceICS,
	}
	if in.Title == "" {
		in.Title = "(no title)"
	}
	in.Description = optionalString(propValue(ev, ical.ComponentPropertyDescription))
	if uid := propValue(ev, ical.ComponentPropertyUniqueId); uid != "" {
		in.ExternalID = &uid
	}

	if isAllDay(dtstart) {
		start, err := ev.GetAllDayStartAt()
		if err != nil {
			return store.ScheduleInput{}, false
		}
		in.Date = models.FormatDate(start)
		in.IsAllDay = true
		// DTEND is exclusive for all-day events.
		if end, err := ev.GetAllDayEndAt(); err == nil {
			last := end.AddDate(0, 0, -1)
			if last.After(start) {
				d := models.FormatDate(last)
				in.EndDate = &d
			}
		}
		return in, true
	}

	start, err := ev.GetStartAt()
	if err != nil {
		return store.ScheduleInput{}, false
	}
	start = start.In(time.Local)
	in.Date = models.FormatDate(start)
	st := start.Format("15:04:05")
	in.StartTime = &st

	if end, err := ev.GetEndAt(); err == nil {
		end = end.In(time.Local)
		et := end.Format("15:04:05")
		in.EndTime = &et
		if d := models.FormatDate(end); d != in.Date {
			in.EndDate = &d
		}
	}
	return in, true
}

func isAllDay(p *ical.IANAProperty) bool {
	if vals, ok := p.ICalParameters["VALUE"]; ok {
		for _, v := range vals {
			if strings.EqualFold(v, "DATE") {
				return true
			}
		}
	}
	return !strings.Contains(p.Value, "T")
}

func propValue(ev *ical.VEvent, prop ical.ComponentProperty) string {
	p := ev.GetProperty(prop)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

// ImportICS parses r and replaces every schedule previously imported from
// source with its events.
func (s *Schedules) ImportICS(ctx context.Context, source string, r io.Reader) ([]*models.Schedule, error) {
	if source == "" {
		source = SourceICS
	}
	inputs, err := ParseICS(r)
	if err != nil {
		return nil, fail("schedules.import_ics", err)
	}
	return s.SyncFromExternal(ctx, source, inputs)
}
