// ABOUTME: Schedule service: validation, manual CRUD, and external calendar sync.
// ABOUTME: Imported events are keyed by (calendar_source, external_id).
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

// Schedules is the service for calendar schedules.
type Schedules struct {
	store store.Store
}

// NewSchedules creates a Schedules service over st.
func NewSchedules(st store.Store) *Schedules {
	return &Schedules{store: st}
}

// Create validates and inserts a schedule.
func (s *Schedules) Create(ctx context.Context, in store.ScheduleInput) (*models.Schedule, error) {
	if err := normalizeSchedule(&in); err != nil {
		return nil, fail("schedules.create", err)
	}
	sched, err := s.store.CreateSchedule(ctx, in)
	if err != nil {
		return nil, fail("schedules.create", err)
	}
	return sched, nil
}

// List returns schedules matching f ordered by date, then start time.
func (s *Schedules) List(ctx context.Context, f store.ScheduleFilter) ([]*models.Schedule, error) {
	if f.From != "" {
		if err := validateDate("from", f.From); err != nil {
			return nil, fail("schedules.list", err)
		}
	}
	if f.To != "" {
		if err := validateDate("to", f.To); err != nil {
			return nil, fail("schedules.list", err)
		}
	}
	scheds, err := s.store.ListSchedules(ctx, f)
	if err != nil {
		return nil, fail("schedules.list", err)
	}
	return scheds, nil
}

// ListByDateRange returns schedules starting between from and to inclusive.
func (s *Schedules) ListByDateRange(ctx context.Context, from, to string) ([]*models.Schedule, error) {
	return s.List(ctx, store.ScheduleFilter{From: from, To: to})
}

// ListByDate returns the schedules on date.
func (s *Schedules) ListByDate(ctx context.Context, date string) ([]*models.Schedule, error) {
	return s.List(ctx, store.ScheduleFilter{From: date, To: date})
}

// Get returns one schedule by id.
func (s *Schedules) Get(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, fail("schedules.get", err)
	}
	return sched, nil
}

// Update applies p after validating the resulting schedule.
func (s *Schedules) Update(ctx context.Context, id uuid.UUID, p store.SchedulePatch) (*models.Schedule, error) {
	current, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, fail("schedules.update", err)
	}

	merged := inputFromSchedule(current)
	applyPatchToInput(&merged, p)
	if err := normalizeSchedule(&merged); err != nil {
		return nil, fail("schedules.update", err)
	}

	// Send normalized values so stored times stay sortable.
	normalized := store.SchedulePatch{
		Title:       &merged.Title,
		Description: p.Description,
		Date:        &merged.Date,
		EndDate:     orEmpty(merged.EndDate),
		StartTime:   orEmpty(merged.StartTime),
		EndTime:     orEmpty(merged.EndTime),
		IsAllDay:    &merged.IsAllDay,
	}
	sched, err := s.store.UpdateSchedule(ctx, id, normalized)
	if err != nil {
		return nil, fail("schedules.update", err)
	}
	return sched, nil
}

// Delete removes the schedule with id.
func (s *Schedules) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fail("schedules.delete", err)
	}
	return nil
}

// DeleteByPrefix removes the schedule whose ID starts with prefix.
func (s *Schedules) DeleteByPrefix(ctx context.Context, prefix string) (uuid.UUID, error) {
	id, err := s.store.ResolveID(ctx, store.TableSchedules, prefix)
	if err != nil {
		return uuid.Nil, fail("schedules.delete", err)
	}
	return id, s.Delete(ctx, id)
}

// SyncFromExternal replaces every schedule from source with inputs in one
// transaction. Entries repeating an external id collapse to the last one.
func (s *Schedules) SyncFromExternal(ctx context.Context, source string, inputs []store.ScheduleInput) ([]*models.Schedule, error) {
	source = strings.TrimSpace(source)
	if source == "" || source == models.SourceManual {
		return nil, fail("schedules.sync", apperr.Validation("calendar_source", "an external calendar source is required"))
	}

	deduped := make([]store.ScheduleInput, 0, len(inputs))
	index := map[string]int{}
	for _, in := range inputs {
		in.CalendarSource = source
		if err := normalizeSchedule(&in); err != nil {
			return nil, fail("schedules.sync", err)
		}
		if in.ExternalID != nil {
			if i, ok := index[*in.ExternalID]; ok {
				deduped[i] = in
				continue
			}
			index[*in.ExternalID] = len(deduped)
		}
		deduped = append(deduped, in)
	}

	scheds, err := s.store.ReplaceSchedulesBySource(ctx, source, deduped)
	if err != nil {
		return nil, fail("schedules.sync", err)
	}
	return scheds, nil
}

// ImportExternal merges inputs from source without removing anything: an
// entry whose external id is already stored updates that schedule.
func (s *Schedules) ImportExternal(ctx context.Context, source string, inputs []store.ScheduleInput) (created, updated int, err error) {
	for _, in := range inputs {
		in.CalendarSource = source
		if err := normalizeSchedule(&in); err != nil {
			return created, updated, fail("schedules.import", err)
		}
		if in.ExternalID == nil {
			if _, err := s.store.CreateSchedule(ctx, in); err != nil {
				return created, updated, fail("schedules.import", err)
			}
			created++
			continue
		}

		existing, err := s.store.FindScheduleByExternalID(ctx, source, *in.ExternalID)
		if err != nil {
			return created, updated, fail("schedules.import", err)
		}
		if existing == nil {
			if _, err := s.store.CreateSchedule(ctx, in); err != nil {
				return created, updated, fail("schedules.import", err)
			}
			created++
			continue
		}
		if _, err := s.store.UpdateSchedule(ctx, existing.ID, patchFromInput(in)); err != nil {
			return created, updated, fail("schedules.import", err)
		}
		updated++
	}
	return created, updated, nil
}

// restore writes exported schedules, skipping manual ones already present.
func (s *Schedules) restore(ctx context.Context, scheds []*models.Schedule) (int, error) {
	if len(scheds) == 0 {
		return 0, nil
	}
	existing, err := s.List(ctx, store.ScheduleFilter{Source: models.SourceManual})
	if err != nil {
		return 0, err
	}
	seen := map[string]bool{}
	for _, e := range existing {
		seen[manualKey(e)] = true
	}

	bySource := map[string][]store.ScheduleInput{}
	count := 0
	for _, sched := range scheds {
		in := inputFromSchedule(sched)
		if in.CalendarSource == models.SourceManual || in.ExternalID == nil {
			if seen[manualKey(sched)] {
				continue
			}
			in.CalendarSource = models.SourceManual
			if _, err := s.Create(ctx, in); err != nil {
				return count, err
			}
			count++
			continue
		}
		bySource[in.CalendarSource] = append(bySource[in.CalendarSource], in)
	}
	for source, inputs := range bySource {
		c, u, err := s.ImportExternal(ctx, source, inputs)
		if err != nil {
			return count, err
		}
		count += c + u
	}
	return count, nil
}

func manualKey(s *models.Schedule) string {
	return s.Date + "|" + s.SortKey() + "|" + s.Title
}

// normalizeSchedule validates in and rewrites times to HH:MM:SS.
func normalizeSchedule(in *store.ScheduleInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.Validation("title", "title is required")
	}
	if err := validateDate("date", in.Date); err != nil {
		return err
	}
	if in.EndDate != nil && *in.EndDate != "" {
		if err := validateDate("end_date", *in.EndDate); err != nil {
			return err
		}
		if *in.EndDate < in.Date {
			return apperr.Validation("end_date", "end date must not be before start date")
		}
	} else {
		in.EndDate = nil
	}

	for field, p := range map[string]**string{"start_time": &in.StartTime, "end_time": &in.EndTime} {
		if *p == nil || **p == "" {
			*p = nil
			continue
		}
		n, err := models.ParseClock(**p)
		if err != nil {
			return apperr.Validation(field, err.Error())
		}
		*p = &n
	}

	sameDay := in.EndDate == nil || *in.EndDate == in.Date
	if in.StartTime != nil && in.EndTime != nil && sameDay && *in.EndTime < *in.StartTime {
		return apperr.Validation("end_time", "end time must not be before start time")
	}

	if in.StartTime != nil {
		in.IsAllDay = false
	} else if in.EndTime == nil {
		in.IsAllDay = true
	}
	if in.CalendarSource == "" {
		in.CalendarSource = models.SourceManual
	}
	if in.ExternalID != nil && *in.ExternalID == "" {
		in.ExternalID = nil
	}
	return nil
}

func inputFromSchedule(s *models.Schedule) store.ScheduleInput {
	return store.ScheduleInput{
		Title:          s.Title,
		Description:    s.Description,
		Date:           s.Date,
		EndDate:        s.EndDate,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		IsAllDay:       s.IsAllDay,
		CalendarSource: s.CalendarSource,
		ExternalID:     s.ExternalID,
	}
}

func applyPatchToInput(in *store.ScheduleInput, p store.SchedulePatch) {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = p.Description
	}
	if p.Date != nil {
		in.Date = *p.Date
	}
	if p.EndDate != nil {
		in.EndDate = p.EndDate
	}
	if p.StartTime != nil {
		in.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		in.EndTime = p.EndTime
	}
	if p.IsAllDay != nil {
		in.IsAllDay = *p.IsAllDay
	}
}

func patchFromInput(in store.ScheduleInput) store.SchedulePatch {
	return store.SchedulePatch{
		Title:       &in.Title,
		Description: orEmpty(in.Description),
		Date:        &in.Date,
		EndDate:     orEmpty(in.EndDate),
		StartTime:   orEmpty(in.StartTime),
		EndTime:     orEmpty(in.EndTime),
		IsAllDay:    &in.IsAllDay,
	}
}

// orEmpty turns a nil optional into a pointer to "", which clears the field.
func orEmpty(p *string) *string {
	if p == nil {
		empty := ""
		return &empty
	}
	return p
}
