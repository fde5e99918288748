// ABOUTME: SchedulesCache keeps the signed-in user's schedules in memory.
// ABOUTME: Entries stay sorted by date, then start time.
package sync

import (
	"context"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
)

// SchedulesCache mirrors schedules in calendar order.
type SchedulesCache struct {
	c   *cache[[]*models.Schedule]
	svc *service.Schedules
}

// NewSchedulesCache creates a cache over svc. Call Start to load it.
func NewSchedulesCache(st store.Store, svc *service.Schedules, opts ...Option) *SchedulesCache {
	fetch := func(ctx context.Context) ([]*models.Schedule, error) {
		return svc.List(ctx, store.ScheduleFilter{})
	}
	return &SchedulesCache{
		c:   newCache("schedules", st, store.TableSchedules, fetch, cloneSchedules, opts),
		svc: svc,
	}
}

// Start loads schedules for the current user and follows auth and realtime changes.
func (s *SchedulesCache) Start(ctx context.Context) error { return s.c.start(ctx) }

// Refresh refetches every schedule.
func (s *SchedulesCache) Refresh(ctx context.Context) error { return s.c.refresh(ctx) }

// Close drops all subscriptions.
func (s *SchedulesCache) Close() { s.c.close() }

// State returns a snapshot.
func (s *SchedulesCache) State() State[[]*models.Schedule] { return s.c.snapshot() }

// OnChange registers fn to receive every new snapshot.
func (s *SchedulesCache) OnChange(fn func(State[[]*models.Schedule])) store.Subscription {
	return s.c.onChange(fn)
}

// SchedulesByDate returns cached schedules that fall on date, including
// multi-day entries spanning it.
func (s *SchedulesCache) SchedulesByDate(date string) []*models.Schedule {
	var out []*models.Schedule
	for _, sched := range s.State().Data {
		end := sched.Date
		if sched.EndDate != nil {
			end = *sched.EndDate
		}
		if sched.Date <= date && date <= end {
			out = append(out, sched)
		}
	}
	return out
}

// Create adds a schedule.
func (s *SchedulesCache) Create(ctx context.Context, in store.ScheduleInput) (*models.Schedule, error) {
	return mutate(ctx, s.c, func(ctx context.Context) (*models.Schedule, error) {
		return s.svc.Create(ctx, in)
	}, putSchedule)
}

// Update applies p to the schedule with id.
func (s *SchedulesCache) Update(ctx context.Context, id uuid.UUID, p store.SchedulePatch) (*models.Schedule, error) {
	return mutate(ctx, s.c, func(ctx context.Context) (*models.Schedule, error) {
		return s.svc.Update(ctx, id, p)
	}, putSchedule)
}

// Delete removes the schedule with id.
func (s *SchedulesCache) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(ctx, s.c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.svc.Delete(ctx, id)
	}, func(scheds []*models.Schedule, _ struct{}) []*models.Schedule {
		return removeSchedules(scheds, func(x *models.Schedule) bool { return x.ID == id })
	})
	return err
}

// SyncFromExternal replaces every schedule from source.
func (s *SchedulesCache) SyncFromExternal(ctx context.Context, source string, inputs []store.ScheduleInput) ([]*models.Schedule, error) {
	return mutate(ctx, s.c, func(ctx context.Context) ([]*models.Schedule, error) {
		return s.svc.SyncFromExternal(ctx, source, inputs)
	}, replaceSource(source))
}

// ImportICS replaces schedules from source with the events in r.
func (s *SchedulesCache) ImportICS(ctx context.Context, source string, r io.Reader) ([]*models.Schedule, error) {
	if source == "" {
		source = service.SourceICS
	}
	return mutate(ctx, s.c, func(ctx context.Context) ([]*models.Schedule, error) {
		return s.svc.ImportICS(ctx, source, r)
	}, replaceSource(source))
}

func replaceSource(source string) func([]*models.Schedule, []*models.Schedule) []*models.Schedule {
	return func(scheds []*models.Schedule, added []*models.Schedule) []*models.Schedule {
		out := removeSchedules(scheds, func(x *models.Schedule) bool { return x.CalendarSource == source })
		out = append(out, added...)
		sortSchedules(out)
		return out
	}
}

func putSchedule(scheds []*models.Schedule, sched *models.Schedule) []*models.Schedule {
	if sched == nil {
		return scheds
	}
	out := removeSchedules(scheds, func(x *models.Schedule) bool { return x.ID == sched.ID })
	out = append(out, sched)
	sortSchedules(out)
	return out
}

func sortSchedules(scheds []*models.Schedule) {
	sort.SliceStable(scheds, func(i, j int) bool { return scheds[i].Less(scheds[j]) })
}

func removeSchedules(scheds []*models.Schedule, match func(*models.Schedule) bool) []*models.Schedule {
	out := make([]*models.Schedule, 0, len(scheds))
	for _, s := range scheds {
		if !match(s) {
			out = append(out, s)
		}
	}
	return out
}

func cloneSchedules(scheds []*models.Schedule) []*models.Schedule {
	if scheds == nil {
		return nil
	}
	out := make([]*models.Schedule, len(scheds))
	for i, s := range scheds {
		c := *s
		c.Description = copyStr(s.Description)
		c.EndDate = copyStr(s.EndDate)
		c.StartTime = copyStr(s.StartTime)
		c.EndTime = copyStr(s.EndTime)
		c.ExternalID = copyStr(s.ExternalID)
		out[i] = &c
	}
	return out
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
