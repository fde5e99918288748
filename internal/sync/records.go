// ABOUTME: RecordsCache keeps the signed-in user's health records in memory.
// ABOUTME: Mutations go through the service and are patched in by date.
package sync

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/harperreed/healthcal/internal/store"
)

// RecordsCache mirrors health records, newest first.
type RecordsCache struct {
	c   *cache[[]*models.HealthRecord]
	svc *service.HealthRecords
}

// NewRecordsCache creates a cache over svc. Call Start to load it.
func NewRecordsCache(st store.Store, svc *service.HealthRecords, opts ...Option) *RecordsCache {
	fetch := func(ctx context.Context) ([]*models.HealthRecord, error) {
		return svc.List(ctx, store.RecordFilter{})
	}
	return &RecordsCache{
		c:   newCache("health_records", st, store.TableHealthRecords, fetch, cloneRecords, opts),
		svc: svc,
	}
}

// Start loads records for the current user and follows auth and realtime changes.
func (r *RecordsCache) Start(ctx context.Context) error { return r.c.start(ctx) }

// Refresh refetches every record.
func (r *RecordsCache) Refresh(ctx context.Context) error { return r.c.refresh(ctx) }

// Close drops all subscriptions.
func (r *RecordsCache) Close() { r.c.close() }

// State returns a snapshot.
func (r *RecordsCache) State() State[[]*models.HealthRecord] { return r.c.snapshot() }

// OnChange registers fn to receive every new snapshot.
func (r *RecordsCache) OnChange(fn func(State[[]*models.HealthRecord])) store.Subscription {
	return r.c.onChange(fn)
}

// UserID returns the user the cache is attributed to, or uuid.Nil.
func (r *RecordsCache) UserID() uuid.UUID { return r.c.currentUser() }

// RecordByDate returns the cached record for date, or nil.
func (r *RecordsCache) RecordByDate(date string) *models.HealthRecord {
	for _, rec := range r.State().Data {
		if rec.Date == date {
			return rec
		}
	}
	return nil
}

// Stats aggregates the cached records.
func (r *RecordsCache) Stats() service.Stats {
	return service.ComputeStats(r.State().Data)
}

// UpsertByDate records status for date.
func (r *RecordsCache) UpsertByDate(ctx context.Context, date string, status models.HealthStatus, notes string) (*models.HealthRecord, error) {
	return mutate(ctx, r.c, func(ctx context.Context) (*models.HealthRecord, error) {
		return r.svc.UpsertByDate(ctx, date, status, notes)
	}, putRecord)
}

// Create inserts a new record.
func (r *RecordsCache) Create(ctx context.Context, date string, status models.HealthStatus, notes string) (*models.HealthRecord, error) {
	return mutate(ctx, r.c, func(ctx context.Context) (*models.HealthRecord, error) {
		return r.svc.Create(ctx, date, status, notes)
	}, putRecord)
}

// Update applies p to the record with id.
func (r *RecordsCache) Update(ctx context.Context, id uuid.UUID, p store.HealthRecordPatch) (*models.HealthRecord, error) {
	return mutate(ctx, r.c, func(ctx context.Context) (*models.HealthRecord, error) {
		return r.svc.Update(ctx, id, p)
	}, putRecord)
}

// CycleStatus advances the day's status; a nil result means it was cleared.
func (r *RecordsCache) CycleStatus(ctx context.Context, date string) (*models.HealthRecord, error) {
	return mutate(ctx, r.c, func(ctx context.Context) (*models.HealthRecord, error) {
		return r.svc.CycleStatus(ctx, date)
	}, func(recs []*models.HealthRecord, rec *models.HealthRecord) []*models.HealthRecord {
		if rec == nil {
			return removeRecords(recs, func(x *models.HealthRecord) bool { return x.Date == date })
		}
		return putRecord(recs, rec)
	})
}

// Delete removes the record with id.
func (r *RecordsCache) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := mutate(ctx, r.c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.svc.Delete(ctx, id)
	}, func(recs []*models.HealthRecord, _ struct{}) []*models.HealthRecord {
		return removeRecords(recs, func(x *models.HealthRecord) bool { return x.ID == id })
	})
	return err
}

// DeleteByDate removes the record for date, if any.
func (r *RecordsCache) DeleteByDate(ctx context.Context, date string) error {
	_, err := mutate(ctx, r.c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.svc.DeleteByDate(ctx, date)
	}, func(recs []*models.HealthRecord, _ struct{}) []*models.HealthRecord {
		return removeRecords(recs, func(x *models.HealthRecord) bool { return x.Date == date })
	})
	return err
}

// GenerateSampleData fills the last days days with random records.
func (r *RecordsCache) GenerateSampleData(ctx context.Context, days int) ([]*models.HealthRecord, error) {
	return mutate(ctx, r.c, func(ctx context.Context) ([]*models.HealthRecord, error) {
		return r.svc.GenerateSampleData(ctx, days)
	}, func(recs []*models.HealthRecord, added []*models.HealthRecord) []*models.HealthRecord {
		for _, rec := range added {
			recs = putRecord(recs, rec)
		}
		return recs
	})
}

// putRecord replaces the record with the same date or inserts it, keeping
// the slice sorted by date descending.
func putRecord(recs []*models.HealthRecord, rec *models.HealthRecord) []*models.HealthRecord {
	if rec == nil {
		return recs
	}
	out := removeRecords(recs, func(x *models.HealthRecord) bool { return x.Date == rec.Date || x.ID == rec.ID })
	out = append(out, rec)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func removeRecords(recs []*models.HealthRecord, match func(*models.HealthRecord) bool) []*models.HealthRecord {
	out := make([]*models.HealthRecord, 0, len(recs))
	for _, r := range recs {
		if !match(r) {
			out = append(out, r)
		}
	}
	return out
}

func cloneRecords(recs []*models.HealthRecord) []*models.HealthRecord {
	if recs == nil {
		return nil
	}
	out := make([]*models.HealthRecord, len(recs))
	for i, r := range recs {
		c := *r
		if r.Notes != nil {
			n := *r.Notes
			c.Notes = &n
		}
		out[i] = &c
	}
	return out
}
