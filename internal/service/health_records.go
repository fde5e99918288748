// ABOUTME: Health record service: validation and record-a-day operations.
// ABOUTME: Wraps the store's upsert so a day always has at most one record.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

// HealthRecords is the service for daily health records.
type HealthRecords struct {
	store store.Store
	opts  options
	rand  *lockedRand
}

// NewHealthRecords creates a HealthRecords service over st.
func NewHealthRecords(st store.Store, opts ...Option) *HealthRecords {
	o := buildOptions(opts)
	return &HealthRecords{store: st, opts: o, rand: &lockedRand{r: o.rand}}
}

// Create inserts a record for date. A record for that date must not exist yet.
func (s *HealthRecords) Create(ctx context.Context, date string, status models.HealthStatus, notes string) (*models.HealthRecord, error) {
	if err := validateDate("date", date); err != nil {
		return nil, fail("health_records.create", err)
	}
	if err := validateStatus(status); err != nil {
		return nil, fail("health_records.create", err)
	}
	rec, err := s.store.CreateHealthRecord(ctx, store.HealthRecordInput{
		Date: date, Status: status, Notes: optionalString(notes),
	})
	if err != nil {
		return nil, fail("health_records.create", err)
	}
	return rec, nil
}

// List returns records matching f, newest first.
func (s *HealthRecords) List(ctx context.Context, f store.RecordFilter) ([]*models.HealthRecord, error) {
	for field, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if err := validateDate(field, v); err != nil {
			return nil, fail("health_records.list", err)
		}
	}
	if f.Status != "" {
		if err := validateStatus(f.Status); err != nil {
			return nil, fail("health_records.list", err)
		}
	}
	recs, err := s.store.ListHealthRecords(ctx, f)
	if err != nil {
		return nil, fail("health_records.list", err)
	}
	return recs, nil
}

// ListByDateRange returns records between from and to inclusive.
func (s *HealthRecords) ListByDateRange(ctx context.Context, from, to string) ([]*models.HealthRecord, error) {
	return s.List(ctx, store.RecordFilter{From: from, To: to})
}

// GetByDate returns the record for date, or nil when none exists.
func (s *HealthRecords) GetByDate(ctx context.Context, date string) (*models.HealthRecord, error) {
	if err := validateDate("date", date); err != nil {
		return nil, fail("health_records.get_by_date", err)
	}
	rec, err := s.store.GetHealthRecordByDate(ctx, date)
	if err != nil {
		return nil, fail("health_records.get_by_date", err)
	}
	return rec, nil
}

// Update applies a partial update to the record with id.
func (s *HealthRecords) Update(ctx context.Context, id uuid.UUID, p store.HealthRecordPatch) (*models.HealthRecord, error) {
	if p.Status != nil {
		if err := validateStatus(*p.Status); err != nil {
			return nil, fail("health_records.update", err)
		}
	}
	rec, err := s.store.UpdateHealthRecord(ctx, id, p)
	if err != nil {
		return nil, fail("health_records.update", err)
	}
	return rec, nil
}

// UpsertByDate records status for date, creating or replacing the day's record.
// Calling it twice with the same arguments leaves exactly one record.
func (s *HealthRecords) UpsertByDate(ctx context.Context, date string, status models.HealthStatus, notes string) (*models.HealthRecord, error) {
	if err := validateDate("date", date); err != nil {
		return nil, fail("health_records.upsert", err)
	}
	if err := validateStatus(status); err != nil {
		return nil, fail("health_records.upsert", err)
	}
	recs, err := s.store.UpsertHealthRecords(ctx, []store.HealthRecordInput{
		{Date: date, Status: status, Notes: optionalString(notes)},
	})
	if err != nil {
		return nil, fail("health_records.upsert", err)
	}
	return recs[0], nil
}

// Delete removes the record with id.
func (s *HealthRecords) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteHealthRecord(ctx, id); err != nil {
		return fail("health_records.delete", err)
	}
	return nil
}

// DeleteByPrefix removes the record whose ID starts with prefix.
func (s *HealthRecords) DeleteByPrefix(ctx context.Context, prefix string) (uuid.UUID, error) {
	id, err := s.store.ResolveID(ctx, store.TableHealthRecords, prefix)
	if err != nil {
		return uuid.Nil, fail("health_records.delete", err)
	}
	return id, s.Delete(ctx, id)
}

// DeleteByDate removes the record for date. Missing records are not an error.
func (s *HealthRecords) DeleteByDate(ctx context.Context, date string) error {
	rec, err := s.GetByDate(ctx, date)
	if err != nil || rec == nil {
		return err
	}
	return s.Delete(ctx, rec.ID)
}

// CycleStatus advances the day's status good -> normal -> bad -> cleared.
// It returns nil once the record has been cleared.
func (s *HealthRecords) CycleStatus(ctx context.Context, date string) (*models.HealthRecord, error) {
	current, err := s.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var from models.HealthStatus
	notes := ""
	if current != nil {
		from = current.Status
		notes = current.NotesOrEmpty()
	}
	next, ok := from.Next()
	if !ok {
		if err := s.Delete(ctx, current.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s.UpsertByDate(ctx, date, next, notes)
}

// Stats aggregates records between from and to; empty bounds are open.
func (s *HealthRecords) Stats(ctx context.Context, from, to string) (Stats, error) {
	recs, err := s.List(ctx, store.RecordFilter{From: from, To: to})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(recs), nil
}
