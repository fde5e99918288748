// ABOUTME: Sample data generator for demo accounts.
// ABOUTME: Writes a weighted random status for each of the last N days in one upsert.
package service

import (
	"context"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/store"
)

// DefaultSampleDays is the number of days GenerateSampleData covers by default.
const DefaultSampleDays = 30

const maxSampleDays = 366 * 5

var sampleNotes = []string{"slept well", "exercised", "a bit tired", "stressed", "feeling good"}

// GenerateSampleData fills the last days days, ending today, with random
// records: half good, 30% normal, 20% bad, one in five with a note.
// Existing records for those dates are overwritten.
func (s *HealthRecords) GenerateSampleData(ctx context.Context, days int) ([]*models.HealthRecord, error) {
	if days <= 0 || days > maxSampleDays {
		return nil, fail("health_records.sample", apperr.Validation("days", "days must be between 1 and 1830"))
	}

	today := s.opts.now()
	inputs := make([]store.HealthRecordInput, 0, days)
	for i := 0; i < days; i++ {
		date := models.FormatDate(today.AddDate(0, 0, -i))
		inputs = append(inputs, store.HealthRecordInput{
			Date:   date,
			Status: s.randomStatus(),
			Notes:  s.randomNote(),
		})
	}

	recs, err := s.store.UpsertHealthRecords(ctx, inputs)
	if err != nil {
		return nil, fail("health_records.sample", err)
	}
	return recs, nil
}

func (s *HealthRecords) randomStatus() models.HealthStatus {
	r := s.rand.Float64()
	switch {
	case r < 0.5:
		return models.StatusGood
	case r < 0.8:
		return models.StatusNormal
	default:
		return models.StatusBad
	}
}

func (s *HealthRecords) randomNote() *string {
	if s.rand.Float64() >= 0.2 {
		return nil
	}
	note := sampleNotes[s.rand.Intn(len(sampleNotes))]
	return &note
}
