// ABOUTME: Aggregate statistics over health records.
// ABOUTME: Percentages are rounded per status and are zero for an empty set.
package service

import (
	"math"

	"github.com/harperreed/healthcal/internal/models"
)

// Stats summarizes a set of health records.
type Stats struct {
	Total     int `json:"total"`
	Good      int `json:"good"`
	Normal    int `json:"normal"`
	Bad       int `json:"bad"`
	GoodPct   int `json:"good_percentage"`
	NormalPct int `json:"normal_percentage"`
	BadPct    int `json:"bad_percentage"`
}

// ComputeStats counts records per status. Each percentage is
// round(count/total*100) independently, so they may not sum to 100.
func ComputeStats(records []*models.HealthRecord) Stats {
	var s Stats
	for _, r := range records {
		switch r.Status {
		case models.StatusGood:
			s.Good++
		case models.StatusNormal:
			s.Normal++
		case models.StatusBad:
			s.Bad++
		default:
			continue
		}
		s.Total++
	}
	s.GoodPct = percent(s.Good, s.Total)
	s.NormalPct = percent(s.Normal, s.Total)
	s.BadPct = percent(s.Bad, s.Total)
	return s
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
