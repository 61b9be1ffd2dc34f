// Package stats aggregates summary counts over the full record set.
package stats

import (
	"math"

	"github.com/jobcopilot/jobstore/pkg/models"
)

// Compute derives all counters in a single pass. An empty set yields an
// average of 0, never a division by zero.
func Compute(records []models.JobRecord) *models.Stats {
	s := &models.Stats{
		ByStatus: make(map[string]int),
	}

	sum := 0
	for _, rec := range records {
		s.Total++
		sum += rec.MatchPercentage

		switch rec.RankingLevel {
		case models.RankingHigh:
			s.ByRankingLevel.High++
		case models.RankingMedium:
			s.ByRankingLevel.Medium++
		case models.RankingLow:
			s.ByRankingLevel.Low++
		}

		s.ByStatus[rec.Status]++
		if rec.Status == models.StatusApplied {
			s.Applied++
		}
	}

	if s.Total > 0 {
		s.AverageMatchPercentage = int(math.Round(float64(sum) / float64(s.Total)))
	}
	return s
}
