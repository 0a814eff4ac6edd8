package ledger

import (
	"math"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// DefaultLateWeight counts a late arrival as a full presence.
const DefaultLateWeight = 1.0

// Summarize aggregates records into a presence summary. The rate is
// (present + late*lateWeight) / recorded, expressed in percent and rounded
// to one decimal.
func Summarize(records []models.AttendanceRecord, lateWeight float64) models.PresenceSummary {
	var summary models.PresenceSummary
	for _, rec := range records {
		summary.Add(rec.Status)
	}
	return finalize(summary, lateWeight)
}

func finalize(summary models.PresenceSummary, lateWeight float64) models.PresenceSummary {
	if summary.Total == 0 {
		summary.Rate = 0
		return summary
	}
	weight := clampWeight(lateWeight)
	attended := float64(summary.Present) + float64(summary.Late)*weight
	summary.Rate = math.Round(attended/float64(summary.Total)*1000) / 10
	return summary
}

func clampWeight(w float64) float64 {
	switch {
	case math.IsNaN(w) || w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}
