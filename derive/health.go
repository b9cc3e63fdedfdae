package derive

import (
	"time"

	"github.com/goliatone/go-household-state/model"
)

// Health bands.
const (
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthFair      = "fair"
	HealthPoor      = "poor"
)

const (
	belowThresholdPenalty = 10
	expiringPenalty       = 5
)

// Health summarizes pantry condition on a 0-100 scale.
type Health struct {
	TotalItems     int    `json:"total_items" msgpack:"total_items"`
	BelowThreshold int    `json:"below_threshold" msgpack:"below_threshold"`
	ExpiringSoon   int    `json:"expiring_soon" msgpack:"expiring_soon"`
	Score          int    `json:"health_score" msgpack:"health_score"`
	Status         string `json:"status" msgpack:"status"`
}

// PantryHealth scores the pantry: 10 points off per item under its minimum
// threshold and 5 per location expiring within the default window.
func PantryHealth(snap model.Snapshot, today time.Time) Health {
	h := Health{TotalItems: len(snap.Inventory)}

	for _, item := range snap.Inventory {
		if item.TotalQuantity() < item.MinThreshold {
			h.BelowThreshold++
		}
	}
	for range ExpiringSoon(snap, today, DefaultExpiringWindow) {
		h.ExpiringSoon++
	}

	h.Score = max(0, 100-h.BelowThreshold*belowThresholdPenalty-h.ExpiringSoon*expiringPenalty)
	h.Status = healthBand(h.Score)
	return h
}

func healthBand(score int) string {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthFair
	default:
		return HealthPoor
	}
}
