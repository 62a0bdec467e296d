package demand

import "math"

// Demand thresholds shared by the tiering and recommendation rules.
const (
	HighDemandThreshold   = 10.0
	MediumDemandThreshold = 5.0

	// Hours in [OffPeakStartHour, OffPeakEndHour) are treated as off-peak.
	OffPeakStartHour = 0
	OffPeakEndHour   = 6

	baseConfidence     = 0.70
	maxConfidenceBoost = 0.25
	confidenceScale    = 20.0
)

// Level is a coarse demand bucket.
type Level string

// Demand levels.
const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Recommendation texts.
const (
	RecommendSurge    = "High demand expected – surge pricing likely. Book early!"
	RecommendModerate = "Moderate demand. Good time to find a ride."
	RecommendOffPeak  = "Low demand – off-peak hours. Rides available immediately."
	RecommendLow      = "Low demand expected. Plenty of ride options available."
)

// round2 rounds half away from zero to two decimals.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ClampDemand floors a raw model output at zero and rounds it to two decimals.
func ClampDemand(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	return math.Max(0, round2(raw))
}

// Confidence is a heuristic in [0.70, 0.95] that grows with predicted demand.
// It is not a statistical prediction interval.
func Confidence(demand float64) float64 {
	boost := math.Min(demand/confidenceScale, maxConfidenceBoost)
	return round2(baseConfidence + boost)
}

// Tier buckets demand into high, medium or low.
func Tier(demand float64) Level {
	switch {
	case demand >= HighDemandThreshold:
		return LevelHigh
	case demand >= MediumDemandThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Recommendation returns rider-facing advice for demand at hour.
func Recommendation(demand float64, hour int) string {
	switch {
	case demand >= HighDemandThreshold:
		return RecommendSurge
	case demand >= MediumDemandThreshold:
		return RecommendModerate
	case hour >= OffPeakStartHour && hour < OffPeakEndHour:
		return RecommendOffPeak
	default:
		return RecommendLow
	}
}
