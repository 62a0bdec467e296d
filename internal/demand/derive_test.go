package demand_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/demand"
)

func TestClampDemand(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{-3.7, 0},
		{-0.004, 0},
		{0, 0},
		{1.234, 1.23},
		{1.235001, 1.24},
		{12.999, 13},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := demand.ClampDemand(tt.raw)
		assert.InDelta(t, tt.want, got, 1e-9, "raw=%v", tt.raw)
		assert.GreaterOrEqual(t, got, 0.0)
	}
}

func TestConfidence_Bounds(t *testing.T) {
	assert.Equal(t, 0.70, demand.Confidence(0))
	assert.Equal(t, 0.75, demand.Confidence(1))
	assert.Equal(t, 0.80, demand.Confidence(2))
	assert.Equal(t, 0.95, demand.Confidence(5))
	assert.Equal(t, 0.95, demand.Confidence(500))
}

func TestConfidence_NonDecreasing(t *testing.T) {
	prev := demand.Confidence(0)
	for p := 0.0; p <= 30; p += 0.01 {
		c := demand.Confidence(p)
		assert.GreaterOrEqual(t, c, 0.70)
		assert.LessOrEqual(t, c, 0.95)
		assert.GreaterOrEqual(t, c, prev, "p=%v", p)
		prev = c
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		demand float64
		want   demand.Level
	}{
		{0, demand.LevelLow},
		{4.99, demand.LevelLow},
		{5, demand.LevelMedium},
		{9.99, demand.LevelMedium},
		{10, demand.LevelHigh},
		{42, demand.LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, demand.Tier(tt.demand), "demand=%v", tt.demand)
	}
}

func TestRecommendation(t *testing.T) {
	tests := []struct {
		name   string
		demand float64
		hour   int
		want   string
	}{
		{"surge beats off-peak", 10, 3, demand.RecommendSurge},
		{"moderate", 5, 18, demand.RecommendModerate},
		{"off-peak midnight", 1, 0, demand.RecommendOffPeak},
		{"off-peak before six", 4.9, 5, demand.RecommendOffPeak},
		{"six is not off-peak", 1, 6, demand.RecommendLow},
		{"evening low", 0, 21, demand.RecommendLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, demand.Recommendation(tt.demand, tt.hour))
		})
	}
}
