package demand

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes recorded by Metrics.
const (
	outcomeSuccess     = "success"
	outcomeInvalid     = "invalid"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

// Metrics holds the Prometheus instruments for the demand pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	predictions     *prometheus.CounterVec
	predictedDemand prometheus.Histogram
	unknownCategory *prometheus.CounterVec
	heatmaps        *prometheus.CounterVec
	heatmapDuration prometheus.Histogram
}

// NewMetrics registers the demand instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_predictions_total",
			Help: "Prediction requests by outcome.",
		}, []string{"outcome"}),
		predictedDemand: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "demand_predicted_value",
			Help:    "Distribution of clamped demand predictions.",
			Buckets: []float64{0.5, 1, 2, 3, 5, 7.5, 10, 15, 20},
		}),
		unknownCategory: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_unknown_category_total",
			Help: "Category values encoded with the unseen-value fallback.",
		}, []string{"field"}),
		heatmaps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_heatmaps_total",
			Help: "Heatmap generations by outcome.",
		}, []string{"outcome"}),
		heatmapDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "demand_heatmap_duration_seconds",
			Help:    "Time to evaluate a full heatmap grid.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) prediction(outcome string, demand float64) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
	if outcome == outcomeSuccess {
		m.predictedDemand.Observe(demand)
	}
}

func (m *Metrics) unknown(field string) {
	if m == nil {
		return
	}
	m.unknownCategory.WithLabelValues(field).Inc()
}

func (m *Metrics) heatmap(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.heatmaps.WithLabelValues(outcome).Inc()
	if outcome == outcomeSuccess {
		m.heatmapDuration.Observe(d.Seconds())
	}
}
