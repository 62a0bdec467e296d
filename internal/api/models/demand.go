package models

// PredictInputs echoes the normalized request fields.
type PredictInputs struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DayOfWeek   string `json:"day_of_week"`
	Hour        int    `json:"hour"`
	Weather     string `json:"weather"`
}

// PredictDemandResponse is the body of a successful POST /predict-demand.
type PredictDemandResponse struct {
	PredictedDemand float64       `json:"predicted_demand"`
	Confidence      float64       `json:"confidence"`
	DemandLevel     string        `json:"demand_level"`
	Route           string        `json:"route"`
	Time            string        `json:"time"`
	Recommendation  string        `json:"recommendation"`
	Inputs          PredictInputs `json:"inputs"`
}

// PredictUsage is returned by GET /predict-demand to describe the POST body.
type PredictUsage struct {
	Message string        `json:"message"`
	Method  string        `json:"method"`
	Fields  []string      `json:"fields"`
	Example PredictInputs `json:"example_payload"`
}

// HeatmapEntry is one cell of the demand heatmap.
type HeatmapEntry struct {
	Date        Date    `json:"date"`
	Day         string  `json:"day"`
	Route       string  `json:"route"`
	Hour        int     `json:"hour"`
	Weather     string  `json:"weather"`
	Demand      float64 `json:"demand"`
	DemandLevel string  `json:"demand_level"`
}

// HeatmapResponse is the body of GET /demand-heatmap.
type HeatmapResponse struct {
	Status       string         `json:"status"`
	TotalEntries int            `json:"total_entries"`
	GeneratedAt  Timestamp      `json:"generated_at"`
	Heatmap      []HeatmapEntry `json:"heatmap"`
}
