package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/middleware"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/demand"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/encoding"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

var testNow = time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC)

func testEncoders() *encoding.EncoderSet {
	cities := []string{"Bangalore", "Chennai", "Coimbatore", "Delhi", "Hyderabad", "Jaipur", "Mumbai", "Pune"}
	return encoding.NewEncoderSet(map[string]*encoding.LabelEncoder{
		encoding.FieldOrigin:      encoding.Fit(cities),
		encoding.FieldDestination: encoding.Fit(cities),
		encoding.FieldDayOfWeek:   encoding.Fit(demand.DaysOfWeek),
		encoding.FieldWeather:     encoding.Fit(demand.WeatherOptions),
	})
}

func stubPredictor(v model.FeatureVector) (float64, error) {
	return v[model.FeatureHour] * 0.5, nil
}

type routerOpts struct {
	predictor model.Predictor
	unloaded  bool
	registry  *prometheus.Registry
	rateLimit *middleware.RateLimitConfig
	tls       bool
}

func newTestRouter(t *testing.T, opts routerOpts) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	cfg := demand.ServiceConfig{
		Logger:  logger,
		Metrics: demand.NewMetrics(reg),
		Clock:   func() time.Time { return testNow },
	}
	if !opts.unloaded {
		p := opts.predictor
		if p == nil {
			p = model.PredictorFunc(stubPredictor)
		}
		state, err := demand.NewState(p, testEncoders())
		require.NoError(t, err)
		cfg.State = state
	}

	return api.NewRouter(api.RouterConfig{
		Version:       "test",
		Logger:        logger,
		DemandService: demand.NewService(cfg),
		Gatherer:      reg,
		CORSOrigins:   []string{"*"},
		RateLimit:     opts.rateLimit,
		RequireTLS:    opts.tls,
	})
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

const validBody = `{"origin":"Chennai","destination":"Bangalore","day_of_week":"Friday","hour":18,"weather":"rainy"}`

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusUp, health.Status)
	assert.Equal(t, "ML Demand Prediction Service", health.Service)
	assert.True(t, health.ModelLoaded)
	assert.False(t, health.Timestamp.Time().IsZero())
}

func TestRouter_HealthCheck_ModelNotLoaded(t *testing.T) {
	router := newTestRouter(t, routerOpts{unloaded: true})

	w := do(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model_loaded":false`)
}

func TestRouter_PredictDemand(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodPost, "/predict-demand", validBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PredictDemandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 9.0, resp.PredictedDemand)
	assert.Equal(t, "Chennai → Bangalore", resp.Route)
	assert.Equal(t, "18:00", resp.Time)
	assert.Equal(t, string(demand.LevelMedium), resp.DemandLevel)
	assert.Equal(t, demand.Confidence(9.0), resp.Confidence)
	assert.Equal(t, demand.Recommendation(9.0, 18), resp.Recommendation)
	assert.Equal(t, models.PredictInputs{
		Origin:      "Chennai",
		Destination: "Bangalore",
		DayOfWeek:   "Friday",
		Hour:        18,
		Weather:     "rainy",
	}, resp.Inputs)
}

func TestRouter_PredictDemand_UnknownCityStillPredicts(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	body := `{"origin":"Atlantis","destination":"Bangalore","day_of_week":"Friday","hour":8,"weather":"sunny"}`
	w := do(router, http.MethodPost, "/predict-demand", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"route":"Atlantis → Bangalore"`)
}

func TestRouter_PredictDemand_ValidationErrors(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	tests := []struct {
		name       string
		body       string
		wantType   string
		wantError  string
		wantFields []string
	}{
		{
			name:       "missing hour and weather",
			body:       `{"origin":"Chennai","destination":"Bangalore","day_of_week":"Friday"}`,
			wantType:   models.ProblemTypeValidation,
			wantError:  "missing fields: hour, weather",
			wantFields: []string{"hour", "weather"},
		},
		{
			name:       "hour out of range",
			body:       `{"origin":"Chennai","destination":"Bangalore","day_of_week":"Friday","hour":27,"weather":"sunny"}`,
			wantType:   models.ProblemTypeValidation,
			wantError:  "hour must be an integer between 0 and 23",
			wantFields: []string{"hour"},
		},
		{
			name:       "unknown weather",
			body:       `{"origin":"Chennai","destination":"Bangalore","day_of_week":"Friday","hour":9,"weather":"snowy"}`,
			wantType:   models.ProblemTypeValidation,
			wantError:  "weather must be one of sunny, cloudy, rainy",
			wantFields: []string{"weather"},
		},
		{
			name:      "not json",
			body:      `hello`,
			wantType:  models.ProblemTypeInvalidBody,
			wantError: demand.ErrBadJSON.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/predict-demand", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			p := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.wantError, p.Error)
			assert.Equal(t, "/predict-demand", p.Instance)

			fields := make([]string, len(p.Errors))
			for i, f := range p.Errors {
				fields[i] = f.Field
			}
			if tt.wantFields == nil {
				assert.Empty(t, fields)
			} else {
				assert.Equal(t, tt.wantFields, fields)
			}
		})
	}
}

func TestRouter_PredictDemand_WrongContentType(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	req := httptest.NewRequest(http.MethodPost, "/predict-demand", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ProblemTypeInvalidBody, decodeProblem(t, w).Type)
}

func TestRouter_ModelNotLoaded(t *testing.T) {
	router := newTestRouter(t, routerOpts{unloaded: true})

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/predict-demand", validBody},
		{http.MethodGet, "/demand-heatmap", ""},
	} {
		t.Run(tc.path, func(t *testing.T) {
			w := do(router, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)

			p := decodeProblem(t, w)
			assert.Equal(t, models.ProblemTypeModelNotLoaded, p.Type)
			assert.Equal(t, "Model not loaded. Please train the model first.", p.Error)
		})
	}
}

func TestRouter_ModelNotLoaded_CheckedBeforeBody(t *testing.T) {
	router := newTestRouter(t, routerOpts{unloaded: true})

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "non-JSON content type", contentType: "text/plain", body: validBody},
		{name: "oversized body", contentType: "application/json", body: `{"origin":"` + strings.Repeat("x", 70<<10) + `"}`},
		{name: "malformed JSON", contentType: "application/json", body: `{"origin":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/predict-demand", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, models.ProblemTypeModelNotLoaded, decodeProblem(t, w).Type)
		})
	}
}

func TestRouter_WithoutDemandService(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{Logger: zerolog.New(io.Discard)})

	w := do(router, http.MethodPost, "/predict-demand", validBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(router, http.MethodGet, "/demand-heatmap", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.False(t, health.ModelLoaded)
}

func TestRouter_PredictDemand_InternalError(t *testing.T) {
	failing := model.PredictorFunc(func(model.FeatureVector) (float64, error) {
		panic("weights corrupted")
	})
	router := newTestRouter(t, routerOpts{predictor: failing})

	w := do(router, http.MethodPost, "/predict-demand", validBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeInternal, p.Type)
	assert.Equal(t, "prediction failed", p.Error)
	assert.NotContains(t, w.Body.String(), "weights corrupted")
}

func TestRouter_PredictUsage(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodGet, "/predict-demand", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var usage models.PredictUsage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Equal(t, http.MethodPost, usage.Method)
	assert.Equal(t, demand.RequiredFields, usage.Fields)
	assert.Equal(t, "Chennai", usage.Example.Origin)
}

func TestRouter_DemandHeatmap(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodGet, "/demand-heatmap", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HeatmapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 630, resp.TotalEntries)
	require.Len(t, resp.Heatmap, 630)
	assert.Equal(t, testNow, resp.GeneratedAt.Time().UTC())

	first := resp.Heatmap[0]
	assert.Equal(t, "2025-03-14", first.Date.String())
	assert.Equal(t, "Friday", first.Day)
	assert.Equal(t, "Chennai → Bangalore", first.Route)
	assert.Equal(t, 8, first.Hour)
	assert.Equal(t, "sunny", first.Weather)
	assert.Equal(t, 4.0, first.Demand)

	last := resp.Heatmap[629]
	assert.Equal(t, "2025-03-20", last.Date.String())
	assert.Equal(t, "Delhi → Jaipur", last.Route)
	assert.Equal(t, 19, last.Hour)
	assert.Equal(t, "rainy", last.Weather)
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := newTestRouter(t, routerOpts{registry: reg})

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/predict-demand", validBody).Code)

	w := do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `demand_predictions_total{outcome="success"} 1`)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodGet, "/nonexistent", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeNotFound, p.Type)
	assert.Equal(t, "/nonexistent", p.Instance)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodDelete, "/demand-heatmap", "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, models.ProblemTypeMethodNotAllowed, decodeProblem(t, w).Type)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	w := do(router, http.MethodGet, "/health", "")

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRouter_RequireTLS(t *testing.T) {
	router := newTestRouter(t, routerOpts{tls: true})

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "http")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	router := newTestRouter(t, routerOpts{
		rateLimit: &middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute},
	})

	for range 2 {
		require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/predict-demand", "").Code)
	}

	w := do(router, http.MethodGet, "/predict-demand", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// Health is never rate limited.
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, routerOpts{})

	req := httptest.NewRequest(http.MethodOptions, "/predict-demand", http.NoBody)
	req.Header.Set("Origin", "https://rider.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
