package mlclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/mlclient"
)

func newClient(t *testing.T, h http.HandlerFunc) *mlclient.Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return mlclient.NewClient(mlclient.ClientConfig{
		BaseURL:    server.URL + "/",
		HTTPClient: http.DefaultClient,
	})
}

func TestClient_Health(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"UP","service":"ML Demand Prediction Service","model_loaded":false,"timestamp":"2025-03-14T15:04:05.000000Z"}`))
	})

	health, err := client.Health(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "UP", health.Status)
	assert.False(t, health.ModelLoaded)
	assert.Equal(t, time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC), health.Timestamp.Time())
}

func TestClient_PredictDemand(t *testing.T) {
	in := models.PredictInputs{
		Origin:      "Chennai",
		Destination: "Bangalore",
		DayOfWeek:   "Friday",
		Hour:        18,
		Weather:     "sunny",
	}

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict-demand", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got models.PredictInputs
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, in, got)

		_ = json.NewEncoder(w).Encode(models.PredictDemandResponse{
			PredictedDemand: 12.5,
			Confidence:      0.95,
			DemandLevel:     "high",
			Route:           "Chennai → Bangalore",
			Time:            "18:00",
			Recommendation:  "High demand expected – surge pricing likely. Book early!",
			Inputs:          got,
		})
	})

	resp, err := client.PredictDemand(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 12.5, resp.PredictedDemand)
	assert.Equal(t, "high", resp.DemandLevel)
	assert.Equal(t, "Chennai → Bangalore", resp.Route)
	assert.Equal(t, in, resp.Inputs)
}

func TestClient_PredictDemand_ValidationError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		models.NewBadRequest("req_1", "missing fields: hour, weather", []models.FieldError{
			{Field: "hour", Message: "field is required", Code: "required"},
			{Field: "weather", Message: "field is required", Code: "required"},
		}).Write(w)
	})

	_, err := client.PredictDemandRaw(context.Background(), []byte(`{"origin":"Chennai"}`))
	require.Error(t, err)

	var apiErr *mlclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "missing fields: hour, weather", apiErr.Message)
	require.Len(t, apiErr.Fields, 2)
	assert.Equal(t, "weather", apiErr.Fields[1].Field)
	assert.False(t, mlclient.IsModelNotLoaded(err))
}

func TestClient_DemandHeatmap(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demand-heatmap", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status":"success",
			"total_entries":1,
			"generated_at":"2025-03-14T15:04:05.000000Z",
			"heatmap":[{"date":"2025-03-14","day":"Friday","route":"Mumbai → Pune","hour":8,"weather":"rainy","demand":7.25,"demand_level":"medium"}]
		}`))
	})

	hm, err := client.DemandHeatmap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "success", hm.Status)
	assert.Equal(t, 1, hm.TotalEntries)
	require.Len(t, hm.Heatmap, 1)
	assert.Equal(t, "2025-03-14", hm.Heatmap[0].Date.String())
	assert.Equal(t, "Mumbai → Pune", hm.Heatmap[0].Route)
	assert.Equal(t, 7.25, hm.Heatmap[0].Demand)
}

func TestClient_ModelNotLoaded(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		models.NewModelNotLoaded("req_1", "Model not loaded. Please train the model first.").Write(w)
	})

	_, err := client.DemandHeatmap(context.Background())

	assert.True(t, mlclient.IsModelNotLoaded(err))
	assert.Contains(t, err.Error(), "503")
}

func TestClient_PlainTextError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream gone\n")
	})

	_, err := client.Health(context.Background())

	var apiErr *mlclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream gone", apiErr.Message)
}

func TestClient_EmptyErrorBody(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Health(context.Background())

	var apiErr *mlclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Internal Server Error", apiErr.Message)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := mlclient.NewClient(mlclient.ClientConfig{BaseURL: url, HTTPClient: http.DefaultClient})

	_, err := client.Health(context.Background())
	require.Error(t, err)

	var apiErr *mlclient.APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "GET /health")
}

func TestClient_DefaultsToResilientClient(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"UP","service":"x","model_loaded":true,"timestamp":"2025-03-14T15:04:05Z"}`))
	}))
	defer server.Close()

	client := mlclient.NewClient(mlclient.ClientConfig{BaseURL: server.URL})

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, 2, attempts)
}
