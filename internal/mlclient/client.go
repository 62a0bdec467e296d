// Package mlclient provides a client for the demand prediction API.
package mlclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/resilience"
)

const (
	// DefaultBaseURL is where the demand API listens by default.
	DefaultBaseURL = "http://localhost:5001"

	// ServiceName identifies the upstream in breaker names and errors.
	ServiceName = "demand-api"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// ClientConfig holds configuration for the demand API client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient executes requests. If nil, a resilient client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Logger receives circuit breaker state changes of the default client.
	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the demand prediction API.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new demand API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		rc := resilience.DefaultClientConfig(ServiceName)
		rc.Timeout = timeout
		rc.CircuitBreaker.OnStateChange = resilience.LogStateChanges(cfg.Logger)
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// APIError is a non-2xx response from the demand API. StatusCode is the
// upstream status so gateways can forward it unchanged.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []models.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", ServiceName, e.StatusCode, e.Message)
}

// IsModelNotLoaded reports whether err is the API's "model not loaded" answer.
func IsModelNotLoaded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictDemand calls POST /predict-demand.
func (c *Client) PredictDemand(ctx context.Context, in models.PredictInputs) (*models.PredictDemandResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode prediction request: %w", err)
	}
	return c.PredictDemandRaw(ctx, body)
}

// PredictDemandRaw posts body to /predict-demand as is. Validation is left to the API.
func (c *Client) PredictDemandRaw(ctx context.Context, body []byte) (*models.PredictDemandResponse, error) {
	var out models.PredictDemandResponse
	if err := c.do(ctx, http.MethodPost, "/predict-demand", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DemandHeatmap calls GET /demand-heatmap.
func (c *Client) DemandHeatmap(ctx context.Context) (*models.HeatmapResponse, error) {
	var out models.HeatmapResponse
	if err := c.do(ctx, http.MethodGet, "/demand-heatmap", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError reads a problem or {error} body. Non-JSON bodies are used as the message.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var problem models.Problem
	if err := json.Unmarshal(data, &problem); err == nil {
		apiErr.Message = problem.Error
		if apiErr.Message == "" {
			apiErr.Message = problem.Detail
		}
		apiErr.Fields = problem.Errors
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
