package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/config"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "demand-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_InstallsPropagator(t *testing.T) {
	_, err := telemetry.Init(context.Background(), telemetry.Config{Enabled: false})
	require.NoError(t, err)

	carrier := propagation.MapCarrier{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), carrier)

	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", sc.TraceID().String())
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "staging"},
		Telemetry: config.TelemetryConfig{
			Enabled:      true,
			OTLPEndpoint: "otel-collector:4317",
			SampleRatio:  0.25,
		},
	}

	got := telemetry.FromConfig(cfg, "demand-api", "1.2.3")

	assert.Equal(t, telemetry.Config{
		ServiceName:    "demand-api",
		ServiceVersion: "1.2.3",
		Environment:    "staging",
		OTLPEndpoint:   "otel-collector:4317",
		Enabled:        true,
		SampleRatio:    0.25,
	}, got)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{name: "always", ratio: 1, want: sdktrace.RecordAndSample},
		{name: "never", ratio: 0, want: sdktrace.Drop},
		{name: "above one", ratio: 3, want: sdktrace.RecordAndSample},
	}

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := telemetry.Sampler(tt.ratio).ShouldSample(sdktrace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       traceID,
				Name:          "POST /predict-demand",
			})
			assert.Equal(t, tt.want, result.Decision)
		})
	}
}
