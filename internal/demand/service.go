// Package demand turns ride requests into demand predictions: it validates
// input, encodes it for the model, and derives the demand level, confidence
// and recommendation served to riders.
package demand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/encoding"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

const tracerName = "github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/demand"

// Route is an origin and destination pair.
type Route struct {
	Origin      string
	Destination string
}

// String renders the route as "Origin → Destination".
func (r Route) String() string {
	return r.Origin + " → " + r.Destination
}

// State is the trained model and its encoders. It is built once and only read afterwards.
type State struct {
	model    model.Predictor
	encoders *encoding.EncoderSet
}

// NewState checks that p and encoders are usable together.
func NewState(p model.Predictor, encoders *encoding.EncoderSet) (*State, error) {
	if p == nil {
		return nil, errors.New("predictor is nil")
	}
	if encoders == nil {
		return nil, errors.New("encoder set is nil")
	}
	if err := encoders.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoders: %w", err)
	}
	return &State{model: p, encoders: encoders}, nil
}

// Prediction is the result of a single demand prediction.
type Prediction struct {
	PredictedDemand float64
	Confidence      float64
	Level           Level
	Route           Route
	Time            string
	Recommendation  string
	Inputs          Request
}

// ServiceConfig holds configuration for the demand service.
type ServiceConfig struct {
	// State is the loaded model. Nil means the service runs without a model
	// and reports ErrModelNotLoaded.
	State *State

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// HeatmapConcurrency is the number of heatmap cells evaluated in parallel.
	// Default: 4
	HeatmapConcurrency int

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// Service serves demand predictions and heatmaps from a loaded State.
type Service struct {
	state       *State
	logger      zerolog.Logger
	metrics     *Metrics
	concurrency int
	clock       func() time.Time
	tracer      trace.Tracer
}

// NewService creates a new demand service.
func NewService(cfg ServiceConfig) *Service {
	concurrency := cfg.HeatmapConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		state:       cfg.State,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		concurrency: concurrency,
		clock:       clock,
		tracer:      otel.Tracer(tracerName),
	}
}

// Loaded reports whether a model is available. A nil Service has no model.
func (s *Service) Loaded() bool {
	return s != nil && s.state != nil
}

// PredictJSON checks the model is loaded, parses body and predicts.
func (s *Service) PredictJSON(ctx context.Context, body []byte) (*Prediction, error) {
	if !s.Loaded() {
		s.unavailable()
		return nil, ErrModelNotLoaded
	}
	req, err := ParseRequest(body)
	if err != nil {
		s.metrics.prediction(outcomeInvalid, 0)
		return nil, err
	}
	return s.Predict(ctx, req)
}

// Predict validates req and returns the predicted demand for it.
func (s *Service) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if !s.Loaded() {
		s.unavailable()
		return nil, ErrModelNotLoaded
	}

	_, span := s.tracer.Start(ctx, "demand.Predict")
	defer span.End()

	req, err := req.Normalize()
	if err != nil {
		s.metrics.prediction(outcomeInvalid, 0)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("demand.route", req.Route().String()),
		attribute.Int("demand.hour", req.Hour),
		attribute.String("demand.weather", req.Weather),
	)

	d, err := s.estimate(req.Origin, req.Destination, req.DayOfWeek, req.Hour, req.Weather)
	if err != nil {
		s.metrics.prediction(outcomeError, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "prediction failed")
		s.logger.Error().
			Err(err).
			Str("origin", req.Origin).
			Str("destination", req.Destination).
			Str("day_of_week", req.DayOfWeek).
			Int("hour", req.Hour).
			Str("weather", req.Weather).
			Msg("prediction error")
		return nil, &InternalError{Op: "prediction", Err: err}
	}

	s.metrics.prediction(outcomeSuccess, d)
	span.SetAttributes(attribute.Float64("demand.predicted", d))

	return &Prediction{
		PredictedDemand: d,
		Confidence:      Confidence(d),
		Level:           Tier(d),
		Route:           req.Route(),
		Time:            fmt.Sprintf("%02d:00", req.Hour),
		Recommendation:  Recommendation(d, req.Hour),
		Inputs:          req,
	}, nil
}

// unavailable records a request refused for lack of a model.
// It is a no-op on a nil Service.
func (s *Service) unavailable() {
	if s == nil {
		return
	}
	s.metrics.prediction(outcomeUnavailable, 0)
}

// estimate runs encode, predict and clamp. A panic inside the model is
// returned as an error.
func (s *Service) estimate(origin, destination, day string, hour int, weather string) (d float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()

	st := s.state
	s.countUnknown(st.encoders, origin, destination, day, weather)

	v, err := model.Encode(st.encoders, origin, destination, day, hour, weather)
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}
	raw, err := st.model.Predict(v)
	if err != nil {
		return 0, fmt.Errorf("model predict: %w", err)
	}
	return ClampDemand(raw), nil
}

func (s *Service) countUnknown(encoders *encoding.EncoderSet, origin, destination, day, weather string) {
	if s.metrics == nil {
		return
	}
	values := map[string]string{
		encoding.FieldOrigin:      origin,
		encoding.FieldDestination: destination,
		encoding.FieldDayOfWeek:   day,
		encoding.FieldWeather:     weather,
	}
	for field, v := range values {
		if enc, err := encoders.Encoder(field); err == nil && !enc.Contains(v) {
			s.metrics.unknown(field)
		}
	}
}
