// Package model defines the demand model contract and the one-hot ridge
// regression that implements it.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Feature positions inside a FeatureVector. The order matches training.
const (
	FeatureOrigin = iota
	FeatureDestination
	FeatureDayOfWeek
	FeatureHour
	FeatureWeather

	NumFeatures
)

// HoursPerDay is the cardinality of the raw hour feature.
const HoursPerDay = 24

// FeatureNames names each position of a FeatureVector.
var FeatureNames = [NumFeatures]string{"origin", "destination", "day_of_week", "hour", "weather"}

// FeatureVector is [origin_code, destination_code, day_of_week_code, hour, weather_code].
type FeatureVector [NumFeatures]float64

// Predictor is anything that turns a feature vector into a demand estimate.
type Predictor interface {
	Predict(v FeatureVector) (float64, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(v FeatureVector) (float64, error)

// Predict calls f(v).
func (f PredictorFunc) Predict(v FeatureVector) (float64, error) {
	return f(v)
}

var (
	// ErrFeatureOutOfRange is returned when a feature is not a valid level
	// for the model it is fed to.
	ErrFeatureOutOfRange = errors.New("feature value out of range")

	// ErrNotFitted is returned by Predict on a model without coefficients.
	ErrNotFitted = errors.New("model is not fitted")
)

// Kind identifies the persisted model format.
const Kind = "onehot-ridge/v1"

// Evaluation holds hold-out metrics recorded at training time.
type Evaluation struct {
	MAE       float64 `json:"mae"`
	R2        float64 `json:"r2"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// LinearModel is an additive model over one-hot encoded features:
// prediction = intercept + sum_i weights[i][level_i].
type LinearModel struct {
	Kind          string                 `json:"kind"`
	Cardinalities [NumFeatures]int       `json:"cardinalities"`
	Intercept     float64                `json:"intercept"`
	Weights       [NumFeatures][]float64 `json:"weights"`
	Lambda        float64                `json:"lambda"`
	TrainedAt     time.Time              `json:"trained_at"`
	Evaluation    Evaluation             `json:"evaluation"`
}

// Predict implements Predictor.
func (m *LinearModel) Predict(v FeatureVector) (float64, error) {
	if m == nil || m.Weights[0] == nil {
		return 0, ErrNotFitted
	}

	y := m.Intercept
	for i, x := range v {
		level, err := m.level(i, x)
		if err != nil {
			return 0, err
		}
		y += m.Weights[i][level]
	}
	return y, nil
}

func (m *LinearModel) level(feature int, x float64) (int, error) {
	if math.IsNaN(x) || x != math.Trunc(x) {
		return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrFeatureOutOfRange, FeatureNames[feature], x)
	}
	level := int(x)
	if level < 0 || level >= len(m.Weights[feature]) {
		return 0, fmt.Errorf("%w: %s=%d not in [0, %d)",
			ErrFeatureOutOfRange, FeatureNames[feature], level, len(m.Weights[feature]))
	}
	return level, nil
}

// Width returns the number of columns of the one-hot design matrix,
// including the intercept column.
func (m *LinearModel) Width() int {
	w := 1
	for _, c := range m.Cardinalities {
		w += c
	}
	return w
}

// Validate checks that the coefficient shapes match the cardinalities.
func (m *LinearModel) Validate() error {
	if m.Kind != Kind {
		return fmt.Errorf("unsupported model kind %q", m.Kind)
	}
	for i, c := range m.Cardinalities {
		if c <= 0 {
			return fmt.Errorf("feature %s has cardinality %d", FeatureNames[i], c)
		}
		if len(m.Weights[i]) != c {
			return fmt.Errorf("feature %s has %d weights, want %d", FeatureNames[i], len(m.Weights[i]), c)
		}
	}
	return nil
}
