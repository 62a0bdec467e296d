package model

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/dataset"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/encoding"
)

// TrainOptions controls Train.
type TrainOptions struct {
	// TestFraction of rows held out for evaluation. Default: 0.2
	TestFraction float64

	// Lambda is the ridge penalty. Default: DefaultLambda
	Lambda float64

	// Seed drives the train/test shuffle.
	Seed uint64
}

// TrainResult is the output of Train.
type TrainResult struct {
	Model    *LinearModel
	Encoders *encoding.EncoderSet
}

// Train fits the categorical encoders on rows, encodes them, fits a
// LinearModel on a shuffled training split and evaluates it on the rest.
func Train(rows []dataset.Row, opts TrainOptions) (*TrainResult, error) {
	if len(rows) < 2 {
		return nil, errors.New("need at least two rows to train")
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = 0.2
	}

	encoders := fitEncoders(rows)

	xs := make([]FeatureVector, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		v, err := Encode(encoders, r.Origin, r.Destination, r.DayOfWeek, r.Hour, r.Weather)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		xs[i] = v
		ys[i] = float64(r.DemandCount)
	}

	perm := rand.New(rand.NewPCG(opts.Seed, opts.Seed)).Perm(len(rows))
	nTest := max(1, int(float64(len(rows))*opts.TestFraction))
	nTrain := len(rows) - nTest

	trainX, trainY := pick(xs, ys, perm[:nTrain])
	testX, testY := pick(xs, ys, perm[nTrain:])

	cards := [NumFeatures]int{
		FeatureOrigin:      encoders.Cardinality(encoding.FieldOrigin),
		FeatureDestination: encoders.Cardinality(encoding.FieldDestination),
		FeatureDayOfWeek:   encoders.Cardinality(encoding.FieldDayOfWeek),
		FeatureHour:        HoursPerDay,
		FeatureWeather:     encoders.Cardinality(encoding.FieldWeather),
	}
	m, err := Fit(trainX, trainY, cards, opts.Lambda)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	eval, err := Evaluate(m, testX, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}
	eval.TrainRows = nTrain
	m.Evaluation = eval

	return &TrainResult{Model: m, Encoders: encoders}, nil
}

// Encode builds the feature vector for one observation.
func Encode(encoders *encoding.EncoderSet, origin, destination, day string, hour int, weather string) (FeatureVector, error) {
	var v FeatureVector
	fields := [...]struct {
		pos   int
		field string
		value string
	}{
		{FeatureOrigin, encoding.FieldOrigin, origin},
		{FeatureDestination, encoding.FieldDestination, destination},
		{FeatureDayOfWeek, encoding.FieldDayOfWeek, day},
		{FeatureWeather, encoding.FieldWeather, weather},
	}
	for _, f := range fields {
		code, err := encoders.Encode(f.field, f.value)
		if err != nil {
			return v, err
		}
		v[f.pos] = float64(code)
	}
	v[FeatureHour] = float64(hour)
	return v, nil
}

func fitEncoders(rows []dataset.Row) *encoding.EncoderSet {
	values := make(map[string][]string, len(encoding.Fields))
	for _, r := range rows {
		values[encoding.FieldOrigin] = append(values[encoding.FieldOrigin], r.Origin)
		values[encoding.FieldDestination] = append(values[encoding.FieldDestination], r.Destination)
		values[encoding.FieldDayOfWeek] = append(values[encoding.FieldDayOfWeek], r.DayOfWeek)
		values[encoding.FieldWeather] = append(values[encoding.FieldWeather], r.Weather)
	}
	encoders := make(map[string]*encoding.LabelEncoder, len(values))
	for field, vs := range values {
		encoders[field] = encoding.Fit(vs)
	}
	return encoding.NewEncoderSet(encoders)
}

func pick(xs []FeatureVector, ys []float64, idx []int) ([]FeatureVector, []float64) {
	px := make([]FeatureVector, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i] = xs[j]
		py[i] = ys[j]
	}
	return px, py
}
