package model

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultLambda is the L2 penalty applied to every non-intercept coefficient.
const DefaultLambda = 1.0

// ErrSingular is returned when the regularized normal equations cannot be factorized.
var ErrSingular = errors.New("normal equations are not positive definite")

// Fit solves ridge regression over the one-hot expansion of xs.
// cards gives the number of levels of each feature; the intercept is not penalized.
func Fit(xs []FeatureVector, ys []float64, cards [NumFeatures]int, lambda float64) (*LinearModel, error) {
	if len(xs) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("have %d feature rows and %d targets", len(xs), len(ys))
	}
	if lambda <= 0 {
		lambda = DefaultLambda
	}

	m := &LinearModel{Kind: Kind, Cardinalities: cards, Lambda: lambda}
	for i, c := range cards {
		if c <= 0 {
			return nil, fmt.Errorf("feature %s has cardinality %d", FeatureNames[i], c)
		}
		m.Weights[i] = make([]float64, c)
	}

	design, err := m.design(xs)
	if err != nil {
		return nil, err
	}
	width := m.Width()

	var gram mat.SymDense
	gram.SymOuterK(1, design.T())
	for j := 1; j < width; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), mat.NewVecDense(len(ys), ys))

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, ErrSingular
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}

	m.Intercept = beta.AtVec(0)
	col := 1
	for i := range m.Weights {
		for l := range m.Weights[i] {
			m.Weights[i][l] = beta.AtVec(col)
			col++
		}
	}
	m.TrainedAt = time.Now().UTC()
	return m, nil
}

// design builds the n x Width() indicator matrix for xs.
func (m *LinearModel) design(xs []FeatureVector) (*mat.Dense, error) {
	d := mat.NewDense(len(xs), m.Width(), nil)
	for r, x := range xs {
		d.Set(r, 0, 1)
		offset := 1
		for i, v := range x {
			level, err := m.level(i, v)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
			d.Set(r, offset+level, 1)
			offset += m.Cardinalities[i]
		}
	}
	return d, nil
}

// Evaluate scores p against held-out rows.
func Evaluate(p Predictor, xs []FeatureVector, ys []float64) (Evaluation, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return Evaluation{}, fmt.Errorf("cannot evaluate %d rows against %d targets", len(xs), len(ys))
	}
	preds := make([]float64, len(xs))
	for i, x := range xs {
		y, err := p.Predict(x)
		if err != nil {
			return Evaluation{}, fmt.Errorf("row %d: %w", i, err)
		}
		preds[i] = y
	}
	return Evaluation{
		MAE:      floats.Distance(preds, ys, 1) / float64(len(ys)),
		R2:       stat.RSquaredFrom(preds, ys, nil),
		TestRows: len(ys),
	}, nil
}
