package model

import (
	"fmt"
	"math"
)

// Linear is a multi-output linear regressor: y[k] = intercept[k] + coef[k]·x.
type Linear struct {
	coef      [][]float64
	intercept []float64
}

// NewLinear validates one coefficient row per output, each as wide as the
// feature list. A nil intercepts slice means all zeros.
func NewLinear(coef [][]float64, intercepts []float64, nFeatures int) (*Linear, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("%w: linear model has no coefficients", ErrInvalidArtifact)
	}
	for k, row := range coef {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: coefficient row %d has %d values, want %d", ErrInvalidArtifact, k, len(row), nFeatures)
		}
	}
	if intercepts == nil {
		intercepts = make([]float64, len(coef))
	}
	if len(intercepts) != len(coef) {
		return nil, fmt.Errorf("%w: %d intercepts for %d outputs", ErrInvalidArtifact, len(intercepts), len(coef))
	}
	return &Linear{coef: coef, intercept: intercepts}, nil
}

// NumOutputs implements Regressor.
func (l *Linear) NumOutputs() int { return len(l.coef) }

// Predict implements Regressor.
func (l *Linear) Predict(x []float64) ([]float64, error) {
	if len(x) != len(l.coef[0]) {
		return nil, fmt.Errorf("got %d features, want %d", len(x), len(l.coef[0]))
	}
	out := make([]float64, len(l.coef))
	for k, row := range l.coef {
		y := l.intercept[k]
		for i, c := range row {
			y += c * x[i]
		}
		out[k] = y
	}
	return out, nil
}

// Importances implements Regressor using the normalized absolute
// coefficients of the first output.
func (l *Linear) Importances() []float64 {
	abs := make([]float64, len(l.coef[0]))
	for i, c := range l.coef[0] {
		abs[i] = math.Abs(c)
	}
	return normalize(abs)
}
