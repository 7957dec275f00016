package domain

import (
	"errors"
	"fmt"
)

// ErrMissingFeature is wrapped by every LookupError.
var ErrMissingFeature = errors.New("missing feature")

// LookupError reports a feature name that could not be resolved while
// assembling a feature vector.
type LookupError struct {
	Feature string
	// Undeclared is true when a reserved event name is absent from the
	// declared feature list, false when a declared name has no value.
	Undeclared bool
}

func (e *LookupError) Error() string {
	if e.Undeclared {
		return fmt.Sprintf("%s: %q is not declared by the model", ErrMissingFeature, e.Feature)
	}
	return fmt.Sprintf("%s: no value for %q", ErrMissingFeature, e.Feature)
}

func (e *LookupError) Unwrap() error { return ErrMissingFeature }

// MergeInputs combines rock inputs with the encoded event features. Event
// values take precedence over rock inputs with the same name.
func MergeInputs(rock RockInputs, event EventParams) map[string]float64 {
	merged := make(map[string]float64, len(rock)+len(ReservedFeatures))
	for k, v := range rock {
		merged[k] = v
	}
	for k, v := range event.Features() {
		merged[k] = v
	}
	return merged
}

// AssembleVector projects values through the declared feature order.
func AssembleVector(features []string, values map[string]float64) ([]float64, error) {
	vec := make([]float64, len(features))
	for i, name := range features {
		v, ok := values[name]
		if !ok {
			return nil, &LookupError{Feature: name}
		}
		vec[i] = v
	}
	return vec, nil
}

// BuildFeatureVector merges rock and event values and assembles them in the
// declared order. Every reserved event name must be declared.
func BuildFeatureVector(features []string, rock RockInputs, event EventParams) ([]float64, error) {
	declared := make(map[string]struct{}, len(features))
	for _, f := range features {
		declared[f] = struct{}{}
	}
	for _, r := range ReservedFeatures {
		if _, ok := declared[r]; !ok {
			return nil, &LookupError{Feature: r, Undeclared: true}
		}
	}
	return AssembleVector(features, MergeInputs(rock, event))
}
