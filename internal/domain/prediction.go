package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrTargetMismatch is returned when a model output does not line up with the
// declared target names.
var ErrTargetMismatch = errors.New("target count mismatch")

// TargetValue is one predicted chemical concentration.
type TargetValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ZipTargets pairs each declared target name with the output at the same
// position. The lengths must match.
func ZipTargets(names []string, values []float64) ([]TargetValue, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d target names, %d outputs", ErrTargetMismatch, len(names), len(values))
	}
	out := make([]TargetValue, len(names))
	for i, name := range names {
		out[i] = TargetValue{Name: name, Value: values[i]}
	}
	return out, nil
}

// FeatureImportance is the importance score of one input feature.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// RankImportances pairs scores with feature names and sorts them by
// descending importance. Ties keep the declared order.
func RankImportances(features []string, scores []float64) ([]FeatureImportance, error) {
	if len(features) != len(scores) {
		return nil, fmt.Errorf("importance count mismatch: %d features, %d scores", len(features), len(scores))
	}
	ranked := make([]FeatureImportance, len(features))
	for i, f := range features {
		ranked[i] = FeatureImportance{Feature: f, Importance: scores[i]}
	}
	slices.SortStableFunc(ranked, func(a, b FeatureImportance) int {
		switch {
		case a.Importance > b.Importance:
			return -1
		case a.Importance < b.Importance:
			return 1
		default:
			return 0
		}
	})
	return ranked, nil
}

// FormatVolume renders a leachate volume in millilitres.
func FormatVolume(ml float64) string {
	return fmt.Sprintf("%.2f ml", ml)
}

// Prediction is the outcome of one form submission. It is never stored.
type Prediction struct {
	ID          string        `json:"id"`
	VolumeML    float64       `json:"volume_ml"`
	Chemistry   []TargetValue `json:"chemistry"`
	Event       EventParams   `json:"event"`
	Vector      []float64     `json:"vector"`
	PredictedAt time.Time     `json:"predicted_at"`
}

// VolumeText is the formatted predicted volume.
func (p Prediction) VolumeText() string {
	return FormatVolume(p.VolumeML)
}

// ChemistryMap returns the chemistry row keyed by target name.
func (p Prediction) ChemistryMap() map[string]float64 {
	m := make(map[string]float64, len(p.Chemistry))
	for _, tv := range p.Chemistry {
		m[tv.Name] = tv.Value
	}
	return m
}
