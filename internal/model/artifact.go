// Package model loads the exported regression artifacts and evaluates them.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model types understood by the loader.
const (
	TypeTreeEnsemble = "tree_ensemble"
	TypeLinear       = "linear"
)

var (
	// ErrFeatureMismatch is returned when two artifacts declare different
	// input feature lists.
	ErrFeatureMismatch = errors.New("artifact feature lists differ")

	// ErrInvalidArtifact marks a structurally malformed artifact.
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// Regressor maps one feature vector to one or more outputs.
type Regressor interface {
	Predict(x []float64) ([]float64, error)
	NumOutputs() int
	// Importances returns one non-negative score per input feature.
	Importances() []float64
}

// Artifact bundles a fitted regressor with the metadata needed to call it.
// It is immutable after construction and safe for concurrent use.
type Artifact struct {
	name        string
	regressor   Regressor
	features    []string
	targets     []string
	importances []float64
}

// NewArtifact validates the metadata against the regressor. A nil
// importances slice means the regressor's own scores are used.
func NewArtifact(name string, r Regressor, features, targets []string, importances []float64) (*Artifact, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no regressor", ErrInvalidArtifact)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: input_features is empty", ErrInvalidArtifact)
	}
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if f == "" {
			return nil, fmt.Errorf("%w: empty feature name", ErrInvalidArtifact)
		}
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrInvalidArtifact, f)
		}
		seen[f] = struct{}{}
	}
	if r.NumOutputs() < 1 {
		return nil, fmt.Errorf("%w: model has no outputs", ErrInvalidArtifact)
	}
	if len(targets) > 0 && len(targets) != r.NumOutputs() {
		return nil, fmt.Errorf("%w: %d target names for %d model outputs", ErrInvalidArtifact, len(targets), r.NumOutputs())
	}
	if importances == nil {
		importances = r.Importances()
	}
	if len(importances) != len(features) {
		return nil, fmt.Errorf("%w: %d feature importances for %d features", ErrInvalidArtifact, len(importances), len(features))
	}
	for i, v := range importances {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: feature importance for %q is %v, want a finite non-negative score", ErrInvalidArtifact, features[i], v)
		}
	}
	return &Artifact{
		name:        name,
		regressor:   r,
		features:    slices.Clone(features),
		targets:     slices.Clone(targets),
		importances: slices.Clone(importances),
	}, nil
}

// Name is the artifact's declared name, or its file stem.
func (a *Artifact) Name() string { return a.name }

// InputFeatures returns a copy of the declared feature order.
func (a *Artifact) InputFeatures() []string { return slices.Clone(a.features) }

// TargetNames returns a copy of the declared output names; empty for
// single-output artifacts that do not name their target.
func (a *Artifact) TargetNames() []string { return slices.Clone(a.targets) }

// FeatureImportances returns one score per declared feature, same order.
func (a *Artifact) FeatureImportances() []float64 { return slices.Clone(a.importances) }

// NumOutputs is the regressor output width.
func (a *Artifact) NumOutputs() int { return a.regressor.NumOutputs() }

// Predict runs the regressor after checking the vector width.
func (a *Artifact) Predict(x []float64) ([]float64, error) {
	if len(x) != len(a.features) {
		return nil, fmt.Errorf("%s: vector has %d values, model expects %d", a.name, len(x), len(a.features))
	}
	out, err := a.regressor.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("%s: predict: %w", a.name, err)
	}
	return out, nil
}

// CheckConsistency verifies that other declares exactly the same feature
// order as a.
func (a *Artifact) CheckConsistency(other *Artifact) error {
	if len(a.features) != len(other.features) {
		return fmt.Errorf("%w: %s declares %d features, %s declares %d",
			ErrFeatureMismatch, a.name, len(a.features), other.name, len(other.features))
	}
	for i := range a.features {
		if a.features[i] != other.features[i] {
			return fmt.Errorf("%w: position %d is %q in %s and %q in %s",
				ErrFeatureMismatch, i, a.features[i], a.name, other.features[i], other.name)
		}
	}
	return nil
}

// Load reads an artifact file. YAML is used for .yaml/.yml files, JSON
// otherwise.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load artifact %q: %w", path, err)
	}
	var f File
	if err := decode(path, data, &f); err != nil {
		return nil, fmt.Errorf("load artifact %q: decode: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	a, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("load artifact %q: %w", path, err)
	}
	return a, nil
}

func decode(path string, data []byte, f *File) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, f)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(f)
	}
}

// File is the serialized artifact layout written by the training export.
type File struct {
	Name               string    `json:"name,omitempty" yaml:"name,omitempty"`
	InputFeatures      []string  `json:"input_features" yaml:"input_features"`
	TargetNames        []string  `json:"target_names,omitempty" yaml:"target_names,omitempty"`
	FeatureImportances []float64 `json:"feature_importances,omitempty" yaml:"feature_importances,omitempty"`
	Model              Spec      `json:"model" yaml:"model"`
}

// Spec describes the fitted regressor.
type Spec struct {
	Type     string `json:"type" yaml:"type"`
	NOutputs int    `json:"n_outputs" yaml:"n_outputs"`

	// tree_ensemble
	Trees []Tree `json:"trees,omitempty" yaml:"trees,omitempty"`

	// linear
	Coefficients [][]float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Intercepts   []float64   `json:"intercepts,omitempty" yaml:"intercepts,omitempty"`
}

// Build constructs and validates the artifact described by f.
func (f File) Build() (*Artifact, error) {
	var (
		r   Regressor
		err error
	)
	switch f.Model.Type {
	case TypeTreeEnsemble:
		r, err = NewTreeEnsemble(f.Model.Trees, len(f.InputFeatures), f.Model.NOutputs)
	case TypeLinear:
		r, err = NewLinear(f.Model.Coefficients, f.Model.Intercepts, len(f.InputFeatures))
	case "":
		return nil, fmt.Errorf("%w: model.type is required", ErrInvalidArtifact)
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrInvalidArtifact, f.Model.Type)
	}
	if err != nil {
		return nil, err
	}
	if f.Model.NOutputs != 0 && f.Model.NOutputs != r.NumOutputs() {
		return nil, fmt.Errorf("%w: n_outputs is %d but the model produces %d", ErrInvalidArtifact, f.Model.NOutputs, r.NumOutputs())
	}
	return NewArtifact(f.Name, r, f.InputFeatures, f.TargetNames, f.FeatureImportances)
}
